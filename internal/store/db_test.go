package store

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 5 {
		t.Errorf("SchemaVersion = %d, want 5", v)
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{"schema_versions", "collections", "cards", "card_events", "entropies", "lifecycle_events"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestCardStatusConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	coll, err := db.CreateCollection("inbox")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	// Valid insert
	_, err = db.Exec(`
		INSERT INTO cards (collection_id, status, created_at, updated_at)
		VALUES (?, 'published', 1000, 1000)
	`, coll.ID)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Invalid status
	_, err = db.Exec(`
		INSERT INTO cards (collection_id, status, created_at, updated_at)
		VALUES (?, 'vaporized', 1000, 1000)
	`, coll.ID)
	if err == nil {
		t.Error("expected error for invalid status, got nil")
	}
}

func TestEntropyContainerConstraints(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Invalid container type
	_, err = db.Exec(`
		INSERT INTO entropies (container_type, container_id, auto_postpone_period, created_at, updated_at)
		VALUES ('cupboard', 1, 86400, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid container_type, got nil")
	}

	// Duplicate container
	_, err = db.Exec(`
		INSERT INTO entropies (container_type, container_id, auto_postpone_period, created_at, updated_at)
		VALUES ('collection', 1, 86400, 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO entropies (container_type, container_id, auto_postpone_period, created_at, updated_at)
		VALUES ('collection', 1, 172800, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for duplicate container, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 5 {
		t.Errorf("SchemaVersion after re-migrate = %d, want 5", v)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	var fk int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
