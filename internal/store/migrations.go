package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "collections: card containers",
		SQL: `
CREATE TABLE collections (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "cards: work items with cached activity score",
		SQL: `
CREATE TABLE cards (
    id                   INTEGER PRIMARY KEY,
    collection_id        INTEGER NOT NULL,
    title                TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'drafted' CHECK (status IN ('drafted', 'published', 'considering', 'doing', 'postponed', 'closed')),

    -- Activity cache, derived from card_events. Rebuilt by rescore.
    last_active_at       INTEGER,
    activity_score       REAL NOT NULL DEFAULT 0,
    activity_score_order REAL NOT NULL DEFAULT 0,

    -- Postponement
    postponed_at         INTEGER,
    postponed_by         TEXT,

    created_at           INTEGER NOT NULL,
    updated_at           INTEGER NOT NULL,

    FOREIGN KEY (collection_id) REFERENCES collections(id)
);

CREATE INDEX idx_cards_collection  ON cards(collection_id);
CREATE INDEX idx_cards_status      ON cards(status);
CREATE INDEX idx_cards_score_order ON cards(activity_score_order DESC);
CREATE INDEX idx_cards_last_active ON cards(last_active_at);
`,
	},
	{
		Version:     3,
		Description: "card_events: append-only action log, source of truth for scoring",
		SQL: `
CREATE TABLE card_events (
    id         INTEGER PRIMARY KEY,
    card_id    INTEGER NOT NULL,
    kind       TEXT NOT NULL,
    actor      TEXT NOT NULL,
    source     TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,

    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE INDEX idx_card_events_card    ON card_events(card_id);
CREATE INDEX idx_card_events_created ON card_events(created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "entropies: auto-postpone period per container",
		SQL: `
CREATE TABLE entropies (
    id                   INTEGER PRIMARY KEY,
    container_type       TEXT NOT NULL CHECK (container_type IN ('account', 'collection')),
    container_id         INTEGER NOT NULL DEFAULT 0,
    auto_postpone_period INTEGER NOT NULL,
    created_at           INTEGER NOT NULL,
    updated_at           INTEGER NOT NULL,

    UNIQUE (container_type, container_id)
);
`,
	},
	{
		Version:     5,
		Description: "lifecycle_events: audit trail for automatic transitions",
		SQL: `
CREATE TABLE lifecycle_events (
    id         INTEGER PRIMARY KEY,
    card_id    INTEGER NOT NULL,
    action     TEXT NOT NULL CHECK (action IN ('postponed', 'reconsidered')),
    actor      TEXT NOT NULL,
    created_at INTEGER NOT NULL,

    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE INDEX idx_lifecycle_card ON lifecycle_events(card_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
