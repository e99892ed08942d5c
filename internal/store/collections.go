package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Collection is a container of cards. Each tenant database holds the
// collections of exactly one account.
type Collection struct {
	ID        int64
	Name      string
	CreatedAt int64
}

// CreateCollection inserts a new collection.
func (db *DB) CreateCollection(name string) (*Collection, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`INSERT INTO collections (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	id, _ := result.LastInsertId()
	return &Collection{ID: id, Name: name, CreatedAt: now}, nil
}

// GetCollection returns a collection by id, or nil if not found.
func (db *DB) GetCollection(id int64) (*Collection, error) {
	var c Collection
	err := db.QueryRow(`SELECT id, name, created_at FROM collections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %d: %w", id, err)
	}
	return &c, nil
}

// ListCollections returns all collections in creation order.
func (db *DB) ListCollections() ([]Collection, error) {
	rows, err := db.Query(`SELECT id, name, created_at FROM collections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CardIDsInCollection returns the ids of all cards in a collection.
// Used to fan out re-evaluation when the collection's entropy changes.
func (db *DB) CardIDsInCollection(collectionID int64) ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM cards WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("card ids in collection: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
