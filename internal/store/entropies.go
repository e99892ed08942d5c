package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Entropy container kinds. The account container is the root of the
// resolution chain and uses container_id 0; there is one account per
// tenant database.
const (
	ContainerAccount    = "account"
	ContainerCollection = "collection"
)

// Entropy holds the auto-postpone period for one container. A collection's
// record is optional; the account record always exists once resolution has
// run at least once.
type Entropy struct {
	ID                 int64
	ContainerType      string
	ContainerID        int64
	AutoPostponePeriod int64 // seconds
	CreatedAt          int64
	UpdatedAt          int64
}

// Period returns the auto-postpone period as a duration.
func (e *Entropy) Period() time.Duration {
	return time.Duration(e.AutoPostponePeriod) * time.Second
}

// GetEntropy returns the entropy record for a container, or nil if the
// container has none configured.
func (db *DB) GetEntropy(containerType string, containerID int64) (*Entropy, error) {
	var e Entropy
	err := db.QueryRow(`
		SELECT id, container_type, container_id, auto_postpone_period, created_at, updated_at
		FROM entropies WHERE container_type = ? AND container_id = ?
	`, containerType, containerID).Scan(&e.ID, &e.ContainerType, &e.ContainerID,
		&e.AutoPostponePeriod, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entropy %s/%d: %w", containerType, containerID, err)
	}
	return &e, nil
}

// SetEntropy creates or updates the entropy record for a container.
func (db *DB) SetEntropy(containerType string, containerID int64, period time.Duration) (*Entropy, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO entropies (container_type, container_id, auto_postpone_period, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (container_type, container_id)
		DO UPDATE SET auto_postpone_period = excluded.auto_postpone_period, updated_at = excluded.updated_at
	`, containerType, containerID, int64(period.Seconds()), now, now)
	if err != nil {
		return nil, fmt.Errorf("set entropy %s/%d: %w", containerType, containerID, err)
	}
	return db.GetEntropy(containerType, containerID)
}

// DeleteEntropy removes a container's entropy record. Cards in scope fall
// back to the account default on their next resolution; no migration step.
func (db *DB) DeleteEntropy(containerType string, containerID int64) error {
	_, err := db.Exec(`
		DELETE FROM entropies WHERE container_type = ? AND container_id = ?
	`, containerType, containerID)
	if err != nil {
		return fmt.Errorf("delete entropy %s/%d: %w", containerType, containerID, err)
	}
	return nil
}

// EnsureAccountEntropy returns the account-level entropy record, creating
// it with the given default period on first access. This is what
// guarantees the resolution chain terminates.
func (db *DB) EnsureAccountEntropy(defaultPeriod time.Duration) (*Entropy, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT OR IGNORE INTO entropies (container_type, container_id, auto_postpone_period, created_at, updated_at)
		VALUES (?, 0, ?, ?, ?)
	`, ContainerAccount, int64(defaultPeriod.Seconds()), now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure account entropy: %w", err)
	}
	return db.GetEntropy(ContainerAccount, 0)
}
