package store

import (
	"fmt"
)

// Lifecycle actions recorded for automatic transitions.
const (
	LifecyclePostponed    = "postponed"
	LifecycleReconsidered = "reconsidered"
)

// LifecycleEvent is one audit row per automatic transition. Downstream
// notification fan-out reads these; the automaton only writes them.
type LifecycleEvent struct {
	ID        int64
	CardID    int64
	Action    string
	Actor     string
	CreatedAt int64
}

// AddLifecycleEvent records an automatic transition.
func (db *DB) AddLifecycleEvent(cardID int64, action, actor string, createdAt int64) error {
	_, err := db.Exec(`
		INSERT INTO lifecycle_events (card_id, action, actor, created_at)
		VALUES (?, ?, ?, ?)
	`, cardID, action, actor, createdAt)
	if err != nil {
		return fmt.Errorf("add lifecycle event: %w", err)
	}
	return nil
}

// LifecycleEventsForCard returns a card's audit trail, oldest first.
func (db *DB) LifecycleEventsForCard(cardID int64) ([]LifecycleEvent, error) {
	rows, err := db.Query(`
		SELECT id, card_id, action, actor, created_at
		FROM lifecycle_events WHERE card_id = ? ORDER BY created_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle events for card: %w", err)
	}
	defer rows.Close()

	var events []LifecycleEvent
	for rows.Next() {
		var e LifecycleEvent
		if err := rows.Scan(&e.ID, &e.CardID, &e.Action, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
