package store

import (
	"fmt"
)

// Event is one immutable, timestamped action on a card. The event log is
// the source of truth for scoring: the cached card score can always be
// rebuilt from it.
type Event struct {
	ID        int64
	CardID    int64
	Kind      string
	Actor     string
	Source    string // opaque reference to the originating record (e.g. a comment id)
	CreatedAt int64  // UnixMilli
}

// AddEvent appends an action event for a card.
func (db *DB) AddEvent(cardID int64, kind, actor, source string, createdAt int64) (*Event, error) {
	result, err := db.Exec(`
		INSERT INTO card_events (card_id, kind, actor, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cardID, kind, actor, source, createdAt)
	if err != nil {
		return nil, fmt.Errorf("add event: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Event{ID: id, CardID: cardID, Kind: kind, Actor: actor, Source: source, CreatedAt: createdAt}, nil
}

// EventsForCard returns a card's full event history, oldest first.
func (db *DB) EventsForCard(cardID int64) ([]Event, error) {
	rows, err := db.Query(`
		SELECT id, card_id, kind, actor, source, created_at
		FROM card_events WHERE card_id = ? ORDER BY created_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("events for card: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.CardID, &e.Kind, &e.Actor, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBySource removes the events captured for a specific source
// record (a destroyed comment, a withdrawn boost). The collaborator that
// owns the source drives this; the scoring core itself never deletes.
func (db *DB) DeleteEventsBySource(cardID int64, kind, source string) (int, error) {
	result, err := db.Exec(`
		DELETE FROM card_events WHERE card_id = ? AND kind = ? AND source = ?
	`, cardID, kind, source)
	if err != nil {
		return 0, fmt.Errorf("delete events by source: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events by source: rows affected: %w", err)
	}
	return int(n), nil
}
