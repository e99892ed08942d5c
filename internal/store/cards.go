package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Card lifecycle statuses. The automaton only ever writes postponed and
// considering; the rest arrive through human action.
const (
	StatusDrafted     = "drafted"
	StatusPublished   = "published"
	StatusConsidering = "considering"
	StatusDoing       = "doing"
	StatusPostponed   = "postponed"
	StatusClosed      = "closed"
)

// ErrStaleCard is returned when an optimistic card transition loses to a
// concurrent writer. Callers skip the card; the next sweep re-evaluates it.
var ErrStaleCard = errors.New("card changed since read")

// Card represents a work item inside a collection.
// activity_score and activity_score_order are a derived cache over
// card_events, maintained by the engine's rescore path.
type Card struct {
	ID                 int64
	CollectionID       int64
	Title              string
	Status             string
	LastActiveAt       *int64 // UnixMilli of most recent qualifying action
	ActivityScore      float64
	ActivityScoreOrder float64
	PostponedAt        *int64
	PostponedBy        string
	CreatedAt          int64
	UpdatedAt          int64
}

const cardColumns = `id, collection_id, title, status, last_active_at,
	activity_score, activity_score_order, postponed_at, postponed_by,
	created_at, updated_at`

// CreateCard inserts a new card.
func (db *DB) CreateCard(card *Card) error {
	now := time.Now().UnixMilli()
	if card.Status == "" {
		card.Status = StatusDrafted
	}

	result, err := db.Exec(`
		INSERT INTO cards (collection_id, title, status, last_active_at,
			activity_score, activity_score_order, postponed_at, postponed_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)
	`, card.CollectionID, card.Title, card.Status, card.LastActiveAt,
		card.ActivityScore, card.ActivityScoreOrder, card.PostponedAt, card.PostponedBy,
		now, now)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}

	id, _ := result.LastInsertId()
	card.ID = id
	card.CreatedAt = now
	card.UpdatedAt = now
	return nil
}

// GetCard returns a card by id, or nil if not found.
func (db *DB) GetCard(id int64) (*Card, error) {
	row := db.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d: %w", id, err)
	}
	return card, nil
}

// UpdateCardStatus sets a card's status without touching postponement
// fields. Used for manual transitions arriving over the API.
func (db *DB) UpdateCardStatus(id int64, status string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE cards SET status = ?, updated_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	return nil
}

// UpdateCardScore writes the derived activity cache for a card.
func (db *DB) UpdateCardScore(id int64, score, orderKey float64, lastActiveAt *int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE cards SET activity_score = ?, activity_score_order = ?, last_active_at = ?, updated_at = ?
		WHERE id = ?
	`, score, orderKey, lastActiveAt, now, id)
	if err != nil {
		return fmt.Errorf("update card score: %w", err)
	}
	return nil
}

// PostponeCard transitions a card to postponed, guarded against concurrent
// writers: the update only lands if status and last_active_at still match
// what the sweep read. Zero rows affected means someone else got there
// first and the caller gets ErrStaleCard.
func (db *DB) PostponeCard(id int64, fromStatus string, lastActiveAt *int64, postponedAt int64, postponedBy string) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		UPDATE cards SET status = ?, postponed_at = ?, postponed_by = ?, updated_at = ?
		WHERE id = ? AND status = ? AND last_active_at IS ?
	`, StatusPostponed, postponedAt, postponedBy, now, id, fromStatus, lastActiveAt)
	if err != nil {
		return fmt.Errorf("postpone card %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postpone card %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrStaleCard
	}
	return nil
}

// ReconsiderCard transitions a postponed card back to considering and
// clears its postponement fields, guarded on postponed_at so an
// overlapping sweep cannot double-apply the transition.
func (db *DB) ReconsiderCard(id int64, postponedAt int64) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		UPDATE cards SET status = ?, postponed_at = NULL, postponed_by = NULL, updated_at = ?
		WHERE id = ? AND status = ? AND postponed_at = ?
	`, StatusConsidering, now, id, StatusPostponed, postponedAt)
	if err != nil {
		return fmt.Errorf("reconsider card %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reconsider card %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrStaleCard
	}
	return nil
}

// ListCardsByStatus returns all cards whose status is in the given set,
// in id order. The automaton layers due-ness on top.
func (db *DB) ListCardsByStatus(statuses ...string) ([]Card, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := "?"
	args := []any{statuses[0]}
	for _, s := range statuses[1:] {
		placeholders += ", ?"
		args = append(args, s)
	}

	rows, err := db.Query(`SELECT `+cardColumns+` FROM cards WHERE status IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards by status: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// ListStagnated returns postponed cards whose postponed_at is at or before
// the cutoff (UnixMilli).
func (db *DB) ListStagnated(cutoff int64) ([]Card, error) {
	rows, err := db.Query(`
		SELECT `+cardColumns+` FROM cards
		WHERE status = ? AND postponed_at IS NOT NULL AND postponed_at <= ?
		ORDER BY id
	`, StatusPostponed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stagnated: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// ListCardsByActivity returns all non-closed cards, most active first.
// The cached order key is time-invariant, so the stored column sorts
// correctly no matter when each card was last rescored.
func (db *DB) ListCardsByActivity() ([]Card, error) {
	rows, err := db.Query(`
		SELECT ` + cardColumns + ` FROM cards
		WHERE status != 'closed'
		ORDER BY activity_score_order DESC, COALESCE(last_active_at, created_at) DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list cards by activity: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// ListCardsByStaleness returns all non-closed cards, longest-untouched
// first. A never-active card ranks as if it were last touched staleBias
// before its creation: moderately stale, never at either extreme.
func (db *DB) ListCardsByStaleness(staleBias time.Duration) ([]Card, error) {
	rows, err := db.Query(`
		SELECT `+cardColumns+` FROM cards
		WHERE status != 'closed'
		ORDER BY COALESCE(last_active_at, created_at - ?) ASC, activity_score_order ASC, id
	`, staleBias.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("list cards by staleness: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// AllCardIDs returns every card id. Used by full rescore.
func (db *DB) AllCardIDs() ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all card ids: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*Card, error) {
	var c Card
	var lastActive, postponedAt sql.NullInt64
	var postponedBy sql.NullString
	err := row.Scan(&c.ID, &c.CollectionID, &c.Title, &c.Status, &lastActive,
		&c.ActivityScore, &c.ActivityScoreOrder, &postponedAt, &postponedBy,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		c.LastActiveAt = &lastActive.Int64
	}
	if postponedAt.Valid {
		c.PostponedAt = &postponedAt.Int64
	}
	c.PostponedBy = postponedBy.String
	return &c, nil
}

func scanCards(rows *sql.Rows) ([]Card, error) {
	var cards []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}
