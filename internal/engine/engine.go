package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/config"
	"github.com/mechanicaltomato/fizzy/internal/scoring"
	"github.com/mechanicaltomato/fizzy/internal/store"
)

// SystemActor is the distinguished identity attributed to automatic
// transitions, so audit trails can tell machine-driven changes from
// human ones.
const SystemActor = "system"

// Toucher receives the ids of cards whose due-ness needs re-evaluation
// after an entropy change. Delivery is the collaborator's problem; the
// engine only states that the cards went stale.
type Toucher interface {
	TouchCards(cardIDs []int64)
}

type logToucher struct{}

func (logToucher) TouchCards(cardIDs []int64) {
	if len(cardIDs) > 0 {
		log.Printf("entropy changed: %d cards need re-evaluation", len(cardIDs))
	}
}

// Engine binds the scoring math and the lifecycle automaton to one
// tenant's store. It holds no cross-tenant state: the sweep driver builds
// one per tenant handle.
type Engine struct {
	DB      *store.DB
	Cfg     config.Config
	Toucher Toucher
}

// New creates an Engine over a tenant store.
func New(db *store.DB, cfg config.Config) *Engine {
	return &Engine{DB: db, Cfg: cfg, Toucher: logToucher{}}
}

// CaptureEvent appends an action event for a card and synchronously
// rescores it. Unknown kinds are stored and logged but weigh nothing;
// the write path never fails on an anomalous kind.
func (e *Engine) CaptureEvent(cardID int64, kind, actor, source string, at time.Time) (*store.Event, error) {
	card, err := e.DB.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("capture event: card %d not found", cardID)
	}

	if _, ok := scoring.WeightFor(kind); !ok {
		log.Printf("capture: unknown action kind %q on card %d (zero weight)", kind, cardID)
	}

	event, err := e.DB.AddEvent(cardID, kind, actor, source, at.UnixMilli())
	if err != nil {
		return nil, err
	}
	if err := e.Rescore(cardID); err != nil {
		return event, fmt.Errorf("rescore after capture: %w", err)
	}
	return event, nil
}

// ReleaseEvents removes the events captured for a source record (e.g. a
// destroyed comment) and rescores, restoring the pre-capture score
// exactly. Returns the number of events removed.
func (e *Engine) ReleaseEvents(cardID int64, kind, source string) (int, error) {
	n, err := e.DB.DeleteEventsBySource(cardID, kind, source)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := e.Rescore(cardID); err != nil {
		return n, fmt.Errorf("rescore after release: %w", err)
	}
	return n, nil
}

// Rescore rebuilds a card's cached score fields from its full event
// history. Idempotent: the order key is time-invariant, so repeated calls
// never drift.
func (e *Engine) Rescore(cardID int64) error {
	card, err := e.DB.GetCard(cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return fmt.Errorf("rescore: card %d not found", cardID)
	}

	events, err := e.DB.EventsForCard(cardID)
	if err != nil {
		return err
	}

	actions := make([]scoring.Action, 0, len(events))
	for _, ev := range events {
		actions = append(actions, scoring.Action{Kind: ev.Kind, At: time.UnixMilli(ev.CreatedAt)})
	}

	halfLife := e.Cfg.HalfLife()
	createdAt := time.UnixMilli(card.CreatedAt)
	score := scoring.Score(actions, time.Now(), halfLife)
	orderKey := scoring.OrderKey(actions, createdAt, halfLife)

	var lastActive *int64
	if t := scoring.LastActive(actions); t != nil {
		ms := t.UnixMilli()
		lastActive = &ms
	}

	return e.DB.UpdateCardScore(cardID, score, orderKey, lastActive)
}

// RescoreAll rebuilds the score cache for every card. A failing card is
// logged and skipped so a backfill never stalls on one bad row. Returns
// the number of cards rescored.
func (e *Engine) RescoreAll() (int, error) {
	ids, err := e.DB.AllCardIDs()
	if err != nil {
		return 0, err
	}

	rescored := 0
	for _, id := range ids {
		if err := e.Rescore(id); err != nil {
			log.Printf("rescore all: card %d: %v", id, err)
			continue
		}
		rescored++
	}
	return rescored, nil
}
