package engine

import (
	"errors"
	"log"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/store"
)

// SweepCounts summarizes one batch operation for observability.
type SweepCounts struct {
	Postponed    int
	Reconsidered int
	Conflicts    int // optimistic writes lost to a concurrent writer, retried next sweep
	Failures     int // per-card errors other than conflicts
}

// Add folds another batch's counts into this one.
func (c *SweepCounts) Add(o SweepCounts) {
	c.Postponed += o.Postponed
	c.Reconsidered += o.Reconsidered
	c.Conflicts += o.Conflicts
	c.Failures += o.Failures
}

// Statuses eligible for auto-postponement. drafted and closed are
// absorbing as far as the automaton is concerned, and an already
// postponed card is excluded so repeated runs are no-ops.
var eligibleStatuses = []string{store.StatusPublished, store.StatusConsidering, store.StatusDoing}

// AutoPostponeAllDue postpones every eligible card whose inactivity has
// met or exceeded its resolved entropy period, attributing the transition
// to the given actor (the system actor for scheduled sweeps).
//
// Idempotent at the batch level, and a single card's failure never aborts
// the rest: resolution errors and write conflicts are counted, logged,
// and skipped.
func (e *Engine) AutoPostponeAllDue(now time.Time, actor string) (SweepCounts, error) {
	var counts SweepCounts

	cards, err := e.DB.ListCardsByStatus(eligibleStatuses...)
	if err != nil {
		return counts, err
	}

	for i := range cards {
		card := &cards[i]

		dueAt, err := e.DueAt(card)
		if err != nil {
			counts.Failures++
			log.Printf("auto postpone: card %d: %v", card.ID, err)
			continue
		}
		if now.Before(dueAt) {
			continue
		}

		err = e.DB.PostponeCard(card.ID, card.Status, card.LastActiveAt, now.UnixMilli(), actor)
		if errors.Is(err, store.ErrStaleCard) {
			counts.Conflicts++
			log.Printf("auto postpone: card %d changed concurrently, skipping", card.ID)
			continue
		}
		if err != nil {
			counts.Failures++
			log.Printf("auto postpone: card %d: %v", card.ID, err)
			continue
		}

		counts.Postponed++
		if err := e.DB.AddLifecycleEvent(card.ID, store.LifecyclePostponed, actor, now.UnixMilli()); err != nil {
			log.Printf("auto postpone: audit for card %d: %v", card.ID, err)
		}
	}

	return counts, nil
}

// AutoReconsiderAllStagnated returns every card that has sat postponed
// beyond the stagnation threshold to the considering state, clearing its
// postponement fields. Same idempotency and partial-failure semantics as
// AutoPostponeAllDue.
func (e *Engine) AutoReconsiderAllStagnated(now time.Time, actor string) (SweepCounts, error) {
	var counts SweepCounts

	cutoff := now.Add(-e.Cfg.StagnationThreshold()).UnixMilli()
	cards, err := e.DB.ListStagnated(cutoff)
	if err != nil {
		return counts, err
	}

	for i := range cards {
		card := &cards[i]
		if card.PostponedAt == nil {
			continue
		}

		err := e.DB.ReconsiderCard(card.ID, *card.PostponedAt)
		if errors.Is(err, store.ErrStaleCard) {
			counts.Conflicts++
			log.Printf("auto reconsider: card %d changed concurrently, skipping", card.ID)
			continue
		}
		if err != nil {
			counts.Failures++
			log.Printf("auto reconsider: card %d: %v", card.ID, err)
			continue
		}

		counts.Reconsidered++
		if err := e.DB.AddLifecycleEvent(card.ID, store.LifecycleReconsidered, actor, now.UnixMilli()); err != nil {
			log.Printf("auto reconsider: audit for card %d: %v", card.ID, err)
		}
	}

	return counts, nil
}
