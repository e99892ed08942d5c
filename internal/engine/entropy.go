package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mechanicaltomato/fizzy/internal/store"
)

// PostponingSoonWindow is how far ahead the "postponing soon" listing
// looks for cards approaching their due instant.
const PostponingSoonWindow = 7 * 24 * time.Hour

// ErrNoAccountEntropy indicates the account-level entropy record is
// missing even after the lazy create. That is a data-integrity defect and
// is surfaced loudly rather than silently defaulted.
var ErrNoAccountEntropy = errors.New("account entropy record missing")

// EffectivePeriod resolves the auto-postpone period for a card: the
// card's collection entropy when configured, otherwise the account
// default. The account record is created with the configured default on
// first access, so the chain always terminates.
func (e *Engine) EffectivePeriod(card *store.Card) (time.Duration, error) {
	ent, err := e.DB.GetEntropy(store.ContainerCollection, card.CollectionID)
	if err != nil {
		return 0, err
	}
	if ent != nil {
		return ent.Period(), nil
	}

	acct, err := e.AccountEntropy()
	if err != nil {
		return 0, fmt.Errorf("card %d: %w", card.ID, err)
	}
	return acct.Period(), nil
}

// AccountEntropy returns the account-level entropy record, creating it
// with the configured default on first access.
func (e *Engine) AccountEntropy() (*store.Entropy, error) {
	acct, err := e.DB.EnsureAccountEntropy(e.Cfg.DefaultEntropyPeriod())
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrNoAccountEntropy
	}
	return acct, nil
}

// DueAt returns the instant a card becomes due for postponement: its last
// activity plus the effective period. A never-active card is anchored at
// its creation time.
func (e *Engine) DueAt(card *store.Card) (time.Time, error) {
	period, err := e.EffectivePeriod(card)
	if err != nil {
		return time.Time{}, err
	}

	anchor := card.CreatedAt
	if card.LastActiveAt != nil {
		anchor = *card.LastActiveAt
	}
	return time.UnixMilli(anchor).Add(period), nil
}

// PostponingSoon returns eligible cards that are not yet due but will be
// within the window, soonest first.
func (e *Engine) PostponingSoon(now time.Time, window time.Duration) ([]store.Card, error) {
	cards, err := e.DB.ListCardsByStatus(store.StatusPublished, store.StatusConsidering, store.StatusDoing)
	if err != nil {
		return nil, err
	}

	type soon struct {
		card store.Card
		due  time.Time
	}
	var matches []soon
	for _, card := range cards {
		due, err := e.DueAt(&card)
		if err != nil {
			log.Printf("postponing soon: card %d: %v", card.ID, err)
			continue
		}
		if due.After(now) && !due.After(now.Add(window)) {
			matches = append(matches, soon{card: card, due: due})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].due.Before(matches[j].due) })

	out := make([]store.Card, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.card)
	}
	return out, nil
}

// SetEntropy configures a container's auto-postpone period and notifies
// the toucher that the cards in scope need their due-ness re-evaluated.
func (e *Engine) SetEntropy(containerType string, containerID int64, period time.Duration) (*store.Entropy, error) {
	ent, err := e.DB.SetEntropy(containerType, containerID, period)
	if err != nil {
		return nil, err
	}
	e.touchScope(containerType, containerID)
	return ent, nil
}

// ClearEntropy removes a collection's entropy record; its cards fall back
// to the account default on next resolution.
func (e *Engine) ClearEntropy(collectionID int64) error {
	if err := e.DB.DeleteEntropy(store.ContainerCollection, collectionID); err != nil {
		return err
	}
	e.touchScope(store.ContainerCollection, collectionID)
	return nil
}

func (e *Engine) touchScope(containerType string, containerID int64) {
	var ids []int64
	var err error
	switch containerType {
	case store.ContainerCollection:
		ids, err = e.DB.CardIDsInCollection(containerID)
	default:
		ids, err = e.DB.AllCardIDs()
	}
	if err != nil {
		log.Printf("touch scope %s/%d: %v", containerType, containerID, err)
		return
	}
	e.Toucher.TouchCards(ids)
}
