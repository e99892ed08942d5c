package scoring

import (
	"math"
	"time"
)

// DefaultHalfLife is the decay half-life used when no configuration is
// supplied: an action loses half its contribution every seven days.
const DefaultHalfLife = 7 * 24 * time.Hour

// DefaultStaleBias anchors never-active cards in the staleness ordering:
// a card with no recorded activity ranks as if it were last touched this
// long before its creation. Moderately stale, never at either extreme.
const DefaultStaleBias = 14 * 24 * time.Hour

// Action is one weighted, timestamped contribution to a card's score.
type Action struct {
	Kind string
	At   time.Time
}

// Score computes a card's decayed activity score at the given instant.
// Each action contributes weight(kind) * 0.5^(age/halfLife); the result is
// always finite and >= 0. Unknown kinds contribute nothing.
func Score(actions []Action, now time.Time, halfLife time.Duration) float64 {
	tau := float64(halfLife.Milliseconds())
	total := 0.0
	for _, a := range actions {
		w, ok := WeightFor(a.Kind)
		if !ok {
			continue
		}
		age := float64(now.Sub(a.At).Milliseconds())
		if age < 0 {
			age = 0
		}
		total += w * math.Exp2(-age/tau)
	}
	return total
}

// OrderKey computes a time-invariant total-order key for a card: the key
// of two cards compares the same way their decayed scores would at any
// shared instant, so the cached column stays sortable no matter when each
// card was last rescored.
//
// The key is log2(sum of weight * 2^(t/halfLife)) with t in absolute
// milliseconds. Raw terms would overflow float64 (the exponent is epoch
// time over the half-life), so the sum is folded in log space around the
// largest exponent. Higher weight and newer activity both strictly
// increase the key.
//
// A card with no scorable actions gets a finite key derived from its
// creation time, offset as if it were last touched two half-lives before
// it was created.
func OrderKey(actions []Action, createdAt time.Time, halfLife time.Duration) float64 {
	tau := float64(halfLife.Milliseconds())

	type term struct {
		weight   float64
		exponent float64
	}
	var terms []term
	maxExp := math.Inf(-1)
	for _, a := range actions {
		w, ok := WeightFor(a.Kind)
		if !ok || w <= 0 {
			continue
		}
		e := float64(a.At.UnixMilli()) / tau
		if e > maxExp {
			maxExp = e
		}
		terms = append(terms, term{weight: w, exponent: e})
	}

	if len(terms) == 0 {
		return float64(createdAt.UnixMilli())/tau - 2
	}

	sum := 0.0
	for _, t := range terms {
		sum += t.weight * math.Exp2(t.exponent-maxExp)
	}
	return maxExp + math.Log2(sum)
}

// LastActive returns the timestamp of the most recent scorable action, or
// nil when the card has none.
func LastActive(actions []Action) *time.Time {
	var latest *time.Time
	for i := range actions {
		if _, ok := WeightFor(actions[i].Kind); !ok {
			continue
		}
		if latest == nil || actions[i].At.After(*latest) {
			t := actions[i].At
			latest = &t
		}
	}
	return latest
}
