package scoring

// Action kinds that contribute to a card's activity score.
const (
	KindCreated   = "created"
	KindCommented = "commented"
	KindBoosted   = "boosted"
	KindAssigned  = "assigned"
	KindStaged    = "staged"
	KindReopened  = "reopened"
)

// eventWeights maps an action kind to its scoring weight. A comment is a
// stronger signal of interest than a boost; assignments and stagings sit
// between the two.
var eventWeights = map[string]float64{
	KindCreated:   1,
	KindCommented: 4,
	KindBoosted:   2,
	KindAssigned:  3,
	KindStaged:    3,
	KindReopened:  2,
}

// WeightFor returns the scoring weight for an action kind. Unknown kinds
// report ok=false and weigh nothing: the write path that captured the
// event must never fail on an anomalous kind, so callers log and move on.
func WeightFor(kind string) (float64, bool) {
	w, ok := eventWeights[kind]
	return w, ok
}
