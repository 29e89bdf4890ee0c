package ingest

import (
	"github.com/2beens/fitnesstracker/internal/payload"
)

// Tracker keeps the running best (weight, reps) over the sets of one
// exercise. Weight is compared first, reps break ties, and a set flagged
// isPR always wins.
type Tracker struct {
	bestWeight float64
	bestReps   float64
	candidate  map[string]any
}

// NewTracker seeds the running best, usually from the stored PR.
func NewTracker(bestWeight, bestReps float64) *Tracker {
	return &Tracker{
		bestWeight: bestWeight,
		bestReps:   bestReps,
	}
}

// Offer compares set against the running best and makes it the candidate when
// it is better. Missing or non-numeric weight and reps count as zero.
func (t *Tracker) Offer(set map[string]any) bool {
	weight := payload.Field(set, "weight").NumberOr(0)
	reps := payload.Field(set, "reps").NumberOr(0)

	better := payload.Field(set, "isPR").ParseBool(false) ||
		weight > t.bestWeight ||
		(weight == t.bestWeight && reps > t.bestReps)
	if !better {
		return false
	}

	t.bestWeight = weight
	t.bestReps = reps
	t.candidate = set
	return true
}

// Best returns the last set that beat the running best, with the weight and
// reps it was judged on.
func (t *Tracker) Best() (set map[string]any, weight, reps float64, ok bool) {
	if t.candidate == nil {
		return nil, 0, 0, false
	}
	return t.candidate, t.bestWeight, t.bestReps, true
}
