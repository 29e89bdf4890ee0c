package ingest

import (
	"math"

	"github.com/2beens/fitnesstracker/internal/payload"
)

// ComputeRPE returns an explicit rpe exactly as sent, whatever its type.
// Otherwise it derives max(1, 10 - rir) as a float64, or nil when rir is
// absent or not a number.
func ComputeRPE(rir, rpe payload.Value) any {
	if rpe.IsSet() {
		return rpe.Raw()
	}
	if !rir.IsSet() {
		return nil
	}
	n, ok := rir.AsNumber()
	if !ok {
		return nil
	}
	return math.Max(1, 10-n)
}

// ComputeVolume returns reps * weight, nil when either is absent or not a number.
func ComputeVolume(reps, weight payload.Value) *float64 {
	if !reps.IsSet() || !weight.IsSet() {
		return nil
	}
	r, ok := reps.AsNumber()
	if !ok {
		return nil
	}
	w, ok := weight.AsNumber()
	if !ok {
		return nil
	}
	volume := r * w
	return &volume
}

// optional turns a computed metric into a JSON value, null for nil.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
