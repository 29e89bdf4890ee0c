package workouts

import (
	"github.com/2beens/fitnesstracker/internal/ingest"
)

type RecomputeOutcome struct {
	Index      int      `json:"index"`
	ExerciseID string   `json:"exerciseId"`
	Sets       int      `json:"sets"`
	Written    bool     `json:"written"`
	Weight     *float64 `json:"weight,omitempty"`
	Reps       *float64 `json:"reps,omitempty"`
	SetID      string   `json:"setId,omitempty"`
	FetchError string   `json:"fetchError,omitempty"`
	WriteError string   `json:"writeError,omitempty"`
}

type RecomputeSummary struct {
	WorkoutID  string             `json:"workoutId"`
	Exercises  int                `json:"exercises"`
	PRsWritten int                `json:"prsWritten"`
	Outcomes   []RecomputeOutcome `json:"outcomes"`
}

// Summarize reports the outcome of a recomputation pass over a workout.
func Summarize(workoutID string, result ingest.Result) RecomputeSummary {
	summary := RecomputeSummary{
		WorkoutID:  workoutID,
		Exercises:  len(result.Exercises),
		PRsWritten: result.Written(),
		Outcomes:   make([]RecomputeOutcome, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		outcome := RecomputeOutcome{
			Index:      o.Index,
			ExerciseID: o.ExerciseID,
			Sets:       o.SetCount,
			Written:    o.Written,
		}
		if o.Record != nil {
			weight, reps := o.Record.Weight, o.Record.Reps
			outcome.Weight = &weight
			outcome.Reps = &reps
			outcome.SetID = o.Record.SetID
		}
		if o.FetchErr != nil {
			outcome.FetchError = o.FetchErr.Error()
		}
		if o.WriteErr != nil {
			outcome.WriteError = o.WriteErr.Error()
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary
}
