package ingest

import (
	"github.com/2beens/fitnesstracker/internal/payload"
)

// Record is the personal record kept per user and exercise.
type Record struct {
	ExerciseID        string  `json:"exerciseId"`
	Weight            float64 `json:"weight"`
	Reps              float64 `json:"reps"`
	RIR               any     `json:"rir"`
	RPE               any     `json:"rpe"`
	WorkoutID         string  `json:"workoutId"`
	WorkoutExerciseID string  `json:"workoutExerciseId"`
	SetID             string  `json:"setId"`
	// CreatedAt and UpdatedAt hold whatever the store returned, or
	// docstore.ServerTimestamp on the way in.
	CreatedAt any `json:"createdAt"`
	UpdatedAt any `json:"updatedAt"`
}

func (r Record) Document() map[string]any {
	return map[string]any{
		"exerciseId":        r.ExerciseID,
		"weight":            r.Weight,
		"reps":              r.Reps,
		"rir":               r.RIR,
		"rpe":               r.RPE,
		"workoutId":         r.WorkoutID,
		"workoutExerciseId": r.WorkoutExerciseID,
		"setId":             r.SetID,
		"createdAt":         r.CreatedAt,
		"updatedAt":         r.UpdatedAt,
	}
}

// RecordFromDocument reads a stored PR. Missing or non-numeric weight and reps
// read as zero.
func RecordFromDocument(data map[string]any) Record {
	return Record{
		ExerciseID:        payload.Field(data, "exerciseId").StringOr(""),
		Weight:            payload.Field(data, "weight").NumberOr(0),
		Reps:              payload.Field(data, "reps").NumberOr(0),
		RIR:               data["rir"],
		RPE:               data["rpe"],
		WorkoutID:         payload.Field(data, "workoutId").StringOr(""),
		WorkoutExerciseID: payload.Field(data, "workoutExerciseId").StringOr(""),
		SetID:             payload.Field(data, "setId").StringOr(""),
		CreatedAt:         data["createdAt"],
		UpdatedAt:         data["updatedAt"],
	}
}
