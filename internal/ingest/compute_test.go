package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/payload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestComputeRPE(t *testing.T) {
	testCases := []struct {
		name string
		rir  payload.Value
		rpe  payload.Value
		want any
	}{
		{name: "nothing", rir: payload.Missing(), rpe: payload.Missing(), want: nil},
		{name: "nulls", rir: payload.Of(nil), rpe: payload.Of(nil), want: nil},
		{name: "explicit rpe", rir: payload.Missing(), rpe: payload.Of(5.0), want: 5.0},
		{name: "explicit rpe wins over rir", rir: payload.Of(1.0), rpe: payload.Of(5.0), want: 5.0},
		{name: "explicit int rpe keeps its type", rir: payload.Missing(), rpe: payload.Of(7), want: 7},
		{name: "explicit numeric string kept as sent", rir: payload.Of(1.0), rpe: payload.Of("8"), want: "8"},
		{name: "non numeric explicit rpe kept as sent", rir: payload.Of(2.0), rpe: payload.Of("hard"), want: "hard"},
		{name: "derived from rir", rir: payload.Of(3.0), rpe: payload.Missing(), want: 7.0},
		{name: "derived from null rpe", rir: payload.Of(2), rpe: payload.Of(nil), want: 8.0},
		{name: "derived from numeric string", rir: payload.Of("4"), rpe: payload.Missing(), want: 6.0},
		{name: "floor at one", rir: payload.Of(12.0), rpe: payload.Missing(), want: 1.0},
		{name: "bad rir", rir: payload.Of("bad"), rpe: payload.Missing(), want: nil},
		{name: "bool rir", rir: payload.Of(true), rpe: payload.Missing(), want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ingest.ComputeRPE(tc.rir, tc.rpe))
		})
	}
}

func TestComputeVolume(t *testing.T) {
	testCases := []struct {
		name    string
		reps    payload.Value
		weight  payload.Value
		want    float64
		wantNil bool
	}{
		{name: "product", reps: payload.Of(10.0), weight: payload.Of(5.0), want: 50},
		{name: "ints", reps: payload.Of(3), weight: payload.Of(102.5), want: 307.5},
		{name: "numeric strings", reps: payload.Of("8"), weight: payload.Of("20"), want: 160},
		{name: "zero weight", reps: payload.Of(12.0), weight: payload.Of(0.0), want: 0},
		{name: "missing reps", reps: payload.Missing(), weight: payload.Of(5.0), wantNil: true},
		{name: "null reps", reps: payload.Of(nil), weight: payload.Of(5.0), wantNil: true},
		{name: "missing weight", reps: payload.Of(5.0), weight: payload.Missing(), wantNil: true},
		{name: "bad reps", reps: payload.Of("x"), weight: payload.Of(5.0), wantNil: true},
		{name: "bad weight", reps: payload.Of(5.0), weight: payload.Of(map[string]any{}), wantNil: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ingest.ComputeVolume(tc.reps, tc.weight)
			if tc.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestRecordDocumentRoundTrip(t *testing.T) {
	rec := ingest.Record{
		ExerciseID:        "bench",
		Weight:            105,
		Reps:              3,
		RIR:               1.0,
		RPE:               9.0,
		WorkoutID:         "w1",
		WorkoutExerciseID: "0",
		SetID:             "set_0_1",
		CreatedAt:         "2024-01-01T00:00:00Z",
		UpdatedAt:         "2024-01-02T00:00:00Z",
	}
	assert.Equal(t, rec, ingest.RecordFromDocument(rec.Document()))

	partial := ingest.RecordFromDocument(map[string]any{"weight": "heavy"})
	assert.Equal(t, 0.0, partial.Weight)
	assert.Equal(t, 0.0, partial.Reps)
	assert.Nil(t, partial.CreatedAt)
}
