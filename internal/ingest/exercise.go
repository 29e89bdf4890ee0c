package ingest

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/payload"
	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
)

// ExerciseOutcome reports what happened to the PR of one processed exercise.
type ExerciseOutcome struct {
	// Index is the position of the exercise in the submitted list.
	Index      int
	ExerciseID string
	SetCount   int
	FetchErr   error
	// Record is the PR built from the winning set, nil when no set won or
	// the write was suppressed.
	Record   *Record
	Written  bool
	WriteErr error
}

// ExerciseProcessor enriches the sets of one exercise and keeps its PR up to
// date. It reads the PR once and writes it at most once per call.
type ExerciseProcessor struct {
	prs     prStore
	metrics *metrics.Manager
	newID   func() string
}

func NewExerciseProcessor(prs prStore, metricsManager *metrics.Manager) *ExerciseProcessor {
	return &ExerciseProcessor{
		prs:     prs,
		metrics: metricsManager,
		newID:   uuid.NewString,
	}
}

// WithIDGenerator replaces the generator of missing exercise ids.
func (p *ExerciseProcessor) WithIDGenerator(newID func() string) *ExerciseProcessor {
	p.newID = newID
	return p
}

// Process returns a copy of exercise with ids filled in and its sets enriched
// with rpe and volume. Non-object sets are dropped. The input is not modified.
func (p *ExerciseProcessor) Process(
	ctx context.Context,
	userID, workoutID string,
	index int,
	exercise map[string]any,
) (map[string]any, ExerciseOutcome) {
	out := maps.Clone(exercise)
	if out == nil {
		out = map[string]any{}
	}
	if !payload.Field(out, "id").Truthy() {
		out["id"] = p.newID()
	}

	outcome := ExerciseOutcome{
		Index:      index,
		ExerciseID: bucketID(out),
	}

	var existing FetchResult
	if outcome.ExerciseID != "" {
		fetched, err := p.prs.FetchPR(ctx, userID, outcome.ExerciseID)
		if err != nil {
			log.Errorf("failed to fetch pr [%s] for user [%s], pr writes disabled for this exercise: %s", outcome.ExerciseID, userID, err)
			p.countFetchFailure()
			outcome.FetchErr = err
		} else {
			existing = fetched
		}
	}

	// a failed fetch leaves the baseline at 0/0
	tracker := NewTracker(existing.Record.Weight, existing.Record.Reps)

	rawSets, _ := payload.Field(exercise, "sets").AsList()
	enriched := make([]any, 0, len(rawSets))
	for setIndex, rawSet := range payload.Maps(rawSets) {
		set := enrichSet(index, setIndex, rawSet)
		tracker.Offer(set)
		enriched = append(enriched, set)
	}
	out["sets"] = enriched
	outcome.SetCount = len(enriched)

	winner, weight, reps, ok := tracker.Best()
	if !ok || outcome.ExerciseID == "" || outcome.FetchErr != nil {
		return out, outcome
	}

	record := Record{
		ExerciseID:        outcome.ExerciseID,
		Weight:            weight,
		Reps:              reps,
		RIR:               winner["rir"],
		RPE:               winner["rpe"],
		WorkoutID:         workoutID,
		WorkoutExerciseID: strconv.Itoa(index),
		SetID:             payload.Field(winner, "id").StringOr(""),
		CreatedAt:         docstore.ServerTimestamp,
		UpdatedAt:         docstore.ServerTimestamp,
	}
	if existing.Exists && payload.Of(existing.Record.CreatedAt).Truthy() {
		record.CreatedAt = existing.Record.CreatedAt
	}
	outcome.Record = &record

	if err := p.prs.WritePR(ctx, userID, outcome.ExerciseID, record); err != nil {
		log.Errorf("failed to write pr [%s] for user [%s]: %s", outcome.ExerciseID, userID, err)
		p.countWriteFailure()
		outcome.WriteErr = err
		return out, outcome
	}

	log.Debugf("new pr for user [%s], exercise [%s]: %.2f x %.0f", userID, outcome.ExerciseID, weight, reps)
	outcome.Written = true
	if p.metrics != nil {
		p.metrics.CounterPRWrites.Inc()
	}

	return out, outcome
}

// bucketID picks the PR bucket of an exercise: exerciseId when set, else id.
func bucketID(exercise map[string]any) string {
	if v := payload.Field(exercise, "exerciseId"); v.Truthy() {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return payload.Field(exercise, "id").StringOr("")
}

func enrichSet(exerciseIndex, setIndex int, raw map[string]any) map[string]any {
	set := maps.Clone(raw)
	if set == nil {
		set = map[string]any{}
	}
	if !payload.Field(set, "id").Truthy() {
		set["id"] = fmt.Sprintf("set_%d_%d", exerciseIndex, setIndex)
	}

	volume := ComputeVolume(payload.Field(raw, "reps"), payload.Field(raw, "weight"))
	set["rpe"] = ComputeRPE(payload.Field(raw, "rir"), payload.Field(raw, "rpe"))
	set["volume"] = optional(volume)

	return set
}

func (p *ExerciseProcessor) countFetchFailure() {
	if p.metrics != nil {
		p.metrics.CounterPRFetchFailures.Inc()
	}
}

func (p *ExerciseProcessor) countWriteFailure() {
	if p.metrics != nil {
		p.metrics.CounterPRWriteFailures.Inc()
	}
}
