// Package ingest enriches submitted workout exercises and keeps one personal
// record (PR) per user and exercise.
//
// Processing is synchronous and best effort: store failures are logged and
// reported in the Result, they never fail the ingestion. Two concurrent
// ingestions for the same user and exercise race, the last PR write wins.
package ingest

import (
	"context"
	"maps"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/payload"
	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

type Result struct {
	// Exercises are the enriched exercises, in submission order.
	Exercises []any
	Outcomes  []ExerciseOutcome
}

// Written returns the number of PRs written.
func (r Result) Written() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Written {
			n++
		}
	}
	return n
}

type Processor struct {
	exercises *ExerciseProcessor
	metrics   *metrics.Manager
}

func NewProcessor(prs prStore, metricsManager *metrics.Manager) *Processor {
	return &Processor{
		exercises: NewExerciseProcessor(prs, metricsManager),
		metrics:   metricsManager,
	}
}

// WithIDGenerator replaces the generator of missing exercise ids.
func (p *Processor) WithIDGenerator(newID func() string) *Processor {
	p.exercises.WithIDGenerator(newID)
	return p
}

// Process enriches every object in exercises. Anything other than a list
// yields an empty result, and non-object entries are skipped while the
// remaining entries keep their original index.
func (p *Processor) Process(ctx context.Context, userID, workoutID string, exercises any) Result {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("workout.id", workoutID),
	)

	list, ok := exercises.([]any)
	if !ok {
		if exercises != nil {
			log.Warnf("ingest workout [%s]: exercises is not a list, got %s", workoutID, payload.Of(exercises).Kind())
		}
		return Result{Exercises: []any{}}
	}

	result := Result{
		Exercises: make([]any, 0, len(list)),
	}
	setCount := 0
	for index, exercise := range payload.Maps(list) {
		enriched, outcome := p.processExercise(ctx, userID, workoutID, index, exercise)
		result.Exercises = append(result.Exercises, enriched)
		result.Outcomes = append(result.Outcomes, outcome)
		setCount += outcome.SetCount
	}

	if p.metrics != nil {
		p.metrics.HistogramIngestedSets.Observe(float64(setCount))
	}
	span.SetAttributes(
		attribute.Int("exercises", len(result.Exercises)),
		attribute.Int("sets", setCount),
		attribute.Int("prs.written", result.Written()),
	)

	return result
}

// processExercise keeps a panic in one exercise from failing the whole
// workout; the exercise is then passed through as submitted.
func (p *Processor) processExercise(
	ctx context.Context,
	userID, workoutID string,
	index int,
	exercise map[string]any,
) (enriched map[string]any, outcome ExerciseOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("ingest workout [%s], exercise %d panicked: %v", workoutID, index, r)
			enriched = maps.Clone(exercise)
			outcome = ExerciseOutcome{Index: index}
		}
	}()
	return p.exercises.Process(ctx, userID, workoutID, index, exercise)
}
