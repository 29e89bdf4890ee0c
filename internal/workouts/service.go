package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/payload"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test
type workoutsRepo interface {
	NewID() string

	CreateExercise(ctx context.Context, userID string, data map[string]any) (string, error)
	ListExercises(ctx context.Context, userID string, includeArchived bool) ([]map[string]any, error)
	GetExercise(ctx context.Context, userID, exerciseID string) (map[string]any, error)
	UpdateExercise(ctx context.Context, userID, exerciseID string, data map[string]any) error
	DeleteExercise(ctx context.Context, userID, exerciseID string) error

	SaveWorkout(ctx context.Context, userID, workoutID string, data map[string]any) error
	StartWorkout(ctx context.Context, userID, workoutID string, workout map[string]any, items []map[string]any) error
	ListWorkouts(ctx context.Context, userID string, params ListParams) ([]map[string]any, error)
	GetWorkout(ctx context.Context, userID, workoutID string) (map[string]any, error)
	UpdateWorkout(ctx context.Context, userID, workoutID string, data map[string]any) error
	DeleteWorkout(ctx context.Context, userID, workoutID string) error
	ListItems(ctx context.Context, userID, workoutID string, includeSets bool) ([]map[string]any, error)
	GetItem(ctx context.Context, userID, workoutID, itemID string, includeSets bool) (map[string]any, error)

	CreateTemplate(ctx context.Context, data map[string]any) (string, error)
	ListTemplates(ctx context.Context) ([]map[string]any, error)
}

type templateSource interface {
	GetTemplate(ctx context.Context, templateID string) (map[string]any, error)
}

type exercisesProcessor interface {
	Process(ctx context.Context, userID, workoutID string, exercises any) ingest.Result
}

// Service holds the workout operations that do more than a single store call.
type Service struct {
	repo      workoutsRepo
	templates templateSource
	processor exercisesProcessor
	now       func() time.Time
}

func NewService(repo workoutsRepo, templates templateSource, processor exercisesProcessor) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		processor: processor,
		now:       time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SaveWorkout stores a new workout with its exercises run through ingestion,
// which also updates the user's PRs.
func (s *Service) SaveWorkout(ctx context.Context, userID string, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workoutID := s.repo.NewID()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	result := s.processor.Process(ctx, userID, workoutID, valueOr(data, "exercises", []any{}))
	workout := map[string]any{
		"date":       workoutDate(data, s.now()),
		"notes":      valueOr(data, "notes", ""),
		"timezone":   data["timezone"],
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
		"workout_id": data["workout_id"],
		"exercises":  result.Exercises,
	}

	if err := s.repo.SaveWorkout(ctx, userID, workoutID, workout); err != nil {
		return "", err
	}
	log.Debugf("workout %s saved for user %s, %d PRs written", workoutID, userID, result.Written())
	return workoutID, nil
}

// StartWorkout creates an empty workout from a template, with one item per
// template exercise.
func (s *Service) StartWorkout(ctx context.Context, userID, templateID string, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("template.id", templateID))

	template, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return "", err
	}

	items, err := s.templateItems(ctx, userID, template["exercises"])
	if err != nil {
		return "", err
	}

	workoutID := s.repo.NewID()
	workout := map[string]any{
		"date":       workoutDate(data, s.now()),
		"notes":      valueOr(data, "notes", ""),
		"timezone":   data["timezone"],
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
		"workout_id": templateID,
	}
	if err := s.repo.StartWorkout(ctx, userID, workoutID, workout, items); err != nil {
		return "", err
	}
	return workoutID, nil
}

func (s *Service) templateItems(ctx context.Context, userID string, exercises any) ([]map[string]any, error) {
	list, ok := exercises.([]any)
	if !ok {
		return nil, nil
	}

	items := make([]map[string]any, 0, len(list))
	for i, raw := range list {
		entry := parseTemplateEntry(i, raw)

		if entry.name == "" && entry.exerciseID != "" {
			exercise, err := s.repo.GetExercise(ctx, userID, entry.exerciseID)
			switch {
			case err == nil:
				entry.name = payload.Field(exercise, "name").StringOr("")
			case errors.Is(err, ErrExerciseNotFound), errors.Is(err, docstore.ErrInvalidPath):
			default:
				return nil, fmt.Errorf("lookup exercise %s: %w", entry.exerciseID, err)
			}
		}

		if entry.name == "" && entry.exerciseID == "" {
			continue
		}
		items = append(items, entry.item())
	}
	return items, nil
}

// UpdateWorkout merges data into the workout, re-running ingestion when the
// update carries exercises.
func (s *Service) UpdateWorkout(ctx context.Context, userID, workoutID string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	update := payload.Clone(data)
	if exercises, ok := update["exercises"]; ok {
		update["exercises"] = s.processor.Process(ctx, userID, workoutID, exercises).Exercises
	}
	update["updatedAt"] = docstore.ServerTimestamp

	return s.repo.UpdateWorkout(ctx, userID, workoutID, update)
}

// RecomputePRs re-runs ingestion over the stored exercises of a workout and
// stores the re-enriched exercises back.
func (s *Service) RecomputePRs(ctx context.Context, userID, workoutID string) (_ ingest.Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.recompute_prs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("workout.id", workoutID),
	)

	workout, err := s.repo.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		return ingest.Result{}, err
	}

	result := s.processor.Process(ctx, userID, workoutID, workout["exercises"])
	span.SetAttributes(attribute.Int("prs.written", result.Written()))

	if err := s.repo.UpdateWorkout(ctx, userID, workoutID, map[string]any{
		"exercises": result.Exercises,
		"updatedAt": docstore.ServerTimestamp,
	}); err != nil {
		return ingest.Result{}, err
	}
	return result, nil
}
