package workouts

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrTemplateNotFound = errors.New("workout template not found")
	ErrItemNotFound     = errors.New("workout item not found")
)

const templatesCollection = "workouts"

type ListParams struct {
	// StartDate and EndDate are inclusive YYYY-MM-DD bounds, ignored when empty.
	StartDate string
	EndDate   string
	// Limit <= 0 means no limit.
	Limit int
}

// Repo stores the exercise catalog, workouts with their items and sets, and
// the global workout templates.
type Repo struct {
	store docstore.Store
}

func NewRepo(store docstore.Store) *Repo {
	return &Repo{
		store: store,
	}
}

func exercisesPath(userID string) string {
	return docstore.Collection("users", userID, "exercises")
}

func workoutsPath(userID string) string {
	return docstore.Collection("users", userID, "workouts")
}

func itemsPath(userID, workoutID string) string {
	return docstore.Collection("users", userID, "workouts", workoutID, "items")
}

func (r *Repo) NewID() string {
	return docstore.NewID()
}

func (r *Repo) CreateExercise(ctx context.Context, userID string, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	id := docstore.NewID()
	if err := r.store.Set(ctx, docstore.Doc(exercisesPath(userID), id), data); err != nil {
		return "", fmt.Errorf("set exercise: %w", err)
	}
	return id, nil
}

func (r *Repo) ListExercises(ctx context.Context, userID string, includeArchived bool) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list_exercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Bool("archived", includeArchived),
	)

	q := docstore.Query{Collection: exercisesPath(userID)}
	if !includeArchived {
		q = q.Where("archived", docstore.OpEqual, false)
	}
	return r.query(ctx, q)
}

func (r *Repo) GetExercise(ctx context.Context, userID, exerciseID string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.get(ctx, docstore.Doc(exercisesPath(userID), exerciseID), ErrExerciseNotFound)
}

func (r *Repo) UpdateExercise(ctx context.Context, userID, exerciseID string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.update(ctx, docstore.Doc(exercisesPath(userID), exerciseID), data, ErrExerciseNotFound)
}

func (r *Repo) DeleteExercise(ctx context.Context, userID, exerciseID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete_exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.store.Delete(ctx, docstore.Doc(exercisesPath(userID), exerciseID)); err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	return nil
}

// SaveWorkout replaces the workout document.
func (r *Repo) SaveWorkout(ctx context.Context, userID, workoutID string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("workout.id", workoutID),
	)

	if err := r.store.Set(ctx, docstore.Doc(workoutsPath(userID), workoutID), data); err != nil {
		return fmt.Errorf("set workout: %w", err)
	}
	return nil
}

// StartWorkout writes the workout and its items in one batch.
func (r *Repo) StartWorkout(ctx context.Context, userID, workoutID string, workout map[string]any, items []map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("workout.id", workoutID),
		attribute.Int("items", len(items)),
	)

	writes := make([]docstore.Write, 0, len(items)+1)
	writes = append(writes, docstore.Write{
		Path: docstore.Doc(workoutsPath(userID), workoutID),
		Data: workout,
	})
	for _, item := range items {
		writes = append(writes, docstore.Write{
			Path: docstore.Doc(itemsPath(userID, workoutID), docstore.NewID()),
			Data: item,
		})
	}

	if err := r.store.Batch(ctx, writes); err != nil {
		return fmt.Errorf("batch start workout: %w", err)
	}
	return nil
}

func (r *Repo) ListWorkouts(ctx context.Context, userID string, params ListParams) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("start", params.StartDate),
		attribute.String("end", params.EndDate),
		attribute.Int("limit", params.Limit),
	)

	q := docstore.Query{
		Collection: workoutsPath(userID),
		OrderBy:    "date",
		Descending: true,
		Limit:      params.Limit,
	}
	if params.StartDate != "" {
		q = q.Where("date", docstore.OpGreaterOrEqual, params.StartDate)
	}
	if params.EndDate != "" {
		q = q.Where("date", docstore.OpLessOrEqual, params.EndDate)
	}
	return r.query(ctx, q)
}

func (r *Repo) GetWorkout(ctx context.Context, userID, workoutID string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.get(ctx, docstore.Doc(workoutsPath(userID), workoutID), ErrWorkoutNotFound)
}

func (r *Repo) UpdateWorkout(ctx context.Context, userID, workoutID string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.update(ctx, docstore.Doc(workoutsPath(userID), workoutID), data, ErrWorkoutNotFound)
}

func (r *Repo) DeleteWorkout(ctx context.Context, userID, workoutID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := r.store.Delete(ctx, docstore.Doc(workoutsPath(userID), workoutID)); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return nil
}

// ListItems returns the items of a workout by their order, each with its sets
// attached when includeSets is set.
func (r *Repo) ListItems(ctx context.Context, userID, workoutID string, includeSets bool) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list_items")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: itemsPath(userID, workoutID),
	})
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	sortItems(snaps)

	items := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		item, err := r.withSets(ctx, snap, includeSets)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repo) GetItem(ctx context.Context, userID, workoutID, itemID string, includeSets bool) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get_item")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snap, err := r.store.Get(ctx, docstore.Doc(itemsPath(userID, workoutID), itemID))
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if !snap.Exists {
		return nil, ErrItemNotFound
	}
	return r.withSets(ctx, snap, includeSets)
}

func (r *Repo) withSets(ctx context.Context, item *docstore.Snapshot, includeSets bool) (map[string]any, error) {
	data := item.DataWithID()
	if !includeSets {
		return data, nil
	}

	sets, err := r.query(ctx, docstore.Query{
		Collection: docstore.Collection(item.Path, "sets"),
		OrderBy:    "createdAt",
	})
	if err != nil {
		return nil, err
	}
	setsList := make([]any, 0, len(sets))
	for _, s := range sets {
		setsList = append(setsList, s)
	}
	data["sets"] = setsList
	return data, nil
}

func (r *Repo) CreateTemplate(ctx context.Context, data map[string]any) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	id := docstore.NewID()
	if err := r.store.Set(ctx, docstore.Doc(templatesCollection, id), data); err != nil {
		return "", fmt.Errorf("set template: %w", err)
	}
	return id, nil
}

func (r *Repo) GetTemplate(ctx context.Context, templateID string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.get(ctx, docstore.Doc(templatesCollection, templateID), ErrTemplateNotFound)
}

func (r *Repo) ListTemplates(ctx context.Context) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.templates.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.query(ctx, docstore.Query{Collection: templatesCollection})
}

func (r *Repo) get(ctx context.Context, path string, notFound error) (map[string]any, error) {
	snap, err := r.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if !snap.Exists {
		return nil, notFound
	}
	return snap.DataWithID(), nil
}

func (r *Repo) update(ctx context.Context, path string, data map[string]any, notFound error) error {
	if err := r.store.Update(ctx, path, data); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return notFound
		}
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (r *Repo) query(ctx context.Context, q docstore.Query) ([]map[string]any, error) {
	snaps, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	docs := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snap.DataWithID())
	}
	return docs, nil
}
