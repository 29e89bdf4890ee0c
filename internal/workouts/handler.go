package workouts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/payload"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
	"github.com/2beens/fitnesstracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=prs_mocks_test.go -package=workouts_test
type prsReader interface {
	ListPRs(ctx context.Context, userID string) ([]map[string]any, error)
	GetPR(ctx context.Context, userID, exerciseID string) (map[string]any, error)
}

type Handler struct {
	repo      workoutsRepo
	service   *Service
	templates templateSource
	prs       prsReader
}

func NewHandler(repo workoutsRepo, service *Service, templates templateSource, prs prsReader) *Handler {
	return &Handler{
		repo:      repo,
		service:   service,
		templates: templates,
		prs:       prs,
	}
}

func (handler *Handler) HandleCreateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.create")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	data := decodeOrEmpty(r)
	exercise, ok := newExercise(data)
	if !ok {
		pkg.WriteAPIError(w, pkg.APIErrInvalidRequest, "name is required")
		return
	}

	id, err := handler.repo.CreateExercise(ctx, userID, exercise)
	if err != nil {
		log.Errorf("could not create exercise for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not handle exercises for user %s", userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: "Exercise created", ID: id}, http.StatusOK)
}

func (handler *Handler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	includeArchived := payload.ParseBoolString(r.URL.Query().Get("includeArchived"), false)

	exercises, err := handler.repo.ListExercises(ctx, userID, includeArchived)
	if err != nil {
		log.Errorf("could not list exercises for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not handle exercises for user %s", userID))
		return
	}

	pkg.WriteJSON(w, exercises, http.StatusOK)
}

// exercise resolves the exercise named by the route, writing the error
// response and returning ok=false when it cannot.
func (handler *Handler) exercise(ctx context.Context, w http.ResponseWriter, userID, exerciseID string) (map[string]any, bool) {
	exercise, err := handler.repo.GetExercise(ctx, userID, exerciseID)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrExerciseNotFound, fmt.Sprintf("Exercise %s not found for user %s", exerciseID, userID))
			return nil, false
		}
		log.Errorf("could not get exercise %s for user %s: %s", exerciseID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process exercise %s for user %s", exerciseID, userID))
		return nil, false
	}
	return exercise, true
}

func (handler *Handler) HandleGetExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	vars := mux.Vars(r)
	exercise, ok := handler.exercise(ctx, w, vars["userId"], vars["exerciseId"])
	if !ok {
		return
	}
	pkg.WriteJSON(w, exercise, http.StatusOK)
}

func (handler *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	vars := mux.Vars(r)
	userID, exerciseID := vars["userId"], vars["exerciseId"]
	if _, ok := handler.exercise(ctx, w, userID, exerciseID); !ok {
		return
	}

	data := decodeOrEmpty(r)
	if len(data) == 0 {
		pkg.WriteAPIError(w, pkg.APIErrNoData, "No update data provided.")
		return
	}
	data["updatedAt"] = docstore.ServerTimestamp

	if err := handler.repo.UpdateExercise(ctx, userID, exerciseID, data); err != nil {
		log.Errorf("could not update exercise %s for user %s: %s", exerciseID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process exercise %s for user %s", exerciseID, userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("Exercise %s updated", exerciseID)}, http.StatusOK)
}

func (handler *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	vars := mux.Vars(r)
	userID, exerciseID := vars["userId"], vars["exerciseId"]
	if _, ok := handler.exercise(ctx, w, userID, exerciseID); !ok {
		return
	}

	if err := handler.repo.DeleteExercise(ctx, userID, exerciseID); err != nil {
		log.Errorf("could not delete exercise %s for user %s: %s", exerciseID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process exercise %s for user %s", exerciseID, userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("Exercise %s deleted", exerciseID)}, http.StatusOK)
}

func (handler *Handler) HandleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.save")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	id, err := handler.service.SaveWorkout(ctx, userID, decodeOrEmpty(r))
	if err != nil {
		log.Errorf("could not save workout for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workouts for user %s", userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: "Workout saved", ID: id}, http.StatusOK)
}

func (handler *Handler) HandleListWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	query := r.URL.Query()
	params := ListParams{
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
		Limit:     parseLimit(query.Get("limit")),
	}

	workouts, err := handler.repo.ListWorkouts(ctx, userID, params)
	if err != nil {
		log.Errorf("could not list workouts for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workouts for user %s", userID))
		return
	}

	pkg.WriteJSON(w, workouts, http.StatusOK)
}

func (handler *Handler) HandleStartWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.start")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	data := decodeOrEmpty(r)
	templateID := stringify(firstTruthy(data, "workout_id"))
	if templateID == "" {
		pkg.WriteAPIError(w, pkg.APIErrInvalidRequest, "workout_id is required")
		return
	}

	id, err := handler.service.StartWorkout(ctx, userID, templateID, data)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrWorkoutNotFound, fmt.Sprintf("Workout %s not found", templateID))
			return
		}
		log.Errorf("could not start workout for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not start workout for user %s", userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: "Workout started", ID: id}, http.StatusOK)
}

// workout resolves the workout named by the route, writing the error
// response and returning ok=false when it cannot.
func (handler *Handler) workout(ctx context.Context, w http.ResponseWriter, userID, workoutID string) (map[string]any, bool) {
	workout, err := handler.repo.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrWorkoutNotFound, fmt.Sprintf("Workout %s not found for user %s", workoutID, userID))
			return nil, false
		}
		log.Errorf("could not get workout %s for user %s: %s", workoutID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workout %s for user %s", workoutID, userID))
		return nil, false
	}
	return workout, true
}

// HandleGetWorkout attaches the workout items when includeItems is set, and
// their sets when includeSets is set too.
func (handler *Handler) HandleGetWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID := vars["userId"], vars["workoutId"]
	workout, ok := handler.workout(ctx, w, userID, workoutID)
	if !ok {
		return
	}

	query := r.URL.Query()
	if payload.ParseBoolString(query.Get("includeItems"), false) {
		includeSets := payload.ParseBoolString(query.Get("includeSets"), false)
		items, err := handler.repo.ListItems(ctx, userID, workoutID, includeSets)
		if err != nil {
			log.Errorf("could not list items of workout %s: %s", workoutID, err)
			pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workout %s for user %s", workoutID, userID))
			return
		}
		workout["items"] = items
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID := vars["userId"], vars["workoutId"]
	if _, ok := handler.workout(ctx, w, userID, workoutID); !ok {
		return
	}

	data := decodeOrEmpty(r)
	if len(data) == 0 {
		pkg.WriteAPIError(w, pkg.APIErrNoData, "No update data provided.")
		return
	}

	if err := handler.service.UpdateWorkout(ctx, userID, workoutID, data); err != nil {
		log.Errorf("could not update workout %s for user %s: %s", workoutID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workout %s for user %s", workoutID, userID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("Workout %s updated", workoutID)}, http.StatusOK)
}

func (handler *Handler) HandleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID := vars["userId"], vars["workoutId"]
	if _, ok := handler.workout(ctx, w, userID, workoutID); !ok {
		return
	}

	if err := handler.repo.DeleteWorkout(ctx, userID, workoutID); err != nil {
		log.Errorf("could not delete workout %s: %s", workoutID, err)
		pkg.WriteAPIError(w, pkg.APIErrStoreDeleteFailed, fmt.Sprintf("Could not delete workout %s", workoutID))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("Workout %s deleted", workoutID)}, http.StatusOK)
}

func (handler *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list_items")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID := vars["userId"], vars["workoutId"]
	if _, ok := handler.workout(ctx, w, userID, workoutID); !ok {
		return
	}

	includeSets := payload.ParseBoolString(r.URL.Query().Get("includeSets"), false)
	items, err := handler.repo.ListItems(ctx, userID, workoutID, includeSets)
	if err != nil {
		log.Errorf("could not list items of workout %s: %s", workoutID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workout %s for user %s", workoutID, userID))
		return
	}

	pkg.WriteJSON(w, items, http.StatusOK)
}

func (handler *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get_item")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID, itemID := vars["userId"], vars["workoutId"], vars["itemId"]
	if _, ok := handler.workout(ctx, w, userID, workoutID); !ok {
		return
	}

	includeSets := payload.ParseBoolString(r.URL.Query().Get("includeSets"), false)
	item, err := handler.repo.GetItem(ctx, userID, workoutID, itemID, includeSets)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			pkg.WriteAPIError(w, pkg.APIErrItemNotFound, fmt.Sprintf("Item %s not found in workout %s", itemID, workoutID))
			return
		}
		log.Errorf("could not get item %s of workout %s: %s", itemID, workoutID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not process workout %s for user %s", workoutID, userID))
		return
	}

	pkg.WriteJSON(w, item, http.StatusOK)
}

func (handler *Handler) HandleRecomputePRs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.recompute_prs")
	defer span.End()

	vars := mux.Vars(r)
	userID, workoutID := vars["userId"], vars["workoutId"]
	result, err := handler.service.RecomputePRs(ctx, userID, workoutID)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrWorkoutNotFound, fmt.Sprintf("Workout %s not found for user %s", workoutID, userID))
			return
		}
		log.Errorf("could not recompute PRs of workout %s for user %s: %s", workoutID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not recompute PRs of workout %s", workoutID))
		return
	}

	pkg.WriteJSON(w, Summarize(workoutID, result), http.StatusOK)
}

func (handler *Handler) HandleListPRs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prs.list")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	prs, err := handler.prs.ListPRs(ctx, userID)
	if err != nil {
		log.Errorf("could not list PRs for user %s: %s", userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not retrieve PRs for user %s", userID))
		return
	}

	pkg.WriteJSON(w, prs, http.StatusOK)
}

func (handler *Handler) HandleGetPR(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prs.get")
	defer span.End()

	vars := mux.Vars(r)
	userID, exerciseID := vars["userId"], vars["exerciseId"]
	pr, err := handler.prs.GetPR(ctx, userID, exerciseID)
	if err != nil {
		if errors.Is(err, ingest.ErrPRNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrPRNotFound, fmt.Sprintf("PR for exercise %s not found for user %s", exerciseID, userID))
			return
		}
		log.Errorf("could not get PR %s for user %s: %s", exerciseID, userID, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not retrieve PR %s for user %s", exerciseID, userID))
		return
	}

	pkg.WriteJSON(w, pr, http.StatusOK)
}

func (handler *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.create")
	defer span.End()

	id, err := handler.repo.CreateTemplate(ctx, newTemplate(decodeOrEmpty(r)))
	if err != nil {
		log.Errorf("could not create workout template: %s", err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, "Could not create workout")
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: "Workout created", ID: id}, http.StatusOK)
}

func (handler *Handler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	template, err := handler.templates.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
			pkg.WriteAPIError(w, pkg.APIErrWorkoutNotFound, fmt.Sprintf("Workout %s not found", id))
			return
		}
		log.Errorf("could not retrieve workout template %s: %s", id, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not retrieve workout %s", id))
		return
	}

	pkg.WriteJSON(w, template, http.StatusOK)
}

func (handler *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.list")
	defer span.End()

	templates, err := handler.repo.ListTemplates(ctx)
	if err != nil {
		log.Errorf("could not retrieve workout templates: %s", err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, "Could not retrieve workouts")
		return
	}

	pkg.WriteJSON(w, templates, http.StatusOK)
}

// decodeOrEmpty reads a JSON object body, anything unreadable counts as empty.
func decodeOrEmpty(r *http.Request) map[string]any {
	data, err := payload.DecodeObject(r.Body)
	if err != nil {
		log.Debugf("ignoring unreadable body of %s %s: %s", r.Method, r.URL.Path, err)
		return map[string]any{}
	}
	return data
}
