package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/payload"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
	"github.com/2beens/fitnesstracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=users_mocks_test.go -package=users_test
type usersRepo interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	List(ctx context.Context) ([]map[string]any, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, id string, data map[string]any) error
	Update(ctx context.Context, id string, data map[string]any) error
	Delete(ctx context.Context, id string) error
}

type CreateUserResponse struct {
	Message string `json:"message"`
	UID     string `json:"uid"`
}

type PhoneCheckResponse struct {
	Exists bool `json:"exists"`
}

type Handler struct {
	repo usersRepo
}

func NewHandler(repo usersRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

// HandleGet serves both /getUser/{id} and /getUserV2/{id}.
func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	user, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteAPIError(w, pkg.APIErrUserNotFound, fmt.Sprintf("User %s not found", id))
			return
		}
		log.Errorf("could not retrieve user [%s]: %s", id, err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, fmt.Sprintf("Could not retrieve user %s", id))
		return
	}

	pkg.WriteJSON(w, user, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.list")
	defer span.End()

	users, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("could not retrieve users: %s", err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, "Could not retrieve users")
		return
	}

	pkg.WriteJSON(w, users, http.StatusOK)
}

func (handler *Handler) HandleCheckPhone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.check_phone")
	defer span.End()

	data, err := payload.DecodeObject(r.Body)
	if err != nil {
		log.Debugf("check phone, ignoring unreadable body: %s", err)
		data = map[string]any{}
	}

	phone := payload.Field(data, "phoneNumber")
	if !phone.Truthy() {
		phone = payload.Field(data, "phone")
	}
	phoneNumber := strings.TrimSpace(phone.StringOr(""))
	if phoneNumber == "" {
		pkg.WriteAPIError(w, pkg.APIErrInvalidRequest, "phoneNumber is required.")
		return
	}

	exists, err := handler.repo.ExistsByPhone(ctx, phoneNumber)
	if err != nil {
		log.Errorf("could not check phone number: %s", err)
		pkg.WriteAPIError(w, pkg.APIErrInternal, "Could not check phone number")
		return
	}

	pkg.WriteJSON(w, PhoneCheckResponse{Exists: exists}, http.StatusOK)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.create")
	defer span.End()

	data, err := payload.DecodeObject(r.Body)
	if err != nil || len(data) == 0 {
		pkg.WriteAPIError(w, pkg.APIErrNoData, "No data provided.")
		return
	}

	id, ok := payload.Field(data, "id").AsString()
	if !ok || strings.TrimSpace(id) == "" {
		pkg.WriteAPIError(w, pkg.APIErrInvalidRequest, "id is required.")
		return
	}

	prepareNew(data)

	if err := handler.repo.Create(ctx, id, data); err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			pkg.WriteAPIError(w, pkg.APIErrUserExists, fmt.Sprintf("User %s already exists", id))
		case errors.Is(err, docstore.ErrInvalidPath):
			pkg.WriteAPIError(w, pkg.APIErrInvalidRequest, "id is not a valid user id.")
		default:
			log.Errorf("could not create user [%s]: %s", id, err)
			pkg.WriteAPIError(w, pkg.APIErrUserCreation, "Could not create user")
		}
		return
	}

	log.Debugf("user created: %s", id)
	pkg.WriteJSON(w, CreateUserResponse{Message: "User created", UID: id}, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.update")
	defer span.End()

	id := mux.Vars(r)["id"]
	data, err := payload.DecodeObject(r.Body)
	if err != nil || len(data) == 0 {
		pkg.WriteAPIError(w, pkg.APIErrNoData, "No data provided.")
		return
	}

	prepareUpdate(data)

	if err := handler.repo.Update(ctx, id, data); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteAPIError(w, pkg.APIErrUserNotFound, fmt.Sprintf("User %s not found", id))
			return
		}
		log.Errorf("could not update user [%s]: %s", id, err)
		pkg.WriteAPIError(w, pkg.APIErrUserUpdate, fmt.Sprintf("Could not update user %s", id))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("User %s updated", id)}, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.delete")
	defer span.End()

	id := mux.Vars(r)["id"]
	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteAPIError(w, pkg.APIErrUserNotFound, fmt.Sprintf("User %s not found", id))
			return
		}
		log.Errorf("could not delete user [%s]: %s", id, err)
		pkg.WriteAPIError(w, pkg.APIErrUserDelete, fmt.Sprintf("Could not delete user %s", id))
		return
	}

	pkg.WriteJSON(w, pkg.MessageResponse{Message: fmt.Sprintf("User %s deleted", id)}, http.StatusOK)
}
