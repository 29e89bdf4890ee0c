package users

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const usersCollection = "users"

// Repo keeps user profiles at users/{id}.
type Repo struct {
	store docstore.Store
}

func NewRepo(store docstore.Store) *Repo {
	return &Repo{
		store: store,
	}
}

// Get returns the profile with its id under "id".
func (r *Repo) Get(ctx context.Context, id string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	snap, err := r.store.Get(ctx, docstore.Doc(usersCollection, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !snap.Exists {
		return nil, ErrUserNotFound
	}
	return snap.DataWithID(), nil
}

func (r *Repo) List(ctx context.Context) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snaps, err := r.store.Query(ctx, docstore.Query{Collection: usersCollection})
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		users = append(users, snap.DataWithID())
	}
	return users, nil
}

func (r *Repo) ExistsByPhone(ctx context.Context, phone string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.exists_by_phone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: usersCollection,
		Limit:      1,
	}.Where("phoneNumber", docstore.OpEqual, phone))
	if err != nil {
		return false, fmt.Errorf("query users by phone: %w", err)
	}
	return len(snaps) > 0, nil
}

// Create stores a new profile, ErrUserExists when the id is taken.
func (r *Repo) Create(ctx context.Context, id string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	if err := r.store.Create(ctx, docstore.Doc(usersCollection, id), data); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, id string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	if err := r.store.Update(ctx, docstore.Doc(usersCollection, id), data); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", id))

	path := docstore.Doc(usersCollection, id)
	snap, err := r.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !snap.Exists {
		return ErrUserNotFound
	}
	if err := r.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
