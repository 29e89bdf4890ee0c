package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

var ErrPRNotFound = errors.New("personal record not found")

type FetchResult struct {
	Exists bool
	Record Record
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=ingest_test
type prStore interface {
	FetchPR(ctx context.Context, userID, exerciseID string) (FetchResult, error)
	// WritePR merges record into the stored one, fields it does not carry are kept.
	WritePR(ctx context.Context, userID, exerciseID string, record Record) error
}

// PRRepo keeps PR records at users/{uid}/prs/{exerciseId}.
type PRRepo struct {
	store docstore.Store
}

func NewPRRepo(store docstore.Store) *PRRepo {
	return &PRRepo{
		store: store,
	}
}

func prPath(userID, exerciseID string) string {
	return docstore.Doc("users", userID, "prs", exerciseID)
}

func (r *PRRepo) FetchPR(ctx context.Context, userID, exerciseID string) (_ FetchResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.repo.fetch_pr")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("exercise.id", exerciseID),
	)

	snap, err := r.store.Get(ctx, prPath(userID, exerciseID))
	if err != nil {
		return FetchResult{}, fmt.Errorf("get pr: %w", err)
	}
	if !snap.Exists {
		return FetchResult{}, nil
	}
	return FetchResult{Exists: true, Record: RecordFromDocument(snap.Data)}, nil
}

func (r *PRRepo) WritePR(ctx context.Context, userID, exerciseID string, record Record) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.repo.write_pr")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("exercise.id", exerciseID),
	)

	if err := r.store.Set(ctx, prPath(userID, exerciseID), record.Document(), docstore.Merge()); err != nil {
		return fmt.Errorf("set pr: %w", err)
	}
	return nil
}

// ListPRs returns every stored PR of the user, each with its exercise id under "id".
func (r *PRRepo) ListPRs(ctx context.Context, userID string) (_ []map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.repo.list_prs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: docstore.Collection("users", userID, "prs"),
	})
	if err != nil {
		return nil, fmt.Errorf("query prs: %w", err)
	}

	prs := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		prs = append(prs, snap.DataWithID())
	}
	return prs, nil
}

func (r *PRRepo) GetPR(ctx context.Context, userID, exerciseID string) (_ map[string]any, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "ingest.repo.get_pr")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snap, err := r.store.Get(ctx, prPath(userID, exerciseID))
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}
	if !snap.Exists {
		return nil, ErrPRNotFound
	}
	return snap.DataWithID(), nil
}
