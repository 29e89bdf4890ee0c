package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
)

// Firestore is a Store backed by Cloud Firestore. Paths map 1:1 to Firestore
// document and collection paths.
type Firestore struct {
	client *firestore.Client
}

type NewFirestoreParams struct {
	ProjectID string
	// CredentialsFile is optional, application default credentials
	// (or FIRESTORE_EMULATOR_HOST) are used when empty.
	CredentialsFile string
}

func NewFirestore(ctx context.Context, params NewFirestoreParams) (*Firestore, error) {
	var opts []option.ClientOption
	if params.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(params.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, params.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("new firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) doc(path string) (*firestore.DocumentRef, string, error) {
	_, id, err := SplitDoc(path)
	if err != nil {
		return nil, "", err
	}
	ref := f.client.Doc(path)
	if ref == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return ref, id, nil
}

func (f *Firestore) Get(ctx context.Context, path string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	ref, id, err := f.doc(path)
	if err != nil {
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &Snapshot{ID: id, Path: path}, nil
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return &Snapshot{ID: id, Path: path, Exists: snap.Exists(), Data: snap.Data()}, nil
}

func (f *Firestore) Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	ref, _, err := f.doc(path)
	if err != nil {
		return err
	}

	if _, err := ref.Set(ctx, toFirestore(data), firestoreSetOptions(opts)...); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (f *Firestore) Create(ctx context.Context, path string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	ref, _, err := f.doc(path)
	if err != nil {
		return err
	}

	if _, err := ref.Create(ctx, toFirestore(data)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("create %s: %w", path, ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, path string, data map[string]any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	ref, _, err := f.doc(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	converted := toFirestore(data)
	updates := make([]firestore.Update, 0, len(converted))
	for k, v := range converted {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}

	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("update %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, path string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("path", path))

	ref, _, err := f.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, q Query) (_ []*Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.query")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", q.Collection))

	if err := ValidateCollection(q.Collection); err != nil {
		return nil, err
	}
	coll := f.client.Collection(q.Collection)
	if coll == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, q.Collection)
	}

	fsQuery := coll.Query
	for _, filter := range q.Filters {
		fsQuery = fsQuery.Where(filter.Field, string(filter.Op), filter.Value)
	}
	if q.OrderBy != "" {
		direction := firestore.Asc
		if q.Descending {
			direction = firestore.Desc
		}
		fsQuery = fsQuery.OrderBy(q.OrderBy, direction)
	}
	if q.Limit > 0 {
		fsQuery = fsQuery.Limit(q.Limit)
	}

	iter := fsQuery.Documents(ctx)
	defer iter.Stop()

	var result []*Snapshot
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Collection, err)
		}
		result = append(result, &Snapshot{
			ID:     snap.Ref.ID,
			Path:   q.Collection + "/" + snap.Ref.ID,
			Exists: true,
			Data:   snap.Data(),
		})
	}

	span.SetAttributes(attribute.Int("results", len(result)))
	return result, nil
}

func (f *Firestore) Batch(ctx context.Context, writes []Write) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "docstore.firestore.batch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("writes", len(writes)))

	refs := make([]*firestore.DocumentRef, len(writes))
	for i, w := range writes {
		ref, _, err := f.doc(w.Path)
		if err != nil {
			return err
		}
		refs[i] = ref
	}

	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, w := range writes {
			if w.Delete {
				if err := tx.Delete(refs[i]); err != nil {
					return err
				}
				continue
			}
			var opts []firestore.SetOption
			if w.Merge {
				opts = append(opts, firestore.MergeAll)
			}
			if err := tx.Set(refs[i], toFirestore(w.Data), opts...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func firestoreSetOptions(opts []SetOption) []firestore.SetOption {
	if applySetOptions(opts).merge {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

// toFirestore swaps ServerTimestamp for the firestore sentinel.
func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	switch t := v.(type) {
	case serverTimestamp:
		return firestore.ServerTimestamp
	case map[string]any:
		return toFirestore(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toFirestoreValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toFirestore(item)
		}
		return out
	default:
		return v
	}
}
