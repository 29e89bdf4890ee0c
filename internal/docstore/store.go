// Package docstore is a small document database abstraction over a key
// hierarchy: documents live at paths like "users/{uid}/prs/{exerciseId}",
// collections at paths with an odd number of segments like "users/{uid}/prs".
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2beens/fitnesstracker/internal/payload"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid document path")
)

type serverTimestamp struct{}

// ServerTimestamp is a field value that the store replaces with its own
// clock at write time.
var ServerTimestamp = serverTimestamp{}

// Store is implemented by every backend (memory, postgres, firestore).
type Store interface {
	// Get returns a snapshot with Exists=false when nothing is stored at path.
	Get(ctx context.Context, path string) (*Snapshot, error)
	// Set replaces the document, or merges top-level fields with Merge().
	Set(ctx context.Context, path string, data map[string]any, opts ...SetOption) error
	// Create fails with ErrAlreadyExists when the document exists.
	Create(ctx context.Context, path string, data map[string]any) error
	// Update overwrites the given top-level fields, ErrNotFound when absent.
	Update(ctx context.Context, path string, data map[string]any) error
	// Delete is a no-op for absent documents.
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
	// Batch applies all writes atomically.
	Batch(ctx context.Context, writes []Write) error
	Close() error
}

type Snapshot struct {
	ID     string
	Path   string
	Exists bool
	Data   map[string]any
}

// DataWithID returns a copy of the document data with its id under "id".
func (s *Snapshot) DataWithID() map[string]any {
	out := payload.Clone(s.Data)
	if out == nil {
		out = map[string]any{}
	}
	out["id"] = s.ID
	return out
}

type Op string

const (
	OpEqual          Op = "=="
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	// Limit <= 0 means no limit.
	Limit int
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

type Write struct {
	Path   string
	Data   map[string]any
	Merge  bool
	Delete bool
}

type setOptions struct {
	merge bool
}

type SetOption func(*setOptions)

// Merge makes Set keep fields of the stored document that data does not name.
func Merge() SetOption {
	return func(o *setOptions) {
		o.merge = true
	}
}

func applySetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewID allocates a document id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Doc joins segments into a document path.
func Doc(segments ...string) string {
	return strings.Join(segments, "/")
}

// Collection joins segments into a collection path.
func Collection(segments ...string) string {
	return strings.Join(segments, "/")
}

// SplitDoc validates a document path and returns its parent collection and id.
func SplitDoc(path string) (collection, id string, err error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", "", err
	}
	if len(segments)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is a collection path", ErrInvalidPath, path)
	}
	last := len(segments) - 1
	return strings.Join(segments[:last], "/"), segments[last], nil
}

// ValidateCollection checks that path names a collection.
func ValidateCollection(path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segments)%2 != 1 {
		return fmt.Errorf("%w: %q is a document path", ErrInvalidPath, path)
	}
	return nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// resolveServerTimestamps returns a copy of data with every ServerTimestamp replaced by now.
func resolveServerTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = resolveValue(v, now)
	}
	return out
}

func resolveValue(v any, now time.Time) any {
	switch t := v.(type) {
	case serverTimestamp:
		return now
	case map[string]any:
		return resolveServerTimestamps(t, now)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveValue(item, now)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveServerTimestamps(item, now)
		}
		return out
	default:
		return v
	}
}
