package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fitnesstracker/internal/payload"
)

// Memory is a goroutine-safe in-process Store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string]any),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock sets the clock used to resolve ServerTimestamp values.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, path string) (*Snapshot, error) {
	_, id, err := SplitDoc(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[path]
	if !ok {
		return &Snapshot{ID: id, Path: path}, nil
	}
	return &Snapshot{ID: id, Path: path, Exists: true, Data: payload.Clone(data)}, nil
}

func (m *Memory) Set(_ context.Context, path string, data map[string]any, opts ...SetOption) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(path, data, applySetOptions(opts).merge)
	return nil
}

func (m *Memory) setLocked(path string, data map[string]any, merge bool) {
	resolved := resolveServerTimestamps(data, m.now())
	existing, ok := m.docs[path]
	if !merge || !ok {
		m.docs[path] = resolved
		return
	}
	for k, v := range resolved {
		existing[k] = v
	}
}

func (m *Memory) Create(_ context.Context, path string, data map[string]any) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[path]; ok {
		return fmt.Errorf("create %s: %w", path, ErrAlreadyExists)
	}
	m.docs[path] = resolveServerTimestamps(data, m.now())
	return nil
}

func (m *Memory) Update(_ context.Context, path string, data map[string]any) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[path]; !ok {
		return fmt.Errorf("update %s: %w", path, ErrNotFound)
	}
	m.setLocked(path, data, true)
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func (m *Memory) Query(_ context.Context, q Query) ([]*Snapshot, error) {
	if err := ValidateCollection(q.Collection); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := q.Collection + "/"
	var result []*Snapshot
	for path, data := range m.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := strings.TrimPrefix(path, prefix)
		if strings.Contains(id, "/") {
			// document of a nested collection
			continue
		}
		if !matchesFilters(data, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := data[q.OrderBy]; !ok {
				continue
			}
		}
		result = append(result, &Snapshot{ID: id, Path: path, Exists: true, Data: payload.Clone(data)})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if q.OrderBy == "" {
			return result[i].ID < result[j].ID
		}
		c := compareAny(result[i].Data[q.OrderBy], result[j].Data[q.OrderBy])
		if c == 0 {
			return result[i].ID < result[j].ID
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (m *Memory) Batch(_ context.Context, writes []Write) error {
	for _, w := range writes {
		if _, _, err := SplitDoc(w.Path); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		if w.Delete {
			delete(m.docs, w.Path)
			continue
		}
		m.setLocked(w.Path, w.Data, w.Merge)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func matchesFilters(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		if typeRank(v) != typeRank(f.Value) {
			return false
		}
		c := compareAny(v, f.Value)
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpGreaterOrEqual:
			if c < 0 {
				return false
			}
		case OpLessOrEqual:
			if c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// typeRank orders values of different types the way document databases do:
// null < bool < number < timestamp < string < everything else.
func typeRank(v any) int {
	if _, ok := v.(time.Time); ok {
		return 3
	}
	switch payload.Of(v).Kind() {
	case payload.KindNull:
		return 0
	case payload.KindBool:
		return 1
	case payload.KindNumber:
		return 2
	case payload.KindString:
		return 4
	default:
		return 5
	}
}

func compareAny(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		fa, _ := payload.Of(a).AsNumber()
		fb, _ := payload.Of(b).AsNumber()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case 3:
		return a.(time.Time).Compare(b.(time.Time))
	case 4:
		return strings.Compare(a.(string), b.(string))
	default:
		return 0
	}
}
