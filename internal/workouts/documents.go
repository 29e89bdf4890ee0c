package workouts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/payload"
)

const dateLayout = "2006-01-02"

// valueOr returns data[key] when the key is present, even if its value is null.
func valueOr(data map[string]any, key string, def any) any {
	if v, ok := data[key]; ok {
		return v
	}
	return def
}

// stringify renders ids and names stored as numbers or other scalars.
func stringify(v payload.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	if !v.IsSet() {
		return ""
	}
	return fmt.Sprint(v.Raw())
}

// firstTruthy returns the first truthy field among keys.
func firstTruthy(data map[string]any, keys ...string) payload.Value {
	for _, k := range keys {
		if v := payload.Field(data, k); v.Truthy() {
			return v
		}
	}
	return payload.Missing()
}

// newExercise builds a catalog exercise document, ok is false without a name.
func newExercise(data map[string]any) (map[string]any, bool) {
	name := strings.TrimSpace(payload.Field(data, "name").StringOr(""))
	if name == "" {
		return nil, false
	}
	return map[string]any{
		"name":         name,
		"muscleGroups": valueOr(data, "muscleGroups", []any{}),
		"equipment":    valueOr(data, "equipment", ""),
		"notes":        valueOr(data, "notes", ""),
		"archived":     payload.Field(data, "archived").ParseBool(false),
		"createdAt":    docstore.ServerTimestamp,
		"updatedAt":    docstore.ServerTimestamp,
	}, true
}

func newTemplate(data map[string]any) map[string]any {
	return map[string]any{
		"description":         valueOr(data, "description", ""),
		"default":             valueOr(data, "default", false),
		"exercises":           valueOr(data, "exercises", []any{}),
		"equipment":           valueOr(data, "equipment", []any{}),
		"muscle_group":        valueOr(data, "muscle_group", []any{}),
		"name":                valueOr(data, "name", ""),
		"number_of_exercises": valueOr(data, "number_of_exercises", 0),
		"sets":                valueOr(data, "sets", 0),
		"type":                valueOr(data, "type", ""),
		"createdAt":           docstore.ServerTimestamp,
		"updatedAt":           docstore.ServerTimestamp,
	}
}

// workoutDate returns the requested date, or today in UTC when none is given.
func workoutDate(data map[string]any, now time.Time) any {
	if v := payload.Field(data, "date"); v.Truthy() {
		return v.Raw()
	}
	return now.UTC().Format(dateLayout)
}

// templateEntry is one template exercise resolved into a workout item.
type templateEntry struct {
	exerciseID string
	name       string
	notes      any
	order      int
}

func parseTemplateEntry(index int, raw any) templateEntry {
	entry := templateEntry{notes: "", order: index}

	m, ok := raw.(map[string]any)
	if !ok {
		if raw != nil {
			entry.name = stringify(payload.Of(raw))
		}
		return entry
	}

	entry.exerciseID = stringify(firstTruthy(m, "exerciseId", "exercise_id", "id"))
	entry.name = stringify(firstTruthy(m, "name", "exerciseName", "title"))
	entry.notes = valueOr(m, "notes", "")
	if order, ok := parseOrder(payload.Field(m, "order")); ok {
		entry.order = order
	}
	return entry
}

// parseOrder accepts integral numbers (truncated) and integer strings.
func parseOrder(v payload.Value) (int, bool) {
	switch v.Kind() {
	case payload.KindNumber:
		f, _ := v.AsNumber()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return int(f), true
	case payload.KindString:
		s, _ := v.AsString()
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (e templateEntry) item() map[string]any {
	item := map[string]any{
		"notes":     e.notes,
		"order":     e.order,
		"createdAt": docstore.ServerTimestamp,
		"updatedAt": docstore.ServerTimestamp,
	}
	if e.exerciseID != "" {
		item["exerciseId"] = e.exerciseID
	}
	if e.name != "" {
		item["name"] = e.name
	}
	return item
}

// parseLimit returns 0 (no limit) for anything but a positive integer.
func parseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// sortItems orders workout items by their numeric order, then id.
func sortItems(items []*docstore.Snapshot) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, iok := payload.Field(items[i].Data, "order").AsNumber()
		oj, jok := payload.Field(items[j].Data, "order").AsNumber()
		switch {
		case iok && jok && oi != oj:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return items[i].ID < items[j].ID
		}
	})
}
