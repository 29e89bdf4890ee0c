package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitnesstracker/internal/config"
	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/workouts"
)

const testConfig = `
[development]
store_backend = "memory"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func memoryOpener(store docstore.Store) storeOpener {
	return func(context.Context, *config.Config) (docstore.Store, func(), error) {
		return store, func() {}, nil
	}
}

func run(t *testing.T, store docstore.Store, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCmd(memoryOpener(store), out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecomputeAndListPRs(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	configPath := writeConfig(t)

	err := workouts.NewRepo(store).SaveWorkout(ctx, "u1", "w1", map[string]any{
		"date": "2025-04-01",
		"exercises": []any{
			map[string]any{
				"exerciseId": "deadlift",
				"sets": []any{
					map[string]any{"weight": 180.0, "reps": 3.0},
					map[string]any{"weight": 200.0, "reps": 1.0},
				},
			},
		},
	})
	require.NoError(t, err)

	out, err := run(t, store, "recompute", "--config", configPath, "--user", "u1", "--workout", "w1")
	require.NoError(t, err)
	var summary workouts.RecomputeSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "w1", summary.WorkoutID)
	assert.Equal(t, 1, summary.Exercises)
	assert.Equal(t, 1, summary.PRsWritten)

	out, err = run(t, store, "prs", "--config", configPath, "--user", "u1")
	require.NoError(t, err)
	var prs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &prs))
	require.Len(t, prs, 1)
	assert.Equal(t, "deadlift", prs[0]["id"])
	assert.Equal(t, 200.0, prs[0]["weight"])

	// nothing beats the stored PR on a second pass
	out, err = run(t, store, "recompute", "--config", configPath, "--user", "u1", "--workout", "w1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.PRsWritten)
}

func TestRecompute_Errors(t *testing.T) {
	store := docstore.NewMemory()
	configPath := writeConfig(t)

	_, err := run(t, store, "recompute", "--config", configPath, "--user", "u1")
	assert.EqualError(t, err, "--user and --workout are required")

	_, err = run(t, store, "recompute", "--config", configPath, "--user", "u1", "--workout", "missing")
	assert.ErrorIs(t, err, workouts.ErrWorkoutNotFound)

	_, err = run(t, store, "prs", "--config", configPath)
	assert.EqualError(t, err, "--user is required")

	_, err = run(t, store, "prs", "--env", "staging", "--config", configPath, "--user", "u1")
	assert.ErrorContains(t, err, "unknown env")
}
