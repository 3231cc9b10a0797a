// File: internal/store/store_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codealphago/ai2thor/api/schemas"
	"github.com/codealphago/ai2thor/internal/survey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func sampleRun(id string) *RunRecord {
	return &RunRecord{
		ID:       id,
		Scene:    "FloorPlan28",
		GridSize: 0.25,
		GridPoints: []schemas.Vector3{
			{X: 0, Y: 0.9, Z: 0},
			{X: 0.25, Y: 0.9, Z: 0},
			{X: 0.25, Y: 0.9, Z: 0.25},
		},
		ReceptacleAnchors: []survey.ReceptacleAnchor{
			{
				Distance:           1.2,
				ReceptacleObjectID: "Cabinet|1",
				Node:               survey.SearchNode{X: 0.25, Y: 0.9, Rotation: 90},
			},
		},
		PivotAnchors: []survey.ReceptacleAnchor{
			{
				Distance:           1.2,
				PivotID:            1,
				ReceptacleObjectID: "Cabinet|1",
				Node:               survey.SearchNode{X: 0.25, Y: 0.9, Rotation: 90, OpenReceptacle: true, PivotID: 1},
			},
		},
		Sightings: map[string][]survey.ObjectSighting{
			"Mug|1": {
				{Distance: 0.8, Agent: schemas.Agent{Position: schemas.Vector3{Y: 0.9}, CameraHorizon: 30}},
				{Distance: 1.1, Agent: schemas.Agent{Position: schemas.Vector3{X: 0.25, Y: 0.9}}},
			},
		},
	}
}

func TestSaveAndLoadGrid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRun("run-1")
	require.NoError(t, s.SaveRun(ctx, rec))

	grid, err := s.LoadGrid(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, rec.GridPoints, grid)
}

func TestLoadGridUnknownRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadGrid(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))
	assert.Error(t, s.SaveRun(ctx, sampleRun("run-1")))

	// The failed save must not have left partial rows behind.
	grid, err := s.LoadGrid(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, grid, 3)

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM grid_points`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestSaveRunPersistsAnchorsAndSightings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("run-1")))

	var kind string
	var open int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT kind, open_receptacle FROM receptacle_anchors WHERE pivot_id = 1`).Scan(&kind, &open))
	assert.Equal(t, "pivot", kind)
	assert.Equal(t, 1, open)

	var sightings int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM object_sightings WHERE object_id = 'Mug|1'`).Scan(&sightings))
	assert.Equal(t, 2, sightings)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")
	ctx := context.Background()

	s1, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s1.SaveRun(ctx, sampleRun("run-1")))
	require.NoError(t, s1.Close())

	// Reopening an existing database keeps prior runs readable.
	s2, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer s2.Close()

	grid, err := s2.LoadGrid(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, grid, 3)
}
