// File: internal/store/store.go

// Package store persists exploration runs to an embedded SQLite database:
// the accepted grid, the receptacle and pivot visibility anchors, and the
// per-object sightings. A stored grid can seed a later re-exploration of
// the same scene under a different randomized layout.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/codealphago/ai2thor/api/schemas"
	"github.com/codealphago/ai2thor/internal/survey"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	scene      TEXT NOT NULL,
	grid_size  REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS grid_points (
	run_id TEXT NOT NULL REFERENCES runs(id),
	x REAL NOT NULL,
	y REAL NOT NULL,
	z REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS receptacle_anchors (
	run_id               TEXT NOT NULL REFERENCES runs(id),
	kind                 TEXT NOT NULL CHECK (kind IN ('receptacle', 'pivot')),
	receptacle_object_id TEXT NOT NULL,
	pivot_id             INTEGER NOT NULL,
	distance             REAL NOT NULL,
	x REAL NOT NULL, y REAL NOT NULL, z REAL NOT NULL,
	rotation REAL NOT NULL,
	horizon  REAL NOT NULL,
	open_receptacle INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS object_sightings (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	object_id TEXT NOT NULL,
	distance  REAL NOT NULL,
	agent_x REAL NOT NULL, agent_y REAL NOT NULL, agent_z REAL NOT NULL,
	rotation_y     REAL NOT NULL,
	camera_horizon REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grid_points_run ON grid_points(run_id);
CREATE INDEX IF NOT EXISTS idx_anchors_run ON receptacle_anchors(run_id);
CREATE INDEX IF NOT EXISTS idx_sightings_run ON object_sightings(run_id, object_id);
`

// ErrRunNotFound reports a lookup for a run id that was never saved.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is everything one exploration and survey run produces.
type RunRecord struct {
	ID                string
	Scene             string
	GridSize          float64
	GridPoints        []schemas.Vector3
	ReceptacleAnchors []survey.ReceptacleAnchor
	PivotAnchors      []survey.ReceptacleAnchor
	Sightings         map[string][]survey.ObjectSighting
}

// Store wraps the SQLite handle.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the database file and bootstraps the schema.
// SQLite allows a single writer, so the pool is pinned to one connection.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, log: logger.Named("store")}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun persists one run transactionally.
func (s *Store) SaveRun(ctx context.Context, rec *RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, scene, grid_size, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Scene, rec.GridSize, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, gp := range rec.GridPoints {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grid_points (run_id, x, y, z) VALUES (?, ?, ?, ?)`,
			rec.ID, gp.X, gp.Y, gp.Z); err != nil {
			return fmt.Errorf("failed to insert grid point: %w", err)
		}
	}

	if err := s.insertAnchors(ctx, tx, rec.ID, "receptacle", rec.ReceptacleAnchors); err != nil {
		return err
	}
	if err := s.insertAnchors(ctx, tx, rec.ID, "pivot", rec.PivotAnchors); err != nil {
		return err
	}

	for objectID, sightings := range rec.Sightings {
		for _, sighting := range sightings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO object_sightings
				 (run_id, object_id, distance, agent_x, agent_y, agent_z, rotation_y, camera_horizon)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, objectID, sighting.Distance,
				sighting.Agent.Position.X, sighting.Agent.Position.Y, sighting.Agent.Position.Z,
				sighting.Agent.Rotation.Y, sighting.Agent.CameraHorizon); err != nil {
				return fmt.Errorf("failed to insert sighting for %s: %w", objectID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run persisted.",
		zap.String("run_id", rec.ID),
		zap.Int("grid_points", len(rec.GridPoints)),
		zap.Int("receptacle_anchors", len(rec.ReceptacleAnchors)),
		zap.Int("pivot_anchors", len(rec.PivotAnchors)))
	return nil
}

func (s *Store) insertAnchors(ctx context.Context, tx *sql.Tx, runID, kind string, anchors []survey.ReceptacleAnchor) error {
	for _, a := range anchors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO receptacle_anchors
			 (run_id, kind, receptacle_object_id, pivot_id, distance, x, y, z, rotation, horizon, open_receptacle)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, kind, a.ReceptacleObjectID, a.PivotID, a.Distance,
			a.Node.X, a.Node.Y, a.Node.Z, a.Node.Rotation, a.Node.Horizon,
			boolToInt(a.Node.OpenReceptacle)); err != nil {
			return fmt.Errorf("failed to insert %s anchor: %w", kind, err)
		}
	}
	return nil
}

// LoadGrid returns the accepted grid of a stored run, for seeding a
// re-exploration.
func (s *Store) LoadGrid(ctx context.Context, runID string) ([]schemas.Vector3, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, z FROM grid_points WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grid points: %w", err)
	}
	defer rows.Close()

	var grid []schemas.Vector3
	for rows.Next() {
		var p schemas.Vector3
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("failed to scan grid point: %w", err)
		}
		grid = append(grid, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grid points: %w", err)
	}
	return grid, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
