// File: internal/explore/explorer.go

// Package explore discovers the reachable grid of a scene by breadth-first
// search: every accepted point spawns four axis-aligned candidate moves,
// and candidates are tested oldest-first so discovery order equals
// shortest-step reachability order.
package explore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/codealphago/ai2thor/api/schemas"
)

// ErrAgentAirborne reports that an accepted point's vertical coordinate
// exceeded the height ceiling. The agent was teleported into an invalid
// state; the search state is corrupt, not merely unlucky.
var ErrAgentAirborne = errors.New("agent accepted at invalid height")

// ErrTeleportFailed reports a failed teleport to a start position that was
// already known reachable. This breaks the search's core assumption.
var ErrTeleportFailed = errors.New("teleport to known-reachable point failed")

// State is the explorer's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the slice of the session controller the explorer needs.
type Session interface {
	Reset(ctx context.Context, sceneName string) (*schemas.Event, error)
	Step(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	StepOrFail(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	LastEvent() *schemas.Event
}

// SceneSetup prepares the scene between the reset and the search loop of a
// seeded search (layout randomization, opening target receptacles). Wired
// in by the caller so the explorer stays independent of scene policy.
type SceneSetup func(ctx context.Context, session Session) error

// islandMatchRadius is the distance below which a flood-fill candidate is
// considered the same grid point.
const islandMatchRadius = 0.05

// Explorer runs breadth-first reachability discovery over a uniform grid.
// All state is rebuilt per run and owned by the single planning goroutine.
type Explorer struct {
	log     *zap.Logger
	session Session

	gridSize      float64
	heightCeiling float64

	state        State
	allowEnqueue bool
	frontier     []SearchPoint     // FIFO: dequeue from the front
	seenTargets  []schemas.Vector3 // every target ever enqueued, accepted or not
	gridPoints   []schemas.Vector3
}

// New creates an idle Explorer.
func New(session Session, gridSize, heightCeiling float64, logger *zap.Logger) *Explorer {
	return &Explorer{
		log:           logger.Named("explore"),
		session:       session,
		gridSize:      gridSize,
		heightCeiling: heightCeiling,
		state:         StateIdle,
		allowEnqueue:  true,
	}
}

// State reports the current lifecycle phase.
func (e *Explorer) State() State { return e.state }

// GridPoints returns the accepted reachable positions of the last run.
func (e *Explorer) GridPoints() []schemas.Vector3 { return e.gridPoints }

// GridSize returns the configured grid step.
func (e *Explorer) GridSize() float64 { return e.gridSize }

// EnqueuePoint adds a candidate to the frontier unless a previously seen
// target lies within gridSize/5 of its landing point. The dedup threshold
// tracks targets, not accepted points, so a rejected candidate still
// suppresses later near-duplicates and no engine call is wasted retesting
// it.
func (e *Explorer) EnqueuePoint(point SearchPoint) {
	threshold := e.gridSize / 5.0
	target := point.TargetPoint()
	for _, seen := range e.seenTargets {
		if schemas.PlanarDistance(seen, target) < threshold {
			return
		}
	}
	e.seenTargets = append(e.seenTargets, target)
	e.frontier = append(e.frontier, point)
}

// EnqueuePoints derives the four axis-aligned candidates around a position.
func (e *Explorer) EnqueuePoints(position schemas.Vector3) {
	if !e.allowEnqueue {
		return
	}
	e.EnqueuePoint(SearchPoint{Start: position, Move: schemas.MoveVector{DX: -e.gridSize}})
	e.EnqueuePoint(SearchPoint{Start: position, Move: schemas.MoveVector{DX: e.gridSize}})
	e.EnqueuePoint(SearchPoint{Start: position, Move: schemas.MoveVector{DZ: -e.gridSize}})
	e.EnqueuePoint(SearchPoint{Start: position, Move: schemas.MoveVector{DZ: e.gridSize}})
}

// SearchAllClosed explores the named scene from the agent's spawn pose with
// every receptacle left closed. The frontier is seeded with the four
// candidates around the spawn position.
func (e *Explorer) SearchAllClosed(ctx context.Context, sceneName string) error {
	e.reset()

	if _, err := e.session.Reset(ctx, sceneName); err != nil {
		return err
	}
	ev, err := e.session.Step(ctx, schemas.Initialize{GridSize: e.gridSize})
	if err != nil {
		return err
	}

	e.state = StateSearching
	e.EnqueuePoints(ev.Metadata.Agent.Position)
	if err := e.drainFrontier(ctx); err != nil {
		return err
	}

	e.state = StateDone
	e.log.Info("Search complete.",
		zap.String("scene", sceneName),
		zap.Int("grid_points", len(e.gridPoints)))
	return nil
}

// StartSearch re-explores a scene seeded from an externally supplied full
// grid, typically under a different randomized object layout. Enqueueing is
// disabled after seeding, so only the supplied grid is retested; a pruning
// pass then drops any point left without a cardinal neighbor.
func (e *Explorer) StartSearch(ctx context.Context, sceneName string, fullGrid []schemas.Vector3, setup SceneSetup) error {
	e.reset()

	for _, gp := range fullGrid {
		e.EnqueuePoints(gp)
	}
	e.allowEnqueue = false

	if _, err := e.session.Reset(ctx, sceneName); err != nil {
		return err
	}
	if setup != nil {
		if err := setup(ctx, e.session); err != nil {
			return fmt.Errorf("scene setup: %w", err)
		}
	}

	e.state = StateSearching
	if err := e.drainFrontier(ctx); err != nil {
		return err
	}

	e.PrunePoints()
	e.state = StateDone
	e.log.Info("Seeded search complete.",
		zap.String("scene", sceneName),
		zap.Int("grid_points", len(e.gridPoints)))
	return nil
}

func (e *Explorer) reset() {
	e.state = StateIdle
	e.allowEnqueue = true
	e.frontier = nil
	e.seenTargets = nil
	e.gridPoints = nil
}

func (e *Explorer) drainFrontier(ctx context.Context) error {
	for len(e.frontier) > 0 {
		if err := e.queueStep(ctx); err != nil {
			return err
		}
	}
	return nil
}

// queueStep tests the oldest frontier candidate: teleport to its start,
// attempt the relative move, and on success accept the landing pose as a
// grid point and fan out four new candidates. A failed move just discards
// the candidate.
func (e *Explorer) queueStep(ctx context.Context) error {
	point := e.frontier[0]
	e.frontier = e.frontier[1:]

	ev, err := e.session.Step(ctx, schemas.Teleport{
		X: point.Start.X,
		Y: point.Start.Y,
		Z: point.Start.Z,
	})
	if err != nil {
		return err
	}
	if !ev.Metadata.LastActionSuccess {
		// The start position came from a previous successful move, so this
		// cannot happen on an intact scene graph.
		return fmt.Errorf("%w: (%.3f, %.3f): %s",
			ErrTeleportFailed, point.Start.X, point.Start.Z, ev.Metadata.ErrorMessage)
	}

	ev, err = e.session.Step(ctx, schemas.MoveRelative(point.Move, e.gridSize))
	if err != nil {
		return err
	}
	if !ev.Metadata.LastActionSuccess {
		return nil
	}

	position := ev.Metadata.Agent.Position
	if position.Y > e.heightCeiling {
		return fmt.Errorf("%w: y=%.3f at (%.3f, %.3f)",
			ErrAgentAirborne, position.Y, position.X, position.Z)
	}

	e.EnqueuePoints(position)
	e.gridPoints = append(e.gridPoints, position)
	return nil
}

// PrunePoints drops accepted points that have no neighbor at exactly one
// grid step in any cardinal direction. Isolated points are artifacts of
// partial occlusion (a cabinet door blocking three of four approaches) and
// cannot participate in any path.
func (e *Explorer) PrunePoints() {
	keys := make(map[string]struct{}, len(e.gridPoints))
	for _, gp := range e.gridPoints {
		keys[coarseKey(gp.X, gp.Z)] = struct{}{}
	}

	pruned := e.gridPoints[:0]
	for _, gp := range e.gridPoints {
		found := false
		for _, d := range []float64{e.gridSize, -e.gridSize} {
			if _, ok := keys[coarseKey(gp.X+d, gp.Z)]; ok {
				found = true
			}
			if _, ok := keys[coarseKey(gp.X, gp.Z+d)]; ok {
				found = true
			}
		}
		if found {
			pruned = append(pruned, gp)
		}
	}
	e.gridPoints = pruned
}

// HasIslands reports whether the discovered grid is disconnected: a flood
// fill from the first accepted point over four-neighbor adjacency that
// fails to visit every grid point means at least one unreachable island
// survived discovery.
func (e *Explorer) HasIslands() bool {
	if len(e.gridPoints) < 2 {
		return false
	}

	seen := make(map[string]struct{}, len(e.gridPoints))
	var queue []schemas.Vector3

	enqueueNeighbors := func(p schemas.Vector3) {
		key := fmt.Sprintf("%0.3f|%0.3f", p.X, p.Z)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		queue = append(queue,
			schemas.Vector3{X: p.X, Z: p.Z + e.gridSize},
			schemas.Vector3{X: p.X, Z: p.Z - e.gridSize},
			schemas.Vector3{X: p.X + e.gridSize, Z: p.Z},
			schemas.Vector3{X: p.X - e.gridSize, Z: p.Z},
		)
	}

	enqueueNeighbors(e.gridPoints[0])
	for len(queue) > 0 {
		candidate := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, gp := range e.gridPoints {
			if schemas.PlanarDistance(candidate, gp) < islandMatchRadius {
				enqueueNeighbors(gp)
			}
		}
	}

	return len(seen) != len(e.gridPoints)
}

// coarseKey quantizes a position to one decimal per axis. Coarser than the
// graph key on purpose: a point regenerated through float arithmetic must
// still land on the same bucket.
func coarseKey(x, z float64) string {
	return fmt.Sprintf("%0.1f %0.1f", x, z)
}
