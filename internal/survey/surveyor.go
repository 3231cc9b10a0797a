// File: internal/survey/surveyor.go

// Package survey sweeps every reachable grid point through all discrete
// heading and tilt combinations, recording where receptacles and pickupable
// objects can actually be seen. The sweep drives the live engine and
// mutates scene state (objects are picked up, receptacles opened and
// closed); it is a one-shot, destructive scan.
package survey

import (
	"context"

	"go.uber.org/zap"

	"github.com/codealphago/ai2thor/api/schemas"
)

// probeObjectTypes are tried in object order; the first match becomes the
// probe placed into receptacle pivot slots.
var probeObjectTypes = []string{"Mug", "CellPhone"}

// Session is the slice of the session controller the surveyor needs.
type Session interface {
	Step(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	StepOrFail(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	LastEvent() *schemas.Event
}

// SearchNode pins down the exact pose and receptacle interaction needed to
// reproduce an observation.
type SearchNode struct {
	X                  float64 `json:"x"`
	Y                  float64 `json:"y"`
	Z                  float64 `json:"z"`
	Rotation           float64 `json:"rotation"`
	Horizon            float64 `json:"horizon"`
	OpenReceptacle     bool    `json:"openReceptacle"`
	PivotID            int     `json:"pivotId"`
	ReceptacleObjectID string  `json:"receptacleObjectId"`
}

// ReceptacleAnchor records a pose from which a receptacle (or a probe
// object inside one of its pivot slots) is visible.
type ReceptacleAnchor struct {
	Distance           float64    `json:"distance"`
	PivotID            int        `json:"pivotId"`
	ReceptacleObjectID string     `json:"receptacleObjectId"`
	Node               SearchNode `json:"searchNode"`
}

// ObjectSighting is one observation of a pickupable object: how far it was
// and the full agent pose that saw it. Sightings accumulate per object and
// are never deduplicated.
type ObjectSighting struct {
	Distance float64       `json:"distance"`
	Agent    schemas.Agent `json:"agent"`
}

// Surveyor runs the exhaustive visibility sweep.
type Surveyor struct {
	log       *zap.Logger
	session   Session
	rotations []float64
	horizons  []float64
}

// New creates a Surveyor with the canonical 4 headings and 3 tilts.
func New(session Session, logger *zap.Logger) *Surveyor {
	return &Surveyor{
		log:       logger.Named("survey"),
		session:   session,
		rotations: []float64{0, 90, 180, 270},
		horizons:  []float64{330, 0, 30},
	}
}

// isObjectVisible checks the most recent event for a visible instance of
// the object.
func (s *Surveyor) isObjectVisible(objectID string) bool {
	ev := s.session.LastEvent()
	if ev == nil {
		return false
	}
	obj, ok := ev.Object(objectID)
	return ok && obj.Visible
}

// FindVisibleReceptacles sweeps the grid and returns, first, the per-pivot
// anchors (poses from which a probe object placed in a receptacle slot
// stays visible) and, second, the plain receptacle anchors. Before the
// sweep every pickupable object is lifted out of the way so it cannot
// shadow a slot.
func (s *Surveyor) FindVisibleReceptacles(ctx context.Context, gridPoints []schemas.Vector3) (pivotAnchors, receptacleAnchors []ReceptacleAnchor, err error) {
	last := s.session.LastEvent()
	if last == nil {
		return nil, nil, nil
	}

	probeObjectID := ""
	for _, obj := range last.Metadata.Objects {
		if obj.Pickupable {
			if _, err := s.session.Step(ctx, schemas.PickupObject{ObjectID: obj.ObjectID, ForceVisible: true}); err != nil {
				return nil, nil, err
			}
		}
		if probeObjectID == "" && isProbeType(obj.ObjectType) {
			probeObjectID = obj.ObjectID
		}
	}
	if probeObjectID == "" {
		s.log.Warn("No probe object found; pivot visibility cannot be established.")
	}

	for _, point := range gridPoints {
		if _, err := s.session.StepOrFail(ctx, schemas.Teleport{X: point.X, Y: point.Y, Z: point.Z}); err != nil {
			return nil, nil, err
		}

		for _, rot := range s.rotations {
			for _, hor := range s.horizons {
				ev, err := s.session.StepOrFail(ctx, schemas.RotateLook{Rotation: rot, Horizon: hor})
				if err != nil {
					return nil, nil, err
				}

				for _, obj := range ev.Metadata.Objects {
					if !obj.Receptacle || !obj.Visible {
						continue
					}
					receptacleAnchors = append(receptacleAnchors, ReceptacleAnchor{
						Distance:           obj.Distance,
						ReceptacleObjectID: obj.ObjectID,
						Node: SearchNode{
							X:        point.X,
							Y:        point.Y,
							Z:        point.Z,
							Rotation: rot,
							Horizon:  hor,
						},
					})

					slots, err := s.probePivots(ctx, point, rot, hor, obj, probeObjectID)
					if err != nil {
						return nil, nil, err
					}
					pivotAnchors = append(pivotAnchors, slots...)
				}
			}
		}
	}

	s.log.Info("Receptacle sweep complete.",
		zap.Int("receptacle_anchors", len(receptacleAnchors)),
		zap.Int("pivot_anchors", len(pivotAnchors)))
	return pivotAnchors, receptacleAnchors, nil
}

// probePivots opens an openable receptacle, drops the probe into each pivot
// slot in turn, records the slots from which the probe stays visible, and
// closes the receptacle again.
func (s *Surveyor) probePivots(ctx context.Context, point schemas.Vector3, rot, hor float64, receptacle schemas.ObjectObservation, probeObjectID string) ([]ReceptacleAnchor, error) {
	if receptacle.Openable {
		if _, err := s.session.StepOrFail(ctx, schemas.OpenObject{ObjectID: receptacle.ObjectID, ForceVisible: true}); err != nil {
			return nil, err
		}
	}

	var anchors []ReceptacleAnchor
	for pivotID := 0; pivotID < receptacle.ReceptacleCount; pivotID++ {
		// Replace is allowed to fail (a slot can be blocked); the probe
		// simply will not be visible there.
		if _, err := s.session.Step(ctx, schemas.Replace{
			ObjectID:           probeObjectID,
			ReceptacleObjectID: receptacle.ObjectID,
			Pivot:              pivotID,
			ForceVisible:       true,
		}); err != nil {
			return nil, err
		}
		if s.isObjectVisible(probeObjectID) {
			anchors = append(anchors, ReceptacleAnchor{
				Distance:           receptacle.Distance,
				PivotID:            pivotID,
				ReceptacleObjectID: receptacle.ObjectID,
				Node: SearchNode{
					X:                  point.X,
					Y:                  point.Y,
					Z:                  point.Z,
					Rotation:           rot,
					Horizon:            hor,
					OpenReceptacle:     receptacle.Openable,
					PivotID:            pivotID,
					ReceptacleObjectID: receptacle.ObjectID,
				},
			})
		}
	}

	if receptacle.Openable {
		if _, err := s.session.StepOrFail(ctx, schemas.CloseObject{ObjectID: receptacle.ObjectID, ForceVisible: true}); err != nil {
			return nil, err
		}
	}
	return anchors, nil
}

// FindVisibleObjects sweeps the grid and accumulates sightings of every
// visible pickupable object, keyed by object id. Objects currently sitting
// inside a closed openable receptacle are skipped; they are technically
// flagged visible by the engine but cannot be interacted with.
func (s *Surveyor) FindVisibleObjects(ctx context.Context, gridPoints []schemas.Vector3) (map[string][]ObjectSighting, error) {
	sightings := make(map[string][]ObjectSighting)

	for _, point := range gridPoints {
		if _, err := s.session.StepOrFail(ctx, schemas.Teleport{X: point.X, Y: point.Y, Z: point.Z}); err != nil {
			return nil, err
		}

		for _, rot := range s.rotations {
			for _, hor := range s.horizons {
				ev, err := s.session.StepOrFail(ctx, schemas.RotateLook{Rotation: rot, Horizon: hor})
				if err != nil {
					return nil, err
				}

				objectReceptacle := make(map[string]schemas.ObjectObservation)
				for _, obj := range ev.Metadata.Objects {
					if obj.Receptacle {
						for _, pso := range obj.PivotSimObjs {
							objectReceptacle[pso.ObjectID] = obj
						}
					}
				}

				for _, obj := range ev.Metadata.Objects {
					if !obj.Visible || !obj.Pickupable {
						continue
					}
					if rec, ok := objectReceptacle[obj.ObjectID]; ok && rec.Openable && !rec.IsOpen {
						continue
					}
					sightings[obj.ObjectID] = append(sightings[obj.ObjectID], ObjectSighting{
						Distance: obj.Distance,
						Agent:    ev.Metadata.Agent,
					})
				}
			}
		}
	}

	s.log.Info("Object sweep complete.", zap.Int("objects", len(sightings)))
	return sightings, nil
}

func isProbeType(objectType string) bool {
	for _, t := range probeObjectTypes {
		if objectType == t {
			return true
		}
	}
	return false
}
