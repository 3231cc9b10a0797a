// File: internal/scene/targets.go
package scene

import (
	"context"
	"math/rand"
	"sort"

	"github.com/codealphago/ai2thor/api/schemas"
)

// minReceptacleSeparation is how far apart two target receptacles must be
// so their doors cannot collide when both stand open.
const minReceptacleSeparation = 1.25

// Session is the slice of the session controller scene setup needs.
type Session interface {
	Step(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	StepOrFail(ctx context.Context, action schemas.Action) (*schemas.Event, error)
	LastEvent() *schemas.Event
}

// TargetSetup records what InitializeTargets decided: the sampled task
// target objects and the receptacles opened to expose them.
type TargetSetup struct {
	TargetObjects    []string
	OpenReceptacles  []string
	ObjectReceptacle map[string]schemas.ObjectObservation
}

// InitializeTargets samples up to two pickupable objects that sit inside
// openable receptacles and opens those receptacles. The second target's
// receptacle must stand clear of the first's so the opened doors cannot
// collide. The rng is injected so callers (and tests) control sampling.
func InitializeTargets(ctx context.Context, session Session, rng *rand.Rand) (*TargetSetup, error) {
	setup := &TargetSetup{
		ObjectReceptacle: make(map[string]schemas.ObjectObservation),
	}

	last := session.LastEvent()
	if last == nil {
		return setup, nil
	}

	for _, obj := range last.Metadata.Objects {
		if !obj.Receptacle {
			continue
		}
		for _, oid := range obj.ReceptacleObjectIDs {
			setup.ObjectReceptacle[oid] = obj
		}
	}

	pickupable := make(map[string]struct{})
	for _, obj := range last.Metadata.Objects {
		if obj.Pickupable {
			pickupable[obj.ObjectID] = struct{}{}
		}
	}

	// A pickupable object counts as openly reachable only after its
	// receptacle (or, for a non-openable receptacle sitting inside an
	// openable one, that outer container) is opened. The map records which
	// door to open.
	openPickupable := make(map[string]string)
	for _, obj := range last.Metadata.Objects {
		if !obj.Receptacle {
			continue
		}
		for _, oid := range obj.ReceptacleObjectIDs {
			if _, ok := pickupable[oid]; !ok {
				continue
			}
			if obj.Openable {
				openPickupable[oid] = obj.ObjectID
				continue
			}
			if outer, nested := setup.ObjectReceptacle[obj.ObjectID]; nested && outer.Openable {
				openPickupable[oid] = outer.ObjectID
			}
		}
	}
	if len(openPickupable) == 0 {
		return setup, nil
	}

	candidates := make([]string, 0, len(openPickupable))
	for oid := range openPickupable {
		candidates = append(candidates, oid)
	}
	sort.Strings(candidates)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	setup.TargetObjects = append(setup.TargetObjects, candidates[0])
	first := setup.ObjectReceptacle[candidates[0]]
	for _, oid := range candidates[1:] {
		candidate := setup.ObjectReceptacle[oid]
		if schemas.PlanarDistance(first.Position, candidate.Position) > minReceptacleSeparation {
			setup.TargetObjects = append(setup.TargetObjects, oid)
			break
		}
	}

	opened := make(map[string]struct{})
	for _, target := range setup.TargetObjects {
		roid := openPickupable[target]
		if _, done := opened[roid]; done {
			continue
		}
		opened[roid] = struct{}{}
		setup.OpenReceptacles = append(setup.OpenReceptacles, roid)
		if _, err := session.StepOrFail(ctx, schemas.OpenObject{ObjectID: roid, ForceVisible: true}); err != nil {
			return nil, err
		}
	}
	return setup, nil
}
