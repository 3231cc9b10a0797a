// File: internal/scene/randomize.go
package scene

import (
	"math/rand"

	"github.com/codealphago/ai2thor/api/schemas"
)

// RandomizeOptions carries the caller-supplied knobs for a layout
// randomization.
type RandomizeOptions struct {
	// Seed of nil picks a fresh random seed.
	Seed *uint32
	// RandomizeOpen lets the engine randomly open receptacles too.
	RandomizeOpen bool
	// UniqueObjectTypes forbids duplicate pickupable object types.
	UniqueObjectTypes bool
	// ExcludePairs pins object/receptacle assignments the randomizer must
	// not reproduce.
	ExcludePairs []schemas.ReceptacleObjectPair
}

// RandomInitializeAction assembles the RandomInitialize action from the
// compatibility table, the most recent event, and the recorded pivot
// visibility data. Receptacles that already have recorded pivot anchors are
// excluded so randomization does not invalidate them. Pots and pans are
// excluded outright by type name: a scene-specific carve-out (nothing
// should be randomized into cookware), not a rule derivable from pivot
// data.
func RandomInitializeAction(last *schemas.Event, pivotSlots map[string][]int, opts RandomizeOptions) schemas.RandomInitialize {
	specs := make([]schemas.ReceptacleSpec, 0, len(ReceptacleObjects))
	for _, recType := range receptacleTypes() {
		specs = append(specs, schemas.ReceptacleSpec{
			ReceptacleObjectType: recType,
			ItemObjectTypes:      ReceptacleObjects[recType],
		})
	}

	var excludeObjectIDs []string
	if last != nil {
		for _, obj := range last.Metadata.Objects {
			hasPivots := len(pivotSlots) > 0 && obj.Receptacle && len(pivotSlots[obj.ObjectID]) > 0
			if hasPivots || obj.ObjectType == "Pot" || obj.ObjectType == "Pan" {
				excludeObjectIDs = append(excludeObjectIDs, obj.ObjectID)
			}
		}
	}

	seed := opts.Seed
	if seed == nil {
		s := rand.Uint32()
		seed = &s
	}

	return schemas.RandomInitialize{
		ReceptacleObjects:            specs,
		RandomizeOpen:                opts.RandomizeOpen,
		UniquePickupableObjectTypes:  opts.UniqueObjectTypes,
		ExcludeObjectIDs:             excludeObjectIDs,
		ExcludeReceptacleObjectPairs: opts.ExcludePairs,
		RandomSeed:                   *seed,
	}
}
