// File: internal/scene/randomize_test.go
package scene

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codealphago/ai2thor/api/schemas"
)

func TestRandomInitializeSpecsCoverTable(t *testing.T) {
	action := RandomInitializeAction(nil, nil, RandomizeOptions{})

	require.Len(t, action.ReceptacleObjects, len(ReceptacleObjects))

	var types []string
	for _, spec := range action.ReceptacleObjects {
		types = append(types, spec.ReceptacleObjectType)
		assert.Equal(t, ReceptacleObjects[spec.ReceptacleObjectType], spec.ItemObjectTypes)
	}
	// Deterministic spec ordering keeps the wire payload stable run to run.
	assert.True(t, sort.StringsAreSorted(types))
}

func TestRandomInitializeExclusions(t *testing.T) {
	last := &schemas.Event{Metadata: schemas.Metadata{
		Objects: []schemas.ObjectObservation{
			{ObjectID: "Cabinet|1", ObjectType: "Cabinet", Receptacle: true},
			{ObjectID: "Cabinet|2", ObjectType: "Cabinet", Receptacle: true},
			{ObjectID: "Pot|1", ObjectType: "Pot", Receptacle: true},
			{ObjectID: "Pan|1", ObjectType: "Pan", Receptacle: true},
			{ObjectID: "Mug|1", ObjectType: "Mug", Pickupable: true},
		},
	}}
	pivotSlots := map[string][]int{"Cabinet|1": {0, 1}}

	action := RandomInitializeAction(last, pivotSlots, RandomizeOptions{})

	// Receptacles with recorded pivot anchors stay put, as does cookware.
	assert.ElementsMatch(t,
		[]string{"Cabinet|1", "Pot|1", "Pan|1"},
		action.ExcludeObjectIDs)
}

func TestRandomInitializeCookwareExcludedWithoutPivotData(t *testing.T) {
	last := &schemas.Event{Metadata: schemas.Metadata{
		Objects: []schemas.ObjectObservation{
			{ObjectID: "Pot|1", ObjectType: "Pot", Receptacle: true},
			{ObjectID: "Cabinet|1", ObjectType: "Cabinet", Receptacle: true},
		},
	}}

	action := RandomInitializeAction(last, nil, RandomizeOptions{})
	assert.Equal(t, []string{"Pot|1"}, action.ExcludeObjectIDs)
}

func TestRandomInitializeOptionsPassThrough(t *testing.T) {
	seed := uint32(42)
	pairs := []schemas.ReceptacleObjectPair{
		{ObjectID: "Mug|1", ReceptacleObjectID: "Cabinet|1"},
	}

	action := RandomInitializeAction(nil, nil, RandomizeOptions{
		Seed:              &seed,
		RandomizeOpen:     true,
		UniqueObjectTypes: true,
		ExcludePairs:      pairs,
	})

	assert.Equal(t, uint32(42), action.RandomSeed)
	assert.True(t, action.RandomizeOpen)
	assert.True(t, action.UniquePickupableObjectTypes)
	assert.Equal(t, pairs, action.ExcludeReceptacleObjectPairs)
}

func TestRandomInitializeFreshSeedWhenUnset(t *testing.T) {
	// With no seed supplied every call draws its own.
	a := RandomInitializeAction(nil, nil, RandomizeOptions{})
	b := RandomInitializeAction(nil, nil, RandomizeOptions{})
	assert.NotEqual(t, a.RandomSeed, b.RandomSeed)
}
