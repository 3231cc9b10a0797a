// File: internal/scene/targets_test.go
package scene

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codealphago/ai2thor/api/schemas"
)

// fakeSession serves a fixed last event and records every opened object.
type fakeSession struct {
	last   *schemas.Event
	opened []string
}

func (s *fakeSession) Step(ctx context.Context, action schemas.Action) (*schemas.Event, error) {
	if open, ok := action.(schemas.OpenObject); ok {
		s.opened = append(s.opened, open.ObjectID)
	}
	return s.last, nil
}

func (s *fakeSession) StepOrFail(ctx context.Context, action schemas.Action) (*schemas.Event, error) {
	return s.Step(ctx, action)
}

func (s *fakeSession) LastEvent() *schemas.Event { return s.last }

func kitchenEvent() *schemas.Event {
	return &schemas.Event{Metadata: schemas.Metadata{
		LastActionSuccess: true,
		Objects: []schemas.ObjectObservation{
			{
				ObjectID: "Cabinet|1", Receptacle: true, Openable: true,
				Position:            schemas.Vector3{X: 0, Z: 0},
				ReceptacleObjectIDs: []string{"Mug|1"},
			},
			{
				ObjectID: "Cabinet|2", Receptacle: true, Openable: true,
				Position:            schemas.Vector3{X: 0.5, Z: 0},
				ReceptacleObjectIDs: []string{"Plate|1"},
			},
			{
				ObjectID: "Fridge|1", Receptacle: true, Openable: true,
				Position:            schemas.Vector3{X: 3, Z: 0},
				ReceptacleObjectIDs: []string{"Egg|1"},
			},
			// Not openable and not contained anywhere: its content can
			// never be a target.
			{
				ObjectID: "CounterTop|1", Receptacle: true,
				Position:            schemas.Vector3{X: 1, Z: 1},
				ReceptacleObjectIDs: []string{"Knife|1"},
			},
			{ObjectID: "Mug|1", Pickupable: true},
			{ObjectID: "Plate|1", Pickupable: true},
			{ObjectID: "Egg|1", Pickupable: true},
			{ObjectID: "Knife|1", Pickupable: true},
		},
	}}
}

func TestInitializeTargetsSeparation(t *testing.T) {
	// Whatever the shuffle picks first, a second receptacle more than the
	// minimum separation away always exists in this layout.
	for seed := int64(0); seed < 8; seed++ {
		session := &fakeSession{last: kitchenEvent()}
		setup, err := InitializeTargets(context.Background(), session, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		require.Len(t, setup.TargetObjects, 2, "seed %d", seed)
		assert.NotContains(t, setup.TargetObjects, "Knife|1")

		first := setup.ObjectReceptacle[setup.TargetObjects[0]]
		second := setup.ObjectReceptacle[setup.TargetObjects[1]]
		assert.Greater(t,
			schemas.PlanarDistance(first.Position, second.Position),
			minReceptacleSeparation, "seed %d", seed)

		// Exactly the targets' receptacles were opened.
		assert.Equal(t, setup.OpenReceptacles, session.opened)
		assert.Len(t, session.opened, 2)
	}
}

func TestInitializeTargetsSingleCandidate(t *testing.T) {
	event := &schemas.Event{Metadata: schemas.Metadata{
		Objects: []schemas.ObjectObservation{
			{
				ObjectID: "Cabinet|1", Receptacle: true, Openable: true,
				ReceptacleObjectIDs: []string{"Mug|1"},
			},
			{ObjectID: "Mug|1", Pickupable: true},
		},
	}}
	session := &fakeSession{last: event}

	setup, err := InitializeTargets(context.Background(), session, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, []string{"Mug|1"}, setup.TargetObjects)
	assert.Equal(t, []string{"Cabinet|1"}, session.opened)
}

func TestInitializeTargetsNestedReceptacle(t *testing.T) {
	// An egg in a bowl in a fridge: the fridge door gets opened, not the
	// bowl.
	event := &schemas.Event{Metadata: schemas.Metadata{
		Objects: []schemas.ObjectObservation{
			{
				ObjectID: "Fridge|1", Receptacle: true, Openable: true,
				ReceptacleObjectIDs: []string{"Bowl|1"},
			},
			{
				ObjectID: "Bowl|1", Receptacle: true,
				ReceptacleObjectIDs: []string{"Egg|1"},
			},
			{ObjectID: "Egg|1", Pickupable: true},
		},
	}}
	session := &fakeSession{last: event}

	setup, err := InitializeTargets(context.Background(), session, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Contains(t, setup.TargetObjects, "Egg|1")
	assert.Contains(t, session.opened, "Fridge|1")
	assert.NotContains(t, session.opened, "Bowl|1")
}

func TestInitializeTargetsNoCandidates(t *testing.T) {
	event := &schemas.Event{Metadata: schemas.Metadata{
		Objects: []schemas.ObjectObservation{
			{
				ObjectID: "CounterTop|1", Receptacle: true,
				ReceptacleObjectIDs: []string{"Knife|1"},
			},
			{ObjectID: "Knife|1", Pickupable: true},
		},
	}}
	session := &fakeSession{last: event}

	setup, err := InitializeTargets(context.Background(), session, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, setup.TargetObjects)
	assert.Empty(t, session.opened)
}

func TestInitializeTargetsNilEvent(t *testing.T) {
	session := &fakeSession{}
	setup, err := InitializeTargets(context.Background(), session, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Empty(t, setup.TargetObjects)
}
