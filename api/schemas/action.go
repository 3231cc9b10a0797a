// api/schemas/action.go
package schemas

import "fmt"

// Action is the closed set of commands the engine understands. Each variant
// carries its own typed parameter struct, so an action payload can only ever
// contain primitive scalars, strings, or nested primitive structures; there
// is no dynamic parameter bag and no runtime-unknown action name.
type Action interface {
	// ActionName is the wire-level "action" discriminator.
	ActionName() string
}

// Reset discards engine state and loads the named scene.
type Reset struct {
	SceneName string `json:"sceneName"`
}

func (Reset) ActionName() string { return "Reset" }

// Initialize configures the scene after a reset; gridSize is the uniform
// step the engine snaps agent translations to.
type Initialize struct {
	GridSize float64 `json:"gridSize"`
}

func (Initialize) ActionName() string { return "Initialize" }

// ReceptacleSpec tells the randomizer which item types a receptacle type
// may legally contain.
type ReceptacleSpec struct {
	ReceptacleObjectType string   `json:"receptacleObjectType"`
	ItemObjectTypes      []string `json:"itemObjectTypes"`
}

// ReceptacleObjectPair pins one object/receptacle assignment so the
// randomizer will not reproduce it.
type ReceptacleObjectPair struct {
	ObjectID           string `json:"objectId"`
	ReceptacleObjectID string `json:"receptacleObjectId"`
}

// RandomInitialize shuffles pickupable objects into receptacles under the
// given constraints. The seed and exclusion lists are opaque to the core;
// they are forwarded untouched.
type RandomInitialize struct {
	ReceptacleObjects            []ReceptacleSpec       `json:"receptacleObjects"`
	RandomizeOpen                bool                   `json:"randomizeOpen"`
	UniquePickupableObjectTypes  bool                   `json:"uniquePickupableObjectTypes"`
	ExcludeObjectIDs             []string               `json:"excludeObjectIds"`
	ExcludeReceptacleObjectPairs []ReceptacleObjectPair `json:"excludeReceptacleObjectPairs"`
	RandomSeed                   uint32                 `json:"randomSeed"`
}

func (RandomInitialize) ActionName() string { return "RandomInitialize" }

// Teleport places the agent at an absolute world position.
type Teleport struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (Teleport) ActionName() string { return "Teleport" }

// Move translates the agent by a relative XZ vector scaled to
// MoveMagnitude. Unused axes stay zero and are still sent on the wire.
type Move struct {
	X             float64 `json:"x"`
	Z             float64 `json:"z"`
	MoveMagnitude float64 `json:"moveMagnitude"`
}

func (Move) ActionName() string { return "Move" }

// MoveRelative builds a Move action from a move vector and magnitude.
func MoveRelative(v MoveVector, magnitude float64) Move {
	return Move{X: v.DX, Z: v.DZ, MoveMagnitude: magnitude}
}

// Cardinal single-step moves used by planned paths. The engine applies its
// configured grid size as the step length.
type MoveAhead struct{}

func (MoveAhead) ActionName() string { return "MoveAhead" }

type MoveRight struct{}

func (MoveRight) ActionName() string { return "MoveRight" }

type MoveBack struct{}

func (MoveBack) ActionName() string { return "MoveBack" }

type MoveLeft struct{}

func (MoveLeft) ActionName() string { return "MoveLeft" }

// RotateLook sets heading and camera tilt in one action.
type RotateLook struct {
	Rotation float64 `json:"rotation"`
	Horizon  float64 `json:"horizon"`
}

func (RotateLook) ActionName() string { return "RotateLook" }

type RotateRight struct{}

func (RotateRight) ActionName() string { return "RotateRight" }

type RotateLeft struct{}

func (RotateLeft) ActionName() string { return "RotateLeft" }

type LookUp struct{}

func (LookUp) ActionName() string { return "LookUp" }

type LookDown struct{}

func (LookDown) ActionName() string { return "LookDown" }

// PickupObject lifts a pickupable object into the agent's hand.
type PickupObject struct {
	ObjectID     string `json:"objectId"`
	ForceVisible bool   `json:"forceVisible"`
}

func (PickupObject) ActionName() string { return "PickupObject" }

// OpenObject opens an openable receptacle.
type OpenObject struct {
	ObjectID     string `json:"objectId"`
	ForceVisible bool   `json:"forceVisible"`
}

func (OpenObject) ActionName() string { return "OpenObject" }

// CloseObject closes an openable receptacle.
type CloseObject struct {
	ObjectID     string `json:"objectId"`
	ForceVisible bool   `json:"forceVisible"`
}

func (CloseObject) ActionName() string { return "CloseObject" }

// Replace places an object into a specific pivot slot of a receptacle.
type Replace struct {
	ObjectID           string `json:"objectId"`
	ReceptacleObjectID string `json:"receptacleObjectId"`
	Pivot              int    `json:"pivot"`
	ForceVisible       bool   `json:"forceVisible"`
}

func (Replace) ActionName() string { return "Replace" }

// MarshalAction flattens an action variant into the wire form
// {"action": <name>, "sequenceId": <seq>, ...params}. The variant's own
// fields are serialized first, then the discriminator and sequence id are
// injected at the top level.
func MarshalAction(a Action, sequenceID int64) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", a.ActionName(), err)
	}

	params := map[string]interface{}{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("failed to flatten %s params: %w", a.ActionName(), err)
	}
	params["action"] = a.ActionName()
	params["sequenceId"] = sequenceID

	out, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s action: %w", a.ActionName(), err)
	}
	return out, nil
}
