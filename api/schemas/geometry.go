// api/schemas/geometry.go
package schemas

import "math"

// Vector3 is a position in engine world space. Y is vertical and is ignored
// when points are compared as grid locations.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarDistance returns the Euclidean distance between two points projected
// onto the XZ plane. Grid reasoning never considers the vertical axis.
func PlanarDistance(a, b Vector3) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// MoveVector is a relative translation on the XZ plane. Both axes are
// required fields; an axis that is not part of the move stays at its zero
// value, so a MoveVector is always fully specified at construction.
type MoveVector struct {
	DX float64 `json:"x"`
	DZ float64 `json:"z"`
}

// Agent is the engine's report of the agent pose after an action.
// Rotation.Y carries the heading; the engine stores the camera tilt in
// its {330, 0, 30, 60} convention.
type Agent struct {
	Position      Vector3 `json:"position"`
	Rotation      Vector3 `json:"rotation"`
	CameraHorizon float64 `json:"cameraHorizon"`
}
