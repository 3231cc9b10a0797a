// File: internal/explore/searchpoint.go
package explore

import "github.com/codealphago/ai2thor/api/schemas"

// SearchPoint is one pending candidate move on the frontier: teleport to
// Start, then attempt the relative Move. Heading and horizon ride along for
// planners that care about the approach pose.
type SearchPoint struct {
	Start        schemas.Vector3
	Move         schemas.MoveVector
	HeadingAngle float64
	HorizonAngle float64
}

// TargetPoint is the XZ position the move would land on if it succeeds.
// Used for de-duplication before the move is ever attempted.
func (p SearchPoint) TargetPoint() schemas.Vector3 {
	return schemas.Vector3{
		X: p.Start.X + p.Move.DX,
		Z: p.Start.Z + p.Move.DZ,
	}
}
