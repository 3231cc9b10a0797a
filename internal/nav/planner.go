// File: internal/nav/planner.go
package nav

import (
	"fmt"
	"math"

	"github.com/codealphago/ai2thor/api/schemas"
)

// cardinal describes one forward direction at a canonical heading: the
// integer grid offset it covers and the action that walks it. The table is
// exhaustive and collision-free for axis-aligned single-step grids, so a
// neighbor offset always resolves to exactly one action.
type cardinal struct {
	x, z   int
	action schemas.Action
}

var actionOrientation = map[int]cardinal{
	0:   {x: 0, z: 1, action: schemas.MoveAhead{}},
	90:  {x: 1, z: 0, action: schemas.MoveRight{}},
	180: {x: 0, z: -1, action: schemas.MoveBack{}},
	270: {x: -1, z: 0, action: schemas.MoveLeft{}},
}

// horizonSteps indexes the discrete camera tilts from most-upward (330) to
// most-downward (60). Reconciliation walks this index.
var horizonSteps = map[int]int{330: 3, 0: 2, 30: 1, 60: 0}

// MovesFrom maps each neighbor key of the given position to the cardinal
// action that reaches it under the given heading. The neighbor's grid
// offset is matched against the orientation table rotated by the heading.
func MovesFrom(g *Graph, position schemas.Vector3, rotation float64) map[string]schemas.Action {
	moves := make(map[string]schemas.Action)
	for _, neighborKey := range g.Neighbors(KeyFor(position)) {
		neighbor, ok := g.Point(neighborKey)
		if !ok {
			continue
		}
		xo := int(math.Round((neighbor.X - position.X) / g.gridSize))
		zo := int(math.Round((neighbor.Z - position.Z) / g.gridSize))
		for targetRotation, entry := range actionOrientation {
			delta := (int(math.Round(rotation)) + targetRotation) % 360
			rotated := actionOrientation[delta]
			if xo == rotated.x && zo == rotated.z {
				moves[neighborKey] = entry.action
				break
			}
		}
	}
	return moves
}

// PlanHorizons emits the LookUp/LookDown sequence that takes the camera
// from one discrete tilt to another.
func PlanHorizons(agentHorizon, targetHorizon float64) ([]schemas.Action, error) {
	agentStep, ok := horizonSteps[int(agentHorizon)]
	if !ok {
		return nil, fmt.Errorf("horizon %v is not a legal camera tilt", agentHorizon)
	}
	targetStep, ok := horizonSteps[int(targetHorizon)]
	if !ok {
		return nil, fmt.Errorf("horizon %v is not a legal camera tilt", targetHorizon)
	}

	diff := agentStep - targetStep
	var actions []schemas.Action
	if diff > 0 {
		for i := 0; i < diff; i++ {
			actions = append(actions, schemas.LookDown{})
		}
	} else {
		for i := 0; i < -diff; i++ {
			actions = append(actions, schemas.LookUp{})
		}
	}
	return actions, nil
}

// PlanRotations emits the shorter of the clockwise and counter-clockwise
// rotation sequences between two headings, in 90 degree steps. An exact
// tie (180 degrees) always turns left.
func PlanRotations(agentRotation, targetRotation float64) []schemas.Action {
	rightDiff := targetRotation - agentRotation
	if rightDiff < 0 {
		rightDiff += 360
	}
	rightSteps := int(rightDiff / 90)

	leftDiff := agentRotation - targetRotation
	if leftDiff < 0 {
		leftDiff += 360
	}
	leftSteps := int(leftDiff / 90)

	var actions []schemas.Action
	if rightSteps < leftSteps {
		for i := 0; i < rightSteps; i++ {
			actions = append(actions, schemas.RotateRight{})
		}
	} else {
		for i := 0; i < leftSteps; i++ {
			actions = append(actions, schemas.RotateLeft{})
		}
	}
	return actions
}

// ShortestPlan converts a shortest path between the agent's pose and a
// target pose into an ordered action sequence: all translations first, then
// camera tilt reconciliation, then heading reconciliation.
func ShortestPlan(g *Graph, agent, target schemas.Agent) ([]schemas.Action, error) {
	path, err := g.ShortestPath(KeyFor(agent.Position), KeyFor(target.Position))
	if err != nil {
		return nil, err
	}

	var actions []schemas.Action
	currentPosition := agent.Position
	currentRotation := agent.Rotation.Y

	for _, key := range path[1:] {
		moves := MovesFrom(g, currentPosition, currentRotation)
		action, ok := moves[key]
		if !ok {
			return nil, fmt.Errorf("no cardinal action reaches %s from %s", key, KeyFor(currentPosition))
		}
		actions = append(actions, action)
		next, _ := g.Point(key)
		currentPosition = next
	}

	horizons, err := PlanHorizons(agent.CameraHorizon, target.CameraHorizon)
	if err != nil {
		return nil, err
	}
	actions = append(actions, horizons...)
	actions = append(actions, PlanRotations(agent.Rotation.Y, target.Rotation.Y)...)
	return actions, nil
}
