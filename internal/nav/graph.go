// File: internal/nav/graph.go

// Package nav builds the reachability graph over accepted grid points and
// plans action sequences along it. The grid is small and uniform, so the
// graph is a plain adjacency map and shortest paths are unweighted
// breadth-first search; no graph library is warranted.
package nav

import (
	"errors"
	"fmt"

	"github.com/codealphago/ai2thor/api/schemas"
)

// edgeTolerance absorbs floating-point rounding in positions reported by
// the engine. It is far below half a grid step, so diagonal or skipping
// pairs can never slip in.
const edgeTolerance = 0.01

// ErrNoPath reports that two grid points are not connected. Callers are
// expected to have checked connectivity first; hitting this mid-plan means
// the search state is inconsistent.
var ErrNoPath = errors.New("no path between grid points")

// KeyFor quantizes a position to the canonical grid node key. Fixed
// three-decimal formatting sidesteps float-equality comparisons.
func KeyFor(p schemas.Vector3) string {
	return fmt.Sprintf("%0.3f|%0.3f", p.X, p.Z)
}

// Graph is an undirected reachability graph: nodes are grid point keys,
// edges join points exactly one grid step apart.
type Graph struct {
	gridSize  float64
	points    map[string]schemas.Vector3
	adjacency map[string][]string
}

// Build constructs the graph from accepted grid points. Every pair is
// tested; n is bounded by scene size at grid resolution, so the quadratic
// sweep is fine.
func Build(points []schemas.Vector3, gridSize float64) *Graph {
	g := &Graph{
		gridSize:  gridSize,
		points:    make(map[string]schemas.Vector3, len(points)),
		adjacency: make(map[string][]string, len(points)),
	}
	for _, p := range points {
		key := KeyFor(p)
		g.points[key] = p
		if _, ok := g.adjacency[key]; !ok {
			g.adjacency[key] = nil
		}
	}
	for _, a := range points {
		for _, b := range points {
			dist := schemas.PlanarDistance(a, b)
			if dist > 0 && dist <= gridSize+edgeTolerance {
				g.adjacency[KeyFor(a)] = append(g.adjacency[KeyFor(a)], KeyFor(b))
			}
		}
	}
	return g
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.points) }

// Point resolves a node key back to its world position.
func (g *Graph) Point(key string) (schemas.Vector3, bool) {
	p, ok := g.points[key]
	return p, ok
}

// Neighbors returns the node keys one grid step away.
func (g *Graph) Neighbors(key string) []string {
	return g.adjacency[key]
}

// Connected reports whether every node is reachable from every other.
func (g *Graph) Connected() bool {
	if len(g.points) == 0 {
		return true
	}
	var start string
	for key := range g.points {
		start = key
		break
	}
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return len(visited) == len(g.points)
}

// ShortestPath returns the node keys of an unweighted shortest path from
// one key to another, inclusive of both endpoints.
func (g *Graph) ShortestPath(from, to string) ([]string, error) {
	if _, ok := g.points[from]; !ok {
		return nil, fmt.Errorf("%w: unknown start %s", ErrNoPath, from)
	}
	if _, ok := g.points[to]; !ok {
		return nil, fmt.Errorf("%w: unknown target %s", ErrNoPath, to)
	}
	if from == to {
		return []string{from}, nil
	}

	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = node
			if next == to {
				return unwind(parent, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrNoPath, from, to)
}

func unwind(parent map[string]string, from, to string) []string {
	var reversed []string
	for node := to; node != ""; node = parent[node] {
		reversed = append(reversed, node)
		if node == from {
			break
		}
	}
	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
