package engine

import (
	"fmt"
	"sort"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// dependencyGraph is a directed graph over a plan's steps:
// prerequisite -> dependents.
type dependencyGraph struct {
	steps    map[string]*models.ExecutionStep
	order    map[string]int // step id -> position in the plan
	edges    map[string][]string
	inDegree map[string]int
}

func buildDependencyGraph(steps []models.ExecutionStep) *dependencyGraph {
	g := &dependencyGraph{
		steps:    make(map[string]*models.ExecutionStep, len(steps)),
		order:    make(map[string]int, len(steps)),
		edges:    make(map[string][]string),
		inDegree: make(map[string]int, len(steps)),
	}

	for i := range steps {
		g.steps[steps[i].ID] = &steps[i]
		g.order[steps[i].ID] = i
		g.inDegree[steps[i].ID] = 0
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, exists := g.steps[dep]; !exists {
				// Unknown dependencies are caught by plan validation.
				continue
			}
			g.edges[dep] = append(g.edges[dep], step.ID)
			g.inDegree[step.ID]++
		}
	}

	return g
}

// hasCycle detects cycles using DFS with color marking.
func (g *dependencyGraph) hasCycle() bool {
	const (
		white = 0 // not visited
		gray  = 1 // visiting
		black = 2 // visited
	)

	colors := make(map[string]int, len(g.steps))
	for id := range g.steps {
		colors[id] = white
	}

	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray
		for _, neighbor := range g.edges[node] {
			if colors[neighbor] == gray {
				return true // back edge
			}
			if colors[neighbor] == white && dfs(neighbor) {
				return true
			}
		}
		colors[node] = black
		return false
	}

	for id, step := range g.steps {
		for _, dep := range step.DependsOn {
			if dep == id {
				return true // self-reference
			}
		}
	}

	for id := range g.steps {
		if colors[id] == white {
			if dfs(id) {
				return true
			}
		}
	}

	return false
}

// calculateWaves groups steps into execution waves with Kahn's
// algorithm: steps with no dependencies form wave 1, steps depending
// only on wave 1 form wave 2, and so on. Steps within a wave keep plan
// order.
func calculateWaves(steps []models.ExecutionStep) ([][]models.ExecutionStep, error) {
	if len(steps) == 0 {
		return nil, nil
	}

	graph := buildDependencyGraph(steps)
	if graph.hasCycle() {
		return nil, fmt.Errorf("circular dependency detected")
	}

	inDegree := make(map[string]int, len(graph.inDegree))
	for k, v := range graph.inDegree {
		inDegree[k] = v
	}

	var waves [][]models.ExecutionStep
	for len(inDegree) > 0 {
		var currentIDs []string
		for id, degree := range inDegree {
			if degree == 0 {
				currentIDs = append(currentIDs, id)
			}
		}
		if len(currentIDs) == 0 {
			return nil, fmt.Errorf("graph error: no steps with zero in-degree")
		}

		// Keep plan order within the wave for readable logs.
		sort.Slice(currentIDs, func(i, j int) bool {
			return graph.order[currentIDs[i]] < graph.order[currentIDs[j]]
		})

		wave := make([]models.ExecutionStep, 0, len(currentIDs))
		for _, id := range currentIDs {
			wave = append(wave, *graph.steps[id])
		}
		waves = append(waves, wave)

		for _, id := range currentIDs {
			delete(inDegree, id)
			for _, dependent := range graph.edges[id] {
				if _, exists := inDegree[dependent]; exists {
					inDegree[dependent]--
				}
			}
		}
	}

	return waves, nil
}
