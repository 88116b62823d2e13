package generic

import (
	"fmt"
	"sort"
)

// =============================================================================
// DEPENDENCY GRAPH - Evaluation order across linked contracts
// =============================================================================

// DependencyGraph records which contracts must be evaluated before others.
// Credit enhancements depend on the contracts they cover.
type DependencyGraph struct {
	deps  map[ContractID][]ContractID
	order []ContractID
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{deps: make(map[ContractID][]ContractID)}
}

// Add registers a contract and the contracts it depends on. Adding the same
// contract twice merges its dependencies.
func (g *DependencyGraph) Add(id ContractID, dependsOn ...ContractID) {
	if _, ok := g.deps[id]; !ok {
		g.order = append(g.order, id)
		g.deps[id] = nil
	}
	g.deps[id] = append(g.deps[id], dependsOn...)
}

// DependenciesOf returns what id depends on.
func (g *DependencyGraph) DependenciesOf(id ContractID) []ContractID {
	return g.deps[id]
}

// Levels groups contracts so that each depends only on earlier levels.
// Contracts within a level are independent and sorted by ID.
func (g *DependencyGraph) Levels() ([][]ContractID, error) {
	indegree := make(map[ContractID]int, len(g.deps))
	dependents := make(map[ContractID][]ContractID, len(g.deps))
	for _, id := range g.order {
		seen := make(map[ContractID]bool)
		for _, dep := range g.deps[id] {
			if _, ok := g.deps[dep]; !ok {
				return nil, fmt.Errorf("contract %s depends on %s: %w", id, dep, ErrMissingDependency)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var current []ContractID
	for _, id := range g.order {
		if indegree[id] == 0 {
			current = append(current, id)
		}
	}

	var levels [][]ContractID
	done := 0
	for len(current) > 0 {
		sort.Slice(current, func(i, j int) bool { return current[i] < current[j] })
		levels = append(levels, current)
		done += len(current)

		var next []ContractID
		for _, id := range current {
			for _, d := range dependents[id] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		current = next
	}

	if done != len(g.order) {
		var stuck []ContractID
		for _, id := range g.order {
			if indegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("contracts %v: %w", stuck, ErrDependencyCycle)
	}
	return levels, nil
}
