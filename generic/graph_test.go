package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/generic"
)

func TestDependencyGraph_Levels(t *testing.T) {
	// GIVEN: a guarantee covering two loans and a collateral covering the guarantee
	g := generic.NewDependencyGraph()
	g.Add("loan-b")
	g.Add("loan-a")
	g.Add("guarantee", "loan-a", "loan-b")
	g.Add("collateral", "guarantee", "loan-a")

	// WHEN
	levels, err := g.Levels()

	// THEN: covered contracts first, each level sorted
	require.NoError(t, err)
	assert.Equal(t, [][]generic.ContractID{
		{"loan-a", "loan-b"},
		{"guarantee"},
		{"collateral"},
	}, levels)
}

func TestDependencyGraph_Cycle(t *testing.T) {
	g := generic.NewDependencyGraph()
	g.Add("a", "b")
	g.Add("b", "a")
	g.Add("c")

	_, err := g.Levels()

	assert.ErrorIs(t, err, generic.ErrDependencyCycle)
}

func TestDependencyGraph_MissingDependency(t *testing.T) {
	g := generic.NewDependencyGraph()
	g.Add("guarantee", "ghost")

	_, err := g.Levels()

	assert.ErrorIs(t, err, generic.ErrMissingDependency)
}
