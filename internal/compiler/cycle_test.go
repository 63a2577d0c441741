package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	graph := DependencyGraph{
		"demo/Outer": {"demo/Inner", "std_msgs/Header"},
		"demo/Inner": {"std_msgs/Header"},
		"std_msgs/Header": {"builtin_interfaces/Time"},
	}
	assert.Empty(t, AnalyzeCycles(graph))
}

func TestAnalyzeCycles_SelfReference(t *testing.T) {
	cycles := AnalyzeCycles(DependencyGraph{"demo/Node": {"demo/Node"}})
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"demo/Node", "demo/Node"}, cycles[0].Path)
}

func TestAnalyzeCycles_TwoNodeCycle(t *testing.T) {
	graph := DependencyGraph{
		"demo/B": {"demo/A"},
		"demo/A": {"demo/B"},
		"demo/C": {"demo/A"},
	}
	cycles := AnalyzeCycles(graph)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"demo/A", "demo/B", "demo/A"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Error(), "demo/A → demo/B → demo/A")
}

func TestAnalyzeCycles_Independent(t *testing.T) {
	graph := DependencyGraph{
		"x/A": {"x/B"}, "x/B": {"x/A"},
		"y/C": {"y/C"},
	}
	cycles := AnalyzeCycles(graph)
	require.Len(t, cycles, 2)
	assert.Equal(t, "x/A", cycles[0].Path[0])
	assert.Equal(t, "y/C", cycles[1].Path[0])
}

func TestAnalyzeCycles_PathIsShortestClosedWalk(t *testing.T) {
	// demo/A → demo/C → demo/D → demo/B → demo/A is also a cycle.
	graph := DependencyGraph{
		"demo/A": {"demo/C", "demo/B"},
		"demo/B": {"demo/A"},
		"demo/C": {"demo/D"},
		"demo/D": {"demo/B"},
	}
	cycles := AnalyzeCycles(graph)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"demo/A", "demo/B", "demo/A"}, cycles[0].Path)
	assert.Equal(t, []string{"demo/A", "demo/B", "demo/C", "demo/D"}, cycles[0].Members)
}
