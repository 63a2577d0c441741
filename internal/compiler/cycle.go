package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports message types that nest each other. Such a type has no
// finite wire encoding, so every member is unusable, not just the path shown.
type CycleError struct {
	// Path is one closed walk through the cycle, first element repeated last,
	// e.g. ["demo/A", "demo/B", "demo/A"].
	Path []string `json:"path"`
	// Members is every type in the strongly connected component, sorted.
	Members []string `json:"members"`
	Message string   `json:"message"`
}

func (e *CycleError) Error() string { return e.Message }

// DependencyGraph maps a type name to the nested type names its fields use.
type DependencyGraph map[string][]string

// AnalyzeCycles returns one CycleError per strongly connected component that
// contains a cycle, ordered by the smallest member name.
func AnalyzeCycles(graph DependencyGraph) []CycleError {
	var cycles []CycleError
	for _, comp := range components(graph) {
		if len(comp) == 1 && !slices.Contains(graph[comp[0]], comp[0]) {
			continue
		}
		path := shortestCycle(comp[0], comp, graph)
		cycles = append(cycles, CycleError{
			Path:    path,
			Members: comp,
			Message: fmt.Sprintf("nested type cycle: %s", strings.Join(path, " → ")),
		})
	}
	slices.SortFunc(cycles, func(a, b CycleError) int {
		return strings.Compare(a.Members[0], b.Members[0])
	})
	return cycles
}

// sccFinder is Tarjan's algorithm. Roots are visited in sorted order so the
// output does not depend on map iteration.
type sccFinder struct {
	graph   DependencyGraph
	next    int
	index   map[string]int
	low     map[string]int
	stack   []string
	onStack map[string]bool
	out     [][]string
}

// components returns the strongly connected components of graph, each sorted.
func components(graph DependencyGraph) [][]string {
	f := &sccFinder{
		graph:   graph,
		index:   make(map[string]int, len(graph)),
		low:     make(map[string]int, len(graph)),
		onStack: make(map[string]bool, len(graph)),
	}
	roots := make([]string, 0, len(graph))
	for name := range graph {
		roots = append(roots, name)
	}
	slices.Sort(roots)
	for _, r := range roots {
		if _, seen := f.index[r]; !seen {
			f.visit(r)
		}
	}
	return f.out
}

func (f *sccFinder) visit(v string) {
	f.index[v], f.low[v] = f.next, f.next
	f.next++
	f.stack = append(f.stack, v)
	f.onStack[v] = true

	for _, w := range f.graph[v] {
		if _, seen := f.index[w]; !seen {
			f.visit(w)
			f.low[v] = min(f.low[v], f.low[w])
		} else if f.onStack[w] {
			f.low[v] = min(f.low[v], f.index[w])
		}
	}
	if f.low[v] != f.index[v] {
		return
	}

	i := slices.Index(f.stack, v)
	comp := slices.Clone(f.stack[i:])
	for _, w := range comp {
		f.onStack[w] = false
	}
	f.stack = f.stack[:i]
	slices.Sort(comp)
	f.out = append(f.out, comp)
}

// shortestCycle finds the shortest walk from start back to itself that stays
// inside comp. Edges are followed in declaration order, so ties go to the
// field declared first.
func shortestCycle(start string, comp []string, graph DependencyGraph) []string {
	parent := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range graph[v] {
			if !slices.Contains(comp, w) {
				continue
			}
			if w == start {
				path := []string{start}
				for n := v; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				slices.Reverse(path)
				return path
			}
			if _, seen := parent[w]; !seen {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []string{start, start}
}
