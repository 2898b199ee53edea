package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nodelink/internal/host"
	"github.com/roach88/nodelink/internal/ir"
)

// CycleWarning reports a feedback loop in a scene's structural links.
//
// Cycles are warnings, not errors: the host accepts them and some rigs are
// built on purpose around a loop broken by an expression node.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["Top/A", "Top/B", "Top/A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles finds loops in the dataflow described by spec.
//
// The algorithm:
//  1. Build a dependency graph from the links. A group's in-side feeds its
//     boundary-in proxy and its boundary-out proxy feeds the group's
//     out-side, so loops through nested scopes are found too.
//  2. Use Tarjan's algorithm to find strongly connected components.
//  3. Report each SCC with size > 1, and each self-loop, as a warning.
//
// Output is deterministic: nodes and edges are visited in key order.
func AnalyzeCycles(spec *ir.SceneSpec) []CycleWarning {
	warnings := []CycleWarning{}
	if len(spec.Links) == 0 {
		return warnings
	}

	graph := buildDependencyGraph(spec)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// dependencyGraph maps a vertex to the vertices it feeds. Vertices are node
// keys, except that a group is split into "key[in]" and "key[out]" so that
// a signal passing through a group is not mistaken for a loop.
type dependencyGraph map[string][]string

func buildDependencyGraph(spec *ir.SceneSpec) dependencyGraph {
	groups := make(map[ir.Key]bool)
	for _, ns := range spec.Nodes {
		if ns.Kind == ir.KindGroup && ns.Key != spec.Root {
			groups[ns.Key] = true
		}
	}
	vertex := func(key ir.Key, d ir.Direction) string {
		if groups[key] {
			return fmt.Sprintf("%s[%s]", key, d)
		}
		return string(key)
	}

	graph := make(dependencyGraph)
	addEdge := func(from, to string) {
		if graph[to] == nil {
			graph[to] = []string{}
		}
		if !slices.Contains(graph[from], to) {
			graph[from] = append(graph[from], to)
		}
	}

	for g := range groups {
		addEdge(vertex(g, ir.In), string(ir.JoinKey(g, host.BoundaryInName)))
		addEdge(string(ir.JoinKey(g, host.BoundaryOutName)), vertex(g, ir.Out))
	}
	for _, ls := range spec.Links {
		addEdge(vertex(ls.From.Node, ir.Out), vertex(ls.To.Node, ir.In))
	}

	for k := range graph {
		slices.Sort(graph[k])
	}
	return graph
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		key := scc[0]
		return CycleWarning{
			Path:    []string{key, key},
			Message: fmt.Sprintf("node feeds itself: %s → %s", key, key),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("feedback loop: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
