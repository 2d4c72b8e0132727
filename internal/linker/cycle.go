package linker

import (
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// DFS colouring states.
const (
	white = iota // unvisited
	grey         // on the current DFS path
	black        // fully explored
)

// detectCycle searches the graph for a dependency cycle. On encountering a
// grey successor it reconstructs the path and reports a single cycle as an
// arrow-joined list of names. Any cycle aborts compilation.
func detectCycle(g *Graph) *rules.Error {
	colour := make(map[string]int, len(g.nodes))
	parent := make(map[string]string, len(g.nodes))

	var visit func(node string) *rules.Error
	visit = func(node string) *rules.Error {
		colour[node] = grey
		for _, dep := range g.edges[node] {
			switch colour[dep] {
			case white:
				parent[dep] = node
				if err := visit(dep); err != nil {
					return err
				}
			case grey:
				return cycleError(node, dep, parent)
			}
		}
		colour[node] = black
		return nil
	}

	for _, node := range g.nodes {
		if colour[node] == white {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleError walks parent links from the re-entered node back to the start
// of the cycle and formats the path start → ... → start.
func cycleError(from, start string, parent map[string]string) *rules.Error {
	path := []string{start}
	for node := from; node != start; node = parent[node] {
		path = append(path, node)
	}
	// parent links run backwards; reverse into traversal order.
	for i, j := 1, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	path = append(path, start)

	return &rules.Error{
		Code:    ErrCircularDependency,
		Message: "Circular dependency: " + strings.Join(path, " → "),
	}
}
