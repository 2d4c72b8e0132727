package linker

import (
	"github.com/roach88/picorules/internal/rules"
)

// Link error codes (E300-E399).
const (
	ErrCircularDependency = "E301" // dependency cycle between ruleblocks
)

// Linked is the output of linking: the batch in dependency order plus the
// graph the order was derived from.
type Linked struct {
	// Blocks holds the ruleblocks in execution order: for any bind from A to
	// a present B, B precedes A. Unconstrained ruleblocks keep their input
	// order.
	Blocks []*rules.Ruleblock

	// Graph is the dependency graph over present ruleblocks.
	Graph *Graph
}

// Link extracts references, builds the dependency graph, rejects cycles, and
// orders the batch topologically.
func Link(blocks []*rules.Ruleblock) (*Linked, *rules.Error) {
	for _, b := range blocks {
		extractRefs(b)
	}

	g := NewGraph(blocks)
	if err := detectCycle(g); err != nil {
		return nil, err
	}

	order := topoOrder(g)
	byName := make(map[string]*rules.Ruleblock, len(blocks))
	for _, b := range blocks {
		byName[b.Name] = b
	}
	ordered := make([]*rules.Ruleblock, 0, len(blocks))
	for _, name := range order {
		ordered = append(ordered, byName[name])
	}

	return &Linked{Blocks: ordered, Graph: g}, nil
}

// topoOrder returns the nodes dependencies-first. It is the postorder of
// a DFS that visits nodes in input order and recurses into
// dependencies before placing a node; already-placed nodes are skipped.
func topoOrder(g *Graph) []string {
	var (
		order  []string
		placed = make(map[string]bool, len(g.nodes))
	)
	var visit func(node string)
	visit = func(node string) {
		if placed[node] {
			return
		}
		placed[node] = true
		for _, dep := range g.edges[node] {
			visit(dep)
		}
		order = append(order, node)
	}
	for _, node := range g.nodes {
		visit(node)
	}
	return order
}
