package linker

import (
	"github.com/roach88/picorules/internal/rules"
)

// Graph is the inter-ruleblock dependency graph. An edge A → B means A
// depends on B (A contains a bind targeting B). Node and edge iteration
// order is insertion order, which keeps the topological sort deterministic
// across runs.
type Graph struct {
	nodes   []string
	edges   map[string][]string
	present map[string]bool
}

// NewGraph builds the graph over the given ruleblocks. Only present nodes
// exist; binds to ruleblocks outside the batch contribute no edges.
func NewGraph(blocks []*rules.Ruleblock) *Graph {
	g := &Graph{
		edges:   make(map[string][]string),
		present: make(map[string]bool),
	}
	for _, b := range blocks {
		g.nodes = append(g.nodes, b.Name)
		g.present[b.Name] = true
		g.edges[b.Name] = []string{}
	}
	for _, b := range blocks {
		for _, rule := range b.Rules {
			bind, ok := rule.(*rules.Bind)
			if !ok {
				continue
			}
			if g.present[bind.SourceRuleblock] {
				g.addEdge(b.Name, bind.SourceRuleblock)
			}
		}
	}
	return g
}

func (g *Graph) addEdge(from, to string) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Nodes returns the node names in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependencies returns the direct dependencies of a node in insertion order.
func (g *Graph) Dependencies(name string) []string {
	out := make([]string, len(g.edges[name]))
	copy(out, g.edges[name])
	return out
}

// Dependents returns the nodes that directly depend on name, in node
// insertion order.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, n := range g.nodes {
		for _, dep := range g.edges[n] {
			if dep == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Has reports whether the node exists in the graph.
func (g *Graph) Has(name string) bool {
	return g.present[name]
}

// Adjacency returns a copy of the adjacency mapping over present nodes.
func (g *Graph) Adjacency() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for _, n := range g.nodes {
		out[n] = g.Dependencies(n)
	}
	return out
}
