// Package transform filters the linked batch without disturbing its order.
//
// Two filters apply in sequence: a case-insensitive subset, then
// bidirectional graph pruning (ancestors of the requested outputs,
// descendants of the requested inputs, or their intersection). Both are
// no-ops when their inputs are empty.
package transform

import (
	"golang.org/x/text/cases"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/rules"
)

var fold = cases.Fold()

// Apply returns the ruleblocks that survive the subset and pruning filters,
// in the order they were given. The linked order is preserved by filtering
// in place; nothing is re-sorted.
func Apply(linked *linker.Linked, opts rules.Options) []*rules.Ruleblock {
	blocks := linked.Blocks

	if len(opts.Subset) > 0 {
		want := foldSet(opts.Subset)
		blocks = filter(blocks, func(b *rules.Ruleblock) bool {
			return want[fold.String(b.Name)]
		})
	}

	keep := pruneSet(linked.Graph, opts.PruneInputs, opts.PruneOutputs)
	if keep != nil {
		blocks = filter(blocks, func(b *rules.Ruleblock) bool {
			return keep[fold.String(b.Name)]
		})
	}

	return blocks
}

// pruneSet computes the names to keep, case-folded. It returns nil when no
// pruning was requested ("keep all").
//
//	only outputs given: ancestors of the outputs (what they depend on)
//	only inputs given:  descendants of the inputs (what consumes them)
//	both given:         the intersection
func pruneSet(g *linker.Graph, inputs, outputs []string) map[string]bool {
	if len(inputs) == 0 && len(outputs) == 0 {
		return nil
	}

	var anc, desc map[string]bool
	if len(outputs) > 0 {
		anc = closure(g, outputs, g.Dependencies)
	}
	if len(inputs) > 0 {
		desc = closure(g, inputs, g.Dependents)
	}

	switch {
	case anc == nil:
		return desc
	case desc == nil:
		return anc
	default:
		both := make(map[string]bool)
		for name := range anc {
			if desc[name] {
				both[name] = true
			}
		}
		return both
	}
}

// closure walks the transitive closure from the seed names (inclusive) along
// the given neighbour function. Seeds naming absent ruleblocks are ignored.
// The result keys are case-folded.
func closure(g *linker.Graph, seeds []string, next func(string) []string) map[string]bool {
	folded := foldSet(seeds)
	reached := make(map[string]bool)

	var queue []string
	for _, node := range g.Nodes() {
		if folded[fold.String(node)] {
			queue = append(queue, node)
			reached[fold.String(node)] = true
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, n := range next(node) {
			key := fold.String(n)
			if !reached[key] {
				reached[key] = true
				queue = append(queue, n)
			}
		}
	}
	return reached
}

func foldSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[fold.String(n)] = true
	}
	return set
}

func filter(blocks []*rules.Ruleblock, keep func(*rules.Ruleblock) bool) []*rules.Ruleblock {
	out := make([]*rules.Ruleblock, 0, len(blocks))
	for _, b := range blocks {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}
