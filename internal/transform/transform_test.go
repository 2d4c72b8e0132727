package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/parser"
	"github.com/roach88/picorules/internal/rules"
)

// chain builds the linked batch a ← b ← c ← d (d binds c binds b binds a)
// plus an unrelated ruleblock.
func chain(t *testing.T) *linker.Linked {
	t.Helper()
	texts := map[string]string{
		"a":         "va => eadv.att1.val.last();",
		"b":         "vb => rout_a.va.val.bind();",
		"c":         "vc => rout_b.vb.val.bind();",
		"d":         "vd => rout_c.vc.val.bind();",
		"unrelated": "vu => eadv.att9.val.last();",
	}
	var blocks []*rules.Ruleblock
	for _, name := range []string{"a", "b", "c", "d", "unrelated"} {
		block, _, errs := parser.Parse(rules.NewRuleblock(name, texts[name]))
		require.Empty(t, errs)
		blocks = append(blocks, block)
	}
	linked, err := linker.Link(blocks)
	require.Nil(t, err)
	return linked
}

func names(blocks []*rules.Ruleblock) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Name)
	}
	return out
}

func TestApply_NoFiltersKeepsAll(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{})
	assert.Equal(t, []string{"a", "b", "c", "d", "unrelated"}, names(kept))
}

func TestApply_SubsetCaseInsensitive(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{Subset: []string{"B", "UNRELATED"}})
	assert.Equal(t, []string{"b", "unrelated"}, names(kept))
}

func TestApply_SubsetMissingNameYieldsNothing(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{Subset: []string{"nope"}})
	assert.Empty(t, kept)
}

func TestApply_PruneOutputsKeepsAncestors(t *testing.T) {
	// c depends on b depends on a; keeping outputs=[c] keeps its sources.
	linked := chain(t)
	kept := Apply(linked, rules.Options{PruneOutputs: []string{"c"}})
	assert.Equal(t, []string{"a", "b", "c"}, names(kept))
}

func TestApply_PruneInputsKeepsDescendants(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{PruneInputs: []string{"b"}})
	assert.Equal(t, []string{"b", "c", "d"}, names(kept))
}

func TestApply_PathPruning(t *testing.T) {
	// Both ends given: the intersection is the path b..d; neither a nor
	// unrelated survive.
	linked := chain(t)
	kept := Apply(linked, rules.Options{
		PruneInputs:  []string{"b"},
		PruneOutputs: []string{"d"},
	})
	assert.Equal(t, []string{"b", "c", "d"}, names(kept))
}

func TestApply_PruneCaseInsensitive(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{PruneOutputs: []string{"C"}})
	assert.Equal(t, []string{"a", "b", "c"}, names(kept))
}

func TestApply_SubsetThenPrune(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{
		Subset:       []string{"a", "b", "c", "d"},
		PruneOutputs: []string{"b"},
	})
	assert.Equal(t, []string{"a", "b"}, names(kept))
}

func TestApply_OrderPreserved(t *testing.T) {
	linked := chain(t)
	kept := Apply(linked, rules.Options{Subset: []string{"d", "a"}})
	// Filtering preserves linked order, not subset order.
	assert.Equal(t, []string{"a", "d"}, names(kept))
}
