package manifest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/parser"
	"github.com/roach88/picorules/internal/rules"
	"github.com/roach88/picorules/internal/testutil"
)

func linkedFixture(t *testing.T) *linker.Linked {
	t.Helper()
	var blocks []*rules.Ruleblock
	for _, in := range []rules.RuleblockInput{
		rules.NewRuleblock("rb1", "a => eadv.att1.val.last(); adv => eadv.att1._.lastdv();"),
		rules.NewRuleblock("rb2", "b => rout_rb1.a.val.bind();"),
	} {
		block, _, errs := parser.Parse(in)
		require.Empty(t, errs)
		blocks = append(blocks, block)
	}
	linked, err := linker.Link(blocks)
	require.Nil(t, err)
	return linked
}

func TestBuild_Fields(t *testing.T) {
	linked := linkedFixture(t)
	m := Build(linked.Blocks, linked.Graph, rules.DialectMSSQL, testutil.CompileTime)

	assert.Equal(t, Version, m.Version)
	assert.Equal(t, "mssql", m.Dialect)
	assert.Equal(t, "2024-01-01T00:00:00Z", m.CompiledAt)
	assert.Equal(t, 2, m.TotalRuleblocks)
	require.Len(t, m.Entries, 2)

	e0, e1 := m.Entries[0], m.Entries[1]
	assert.Equal(t, "rb1", e0.RuleblockID)
	assert.Equal(t, 0, e0.ExecutionOrder)
	assert.Equal(t, 0, e0.SQLIndex)
	assert.Equal(t, "SROUT_rb1", e0.TargetTable)
	assert.Empty(t, e0.Dependencies)
	// Dv-family variables appear once, under the logical name.
	assert.Equal(t, []string{"a", "adv"}, e0.OutputVariables)

	assert.Equal(t, "rb2", e1.RuleblockID)
	assert.Equal(t, 1, e1.ExecutionOrder)
	assert.Equal(t, []string{"rb1"}, e1.Dependencies)

	assert.Equal(t, map[string][]string{"rb1": {}, "rb2": {"rb1"}}, m.DependencyGraph)
}

func TestBuild_TargetTablePerDialect(t *testing.T) {
	linked := linkedFixture(t)

	m := Build(linked.Blocks, linked.Graph, rules.DialectOracle, testutil.CompileTime)
	assert.Equal(t, "ROUT_RB1", m.Entries[0].TargetTable)

	m = Build(linked.Blocks, linked.Graph, rules.DialectPostgres, testutil.CompileTime)
	assert.Equal(t, "rout_rb1", m.Entries[0].TargetTable)
}

func TestCanonical_SortedAndStable(t *testing.T) {
	linked := linkedFixture(t)
	m := Build(linked.Blocks, linked.Graph, rules.DialectOracle, testutil.CompileTime)

	a, err := m.Canonical()
	require.NoError(t, err)
	b, err := m.Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Keys appear in sorted order.
	s := string(a)
	assert.Less(t, strings.Index(s, `"compiled_at"`), strings.Index(s, `"dependency_graph"`))
	assert.Less(t, strings.Index(s, `"dependency_graph"`), strings.Index(s, `"dialect"`))
	assert.Less(t, strings.Index(s, `"dialect"`), strings.Index(s, `"entries"`))
	assert.Less(t, strings.Index(s, `"entries"`), strings.Index(s, `"total_ruleblocks"`))
	assert.Less(t, strings.Index(s, `"total_ruleblocks"`), strings.Index(s, `"version"`))
}

func TestCanonical_RoundTrip(t *testing.T) {
	linked := linkedFixture(t)
	m := Build(linked.Blocks, linked.Graph, rules.DialectPostgres, testutil.CompileTime)

	data, err := m.Canonical()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

func TestCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"q": "a < b & c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a < b & c > d"}`, string(out))
}

func TestMarshalCanonical_RejectsFloatsAndNulls(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{"))
	assert.Error(t, err)

	var m Manifest
	require.Error(t, json.Unmarshal([]byte("{"), &m))
}
