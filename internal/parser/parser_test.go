package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picorules/internal/rules"
)

func parseOne(t *testing.T, text string) rules.Rule {
	t.Helper()
	block, _, errs := Parse(rules.NewRuleblock("rb", text))
	require.Empty(t, errs)
	require.Len(t, block.Rules, 1)
	return block.Rules[0]
}

func TestParse_FetchSimple(t *testing.T) {
	rule := parseOne(t, "egfr_last => eadv.lab_bld_egfr.val.last();")

	fetch, ok := rule.(*rules.Fetch)
	require.True(t, ok)
	assert.Equal(t, "egfr_last", fetch.Assigned)
	assert.Equal(t, "eadv", fetch.Table)
	assert.Equal(t, []string{"lab_bld_egfr"}, fetch.Attributes)
	assert.Equal(t, "val", fetch.Property)
	assert.Equal(t, "last", fetch.Function)
	assert.Empty(t, fetch.Params)
	assert.Empty(t, fetch.Predicate)
}

func TestParse_FetchAttributeList(t *testing.T) {
	rule := parseOne(t, "cr => eadv.[lab_bld_creatinine,lab_bld_egfr%].val.last();")

	fetch := rule.(*rules.Fetch)
	assert.Equal(t, []string{"lab_bld_creatinine", "lab_bld_egfr%"}, fetch.Attributes)
}

func TestParse_FetchMultiLineAttributeList(t *testing.T) {
	text := `cr => eadv.[lab_bld_creatinine,
	    lab_bld_egfr,
	    lab_bld_urea].val.count();`
	rule := parseOne(t, text)

	fetch := rule.(*rules.Fetch)
	assert.Equal(t, []string{"lab_bld_creatinine", "lab_bld_egfr", "lab_bld_urea"}, fetch.Attributes)
}

func TestParse_FetchPropertySentinel(t *testing.T) {
	rule := parseOne(t, "acr_max => eadv.lab_ua_acr._.maxldv();")

	fetch := rule.(*rules.Fetch)
	assert.Equal(t, "_", fetch.Property)
	assert.Equal(t, "maxldv", fetch.Function)
}

func TestParse_FetchNestedParenParameter(t *testing.T) {
	// The inner comma of round(val,0) must not split the parameter.
	rule := parseOne(t, "acr_graph => eadv.lab_ua_acr.val.serializedv2(round(val,0)~dt);")

	fetch := rule.(*rules.Fetch)
	require.Len(t, fetch.Params, 1)
	assert.Equal(t, "round(val,0)~dt", fetch.Params[0])
}

func TestParse_FetchWhere(t *testing.T) {
	rule := parseOne(t, "egfr_recent => eadv.lab_bld_egfr.val.last().where(dt > sysdate - 365);")

	fetch := rule.(*rules.Fetch)
	assert.Equal(t, "dt > sysdate - 365", fetch.Predicate)
}

func TestParse_FetchWhereContinuation(t *testing.T) {
	// A .where on its own line attaches after whitespace collapse.
	text := "egfr_recent => eadv.lab_bld_egfr.val.last()\n    .where(dt > sysdate - 365);"
	rule := parseOne(t, text)

	fetch := rule.(*rules.Fetch)
	assert.Equal(t, "dt > sysdate - 365", fetch.Predicate)
}

func TestParse_FetchInvalid(t *testing.T) {
	_, _, errs := Parse(rules.NewRuleblock("rb", "x => eadv.lab;"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidFetch, errs[0].Code)
	assert.Equal(t, "rb", errs[0].Ruleblock)
}

func TestParse_Compute(t *testing.T) {
	rule := parseOne(t, "has_ckd : {egfr_last < 60 => 1}, {=> 0};")

	compute, ok := rule.(*rules.Compute)
	require.True(t, ok)
	assert.Equal(t, "has_ckd", compute.Assigned)
	require.Len(t, compute.Conditions, 2)
	assert.Equal(t, "egfr_last < 60", compute.Conditions[0].Predicate)
	assert.Equal(t, "1", compute.Conditions[0].Return)
	assert.Empty(t, compute.Conditions[1].Predicate)
	assert.Equal(t, "0", compute.Conditions[1].Return)
}

func TestParse_ComputeElseOnly(t *testing.T) {
	rule := parseOne(t, "flag : {=> 1};")

	compute := rule.(*rules.Compute)
	require.Len(t, compute.Conditions, 1)
	assert.Empty(t, compute.Conditions[0].Predicate)
}

func TestParse_ComputeNoArms(t *testing.T) {
	_, _, errs := Parse(rules.NewRuleblock("rb", "flag : ;"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidCompute, errs[0].Code)
}

func TestParse_Bind(t *testing.T) {
	rule := parseOne(t, "c => rout_rb2.b.val.bind();")

	bind, ok := rule.(*rules.Bind)
	require.True(t, ok)
	assert.Equal(t, "c", bind.Assigned)
	assert.Equal(t, "rb2", bind.SourceRuleblock)
	assert.Equal(t, "b", bind.SourceVariable)
	assert.Equal(t, "val", bind.Property)
}

func TestParse_BindMissingRoutPrefix(t *testing.T) {
	_, _, errs := Parse(rules.NewRuleblock("rb", "c => other.b.val.bind();"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidBind, errs[0].Code)
}

func TestParse_RbIDSubstitution(t *testing.T) {
	rule := parseOne(t, "x => rout_[[rb_id]].y.val.bind();")

	bind := rule.(*rules.Bind)
	assert.Equal(t, "rb", bind.SourceRuleblock)
}

func TestParse_Comments(t *testing.T) {
	text := `/* block
	comment */
	a => eadv.att1.val.last(); // trailing comment
	// whole-line comment
	b : {a > 1 => 1}, {=> 0};`
	block, _, errs := Parse(rules.NewRuleblock("rb", text))
	require.Empty(t, errs)
	require.Len(t, block.Rules, 2)
}

func TestParse_DirectiveWarnsAndDrops(t *testing.T) {
	block, warnings, errs := Parse(rules.NewRuleblock("rb", "#define foo; a => eadv.att1.val.last();"))
	require.Empty(t, errs)
	require.Len(t, block.Rules, 1)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDirective, warnings[0].Code)
	assert.Equal(t, "rb", warnings[0].Ruleblock)
}

func TestParse_UnrecognisedSegmentSilentlyDropped(t *testing.T) {
	// Statements that are neither =>, :, nor # are dropped without error.
	block, warnings, errs := Parse(rules.NewRuleblock("rb", "this is stray commentary; a => eadv.att1.val.last();"))
	require.Empty(t, errs)
	assert.Empty(t, warnings)
	require.Len(t, block.Rules, 1)
}

func TestParse_NoValidStatements(t *testing.T) {
	block, _, errs := Parse(rules.NewRuleblock("rb", "nothing to see here;"))
	require.Empty(t, errs)
	assert.Empty(t, block.Rules)
}

func TestParse_OrderPreserved(t *testing.T) {
	text := `a => eadv.att1.val.last();
	b => eadv.att2.val.count();
	c : {a > b => 1}, {=> 0};`
	block, _, errs := Parse(rules.NewRuleblock("rb", text))
	require.Empty(t, errs)
	require.Len(t, block.Rules, 3)
	assert.Equal(t, "a", block.Rules[0].Variable())
	assert.Equal(t, "b", block.Rules[1].Variable())
	assert.Equal(t, "c", block.Rules[2].Variable())
}

func TestParse_QuotedDelimiterParameter(t *testing.T) {
	// Neither the ';' split nor the comma split may fire inside backticks.
	rule := parseOne(t, "meds => eadv.rx%.val.serialize(`;`);")

	fetch := rule.(*rules.Fetch)
	require.Len(t, fetch.Params, 1)
	assert.Equal(t, "`;`", fetch.Params[0])
}

func TestSplitArgs(t *testing.T) {
	assert.Nil(t, splitArgs(""))
	assert.Equal(t, []string{"a", "b"}, splitArgs("a, b"))
	assert.Equal(t, []string{"round(val,0)~dt"}, splitArgs("round(val,0)~dt"))
	assert.Equal(t, []string{"f(a,b)", "c"}, splitArgs("f(a,b), c"))
	assert.Equal(t, []string{"`,`"}, splitArgs("`,`"))
}
