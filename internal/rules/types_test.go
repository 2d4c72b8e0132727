package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_Valid(t *testing.T) {
	assert.True(t, DialectOracle.Valid())
	assert.True(t, DialectMSSQL.Valid())
	assert.True(t, DialectPostgres.Valid())
	assert.False(t, Dialect("sybase").Valid())
	assert.False(t, Dialect("").Valid())
}

func TestDialect_TargetTable(t *testing.T) {
	assert.Equal(t, "ROUT_CKD", DialectOracle.TargetTable("ckd"))
	assert.Equal(t, "SROUT_ckd", DialectMSSQL.TargetTable("ckd"))
	assert.Equal(t, "rout_ckd", DialectPostgres.TargetTable("ckd"))
}

func TestResolveProperty(t *testing.T) {
	assert.Equal(t, "val", ResolveProperty("_"))
	assert.Equal(t, "val", ResolveProperty(""))
	assert.Equal(t, "val", ResolveProperty("val"))
	assert.Equal(t, "dt", ResolveProperty("dt"))
}

func TestNewRuleblock_ActiveByDefault(t *testing.T) {
	rb := NewRuleblock("ckd", "x => eadv.a.val.last();")
	assert.True(t, rb.IsActive)
}

func TestRule_Variables(t *testing.T) {
	var r Rule = &Fetch{Assigned: "f"}
	assert.Equal(t, "f", r.Variable())
	r = &Compute{Assigned: "c"}
	assert.Equal(t, "c", r.Variable())
	r = &Bind{Assigned: "b"}
	assert.Equal(t, "b", r.Variable())
}

func TestError_Format(t *testing.T) {
	assert.Equal(t, "[E201] invalid fetch",
		Error{Code: "E201", Message: "invalid fetch"}.Error())
	assert.Equal(t, "[E201] ckd: invalid fetch",
		Error{Code: "E201", Message: "invalid fetch", Ruleblock: "ckd"}.Error())
	assert.Equal(t, "[E201] ckd:3: invalid fetch",
		Error{Code: "E201", Message: "invalid fetch", Ruleblock: "ckd", Line: 3}.Error())
}
