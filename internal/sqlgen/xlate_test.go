package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/picorules/internal/rules"
)

func xlator(d rules.Dialect) *translator {
	return &translator{h: newHelpers(d, "")}
}

func TestTranslate_LoneDot(t *testing.T) {
	assert.Equal(t, "1=1", xlator(rules.DialectOracle).Translate("."))
}

func TestTranslate_BacktickLiteral(t *testing.T) {
	got := xlator(rules.DialectOracle).Translate("status = `active`")
	assert.Equal(t, "status = 'active'", got)
}

func TestTranslate_NullTests(t *testing.T) {
	x := xlator(rules.DialectOracle)
	assert.Equal(t, "egfr_last IS NULL", x.Translate("egfr_last?"))
	assert.Equal(t, "egfr_last IS NOT NULL", x.Translate("egfr_last!?"))
}

func TestTranslate_NullTestAfterParen(t *testing.T) {
	x := xlator(rules.DialectOracle)
	assert.Equal(t, "nvl(a, b) IS NULL", x.Translate("nvl(a, b)?"))
	assert.Equal(t, "nvl(a, b) IS NOT NULL", x.Translate("nvl(a, b)!?"))
}

func TestTranslate_QuestionMarkInStringUntouched(t *testing.T) {
	x := xlator(rules.DialectOracle)
	assert.Equal(t, "msg = '42?'", x.Translate("msg = `42?`"))
}

func TestTranslate_SysdateMinusDays(t *testing.T) {
	got := xlator(rules.DialectOracle).Translate("dt > sysdate - 365")
	assert.Equal(t, "dt > (SYSDATE + -365)", got)
}

func TestTranslate_SysdateMinusDateVar(t *testing.T) {
	got := xlator(rules.DialectOracle).Translate("sysdate - egfr_dt > 30")
	assert.Equal(t, "(SYSDATE - egfr_dt) > 30", got)
}

func TestTranslate_SysdateMSSQL(t *testing.T) {
	x := xlator(rules.DialectMSSQL)
	assert.Equal(t, "dt > DATEADD(DAY, -365, GETDATE())", x.Translate("dt > sysdate - 365"))
	assert.Equal(t, "DATEDIFF(DAY, egfr_dt, GETDATE()) > 30", x.Translate("sysdate - egfr_dt > 30"))
}

func TestTranslate_DateVarMinusDateVar(t *testing.T) {
	got := xlator(rules.DialectPostgres).Translate("a_dt - b_dt > 7")
	assert.Equal(t, "((a_dt)::date - (b_dt)::date) > 7", got)
}

func TestTranslate_DateVarPlusDays(t *testing.T) {
	got := xlator(rules.DialectMSSQL).Translate("x_dt + 30 > dt")
	assert.Equal(t, "DATEADD(DAY, +30, x_dt) > dt", got)
}

func TestTranslate_GenericSysdate(t *testing.T) {
	assert.Equal(t, "x > CURRENT_DATE", xlator(rules.DialectPostgres).Translate("x > sysdate"))
}

func TestTranslate_StaticSysdateOverride(t *testing.T) {
	x := &translator{h: newHelpers(rules.DialectOracle, "DATE '2024-06-30'")}
	assert.Equal(t, "x > DATE '2024-06-30'", x.Translate("x > sysdate"))
}

func TestTranslate_Nvl(t *testing.T) {
	assert.Equal(t, "nvl(a, 0) > 1", xlator(rules.DialectOracle).Translate("nvl(a, 0) > 1"))
	assert.Equal(t, "ISNULL(a, 0) > 1", xlator(rules.DialectMSSQL).Translate("nvl(a, 0) > 1"))
	assert.Equal(t, "COALESCE(a, 0) > 1", xlator(rules.DialectPostgres).Translate("nvl(a, 0) > 1"))
}

func TestTranslate_ToNumber(t *testing.T) {
	assert.Equal(t, "TO_NUMBER(x) > 1", xlator(rules.DialectOracle).Translate("to_number(x) > 1"))
	assert.Equal(t, "CAST(x AS FLOAT) > 1", xlator(rules.DialectMSSQL).Translate("to_number(x) > 1"))
	assert.Equal(t, "(x)::numeric > 1", xlator(rules.DialectPostgres).Translate("to_number(x) > 1"))
}

func TestTranslate_ToChar(t *testing.T) {
	assert.Equal(t, "TO_CHAR(x)", xlator(rules.DialectOracle).Translate("to_char(x)"))
	assert.Equal(t, "CAST(x AS VARCHAR(1000))", xlator(rules.DialectMSSQL).Translate("to_char(x)"))
	assert.Equal(t, "(x)::text", xlator(rules.DialectPostgres).Translate("to_char(x)"))
}

func TestTranslate_ToCharWithFormat(t *testing.T) {
	assert.Equal(t, "TO_CHAR(dt, 'YYYY-MM-DD')",
		xlator(rules.DialectOracle).Translate("to_char(dt,`YYYY-MM-DD`)"))
	assert.Equal(t, "CONVERT(VARCHAR(10), dt, 23)",
		xlator(rules.DialectMSSQL).Translate("to_char(dt,`YYYY-MM-DD`)"))
}

func TestTranslate_CeilMSSQLOnly(t *testing.T) {
	assert.Equal(t, "CEILING(x)", xlator(rules.DialectMSSQL).Translate("ceil(x)"))
	assert.Equal(t, "ceil(x)", xlator(rules.DialectOracle).Translate("ceil(x)"))
}

func TestTranslate_SubstrMSSQL(t *testing.T) {
	x := xlator(rules.DialectMSSQL)
	assert.Equal(t, "SUBSTRING(s, 1, 3)", x.Translate("substr(s,1,3)"))
	assert.Equal(t, "RIGHT(s, 4)", x.Translate("substr(s,-4)"))
	assert.Equal(t, "SUBSTRING(s, 2, LEN(s))", x.Translate("substr(s,2)"))
}

func TestTranslate_SubstrPostgres(t *testing.T) {
	x := xlator(rules.DialectPostgres)
	assert.Equal(t, "SUBSTRING(s, 1, 3)", x.Translate("substr(s,1,3)"))
	assert.Equal(t, "RIGHT(s, 4)", x.Translate("substr(s,-4)"))
	assert.Equal(t, "SUBSTRING(s, 2, LENGTH(s))", x.Translate("substr(s,2)"))
}

func TestTranslate_SubstrOracleUntouched(t *testing.T) {
	assert.Equal(t, "substr(s,1,3)", xlator(rules.DialectOracle).Translate("substr(s,1,3)"))
}

func TestTranslate_LeastDateIgnoresNulls(t *testing.T) {
	got := xlator(rules.DialectOracle).Translate("least_date(a_dt, b_dt)")
	assert.Equal(t,
		"NULLIF(LEAST(COALESCE(a_dt, TO_DATE('9999-12-31', 'YYYY-MM-DD')), COALESCE(b_dt, TO_DATE('9999-12-31', 'YYYY-MM-DD'))), TO_DATE('9999-12-31', 'YYYY-MM-DD'))",
		got)
}

func TestTranslate_GreatestDateIgnoresNulls(t *testing.T) {
	got := xlator(rules.DialectPostgres).Translate("greatest_date(a_dt, b_dt)")
	assert.Equal(t,
		"NULLIF(GREATEST(COALESCE(a_dt, DATE '0001-01-01'), COALESCE(b_dt, DATE '0001-01-01')), DATE '0001-01-01')",
		got)
}

func TestTranslate_LeastPropagatesNullOffOracle(t *testing.T) {
	got := xlator(rules.DialectPostgres).Translate("least(a, b)")
	assert.Equal(t, "CASE WHEN a IS NULL OR b IS NULL THEN NULL ELSE LEAST(a, b) END", got)
}

func TestTranslate_LeastOracleNative(t *testing.T) {
	assert.Equal(t, "least(a, b)", xlator(rules.DialectOracle).Translate("least(a, b)"))
}

func TestTranslate_BoundConstants(t *testing.T) {
	assert.Equal(t, "x > TO_DATE('0001-01-01', 'YYYY-MM-DD')",
		xlator(rules.DialectOracle).Translate("x > lower__bound__dt"))
	assert.Equal(t, "x < CAST('9999-12-31' AS DATE)",
		xlator(rules.DialectMSSQL).Translate("x < upper__bound__dt"))
}

func TestTranslate_ConcatNormalised(t *testing.T) {
	assert.Equal(t, "a + b", xlator(rules.DialectMSSQL).Translate("a || b"))
	assert.Equal(t, "a || b", xlator(rules.DialectPostgres).Translate("a || b"))
}

func TestTranslate_NestedCallsSurviveRewrites(t *testing.T) {
	got := xlator(rules.DialectMSSQL).Translate("nvl(substr(s,1,3), `x`)")
	assert.Equal(t, "ISNULL(SUBSTRING(s, 1, 3), 'x')", got)
}

func TestSplitBalanced(t *testing.T) {
	assert.Equal(t, []string{"round(val,0)", "dt"}, splitBalanced("round(val,0)~dt", '~'))
	assert.Equal(t, []string{"a", "f(b,c)"}, splitBalanced("a,f(b,c)", ','))
	assert.Nil(t, splitBalanced("", ','))
}
