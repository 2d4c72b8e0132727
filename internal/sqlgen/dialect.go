package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// helpers is the per-dialect surface consumed by the operator dispatch
// table and the expression translator.
type helpers struct {
	dialect rules.Dialect

	// currentDate is the textual current-date function (or the static
	// override when Options.StaticSysdate is set).
	currentDate string

	// stddev is the sample standard deviation aggregate name.
	stddev string

	// strLen is the string-length function name.
	strLen string

	numCast  func(expr string) string
	strCast  func(expr string) string
	dateLit  func(isoDate string) string
	dateAdd  func(expr, days string) string
	dateDiff func(a, b string) string
	dateFmt  func(expr, oracleFmt string) string

	// stringAgg renders ordered string aggregation of elem with a quoted
	// delimiter literal.
	stringAgg func(elem, delim, orderBy string) string

	// concat joins string expressions with the dialect operator.
	concat func(parts ...string) string
}

func newHelpers(d rules.Dialect, staticSysdate string) *helpers {
	var h *helpers
	switch d {
	case rules.DialectMSSQL:
		h = &helpers{
			dialect:     d,
			currentDate: "GETDATE()",
			stddev:      "STDEV",
			strLen:      "LEN",
			numCast:     func(e string) string { return fmt.Sprintf("CAST(%s AS FLOAT)", e) },
			strCast:     func(e string) string { return fmt.Sprintf("CAST(%s AS VARCHAR(1000))", e) },
			dateLit:     func(iso string) string { return fmt.Sprintf("CAST('%s' AS DATE)", iso) },
			dateAdd: func(e, days string) string {
				return fmt.Sprintf("DATEADD(DAY, %s, %s)", days, e)
			},
			dateDiff: func(a, b string) string {
				return fmt.Sprintf("DATEDIFF(DAY, %s, %s)", b, a)
			},
			dateFmt: func(e, _ string) string {
				// style 23 is yyyy-mm-dd
				return fmt.Sprintf("CONVERT(VARCHAR(10), %s, 23)", e)
			},
			stringAgg: func(elem, delim, orderBy string) string {
				return fmt.Sprintf("STRING_AGG(%s, %s) WITHIN GROUP (ORDER BY %s)", elem, delim, orderBy)
			},
			concat: func(parts ...string) string { return strings.Join(parts, " + ") },
		}
	case rules.DialectPostgres:
		h = &helpers{
			dialect:     d,
			currentDate: "CURRENT_DATE",
			stddev:      "STDDEV",
			strLen:      "LENGTH",
			numCast:     func(e string) string { return fmt.Sprintf("(%s)::numeric", e) },
			strCast:     func(e string) string { return fmt.Sprintf("(%s)::text", e) },
			dateLit:     func(iso string) string { return fmt.Sprintf("DATE '%s'", iso) },
			dateAdd: func(e, days string) string {
				return fmt.Sprintf("(%s + %s)", e, days)
			},
			dateDiff: func(a, b string) string {
				return fmt.Sprintf("((%s)::date - (%s)::date)", a, b)
			},
			dateFmt: func(e, oracleFmt string) string {
				return fmt.Sprintf("TO_CHAR(%s, '%s')", e, oracleFmt)
			},
			stringAgg: func(elem, delim, orderBy string) string {
				return fmt.Sprintf("STRING_AGG(%s, %s ORDER BY %s)", elem, delim, orderBy)
			},
			concat: func(parts ...string) string { return strings.Join(parts, " || ") },
		}
	default: // oracle
		h = &helpers{
			dialect:     d,
			currentDate: "SYSDATE",
			stddev:      "STDDEV",
			strLen:      "LENGTH",
			numCast:     func(e string) string { return fmt.Sprintf("TO_NUMBER(%s)", e) },
			strCast:     func(e string) string { return fmt.Sprintf("TO_CHAR(%s)", e) },
			dateLit:     func(iso string) string { return fmt.Sprintf("TO_DATE('%s', 'YYYY-MM-DD')", iso) },
			dateAdd: func(e, days string) string {
				return fmt.Sprintf("(%s + %s)", e, days)
			},
			dateDiff: func(a, b string) string {
				return fmt.Sprintf("(%s - %s)", a, b)
			},
			dateFmt: func(e, oracleFmt string) string {
				return fmt.Sprintf("TO_CHAR(%s, '%s')", e, oracleFmt)
			},
			stringAgg: func(elem, delim, orderBy string) string {
				return fmt.Sprintf("LISTAGG(%s, %s) WITHIN GROUP (ORDER BY %s)", elem, delim, orderBy)
			},
			concat: func(parts ...string) string { return strings.Join(parts, " || ") },
		}
	}
	if staticSysdate != "" {
		h.currentDate = staticSysdate
	}
	return h
}

// propExpr resolves the fetch property to a column expression. The numeric
// flag applies the dialect numeric cast, except for the dt column which is
// never cast.
func (h *helpers) propExpr(prop string, numeric bool) string {
	col := rules.ResolveProperty(prop)
	if numeric && col != "dt" {
		return h.numCast(col)
	}
	return col
}

// sqlTargetTable is the target-table spelling used inside emitted SQL.
// PostgreSQL DDL spells the name upper-case like Oracle; the server folds
// the unquoted identifier to the lower-case name the manifest records.
func sqlTargetTable(d rules.Dialect, name string) string {
	if d == rules.DialectMSSQL {
		return "SROUT_" + name
	}
	return "ROUT_" + strings.ToUpper(name)
}

// fragName is the per-variable intermediate name: an SQ_<NAME> CTE for the
// CTE dialects, a #SQ_<name> temp table for T-SQL.
func fragName(d rules.Dialect, variable string) string {
	if d == rules.DialectMSSQL {
		return "#SQ_" + variable
	}
	return "SQ_" + strings.ToUpper(variable)
}

// fragAlias is the join alias for a fragment; T-SQL temp tables are joined
// under a #-less alias so columns qualify cleanly.
func fragAlias(d rules.Dialect, variable string) string {
	if d == rules.DialectMSSQL {
		return "SQ_" + variable
	}
	return "SQ_" + strings.ToUpper(variable)
}

// subjectSet is the universal subject-set name.
func subjectSet(d rules.Dialect) string {
	if d == rules.DialectMSSQL {
		return "#UEADV"
	}
	return "UEADV"
}
