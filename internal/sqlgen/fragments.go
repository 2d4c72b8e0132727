package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// DvFunctions marks the operators whose fragment produces two output
// columns (<var>_val, <var>_dt) instead of one.
var DvFunctions = map[string]bool{
	"lastdv":           true,
	"firstdv":          true,
	"maxldv":           true,
	"minldv":           true,
	"minfdv":           true,
	"max_neg_delta_dv": true,
}

// varInfo describes an already-emitted variable of the current ruleblock.
type varInfo struct {
	name string
	isDv bool
}

// columns returns the output column names the variable contributes.
func (v varInfo) columns() []string {
	if v.isDv {
		return []string{v.name + "_val", v.name + "_dt"}
	}
	return []string{v.name}
}

// fragContext carries everything a fragment template needs: the dialect
// surface and the variables assigned by earlier rules in the same
// ruleblock.
type fragContext struct {
	h     *helpers
	x     *translator
	prior []varInfo
}

type fragmentFunc func(c *fragContext, f *rules.Fetch) (string, error)

// fragments is the operator dispatch table. Every dialect implements every
// entry; dialect differences live in the helpers record.
var fragments = map[string]fragmentFunc{
	"last":  func(c *fragContext, f *rules.Fetch) (string, error) { return c.rankOne(f, "dt DESC, att ASC, val ASC", 1) },
	"first": func(c *fragContext, f *rules.Fetch) (string, error) { return c.rankOne(f, "dt ASC, att ASC, val ASC", 1) },
	"nth":   fragNth,

	"count":          func(c *fragContext, f *rules.Fetch) (string, error) { return c.aggregate(f, "COUNT(*)") },
	"sum":            func(c *fragContext, f *rules.Fetch) (string, error) { return c.numAggregate(f, "SUM") },
	"avg":            func(c *fragContext, f *rules.Fetch) (string, error) { return c.numAggregate(f, "AVG") },
	"min":            func(c *fragContext, f *rules.Fetch) (string, error) { return c.numAggregate(f, "MIN") },
	"max":            func(c *fragContext, f *rules.Fetch) (string, error) { return c.numAggregate(f, "MAX") },
	"median":         fragMedian,
	"distinct_count": fragDistinctCount,
	"exists":         fragExists,
	"stats_mode":     fragStatsMode,

	"lastdv":  func(c *fragContext, f *rules.Fetch) (string, error) { return c.rankDv(f, "dt DESC, att ASC, val ASC") },
	"firstdv": func(c *fragContext, f *rules.Fetch) (string, error) { return c.rankDv(f, "dt ASC, att ASC, val ASC") },
	"maxldv": func(c *fragContext, f *rules.Fetch) (string, error) {
		return c.rankDv(f, c.h.numCast("val")+" DESC, dt DESC, att ASC")
	},
	"minldv": func(c *fragContext, f *rules.Fetch) (string, error) {
		return c.rankDv(f, c.h.numCast("val")+" ASC, dt DESC, att ASC")
	},
	"minfdv": func(c *fragContext, f *rules.Fetch) (string, error) {
		return c.rankDv(f, c.h.numCast("val")+" ASC, dt ASC, att ASC")
	},
	"max_neg_delta_dv": fragMaxNegDelta,

	"serialize":    fragSerialize,
	"serialize2":   fragSerialize2,
	"serializedv":  fragSerializeDv,
	"serializedv2": fragSerializeDv2,

	"regr_slope":     func(c *fragContext, f *rules.Fetch) (string, error) { return c.regression(f, "slope") },
	"regr_intercept": func(c *fragContext, f *rules.Fetch) (string, error) { return c.regression(f, "intercept") },
	"regr_r2":        func(c *fragContext, f *rules.Fetch) (string, error) { return c.regression(f, "r2") },

	"temporal_regularity": fragTemporalRegularity,
}

// eventSource returns the FROM source for a fetch fragment. When the
// predicate references variables assigned earlier in the ruleblock, the
// event table is joined with the subject set and the prior fragments so
// those variables are in scope inside the predicate; otherwise it is the
// bare event table.
func (c *fragContext) eventSource(f *rules.Fetch) string {
	deps := c.priorRefs(f)
	if len(deps) == 0 {
		return f.Table
	}

	cols := []string{"E.eid", "E.att", "E.dt", "E.val", "E.loc"}
	var joins []string
	for _, v := range deps {
		alias := fragAlias(c.h.dialect, v.name)
		for _, col := range v.columns() {
			cols = append(cols, alias+"."+col)
		}
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.eid = E.eid",
			fragName(c.h.dialect, v.name), alias, alias))
	}

	return fmt.Sprintf("(\n    SELECT %s\n    FROM %s E\n    INNER JOIN %s U ON U.eid = E.eid\n    %s\n) E",
		strings.Join(cols, ", "),
		f.Table,
		subjectSet(c.h.dialect),
		strings.Join(joins, "\n    "))
}

// priorRefs returns the earlier-assigned variables the fetch predicate
// references, in assignment order. A reference to <var>_val or <var>_dt
// counts as a reference to the dv variable <var>.
func (c *fragContext) priorRefs(f *rules.Fetch) []varInfo {
	if f.Predicate == "" || len(f.References) == 0 {
		return nil
	}
	wanted := map[string]bool{}
	for _, r := range f.References {
		key := strings.ToLower(r)
		wanted[key] = true
		for _, suffix := range []string{"_val", "_dt"} {
			wanted[strings.TrimSuffix(key, suffix)] = true
		}
	}
	var deps []varInfo
	for _, v := range c.prior {
		if wanted[strings.ToLower(v.name)] {
			deps = append(deps, v)
		}
	}
	return deps
}

// whereClause builds "WHERE <attribute filter>[ AND (<predicate>)]".
func (c *fragContext) whereClause(f *rules.Fetch) string {
	w := "WHERE " + attributeFilter(c.h.dialect, f.Attributes)
	if f.Predicate != "" {
		w += " AND (" + c.x.Translate(f.Predicate) + ")"
	}
	return w
}

// rankOne emits the value of the row at rank k under the given order.
func (c *fragContext) rankOne(f *rules.Fetch, order string, k int) (string, error) {
	return fmt.Sprintf(`SELECT eid, v AS %s
FROM (
    SELECT eid, %s AS v, ROW_NUMBER() OVER (PARTITION BY eid ORDER BY %s) AS rn
    FROM %s
    %s
) T
WHERE rn = %d`,
		f.Assigned, c.h.propExpr(f.Property, false), order, c.eventSource(f), c.whereClause(f), k), nil
}

func fragNth(c *fragContext, f *rules.Fetch) (string, error) {
	if len(f.Params) != 1 {
		return "", fmt.Errorf("nth expects one parameter, got %d", len(f.Params))
	}
	k, err := strconv.Atoi(strings.TrimSpace(f.Params[0]))
	if err != nil || k < 1 {
		return "", fmt.Errorf("nth expects a positive integer, got %q", f.Params[0])
	}
	return c.rankOne(f, "dt DESC, att ASC, val ASC", k)
}

// rankDv emits the (val, dt) pair of the top-ranked row under the order.
func (c *fragContext) rankDv(f *rules.Fetch, order string) (string, error) {
	return fmt.Sprintf(`SELECT eid, v_val AS %s_val, v_dt AS %s_dt
FROM (
    SELECT eid, val AS v_val, dt AS v_dt, ROW_NUMBER() OVER (PARTITION BY eid ORDER BY %s) AS rn
    FROM %s
    %s
) T
WHERE rn = 1`,
		f.Assigned, f.Assigned, order, c.eventSource(f), c.whereClause(f)), nil
}

// aggregate emits a plain per-eid aggregate.
func (c *fragContext) aggregate(f *rules.Fetch, expr string) (string, error) {
	return fmt.Sprintf(`SELECT eid, %s AS %s
FROM %s
%s
GROUP BY eid`,
		expr, f.Assigned, c.eventSource(f), c.whereClause(f)), nil
}

// numAggregate applies a natural aggregate over the numerically cast
// property; dt stays a date.
func (c *fragContext) numAggregate(f *rules.Fetch, fn string) (string, error) {
	return c.aggregate(f, fmt.Sprintf("%s(%s)", fn, c.h.propExpr(f.Property, true)))
}

func fragDistinctCount(c *fragContext, f *rules.Fetch) (string, error) {
	return c.aggregate(f, fmt.Sprintf("COUNT(DISTINCT %s)", c.h.propExpr(f.Property, false)))
}

func fragMedian(c *fragContext, f *rules.Fetch) (string, error) {
	expr := c.h.propExpr(f.Property, true)
	switch c.h.dialect {
	case rules.DialectOracle:
		return c.aggregate(f, fmt.Sprintf("MEDIAN(%s)", expr))
	case rules.DialectPostgres:
		return c.aggregate(f, fmt.Sprintf("PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s)", expr))
	default:
		// PERCENTILE_CONT is analytic-only on SQL Server.
		return fmt.Sprintf(`SELECT eid, v AS %s
FROM (
    SELECT eid, PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s) OVER (PARTITION BY eid) AS v,
        ROW_NUMBER() OVER (PARTITION BY eid ORDER BY dt) AS rn
    FROM %s
    %s
) T
WHERE rn = 1`,
			f.Assigned, expr, c.eventSource(f), c.whereClause(f)), nil
	}
}

func fragExists(c *fragContext, f *rules.Fetch) (string, error) {
	return fmt.Sprintf(`SELECT U.eid, CASE WHEN COUNT(E.eid) > 0 THEN 1 ELSE 0 END AS %s
FROM %s U
LEFT JOIN (
    SELECT eid
    FROM %s
    %s
) E ON E.eid = U.eid
GROUP BY U.eid`,
		f.Assigned, subjectSet(c.h.dialect), c.eventSource(f), c.whereClause(f)), nil
}

func fragStatsMode(c *fragContext, f *rules.Fetch) (string, error) {
	col := c.h.propExpr(f.Property, false)
	return fmt.Sprintf(`SELECT eid, v AS %s
FROM (
    SELECT eid, %s AS v, ROW_NUMBER() OVER (PARTITION BY eid ORDER BY COUNT(*) DESC, %s ASC) AS rn
    FROM %s
    %s
    GROUP BY eid, %s
) T
WHERE rn = 1`,
		f.Assigned, col, col, c.eventSource(f), c.whereClause(f), col), nil
}

func fragMaxNegDelta(c *fragContext, f *rules.Fetch) (string, error) {
	num := c.h.numCast("val")
	return fmt.Sprintf(`SELECT eid, v_val AS %s_val, v_dt AS %s_dt
FROM (
    SELECT eid, delta AS v_val, dt AS v_dt, ROW_NUMBER() OVER (PARTITION BY eid ORDER BY delta ASC, dt DESC) AS rn
    FROM (
        SELECT eid, dt, %s - LAG(%s) OVER (PARTITION BY eid ORDER BY dt) AS delta
        FROM %s
        %s
    ) D
    WHERE delta < 0
) T
WHERE rn = 1`,
		f.Assigned, f.Assigned, num, num, c.eventSource(f), c.whereClause(f)), nil
}

// delimLit converts a delimiter parameter token to a quoted SQL literal.
// Backtick quoting is stripped; an unquoted token is quoted as-is.
func delimLit(param string) string {
	p := strings.TrimSpace(param)
	p = strings.Trim(p, "`")
	p = strings.Trim(p, "'")
	return "'" + p + "'"
}

func (c *fragContext) serializeWith(f *rules.Fetch, elem, delim string) (string, error) {
	return c.aggregate(f, c.h.stringAgg(elem, delim, "dt"))
}

func fragSerialize(c *fragContext, f *rules.Fetch) (string, error) {
	if len(f.Params) != 1 {
		return "", fmt.Errorf("serialize expects one delimiter parameter")
	}
	return c.serializeWith(f, rules.ResolveProperty(f.Property), delimLit(f.Params[0]))
}

func fragSerialize2(c *fragContext, f *rules.Fetch) (string, error) {
	if len(f.Params) != 1 {
		return "", fmt.Errorf("serialize2 expects one delimiter parameter")
	}
	return c.serializeWith(f, c.h.strCast(rules.ResolveProperty(f.Property)), delimLit(f.Params[0]))
}

func fragSerializeDv(c *fragContext, f *rules.Fetch) (string, error) {
	if len(f.Params) != 1 {
		return "", fmt.Errorf("serializedv expects one delimiter parameter")
	}
	elem := c.h.concat(c.h.strCast("val"), "'~'", c.h.dateFmt("dt", "YYYY-MM-DD"))
	return c.serializeWith(f, elem, delimLit(f.Params[0]))
}

// fragSerializeDv2 renders serializedv2(fmt): the caller-supplied element
// format is split on '~' at bracket depth zero; the token dt becomes a
// formatted date and every other sub-expression is string-cast after
// translation. The aggregation delimiter is ','.
func fragSerializeDv2(c *fragContext, f *rules.Fetch) (string, error) {
	if len(f.Params) != 1 {
		return "", fmt.Errorf("serializedv2 expects one format parameter")
	}
	var parts []string
	for i, sub := range splitBalanced(f.Params[0], '~') {
		if i > 0 {
			parts = append(parts, "'~'")
		}
		if strings.TrimSpace(sub) == "dt" {
			parts = append(parts, c.h.dateFmt("dt", "YYYY-MM-DD"))
		} else {
			parts = append(parts, c.h.strCast(c.x.Translate(sub)))
		}
	}
	return c.serializeWith(f, c.h.concat(parts...), "','")
}

// regression emits ordinary-least-squares statistics of val against the
// day-offset from each group's earliest dt. Oracle and PostgreSQL use the
// native REGR_* aggregates; T-SQL spells out the closed forms, with NULLIF
// guarding the zero denominators.
func (c *fragContext) regression(f *rules.Fetch, stat string) (string, error) {
	y := c.h.propExpr(f.Property, true)
	x := c.h.numCast(c.h.dateDiff("dt", "MIN(dt) OVER (PARTITION BY eid)"))

	var expr string
	if c.h.dialect == rules.DialectMSSQL {
		slope := "(COUNT(*) * SUM(x * y) - SUM(x) * SUM(y)) / NULLIF(COUNT(*) * SUM(x * x) - SUM(x) * SUM(x), 0)"
		switch stat {
		case "slope":
			expr = slope
		case "intercept":
			expr = fmt.Sprintf("(SUM(y) - (%s) * SUM(x)) / COUNT(*)", slope)
		case "r2":
			expr = "SQUARE(COUNT(*) * SUM(x * y) - SUM(x) * SUM(y))" +
				" / NULLIF((COUNT(*) * SUM(x * x) - SUM(x) * SUM(x)) * (COUNT(*) * SUM(y * y) - SUM(y) * SUM(y)), 0)"
		}
	} else {
		switch stat {
		case "slope":
			expr = "REGR_SLOPE(y, x)"
		case "intercept":
			expr = "REGR_INTERCEPT(y, x)"
		case "r2":
			expr = "REGR_R2(y, x)"
		}
	}

	return fmt.Sprintf(`SELECT eid, %s AS %s
FROM (
    SELECT eid, %s AS y, %s AS x
    FROM %s
    %s
) T
GROUP BY eid`,
		expr, f.Assigned, y, x, c.eventSource(f), c.whereClause(f)), nil
}

// fragTemporalRegularity emits the coefficient of variation of
// successive-row day intervals: NULL with fewer than two rows, 0 when the
// mean interval is zero.
func fragTemporalRegularity(c *fragContext, f *rules.Fetch) (string, error) {
	iv := c.h.numCast(c.h.dateDiff("dt", "LAG(dt) OVER (PARTITION BY eid ORDER BY dt)"))
	return fmt.Sprintf(`SELECT eid, CASE WHEN COUNT(iv) = 0 THEN NULL WHEN AVG(iv) = 0 THEN 0 ELSE %s(iv) / AVG(iv) END AS %s
FROM (
    SELECT eid, %s AS iv
    FROM %s
    %s
) T
GROUP BY eid`,
		c.h.stddev, f.Assigned, iv, c.eventSource(f), c.whereClause(f)), nil
}
