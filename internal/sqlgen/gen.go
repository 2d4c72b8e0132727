package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// Generate error codes (E400-E499).
const (
	ErrUnsupportedFunction = "E401" // fetch names an unknown operator
	ErrBadParams           = "E402" // operator parameter list is malformed
)

// Generator emits SQL for one dialect.
type Generator struct {
	dialect rules.Dialect
	h       *helpers
	x       *translator
}

// New creates a generator for the dialect. A non-empty staticSysdate
// replaces the dialect current-date function in all emitted SQL.
func New(dialect rules.Dialect, staticSysdate string) *Generator {
	h := newHelpers(dialect, staticSysdate)
	return &Generator{dialect: dialect, h: h, x: &translator{h: h}}
}

// Ruleblock emits the complete SQL program for one ruleblock: every
// per-variable fragment in source-rule order wrapped in the dialect
// envelope.
func (g *Generator) Ruleblock(block *rules.Ruleblock) (string, *rules.Error) {
	var (
		vars   []varInfo
		bodies []string
	)
	for _, rule := range block.Rules {
		ctx := &fragContext{h: g.h, x: g.x, prior: vars}
		var (
			body string
			isDv bool
			err  error
		)
		switch r := rule.(type) {
		case *rules.Fetch:
			fn, ok := fragments[r.Function]
			if !ok {
				return "", &rules.Error{
					Code:      ErrUnsupportedFunction,
					Message:   "unsupported function: " + r.Function,
					Ruleblock: block.Name,
				}
			}
			body, err = fn(ctx, r)
			if err != nil {
				return "", &rules.Error{
					Code:      ErrBadParams,
					Message:   err.Error(),
					Ruleblock: block.Name,
				}
			}
			isDv = DvFunctions[r.Function]
		case *rules.Compute:
			body = g.computeFragment(ctx, r)
		case *rules.Bind:
			body = g.bindFragment(r)
		}
		bodies = append(bodies, body)
		vars = append(vars, varInfo{name: rule.Variable(), isDv: isDv})
	}

	if g.dialect == rules.DialectMSSQL {
		return g.assembleMSSQL(block, vars, bodies), nil
	}
	return g.assembleCTE(block, vars, bodies), nil
}

// computeFragment emits per-subject CASE logic over the subject set joined
// with every previously-assigned variable, so each name is in scope. A
// block whose only arm is the ELSE arm degenerates to the bare value.
func (g *Generator) computeFragment(c *fragContext, r *rules.Compute) string {
	var (
		whens    []string
		elseArm  string
		haveElse bool
	)
	for _, cond := range r.Conditions {
		if cond.Predicate == "" {
			if !haveElse {
				elseArm = g.x.Translate(cond.Return)
				haveElse = true
			}
			continue
		}
		whens = append(whens, fmt.Sprintf("WHEN %s THEN %s",
			g.x.Translate(cond.Predicate), g.x.Translate(cond.Return)))
	}

	var expr string
	switch {
	case len(whens) == 0 && haveElse:
		expr = elseArm
	case haveElse:
		expr = fmt.Sprintf("CASE %s ELSE %s END", strings.Join(whens, " "), elseArm)
	default:
		expr = fmt.Sprintf("CASE %s END", strings.Join(whens, " "))
	}

	if g.dialect == rules.DialectMSSQL {
		lines := []string{
			fmt.Sprintf("SELECT UEADV.eid, %s AS %s", expr, r.Assigned),
			fmt.Sprintf("FROM %s UEADV", subjectSet(g.dialect)),
		}
		for _, v := range c.prior {
			alias := fragAlias(g.dialect, v.name)
			lines = append(lines, fmt.Sprintf("LEFT OUTER JOIN %s %s ON %s.eid = UEADV.eid",
				fragName(g.dialect, v.name), alias, alias))
		}
		return strings.Join(lines, "\n")
	}

	lines := []string{
		fmt.Sprintf("SELECT eid, %s AS %s", expr, r.Assigned),
		"FROM " + subjectSet(g.dialect),
	}
	for _, v := range c.prior {
		lines = append(lines, fmt.Sprintf("LEFT JOIN %s USING (eid)", fragName(g.dialect, v.name)))
	}
	return strings.Join(lines, "\n")
}

// bindFragment selects the source variable from the source ruleblock's
// target table under the local name. Property dt addresses the _dt column a
// dv-family source exposes; any other property addresses the variable's own
// column.
func (g *Generator) bindFragment(r *rules.Bind) string {
	col := r.SourceVariable
	if r.Property == "dt" {
		col = r.SourceVariable + "_dt"
	}
	return fmt.Sprintf("SELECT eid, %s AS %s\nFROM %s",
		col, r.Assigned, sqlTargetTable(g.dialect, r.SourceRuleblock))
}

// assembleCTE builds the Oracle / PostgreSQL envelope: one CREATE TABLE AS
// with the subject set and every fragment as CTEs, LEFT JOINed on eid in
// source-rule order.
func (g *Generator) assembleCTE(block *rules.Ruleblock, vars []varInfo, bodies []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s AS\n", sqlTargetTable(g.dialect, block.Name))
	b.WriteString("WITH UEADV AS (\n    SELECT DISTINCT eid FROM eadv\n)")
	for i, v := range vars {
		fmt.Fprintf(&b, ",\n%s AS (\n%s\n)", fragName(g.dialect, v.name), indent(bodies[i], "    "))
	}
	b.WriteString("\nSELECT ")
	b.WriteString(strings.Join(selectColumns(vars), ", "))
	b.WriteString("\nFROM UEADV")
	for _, v := range vars {
		fmt.Fprintf(&b, "\nLEFT JOIN %s USING (eid)", fragName(g.dialect, v.name))
	}
	return b.String()
}

// assembleMSSQL builds the T-SQL serial script: drops, the #UEADV subject
// set, each fragment materialised into a primary-keyed temp table in rule
// order, and a final SELECT INTO the target table. The primary keys are the
// mechanism by which this port keeps the join plan of the CTE dialects.
func (g *Generator) assembleMSSQL(block *rules.Ruleblock, vars []varInfo, bodies []string) string {
	target := sqlTargetTable(g.dialect, block.Name)
	var b strings.Builder

	fmt.Fprintf(&b, "IF OBJECT_ID('%s', 'U') IS NOT NULL DROP TABLE %s;\n", target, target)
	b.WriteString("IF OBJECT_ID('tempdb..#UEADV') IS NOT NULL DROP TABLE #UEADV;\n")
	for _, v := range vars {
		tmp := fragName(g.dialect, v.name)
		fmt.Fprintf(&b, "IF OBJECT_ID('tempdb..%s') IS NOT NULL DROP TABLE %s;\n", tmp, tmp)
	}

	b.WriteString("\nSELECT eid INTO #UEADV FROM eadv GROUP BY eid;\n")
	b.WriteString("ALTER TABLE #UEADV ADD PRIMARY KEY (eid);\n")

	for i, v := range vars {
		tmp := fragName(g.dialect, v.name)
		fmt.Fprintf(&b, "\nSELECT * INTO %s FROM (\n%s\n) %s;\n", tmp, indent(bodies[i], "    "), fragAlias(g.dialect, v.name))
		fmt.Fprintf(&b, "ALTER TABLE %s ADD PRIMARY KEY (eid);\n", tmp)
	}

	b.WriteString("\nSELECT ")
	cols := selectColumns(vars)
	cols[0] = "UEADV.eid"
	b.WriteString(strings.Join(cols, ", "))
	fmt.Fprintf(&b, "\nINTO %s\nFROM #UEADV UEADV", target)
	for _, v := range vars {
		alias := fragAlias(g.dialect, v.name)
		fmt.Fprintf(&b, "\nLEFT OUTER JOIN %s %s ON %s.eid = UEADV.eid",
			fragName(g.dialect, v.name), alias, alias)
	}
	b.WriteString(";\n")
	return b.String()
}

// selectColumns names the final SELECT list: eid, then each variable in
// source-rule order; dv-family variables contribute two consecutive
// columns.
func selectColumns(vars []varInfo) []string {
	cols := []string{"eid"}
	for _, v := range vars {
		cols = append(cols, v.columns()...)
	}
	return cols
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
