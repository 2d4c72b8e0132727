package linker

import (
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// stoplist holds identifiers that are never variable references: SQL
// keywords spelled as words, the built-in aggregates, CASE machinery,
// literals, and the expression sub-language's own function names and
// constants. Dialect-specific functions outside this list (power, sqrt, ...)
// leak into references; downstream code keys edge addition on known
// ruleblock names, so the leak is inert.
var stoplist = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"like": true, "between": true, "exists": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"null": true, "true": true, "false": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"median": true, "abs": true, "round": true, "floor": true, "ceil": true,
	"trunc": true, "mod": true,
	"nvl": true, "coalesce": true, "nullif": true,
	"to_char": true, "to_number": true, "substr": true,
	"least": true, "greatest": true, "least_date": true, "greatest_date": true,
	"sysdate": true,
	"lower__bound__dt": true, "upper__bound__dt": true,
}

// eventColumns are the long-format event-table columns; inside a fetch
// predicate they are column references, never variables.
var eventColumns = map[string]bool{
	"eid": true, "att": true, "dt": true, "val": true, "loc": true,
}

var (
	identScanRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	literalRe   = regexp.MustCompile("`[^`]*`|'[^']*'")
)

// extractRefs populates the References field of every rule in the block.
func extractRefs(block *rules.Ruleblock) {
	for _, rule := range block.Rules {
		switch r := rule.(type) {
		case *rules.Fetch:
			r.References = freeIdents(r.Predicate, true)
		case *rules.Compute:
			var exprs []string
			for _, c := range r.Conditions {
				exprs = append(exprs, c.Predicate, c.Return)
			}
			r.References = freeIdents(strings.Join(exprs, " "), false)
		case *rules.Bind:
			r.References = []string{r.SourceVariable}
		}
	}
}

// freeIdents returns the free identifiers of an expression in first-seen
// order. String literals are blanked before scanning. When inEventContext is
// set, the event-table column names are additionally excluded.
func freeIdents(expr string, inEventContext bool) []string {
	if expr == "" {
		return nil
	}
	expr = literalRe.ReplaceAllString(expr, " ")

	var (
		refs []string
		seen = map[string]bool{}
	)
	for _, id := range identScanRe.FindAllString(expr, -1) {
		key := strings.ToLower(id)
		if stoplist[key] || seen[key] {
			continue
		}
		if inEventContext && eventColumns[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, id)
	}
	return refs
}
