package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// attributeFilter builds the WHERE clause for an attribute list: equality
// for literal names, LIKE for patterns containing %, disjoined and wrapped
// in parentheses when there is more than one. T-SQL escapes underscores so
// they stay literal, and declares the escape character.
//
// Centralised on purpose; the dialect variants differ only in LIKE-escape
// treatment.
func attributeFilter(d rules.Dialect, attrs []string) string {
	clauses := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if strings.Contains(a, "%") {
			if d == rules.DialectMSSQL {
				pat := strings.ReplaceAll(a, "_", `\_`)
				clauses = append(clauses, fmt.Sprintf(`att LIKE '%s' ESCAPE '\'`, pat))
			} else {
				clauses = append(clauses, fmt.Sprintf("att LIKE '%s'", a))
			}
		} else {
			clauses = append(clauses, fmt.Sprintf("att = '%s'", a))
		}
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}
