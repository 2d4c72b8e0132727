package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// translator rewrites Picorules expression syntax into dialect SQL. The
// rewrites form an ordered pipeline over a single string; ordering is
// significant (date arithmetic involving sysdate must run before the
// generic sysdate substitution, null tests before anything that could
// introduce a '?').
type translator struct {
	h *helpers
}

const (
	lowerBoundDate = "0001-01-01"
	upperBoundDate = "9999-12-31"
)

var (
	backtickRe = regexp.MustCompile("`([^`]*)`")

	notNullRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*|\))\s*!\?`)
	isNullRe  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*|\))\s*\?`)

	// dateVar matches dt and the date-bearing variable suffixes.
	dateVar = `(?:[A-Za-z_][A-Za-z0-9_]*_(?:dt_min|dt_max|dt|fd|ld)|dt)`

	sysdateMinusVarRe = regexp.MustCompile(`(?i)\bsysdate\s*-\s*(` + dateVar + `)\b`)
	sysdateArithRe    = regexp.MustCompile(`(?i)\bsysdate\s*([+-])\s*(\d+(?:\.\d+)?)`)
	varMinusVarRe     = regexp.MustCompile(`\b(` + dateVar + `)\s*-\s*(` + dateVar + `)\b`)
	varArithRe        = regexp.MustCompile(`\b(` + dateVar + `)\s*([+-])\s*(\d+(?:\.\d+)?)`)
	sysdateRe         = regexp.MustCompile(`(?i)\bsysdate\b`)

	lowerBoundRe = regexp.MustCompile(`\blower__bound__dt\b`)
	upperBoundRe = regexp.MustCompile(`\bupper__bound__dt\b`)
)

// Translate converts one Picorules expression (a compute arm side or a
// fetch predicate) to dialect SQL.
func (t *translator) Translate(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return expr
	}

	// The lone-dot guard is an always-true predicate.
	if expr == "." {
		return "1=1"
	}

	h := t.h

	// Backtick literals become SQL string literals.
	expr = backtickRe.ReplaceAllString(expr, "'$1'")

	// Null tests; !? strictly before ?.
	expr = notNullRe.ReplaceAllString(expr, "$1 IS NOT NULL")
	expr = isNullRe.ReplaceAllString(expr, "$1 IS NULL")

	// Date arithmetic involving sysdate runs before the generic sysdate
	// substitution.
	expr = sysdateMinusVarRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := sysdateMinusVarRe.FindStringSubmatch(m)
		return h.dateDiff(h.currentDate, sub[1])
	})
	expr = sysdateArithRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := sysdateArithRe.FindStringSubmatch(m)
		return h.dateAdd(h.currentDate, sub[1]+sub[2])
	})
	expr = varMinusVarRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := varMinusVarRe.FindStringSubmatch(m)
		return h.dateDiff(sub[1], sub[2])
	})
	expr = varArithRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := varArithRe.FindStringSubmatch(m)
		return h.dateAdd(sub[1], sub[2]+sub[3])
	})
	expr = sysdateRe.ReplaceAllString(expr, h.currentDate)

	// Function rewrites. least_date/greatest_date run before least/greatest.
	expr = rewriteCall(expr, "least_date", func(args []string) string {
		return t.boundedExtremum("LEAST", args, upperBoundDate)
	})
	expr = rewriteCall(expr, "greatest_date", func(args []string) string {
		return t.boundedExtremum("GREATEST", args, lowerBoundDate)
	})
	if h.dialect != rules.DialectOracle {
		// Oracle LEAST/GREATEST already propagate NULL; the other backends
		// skip NULL arguments and need the propagation spelled out.
		expr = rewriteCall(expr, "least", func(args []string) string {
			return t.nullPropagating("LEAST", args)
		})
		expr = rewriteCall(expr, "greatest", func(args []string) string {
			return t.nullPropagating("GREATEST", args)
		})
	}
	expr = rewriteCall(expr, "to_number", func(args []string) string {
		if len(args) != 1 {
			return "TO_NUMBER(" + strings.Join(args, ", ") + ")"
		}
		return h.numCast(args[0])
	})
	expr = rewriteCall(expr, "to_char", func(args []string) string {
		switch len(args) {
		case 1:
			return h.strCast(args[0])
		case 2:
			return h.dateFmt(args[0], strings.Trim(args[1], "'"))
		default:
			return "TO_CHAR(" + strings.Join(args, ", ") + ")"
		}
	})

	switch h.dialect {
	case rules.DialectMSSQL:
		expr = rewriteCall(expr, "nvl", func(args []string) string {
			return "ISNULL(" + strings.Join(args, ", ") + ")"
		})
		expr = rewriteCall(expr, "ceil", func(args []string) string {
			return "CEILING(" + strings.Join(args, ", ") + ")"
		})
		expr = rewriteCall(expr, "substr", t.substrCall)
	case rules.DialectPostgres:
		expr = rewriteCall(expr, "nvl", func(args []string) string {
			return "COALESCE(" + strings.Join(args, ", ") + ")"
		})
		expr = rewriteCall(expr, "substr", t.substrCall)
	}

	// System date-bound constants.
	expr = lowerBoundRe.ReplaceAllString(expr, h.dateLit(lowerBoundDate))
	expr = upperBoundRe.ReplaceAllString(expr, h.dateLit(upperBoundDate))

	// Concatenation operator normalisation.
	if h.dialect == rules.DialectMSSQL {
		expr = strings.ReplaceAll(expr, "||", "+")
	}

	return expr
}

// boundedExtremum renders least_date/greatest_date: NULL arguments are
// coalesced to the far sentinel, and a sentinel winner collapses back to
// NULL.
func (t *translator) boundedExtremum(fn string, args []string, sentinel string) string {
	lit := t.h.dateLit(sentinel)
	coalesced := make([]string, len(args))
	for i, a := range args {
		coalesced[i] = fmt.Sprintf("COALESCE(%s, %s)", a, lit)
	}
	return fmt.Sprintf("NULLIF(%s(%s), %s)", fn, strings.Join(coalesced, ", "), lit)
}

// nullPropagating renders least/greatest with Oracle's NULL contract on
// backends whose native functions skip NULLs.
func (t *translator) nullPropagating(fn string, args []string) string {
	tests := make([]string, len(args))
	for i, a := range args {
		tests[i] = a + " IS NULL"
	}
	return fmt.Sprintf("CASE WHEN %s THEN NULL ELSE %s(%s) END",
		strings.Join(tests, " OR "), fn, strings.Join(args, ", "))
}

// substrCall maps the substr forms onto SUBSTRING/RIGHT. Oracle keeps its
// native SUBSTR (whose negative-start form already means "last n"); the
// other backends need the rewrite, with the dialect's length function
// filling the to-end case.
func (t *translator) substrCall(args []string) string {
	switch len(args) {
	case 2:
		start := strings.TrimSpace(args[1])
		if strings.HasPrefix(start, "-") {
			return fmt.Sprintf("RIGHT(%s, %s)", args[0], start[1:])
		}
		return fmt.Sprintf("SUBSTRING(%s, %s, %s(%s))", args[0], start, t.h.strLen, args[0])
	case 3:
		return fmt.Sprintf("SUBSTRING(%s, %s, %s)", args[0], args[1], args[2])
	default:
		return "SUBSTRING(" + strings.Join(args, ", ") + ")"
	}
}

// rewriteCall replaces every call of name in expr by render(args), walking
// argument lists with balanced parentheses so nested calls survive.
func rewriteCall(expr, name string, render func(args []string) string) string {
	lower := strings.ToLower(expr)
	needle := strings.ToLower(name)
	var out strings.Builder
	i := 0
	for i < len(expr) {
		j := strings.Index(lower[i:], needle)
		if j < 0 {
			out.WriteString(expr[i:])
			break
		}
		j += i

		// Identifier-boundary checks on both sides, then the open paren.
		open := j + len(needle)
		boundedLeft := j == 0 || !isWordByte(expr[j-1])
		k := open
		for k < len(expr) && expr[k] == ' ' {
			k++
		}
		if !boundedLeft || k >= len(expr) || expr[k] != '(' {
			out.WriteString(expr[i : j+len(needle)])
			i = j + len(needle)
			continue
		}

		end := matchParen(expr, k)
		if end < 0 {
			out.WriteString(expr[i:])
			break
		}
		args := splitBalanced(expr[k+1:end], ',')
		for idx, a := range args {
			args[idx] = rewriteCall(a, name, render)
		}
		out.WriteString(expr[i:j])
		out.WriteString(render(args))
		i = end + 1
	}
	return out.String()
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// matchParen returns the index of the ')' matching the '(' at open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitBalanced splits s on sep at bracket depth zero. Parentheses and
// square brackets both raise the depth; backtick and single-quote literals
// are opaque.
func splitBalanced(s string, sep byte) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		parts []string
		depth int
		start int
		quote byte
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '`', '\'':
			quote = ch
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}
