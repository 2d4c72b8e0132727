package parser

import (
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

var attrTokenRe = regexp.MustCompile(`^[\w%]+$`)

// parseFetch recognises
//
//	name => table.attrSpec.property.function(params)[.where(pred)]
//
// where attrSpec is a bare attribute token (optionally containing %) or a
// bracketed list. Function parameters are split on commas at bracket depth
// zero only, so nested calls like round(val,0)~dt stay one parameter.
func parseFetch(seg string) (rules.Rule, *rules.Error) {
	fail := func() (rules.Rule, *rules.Error) {
		return nil, &rules.Error{Code: ErrInvalidFetch, Message: "invalid fetch statement: " + seg}
	}

	arrow := strings.Index(seg, "=>")
	name := strings.TrimSpace(seg[:arrow])
	rest := strings.TrimSpace(seg[arrow+2:])
	if !isIdent(name) {
		return fail()
	}

	// Source table.
	dot := strings.Index(rest, ".")
	if dot <= 0 {
		return fail()
	}
	table := rest[:dot]
	if !isIdent(table) {
		return fail()
	}
	rest = rest[dot+1:]

	// Attribute spec: [a,b,...] or a bare token.
	var attrs []string
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return fail()
		}
		for _, a := range strings.Split(rest[1:end], ",") {
			if a = strings.TrimSpace(a); a != "" {
				attrs = append(attrs, a)
			}
		}
		rest = rest[end+1:]
		if !strings.HasPrefix(rest, ".") {
			return fail()
		}
		rest = rest[1:]
	} else {
		dot = strings.Index(rest, ".")
		if dot <= 0 {
			return fail()
		}
		attrs = []string{rest[:dot]}
		rest = rest[dot+1:]
	}
	if len(attrs) == 0 {
		return fail()
	}
	for _, a := range attrs {
		if !attrTokenRe.MatchString(a) {
			return fail()
		}
	}

	// Property.
	dot = strings.Index(rest, ".")
	if dot <= 0 {
		return fail()
	}
	prop := rest[:dot]
	if prop != "_" && !isIdent(prop) {
		return fail()
	}
	rest = rest[dot+1:]

	// function(params)
	open := strings.Index(rest, "(")
	if open <= 0 {
		return fail()
	}
	fn := rest[:open]
	if !isIdent(fn) {
		return fail()
	}
	end := matchParen(rest, open)
	if end < 0 {
		return fail()
	}
	params := splitArgs(rest[open+1 : end])
	tail := strings.TrimSpace(rest[end+1:])

	// Optional .where(pred) continuation.
	var pred string
	if tail != "" {
		if !strings.HasPrefix(tail, ".where(") || !strings.HasSuffix(tail, ")") {
			return fail()
		}
		pred = strings.TrimSpace(tail[len(".where(") : len(tail)-1])
		if pred == "" {
			return fail()
		}
	}

	return &rules.Fetch{
		Assigned:   name,
		Table:      table,
		Attributes: attrs,
		Property:   prop,
		Function:   fn,
		Params:     params,
		Predicate:  pred,
	}, nil
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

// splitArgs splits a parameter substring on commas at bracket depth zero.
// Parentheses and square brackets both raise the depth; backtick literals
// are opaque.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		args    []string
		depth   int
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}
