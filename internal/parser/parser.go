package parser

import (
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// Parse error codes (E200-E299).
const (
	ErrInvalidFetch   = "E201" // fetch statement shape mismatch
	ErrInvalidCompute = "E202" // compute statement has no valid arms
	ErrInvalidBind    = "E203" // bind statement shape mismatch

	// WarnDirective marks an ignored '#' compiler directive.
	WarnDirective = "W201"
)

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`//[^\n]*`)
	bracketRe      = regexp.MustCompile(`\[[^\[\]]*\]`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Parse converts one ruleblock's text into its ordered rule list.
//
// All parse failures for the block are collected; a non-nil error list means
// the block did not compile.
func Parse(in rules.RuleblockInput) (*rules.Ruleblock, []rules.Warning, []rules.Error) {
	segments, warnings := preprocess(in.Name, in.Text)

	block := &rules.Ruleblock{Name: in.Name, IsActive: in.IsActive}
	var errs []rules.Error

	for _, seg := range segments {
		rule, err := classify(seg)
		if err != nil {
			err.Ruleblock = in.Name
			errs = append(errs, *err)
			continue
		}
		if rule != nil {
			block.Rules = append(block.Rules, rule)
		}
	}

	for i := range warnings {
		warnings[i].Ruleblock = in.Name
	}

	if len(errs) > 0 {
		return nil, warnings, errs
	}
	return block, warnings, nil
}

// preprocess normalises the source text and splits it into statement
// segments. Order matters:
//
//  1. [[rb_id]] is replaced by the ruleblock's own name
//  2. block and line comments are removed
//  3. whitespace inside [...] is collapsed so multi-line attribute lists
//     survive the global collapse
//  4. all remaining whitespace collapses to single spaces, attaching
//     .where(...) continuations to their statement
//  5. split on ';'
//  6. empty segments are dropped; '#' directives are dropped with a warning
func preprocess(name, text string) ([]string, []rules.Warning) {
	text = strings.ReplaceAll(text, "[[rb_id]]", name)
	text = blockCommentRe.ReplaceAllString(text, " ")
	text = lineCommentRe.ReplaceAllString(text, " ")
	text = bracketRe.ReplaceAllStringFunc(text, func(s string) string {
		return spaceRe.ReplaceAllString(s, "")
	})
	text = spaceRe.ReplaceAllString(text, " ")

	var segments []string
	var warnings []rules.Warning
	for _, seg := range splitStatements(text) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "#") {
			warnings = append(warnings, rules.Warning{
				Code:    WarnDirective,
				Message: "directive ignored: " + seg,
			})
			continue
		}
		segments = append(segments, seg)
	}
	return segments, warnings
}

// classify dispatches a segment to the matching statement parser.
// A segment that is neither bind, fetch nor compute is silently dropped
// (nil rule, nil error).
func classify(seg string) (rules.Rule, *rules.Error) {
	hasArrow := strings.Contains(seg, "=>")
	hasColon := strings.Contains(seg, ":")

	switch {
	case hasArrow && !hasColon && strings.Contains(seg, ".bind()"):
		return parseBind(seg)
	case hasArrow && !hasColon:
		return parseFetch(seg)
	case hasColon:
		return parseCompute(seg)
	default:
		return nil, nil
	}
}

// splitStatements splits on ';' outside backtick literals, so quoted
// delimiters like serialize(`;`) survive.
func splitStatements(text string) []string {
	var (
		segments []string
		start    int
		inQuote  bool
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '`':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				segments = append(segments, text[start:i])
				start = i + 1
			}
		}
	}
	return append(segments, text[start:])
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// isIdent reports whether s is a valid variable/ruleblock identifier.
func isIdent(s string) bool {
	return identRe.MatchString(s)
}
