package parser

import (
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

// bindRe matches the fixed bind shape. The rout_ prefix is obligatory in the
// surface syntax; it is stripped here and re-derived per dialect at
// generation time.
var bindRe = regexp.MustCompile(`^([a-z_][a-z0-9_]*) ?=> ?rout_([a-z_][a-z0-9_]*)\.([a-z_][a-z0-9_]*)\.(_|[a-z_][a-z0-9_]*)\.bind\(\)$`)

// parseBind recognises
//
//	local => rout_<block>.<var>.<prop>.bind()
func parseBind(seg string) (rules.Rule, *rules.Error) {
	m := bindRe.FindStringSubmatch(strings.TrimSpace(seg))
	if m == nil {
		return nil, &rules.Error{Code: ErrInvalidBind, Message: "invalid bind statement: " + seg}
	}
	return &rules.Bind{
		Assigned:        m[1],
		SourceRuleblock: m[2],
		SourceVariable:  m[3],
		Property:        m[4],
	}, nil
}
