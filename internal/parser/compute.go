package parser

import (
	"regexp"
	"strings"

	"github.com/roach88/picorules/internal/rules"
)

var armRe = regexp.MustCompile(`\{([^{}]*)\}`)

// parseCompute recognises
//
//	name : { pred => value }, { pred => value }, ..., { => else_value }
//
// Arms are harvested in textual order; an arm whose predicate side is empty
// is the ELSE arm. At least one arm is required.
func parseCompute(seg string) (rules.Rule, *rules.Error) {
	colon := strings.Index(seg, ":")
	name := strings.TrimSpace(seg[:colon])
	if !isIdent(name) {
		return nil, &rules.Error{Code: ErrInvalidCompute, Message: "invalid compute statement: " + seg}
	}

	var conds []rules.Condition
	for _, m := range armRe.FindAllStringSubmatch(seg[colon+1:], -1) {
		arm := m[1]
		arrow := strings.Index(arm, "=>")
		if arrow < 0 {
			continue
		}
		ret := strings.TrimSpace(arm[arrow+2:])
		if ret == "" {
			continue
		}
		conds = append(conds, rules.Condition{
			Predicate: strings.TrimSpace(arm[:arrow]),
			Return:    ret,
		})
	}
	if len(conds) == 0 {
		return nil, &rules.Error{
			Code:    ErrInvalidCompute,
			Message: "compute statement has no conditions: " + seg,
		}
	}

	return &rules.Compute{Assigned: name, Conditions: conds}, nil
}
