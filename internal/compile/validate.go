package compile

import (
	"fmt"
	"regexp"

	"github.com/roach88/picorules/internal/rules"
)

// Input validation error codes (E100-E199).
const (
	ErrInvalidName    = "E101" // name violates the grammar or length bound
	ErrTextTooLarge   = "E102" // ruleblock text exceeds the size ceiling
	ErrDuplicateName  = "E103" // ruleblock name repeated within the batch
	ErrInvalidDialect = "E104" // dialect is not a supported tag
	ErrNoRuleblocks   = "E105" // empty batch
)

// maxTextBytes is the per-ruleblock source ceiling (1 MiB).
const maxTextBytes = 1 << 20

const maxNameLen = 100

var nameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validate checks the batch and options. The first failure terminates
// compilation and surfaces as a single error.
func validate(inputs []rules.RuleblockInput, opts rules.Options) *rules.Error {
	if !opts.Dialect.Valid() {
		return &rules.Error{
			Code:    ErrInvalidDialect,
			Message: fmt.Sprintf("unsupported dialect %q: must be one of oracle, mssql, postgresql", opts.Dialect),
		}
	}
	if len(inputs) == 0 {
		return &rules.Error{Code: ErrNoRuleblocks, Message: "no ruleblocks supplied"}
	}

	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if len(in.Name) > maxNameLen || !nameRe.MatchString(in.Name) {
			return &rules.Error{
				Code:      ErrInvalidName,
				Message:   fmt.Sprintf("invalid ruleblock name %q: must match [a-z_][a-z0-9_]* with length 1..%d", in.Name, maxNameLen),
				Ruleblock: in.Name,
			}
		}
		if len(in.Text) > maxTextBytes {
			return &rules.Error{
				Code:      ErrTextTooLarge,
				Message:   fmt.Sprintf("ruleblock text is %d bytes; the ceiling is %d", len(in.Text), maxTextBytes),
				Ruleblock: in.Name,
			}
		}
		if seen[in.Name] {
			return &rules.Error{
				Code:      ErrDuplicateName,
				Message:   "duplicate ruleblock name: " + in.Name,
				Ruleblock: in.Name,
			}
		}
		seen[in.Name] = true
	}
	return nil
}
