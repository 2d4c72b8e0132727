package rules

import "strings"

// Dialect identifies a target SQL engine.
type Dialect string

const (
	DialectOracle   Dialect = "oracle"
	DialectMSSQL    Dialect = "mssql"
	DialectPostgres Dialect = "postgresql"
)

// ValidDialects defines the allowed dialect tags.
var ValidDialects = []Dialect{DialectOracle, DialectMSSQL, DialectPostgres}

// Valid reports whether the dialect is one of the supported tags.
func (d Dialect) Valid() bool {
	for _, v := range ValidDialects {
		if d == v {
			return true
		}
	}
	return false
}

// TargetTable returns the output table name for a ruleblock under this
// dialect. Naming is deterministic:
//
//	oracle:     ROUT_<NAME>   (upper)
//	mssql:      SROUT_<name>  (name case preserved)
//	postgresql: rout_<name>   (lower; matches what the server folds
//	            the unquoted DDL identifier to)
func (d Dialect) TargetTable(name string) string {
	switch d {
	case DialectMSSQL:
		return "SROUT_" + name
	case DialectPostgres:
		return "rout_" + strings.ToLower(name)
	default:
		return "ROUT_" + strings.ToUpper(name)
	}
}

// RuleblockInput is one unit of rule source text submitted for compilation.
type RuleblockInput struct {
	Name     string `json:"name"`
	Text     string `json:"text"`
	IsActive bool   `json:"is_active"`
}

// NewRuleblock creates an active ruleblock input.
func NewRuleblock(name, text string) RuleblockInput {
	return RuleblockInput{Name: name, Text: text, IsActive: true}
}

// Ruleblock is a parsed ruleblock: the input identity plus its ordered rules.
type Ruleblock struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	Rules    []Rule `json:"rules"`
}

// Rule is the sealed union of the three statement shapes.
//
// Only Fetch, Compute and Bind implement Rule. Backends switch exhaustively:
//
//	switch r := rule.(type) {
//	case *Fetch:
//	case *Compute:
//	case *Bind:
//	}
type Rule interface {
	isRule()

	// Variable returns the assigned variable name.
	Variable() string

	// Refs returns the free variable names the rule uses. Populated by the
	// linker; empty until then.
	Refs() []string
}

// Fetch derives a per-subject value from the event table.
type Fetch struct {
	Assigned   string   `json:"assigned"`
	Table      string   `json:"table"`
	Attributes []string `json:"attributes"`
	Property   string   `json:"property"`
	Function   string   `json:"function"`
	Params     []string `json:"params,omitempty"`
	Predicate  string   `json:"predicate,omitempty"`
	References []string `json:"references,omitempty"`
}

// Condition is one arm of a Compute rule. An arm with an empty Predicate is
// the ELSE arm.
type Condition struct {
	Predicate string `json:"predicate,omitempty"`
	Return    string `json:"return"`
}

// Compute derives a per-subject value from earlier variables via first-match
// CASE logic.
type Compute struct {
	Assigned   string      `json:"assigned"`
	Conditions []Condition `json:"conditions"`
	References []string    `json:"references,omitempty"`
}

// Bind pulls a previously materialised variable from another ruleblock's
// output table.
type Bind struct {
	Assigned        string   `json:"assigned"`
	SourceRuleblock string   `json:"source_ruleblock"`
	SourceVariable  string   `json:"source_variable"`
	Property        string   `json:"property"`
	References      []string `json:"references,omitempty"`
}

func (*Fetch) isRule()   {}
func (*Compute) isRule() {}
func (*Bind) isRule()    {}

func (f *Fetch) Variable() string   { return f.Assigned }
func (c *Compute) Variable() string { return c.Assigned }
func (b *Bind) Variable() string    { return b.Assigned }

func (f *Fetch) Refs() []string   { return f.References }
func (c *Compute) Refs() []string { return c.References }
func (b *Bind) Refs() []string    { return b.References }

// PropertyVal is the value column that the sentinel property "_" resolves to.
const PropertyVal = "val"

// ResolveProperty maps the surface property token to the event-table column.
// The sentinel "_" means val.
func ResolveProperty(prop string) string {
	if prop == "" || prop == "_" {
		return PropertyVal
	}
	return prop
}

// Options controls a compile call.
type Options struct {
	Dialect         Dialect  `json:"dialect"`
	IncludeInactive bool     `json:"include_inactive,omitempty"`
	Subset          []string `json:"subset,omitempty"`
	PruneInputs     []string `json:"prune_inputs,omitempty"`
	PruneOutputs    []string `json:"prune_outputs,omitempty"`

	// StaticSysdate, when set, replaces the dialect current-date function in
	// generated SQL with the given literal (e.g. "DATE '2024-01-01'").
	StaticSysdate string `json:"static_sysdate,omitempty"`
}
