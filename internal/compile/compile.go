// Package compile is the public entry point of the Picorules compiler: a
// single pure function from a batch of ruleblocks plus options to SQL
// strings, diagnostics, and a manifest.
//
// The pipeline is linear: validate → parse → link → transform → generate →
// manifest. Every stage leaves its input untouched; a fatal error
// short-circuits and returns success=false with an empty SQL list. The
// compiler never panics across this boundary, and concurrent calls with
// disjoint inputs cannot interfere (there is no shared state).
package compile

import (
	"time"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/manifest"
	"github.com/roach88/picorules/internal/parser"
	"github.com/roach88/picorules/internal/rules"
	"github.com/roach88/picorules/internal/sqlgen"
	"github.com/roach88/picorules/internal/transform"
)

// Metrics summarises a compilation.
type Metrics struct {
	RuleblockCount int `json:"ruleblock_count"`
	RuleCount      int `json:"rule_count"`
	SQLBytes       int `json:"sql_bytes"`
}

// Result is the outcome of one compile call. Errors are carried by value;
// on failure SQL is empty and Manifest nil.
type Result struct {
	Success  bool               `json:"success"`
	SQL      []string           `json:"sql"`
	Errors   []rules.Error      `json:"errors,omitempty"`
	Warnings []rules.Warning    `json:"warnings,omitempty"`
	Metrics  *Metrics           `json:"metrics,omitempty"`
	Manifest *manifest.Manifest `json:"manifest,omitempty"`
}

// Compiler carries the compile-time environment. Now is the timestamp
// source for the manifest's compiled_at; tests pin it.
type Compiler struct {
	Now func() time.Time
}

// New creates a Compiler with the wall clock.
func New() *Compiler {
	return &Compiler{Now: time.Now}
}

// Compile runs the full pipeline with a default Compiler.
func Compile(inputs []rules.RuleblockInput, opts rules.Options) *Result {
	return New().Compile(inputs, opts)
}

// Compile converts the batch into a topologically ordered sequence of SQL
// programs, one per surviving ruleblock, plus the manifest describing them.
func (c *Compiler) Compile(inputs []rules.RuleblockInput, opts rules.Options) *Result {
	res := &Result{SQL: []string{}}

	if err := validate(inputs, opts); err != nil {
		return fail(res, *err)
	}

	// Parse every ruleblock, collecting all parse errors before failing.
	var blocks []*rules.Ruleblock
	for _, in := range inputs {
		block, warnings, errs := parser.Parse(in)
		res.Warnings = append(res.Warnings, warnings...)
		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		blocks = append(blocks, block)
	}
	if len(res.Errors) > 0 {
		res.SQL = []string{}
		return res
	}

	// Inactive ruleblocks parse but are filtered unless requested.
	if !opts.IncludeInactive {
		kept := blocks[:0:0]
		for _, b := range blocks {
			if b.IsActive {
				kept = append(kept, b)
			}
		}
		blocks = kept
	}

	linked, lerr := linker.Link(blocks)
	if lerr != nil {
		return fail(res, *lerr)
	}

	emitted := transform.Apply(linked, opts)

	gen := sqlgen.New(opts.Dialect, opts.StaticSysdate)
	ruleCount := 0
	for _, block := range emitted {
		sql, gerr := gen.Ruleblock(block)
		if gerr != nil {
			return fail(res, *gerr)
		}
		res.SQL = append(res.SQL, sql)
		ruleCount += len(block.Rules)
	}

	res.Manifest = manifest.Build(emitted, linked.Graph, opts.Dialect, c.Now())

	sqlBytes := 0
	for _, s := range res.SQL {
		sqlBytes += len(s)
	}
	res.Metrics = &Metrics{
		RuleblockCount: len(emitted),
		RuleCount:      ruleCount,
		SQLBytes:       sqlBytes,
	}
	res.Success = true
	return res
}

func fail(res *Result, err rules.Error) *Result {
	res.Success = false
	res.SQL = []string{}
	res.Errors = append(res.Errors, err)
	return res
}
