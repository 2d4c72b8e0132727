package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/parser"
	"github.com/roach88/picorules/internal/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the JSON payload of a successful validation.
type ValidationReport struct {
	Ruleblocks []RuleblockReport `json:"ruleblocks"`
	Order      []string          `json:"execution_order"`
}

// RuleblockReport summarises one parsed ruleblock.
type RuleblockReport struct {
	Name      string   `json:"name"`
	RuleCount int      `json:"rule_count"`
	IsActive  bool     `json:"is_active"`
	DependsOn []string `json:"depends_on"`
}

// NewValidateCommand creates the validate command: parse and link without
// generating SQL.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate <batch-dir>",
		Short:         "Parse and link a ruleblock batch without generating SQL",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *ValidateOptions, batchDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batch, err := LoadBatch(batchDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	var (
		blocks []*rules.Ruleblock
		errs   []rules.Error
	)
	for _, in := range batch.Ruleblocks {
		block, _, perrs := parser.Parse(in)
		if len(perrs) > 0 {
			errs = append(errs, perrs...)
			continue
		}
		blocks = append(blocks, block)
	}
	if len(errs) > 0 {
		return outputDiagnostics(formatter, errs)
	}

	linked, lerr := linker.Link(blocks)
	if lerr != nil {
		return outputDiagnostics(formatter, []rules.Error{*lerr})
	}

	report := ValidationReport{}
	for _, b := range linked.Blocks {
		report.Order = append(report.Order, b.Name)
		report.Ruleblocks = append(report.Ruleblocks, RuleblockReport{
			Name:      b.Name,
			RuleCount: len(b.Rules),
			IsActive:  b.IsActive,
			DependsOn: linked.Graph.Dependencies(b.Name),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "✓ Validated %d ruleblock(s)\n\n", len(report.Ruleblocks))
	for _, rb := range report.Ruleblocks {
		fmt.Fprintf(formatter.Writer, "  %s: %d rule(s)", rb.Name, rb.RuleCount)
		if !rb.IsActive {
			fmt.Fprint(formatter.Writer, " [inactive]")
		}
		if len(rb.DependsOn) > 0 {
			fmt.Fprintf(formatter.Writer, " (depends on %v)", rb.DependsOn)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func outputDiagnostics(formatter *OutputFormatter, errs []rules.Error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, e := range errs {
			cliErrors[i] = CLIError{Code: e.Code, Message: e.Message}
		}
		_ = formatter.Error(cliErrors[0].Code, cliErrors[0].Message, cliErrors)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Ruleblock != "" {
			fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", e.Ruleblock, e.Code, e.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  [%s]: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
