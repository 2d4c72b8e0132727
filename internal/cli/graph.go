package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/parser"
	"github.com/roach88/picorules/internal/rules"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
}

// GraphReport is the JSON payload of the graph command.
type GraphReport struct {
	Order     []string            `json:"execution_order"`
	Adjacency map[string][]string `json:"dependency_graph"`
}

// NewGraphCommand creates the graph command: print the dependency graph
// and execution order of a batch.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "graph <batch-dir>",
		Short:         "Show the dependency graph and execution order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}
	return cmd
}

func runGraph(opts *GraphOptions, batchDir string, cmd *cobra.Command) error {
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

	report := GraphReport{Adjacency: linked.Graph.Adjacency()}
	for _, b := range linked.Blocks {
		report.Order = append(report.Order, b.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintln(formatter.Writer, "Execution order:")
	for i, name := range report.Order {
		fmt.Fprintf(formatter.Writer, "  %d. %s\n", i, name)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Dependencies:")
	for _, name := range report.Order {
		deps := report.Adjacency[name]
		if len(deps) == 0 {
			fmt.Fprintf(formatter.Writer, "  %s: (none)\n", name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %v\n", name, deps)
	}
	return nil
}
