package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/picorules/internal/compile"
	"github.com/roach88/picorules/internal/rules"
	"github.com/roach88/picorules/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect         string
	Output          string // output directory
	Subset          []string
	PruneInputs     []string
	PruneOutputs    []string
	IncludeInactive bool
	StaticSysdate   string
	StorePath       string // provenance database path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <batch-dir>",
		Short: "Compile a ruleblock batch to SQL",
		Long: `Compile the CUE-defined ruleblock batch in a directory to
dependency-ordered SQL programs plus a manifest.

With --output, one .sql file per ruleblock and a manifest.json are written
to the directory. With --store, the run is recorded in a provenance
database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // errors are formatted by our own output path
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "target dialect (oracle|mssql|postgresql)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory")
	cmd.Flags().StringSliceVar(&opts.Subset, "subset", nil, "compile only the named ruleblocks")
	cmd.Flags().StringSliceVar(&opts.PruneInputs, "prune-inputs", nil, "keep only descendants of the named ruleblocks")
	cmd.Flags().StringSliceVar(&opts.PruneOutputs, "prune-outputs", nil, "keep only ancestors of the named ruleblocks")
	cmd.Flags().BoolVar(&opts.IncludeInactive, "include-inactive", false, "compile inactive ruleblocks too")
	cmd.Flags().StringVar(&opts.StaticSysdate, "static-sysdate", "", "literal replacing the current-date function")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "record the run in this provenance database")
	cmd.MarkFlagRequired("dialect")

	return cmd
}

func runCompile(opts *CompileOptions, batchDir string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Found %d CUE file(s) in %s", batch.FileCount, batchDir)
	for _, rb := range batch.Ruleblocks {
		formatter.VerboseLog("Loaded ruleblock: %s (%d bytes)", rb.Name, len(rb.Text))
	}

	result := compile.Compile(batch.Ruleblocks, rules.Options{
		Dialect:         rules.Dialect(opts.Dialect),
		IncludeInactive: opts.IncludeInactive,
		Subset:          opts.Subset,
		PruneInputs:     opts.PruneInputs,
		PruneOutputs:    opts.PruneOutputs,
		StaticSysdate:   opts.StaticSysdate,
	})

	if !result.Success {
		return outputCompileErrors(formatter, result)
	}

	if opts.Output != "" {
		if err := writeArtifacts(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output", err)
		}
	}

	if opts.StorePath != "" {
		runID, err := recordRun(result, opts.StorePath)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", runID, opts.StorePath)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func recordRun(result *compile.Result, storePath string) (string, error) {
	st, err := store.Open(storePath)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.RecordRun(context.Background(), result)
}

// writeArtifacts writes one .sql file per ruleblock plus manifest.json.
func writeArtifacts(result *compile.Result, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for i, entry := range result.Manifest.Entries {
		path := filepath.Join(dir, entry.RuleblockID+".sql")
		if err := os.WriteFile(path, []byte(result.SQL[i]), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	manifestJSON, err := result.Manifest.Canonical()
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, append(manifestJSON, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func outputCompileSuccess(formatter *OutputFormatter, result *compile.Result, outputDir string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d ruleblock(s), %d rule(s)\n\n",
		result.Metrics.RuleblockCount, result.Metrics.RuleCount)
	for _, entry := range result.Manifest.Entries {
		fmt.Fprintf(formatter.Writer, "  %d. %s → %s", entry.ExecutionOrder, entry.RuleblockID, entry.TargetTable)
		if len(entry.Dependencies) > 0 {
			fmt.Fprintf(formatter.Writer, " (depends on %v)", entry.Dependencies)
		}
		fmt.Fprintln(formatter.Writer)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(formatter.Writer)
		for _, w := range result.Warnings {
			fmt.Fprintf(formatter.Writer, "  warning [%s] %s: %s\n", w.Code, w.Ruleblock, w.Message)
		}
	}
	if outputDir != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote SQL and manifest to %s\n", outputDir)
	}
	return nil
}

func outputCompileErrors(formatter *OutputFormatter, result *compile.Result) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(result.Errors))
		for i, e := range result.Errors {
			cliErrors[i] = CLIError{Code: e.Code, Message: e.Message}
		}
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // all errors, not just the first
		}
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		if e.Ruleblock != "" {
			fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", e.Ruleblock, e.Code, e.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  [%s]: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(result.Errors)))
}

func outputLoadError(formatter *OutputFormatter, err error) error {
	if loadErr, ok := err.(*LoadError); ok {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Message, nil)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, err.Error(), nil)
}
