package store

import (
	"context"
	"fmt"

	"github.com/roach88/picorules/internal/compile"
)

// RecordRun persists a successful compilation and returns its run id.
// The manifest is stored as canonical JSON; artifacts are stored in
// emission order.
func (s *Store) RecordRun(ctx context.Context, res *compile.Result) (string, error) {
	if !res.Success || res.Manifest == nil {
		return "", fmt.Errorf("cannot record a failed compilation")
	}
	manifestJSON, err := res.Manifest.Canonical()
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	runID := NewRunID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, dialect, created_at, total_ruleblocks, manifest_json)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, res.Manifest.Dialect, res.Manifest.CompiledAt,
		res.Manifest.TotalRuleblocks, string(manifestJSON))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i, entry := range res.Manifest.Entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, sql_index, ruleblock_id, target_table, sql_text)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, entry.SQLIndex, entry.RuleblockID, entry.TargetTable, res.SQL[i])
		if err != nil {
			return "", fmt.Errorf("inserting artifact %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}
