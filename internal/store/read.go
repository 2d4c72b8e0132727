package store

import (
	"context"
	"fmt"

	"github.com/roach88/picorules/internal/manifest"
)

// Run is a stored compile run.
type Run struct {
	ID              string `json:"id"`
	Dialect         string `json:"dialect"`
	CreatedAt       string `json:"created_at"`
	TotalRuleblocks int    `json:"total_ruleblocks"`
	ManifestJSON    string `json:"manifest_json"`
}

// Artifact is one stored ruleblock program.
type Artifact struct {
	RunID       string `json:"run_id"`
	SQLIndex    int    `json:"sql_index"`
	RuleblockID string `json:"ruleblock_id"`
	TargetTable string `json:"target_table"`
	SQLText     string `json:"sql_text"`
}

// GetRun reads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dialect, created_at, total_ruleblocks, manifest_json
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Dialect, &r.CreatedAt, &r.TotalRuleblocks, &r.ManifestJSON)
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}
	return &r, nil
}

// Manifest decodes the run's stored manifest.
func (r *Run) Manifest() (*manifest.Manifest, error) {
	return manifest.Parse([]byte(r.ManifestJSON))
}

// ListRuns returns all runs ordered by id; UUIDv7 ids make that creation
// order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dialect, created_at, total_ruleblocks, manifest_json
		 FROM runs ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Dialect, &r.CreatedAt, &r.TotalRuleblocks, &r.ManifestJSON); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Artifacts returns a run's programs in emission order.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, sql_index, ruleblock_id, target_table, sql_text
		 FROM artifacts WHERE run_id = ? ORDER BY sql_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts for %s: %w", runID, err)
	}
	defer rows.Close()

	var arts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.RunID, &a.SQLIndex, &a.RuleblockID, &a.TargetTable, &a.SQLText); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		arts = append(arts, a)
	}
	return arts, rows.Err()
}
