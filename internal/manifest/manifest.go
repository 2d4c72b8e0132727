// Package manifest describes a compiled ruleblock set: execution order,
// target tables, dependencies, and the full dependency graph. The manifest
// serialises to canonical JSON so that identical compilations are
// byte-identical modulo the compile timestamp.
package manifest

import (
	"encoding/json"
	"time"

	"github.com/roach88/picorules/internal/linker"
	"github.com/roach88/picorules/internal/rules"
)

// Version is the manifest schema version.
const Version = "1.0.0"

// Entry describes one emitted ruleblock. ExecutionOrder and SQLIndex both
// equal the entry's position in the SQL list.
type Entry struct {
	RuleblockID     string   `json:"ruleblock_id"`
	ExecutionOrder  int      `json:"execution_order"`
	TargetTable     string   `json:"target_table"`
	Dependencies    []string `json:"dependencies"`
	OutputVariables []string `json:"output_variables"`
	SQLIndex        int      `json:"sql_index"`
}

// Manifest is the structural description of one compilation.
type Manifest struct {
	Version         string              `json:"version"`
	Dialect         string              `json:"dialect"`
	CompiledAt      string              `json:"compiled_at"`
	TotalRuleblocks int                 `json:"total_ruleblocks"`
	Entries         []Entry             `json:"entries"`
	DependencyGraph map[string][]string `json:"dependency_graph"`
}

// Build walks the post-transform ruleblock list. Dependencies come from the
// graph over present nodes; output variables keep source-rule order, with
// dv-family variables appearing once under their logical name.
func Build(blocks []*rules.Ruleblock, g *linker.Graph, dialect rules.Dialect, compiledAt time.Time) *Manifest {
	m := &Manifest{
		Version:         Version,
		Dialect:         string(dialect),
		CompiledAt:      compiledAt.UTC().Format(time.RFC3339),
		TotalRuleblocks: len(blocks),
		Entries:         make([]Entry, 0, len(blocks)),
		DependencyGraph: g.Adjacency(),
	}
	for i, b := range blocks {
		vars := make([]string, 0, len(b.Rules))
		for _, r := range b.Rules {
			vars = append(vars, r.Variable())
		}
		m.Entries = append(m.Entries, Entry{
			RuleblockID:     b.Name,
			ExecutionOrder:  i,
			TargetTable:     dialect.TargetTable(b.Name),
			Dependencies:    g.Dependencies(b.Name),
			OutputVariables: vars,
			SQLIndex:        i,
		})
	}
	return m
}

// Parse decodes a manifest from JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Canonical serialises the manifest as canonical JSON: sorted keys, NFC
// strings, no HTML escaping.
func (m *Manifest) Canonical() ([]byte, error) {
	entries := make([]any, len(m.Entries))
	for i, e := range m.Entries {
		entries[i] = map[string]any{
			"ruleblock_id":     e.RuleblockID,
			"execution_order":  e.ExecutionOrder,
			"target_table":     e.TargetTable,
			"dependencies":     toAnySlice(e.Dependencies),
			"output_variables": toAnySlice(e.OutputVariables),
			"sql_index":        e.SQLIndex,
		}
	}
	graph := make(map[string]any, len(m.DependencyGraph))
	for k, v := range m.DependencyGraph {
		graph[k] = toAnySlice(v)
	}
	return MarshalCanonical(map[string]any{
		"version":          m.Version,
		"dialect":          m.Dialect,
		"compiled_at":      m.CompiledAt,
		"total_ruleblocks": m.TotalRuleblocks,
		"entries":          entries,
		"dependency_graph": graph,
	})
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
