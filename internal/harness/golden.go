package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/picorules/internal/compile"
)

// RunWithGolden compiles a scenario and compares the snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Failed compilations snapshot their diagnostics instead of SQL, so error
// scenarios golden-test the same way success scenarios do.
func RunWithGolden(t *testing.T, s *Scenario) *compile.Result {
	t.Helper()

	result := Run(s)
	AssertGolden(t, s.Name, result)
	return result
}

// AssertGolden compares an already-computed result against the named golden
// file.
func AssertGolden(t *testing.T, name string, result *compile.Result) {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		t.Fatalf("building snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
}

// Snapshot renders a result deterministically: every emitted program under
// a header naming its ruleblock and target table, then the canonical
// manifest JSON. Failures render their error list instead.
func Snapshot(result *compile.Result) ([]byte, error) {
	var buf bytes.Buffer

	if !result.Success {
		buf.WriteString("-- COMPILATION FAILED\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&buf, "-- [%s] %s\n", e.Code, e.Message)
		}
		return buf.Bytes(), nil
	}

	for i, entry := range result.Manifest.Entries {
		fmt.Fprintf(&buf, "-- %d. %s -> %s\n", entry.ExecutionOrder, entry.RuleblockID, entry.TargetTable)
		buf.WriteString(result.SQL[i])
		buf.WriteString("\n\n")
	}

	manifestJSON, err := result.Manifest.Canonical()
	if err != nil {
		return nil, err
	}
	buf.WriteString("-- MANIFEST\n")
	buf.Write(manifestJSON)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
