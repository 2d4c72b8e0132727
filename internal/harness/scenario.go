package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/picorules/internal/compile"
	"github.com/roach88/picorules/internal/rules"
	"github.com/roach88/picorules/internal/testutil"
)

// Scenario defines a compile conformance scenario: a batch of inline
// ruleblocks, a dialect, and compile options. Scenarios are compared
// against golden fixtures, so the compile clock is always frozen.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Dialect is the target dialect tag (oracle | mssql | postgresql).
	Dialect string `yaml:"dialect"`

	// Options are the optional compile options.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Ruleblocks is the batch, in submission order.
	Ruleblocks []ScenarioRuleblock `yaml:"ruleblocks"`
}

// ScenarioOptions mirrors the compile options a scenario can set.
type ScenarioOptions struct {
	Subset          []string `yaml:"subset,omitempty"`
	PruneInputs     []string `yaml:"prune_inputs,omitempty"`
	PruneOutputs    []string `yaml:"prune_outputs,omitempty"`
	IncludeInactive bool     `yaml:"include_inactive,omitempty"`
	StaticSysdate   string   `yaml:"static_sysdate,omitempty"`
}

// ScenarioRuleblock is one inline ruleblock.
type ScenarioRuleblock struct {
	Name     string `yaml:"name"`
	Text     string `yaml:"text"`
	Inactive bool   `yaml:"inactive,omitempty"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	if len(s.Ruleblocks) == 0 {
		return nil, fmt.Errorf("scenario %s has no ruleblocks", path)
	}
	return &s, nil
}

// LoadScenarios reads every .yaml scenario in a directory, sorted by file
// name for deterministic test order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var scenarios []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Inputs converts the scenario batch to compiler inputs.
func (s *Scenario) Inputs() []rules.RuleblockInput {
	inputs := make([]rules.RuleblockInput, 0, len(s.Ruleblocks))
	for _, rb := range s.Ruleblocks {
		in := rules.NewRuleblock(rb.Name, rb.Text)
		in.IsActive = !rb.Inactive
		inputs = append(inputs, in)
	}
	return inputs
}

// Run compiles the scenario with a frozen clock.
func Run(s *Scenario) *compile.Result {
	c := compile.New()
	c.Now = testutil.NewFixedClock(testutil.CompileTime).Now
	return c.Compile(s.Inputs(), rules.Options{
		Dialect:         rules.Dialect(s.Dialect),
		IncludeInactive: s.Options.IncludeInactive,
		Subset:          s.Options.Subset,
		PruneInputs:     s.Options.PruneInputs,
		PruneOutputs:    s.Options.PruneOutputs,
		StaticSysdate:   s.Options.StaticSysdate,
	})
}
