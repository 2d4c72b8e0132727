package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/picorules/internal/rules"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // file write error
)

// LoadError represents an error that occurred during batch loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains the ruleblock batch loaded from a directory.
type LoadResult struct {
	Ruleblocks []rules.RuleblockInput
	FileCount  int // number of CUE files found
}

// LoadBatch loads a ruleblock batch from CUE files in a directory. The
// expected shape is
//
//	ruleblock: <name>: {
//	    text:    string
//	    active?: bool   // default true
//	}
//
// Ruleblocks are returned in the iteration order of the unified CUE value,
// which CUE keeps deterministic.
func LoadBatch(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("batch directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing batch directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	blocksVal := value.LookupPath(cue.ParsePath("ruleblock"))
	if !blocksVal.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no ruleblock definitions found in batch"}
	}
	iter, iterErr := blocksVal.Fields()
	if iterErr != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating ruleblocks: %v", iterErr)}
	}
	for iter.Next() {
		rb, err := decodeRuleblock(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		result.Ruleblocks = append(result.Ruleblocks, rb)
	}

	if len(result.Ruleblocks) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no ruleblock definitions found in batch"}
	}
	return result, nil
}

func decodeRuleblock(name string, v cue.Value) (rules.RuleblockInput, error) {
	rb := rules.NewRuleblock(name, "")

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return rb, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("ruleblock %q has no text field", name)}
	}
	text, err := textVal.String()
	if err != nil {
		return rb, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("ruleblock %q text: %v", name, err)}
	}
	rb.Text = text

	activeVal := v.LookupPath(cue.ParsePath("active"))
	if activeVal.Exists() {
		active, err := activeVal.Bool()
		if err != nil {
			return rb, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("ruleblock %q active: %v", name, err)}
		}
		rb.IsActive = active
	}
	return rb, nil
}

// FindCUEFiles returns every .cue file under dir, walking subdirectories.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	walk := func(path string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() || filepath.Ext(path) != ".cue":
			return nil
		}
		files = append(files, path)
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return files, nil
}
