package cli

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBatch_DirectoryNotFound(t *testing.T) {
	_, err := LoadBatch(filepath.Join(t.TempDir(), "missing"))
	loadErr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadBatch_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(file, []byte("x: 1\n"), 0644))

	_, err := LoadBatch(file)
	loadErr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadBatch_NoCUEFiles(t *testing.T) {
	_, err := LoadBatch(t.TempDir())
	loadErr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("x: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("not cue"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), []byte("y: 2\n"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDecodeRuleblock(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
ruleblock: ckd: {
	text: "egfr_last => eadv.lab_bld_egfr.val.last();"
}
ruleblock: old: {
	text:   "x => eadv.att1.val.last();"
	active: false
}
`)
	require.NoError(t, v.Err())

	ckd := v.LookupPath(cue.ParsePath("ruleblock.ckd"))
	rb, err := decodeRuleblock("ckd", ckd)
	require.NoError(t, err)
	assert.Equal(t, "ckd", rb.Name)
	assert.Equal(t, "egfr_last => eadv.lab_bld_egfr.val.last();", rb.Text)
	assert.True(t, rb.IsActive)

	old := v.LookupPath(cue.ParsePath("ruleblock.old"))
	rb, err = decodeRuleblock("old", old)
	require.NoError(t, err)
	assert.False(t, rb.IsActive)
}

func TestDecodeRuleblock_MissingText(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`ruleblock: bad: {active: true}`)
	require.NoError(t, v.Err())

	_, err := decodeRuleblock("bad", v.LookupPath(cue.ParsePath("ruleblock.bad")))
	require.Error(t, err)
	loadErr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeBuildFailed, loadErr.Code)
}
