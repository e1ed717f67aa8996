package ush

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTouch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestExpandGlobArgv_SimplePattern(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "a.py"))
	mustTouch(t, filepath.Join(dir, "b.py"))
	mustTouch(t, filepath.Join(dir, "c.txt"))

	expanded, err := expandGlobArgv([]string{"pargs", "*.py"}, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pargs", "a.py", "b.py"}, expanded)
}

func TestExpandGlobArgv_DashPrefixedTokenIsNeverExpanded(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "a.py"))

	expanded, err := expandGlobArgv([]string{"pargs", "-*.py"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pargs", "-*.py"}, expanded)
}

func TestExpandGlobArgv_NoMatchesPassesThroughLiterally(t *testing.T) {
	dir := t.TempDir()

	expanded, err := expandGlobArgv([]string{"pargs", "*.py"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pargs", "*.py"}, expanded)
}

func TestExpandGlobArgv_TokenWithoutMetacharactersPassesThrough(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "plain.py"))

	expanded, err := expandGlobArgv([]string{"pargs", "plain.py"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pargs", "plain.py"}, expanded)
}

func TestExpandGlobArgv_RecursiveDoubleStarMatchesNestedFiles(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "top.py"))
	mustTouch(t, filepath.Join(dir, "nested", "deep.py"))

	expanded, err := expandGlobArgv([]string{"pargs", "**/*.py"}, dir)
	require.NoError(t, err)
	assert.Contains(t, expanded, "top.py")
	assert.Contains(t, expanded, filepath.Join("nested", "deep.py"))
}

func TestExpandGlobArgv_MixedLiteralAndPatternArgs(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "a.py"))

	expanded, err := expandGlobArgv([]string{"run", "-v", "*.py"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "-v", "a.py"}, expanded)
}

// TestExpandGlobArgv_CommandNameIsNeverExpanded guards argv[0]: even a
// command name that happens to contain glob metacharacters and matches
// real files in dir is passed through literally, since spec.md restricts
// expansion to "every non-first argv token."
func TestExpandGlobArgv_CommandNameIsNeverExpanded(t *testing.T) {
	dir := t.TempDir()
	mustTouch(t, filepath.Join(dir, "a.py"))
	mustTouch(t, filepath.Join(dir, "b.py"))

	expanded, err := expandGlobArgv([]string{"*.py", "*.py"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.py", "a.py", "b.py"}, expanded)
}
