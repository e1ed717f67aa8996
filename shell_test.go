package ush

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_PushPopEnvNests(t *testing.T) {
	sh := NewShell()
	base := sh.currentEnv()

	one := "1"
	sh.PushEnv(map[string]*string{"LEVEL": &one})
	assert.Contains(t, sh.currentEnv(), "LEVEL=1")

	require.NoError(t, sh.PopEnv())
	assert.Equal(t, base, sh.currentEnv())
}

func TestShell_PopEnvBeyondBottomFrameErrors(t *testing.T) {
	sh := NewShell()

	err := sh.PopEnv()
	var empty *ErrEmptyStack
	require.Error(t, err)
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "env", empty.Stack)
}

func TestShell_PushPopDirNests(t *testing.T) {
	sh := NewShell()
	base := sh.currentDir()

	sh.PushDir("/somewhere/else")
	assert.Equal(t, "/somewhere/else", sh.currentDir())

	require.NoError(t, sh.PopDir())
	assert.Equal(t, base, sh.currentDir())
}

// TestShell_PushDirJoinsRelativePathOntoStackTop matches
// original_source/tests/test_chdir.py's nested-relative-chdir scenario:
// a relative PushDir composes against whatever is currently on top of the
// stack, not against the process's own cwd.
func TestShell_PushDirJoinsRelativePathOntoStackTop(t *testing.T) {
	sh := NewShell()
	sh.PushDir("/somewhere")
	sh.PushDir("else")
	assert.Equal(t, "/somewhere/else", sh.currentDir())

	sh.PushDir("deeper")
	assert.Equal(t, "/somewhere/else/deeper", sh.currentDir())

	require.NoError(t, sh.PopDir())
	assert.Equal(t, "/somewhere/else", sh.currentDir())
}

func TestShell_PopDirBeyondBottomFrameErrors(t *testing.T) {
	sh := NewShell()

	err := sh.PopDir()
	var empty *ErrEmptyStack
	require.Error(t, err)
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "dir", empty.Stack)
}

func TestShell_AliasExpandsOnceAndAppendsExtraArgs(t *testing.T) {
	sh := NewShell()
	sh.Alias("ll", "ls", "-l", "-a")

	cmd := sh.Command("ll", "/tmp")
	assert.Equal(t, []string{"ls", "-l", "-a", "/tmp"}, cmd.Argv())
}

func TestShell_AliasesDoNotExpandRecursively(t *testing.T) {
	sh := NewShell()
	sh.Alias("ll", "ls", "-l")
	sh.Alias("lla", "ll", "-a")

	cmd := sh.Command("lla")
	assert.Equal(t, []string{"ll", "-a"}, cmd.Argv())
}

func TestShell_EnvFrameAppliesToCommandsSpawnedUnderIt(t *testing.T) {
	sh := NewShell()
	val := "scoped-value"
	sh.PushEnv(map[string]*string{"USH_SCOPE_TEST": &val})

	cmd := helperCommand(sh, "cat").RedirectStdin(strings.NewReader("x"))
	assert.Contains(t, cmd.resolvedEnv(), "USH_SCOPE_TEST=scoped-value")

	result, err := cmd.Run()
	require.NoError(t, err)
	assert.Equal(t, "x", result.String())
}
