package ush

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_BuildersReturnNewValuesAndDoNotMutateReceiver(t *testing.T) {
	sh := NewShell()
	base := sh.Command("cat")

	withArgs := base.Args("-n")
	assert.Equal(t, []string{"cat"}, base.Argv())
	assert.Equal(t, []string{"cat", "-n"}, withArgs.Argv())

	one := "1"
	withEnv := base.Env("FOO", &one)
	assert.Nil(t, base.envOverrides)
	assert.Equal(t, &one, withEnv.envOverrides["FOO"])
}

func TestCommand_EnvNilValueUnsetsKey(t *testing.T) {
	sh := NewShell()
	one := "1"
	sh.PushEnv(map[string]*string{"FOO": &one})

	cmd := sh.Command("cat").Env("FOO", nil)
	env := cmd.resolvedEnv()
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "FOO="), "FOO should have been unset, got %q", kv)
	}
}

func TestCommand_ResolvedEnvMergesByDefault(t *testing.T) {
	sh := NewShell()
	one := "1"
	sh.PushEnv(map[string]*string{"EXISTING": &one})

	two := "2"
	cmd := sh.Command("cat").Env("NEW", &two)
	env := cmd.resolvedEnv()

	assert.Contains(t, env, "EXISTING=1")
	assert.Contains(t, env, "NEW=2")
}

func TestCommand_MergeEnvFalseReplacesInsteadOfMerging(t *testing.T) {
	sh := NewShell()
	one := "1"
	sh.PushEnv(map[string]*string{"EXISTING": &one})

	two := "2"
	cmd := sh.Command("cat").Env("NEW", &two).MergeEnv(false)
	env := cmd.resolvedEnv()

	assert.NotContains(t, env, "EXISTING=1")
	assert.Contains(t, env, "NEW=2")
}

func TestCommand_CwdOverridesShellDirectory(t *testing.T) {
	sh := NewShell()
	sh.PushDir("/shell-dir")

	cmd := sh.Command("cat")
	assert.Equal(t, "/shell-dir", cmd.resolvedCwd())

	withCwd := cmd.Cwd("/explicit-dir")
	assert.Equal(t, "/explicit-dir", withCwd.resolvedCwd())
}

func TestCommand_GlobDisabledLeavesArgvLiteral(t *testing.T) {
	sh := NewShell()
	cmd := sh.Command("cat", "*.go").Glob(false)

	argv, err := cmd.resolvedArgv()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "*.go"}, argv)
}

func TestCommand_StringRendersArgvAndOverrides(t *testing.T) {
	sh := NewShell()
	s := sh.Command("cat", "-n").Cwd("/tmp").String()

	assert.Contains(t, s, "cat -n")
	assert.Contains(t, s, `cwd="/tmp"`)
}

func TestCommand_RunWrapsSingleCommandInAPipeline(t *testing.T) {
	sh := NewShell()
	result, err := helperCommand(sh, "cat").RedirectStdin(strings.NewReader("hi")).Run()
	require.NoError(t, err)
	assert.Equal(t, "hi", result.String())
}

func TestCommand_CwdJoinsRelativePathOntoShellDirectory(t *testing.T) {
	sh := NewShell()
	sh.PushDir("/shell-dir")

	cmd := sh.Command("cat").Cwd("sub/dir")
	assert.Equal(t, "/shell-dir/sub/dir", cmd.resolvedCwd())

	dotted := sh.Command("cat").Cwd("../up")
	assert.Equal(t, "/up", dotted.resolvedCwd())
}

func TestCommand_RedirectStdinTwiceReturnsAlreadyRedirected(t *testing.T) {
	sh := NewShell()
	cmd := sh.Command("cat").
		RedirectStdin(strings.NewReader("first")).
		RedirectStdin(strings.NewReader("second"))

	var already *AlreadyRedirected
	require.Error(t, cmd.Err())
	require.ErrorAs(t, cmd.Err(), &already)
	assert.Equal(t, "stdin", already.Stream)

	_, err := cmd.Run()
	require.ErrorAs(t, err, &already)
}

func TestCommand_RedirectStdoutTwiceReturnsAlreadyRedirected(t *testing.T) {
	sh := NewShell()
	cmd := sh.Command("cat").RedirectStdout(DevNull).RedirectStdout(PIPE)

	var already *AlreadyRedirected
	require.Error(t, cmd.Err())
	require.ErrorAs(t, cmd.Err(), &already)
	assert.Equal(t, "stdout", already.Stream)
}

func TestCommand_RedirectStderrTwiceReturnsAlreadyRedirected(t *testing.T) {
	sh := NewShell()
	cmd := sh.Command("cat").RedirectStderr(DevNull).RedirectStderr(Stdout)

	var already *AlreadyRedirected
	require.Error(t, cmd.Err())
	require.ErrorAs(t, cmd.Err(), &already)
	assert.Equal(t, "stderr", already.Stream)
}
