package ush

import (
	"os"
	"testing"

	"github.com/ganbarodigital/go_ush/internal/testexec"
)

// helperProcessEnv, when set to "1" in a child's environment, tells this
// same test binary to behave as one of the testexec sample filters
// instead of running the Go test suite — the standard "re-exec the test
// binary as a helper process" idiom (the same shape os/exec's own test
// suite uses) that stands in for the out-of-scope sample executables
// named in spec.md.
const helperProcessEnv = "GO_USH_HELPER_PROCESS"

func TestMain(m *testing.M) {
	if os.Getenv(helperProcessEnv) == "1" {
		name, rest := testexec.ParseHelperArgs(os.Args[1:])
		os.Exit(testexec.Run(name, rest, os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

// helperOne is a small string pool used so Env's nil-means-unset
// convention can be given the address of a literal "1".
var helperOne = "1"

// helperCommand builds a Command that re-execs this test binary as the
// named testexec filter, passing args through to it.
func helperCommand(sh *Shell, name string, args ...string) *Command {
	argv := append([]string{name}, args...)
	return sh.Command(os.Args[0], argv...).Env(helperProcessEnv, &helperOne)
}
