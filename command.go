// ush is a library to help you write UNIX-like pipelines of operations
//
// inspired by:
//
// - https://github.com/tarruda/ush
// - https://github.com/ganbarodigital/go_pipe
//
// Copyright 2019-present Ganbaro Digital Ltd
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
//   * Redistributions of source code must retain the above copyright
//     notice, this list of conditions and the following disclaimer.
//
//   * Redistributions in binary form must reproduce the above copyright
//     notice, this list of conditions and the following disclaimer in
//     the documentation and/or other materials provided with the
//     distribution.
//
//   * Neither the names of the copyright holders nor the names of his
//     contributors may be used to endorse or promote products derived
//     from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS
// FOR A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE
// COPYRIGHT OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT,
// INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES;
// LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER
// CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT
// LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN
// ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package ush

import (
	"fmt"
	"strings"
)

// Command is an immutable description of a single step in a pipeline: an
// argv, a set of options, and the Shell it will eventually run under.
//
// Every builder method returns a new *Command; the receiver is never
// mutated. This lets callers build a "base" command once and branch it
// into several variants safely.
type Command struct {
	shell *Shell
	argv  []string

	stdin  redirectTarget
	stdout redirectTarget
	stderr redirectTarget

	envOverrides map[string]*string
	cwd          string
	hasCwd       bool

	raiseOnError bool
	mergeEnv     bool
	glob         bool
	preexecHooks []func() error

	// err is set by a builder method that detects a structural problem a
	// Command can't simply refuse to build (it must keep returning a
	// *Command to stay chainable) — currently only a stream redirected a
	// second time. It is checked by Pipe/Run via Pipeline.validate, the
	// same place a mid-pipeline redirect conflict is caught.
	err error
}

// newCommand creates a Command bound to sh with the given argv. Internal
// constructor; callers go through Shell.Command.
func newCommand(sh *Shell, argv []string) *Command {
	return &Command{
		shell:    sh,
		argv:     append([]string(nil), argv...),
		stdin:    redirectNone{},
		stdout:   redirectNone{},
		stderr:   redirectNone{},
		glob:     false,
		mergeEnv: true,
	}
}

// clone returns a shallow copy of c, suitable for a builder method to
// mutate one field of before returning.
func (c *Command) clone() *Command {
	cp := *c
	cp.argv = append([]string(nil), c.argv...)
	if c.envOverrides != nil {
		cp.envOverrides = make(map[string]*string, len(c.envOverrides))
		for k, v := range c.envOverrides {
			cp.envOverrides[k] = v
		}
	}
	cp.preexecHooks = append([]func() error(nil), c.preexecHooks...)
	return &cp
}

// Args returns a new Command with extra argv entries appended.
func (c *Command) Args(args ...string) *Command {
	cp := c.clone()
	cp.argv = append(cp.argv, args...)
	return cp
}

// Argv returns the command's argv as built so far (before glob expansion).
func (c *Command) Argv() []string {
	return append([]string(nil), c.argv...)
}

// RedirectStdin returns a new Command whose stdin reads from target, which
// may be a string (a path), an io.Reader, or a byte-producing func. Each
// stream may only be targeted once (spec.md's single-assignment rule,
// Testable Property 2): redirecting a stream that was already redirected
// on this same Command leaves the target untouched and records an
// *AlreadyRedirected error, retrievable via Err() and raised by Pipe/Run
// through Pipeline.validate, exactly like the narrower mid-pipeline case
// validate already catches.
func (c *Command) RedirectStdin(target interface{}) *Command {
	cp := c.clone()
	if cp.err != nil {
		return cp
	}
	if _, ok := cp.stdin.(redirectNone); !ok {
		cp.err = &AlreadyRedirected{Stream: "stdin", Argv: cp.argv}
		return cp
	}
	cp.stdin = classifyReadTarget(target)
	return cp
}

// RedirectStdout returns a new Command whose stdout is redirected to
// target: a path (string), DevNull, an io.Writer, or PIPE (expose this
// stream to Iterate/IterateRaw as a live, caller-drained channel instead
// of buffering it into the Result). The Stdout sentinel is accepted here
// too; on stdout it leaves the stream captured into the Result, as if it
// had not been redirected.
// See RedirectStdin's doc comment for the double-redirect rule.
func (c *Command) RedirectStdout(target interface{}) *Command {
	cp := c.clone()
	if cp.err != nil {
		return cp
	}
	if _, ok := cp.stdout.(redirectNone); !ok {
		cp.err = &AlreadyRedirected{Stream: "stdout", Argv: cp.argv}
		return cp
	}
	cp.stdout = classifyWriteTarget(target)
	return cp
}

// RedirectStderr returns a new Command whose stderr is redirected the same
// way RedirectStdout redirects stdout, plus the Stdout sentinel which
// means "merge stderr into wherever stdout is headed." See RedirectStdin's
// doc comment for the double-redirect rule.
func (c *Command) RedirectStderr(target interface{}) *Command {
	cp := c.clone()
	if cp.err != nil {
		return cp
	}
	if _, ok := cp.stderr.(redirectNone); !ok {
		cp.err = &AlreadyRedirected{Stream: "stderr", Argv: cp.argv}
		return cp
	}
	cp.stderr = classifyWriteTarget(target)
	return cp
}

// Err returns the error recorded against this Command, if any — currently
// only *AlreadyRedirected. It is checked by Pipeline.validate before
// anything is spawned, the same place a mid-pipeline conflict surfaces.
func (c *Command) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}

// Env returns a new Command whose spawn-time environment overrides key to
// value. Passing a nil value unsets the key entirely for this command,
// mirroring the Python ush library's "null value unsets" convention
// (original_source/tests/test_env.py).
func (c *Command) Env(key string, value *string) *Command {
	cp := c.clone()
	if cp.envOverrides == nil {
		cp.envOverrides = make(map[string]*string)
	}
	cp.envOverrides[key] = value
	return cp
}

// MergeEnv returns a new Command whose Env overrides are merged onto the
// Shell's current environment frame (the default) rather than replacing
// it outright.
func (c *Command) MergeEnv(merge bool) *Command {
	cp := c.clone()
	cp.mergeEnv = merge
	return cp
}

// Cwd returns a new Command that will run with the given working
// directory instead of the Shell's current directory frame.
func (c *Command) Cwd(dir string) *Command {
	cp := c.clone()
	cp.cwd = dir
	cp.hasCwd = true
	return cp
}

// RaiseOnError returns a new Command that turns on error raising for the
// whole Pipeline it runs in: once the pipeline finishes, if any of its
// steps exited non-zero, Run returns a *ProcessError with one
// ProcessFailure per failing step instead of only recording the codes in
// the Result.
func (c *Command) RaiseOnError() *Command {
	cp := c.clone()
	cp.raiseOnError = true
	return cp
}

// Glob returns a new Command with glob expansion of argv tokens enabled
// or disabled. It defaults to disabled: unless Glob(true) is called, every
// argv token is passed through literally.
func (c *Command) Glob(enabled bool) *Command {
	cp := c.clone()
	cp.glob = enabled
	return cp
}

// PreexecHook returns a new Command with an extra hook appended. Hooks run
// in the parent process immediately before the child is spawned — Go has
// no portable way to run arbitrary code inside a forked child between
// fork and exec, unlike CPython's Popen(preexec_fn=...), so these run
// just-before-Start() instead of just-after-fork().
func (c *Command) PreexecHook(hook func() error) *Command {
	cp := c.clone()
	cp.preexecHooks = append(cp.preexecHooks, hook)
	return cp
}

// Pipe returns a new Pipeline made of c followed by next, wiring c's
// stdout to next's stdin. It is the Go equivalent of the Python ush
// library's Command.__or__ operator overload.
func (c *Command) Pipe(next *Command) *Pipeline {
	return newPipeline(c).Pipe(next)
}

// Run builds a one-command Pipeline out of c and runs it to completion.
func (c *Command) Run() (*Result, error) {
	return newPipeline(c).Run()
}

// Iterate builds a one-command Pipeline out of c and runs it via
// Pipeline.Iterate.
func (c *Command) Iterate() (<-chan PipeChunk, func() (*Result, error), error) {
	return newPipeline(c).Iterate()
}

// IterateRaw builds a one-command Pipeline out of c and runs it via
// Pipeline.IterateRaw.
func (c *Command) IterateRaw() (<-chan PipeChunk, func() (*Result, error), error) {
	return newPipeline(c).IterateRaw()
}

// String renders the command the way a human would type it, for
// diagnostics and log lines: `argv (opt="val" ...)`.
func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(c.argv, " "))
	if c.hasCwd {
		fmt.Fprintf(&b, " (cwd=%q)", c.cwd)
	}
	for k, v := range c.envOverrides {
		if v == nil {
			fmt.Fprintf(&b, " (env %s=<unset>)", k)
		} else {
			fmt.Fprintf(&b, " (env %s=%q)", k, *v)
		}
	}
	return b.String()
}

// resolvedEnv computes this command's final flat environment, folding the
// Shell's current env stack frame with this command's overrides (merge or
// replace, per MergeEnv).
func (c *Command) resolvedEnv() []string {
	base := c.shell.currentEnv()
	if len(c.envOverrides) == 0 {
		return base
	}

	merged := make(map[string]string, len(base))
	if c.mergeEnv {
		// Ush's default is to merge onto the current frame; a command
		// that wants a clean-room environment calls MergeEnv(false),
		// matching original_source/ush.py's setenv(merge_env=False).
		for _, kv := range base {
			if idx := strings.IndexByte(kv, '='); idx >= 0 {
				merged[kv[:idx]] = kv[idx+1:]
			}
		}
	}
	for k, v := range c.envOverrides {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// resolvedCwd returns this command's working directory, falling back to
// the Shell's current directory frame. A relative Cwd() is joined onto
// that frame and normalized, the same rule PushDir applies (shell.go).
func (c *Command) resolvedCwd() string {
	base := c.shell.currentDir()
	if !c.hasCwd {
		return base
	}
	return resolveDir(base, c.cwd)
}

// resolvedArgv expands glob tokens (when enabled) via the Shell's glob
// adapter, in the argv's own working directory.
func (c *Command) resolvedArgv() ([]string, error) {
	if !c.glob {
		return c.argv, nil
	}
	return expandGlobArgv(c.argv, c.resolvedCwd())
}
