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
	"os"
	"path/filepath"
	"sync"

	envish "github.com/ganbarodigital/go_envish/v3"
	"go.uber.org/zap"
)

// Shell is a scoped execution context: a stack of environment frames, a
// stack of working directories, and an alias table. Every Command is
// bound to exactly one Shell, and resolves its env/cwd against whatever
// is on top of that Shell's stacks at the moment it runs.
//
// A Shell is not safe for concurrent use by multiple goroutines pushing
// and popping its stacks at the same time — exactly like the teacher's
// Pipe stdio stacks (v6/pipe_test.go), scoping is a single-goroutine,
// nested-function-call idiom ("push, defer pop").
type Shell struct {
	mu sync.Mutex

	envStack []*envish.Env
	dirStack []string

	aliases map[string]*Command

	log *zap.Logger
}

// ShellOption configures a Shell at construction time, following the
// functional-options pattern the teacher uses for NewPipe (v5/pipe.go).
type ShellOption func(*Shell)

// WithLogger attaches a *zap.Logger a Shell will use for debug-level
// spawn/pump tracing. The default Shell uses a no-op logger — tracing is
// opt-in, never required.
func WithLogger(l *zap.Logger) ShellOption {
	return func(sh *Shell) {
		if l != nil {
			sh.log = l
		}
	}
}

// NewShell creates a Shell seeded with the current process's environment
// and working directory as its bottom stack frame.
func NewShell(opts ...ShellOption) *Shell {
	env := envish.NewEnv()
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env.Setenv(kv[:i], kv[i+1:])
				break
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	sh := &Shell{
		envStack: []*envish.Env{env},
		dirStack: []string{wd},
		aliases:  make(map[string]*Command),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sh)
	}
	return sh
}

// Command builds a new Command bound to this Shell, resolving name
// against the alias table first: if name was registered with Alias, the
// alias's argv is prepended and any extra args are appended to it,
// one level deep (aliases do not expand recursively, matching
// original_source/ush.py's alias resolution).
func (sh *Shell) Command(name string, args ...string) *Command {
	sh.mu.Lock()
	aliased, ok := sh.aliases[name]
	sh.mu.Unlock()

	if ok {
		return aliased.Args(args...)
	}
	return newCommand(sh, append([]string{name}, args...))
}

// Alias registers name to expand to argv when used with Command. Aliases
// are resolved exactly once — an alias that points to another alias's
// name is not followed further.
func (sh *Shell) Alias(name string, argv ...string) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.aliases[name] = newCommand(sh, argv)
}

// PushEnv pushes a new environment frame on top of the stack, seeded from
// the current top frame with overrides applied (a nil value unsets a
// key), matching original_source/ush.py's Shell.setenv/chdir nested-scope
// semantics (original_source/tests/test_env.py).
func (sh *Shell) PushEnv(overrides map[string]*string) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	top := sh.envStack[len(sh.envStack)-1]
	next := envish.NewEnv()
	for _, kv := range top.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				next.Setenv(kv[:i], kv[i+1:])
				break
			}
		}
	}
	for k, v := range overrides {
		if v == nil {
			next.Unsetenv(k)
		} else {
			next.Setenv(k, *v)
		}
	}
	sh.envStack = append(sh.envStack, next)
}

// PopEnv restores the environment frame beneath the current one. It is a
// no-op error, returned as *ErrEmptyStack, if called more times than
// PushEnv — popping the bottom (process-seeded) frame is never allowed.
func (sh *Shell) PopEnv() error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if len(sh.envStack) <= 1 {
		return &ErrEmptyStack{Stack: "env"}
	}
	sh.envStack = sh.envStack[:len(sh.envStack)-1]
	return nil
}

// PushDir pushes dir as the Shell's new working directory. Like PushEnv,
// it nests: PopDir restores whatever directory was current before. A
// relative dir is joined onto the stack's current top (not onto the
// process's own cwd) and normalized, matching chdir's behaviour in
// original_source/tests/test_chdir.py, where a sequence of relative
// chdir calls composes against each other rather than resetting from
// the process root each time.
func (sh *Shell) PushDir(dir string) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.dirStack = append(sh.dirStack, resolveDir(sh.dirStack[len(sh.dirStack)-1], dir))
}

// resolveDir joins a relative dir onto base and cleans the result; an
// absolute dir is cleaned as-is.
func resolveDir(base, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}

// PopDir restores the working directory beneath the current one.
func (sh *Shell) PopDir() error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if len(sh.dirStack) <= 1 {
		return &ErrEmptyStack{Stack: "dir"}
	}
	sh.dirStack = sh.dirStack[:len(sh.dirStack)-1]
	return nil
}

// Pipeline builds a Pipeline out of the given commands without running
// them, a convenience equivalent to chaining Command.Pipe repeatedly.
func (sh *Shell) Pipeline(commands ...*Command) *Pipeline {
	if len(commands) == 0 {
		pl := &Pipeline{}
		pl.err = pl.validate()
		return pl
	}
	pl := newPipeline(commands[0])
	for _, c := range commands[1:] {
		pl = pl.Pipe(c)
	}
	return pl
}

// currentEnv returns the flattened "KEY=VALUE" environ of the Shell's
// current (topmost) environment frame.
func (sh *Shell) currentEnv() []string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.envStack[len(sh.envStack)-1].Environ()
}

// currentDir returns the Shell's current (topmost) working directory.
func (sh *Shell) currentDir() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.dirStack[len(sh.dirStack)-1]
}
