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

import "fmt"

// InvalidPipeline is returned when a Pipeline is built with a structurally
// impossible arrangement of commands or redirects — for example, trying
// to pipe into a command whose stdin has already been redirected to a
// file.
type InvalidPipeline struct {
	Reason string
}

func (e *InvalidPipeline) Error() string {
	return fmt.Sprintf("invalid pipeline: %s", e.Reason)
}

// AlreadyRedirected is returned when a Command's stdin, stdout or stderr
// is redirected a second time. Ush commands are immutable and each stream
// may only be targeted once, mirroring the single-assignment rule of the
// Python ush library this package is descended from.
type AlreadyRedirected struct {
	// Stream is one of "stdin", "stdout" or "stderr".
	Stream string

	// Argv is the argv of the command being redirected, for diagnostics.
	Argv []string
}

func (e *AlreadyRedirected) Error() string {
	return fmt.Sprintf("%s is already redirected for command %q", e.Stream, e.Argv)
}

// ProcessFailure describes one non-zero-exiting (or signal-killed) step of
// a pipeline. A Pipeline that was built with RaiseOnError() collects one
// of these per failing step into a *ProcessError once the whole pipeline
// has finished running.
type ProcessFailure struct {
	Argv       []string
	Pid        int
	StatusCode int
}

// ProcessError is raised after a pipeline with RaiseOnError() set finishes
// running, if any step exited with a non-zero status code. It carries one
// ProcessFailure per offending step, in pipeline order.
type ProcessError struct {
	Failures []ProcessFailure
}

func (e *ProcessError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("command %q (pid %d) exited with status %d", f.Argv, f.Pid, f.StatusCode)
	}
	return fmt.Sprintf("%d commands in pipeline exited non-zero", len(e.Failures))
}

// ErrEmptyStack is returned by a Shell's PopEnv/PopDir when the relevant
// stack has nothing left to pop.
type ErrEmptyStack struct {
	Stack string
}

func (e *ErrEmptyStack) Error() string {
	return fmt.Sprintf("%s stack is empty", e.Stack)
}
