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
	"strconv"
	"strings"
)

// ProcessResult is the public, read-only record of how one step of a
// finished Pipeline behaved: its argv, pid, and exit code.
type ProcessResult struct {
	Argv       []string
	Pid        int
	StatusCode int
}

// Result is what Pipeline.Run returns once every process has exited and
// every pump goroutine has finished draining. It plays the same role
// spec.md's "pipeline result" plays: captured output plus a per-step
// status breakdown.
type Result struct {
	processes []ProcessResult
	stdout    []byte
	stderrs   [][]byte
}

// StatusCode returns the exit code of the pipeline's last command, the
// conventional UNIX "status of the pipeline" value.
func (r *Result) StatusCode() int {
	if r == nil || len(r.processes) == 0 {
		return 0
	}
	return r.processes[len(r.processes)-1].StatusCode
}

// Processes returns the per-step results, in pipeline order.
func (r *Result) Processes() []ProcessResult {
	if r == nil {
		return nil
	}
	return append([]ProcessResult(nil), r.processes...)
}

// Bytes returns the raw bytes captured from the last command's stdout,
// when that stream wasn't redirected elsewhere.
func (r *Result) Bytes() []byte {
	if r == nil {
		return nil
	}
	return r.stdout
}

// String returns the last command's captured stdout as a string.
func (r *Result) String() string {
	return string(r.Bytes())
}

// TrimmedString returns the last command's captured stdout with leading
// and trailing whitespace removed, the single most common case when
// capturing the output of a command that prints one line.
func (r *Result) TrimmedString() string {
	return strings.TrimSpace(r.String())
}

// Strings splits the last command's captured stdout into lines, dropping
// a single trailing empty line caused by a final newline (the same rule
// iter.go's line iterator applies).
func (r *Result) Strings() []string {
	s := r.String()
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ParseInt parses the last command's trimmed stdout as a base-10 integer.
func (r *Result) ParseInt() (int, error) {
	return strconv.Atoi(r.TrimmedString())
}

// Stderr returns the captured stderr of the i'th command in the
// pipeline, when that command's stderr wasn't redirected elsewhere.
func (r *Result) Stderr(i int) []byte {
	if r == nil || i < 0 || i >= len(r.stderrs) {
		return nil
	}
	return r.stderrs[i]
}
