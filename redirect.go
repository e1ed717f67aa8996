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
	"io"
	"strings"
)

// sentinel values a caller passes to RedirectStdout/RedirectStderr/
// RedirectStdin in place of a path, reader or writer. They mirror the
// Python ush library's STDOUT/PIPE/DEVNULL module-level sentinels
// (original_source/ush.py).
type sentinel int

const (
	// Stdout tells RedirectStderr to merge stderr into wherever this
	// command's stdout is headed (the "2>&1" idiom).
	Stdout sentinel = iota

	// DevNull discards whatever is written to the redirected stream.
	DevNull

	// PIPE marks a stream as a live channel rather than a buffered
	// capture. Mid-pipeline, a command's stdout is always wired to the
	// next stage's stdin by the pipeline itself (a middle stage's stdin or
	// stdout marked PIPE is accepted and wired the same way), so callers
	// never need to pass PIPE for that. Passed explicitly to RedirectStdout/
	// RedirectStderr on the pipeline's own externally-visible streams (the
	// last stage's stdout, or any stage's stderr), it tells spawn to open
	// an os.Pipe() instead of a bytes.Buffer and hand the read end to
	// Pipeline.Iterate/IterateRaw as a PipeChunk stream the caller can
	// drain while the pipeline is still running — the Go equivalent of
	// the Python ush library's ush.PIPE sentinel used with ">>".
	PIPE
)

// redirectTarget is the classified, tagged-union form of whatever a
// caller passed to RedirectStdin/RedirectStdout/RedirectStderr. Spawn
// switches on the concrete type to decide how to wire up *os.File / pipe
// / in-memory buffer plumbing.
type redirectTarget interface {
	isRedirectTarget()
}

// redirectNone means "use the Shell/Pipe's default": capture into the
// Result's buffer for stdout/stderr, or read an already-exhausted empty
// source for stdin.
type redirectNone struct{}

func (redirectNone) isRedirectTarget() {}

// redirectStdoutMerge is the classified form of the Stdout sentinel when
// used on RedirectStderr.
type redirectStdoutMerge struct{}

func (redirectStdoutMerge) isRedirectTarget() {}

// redirectDevNull discards everything written to it.
type redirectDevNull struct{}

func (redirectDevNull) isRedirectTarget() {}

// redirectPipe is the classified form of the PIPE sentinel: on the last
// stage's stdout or any stage's stderr it becomes a live os.Pipe stream.
type redirectPipe struct{}

func (redirectPipe) isRedirectTarget() {}

// redirectPath opens (or creates/truncates, or creates/appends) a file on
// disk. The trailing "+" path suffix (spec.md §6) means "append" and is
// stripped before opening; it is detected by classifyWriteTarget.
type redirectPath struct {
	path   string
	append bool
}

func (redirectPath) isRedirectTarget() {}

// redirectFile wires directly to an already-open *os.File (an fd-bearing
// stream), which Spawn can hand straight to exec.Cmd without adding a
// pump goroutine for it.
type redirectFile struct {
	file fdFile
}

func (redirectFile) isRedirectTarget() {}

// fdFile is the subset of *os.File that spawn.go needs; kept as an
// interface so tests can substitute a fake with a real Fd() without
// opening actual files on disk.
type fdFile interface {
	io.ReadWriteCloser
	Fd() uintptr
	Name() string
}

// redirectSink wires stdout/stderr to an arbitrary io.Writer supplied by
// the caller — a bytes.Buffer, a *os.File opened by the caller, a network
// connection, whatever satisfies io.Writer.
type redirectSink struct {
	w io.Writer
}

func (redirectSink) isRedirectTarget() {}

// redirectSource wires stdin to an arbitrary io.Reader; literal data is
// passed as a strings.Reader. A plain string given to RedirectStdin is a
// path (redirectPath), not data.
type redirectSource struct {
	r io.Reader
}

func (redirectSource) isRedirectTarget() {}

// redirectIterable wires stdin to a producer function that yields
// successive byte chunks, the lowest-level "feed me data one chunk at a
// time" case named in spec.md's redirect-target table. A false second
// return value means "no more data."
type redirectIterable struct {
	next func() ([]byte, bool)
}

func (redirectIterable) isRedirectTarget() {}

// classifyWriteTarget turns whatever was passed to RedirectStdout /
// RedirectStderr into a redirectTarget. Recognised shapes: nil (→ none),
// the Stdout/DevNull sentinels, a string path (trailing "+" means
// append), an fdFile, or any io.Writer.
func classifyWriteTarget(target interface{}) redirectTarget {
	switch v := target.(type) {
	case nil:
		return redirectNone{}
	case sentinel:
		switch v {
		case Stdout:
			return redirectStdoutMerge{}
		case DevNull:
			return redirectDevNull{}
		case PIPE:
			return redirectPipe{}
		}
	case string:
		if strings.HasSuffix(v, "+") {
			return redirectPath{path: strings.TrimSuffix(v, "+"), append: true}
		}
		return redirectPath{path: v}
	case fdFile:
		return redirectFile{file: v}
	case io.Writer:
		return redirectSink{w: v}
	}
	return redirectNone{}
}

// classifyReadTarget turns whatever was passed to RedirectStdin into a
// redirectTarget. Recognised shapes: nil (→ none), a string path, a
// literal string of data is NOT ambiguated with a path here — callers who
// want literal data pass an io.Reader (strings.NewReader) or a
// byte-producing func, exactly as the Python ush library distinguishes
// PIPE/paths (always strings) from in-process iterables (never strings).
func classifyReadTarget(target interface{}) redirectTarget {
	switch v := target.(type) {
	case nil:
		return redirectNone{}
	case sentinel:
		if v == PIPE {
			return redirectPipe{}
		}
	case string:
		return redirectPath{path: v}
	case fdFile:
		return redirectFile{file: v}
	case func() ([]byte, bool):
		return redirectIterable{next: v}
	case io.Reader:
		return redirectSource{r: v}
	}
	return redirectNone{}
}
