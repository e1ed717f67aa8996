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
	"bufio"
	"bytes"
	"io"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"go.uber.org/zap"
)

// stageIO is everything spawnAndPump needs to remember about one stage's
// wiring once its exec.Cmd has been built, so cleanup and Result
// construction don't have to re-derive it.
type stageIO struct {
	cmd *exec.Cmd

	// closers are files the parent opened on this stage's behalf (a stdin
	// path opened for the first stage). cleanup() closes them once every
	// stage has exited, or when wiring is aborted. Inter-stage pipe ends
	// are tracked separately and closed as soon as every stage has started.
	closers []io.Closer

	stdoutBuf *bytes.Buffer
	stderrBuf *bytes.Buffer
}

// livePipe is one PIPE-tagged stream discovered while wiring a pipeline: a
// stage explicitly asked (via RedirectStdout(PIPE)/RedirectStderr(PIPE))
// for this stream to be handed back live instead of only buffered.
type livePipe struct {
	r      *os.File
	stage  int
	stream string // "stdout" or "stderr"
}

// wiredPipeline is every stage's exec.Cmd, fully built and started, plus
// whatever PIPE-tagged streams were requested — the shared result of
// wirePipeline, consumed by both spawnAndPump (buffered Run) and
// spawnAndIterate (live Iterate/IterateRaw).
type wiredPipeline struct {
	stages []*stageIO
	live   []*livePipe

	// wait blocks until every stage has exited and releases the parent's
	// remaining closers. It does not build a *Result — callers do that
	// from stages once wait returns.
	wait func()
}

// spawnAndPump runs the idiomatic-Go form of spec.md's concurrent I/O
// pump: os/exec already spins an internal copy goroutine for any
// Stdin/Stdout/Stderr that isn't a plain *os.File, joined by that
// process's own Wait(); the only pipeline-level concurrency we need to
// add by hand is (a) the inter-stage os.Pipe() wiring and (b) waiting on
// every stage concurrently via errgroup so that a slow consumer doesn't
// stall faster upstream stages. This is exactly the "thread-per-pipe"
// strategy named in spec.md §4.4 — see SPEC_FULL.md §4.4 for why the
// sibling readiness-multiplexing strategy has no idiomatic Go equivalent
// worth hand-rolling.
//
// Grounded on orospakr-spawnexec/spawn_other.go (os/exec.Cmd wiring +
// ProcessState), other_examples/e1ad2f01_github-go-pipe__pipe-pipeline.go.go
// (goroutine-per-stage + reverse-order error handling),
// opal-lang-opal/runtime/executor/pipeline_runner.go (pre-created
// os.Pipe() pairs feeding a goroutine per command).
func spawnAndPump(commands []*Command) (*Result, error) {
	wp, err := wirePipeline(commands)
	if err != nil {
		return nil, err
	}

	// A caller who asked for PIPE on a stream still gets it captured into
	// the Result when running via Run() rather than Iterate/IterateRaw —
	// PIPE only changes *how* the stream is drained, not whether Run()'s
	// buffered contract holds. Each live stream gets its own buffer and
	// drain goroutine, same shape as the non-PIPE case's direct
	// bytes.Buffer, just fed through an os.Pipe instead of written to
	// directly by the child.
	var drainWG sync.WaitGroup
	for _, lp := range wp.live {
		lp := lp
		buf := new(bytes.Buffer)
		if lp.stream == "stdout" {
			wp.stages[lp.stage].stdoutBuf = buf
		} else {
			wp.stages[lp.stage].stderrBuf = buf
		}
		drainWG.Add(1)
		go func() {
			defer drainWG.Done()
			defer lp.r.Close()
			io.Copy(buf, lp.r)
		}()
	}

	wp.wait()
	drainWG.Wait()

	return buildResult(commands, wp.stages)
}

// wirePipeline builds every stage's exec.Cmd, wires its Stdin/Stdout/
// Stderr, starts every stage in pipeline order, and returns control to the
// caller once everything is running. It is the part Run and Iterate/
// IterateRaw share; they differ only in how they drain any PIPE-tagged
// stream afterward.
func wirePipeline(commands []*Command) (*wiredPipeline, error) {
	n := len(commands)
	stages := make([]*stageIO, n)
	var live []*livePipe

	cleanup := func() {
		for _, st := range stages {
			if st == nil {
				continue
			}
			for _, c := range st.closers {
				c.Close()
			}
		}
	}

	var interPipes []io.Closer
	abort := func() {
		cleanup()
		for _, c := range interPipes {
			c.Close()
		}
	}

	// Pass 1: build every stage's exec.Cmd and wire all of its
	// Stdin/Stdout/Stderr *before* anything is started. exec.Cmd's fields
	// must be fully set prior to Start(). Each stage resolves its own
	// stdin (either its redirect target, for stage 0, or the read end of
	// the pipe the previous iteration created) and its own stdout (either
	// its redirect target, for the last stage, or a fresh os.Pipe() whose
	// write end becomes this stage's Stdout and whose read end is handed
	// to the next iteration) before resolving its own stderr — so a
	// stage whose stderr merges into its own stdout always has a
	// concrete writer to merge into, even when that writer is an
	// inter-stage pipe rather than a redirect target.
	var pendingStdin *os.File
	for i, c := range commands {
		argv, err := c.resolvedArgv()
		if err != nil {
			abort()
			return nil, err
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = c.resolvedCwd()
		cmd.Env = c.resolvedEnv()

		st := &stageIO{cmd: cmd}
		stages[i] = st

		// stdin
		if i == 0 {
			r, closer, err := resolveStdinTarget(c.stdin, cmd.Dir)
			if err != nil {
				abort()
				return nil, err
			}
			cmd.Stdin = r
			if closer != nil {
				st.closers = append(st.closers, closer)
			}
		} else {
			cmd.Stdin = pendingStdin
			interPipes = append(interPipes, pendingStdin)
		}

		// stdout
		if i == n-1 {
			w, closer, buf, livePipeRead, err := resolveStdoutTarget(c.stdout, cmd.Dir)
			if err != nil {
				abort()
				return nil, err
			}
			cmd.Stdout = w
			st.stdoutBuf = buf
			if closer != nil {
				// the child has its own dup'd fd after Start(); the
				// parent's copy can close right away, same timing as the
				// inter-stage pipes, instead of waiting for cleanup()
				// after Wait().
				interPipes = append(interPipes, closer)
			}
			if livePipeRead != nil {
				live = append(live, &livePipe{r: livePipeRead, stage: i, stream: "stdout"})
			}
		} else {
			r, w, err := os.Pipe()
			if err != nil {
				abort()
				return nil, err
			}
			cmd.Stdout = w
			interPipes = append(interPipes, w)
			pendingStdin = r
		}

		// stderr
		w, closer, buf, livePipeRead, err := resolveStderrTarget(c.stderr, cmd.Dir, cmd.Stdout)
		if err != nil {
			abort()
			return nil, err
		}
		cmd.Stderr = w
		st.stderrBuf = buf
		if closer != nil {
			interPipes = append(interPipes, closer)
		}
		if livePipeRead != nil {
			live = append(live, &livePipe{r: livePipeRead, stage: i, stream: "stderr"})
		}
	}

	// Pass 2: every Cmd is fully wired now — start them in pipeline
	// order, running each command's preexec hooks immediately before its
	// own Start(), exactly as original_source/ush.py's Shell._spawn_pipeline
	// spawns one stage at a time left to right.
	for i, c := range commands {
		sh := c.shell
		if sh != nil && sh.log != nil {
			sh.log.Debug("spawning pipeline stage", zap.Strings("argv", stages[i].cmd.Args), zap.Int("index", i))
		}

		if err := runPreexecHooks(c); err != nil {
			abort()
			killStarted(stages[:i])
			return nil, err
		}

		if err := stages[i].cmd.Start(); err != nil {
			abort()
			killStarted(stages[:i])
			return nil, err
		}
	}

	// every stage has inherited its fds across fork; the parent's copies
	// must close now so EOF/SIGPIPE propagate correctly between stages,
	// including the write end of any PIPE-tagged stream (its read end is
	// the caller's to drain and close).
	for _, c := range interPipes {
		c.Close()
	}

	wait := func() {
		var eg errgroup.Group
		for i := range stages {
			i := i
			eg.Go(func() error {
				return stages[i].cmd.Wait()
			})
		}
		// errgroup.Wait's own error is intentionally discarded here: exit
		// codes come from each stage's ProcessState below regardless of
		// whether Wait returned an *exec.ExitError, and a non-ExitError
		// failure (e.g. I/O error) still surfaces via ProcessState being
		// nil.
		_ = eg.Wait()
		cleanup()
	}

	return &wiredPipeline{stages: stages, live: live, wait: wait}, nil
}

// buildResult turns a wirePipeline's finished stages into the Result Run()
// and Iterate/IterateRaw's wait closure both return.
func buildResult(commands []*Command, stages []*stageIO) (*Result, error) {
	result := &Result{}
	var failures []ProcessFailure

	raise := false
	for _, c := range commands {
		if c.raiseOnError {
			raise = true
		}
	}

	for i := range commands {
		st := stages[i]
		status := 0
		pid := 0
		if st.cmd.ProcessState != nil {
			status = st.cmd.ProcessState.ExitCode()
			pid = st.cmd.ProcessState.Pid()
		}

		pr := ProcessResult{Argv: st.cmd.Args, Pid: pid, StatusCode: status}
		result.processes = append(result.processes, pr)

		if st.stderrBuf != nil {
			result.stderrs = append(result.stderrs, st.stderrBuf.Bytes())
		} else {
			result.stderrs = append(result.stderrs, nil)
		}

		if status != 0 && raise {
			failures = append(failures, ProcessFailure{Argv: pr.Argv, Pid: pid, StatusCode: status})
		}
	}

	if last := stages[len(stages)-1]; last.stdoutBuf != nil {
		result.stdout = last.stdoutBuf.Bytes()
	}

	if len(failures) > 0 {
		return result, &ProcessError{Failures: failures}
	}
	return result, nil
}

// spawnAndIterate wires and starts the pipeline exactly like spawnAndPump,
// but drains every PIPE-tagged stream through a shared channel of
// PipeChunk values as soon as each chunk/line is available, instead of
// waiting for the whole pipeline to finish — the multi-drain contract of
// spec.md §4.1/§4.5/Testable Property 5. lineMode selects Iterate's
// newline framing vs IterateRaw's unsplit chunks.
func spawnAndIterate(commands []*Command, lineMode bool) (<-chan PipeChunk, func() (*Result, error), error) {
	wp, err := wirePipeline(commands)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan PipeChunk)
	var wg sync.WaitGroup
	for idx, lp := range wp.live {
		idx, lp := idx, lp
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer lp.r.Close()
			if lineMode {
				scanner := bufio.NewScanner(lp.r)
				scanner.Split(bufio.ScanLines)
				for scanner.Scan() {
					out <- PipeChunk{Channel: idx, Stage: lp.stage, Stream: lp.stream, Line: scanner.Text()}
				}
			} else {
				for chunk := range RawChunks(lp.r, 0) {
					out <- PipeChunk{Channel: idx, Stage: lp.stage, Stream: lp.stream, Data: chunk}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	wait := func() (*Result, error) {
		wp.wait()
		return buildResult(commands, wp.stages)
	}
	return out, wait, nil
}

func runPreexecHooks(c *Command) error {
	for _, hook := range c.preexecHooks {
		if err := hook(); err != nil {
			return err
		}
	}
	return nil
}

// killStarted tears down every already-started stage of a pipeline whose
// build failed partway through. It signals directly via unix.Kill rather
// than os.Process.Kill, the same primitive orospakr-spawnexec/process.go's
// Process.Kill uses, since by this point we already have the pid and
// os.Process offers nothing unix.Kill doesn't.
func killStarted(stages []*stageIO) {
	for _, st := range stages {
		if st.cmd.Process != nil {
			unix.Kill(st.cmd.Process.Pid, unix.SIGKILL)
			st.cmd.Wait()
		}
	}
}

// resolveStdinTarget classifies the first command's stdin redirect into
// something exec.Cmd can use directly.
func resolveStdinTarget(target redirectTarget, cwd string) (io.Reader, io.Closer, error) {
	switch t := target.(type) {
	case redirectNone:
		return nil, nil, nil
	case redirectPath:
		f, err := openRelative(t.path, cwd, os.O_RDONLY, 0)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case redirectFile:
		return t.file, nil, nil
	case redirectSource:
		return t.r, nil, nil
	case redirectIterable:
		return &iterableReader{next: t.next}, nil, nil
	default:
		return nil, nil, nil
	}
}

// resolveStdoutTarget classifies the last command's stdout redirect. A
// redirectNone target captures into a fresh buffer, returned via buf so
// the caller can read it back once the process has exited. A redirectPipe
// target (the caller passed PIPE explicitly) instead opens an os.Pipe():
// the write end is handed to exec.Cmd as usual, and the read end comes
// back as the fourth return value for wirePipeline to register as a live
// stream — Run() still buffers it (see spawnAndPump), Iterate/IterateRaw
// drain it live instead.
func resolveStdoutTarget(target redirectTarget, cwd string) (io.Writer, io.Closer, *bytes.Buffer, *os.File, error) {
	switch t := target.(type) {
	case redirectNone, redirectStdoutMerge:
		buf := new(bytes.Buffer)
		return buf, nil, buf, nil, nil
	case redirectDevNull:
		return io.Discard, nil, nil, nil, nil
	case redirectPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return w, w, nil, r, nil
	case redirectPath:
		flags := os.O_WRONLY | os.O_CREATE
		if t.append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := openRelative(t.path, cwd, flags, 0644)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return f, f, nil, nil, nil
	case redirectFile:
		return t.file, nil, nil, nil, nil
	case redirectSink:
		return t.w, nil, nil, nil, nil
	default:
		buf := new(bytes.Buffer)
		return buf, nil, buf, nil, nil
	}
}

// resolveStderrTarget classifies one stage's stderr redirect. stdoutWriter
// is that same stage's already-resolved stdout writer, used when the
// caller asked to merge stderr into stdout (the Stdout sentinel). See
// resolveStdoutTarget's doc comment for the redirectPipe/live-stream case.
func resolveStderrTarget(target redirectTarget, cwd string, stdoutWriter io.Writer) (io.Writer, io.Closer, *bytes.Buffer, *os.File, error) {
	switch t := target.(type) {
	case redirectNone:
		buf := new(bytes.Buffer)
		return buf, nil, buf, nil, nil
	case redirectDevNull:
		return io.Discard, nil, nil, nil, nil
	case redirectStdoutMerge:
		return stdoutWriter, nil, nil, nil, nil
	case redirectPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return w, w, nil, r, nil
	case redirectPath:
		flags := os.O_WRONLY | os.O_CREATE
		if t.append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := openRelative(t.path, cwd, flags, 0644)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return f, f, nil, nil, nil
	case redirectFile:
		return t.file, nil, nil, nil, nil
	case redirectSink:
		return t.w, nil, nil, nil, nil
	default:
		buf := new(bytes.Buffer)
		return buf, nil, buf, nil, nil
	}
}

func openRelative(path, cwd string, flags int, perm os.FileMode) (*os.File, error) {
	if len(path) == 0 || path[0] != '/' {
		path = cwd + string(os.PathSeparator) + path
	}
	return os.OpenFile(path, flags, perm)
}

// iterableReader adapts a redirectIterable's chunk-producer function into
// an io.Reader, so it can be handed straight to exec.Cmd.Stdin and let
// os/exec's own internal copy goroutine drive it — the lowest-level
// "feed me data one chunk at a time" case from spec.md's redirect-target
// table.
type iterableReader struct {
	next func() ([]byte, bool)
	buf  []byte
}

func (r *iterableReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		chunk, ok := r.next()
		if !ok {
			return 0, io.EOF
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
