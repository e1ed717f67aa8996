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
	"strings"
)

// Pipeline is an immutable, validated sequence of Commands wired stdout
// to stdin, one after the other. Build one with Command.Pipe, or
// Shell.Pipeline, then Run it.
type Pipeline struct {
	commands []*Command
	err      error
}

// newPipeline builds a single-command Pipeline and validates it.
func newPipeline(first *Command) *Pipeline {
	pl := &Pipeline{commands: []*Command{first}}
	pl.err = pl.validate()
	return pl
}

// Pipe returns a new Pipeline with next appended, wiring the current last
// command's stdout to next's stdin — unless the current last command's
// stdout, or next's stdin, has already been explicitly redirected, in
// which case the returned Pipeline carries an *InvalidPipeline error
// that surfaces from Run()/Err().
func (pl *Pipeline) Pipe(next *Command) *Pipeline {
	if pl == nil {
		pl = &Pipeline{}
	}
	cp := &Pipeline{commands: append(append([]*Command(nil), pl.commands...), next)}
	cp.err = cp.validate()
	return cp
}

// Err returns the error recorded when this Pipeline was built, if any —
// either *InvalidPipeline or *AlreadyRedirected. It is checked by Run
// before anything is spawned.
func (pl *Pipeline) Err() error {
	if pl == nil {
		return nil
	}
	return pl.err
}

// Commands returns the Pipeline's steps, in order.
func (pl *Pipeline) Commands() []*Command {
	if pl == nil {
		return nil
	}
	return append([]*Command(nil), pl.commands...)
}

// String renders the pipeline the way a human would type it:
// `cmd1 | cmd2 | cmd3`.
func (pl *Pipeline) String() string {
	if pl == nil {
		return ""
	}
	parts := make([]string, len(pl.commands))
	for i, c := range pl.commands {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}

// validate checks the structural invariants spec.md §3/§8 require of a
// Pipeline before it is ever spawned:
//
//   - it must have at least one command
//   - a middle command's stdin must not be independently redirected (it
//     is wired from the previous command's stdout)
//   - a middle command's stdout must not be independently redirected (it
//     feeds the next command's stdin)
//   - the same stream must not be targeted twice
//
// Grounded on original_source/ush.py's validate_pipeline and
// Command._redirect's AlreadyRedirected raise.
func (pl *Pipeline) validate() error {
	if len(pl.commands) == 0 {
		return &InvalidPipeline{Reason: "pipeline has no commands"}
	}

	for i, c := range pl.commands {
		if c.err != nil {
			return c.err
		}

		isFirst := i == 0
		isLast := i == len(pl.commands)-1

		if !isFirst {
			if _, ok := c.stdin.(redirectNone); !ok {
				if _, isPipe := c.stdin.(redirectPipe); !isPipe {
					return &InvalidPipeline{Reason: "stdin of a command other than the first is redirected"}
				}
			}
		}
		if !isLast {
			if _, ok := c.stdout.(redirectNone); !ok {
				if _, isPipe := c.stdout.(redirectPipe); !isPipe {
					return &InvalidPipeline{Reason: "stdout of a command other than the last is redirected"}
				}
			}
		}
		if len(c.argv) == 0 {
			return &InvalidPipeline{Reason: "a command in the pipeline has an empty argv"}
		}
	}
	return nil
}

// Run spawns every command in the pipeline concurrently, pumps all of
// their I/O to completion, waits for every process to exit, and returns
// the aggregated Result.
//
// If any command was built with RaiseOnError() and any step exited
// non-zero, Run returns a non-nil *ProcessError alongside a Result that still has
// everything the pipeline produced before failing.
func (pl *Pipeline) Run() (*Result, error) {
	if pl == nil {
		return nil, &InvalidPipeline{Reason: "nil pipeline"}
	}
	if pl.err != nil {
		return nil, pl.err
	}
	return spawnAndPump(pl.commands)
}

// Iterate runs the pipeline exactly like Run, except that any stream
// redirected with RedirectStdout(PIPE)/RedirectStderr(PIPE) is decoded
// line-by-line and yielded live on the returned channel as each line
// becomes available, tagged by which stream produced it, rather than
// waiting for the pipeline to finish and buffering it into the Result —
// the multi-drain contract of spec.md §4.1/§4.5/Testable Property 5, and
// the mechanism scenarios exercising "pump under sustained backpressure"
// rely on. Range over the channel until it closes (every PIPE-tagged
// stream has hit EOF), then call the returned func to collect the same
// *Result/error Run would have returned.
func (pl *Pipeline) Iterate() (<-chan PipeChunk, func() (*Result, error), error) {
	if pl == nil {
		return nil, nil, &InvalidPipeline{Reason: "nil pipeline"}
	}
	if pl.err != nil {
		return nil, nil, pl.err
	}
	return spawnAndIterate(pl.commands, true)
}

// IterateRaw is Iterate without newline framing: each PipeChunk.Data is
// whatever chunk the underlying pipe produced, unsplit — the "raw
// iteration" mode named in spec.md §4.5.
func (pl *Pipeline) IterateRaw() (<-chan PipeChunk, func() (*Result, error), error) {
	if pl == nil {
		return nil, nil, &InvalidPipeline{Reason: "nil pipeline"}
	}
	if pl.err != nil {
		return nil, nil, pl.err
	}
	return spawnAndIterate(pl.commands, false)
}
