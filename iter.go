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
	"io"
)

// PipeChunk is one unit yielded by Pipeline.Iterate/IterateRaw: data
// produced by one of the pipeline's PIPE-tagged streams (a stage's stdout
// or stderr redirected with RedirectStdout(PIPE)/RedirectStderr(PIPE)),
// tagged with which stream produced it so a caller fanning several PIPE
// streams into one range loop can tell them apart — the "(chunk,
// channel_index)" multi-drain contract named in spec.md §4.1/§4.5/
// Testable Property 5. Channel is a dense index over the PIPE-tagged
// streams in the order they were discovered while wiring the pipeline
// (stdout before stderr within a stage, stages in pipeline order); Stage/
// Stream name the same thing for readability.
type PipeChunk struct {
	Channel int
	Stage   int
	Stream  string // "stdout" or "stderr"

	// Data holds the raw chunk for IterateRaw; Line holds one already-
	// split line for Iterate. Exactly one of the two is populated,
	// depending on which method produced this PipeChunk.
	Data []byte
	Line string
}

// Lines returns a channel you can range over to get each line of r, one
// at a time, without waiting for r to reach EOF first. Unlike Result's
// Strings() (which works on output already fully captured), Lines is
// meant to be handed a pipeline's live stdout — pair it with
// RedirectStdout(w) where w is an io.Pipe or similar, or call it on an
// *os.File you opened yourself.
//
// Grounded on the teacher's io_source.go ReadLines (bufio.Scanner +
// bufio.ScanLines), generalized from a captured buffer to any io.Reader,
// and on original_source/tests/test_util.py's iterate_lines test, which
// requires output to be chunk-boundary-independent: a line must be
// yielded correctly no matter how many bytes the underlying reader
// returns per Read call.
func Lines(r io.Reader) <-chan string {
	return scan(r, bufio.ScanLines)
}

// Words returns a channel you can range over to get each whitespace-
// separated word of r, one at a time. Grounded on the teacher's
// io_source.go ReadWords.
func Words(r io.Reader) <-chan string {
	return scan(r, bufio.ScanWords)
}

// RawChunks returns a channel you can range over to get each raw byte
// chunk read from r, preserving whatever chunk boundaries the
// underlying reader produced — the "raw iteration" mode from spec.md
// §4.5, for callers who want to pump bytes through without line/word
// framing at all (e.g. feeding a redirectIterable downstream).
func RawChunks(r io.Reader, bufSize int) <-chan []byte {
	if bufSize <= 0 {
		bufSize = 4096
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		buf := make([]byte, bufSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				out <- chunk
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func scan(r io.Reader, split bufio.SplitFunc) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		scanner.Split(split)
		for scanner.Scan() {
			out <- scanner.Text()
		}
	}()
	return out
}
