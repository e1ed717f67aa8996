/*
ush is a Golang library for building and running UNIX-style process
pipelines through a fluent, operator-style API.

It is released under the 3-clause New BSD license. See the license header
at the top of each source file for details.

What Does Ush Do

We've built Ush to let you compose real OS processes — argv plus options,
piped together, redirected to files/buffers/devices — the way you'd write
them on a shell command line, but as ordinary Golang values you build up
and then run.

It is inspired by the Python "ush" library, and draws its plumbing from our
own Pipe https://github.com/ganbarodigital/go_pipe and Envish
https://github.com/ganbarodigital/go_envish packages.

Getting Started

Import Ush into your Golang code:

  import ush "github.com/ganbarodigital/go_ush"

Create a Shell, and build a Command:

  sh := ush.NewShell()
  cmd := sh.Command("echo", "hello")

Pipe commands together and run them:

  pl := sh.Command("printf", "%s", "hello\nworld").
          Pipe(sh.Command("sort"))

  result, err := pl.Run()
  if err != nil {
      // a non-zero exit code only becomes a Golang error when
      // RaiseOnError() is set; otherwise check result.StatusCode()
  }
  fmt.Print(result.String())

Composing Commands

A Command is an immutable value. Every builder method — Args,
RedirectStdin, RedirectStdout, RedirectStderr, Env, Cwd — returns a new
Command (and Pipe returns a new Pipeline), so you can safely share and
reuse partially-built commands:

  base := sh.Command("grep", "-i")
  errGrep := base.Args("error")
  warnGrep := base.Args("warn")

Redirection

RedirectStdout/RedirectStderr accept a path (string), ush.Stdout (to merge
stderr into stdout), ush.DevNull, an io.Writer, ush.PIPE (see Streaming
below), or nothing (capture into the result buffer, the default).
RedirectStdin accepts a path (string), an io.Reader (for literal
in-process data, e.g. strings.NewReader("...")), or a func() ([]byte,
bool) byte iterator. Each stream may be targeted at most once per
Command; redirecting it again returns *AlreadyRedirected from Pipe/Run.

Streaming

Run waits for the whole pipeline to finish and hands back a fully
buffered Result. To consume a long-running pipeline's output as it's
produced instead, redirect the stream you want live with ush.PIPE and
call Iterate (newline-framed) or IterateRaw (unsplit chunks) in place of
Run:

  chunks, wait, err := sh.Command("tail", "-f", "app.log").
          RedirectStdout(ush.PIPE).
          Iterate()
  for chunk := range chunks {
      fmt.Println(chunk.Line)
  }
  result, err := wait()

The channel closes once every PIPE-tagged stream has hit EOF; call the
returned func afterward to collect the same *Result/error Run would have.

Shell Scoping

Shell carries a stack of environment frames and working directories, plus
an alias table:

  locale := "C"
  sh.PushEnv(map[string]*string{"LC_ALL": &locale})
  defer sh.PopEnv()

  sh.PushDir("/tmp")
  defer sh.PopDir()

  sh.Alias("ll", "ls", "-l")

Error Handling

Every Command can be built with RaiseOnError(); when it is set on any
command of a pipeline, Run() returns a *ProcessError carrying the
argv/pid/exit-code of every non-zero step once
the whole pipeline has finished draining. Without it, check
result.StatusCode() yourself. Malformed pipelines (mismatched redirects,
double-redirecting a stream) return *InvalidPipeline or *AlreadyRedirected
immediately, before anything is spawned.
*/
package ush
