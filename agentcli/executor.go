/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentcli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chainguard.dev/codewright/fault"
	"github.com/chainguard-dev/clog"
)

// maxStdout caps how much agent stdout we retain; the final protocol line is
// all that matters and anything past this is runaway output.
const maxStdout = 8 << 20

// Invocation is a single prompt handed to the agent.
type Invocation struct {
	Prompt string
	// Images are local file paths attached to the prompt.
	Images []string
	// Timeout is the hard wall-clock limit for this invocation.
	Timeout time.Duration
}

// Executor runs the configured agent CLI and decodes its result.
type Executor struct {
	// Command is the agent binary name or path.
	Command string
	// Model overrides the agent's default model when non-empty.
	Model string
	// Env holds extra KEY=VALUE pairs for the child process.
	Env []string
	// WorkingDir is the checked-out repository the agent operates in.
	WorkingDir string

	runner Runner
}

// New returns an Executor that spawns real child processes.
func New(command, model, workingDir string, env []string) *Executor {
	return &Executor{
		Command:    command,
		Model:      model,
		Env:        env,
		WorkingDir: workingDir,
		runner:     execRunner{},
	}
}

// Run invokes the agent once and returns the text of its final message.
// The invocation's timeout is enforced by killing the agent's process group;
// expiry surfaces as a timeout fault, a non-zero exit as a cli fault, and a
// malformed final line as a parse fault.
func (e *Executor) Run(ctx context.Context, inv Invocation) (string, error) {
	log := clog.FromContext(ctx)

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	spec := Spec{
		Name: e.Command,
		Args: e.args(inv),
		Dir:  e.WorkingDir,
		Env:  e.Env,
	}

	start := time.Now()
	log.Infof("invoking agent %s (timeout %s)", e.Command, inv.Timeout)

	streams, wait, err := e.runner.Start(ctx, spec)
	if err != nil {
		return "", fault.New(fault.KindCLI, "agent start", err)
	}

	// Stderr carries the agent's progress stream; drain it concurrently so
	// the child never blocks on a full pipe.
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		drainStderr(ctx, streams.Stderr)
	}()

	stdout, readErr := io.ReadAll(io.LimitReader(streams.Stdout, maxStdout))

	// Keep draining past the cap so the child never blocks on a full stdout
	// pipe; the excess is discarded but counted.
	var overflow int64
	if readErr == nil {
		overflow, _ = io.Copy(io.Discard, streams.Stdout)
	}

	waitErr := wait()
	<-stderrDone
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return "", fault.Newf(fault.KindTimeout, "agent", "agent exceeded its %s budget", inv.Timeout)
	}
	if readErr != nil {
		return "", fault.New(fault.KindCLI, "agent stdout", readErr)
	}
	if overflow > 0 {
		return "", fault.Newf(fault.KindCLI, "agent stdout", "agent produced %d bytes past the %d byte limit", overflow, maxStdout)
	}
	if waitErr != nil {
		return "", fault.New(fault.KindCLI, "agent", waitErr)
	}

	log.Infof("agent completed in %s (%d bytes of output)", elapsed, len(stdout))
	return FinalMessage(string(stdout))
}

// args builds the agent command line: exec --json [--model M] [--image P]... PROMPT.
func (e *Executor) args(inv Invocation) []string {
	args := []string{"exec", "--json"}
	if e.Model != "" {
		args = append(args, "--model", e.Model)
	}
	for _, img := range inv.Images {
		args = append(args, "--image", img)
	}
	return append(args, inv.Prompt)
}

func drainStderr(ctx context.Context, r io.Reader) {
	if r == nil {
		return
	}
	log := clog.FromContext(ctx)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			log.Debugf("agent: %s", line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("agent stderr ended: %v", err)
	}
}

// String implements fmt.Stringer for log lines.
func (s Spec) String() string {
	return fmt.Sprintf("%s %s", s.Name, strings.Join(s.Args, " "))
}
