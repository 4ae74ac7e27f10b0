/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentcli

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Spec describes one child-process invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the parent environment
}

// Streams holds the child's output pipes. The agent streams progress to
// stderr and its JSON-lines protocol to stdout.
type Streams struct {
	Stdout io.Reader
	Stderr io.Reader
}

// Runner abstracts process execution so tests can substitute a fake agent.
type Runner interface {
	Start(ctx context.Context, spec Spec) (streams Streams, wait func() error, err error)
}

// execRunner is the default Runner. The child runs in its own process group
// so that cancellation kills the agent and everything it spawned, not just
// the direct child.
type execRunner struct{}

func (execRunner) Start(ctx context.Context, spec Spec) (Streams, func() error, error) {
	if err := ctx.Err(); err != nil {
		return Streams{}, nil, fmt.Errorf("context already canceled: %w", err)
	}

	// exec.Command rather than CommandContext: cancellation must take down
	// the whole process group, which the groupReaper handles itself.
	cmd := exec.Command(spec.Name, spec.Args...) //nolint:gosec // command and args come from configuration
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}

	setupProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Streams{}, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return Streams{}, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return Streams{}, nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	reaper := newGroupReaper(cmd, ctx.Done())
	return Streams{Stdout: stdout, Stderr: stderr}, reaper.Wait, nil
}
