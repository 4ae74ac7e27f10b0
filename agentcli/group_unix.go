/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

//go:build !windows

package agentcli

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// termGrace is how long the agent gets between SIGTERM and SIGKILL.
const termGrace = 100 * time.Millisecond

// groupReaper kills the child's whole process group on cancellation and
// reaps it on Wait.
type groupReaper struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
	err  error
}

// setupProcessGroup places the child in its own process group so the reaper
// can signal descendants too.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// newGroupReaper starts watching cancelCh for an already-started command.
func newGroupReaper(cmd *exec.Cmd, cancelCh <-chan struct{}) *groupReaper {
	r := &groupReaper{cmd: cmd, done: make(chan struct{})}
	go r.watch(cancelCh)
	return r
}

func (r *groupReaper) watch(cancelCh <-chan struct{}) {
	select {
	case <-cancelCh:
		r.killGroup()
	case <-r.done:
	}
}

func (r *groupReaper) killGroup() {
	process := r.cmd.Process
	if process == nil || process.Pid <= 0 {
		return
	}
	pgid := -process.Pid

	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		slog.Warn("SIGTERM of agent process group failed", "pgid", pgid, "error", err)
	}
	time.Sleep(termGrace)
	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		slog.Warn("SIGKILL of agent process group failed", "pgid", pgid, "error", err)
	}
}

// Wait reaps the child exactly once and returns its exit error, if any.
func (r *groupReaper) Wait() error {
	r.once.Do(func() {
		r.err = r.cmd.Wait()
		close(r.done)
		if r.err != nil {
			r.err = fmt.Errorf("agent wait: %w", r.err)
		}
	})
	return r.err
}
