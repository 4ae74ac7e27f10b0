/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

//go:build windows

package agentcli

import (
	"fmt"
	"os/exec"
	"sync"
)

// groupReaper on Windows only kills the direct child; process groups in the
// Unix sense are unavailable.
type groupReaper struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
	err  error
}

func setupProcessGroup(_ *exec.Cmd) {}

func newGroupReaper(cmd *exec.Cmd, cancelCh <-chan struct{}) *groupReaper {
	r := &groupReaper{cmd: cmd, done: make(chan struct{})}
	go r.watch(cancelCh)
	return r
}

func (r *groupReaper) watch(cancelCh <-chan struct{}) {
	select {
	case <-cancelCh:
		if p := r.cmd.Process; p != nil {
			_ = p.Kill()
		}
	case <-r.done:
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
