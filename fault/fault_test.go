/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrapped cli", fmt.Errorf("outer: %w", New(KindCLI, "git push", base)), KindCLI},
		{"direct parse", New(KindParse, "agent output", base), KindParse},
		{"bare deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("agent: %w", context.DeadlineExceeded), KindTimeout},
		{"untyped", base, Kind("")},
		{"nil inner", New(KindGitHost, "create comment", nil), KindGitHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := Newf(KindTimeout, "agent", "budget of %s exceeded", "30s")
	if !Is(err, KindTimeout) {
		t.Fatalf("expected timeout fault")
	}
	if Is(err, KindCLI) {
		t.Fatalf("unexpected cli fault")
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("exit status 1")
	err := New(KindCLI, "agent", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected errors.Is to reach the wrapped error")
	}
}

func TestUserMessage(t *testing.T) {
	if msg := UserMessage(New(KindTimeout, "agent", context.DeadlineExceeded)); !strings.Contains(msg, "time budget") {
		t.Fatalf("timeout message missing budget wording: %q", msg)
	}
	if msg := UserMessage(New(KindParse, "agent output", errors.New("bad json"))); !strings.Contains(msg, "agent output") {
		t.Fatalf("parse message missing operation: %q", msg)
	}
	if msg := UserMessage(errors.New("mystery")); msg == "" {
		t.Fatalf("expected a generic message")
	}
	// Diagnostic detail must never leak into the user message.
	if msg := UserMessage(New(KindCLI, "git push", errors.New("token=abc123"))); strings.Contains(msg, "abc123") {
		t.Fatalf("user message leaked wrapped detail: %q", msg)
	}
}
