/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import "testing"

func TestProcessIssueOpened(t *testing.T) {
	raw := `{"action": "opened", "issue": {"number": 1, "title": "T", "body": "/codex fix bug", "pull_request": null}, ` + repoFragment + `}`
	ev := Classify([]byte(raw))
	if ev == nil || ev.Kind != KindIssueOpened {
		t.Fatalf("Classify = %+v", ev)
	}

	pe := Process(ev, "/codex")
	if pe == nil {
		t.Fatal("Process returned nil")
	}
	if pe.Prompt != "fix bug" {
		t.Fatalf("Prompt = %q, want %q", pe.Prompt, "fix bug")
	}
	if pe.IncludeFullHistory || pe.CreateIssues || pe.NoPR || pe.IncludeFixBuild || pe.IncludeFetch {
		t.Fatalf("expected no flags set, got %+v", pe)
	}
}

func TestProcessFlags(t *testing.T) {
	ev := &Event{
		Kind:    KindIssueComment,
		Issue:   &Issue{Number: 9, Title: "T"},
		Comment: &Comment{ID: 1, Body: "/codex --no-pr --create-issues triage the flaky tests"},
	}
	pe := Process(ev, "/codex")
	if pe == nil {
		t.Fatal("Process returned nil")
	}
	if !pe.NoPR || !pe.CreateIssues {
		t.Fatalf("flags not resolved: %+v", pe)
	}
	if pe.Prompt != "triage the flaky tests" {
		t.Fatalf("Prompt = %q", pe.Prompt)
	}
}

func TestProcessNoActionableCommand(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
	}{{
		name: "comment without trigger phrase",
		ev:   &Event{Kind: KindIssueComment, Comment: &Comment{Body: "looks good to me"}},
	}, {
		name: "trigger phrase with nothing after it",
		ev:   &Event{Kind: KindIssueComment, Comment: &Comment{Body: "/codex"}},
	}, {
		name: "trigger phrase with only flags",
		ev:   &Event{Kind: KindIssueComment, Comment: &Comment{Body: "/codex --no-pr"}},
	}, {
		name: "issue opened without trigger phrase",
		ev:   &Event{Kind: KindIssueOpened, Issue: &Issue{Body: "just describing a bug"}},
	}, {
		name: "nil event",
		ev:   nil,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if pe := Process(tt.ev, "/codex"); pe != nil {
				t.Fatalf("Process = %+v, want nil", pe)
			}
		})
	}
}

func TestProcessDirect(t *testing.T) {
	// Assignment is actionable even with an empty body; direct context only
	// honors the narrow flag set.
	ev := &Event{
		Kind:  KindIssueAssigned,
		Issue: &Issue{Number: 2, Title: "Broken build", Body: "--fix-build --no-pr details here"},
	}
	pe := Process(ev, "/codex")
	if pe == nil {
		t.Fatal("Process returned nil")
	}
	if !pe.IncludeFixBuild {
		t.Fatal("fix-build flag not resolved")
	}
	if pe.NoPR {
		t.Fatal("no-pr must not be honored in direct context")
	}
	if pe.Prompt != "--no-pr details here" {
		t.Fatalf("Prompt = %q", pe.Prompt)
	}

	empty := Process(&Event{Kind: KindIssueAssigned, Issue: &Issue{Number: 3, Title: "T"}}, "/codex")
	if empty == nil {
		t.Fatal("assignment with empty body should still be actionable")
	}
}
