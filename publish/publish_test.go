/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package publish

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chainguard.dev/codewright/event"
	"chainguard.dev/codewright/fault"
	"github.com/google/go-github/v84/github"
)

type fakeWorkspace struct {
	branches  []string
	commits   []string
	pushes    []struct {
		branch string
		force  bool
	}
	reverted []string
	diff     string
}

func (f *fakeWorkspace) CreateBranch(_ context.Context, name string) error {
	f.branches = append(f.branches, name)
	return nil
}

func (f *fakeWorkspace) CommitAll(_ context.Context, message string) error {
	f.commits = append(f.commits, message)
	return nil
}

func (f *fakeWorkspace) Push(_ context.Context, branch string, force bool) error {
	f.pushes = append(f.pushes, struct {
		branch string
		force  bool
	}{branch, force})
	return nil
}

func (f *fakeWorkspace) Revert(_ context.Context, paths []string) error {
	f.reverted = append(f.reverted, paths...)
	return nil
}

func (f *fakeWorkspace) DiffText([]string) (string, error) {
	return f.diff, nil
}

type fakePRs struct {
	created []*github.NewPullRequest
}

func (f *fakePRs) Create(_ context.Context, _, _ string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error) {
	f.created = append(f.created, pr)
	return &github.PullRequest{
		Number:  github.Ptr(99),
		HTMLURL: github.Ptr("https://github.com/acme/widgets/pull/99"),
	}, nil, nil
}

type fakeIssueCreator struct {
	created []*github.IssueRequest
}

func (f *fakeIssueCreator) Create(_ context.Context, _, _ string, issue *github.IssueRequest) (*github.Issue, *github.Response, error) {
	f.created = append(f.created, issue)
	n := 100 + len(f.created)
	return &github.Issue{
		Number:  github.Ptr(n),
		HTMLURL: github.Ptr(fmt.Sprintf("https://github.com/acme/widgets/issues/%d", n)),
	}, nil, nil
}

type fixedHeaders string

func (h fixedHeaders) Header(context.Context, string) string { return string(h) }

func issueEvent() *event.Processed {
	return &event.Processed{
		Event: &event.Event{
			Kind:          event.KindIssueOpened,
			Owner:         "acme",
			Repo:          "widgets",
			DefaultBranch: "main",
			Issue:         &event.Issue{Number: 7, Title: "Login crash"},
		},
		Prompt: "fix bug",
	}
}

func prEvent() *event.Processed {
	return &event.Processed{
		Event: &event.Event{
			Kind:          event.KindPROpened,
			Owner:         "acme",
			Repo:          "widgets",
			DefaultBranch: "main",
			PullRequest: &event.PullRequest{
				Number:  8,
				HeadRef: "feature/export",
				HTMLURL: "https://github.com/acme/widgets/pull/8",
			},
		},
		Prompt: "tidy this up",
	}
}

func TestPublishOpensPullRequest(t *testing.T) {
	ws := &fakeWorkspace{}
	prs := &fakePRs{}
	p := New(ws, prs, &fakeIssueCreator{}, nil, fixedHeaders("fix: resolve login crash"))

	res, err := p.Publish(context.Background(), Input{
		Processed: issueEvent(),
		Changed:   []string{"internal/auth/login.go"},
		Summary:   "Fixed the nil map access in the login handler.",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if res.Outcome != OutcomePullRequest {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomePullRequest)
	}
	if res.URL != "https://github.com/acme/widgets/pull/99" {
		t.Errorf("URL = %q", res.URL)
	}

	wantBranch := "fix/login-crash-7"
	if len(ws.branches) != 1 || ws.branches[0] != wantBranch {
		t.Errorf("branches = %v, want [%s]", ws.branches, wantBranch)
	}
	if len(ws.pushes) != 1 || !ws.pushes[0].force || ws.pushes[0].branch != wantBranch {
		t.Errorf("pushes = %v, want one forced push of %s", ws.pushes, wantBranch)
	}
	if len(ws.commits) != 1 || ws.commits[0] != "fix: resolve login crash" {
		t.Errorf("commits = %v", ws.commits)
	}

	pr := prs.created[0]
	if pr.GetBase() != "main" || pr.GetHead() != wantBranch {
		t.Errorf("PR base/head = %q/%q", pr.GetBase(), pr.GetHead())
	}
	if !strings.Contains(pr.GetBody(), "Fixes #7") {
		t.Errorf("PR body does not link the issue:\n%s", pr.GetBody())
	}
}

func TestPublishCommentTriggeredBranchName(t *testing.T) {
	ws := &fakeWorkspace{}
	p := New(ws, &fakePRs{}, &fakeIssueCreator{}, nil, fixedHeaders("fix: resolve login crash"))

	in := issueEvent()
	in.Event.Kind = event.KindIssueComment
	in.Event.Comment = &event.Comment{ID: 4242, Body: "/codex fix bug"}

	if _, err := p.Publish(context.Background(), Input{
		Processed: in,
		Changed:   []string{"a.go"},
		Summary:   "Fixed it.",
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if want := "fix/login-crash-7-4242"; ws.branches[0] != want {
		t.Errorf("branch = %q, want %q", ws.branches[0], want)
	}
}

func TestPublishPushesToHeadBranch(t *testing.T) {
	ws := &fakeWorkspace{}
	prs := &fakePRs{}
	p := New(ws, prs, &fakeIssueCreator{}, nil, fixedHeaders("refactor: tidy export"))

	res, err := p.Publish(context.Background(), Input{
		Processed: prEvent(),
		Changed:   []string{"pkg/export/writer.go"},
		Summary:   "Tidied up the writer.",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if res.Outcome != OutcomeCommitPushed {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeCommitPushed)
	}
	if len(ws.branches) != 0 {
		t.Errorf("created branches %v on a PR event", ws.branches)
	}
	if len(ws.pushes) != 1 || ws.pushes[0].branch != "feature/export" || ws.pushes[0].force {
		t.Errorf("pushes = %v, want one plain push of feature/export", ws.pushes)
	}
	if len(prs.created) != 0 {
		t.Errorf("created a PR on a PR event")
	}
}

func TestPublishNoEffectiveChanges(t *testing.T) {
	ws := &fakeWorkspace{}
	prs := &fakePRs{}
	p := New(ws, prs, &fakeIssueCreator{}, nil, fixedHeaders("chore: noop"))

	res, err := p.Publish(context.Background(), Input{
		Processed: issueEvent(),
		Changed:   []string{".github/workflows/ci.yml", ".codewright/images/image-1.png"},
		Summary:   "I could not reproduce the problem.",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if res.Outcome != OutcomeCommentPosted {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeCommentPosted)
	}
	if len(ws.commits) != 0 || len(ws.pushes) != 0 || len(prs.created) != 0 {
		t.Errorf("workflow-only change set triggered git operations: commits=%v pushes=%v prs=%d",
			ws.commits, ws.pushes, len(prs.created))
	}
	if len(ws.reverted) != 2 {
		t.Errorf("reverted = %v, want both excluded paths", ws.reverted)
	}
}

func TestPublishNoPRPostsDiff(t *testing.T) {
	ws := &fakeWorkspace{diff: "--- a/a.go\n+++ b/a.go\n+added\n"}
	p := New(ws, &fakePRs{}, &fakeIssueCreator{}, nil, fixedHeaders("feat: add"))

	in := issueEvent()
	in.NoPR = true

	res, err := p.Publish(context.Background(), Input{
		Processed: in,
		Changed:   []string{"a.go"},
		Summary:   "Here is what I would change.",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if res.Outcome != OutcomeCommentPosted {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeCommentPosted)
	}
	if !strings.Contains(res.Message, "```diff") || !strings.Contains(res.Message, "+added") {
		t.Errorf("message missing diff:\n%s", res.Message)
	}
	if len(ws.pushes) != 0 {
		t.Errorf("--no-pr pushed: %v", ws.pushes)
	}
}

func TestPublishCreateIssues(t *testing.T) {
	creator := &fakeIssueCreator{}
	p := New(&fakeWorkspace{}, &fakePRs{}, creator, nil, fixedHeaders("chore: noop"))

	in := issueEvent()
	in.CreateIssues = true

	res, err := p.Publish(context.Background(), Input{
		Processed: in,
		Summary: "Here you go:\n```json\n" +
			`[{"title":"Split auth module","body":"Details A"},{"title":"Add rate limits","body":"Details B"}]` +
			"\n```",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if res.Outcome != OutcomeIssuesCreated {
		t.Fatalf("Outcome = %q, want %q", res.Outcome, OutcomeIssuesCreated)
	}
	if len(creator.created) != 2 {
		t.Fatalf("created %d issues, want 2", len(creator.created))
	}
	if creator.created[0].GetTitle() != "Split auth module" {
		t.Errorf("first issue title = %q", creator.created[0].GetTitle())
	}
}

func TestPublishCreateIssuesBadJSON(t *testing.T) {
	p := New(&fakeWorkspace{}, &fakePRs{}, &fakeIssueCreator{}, nil, fixedHeaders("chore: noop"))

	in := issueEvent()
	in.CreateIssues = true

	_, err := p.Publish(context.Background(), Input{
		Processed: in,
		Summary:   "I created the issues for you already, no JSON needed!",
	})
	if !fault.Is(err, fault.KindParse) {
		t.Fatalf("Publish kind = %q, want %q (err: %v)", fault.KindOf(err), fault.KindParse, err)
	}
}

func TestSplitChanges(t *testing.T) {
	effective, excluded := splitChanges([]string{
		"cmd/main.go",
		".github/workflows/release.yml",
		".github/dependabot.yml",
		".codewright/images/image-1.png",
	})

	if len(effective) != 2 || effective[0] != "cmd/main.go" || effective[1] != ".github/dependabot.yml" {
		t.Errorf("effective = %v", effective)
	}
	if len(excluded) != 2 {
		t.Errorf("excluded = %v", excluded)
	}
}
