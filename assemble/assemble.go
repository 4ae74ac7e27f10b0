/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package assemble turns a processed event into the prompt handed to the
// agent: the base request rendered through configurable templates, plus
// optional sections for conversation history, failing CI checks, fetched
// URLs, and attached images.
package assemble

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"chainguard.dev/codewright/config"
	"chainguard.dev/codewright/event"
	"chainguard.dev/codewright/fault"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/jellydator/ttlcache/v3"
)

// CommentsAPI lists the comments on an issue or PR conversation.
type CommentsAPI interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
}

// ChecksAPI lists check runs for a commit.
type ChecksAPI interface {
	ListCheckRunsForRef(ctx context.Context, owner, repo, ref string, opts *github.ListCheckRunsOptions) (*github.ListCheckRunsResults, *github.Response, error)
}

// Assembled is the agent-ready input for one run.
type Assembled struct {
	Prompt string
	// Images are local paths of downloaded attachments, under the
	// workspace's image directory.
	Images []string
}

// Assembler builds prompts for runs against one repository.
type Assembler struct {
	comments CommentsAPI
	checks   ChecksAPI
	prompts  *config.Prompts

	httpClient *http.Client
	// fetched memoizes URL fetches within a run so a URL referenced in both
	// the issue body and a comment is downloaded once.
	fetched *ttlcache.Cache[string, string]

	workspaceDir string
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithHTTPClient overrides the client used for URL fetches and image
// downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Assembler) { a.httpClient = c }
}

// New returns an Assembler. workspaceDir is the run's checkout; downloaded
// images are placed beneath it so the agent CLI can read them by relative
// path.
func New(comments CommentsAPI, checks ChecksAPI, prompts *config.Prompts, workspaceDir string, opts ...Option) *Assembler {
	a := &Assembler{
		comments:     comments,
		checks:       checks,
		prompts:      prompts,
		httpClient:   &http.Client{Timeout: fetchTimeout},
		fetched:      ttlcache.New(ttlcache.WithTTL[string, string](fetchMemoTTL)),
		workspaceDir: workspaceDir,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// promptData is the template input for the base prompt.
type promptData struct {
	Title   string
	Request string
	Path    string
}

// Build renders the full prompt for a processed event.
func (a *Assembler) Build(ctx context.Context, p *event.Processed) (*Assembled, error) {
	base, err := a.basePrompt(p)
	if err != nil {
		return nil, err
	}

	var sections []string
	sections = append(sections, base)

	if p.IncludeFullHistory {
		history, err := a.history(ctx, p.Event)
		if err != nil {
			return nil, err
		}
		if history != "" {
			sections = append(sections, history)
		}
	}

	if p.IncludeFixBuild {
		failures, err := a.failingChecks(ctx, p.Event)
		if err != nil {
			return nil, err
		}
		if failures != "" {
			sections = append(sections, failures)
		}
	}

	if p.IncludeFetch {
		if fetched := a.fetchReferenced(ctx, base); fetched != "" {
			sections = append(sections, fetched)
		}
	}

	prompt := strings.Join(sections, "\n\n")

	prompt, images := a.extractImages(ctx, prompt)

	return &Assembled{Prompt: prompt, Images: images}, nil
}

// basePrompt picks the template for the event kind and renders it.
func (a *Assembler) basePrompt(p *event.Processed) (string, error) {
	var (
		tmplText string
		data     promptData
	)

	switch p.Event.Kind {
	case event.KindPRReviewComment:
		tmplText = a.prompts.ReviewComment
		data = promptData{Request: p.Prompt}
		if p.Event.Comment != nil {
			data.Path = p.Event.Comment.Path
		}
		if p.Event.PullRequest != nil {
			data.Title = p.Event.PullRequest.Title
		}
	case event.KindPROpened, event.KindPRSynchronize, event.KindPRConversationComment:
		tmplText = a.prompts.PullRequest
		data = promptData{Request: p.Prompt}
		if p.Event.PullRequest != nil {
			data.Title = p.Event.PullRequest.Title
		}
	default:
		tmplText = a.prompts.Issue
		data = promptData{Request: p.Prompt}
		if p.Event.Issue != nil {
			data.Title = p.Event.Issue.Title
		}
	}

	// Issue-creation runs replace the base template wholesale: the agent is
	// asked for machine-readable issues, not code changes.
	if p.CreateIssues {
		tmplText = a.prompts.CreateIssues
	}

	tmpl, err := template.New("prompt").Parse(tmplText)
	if err != nil {
		return "", fault.New(fault.KindConfig, "prompt template", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fault.New(fault.KindConfig, "prompt template", err)
	}

	prompt := strings.TrimSpace(sb.String())
	if prompt == "" {
		return "", fault.Newf(fault.KindParse, "prompt", "rendered prompt is empty")
	}
	return prompt, nil
}

// history lists the conversation's comments oldest-first.
func (a *Assembler) history(ctx context.Context, ev *event.Event) (string, error) {
	var triggerID int64
	if ev.Comment != nil {
		triggerID = ev.Comment.ID
	}
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var sb strings.Builder
	sb.WriteString("## Conversation so far\n")

	for {
		comments, resp, err := a.comments.ListComments(ctx, ev.Owner, ev.Repo, ev.Number(), opts)
		if err != nil {
			return "", fault.New(fault.KindGitHost, "listing comments", err)
		}
		for _, c := range comments {
			// The triggering comment adds noise, not context.
			if triggerID != 0 && c.GetID() == triggerID {
				continue
			}
			fmt.Fprintf(&sb, "\n@%s wrote:\n%s\n", c.GetUser().GetLogin(), strings.TrimSpace(c.GetBody()))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if !strings.Contains(sb.String(), "wrote:") {
		return "", nil
	}
	return strings.TrimSpace(sb.String()), nil
}

// maxCheckOutput caps how much of a failing check's output lands in the
// prompt.
const maxCheckOutput = 16 * 1024

// failingChecks summarizes failed check runs on the PR head commit.
func (a *Assembler) failingChecks(ctx context.Context, ev *event.Event) (string, error) {
	if ev.PullRequest == nil || ev.PullRequest.HeadSHA == "" {
		return "", nil
	}

	results, _, err := a.checks.ListCheckRunsForRef(ctx, ev.Owner, ev.Repo, ev.PullRequest.HeadSHA, &github.ListCheckRunsOptions{
		Status:      github.Ptr("completed"),
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return "", fault.New(fault.KindGitHost, "listing check runs", err)
	}

	var sb strings.Builder
	sb.WriteString("## Failing checks\n")
	found := false
	for _, run := range results.CheckRuns {
		if run.GetConclusion() != "failure" && run.GetConclusion() != "timed_out" {
			continue
		}
		found = true
		fmt.Fprintf(&sb, "\n### %s (%s)\n", run.GetName(), run.GetConclusion())
		if summary := strings.TrimSpace(run.GetOutput().GetSummary()); summary != "" {
			sb.WriteString(truncate(summary, maxCheckOutput))
			sb.WriteString("\n")
		}
		if text := strings.TrimSpace(run.GetOutput().GetText()); text != "" {
			sb.WriteString(truncate(text, maxCheckOutput))
			sb.WriteString("\n")
		}
	}
	if !found {
		clog.FromContext(ctx).Infof("No failing checks on %s", ev.PullRequest.HeadSHA)
		return "", nil
	}
	return strings.TrimSpace(sb.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[truncated]"
}
