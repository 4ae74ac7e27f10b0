/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package publish turns an agent run's outcome (a change set plus a summary)
// into its durable GitHub result: a pull request, a commit on an existing PR
// branch, created issues, or a comment.
package publish

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/codewright/commitmsg"
	"chainguard.dev/codewright/event"
	"chainguard.dev/codewright/fault"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// Outcome names what a run ultimately produced.
type Outcome string

const (
	OutcomePullRequest   Outcome = "pull-request"
	OutcomeCommitPushed  Outcome = "commit-pushed"
	OutcomeCommentPosted Outcome = "comment-posted"
	OutcomeIssuesCreated Outcome = "issues-created"
)

// Result is the published outcome. Message is the text the tracker posts to
// the conversation.
type Result struct {
	Outcome Outcome
	URL     string
	Message string
}

// Workspace is the slice of the git workspace the publisher drives.
type Workspace interface {
	CreateBranch(ctx context.Context, name string) error
	CommitAll(ctx context.Context, message string) error
	Push(ctx context.Context, branch string, force bool) error
	Revert(ctx context.Context, paths []string) error
	DiffText(paths []string) (string, error)
}

// PullRequestsAPI creates pull requests.
type PullRequestsAPI interface {
	Create(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, *github.Response, error)
}

// IssueCreatorAPI creates issues.
type IssueCreatorAPI interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
}

// GraphQL is the slice of the GitHub GraphQL client used to look up an
// existing open PR for a head branch.
type GraphQL interface {
	Query(ctx context.Context, q interface{}, variables map[string]interface{}) error
}

// HeaderGenerator produces the commit header for a change summary.
type HeaderGenerator interface {
	Header(ctx context.Context, summary string) string
}

// excludedPrefixes are path prefixes the publisher never commits: workflow
// files (pushing those with an installation token is rejected by GitHub
// anyway) and the run's downloaded attachments.
var excludedPrefixes = []string{
	".github/workflows/",
	".codewright/",
}

// Publisher publishes run results for one repository.
type Publisher struct {
	ws      Workspace
	prs     PullRequestsAPI
	issues  IssueCreatorAPI
	graphql GraphQL
	headers HeaderGenerator
}

// New constructs a Publisher. graphql may be nil, in which case the
// existing-PR lookup is skipped and re-triggered runs surface the create
// error instead of reusing the open PR.
func New(ws Workspace, prs PullRequestsAPI, issues IssueCreatorAPI, graphql GraphQL, headers HeaderGenerator) *Publisher {
	return &Publisher{ws: ws, prs: prs, issues: issues, graphql: graphql, headers: headers}
}

// Input is one run's outcome, ready for publication.
type Input struct {
	Processed *event.Processed
	// Changed is the effective-change-set candidate: every path whose
	// content hash differs from the pre-agent snapshot.
	Changed []string
	// Summary is the agent's final message.
	Summary string
}

// Publish applies the decision table: issue-creation runs create issues, an
// empty effective change set posts the summary, --no-pr posts a diff,
// issue-like events open a PR from a fresh branch, and PR-like events push
// onto the PR's head branch.
func (p *Publisher) Publish(ctx context.Context, in Input) (*Result, error) {
	log := clog.FromContext(ctx)

	if in.Processed.CreateIssues {
		return p.createIssues(ctx, in)
	}

	effective, excluded := splitChanges(in.Changed)
	if len(excluded) > 0 {
		log.Infof("Reverting %d excluded paths: %v", len(excluded), excluded)
		if err := p.ws.Revert(ctx, excluded); err != nil {
			return nil, err
		}
	}

	if len(effective) == 0 {
		log.Infof("No effective changes, posting summary")
		return &Result{
			Outcome: OutcomeCommentPosted,
			Message: in.Summary,
		}, nil
	}

	if in.Processed.NoPR {
		diff, err := p.ws.DiffText(effective)
		if err != nil {
			return nil, err
		}
		return &Result{
			Outcome: OutcomeCommentPosted,
			Message: fmt.Sprintf("%s\n\n```diff\n%s\n```", in.Summary, strings.TrimRight(diff, "\n")),
		}, nil
	}

	header := p.headers.Header(ctx, in.Summary)

	if in.Processed.Event.Kind.IssueLike() {
		return p.openPullRequest(ctx, in, header)
	}
	return p.pushToHead(ctx, in, header)
}

// openPullRequest commits the change set on a fresh branch, force-pushes it,
// and opens (or reuses) a PR against the default branch.
func (p *Publisher) openPullRequest(ctx context.Context, in Input, header string) (*Result, error) {
	ev := in.Processed.Event
	branch := branchName(in.Processed, in.Summary)

	if err := p.ws.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	if err := p.ws.CommitAll(ctx, header); err != nil {
		return nil, err
	}
	// Force: a re-triggered run replaces its earlier attempt's branch.
	if err := p.ws.Push(ctx, branch, true); err != nil {
		return nil, err
	}

	if url, ok := p.existingPR(ctx, ev, branch); ok {
		clog.FromContext(ctx).Infof("Reusing open PR for branch %s: %s", branch, url)
		return &Result{
			Outcome: OutcomePullRequest,
			URL:     url,
			Message: fmt.Sprintf("Updated %s with a new attempt.\n\n%s", url, in.Summary),
		}, nil
	}

	body := fmt.Sprintf("%s\n\nFixes #%d", in.Summary, ev.Number())
	pr, _, err := p.prs.Create(ctx, ev.Owner, ev.Repo, &github.NewPullRequest{
		Title: github.Ptr(header),
		Body:  github.Ptr(body),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(ev.DefaultBranch),
	})
	if err != nil {
		return nil, fault.New(fault.KindGitHost, "creating pull request", err)
	}

	return &Result{
		Outcome: OutcomePullRequest,
		URL:     pr.GetHTMLURL(),
		Message: fmt.Sprintf("Opened %s.\n\n%s", pr.GetHTMLURL(), in.Summary),
	}, nil
}

// pushToHead commits onto the PR's existing head branch.
func (p *Publisher) pushToHead(ctx context.Context, in Input, header string) (*Result, error) {
	ev := in.Processed.Event
	if ev.PullRequest == nil || ev.PullRequest.HeadRef == "" {
		return nil, fault.Newf(fault.KindGitHost, "push", "event has no pull request head branch")
	}

	if err := p.ws.CommitAll(ctx, header); err != nil {
		return nil, err
	}
	if err := p.ws.Push(ctx, ev.PullRequest.HeadRef, false); err != nil {
		return nil, err
	}

	return &Result{
		Outcome: OutcomeCommitPushed,
		URL:     ev.PullRequest.HTMLURL,
		Message: fmt.Sprintf("Pushed a commit to `%s`.\n\n%s", ev.PullRequest.HeadRef, in.Summary),
	}, nil
}

// existingPR looks for an open PR whose head is branch. Failures degrade to
// "not found" so publication falls through to a create attempt.
func (p *Publisher) existingPR(ctx context.Context, ev *event.Event, branch string) (string, bool) {
	if p.graphql == nil {
		return "", false
	}

	var q struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					Number githubv4.Int
					URL    githubv4.URI `graphql:"url"`
				}
			} `graphql:"pullRequests(headRefName: $head, states: OPEN, first: 1)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner": githubv4.String(ev.Owner),
		"name":  githubv4.String(ev.Repo),
		"head":  githubv4.String(branch),
	}

	if err := p.graphql.Query(ctx, &q, vars); err != nil {
		clog.FromContext(ctx).Warnf("Existing PR lookup failed: %v", err)
		return "", false
	}
	nodes := q.Repository.PullRequests.Nodes
	if len(nodes) == 0 || nodes[0].URL.URL == nil {
		return "", false
	}
	return nodes[0].URL.String(), true
}

// branchName derives the run's branch: commit type, a slug of the request,
// the issue number, and the triggering comment's ID when there is one so
// distinct comments on one issue get distinct branches.
func branchName(p *event.Processed, summary string) string {
	title := p.Prompt
	if p.Event.Issue != nil && p.Event.Issue.Title != "" {
		title = p.Event.Issue.Title
	}

	name := fmt.Sprintf("%s/%s-%d", commitmsg.TypeOf(summary), commitmsg.Slugify(title), p.Event.Number())
	if p.Event.Kind.CommentTriggered() && p.Event.Comment != nil {
		name = fmt.Sprintf("%s-%d", name, p.Event.Comment.ID)
	}
	return name
}

// splitChanges partitions the change set into publishable paths and excluded
// ones.
func splitChanges(changed []string) (effective, excluded []string) {
	for _, path := range changed {
		if isExcluded(path) {
			excluded = append(excluded, path)
		} else {
			effective = append(effective, path)
		}
	}
	return effective, excluded
}

func isExcluded(path string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
