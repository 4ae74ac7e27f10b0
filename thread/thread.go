/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package thread maintains the run's conversation surface on GitHub: the
// tracking comment with its progress checklist, reactions on the triggering
// item, and the final result comment.
package thread

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/codewright/fault"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Milestones of a run, in order. The checklist in the tracking comment is
// rendered from this list.
var milestones = []string{
	"Assemble prompt",
	"Run agent",
	"Review changes",
	"Publish result",
}

// inProgressPrefix marks the thread title while a run is active. It is
// removed again when the run ends either way.
const inProgressPrefix = "[wip] "

// IssuesAPI is the slice of the GitHub Issues service the tracker needs. The
// issues endpoints cover PR titles and comments too.
type IssuesAPI interface {
	Get(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error)
	Edit(ctx context.Context, owner, repo string, number int, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
	EditComment(ctx context.Context, owner, repo string, commentID int64, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

// ReactionsAPI is the slice of the GitHub Reactions service the tracker needs.
type ReactionsAPI interface {
	CreateIssueReaction(ctx context.Context, owner, repo string, number int, content string) (*github.Reaction, *github.Response, error)
	CreateIssueCommentReaction(ctx context.Context, owner, repo string, id int64, content string) (*github.Reaction, *github.Response, error)
	CreatePullRequestCommentReaction(ctx context.Context, owner, repo string, id int64, content string) (*github.Reaction, *github.Response, error)
}

// Target identifies where reactions land: the triggering comment when there
// is one, otherwise the issue or PR itself.
type Target struct {
	IssueNumber int
	// CommentID is the triggering comment, zero when the trigger was the
	// issue or PR body itself.
	CommentID int64
	// ReviewComment marks CommentID as a PR review comment, which GitHub
	// reacts to through a different endpoint.
	ReviewComment bool
}

// Tracker owns one run's tracking comment and reactions. All of its methods
// are cosmetic with respect to the run: callers wrap them in BestEffort so a
// failed comment edit never fails the run.
type Tracker struct {
	issues    IssuesAPI
	reactions ReactionsAPI

	owner    string
	repo     string
	identity string
	target   Target

	commentID int64
	milestone int
}

// NewTracker returns a Tracker for one run. Identity is the bot account name
// shown in the tracking comment header.
func NewTracker(issues IssuesAPI, reactions ReactionsAPI, owner, repo, identity string, target Target) *Tracker {
	return &Tracker{
		issues:    issues,
		reactions: reactions,
		owner:     owner,
		repo:      repo,
		identity:  identity,
		target:    target,
	}
}

// MarkInProgress reacts to the triggering item with eyes and prefixes the
// thread title, signalling that the run picked the event up.
func (t *Tracker) MarkInProgress(ctx context.Context) error {
	return errors.Join(
		t.react(ctx, "eyes"),
		t.setTitlePrefix(ctx, true),
	)
}

// MarkDone reacts to the triggering item with a rocket and removes the
// in-progress title prefix.
func (t *Tracker) MarkDone(ctx context.Context) error {
	return errors.Join(
		t.react(ctx, "rocket"),
		t.setTitlePrefix(ctx, false),
	)
}

// MarkFailed reacts to the triggering item with a thumbs-down and removes
// the in-progress title prefix.
func (t *Tracker) MarkFailed(ctx context.Context) error {
	return errors.Join(
		t.react(ctx, "-1"),
		t.setTitlePrefix(ctx, false),
	)
}

// setTitlePrefix adds or removes the in-progress prefix on the thread title.
// Already-prefixed (or unprefixed) titles are left alone, so redelivered
// webhooks never stack prefixes.
func (t *Tracker) setTitlePrefix(ctx context.Context, active bool) error {
	issue, _, err := t.issues.Get(ctx, t.owner, t.repo, t.target.IssueNumber)
	if err != nil {
		return fault.New(fault.KindGitHost, "title", err)
	}

	title := issue.GetTitle()
	has := strings.HasPrefix(title, inProgressPrefix)
	switch {
	case active && !has:
		title = inProgressPrefix + title
	case !active && has:
		title = strings.TrimPrefix(title, inProgressPrefix)
	default:
		return nil
	}

	if _, _, err := t.issues.Edit(ctx, t.owner, t.repo, t.target.IssueNumber, &github.IssueRequest{
		Title: github.Ptr(title),
	}); err != nil {
		return fault.New(fault.KindGitHost, "title", err)
	}
	return nil
}

func (t *Tracker) react(ctx context.Context, content string) error {
	var err error
	switch {
	case t.target.CommentID != 0 && t.target.ReviewComment:
		_, _, err = t.reactions.CreatePullRequestCommentReaction(ctx, t.owner, t.repo, t.target.CommentID, content)
	case t.target.CommentID != 0:
		_, _, err = t.reactions.CreateIssueCommentReaction(ctx, t.owner, t.repo, t.target.CommentID, content)
	default:
		_, _, err = t.reactions.CreateIssueReaction(ctx, t.owner, t.repo, t.target.IssueNumber, content)
	}
	if err != nil {
		return fault.New(fault.KindGitHost, "reaction", err)
	}
	return nil
}

// Start creates the tracking comment with the zero-progress checklist, so
// the user sees the planned milestones before checkout begins. Safe to call
// again; a later Start re-renders whatever the milestone already is.
func (t *Tracker) Start(ctx context.Context) error {
	return t.upsert(ctx, t.checklist())
}

// Advance moves the checklist forward to the given milestone count and
// re-renders the tracking comment. The milestone never goes backwards, so a
// late Advance(1) after Advance(2) is a no-op.
func (t *Tracker) Advance(ctx context.Context, milestone int) error {
	if milestone <= t.milestone {
		return nil
	}
	if milestone > len(milestones) {
		milestone = len(milestones)
	}
	t.milestone = milestone
	return t.upsert(ctx, t.checklist())
}

// Publish replaces the tracking comment's body with the run's final text.
// Calling it again with the same body is a harmless re-edit, which is what
// makes redelivered webhooks safe.
func (t *Tracker) Publish(ctx context.Context, body string) error {
	return t.upsert(ctx, body)
}

func (t *Tracker) upsert(ctx context.Context, body string) error {
	body = t.header() + "\n\n" + body

	if t.commentID == 0 {
		comment, _, err := t.issues.CreateComment(ctx, t.owner, t.repo, t.target.IssueNumber, &github.IssueComment{
			Body: github.Ptr(body),
		})
		if err != nil {
			return fault.New(fault.KindGitHost, "tracking comment", err)
		}
		t.commentID = comment.GetID()
		return nil
	}

	if _, _, err := t.issues.EditComment(ctx, t.owner, t.repo, t.commentID, &github.IssueComment{
		Body: github.Ptr(body),
	}); err != nil {
		return fault.New(fault.KindGitHost, "tracking comment", err)
	}
	return nil
}

func (t *Tracker) header() string {
	return fmt.Sprintf("<!-- %s -->", t.identity)
}

func (t *Tracker) checklist() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** is working on this:\n", t.identity)
	for i, m := range milestones {
		box := " "
		if i < t.milestone {
			box = "x"
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", box, m)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BestEffort runs fn and downgrades any error to a warning log. Cosmetic
// steps (reactions, checklist updates) go through here so they cannot fail
// the run.
func BestEffort(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		clog.FromContext(ctx).Warnf("%s failed (continuing): %v", op, err)
	}
}
