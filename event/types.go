/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

// Kind identifies one variant of the closed event union.
type Kind int

const (
	// KindNone is the zero value; Classify never returns it.
	KindNone Kind = iota
	KindIssueOpened
	KindIssueAssigned
	KindIssueComment
	KindPRConversationComment
	KindPRReviewComment
	KindPROpened
	KindPRSynchronize
)

func (k Kind) String() string {
	switch k {
	case KindIssueOpened:
		return "issue-opened"
	case KindIssueAssigned:
		return "issue-assigned"
	case KindIssueComment:
		return "issue-comment"
	case KindPRConversationComment:
		return "pr-conversation-comment"
	case KindPRReviewComment:
		return "pr-review-comment"
	case KindPROpened:
		return "pr-opened"
	case KindPRSynchronize:
		return "pr-synchronize"
	default:
		return "none"
	}
}

// IssueLike reports whether the event originates from an issue thread
// (opened, assigned, or commented). The result publisher uses this to choose
// between the new-branch PR path and the existing-head-branch push path.
func (k Kind) IssueLike() bool {
	switch k {
	case KindIssueOpened, KindIssueAssigned, KindIssueComment:
		return true
	default:
		return false
	}
}

// CommentTriggered reports whether the event was produced by a comment.
func (k Kind) CommentTriggered() bool {
	switch k {
	case KindIssueComment, KindPRConversationComment, KindPRReviewComment:
		return true
	default:
		return false
	}
}

// Direct reports whether the event invokes the pipeline without a trigger
// phrase. Direct invocations honor a narrower command-flag vocabulary.
func (k Kind) Direct() bool {
	switch k {
	case KindIssueAssigned, KindPROpened, KindPRSynchronize:
		return true
	default:
		return false
	}
}

// Issue carries the fields of the triggering issue (or of the PR's
// issue-view, for conversation comments).
type Issue struct {
	Number  int
	NodeID  string
	Title   string
	Body    string
	HTMLURL string
}

// PullRequest carries the fields of the triggering pull request.
type PullRequest struct {
	Number  int
	NodeID  string
	Title   string
	Body    string
	HeadRef string
	BaseRef string
	HeadSHA string
	HTMLURL string
}

// Comment carries the triggering comment. Path is set only for review
// comments anchored to a file.
type Comment struct {
	ID      int64
	Body    string
	Path    string
	HTMLURL string
}

// Event is the normalized representation of one webhook delivery. Exactly one
// of Issue or PullRequest is populated at classification time, except that a
// conversation comment on a PR populates Issue (the payload's issue-view of
// the PR); callers resolve the PullRequest side separately when they need the
// head branch.
type Event struct {
	Kind          Kind
	Owner         string
	Repo          string
	DefaultBranch string
	Sender        string
	Assignee      string

	Issue       *Issue
	PullRequest *PullRequest
	Comment     *Comment
}

// Number returns the issue or PR number the event's thread lives on.
func (e *Event) Number() int {
	if e.Issue != nil {
		return e.Issue.Number
	}
	if e.PullRequest != nil {
		return e.PullRequest.Number
	}
	return 0
}
