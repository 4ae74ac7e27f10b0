/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import "encoding/json"

// payload mirrors the webhook fields the classifier probes. Every nested
// object is a pointer so absence is distinguishable from emptiness.
type payload struct {
	Action string `json:"action"`

	Issue *struct {
		Number      int    `json:"number"`
		NodeID      string `json:"node_id"`
		Title       string `json:"title"`
		Body        string `json:"body"`
		HTMLURL     string `json:"html_url"`
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request"`
	} `json:"issue"`

	PullRequest *struct {
		Number  int    `json:"number"`
		NodeID  string `json:"node_id"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
		Head    struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`

	Comment *struct {
		ID      int64   `json:"id"`
		Body    string  `json:"body"`
		Path    *string `json:"path"`
		HTMLURL string  `json:"html_url"`
	} `json:"comment"`

	Assignee *struct {
		Login string `json:"login"`
	} `json:"assignee"`

	Repository *struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		DefaultBranch string `json:"default_branch"`
	} `json:"repository"`

	Sender *struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// Classify evaluates the ordered structural predicates over the raw payload
// and returns the single matching variant, or nil when nothing matches.
// Malformed JSON also yields nil: an undeliverable payload is a no-op here,
// and schema validation (if any) happens before classification.
func Classify(raw []byte) *Event {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}

	kind := match(&p)
	if kind == KindNone {
		return nil
	}

	ev := &Event{Kind: kind}
	if p.Repository != nil {
		ev.Owner = p.Repository.Owner.Login
		ev.Repo = p.Repository.Name
		ev.DefaultBranch = p.Repository.DefaultBranch
	}
	if p.Sender != nil {
		ev.Sender = p.Sender.Login
	}
	if p.Assignee != nil {
		ev.Assignee = p.Assignee.Login
	}
	if p.Issue != nil {
		ev.Issue = &Issue{
			Number:  p.Issue.Number,
			NodeID:  p.Issue.NodeID,
			Title:   p.Issue.Title,
			Body:    p.Issue.Body,
			HTMLURL: p.Issue.HTMLURL,
		}
	}
	if p.PullRequest != nil {
		ev.PullRequest = &PullRequest{
			Number:  p.PullRequest.Number,
			NodeID:  p.PullRequest.NodeID,
			Title:   p.PullRequest.Title,
			Body:    p.PullRequest.Body,
			HeadRef: p.PullRequest.Head.Ref,
			HeadSHA: p.PullRequest.Head.SHA,
			BaseRef: p.PullRequest.Base.Ref,
			HTMLURL: p.PullRequest.HTMLURL,
		}
	}
	if p.Comment != nil {
		ev.Comment = &Comment{
			ID:      p.Comment.ID,
			Body:    p.Comment.Body,
			HTMLURL: p.Comment.HTMLURL,
		}
		if p.Comment.Path != nil {
			ev.Comment.Path = *p.Comment.Path
		}
	}

	return ev
}

// match evaluates the mutually-exclusive predicates in order; first match
// wins. The comment predicates come first so that comment payloads (which
// also carry issue or pull_request objects) never classify as thread
// lifecycle events.
func match(p *payload) Kind {
	switch {
	case p.Action == "created" && p.Comment != nil && p.Comment.Path != nil && p.PullRequest != nil:
		return KindPRReviewComment
	case p.Action == "created" && p.Comment != nil && p.Issue != nil && p.Issue.PullRequest != nil:
		return KindPRConversationComment
	case p.Action == "created" && p.Comment != nil && p.Issue != nil:
		return KindIssueComment
	case p.Action == "opened" && p.Issue != nil:
		return KindIssueOpened
	case p.Action == "assigned" && p.Issue != nil && p.Assignee != nil:
		return KindIssueAssigned
	case p.Action == "opened" && p.PullRequest != nil:
		return KindPROpened
	case p.Action == "synchronize" && p.PullRequest != nil:
		return KindPRSynchronize
	default:
		return KindNone
	}
}
