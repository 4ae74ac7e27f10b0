/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package event

import "chainguard.dev/codewright/trigger"

// Processed is the immutable run input: the classified event plus its
// resolved command flags and remaining prompt text. It is derived once at
// the start of a run and never mutated afterwards.
type Processed struct {
	Event *Event

	IncludeFullHistory bool
	CreateIssues       bool
	NoPR               bool
	IncludeFixBuild    bool
	IncludeFetch       bool

	// Prompt is the free text left after trigger-phrase stripping and flag
	// consumption. It may be empty for direct invocations, where the thread
	// title and body carry the request.
	Prompt string
}

// Process resolves an event into a Processed run input, or nil when the
// event carries no actionable command.
//
// Trigger-based events (issue opened, all comment variants) require the
// trigger phrase in their text and are no-ops when the remaining prompt is
// empty. Direct events (assignment, PR lifecycle) are always actionable and
// parse their body with the narrower direct flag vocabulary.
func Process(ev *Event, phrase string) *Processed {
	if ev == nil {
		return nil
	}

	text, ok := commandText(ev, phrase)
	if !ok {
		return nil
	}

	cmd := trigger.Parse(text, ev.Kind.Direct())
	if !ev.Kind.Direct() && cmd.Empty() {
		return nil
	}

	return &Processed{
		Event:              ev,
		IncludeFullHistory: cmd.Has(trigger.FlagFullHistory),
		CreateIssues:       cmd.Has(trigger.FlagCreateIssues),
		NoPR:               cmd.Has(trigger.FlagNoPR),
		IncludeFixBuild:    cmd.Has(trigger.FlagFixBuild),
		IncludeFetch:       cmd.Has(trigger.FlagFetch),
		Prompt:             cmd.Prompt,
	}
}

func commandText(ev *Event, phrase string) (string, bool) {
	switch ev.Kind {
	case KindIssueComment, KindPRConversationComment, KindPRReviewComment:
		if ev.Comment == nil {
			return "", false
		}
		return trigger.Strip(ev.Comment.Body, phrase)

	case KindIssueOpened:
		if ev.Issue == nil {
			return "", false
		}
		return trigger.Strip(ev.Issue.Body, phrase)

	case KindIssueAssigned:
		if ev.Issue == nil {
			return "", false
		}
		return ev.Issue.Body, true

	case KindPROpened, KindPRSynchronize:
		if ev.PullRequest == nil {
			return "", false
		}
		return ev.PullRequest.Body, true

	default:
		return "", false
	}
}
