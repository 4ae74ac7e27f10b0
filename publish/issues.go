/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chainguard.dev/codewright/fault"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// issueSpec is one element of the agent's issue-creation output.
type issueSpec struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// createIssues parses the agent summary as a JSON array of issues and files
// them. A summary that is not the requested JSON is a parse fault: the agent
// was explicitly framed to produce it.
func (p *Publisher) createIssues(ctx context.Context, in Input) (*Result, error) {
	log := clog.FromContext(ctx)
	ev := in.Processed.Event

	specs, err := parseIssueSpecs(in.Summary)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return &Result{
			Outcome: OutcomeCommentPosted,
			Message: "No issues to create.",
		}, nil
	}

	var lines []string
	for _, spec := range specs {
		issue, _, err := p.issues.Create(ctx, ev.Owner, ev.Repo, &github.IssueRequest{
			Title: github.Ptr(spec.Title),
			Body:  github.Ptr(spec.Body),
		})
		if err != nil {
			return nil, fault.New(fault.KindGitHost, "creating issue", err)
		}
		log.Infof("Created issue #%d: %s", issue.GetNumber(), spec.Title)
		lines = append(lines, fmt.Sprintf("- %s", issue.GetHTMLURL()))
	}

	return &Result{
		Outcome: OutcomeIssuesCreated,
		Message: fmt.Sprintf("Created %d issue(s):\n%s", len(specs), strings.Join(lines, "\n")),
	}, nil
}

// parseIssueSpecs extracts the JSON array from the summary, tolerating
// markdown code fences and surrounding prose.
func parseIssueSpecs(summary string) ([]issueSpec, error) {
	text := stripFences(summary)

	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return nil, fault.Newf(fault.KindParse, "issue output", "agent output contains no JSON array")
	}

	var specs []issueSpec
	if err := json.Unmarshal([]byte(text[start:end+1]), &specs); err != nil {
		return nil, fault.New(fault.KindParse, "issue output", err)
	}

	for i, spec := range specs {
		if strings.TrimSpace(spec.Title) == "" {
			return nil, fault.Newf(fault.KindParse, "issue output", "issue %d has an empty title", i+1)
		}
	}
	return specs, nil
}

func stripFences(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
