/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements codewright, which turns one GitHub webhook payload
// into one agent run: classify the event, parse the command, run the coding
// agent against a fresh checkout, and publish the result as a PR, commit,
// comment, or set of issues.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/codewright/agentcli"
	"chainguard.dev/codewright/assemble"
	"chainguard.dev/codewright/commitmsg"
	"chainguard.dev/codewright/config"
	"chainguard.dev/codewright/event"
	"chainguard.dev/codewright/metrics"
	"chainguard.dev/codewright/orchestrator"
	"chainguard.dev/codewright/publish"
	"chainguard.dev/codewright/scrub"
	"chainguard.dev/codewright/thread"
	"chainguard.dev/codewright/workspace"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	payload, err := os.ReadFile(cfg.PayloadPath)
	if err != nil {
		clog.FatalContextf(ctx, "reading payload %s: %v", cfg.PayloadPath, err)
	}

	ev := event.Classify(payload)
	if ev == nil {
		clog.InfoContextf(ctx, "Payload is not an actionable event, exiting")
		return
	}
	clog.InfoContextf(ctx, "Classified event: %s on %s/%s#%d", ev.Kind, ev.Owner, ev.Repo, ev.Number())

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)
	gh := github.NewClient(httpClient)
	graphql := githubv4.NewClient(httpClient)

	// A conversation comment on a PR arrives with the payload's issue-view
	// only; the head branch comes from a separate lookup.
	if ev.Kind == event.KindPRConversationComment {
		pr, _, err := gh.PullRequests.Get(ctx, ev.Owner, ev.Repo, ev.Number())
		if err != nil {
			clog.FatalContextf(ctx, "resolving PR #%d: %v", ev.Number(), err)
		}
		ev.PullRequest = &event.PullRequest{
			Number:  pr.GetNumber(),
			NodeID:  pr.GetNodeID(),
			Title:   pr.GetTitle(),
			Body:    pr.GetBody(),
			HeadRef: pr.GetHead().GetRef(),
			BaseRef: pr.GetBase().GetRef(),
			HeadSHA: pr.GetHead().GetSHA(),
			HTMLURL: pr.GetHTMLURL(),
		}
	}

	processed := event.Process(ev, cfg.TriggerPhrase)
	if processed == nil {
		clog.InfoContextf(ctx, "Event carries no actionable command, exiting")
		return
	}

	prompts, err := config.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		clog.FatalContextf(ctx, "loading prompts: %v", err)
	}

	dir := cfg.WorkspaceDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "codewright-")
		if err != nil {
			clog.FatalContextf(ctx, "creating workspace dir: %v", err)
		}
		defer os.RemoveAll(dir)
	}

	ws, err := workspace.New(tokenSource, cfg.Identity, dir)
	if err != nil {
		clog.FatalContextf(ctx, "creating workspace: %v", err)
	}

	tracker := thread.NewTracker(gh.Issues, gh.Reactions, ev.Owner, ev.Repo, cfg.Identity, reactionTarget(ev))

	orch := orchestrator.New(
		ws,
		assemble.New(gh.Issues, gh.Checks, prompts, dir),
		agentcli.New(cfg.AgentCommand, cfg.AgentModel, dir, agentEnv(cfg)),
		publish.New(ws, gh.PullRequests, gh.Issues, graphql,
			commitmsg.NewGenerator(cfg.AnthropicAPIKey, cfg.CommitModel)),
		tracker,
		scrub.New(cfg.Secrets()...),
		metrics.NewRuns("chainguard.dev/codewright"),
		cfg.RunBudget,
		cfg.PublishReserve,
		cfg.AgentModel,
	)

	result, err := orch.Run(ctx, processed)
	if err != nil {
		// The orchestrator already reported the failure to the conversation.
		os.Exit(1)
	}
	clog.InfoContextf(ctx, "Run complete: %s %s", result.Outcome, result.URL)
}

// reactionTarget picks where run-status reactions land.
func reactionTarget(ev *event.Event) thread.Target {
	target := thread.Target{IssueNumber: ev.Number()}
	if ev.Kind.CommentTriggered() && ev.Comment != nil {
		target.CommentID = ev.Comment.ID
		target.ReviewComment = ev.Kind == event.KindPRReviewComment
	}
	return target
}

// agentEnv renders the configured agent environment as KEY=VALUE pairs.
func agentEnv(cfg *config.Config) []string {
	env := make([]string, 0, len(cfg.AgentEnv))
	for k, v := range cfg.AgentEnv {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
