/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package orchestrator sequences one run end to end: checkout, snapshot,
// prompt assembly, agent invocation, change detection, and publication, all
// under a single wall-clock budget. Cosmetic steps (reactions, checklist
// updates) never fail the run; everything else does, and a fatal failure is
// reported back to the conversation exactly once.
package orchestrator

import (
	"context"
	"time"

	"chainguard.dev/codewright/agentcli"
	"chainguard.dev/codewright/assemble"
	"chainguard.dev/codewright/event"
	"chainguard.dev/codewright/fault"
	"chainguard.dev/codewright/metrics"
	"chainguard.dev/codewright/publish"
	"chainguard.dev/codewright/scrub"
	"chainguard.dev/codewright/snapshot"
	"chainguard.dev/codewright/thread"
	"github.com/chainguard-dev/clog"
)

// Workspacer checks out the repository the run operates on.
type Workspacer interface {
	Checkout(ctx context.Context, owner, repo, branch string) error
	Dir() string
}

// Assembler builds the agent prompt.
type Assembler interface {
	Build(ctx context.Context, p *event.Processed) (*assemble.Assembled, error)
}

// Agent invokes the coding-agent CLI.
type Agent interface {
	Run(ctx context.Context, inv agentcli.Invocation) (string, error)
}

// Publisher publishes the run's result.
type Publisher interface {
	Publish(ctx context.Context, in publish.Input) (*publish.Result, error)
}

// Tracker maintains the run's conversation surface.
type Tracker interface {
	Start(ctx context.Context) error
	MarkInProgress(ctx context.Context) error
	MarkDone(ctx context.Context) error
	MarkFailed(ctx context.Context) error
	Advance(ctx context.Context, milestone int) error
	Publish(ctx context.Context, body string) error
}

// Orchestrator runs one processed event through the pipeline.
type Orchestrator struct {
	ws        Workspacer
	assembler Assembler
	agent     Agent
	publisher Publisher
	tracker   Tracker
	masker    *scrub.Masker
	runs      *metrics.Runs

	budget  time.Duration
	reserve time.Duration
	model   string

	// Snapshot hooks, overridable in tests.
	capture func(ctx context.Context, root string) (snapshot.Snapshot, error)
	diff    func(ctx context.Context, root string, previous snapshot.Snapshot) ([]string, error)
}

// New wires an Orchestrator. budget is the wall-clock limit from checkout
// onward; reserve is held back from the agent so publication can finish.
func New(ws Workspacer, assembler Assembler, agent Agent, publisher Publisher, tracker Tracker,
	masker *scrub.Masker, runs *metrics.Runs, budget, reserve time.Duration, model string) *Orchestrator {
	return &Orchestrator{
		ws:        ws,
		assembler: assembler,
		agent:     agent,
		publisher: publisher,
		tracker:   tracker,
		masker:    masker,
		runs:      runs,
		budget:    budget,
		reserve:   reserve,
		model:     model,
		capture:   snapshot.Capture,
		diff:      snapshot.Diff,
	}
}

// Run executes the pipeline for one processed event. The returned result is
// nil exactly when the error is non-nil; in that case the failure has
// already been reported to the conversation and the caller only decides the
// exit code.
func (o *Orchestrator) Run(ctx context.Context, p *event.Processed) (*publish.Result, error) {
	start := time.Now()

	result, err := o.run(ctx, p)

	outcome := "failed"
	if err == nil {
		outcome = string(result.Outcome)
	}
	o.runs.RecordRun(ctx, p.Event.Kind.String(), outcome, time.Since(start))

	if err != nil {
		o.reportFailure(ctx, err)
		return nil, err
	}

	thread.BestEffort(ctx, "publishing result comment", func(ctx context.Context) error {
		return o.tracker.Publish(ctx, o.masker.Mask(result.Message))
	})
	thread.BestEffort(ctx, "marking run done", o.tracker.MarkDone)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, p *event.Processed) (*publish.Result, error) {
	log := clog.FromContext(ctx)
	ev := p.Event

	thread.BestEffort(ctx, "marking run in progress", o.tracker.MarkInProgress)
	thread.BestEffort(ctx, "creating tracking comment", o.tracker.Start)

	// The budget covers everything from checkout onward. Classification and
	// config loading happened before the clock started.
	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	if err := o.ws.Checkout(ctx, ev.Owner, ev.Repo, o.baseBranch(ev)); err != nil {
		return nil, err
	}

	before, err := o.capture(ctx, o.ws.Dir())
	if err != nil {
		return nil, err
	}
	log.Infof("Snapshot of %d files taken", len(before))

	assembled, err := o.assembler.Build(ctx, p)
	if err != nil {
		return nil, err
	}
	thread.BestEffort(ctx, "advancing checklist", func(ctx context.Context) error {
		return o.tracker.Advance(ctx, 1)
	})

	summary, err := o.invokeAgent(ctx, assembled)
	if err != nil {
		return nil, err
	}
	// Everything downstream of the agent is outbound text: PR bodies, commit
	// messages, issue bodies, comments. Mask once, here.
	summary = o.masker.Mask(summary)
	thread.BestEffort(ctx, "advancing checklist", func(ctx context.Context) error {
		return o.tracker.Advance(ctx, 2)
	})

	// Issue-creation runs publish the agent's text directly; no change set is
	// involved.
	if p.CreateIssues {
		result, err := o.publisher.Publish(ctx, publish.Input{
			Processed: p,
			Summary:   summary,
		})
		if err != nil {
			return nil, err
		}
		thread.BestEffort(ctx, "advancing checklist", func(ctx context.Context) error {
			return o.tracker.Advance(ctx, 4)
		})
		return result, nil
	}

	changed, err := o.diff(ctx, o.ws.Dir(), before)
	if err != nil {
		return nil, err
	}
	log.Infof("Agent changed %d files", len(changed))
	thread.BestEffort(ctx, "advancing checklist", func(ctx context.Context) error {
		return o.tracker.Advance(ctx, 3)
	})

	result, err := o.publisher.Publish(ctx, publish.Input{
		Processed: p,
		Changed:   changed,
		Summary:   summary,
	})
	if err != nil {
		return nil, err
	}
	thread.BestEffort(ctx, "advancing checklist", func(ctx context.Context) error {
		return o.tracker.Advance(ctx, 4)
	})

	return result, nil
}

// invokeAgent gives the agent the remaining budget minus the publication
// reserve.
func (o *Orchestrator) invokeAgent(ctx context.Context, assembled *assemble.Assembled) (string, error) {
	slice := o.budget - o.reserve
	if deadline, ok := ctx.Deadline(); ok {
		slice = time.Until(deadline) - o.reserve
	}
	if slice <= 0 {
		return "", fault.Newf(fault.KindTimeout, "agent", "no budget left for the agent")
	}

	start := time.Now()
	summary, err := o.agent.Run(ctx, agentcli.Invocation{
		Prompt:  assembled.Prompt,
		Images:  assembled.Images,
		Timeout: slice,
	})
	o.runs.RecordAgent(ctx, o.model, time.Since(start), err != nil)
	return summary, err
}

// baseBranch picks where the run starts: the PR's head branch when there is
// one, otherwise the default branch.
func (o *Orchestrator) baseBranch(ev *event.Event) string {
	if ev.PullRequest != nil && ev.PullRequest.HeadRef != "" {
		return ev.PullRequest.HeadRef
	}
	return ev.DefaultBranch
}

// reportFailure posts the user-facing explanation once and flips the
// reaction. The wrapped detail stays in the logs; the conversation gets the
// masked single-line explanation.
func (o *Orchestrator) reportFailure(ctx context.Context, err error) {
	clog.FromContext(ctx).Errorf("Run failed: %v", err)

	// The run context may already be past its deadline; reporting gets its
	// own short window.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	thread.BestEffort(ctx, "posting failure comment", func(ctx context.Context) error {
		return o.tracker.Publish(ctx, o.masker.Mask(fault.UserMessage(err)))
	})
	thread.BestEffort(ctx, "marking run failed", o.tracker.MarkFailed)
}
