/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry metrics for run execution: outcome
// counts and run/agent durations. Metric creation degrades gracefully; a
// failed instrument becomes a no-op rather than failing the run.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Runs records metrics for webhook-triggered agent runs.
type Runs struct {
	meter         metric.Meter
	outcomes      metric.Int64Counter
	runDuration   metric.Float64Histogram
	agentDuration metric.Float64Histogram
}

// NewRuns creates a Runs metrics instance on the named meter. The event kind
// and outcome serve as dimensions on the recorded metrics.
func NewRuns(meterName string) *Runs {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	outcomes, err := meter.Int64Counter("codewright.run.outcomes",
		metric.WithDescription("The number of completed runs by outcome"),
		metric.WithUnit("{runs}"))
	if err != nil {
		slog.Warn("Failed to create outcome counter, metrics will be disabled", "error", err, "meter", meterName)
		outcomes = noop.Int64Counter{}
	}

	runDuration, err := meter.Float64Histogram("codewright.run.duration",
		metric.WithDescription("End-to-end run duration"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create run duration histogram, metrics will be disabled", "error", err, "meter", meterName)
		runDuration = noop.Float64Histogram{}
	}

	agentDuration, err := meter.Float64Histogram("codewright.agent.duration",
		metric.WithDescription("Agent CLI invocation duration"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create agent duration histogram, metrics will be disabled", "error", err, "meter", meterName)
		agentDuration = noop.Float64Histogram{}
	}

	return &Runs{
		meter:         meter,
		outcomes:      outcomes,
		runDuration:   runDuration,
		agentDuration: agentDuration,
	}
}

// RecordRun records one completed run with its outcome and duration.
func (r *Runs) RecordRun(ctx context.Context, eventKind, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event", eventKind),
		attribute.String("outcome", outcome),
	)
	r.outcomes.Add(ctx, 1, attrs)
	r.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordAgent records one agent CLI invocation.
func (r *Runs) RecordAgent(ctx context.Context, model string, d time.Duration, failed bool) {
	r.agentDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("failed", failed),
	))
}
