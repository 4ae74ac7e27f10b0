/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package fault defines the error taxonomy for the run pipeline. Every fatal
// failure surfaces to the user as exactly one plain-text explanation derived
// from the fault kind; diagnostic detail stays in the logs.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind partitions pipeline failures by how they are reported.
type Kind string

const (
	// KindConfig is a pre-pipeline configuration failure.
	KindConfig Kind = "configuration"
	// KindParse is a malformed payload or malformed agent output.
	KindParse Kind = "parse"
	// KindGitHost is a source-hosting API failure.
	KindGitHost Kind = "github"
	// KindCLI is a spawn failure or non-zero exit of a child process.
	KindCLI Kind = "cli"
	// KindTimeout is a wall-clock or process budget being exceeded.
	KindTimeout Kind = "timeout"
)

// Error wraps an underlying error with its fault kind and the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a fault of the given kind. Passing a nil err produces an
// error that still carries the kind and operation.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf constructs a fault of the given kind from a format string.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the fault kind of err. Deadline expiry anywhere in the chain
// classifies as KindTimeout even without an explicit wrapper. Errors outside
// the taxonomy report an empty Kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ""
}

// Is reports whether err carries the given fault kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage renders the single plain-text explanation shown to the user for
// a fatal failure. It never includes stack traces or wrapped detail beyond
// the operation name.
func UserMessage(err error) string {
	var fe *Error
	op := "run"
	if errors.As(err, &fe) && fe.Op != "" {
		op = fe.Op
	}

	switch KindOf(err) {
	case KindTimeout:
		return "The run exceeded its time budget and was stopped. Partial work was discarded; re-trigger to retry with a fresh workspace."
	case KindParse:
		return fmt.Sprintf("The run failed because output or input could not be parsed (%s). Re-trigger to retry.", op)
	case KindCLI:
		return fmt.Sprintf("A required command failed (%s). Re-trigger to retry.", op)
	case KindGitHost:
		return fmt.Sprintf("A GitHub API call failed (%s). Re-trigger to retry.", op)
	case KindConfig:
		return "The run could not start due to a configuration problem. Check the deployment configuration."
	default:
		return fmt.Sprintf("The run failed (%s). Re-trigger to retry.", op)
	}
}
