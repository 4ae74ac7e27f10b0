/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package event classifies raw webhook payloads into a closed set of agent
events and resolves them into processed, immutable run inputs.

Classification is total: Classify accepts arbitrary JSON and returns either
exactly one event variant or nil. Payloads are probed defensively through
optional fields, so partial or malformed deliveries never panic; they simply
fail to match. A nil classification is a silent no-op for the caller, not an
error.

The seven variants cover the deliveries this system acts on: issue opened,
issue assigned, issue-comment created, PR-conversation-comment created,
PR-review-comment created, PR opened, and PR synchronized. The structural
predicates are ordered so that at most one can hold for well-formed input;
in particular, a comment on an issue whose issue.pull_request field is set is
a PR-conversation comment, never an issue comment.
*/
package event
