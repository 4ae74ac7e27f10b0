/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agentcli invokes the external coding-agent CLI once per run.

The agent is spawned in its own process group with a hard timeout, so it is
forcibly terminated when its slice of the run budget expires even if the
orchestrator's own deadline race has already moved on. The agent writes
JSON lines to stdout; the final line must be a message object of the form

	{"type": "message", "content": [{"text": "..."}]}

and the run result is that first content block's text. A non-JSON final
line, a non-zero exit, and a timeout are distinct failure modes with
distinct fault kinds.
*/
package agentcli
