/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentcli

import (
	"strings"

	"chainguard.dev/codewright/fault"
	"github.com/tidwall/gjson"
)

// FinalMessage extracts the result text from the agent's JSON-lines stdout.
// The final non-empty line must be {"type":"message","content":[{"text":...}]};
// anything else is a parse fault distinct from exit-status and timeout
// failures.
func FinalMessage(stdout string) (string, error) {
	line := finalLine(stdout)
	if line == "" {
		return "", fault.Newf(fault.KindParse, "agent output", "agent produced no output")
	}

	if !gjson.Valid(line) {
		return "", fault.Newf(fault.KindParse, "agent output", "final output line is not valid JSON: %.120q", line)
	}

	doc := gjson.Parse(line)
	if typ := doc.Get("type").String(); typ != "message" {
		return "", fault.Newf(fault.KindParse, "agent output", "final output line has type %q, want \"message\"", typ)
	}

	text := doc.Get("content.0.text")
	if !text.Exists() {
		return "", fault.Newf(fault.KindParse, "agent output", "final message has no content text")
	}
	return text.String(), nil
}

func finalLine(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
