/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package trigger parses trigger phrases and boolean command flags out of the
// free text that accompanies webhook events.
package trigger

import "strings"

// Flag names recognized by the parser. Which names are honored depends on the
// invocation context: direct invocations (assignment, PR lifecycle events)
// accept a narrower set than explicit trigger-phrase commands.
const (
	FlagFullHistory  = "full-history"
	FlagCreateIssues = "create-issues"
	FlagNoPR         = "no-pr"
	FlagFixBuild     = "fix-build"
	FlagFetch        = "fetch"
)

var (
	directFlags = map[string]bool{
		FlagFixBuild: true,
		FlagFetch:    true,
	}
	triggerFlags = map[string]bool{
		FlagFullHistory:  true,
		FlagCreateIssues: true,
		FlagNoPR:         true,
		FlagFixBuild:     true,
		FlagFetch:        true,
	}
)

// Command is the result of parsing free text: the consumed boolean flags and
// the remaining prompt text with original token order preserved.
type Command struct {
	Flags  map[string]bool
	Prompt string
}

// Has reports whether the named flag was set.
func (c Command) Has(name string) bool { return c.Flags[name] }

// Empty reports whether the command carries no actionable prompt text.
// Callers treat an empty command as "no-op", not as an error.
func (c Command) Empty() bool { return c.Prompt == "" }

// Parse splits text on whitespace and consumes tokens of the exact form
// --<name> where name is in the context's allowed flag set. All other tokens,
// including unrecognized --x tokens, are preserved verbatim and rejoined with
// single spaces.
func Parse(text string, direct bool) Command {
	allowed := triggerFlags
	if direct {
		allowed = directFlags
	}

	cmd := Command{Flags: make(map[string]bool, len(allowed))}
	for name := range allowed {
		cmd.Flags[name] = false
	}

	var kept []string
	for _, tok := range strings.Fields(text) {
		if name, ok := strings.CutPrefix(tok, "--"); ok && allowed[name] {
			cmd.Flags[name] = true
			continue
		}
		kept = append(kept, tok)
	}

	cmd.Prompt = strings.Join(kept, " ")
	return cmd
}

// Strip locates the trigger phrase in text and returns everything after its
// first occurrence, trimmed. The second return reports whether the phrase was
// present at all. The phrase must stand alone as a token: "/codex" matches
// "/codex fix this" but not "/codexify".
func Strip(text, phrase string) (string, bool) {
	if phrase == "" {
		return "", false
	}
	for i := 0; ; {
		idx := strings.Index(text[i:], phrase)
		if idx < 0 {
			return "", false
		}
		start := i + idx
		end := start + len(phrase)

		beforeOK := start == 0 || isSpace(text[start-1])
		afterOK := end == len(text) || isSpace(text[end])
		if beforeOK && afterOK {
			return strings.TrimSpace(text[end:]), true
		}
		i = end
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
