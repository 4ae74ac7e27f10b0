/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package commitmsg

import (
	"context"
	"strings"
	"testing"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{{
		name:    "fix keyword",
		summary: "Fixed the crash when parsing empty config files.",
		want:    "fix: Fixed the crash when parsing empty config files.",
	}, {
		name:    "feature default",
		summary: "Add retry support to the uploader.",
		want:    "feat: Add retry support to the uploader.",
	}, {
		name:    "first line only",
		summary: "Update README examples.\n\nAlso reflowed some paragraphs.",
		want:    "docs: Update README examples.",
	}, {
		name:    "empty summary",
		summary: "",
		want:    "feat: apply automated changes",
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fallback(tc.summary); got != tc.want {
				t.Errorf("Fallback(%q) = %q, want %q", tc.summary, got, tc.want)
			}
		})
	}
}

func TestFallbackAlwaysValid(t *testing.T) {
	summaries := []string{
		"",
		"x",
		strings.Repeat("a very long description of changes ", 20),
		"Fixed everything\nand more\nand more",
	}
	for _, s := range summaries {
		got := Fallback(s)
		if len(got) > MaxHeaderLength {
			t.Errorf("Fallback(%.30q...) = %d chars, want <= %d", s, len(got), MaxHeaderLength)
		}
		if !headerRegex.MatchString(got) {
			t.Errorf("Fallback(%.30q...) = %q, not a conventional header", s, got)
		}
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		summary string
		want    string
	}{
		{"fixed a bug in the scheduler", "fix"},
		{"update the documentation for workers", "docs"},
		{"add tests for the retry path", "test"},
		{"refactor the storage layer", "refactor"},
		{"optimize hot path performance", "perf"},
		{"bump dependencies to latest", "build"},
		{"implement a new export endpoint", "feat"},
		{"", "feat"},
	}
	for _, tc := range tests {
		if got := TypeOf(tc.summary); got != tc.want {
			t.Errorf("TypeOf(%q) = %q, want %q", tc.summary, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Fix the login crash", "fix-the-login-crash"},
		{"[Bug] NPE in /api/users!!", "bug-npe-in-api-users"},
		{"---", "change"},
		{"", "change"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}

	long := Slugify(strings.Repeat("word ", 30))
	if len(long) > 40 {
		t.Errorf("Slugify(long) = %d chars, want <= 40", len(long))
	}
	if strings.HasSuffix(long, "-") || strings.HasPrefix(long, "-") {
		t.Errorf("Slugify(long) = %q, has dangling separator", long)
	}
}

func TestHeaderWithoutAPIKey(t *testing.T) {
	g := NewGenerator("", "claude-3-5-haiku-latest")
	got := g.Header(context.Background(), "fixed the crash on startup")
	if want := "fix: fixed the crash on startup"; got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}
