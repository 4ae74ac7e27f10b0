/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package commitmsg produces Conventional Commits headers for agent-authored
// changes, with a model-backed generator and a deterministic fallback.
package commitmsg

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
)

// MaxHeaderLength is the hard cap on a generated commit header.
const MaxHeaderLength = 100

// ConventionalPrefixes lists valid conventional commit types.
var ConventionalPrefixes = []string{
	"feat", "fix", "docs", "style", "refactor",
	"perf", "test", "build", "ci", "chore", "revert",
}

// headerRegex matches headers like "feat: add new feature" or "fix(scope): bug fix".
var headerRegex = regexp.MustCompile(`^(` + strings.Join(ConventionalPrefixes, "|") + `)(\(.+\))?:\s+.+`)

// generateTimeout bounds the model call so commit creation never stalls a run.
const generateTimeout = 30 * time.Second

const systemPrompt = `You write git commit messages. Given a summary of code ` +
	`changes, respond with a single Conventional Commits header line of at most ` +
	`100 characters, for example "fix(parser): handle empty input". Respond with ` +
	`the header only, no explanation.`

// Generator produces commit headers from change summaries.
type Generator struct {
	client anthropic.Client
	model  anthropic.Model

	// enabled is false when no API key was configured; Header then goes
	// straight to the fallback.
	enabled bool
}

// NewGenerator returns a Generator backed by the Anthropic API. An empty
// apiKey yields a generator that only uses the deterministic fallback.
func NewGenerator(apiKey, model string) *Generator {
	g := &Generator{model: anthropic.Model(model)}
	if apiKey == "" {
		return g
	}
	g.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	g.enabled = true
	return g
}

// Header returns a Conventional Commits header describing the change. The
// model result is validated against the conventional format and the length
// cap; any failure falls back to a deterministic header built from the
// summary, so Header never returns an error.
func (g *Generator) Header(ctx context.Context, summary string) string {
	log := clog.FromContext(ctx)

	if g.enabled {
		ctx, cancel := context.WithTimeout(ctx, generateTimeout)
		defer cancel()

		header, err := g.generate(ctx, summary)
		switch {
		case err != nil:
			log.Warnf("commit header generation failed, using fallback: %v", err)
		case !headerRegex.MatchString(header) || len(header) > MaxHeaderLength:
			log.Warnf("generated commit header %q is not a valid conventional header, using fallback", header)
		default:
			return header
		}
	}

	return Fallback(summary)
}

func (g *Generator) generate(ctx context.Context, summary string) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 128,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(summary),
			},
		}},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	header, _, _ := strings.Cut(strings.TrimSpace(text.String()), "\n")
	return strings.TrimSpace(header), nil
}

// Fallback builds a commit header from the summary without any model call:
// the classified type plus the summary's first line, truncated to fit.
func Fallback(summary string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(summary), "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		first = "apply automated changes"
	}

	header := TypeOf(summary) + ": " + first
	if len(header) > MaxHeaderLength {
		header = header[:MaxHeaderLength]
		if i := strings.LastIndexByte(header, ' '); i > MaxHeaderLength/2 {
			header = header[:i]
		}
	}
	return header
}

// typeKeywords maps summary keywords to commit types, checked in order so
// that more specific types win over the generic ones.
var typeKeywords = []struct {
	commitType string
	words      []string
}{
	{"fix", []string{"fix", "fixes", "fixed", "bug", "crash", "regression", "broken"}},
	{"docs", []string{"doc", "docs", "documentation", "readme", "comment"}},
	{"test", []string{"test", "tests", "coverage", "flake", "flaky"}},
	{"refactor", []string{"refactor", "rename", "restructure", "cleanup", "simplify"}},
	{"perf", []string{"perf", "performance", "optimize", "slow", "speed"}},
	{"ci", []string{"ci", "pipeline", "workflow", "action"}},
	{"build", []string{"build", "dependency", "dependencies", "upgrade", "bump"}},
	{"chore", []string{"chore", "lint", "format", "typo"}},
}

// TypeOf classifies a change summary into a conventional commit type.
// Summaries that match no keyword default to "feat".
func TypeOf(summary string) string {
	words := strings.FieldsFunc(strings.ToLower(summary), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}

	for _, tk := range typeKeywords {
		for _, w := range tk.words {
			if seen[w] {
				return tk.commitType
			}
		}
	}
	return "feat"
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify reduces a title to a short lowercase branch-name fragment.
func Slugify(title string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
		slug = strings.TrimRight(slug, "-")
		if i := strings.LastIndexByte(slug, '-'); i > 20 {
			slug = slug[:i]
		}
	}
	if slug == "" {
		slug = "change"
	}
	return slug
}
