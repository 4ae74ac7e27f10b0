/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the prompt templates the assembler renders. Each value is a
// Go text/template string; see the assemble package for the data fields.
type Prompts struct {
	Issue         string `yaml:"issue"`
	PullRequest   string `yaml:"pull_request"`
	ReviewComment string `yaml:"review_comment"`
	CreateIssues  string `yaml:"create_issues"`
}

const (
	defaultIssuePrompt = "{{.Title}}{{if .Request}}\n\n{{.Request}}{{end}}"

	defaultPullRequestPrompt = "{{.Title}}{{if .Request}}\n\n{{.Request}}{{end}}"

	defaultReviewCommentPrompt = "{{.Title}}\n\nA reviewer commented on `{{.Path}}`.{{if .Request}}\n\n{{.Request}}{{end}}"

	defaultCreateIssuesPrompt = "{{.Request}}\n\n" +
		"Do not edit any files. Instead, respond with a JSON array of issues to file. " +
		"Each element must be an object with string fields \"title\" and \"body\". " +
		"Respond with only the JSON array."
)

// DefaultPrompts returns the compiled-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Issue:         defaultIssuePrompt,
		PullRequest:   defaultPullRequestPrompt,
		ReviewComment: defaultReviewCommentPrompt,
		CreateIssues:  defaultCreateIssuesPrompt,
	}
}

// LoadPrompts returns the defaults merged with any overrides from the YAML
// file at path. An empty path returns the defaults unchanged; empty fields
// in the file keep their defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing prompts file: %w", err)
	}

	if overrides.Issue != "" {
		prompts.Issue = overrides.Issue
	}
	if overrides.PullRequest != "" {
		prompts.PullRequest = overrides.PullRequest
	}
	if overrides.ReviewComment != "" {
		prompts.ReviewComment = overrides.ReviewComment
	}
	if overrides.CreateIssues != "" {
		prompts.CreateIssues = overrides.CreateIssues
	}
	return prompts, nil
}
