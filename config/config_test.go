/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chainguard.dev/codewright/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("WEBHOOK_PAYLOAD_PATH", "/tmp/payload.json")
	t.Setenv("GITHUB_TOKEN", "ghp_testtoken")
	t.Setenv("RUN_BUDGET", "90s")
	t.Setenv("AGENT_ENV", "OPENAI_API_KEY:sk-agent-key")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/codex", cfg.TriggerPhrase)
	assert.Equal(t, 90*time.Second, cfg.RunBudget)
	assert.Equal(t, 2*time.Minute, cfg.PublishReserve)
	assert.Equal(t, "codex", cfg.AgentCommand)
	assert.Equal(t, "codewright", cfg.Identity)

	secrets := cfg.Secrets()
	assert.Contains(t, secrets, "ghp_testtoken")
	assert.Contains(t, secrets, "sk-agent-key")
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("WEBHOOK_PAYLOAD_PATH", "")
	t.Setenv("GITHUB_TOKEN", "")

	_, err := Load(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindConfig), "fault kind = %q", fault.KindOf(err))
}

func TestLoadPromptsDefaults(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)

	assert.NotEmpty(t, prompts.Issue)
	assert.NotEmpty(t, prompts.PullRequest)
	assert.NotEmpty(t, prompts.ReviewComment)
	assert.NotEmpty(t, prompts.CreateIssues)
}

func TestLoadPromptsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("issue: |-\n  custom {{.Title}}\n"), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)

	assert.Equal(t, "custom {{.Title}}", prompts.Issue)
	assert.Equal(t, defaultReviewCommentPrompt, prompts.ReviewComment, "unset fields keep defaults")
}

func TestLoadPromptsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml ["), 0o644))

	_, err := LoadPrompts(path)
	assert.Error(t, err)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
