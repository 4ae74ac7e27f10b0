/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads process configuration from the environment and prompt
// templates from an optional YAML file.
package config

import (
	"context"
	"time"

	"chainguard.dev/codewright/fault"
	"github.com/sethvargo/go-envconfig"
)

// Config is the per-invocation configuration. One webhook delivery is one
// process invocation, so everything here is immutable for the run.
type Config struct {
	// PayloadPath points at the JSON webhook payload for this invocation.
	PayloadPath string `env:"WEBHOOK_PAYLOAD_PATH,required"`

	// GitHubToken authenticates every REST, GraphQL, and git operation.
	GitHubToken string `env:"GITHUB_TOKEN,required"`

	// TriggerPhrase must prefix free text to invoke the pipeline.
	TriggerPhrase string `env:"TRIGGER_PHRASE,default=/codex"`

	// Identity is the commit author name and the tracking-comment signature.
	Identity string `env:"BOT_IDENTITY,default=codewright"`

	// RunBudget is the wall-clock budget for the post-checkout pipeline.
	RunBudget time.Duration `env:"RUN_BUDGET,default=25m"`

	// PublishReserve is held back from the agent's slice of the budget so
	// publication can still complete after a slow agent run.
	PublishReserve time.Duration `env:"PUBLISH_RESERVE,default=2m"`

	// AgentCommand is the coding-agent CLI executable.
	AgentCommand string `env:"AGENT_COMMAND,default=codex"`

	// AgentModel is passed through to the agent CLI.
	AgentModel string `env:"AGENT_MODEL"`

	// AgentEnv carries API-key environment variables for the agent child
	// process, e.g. "OPENAI_API_KEY:sk-...". Values are treated as secrets.
	AgentEnv map[string]string `env:"AGENT_ENV"`

	// AnthropicAPIKey enables the LLM-backed commit-message generator.
	// Empty disables it; the deterministic fallback is used instead.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// CommitModel is the model used for commit-message generation.
	CommitModel string `env:"COMMIT_MESSAGE_MODEL,default=claude-3-5-haiku-latest"`

	// WorkspaceDir is the checkout location; empty uses a fresh temp dir.
	WorkspaceDir string `env:"WORKSPACE_DIR"`

	// PromptsPath optionally overrides the compiled-in prompt templates.
	PromptsPath string `env:"PROMPTS_PATH"`
}

// Load processes the environment into a Config. Any failure is a fatal
// pre-pipeline configuration fault.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fault.New(fault.KindConfig, "load config", err)
	}
	return &cfg, nil
}

// Secrets returns every configured secret value, for scrubbing outbound
// text.
func (c *Config) Secrets() []string {
	out := []string{c.GitHubToken, c.AnthropicAPIKey}
	for _, v := range c.AgentEnv {
		out = append(out, v)
	}
	return out
}
