/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scrub masks configured secret values in outbound text. Every
// comment body and log line derived from external process output passes
// through a Masker before emission.
package scrub

import "strings"

const mask = "***"

// minSecretLength guards against masking trivial substrings when a secret is
// misconfigured to something like "a" or an empty value.
const minSecretLength = 4

// Masker replaces known secret values with a fixed mask.
type Masker struct {
	replacer *strings.Replacer
}

// New builds a Masker over the given secret values. Empty and very short
// values are ignored.
func New(secrets ...string) *Masker {
	pairs := make([]string, 0, 2*len(secrets))
	for _, s := range secrets {
		if len(s) < minSecretLength {
			continue
		}
		pairs = append(pairs, s, mask)
	}
	return &Masker{replacer: strings.NewReplacer(pairs...)}
}

// Mask returns text with every configured secret replaced.
func (m *Masker) Mask(text string) string {
	if m == nil || m.replacer == nil {
		return text
	}
	return m.replacer.Replace(text)
}
