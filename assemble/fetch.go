/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assemble

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/jellydator/ttlcache/v3"
)

const (
	fetchTimeout = 30 * time.Second
	// fetchMemoTTL outlives any single run; the cache itself is per-process
	// and a process is one run.
	fetchMemoTTL = time.Hour
	// maxFetchBytes caps each fetched document's contribution to the prompt.
	maxFetchBytes = 256 * 1024
	maxFetchURLs  = 10
)

// urlRegex matches bare http(s) URLs in prose. Trailing punctuation is
// trimmed separately since sentences often end right after a link.
var urlRegex = regexp.MustCompile(`https?://[^\s<>()\[\]]+`)

// fetchReferenced downloads the URLs mentioned in the request text and
// returns a prompt section with their contents. Individual fetch failures
// are logged and skipped; a half-assembled context beats no context.
func (a *Assembler) fetchReferenced(ctx context.Context, text string) string {
	log := clog.FromContext(ctx)

	urls := referencedURLs(text)
	if len(urls) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Referenced pages\n")
	found := false

	for _, u := range urls {
		content, err := a.fetchURL(ctx, u)
		if err != nil {
			log.Warnf("Fetching %s failed, skipping: %v", u, err)
			continue
		}
		found = true
		fmt.Fprintf(&sb, "\n### %s\n%s\n", u, content)
	}

	if !found {
		return ""
	}
	return strings.TrimSpace(sb.String())
}

func referencedURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, u := range urlRegex.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?'\"")
		if seen[u] || isImageURL(u) {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) == maxFetchURLs {
			break
		}
	}
	return urls
}

func (a *Assembler) fetchURL(ctx context.Context, url string) (string, error) {
	if item := a.fetched.Get(url); item != nil {
		return item.Value(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return "", err
	}
	content := string(body)
	if len(body) > maxFetchBytes {
		content = content[:maxFetchBytes] + "\n[truncated]"
	}

	a.fetched.Set(url, content, ttlcache.DefaultTTL)
	return content, nil
}
