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
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chainguard-dev/clog"
)

// ImageDir is where downloaded attachments live, relative to the workspace
// root. It is excluded from the published change set.
const ImageDir = ".codewright/images"

const (
	maxImageBytes = 20 * 1024 * 1024
	maxImages     = 8
)

// markdownImageRegex matches ![alt](url) image embeds.
var markdownImageRegex = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)

// attachmentURLRegex matches GitHub's attachment URLs, which appear both
// inside markdown embeds and bare.
var attachmentURLRegex = regexp.MustCompile(`https://github\.com/user-attachments/assets/[A-Za-z0-9-]+`)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// extractImages downloads image attachments referenced in the prompt into
// the workspace's image directory and rewrites their URLs to local paths.
// Download failures leave the URL in place; the agent just won't see that
// image.
func (a *Assembler) extractImages(ctx context.Context, prompt string) (string, []string) {
	log := clog.FromContext(ctx)

	var local []string
	for _, u := range imageURLs(prompt) {
		if len(local) == maxImages {
			break
		}
		p, err := a.downloadImage(ctx, u, len(local))
		if err != nil {
			log.Warnf("Downloading image %s failed, skipping: %v", u, err)
			continue
		}
		prompt = strings.ReplaceAll(prompt, u, p)
		local = append(local, p)
	}
	return prompt, local
}

func imageURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	for _, m := range markdownImageRegex.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, u := range attachmentURLRegex.FindAllString(text, -1) {
		add(u)
	}
	return urls
}

func isImageURL(u string) bool {
	if attachmentURLRegex.MatchString(u) {
		return true
	}
	return imageExtensions[strings.ToLower(path.Ext(u))]
}

func (a *Assembler) downloadImage(ctx context.Context, url string, index int) (string, error) {
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

	ext := strings.ToLower(path.Ext(url))
	if !imageExtensions[ext] {
		ext = extensionFor(resp.Header.Get("Content-Type"))
	}

	dir := filepath.Join(a.workspaceDir, filepath.FromSlash(ImageDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("image-%d%s", index+1, ext)
	dest := filepath.Join(dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		os.Remove(dest)
		return "", err
	}

	return path.Join(ImageDir, name), nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "image/svg"):
		return ".svg"
	default:
		return ".png"
	}
}
