/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package snapshot captures content-hash maps of a workspace and computes
// file-level change sets between them. Capture and Diff share one ignore
// matcher, so additions and deletions stay symmetric: diffing an untouched
// tree against its own capture is always empty.
package snapshot

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// defaultIgnores are excluded from every capture regardless of .gitignore
// content.
var defaultIgnores = []string{".git/", "node_modules/"}

// Snapshot maps POSIX-relative paths of regular, non-ignored files to the
// lowercase hex SHA-256 of their bytes.
type Snapshot map[string]string

// Capture enumerates every regular file under root, excluding the default
// ignore set and any patterns from a .gitignore at root, and hashes each
// file's raw bytes. A file that cannot be read is skipped with a warning and
// does not abort the capture.
func Capture(ctx context.Context, root string) (Snapshot, error) {
	matcher, err := matcherFor(ctx, root)
	if err != nil {
		return nil, err
	}

	log := clog.FromContext(ctx)
	snap := Snapshot{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("walking %s: %w", root, walkErr)
			}
			log.Warnf("Skipping unreadable entry %s: %v", path, walkErr)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		if rel == "." {
			return nil
		}

		posix := filepath.ToSlash(rel)
		parts := strings.Split(posix, "/")

		if d.IsDir() {
			if matcher.Match(parts, true) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || matcher.Match(parts, false) {
			return nil
		}

		sum, err := hashFile(path)
		if err != nil {
			log.Warnf("Skipping unreadable file %s: %v", posix, err)
			return nil
		}
		snap[posix] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Diff recomputes the current listing under root with the same ignore rules
// and returns the set of paths added, modified, or deleted relative to
// previous, sorted for deterministic iteration.
func Diff(ctx context.Context, root string, previous Snapshot) ([]string, error) {
	current, err := Capture(ctx, root)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]struct{})
	for path, sum := range current {
		prev, ok := previous[path]
		if !ok || prev != sum {
			changed[path] = struct{}{}
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			changed[path] = struct{}{}
		}
	}

	out := make([]string, 0, len(changed))
	for path := range changed {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// matcherFor builds the shared ignore matcher: the fixed default set first,
// then patterns from root's .gitignore with standard semantics (wildcards,
// directory anchors, negation).
func matcherFor(ctx context.Context, root string) (gitignore.Matcher, error) {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnores))
	for _, p := range defaultIgnores {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	switch {
	case os.IsNotExist(err):
		// No project ignores.
	case err != nil:
		clog.FromContext(ctx).Warnf("Ignoring unreadable .gitignore: %v", err)
	default:
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading .gitignore: %w", err)
		}
	}

	return gitignore.NewMatcher(patterns), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
