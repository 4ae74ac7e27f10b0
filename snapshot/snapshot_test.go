/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCaptureKnownHash(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "abc")

	snap, err := Capture(context.Background(), root)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := snap["a.txt"]; got != want {
		t.Fatalf("hash = %s, want %s", got, want)
	}
	if len(snap) != 1 {
		t.Fatalf("snapshot = %v", snap)
	}
}

func TestCaptureIgnores(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/main.go", "package main")
	write(t, root, ".git/config", "noise")
	write(t, root, "node_modules/pkg/index.js", "noise")
	write(t, root, "build/out.bin", "artifact")
	write(t, root, "keep/build.txt", "kept")
	write(t, root, ".gitignore", "build/\n*.log\n!important.log\n")
	write(t, root, "debug.log", "noise")
	write(t, root, "important.log", "kept")

	snap, err := Capture(context.Background(), root)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	wantPaths := map[string]bool{
		".gitignore":     true,
		"src/main.go":    true,
		"keep/build.txt": true,
		"important.log":  true,
	}
	for path := range snap {
		if !wantPaths[path] {
			t.Errorf("unexpected path captured: %s", path)
		}
	}
	for path := range wantPaths {
		if _, ok := snap[path]; !ok {
			t.Errorf("missing path: %s", path)
		}
	}
}

func TestDiffUntouchedTreeIsEmpty(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "abc")
	write(t, root, "dir/b.txt", "def")
	write(t, root, ".gitignore", "*.tmp\n")
	write(t, root, "scratch.tmp", "ignored both sides")

	ctx := context.Background()
	snap, err := Capture(ctx, root)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	changed, err := Diff(ctx, root, snap)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("Diff of untouched tree = %v, want empty", changed)
	}
}

func TestDiffAddModifyDelete(t *testing.T) {
	root := t.TempDir()
	write(t, root, "stays.txt", "same")
	write(t, root, "changes.txt", "old")
	write(t, root, "goes.txt", "bye")

	ctx := context.Background()
	snap, err := Capture(ctx, root)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	write(t, root, "changes.txt", "new")
	write(t, root, "arrives.txt", "hi")
	if err := os.Remove(filepath.Join(root, "goes.txt")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	changed, err := Diff(ctx, root, snap)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	want := []string{"arrives.txt", "changes.txt", "goes.txt"}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Fatalf("Diff mismatch (-want +got):\n%s", diff)
	}
}

// A delete+add of the same logical file reports both paths, never a rename.
func TestDiffRenameIsDeletePlusAdd(t *testing.T) {
	root := t.TempDir()
	write(t, root, "old-name.txt", "content")

	ctx := context.Background()
	snap, err := Capture(ctx, root)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if err := os.Rename(filepath.Join(root, "old-name.txt"), filepath.Join(root, "new-name.txt")); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	changed, err := Diff(ctx, root, snap)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}

	want := []string{"new-name.txt", "old-name.txt"}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Fatalf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureMissingRoot(t *testing.T) {
	_, err := Capture(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
