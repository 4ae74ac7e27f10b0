/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace manages the run's git checkout: a single-branch clone
// that the agent edits in place, with commit, push, selective revert, and
// diff rendering against the checked-out commit.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainguard.dev/codewright/fault"
	"github.com/aymanbagabas/go-udiff"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

// remoteURL resolves the remote git URL for a repository. Tests can override
// this to point at local filesystem paths.
var remoteURL = defaultRemoteURL

func defaultRemoteURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo)
}

// Workspace is one checked-out repository dedicated to a single run.
type Workspace struct {
	tokenSource oauth2.TokenSource
	identity    string
	dir         string

	repo *git.Repository
	sha  string
}

// New constructs a Workspace rooted at dir. The token source must allow
// cloning and pushing to the targeted repository; identity is used as the
// commit author name (suffixed with @chainguard.dev when it lacks a domain).
func New(tokenSource oauth2.TokenSource, identity, dir string) (*Workspace, error) {
	if tokenSource == nil {
		return nil, errors.New("token source cannot be nil")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	if dir == "" {
		return nil, errors.New("directory cannot be empty")
	}

	return &Workspace{
		tokenSource: tokenSource,
		identity:    identity,
		dir:         dir,
	}, nil
}

// Dir returns the absolute path of the working tree.
func (w *Workspace) Dir() string {
	return w.dir
}

// HeadSHA returns the commit the workspace was checked out at.
func (w *Workspace) HeadSHA() string {
	return w.sha
}

// Checkout wipes the workspace directory and clones the named branch of
// owner/repo into it. The clone is single-branch: the run only ever needs
// the branch it starts from.
func (w *Workspace) Checkout(ctx context.Context, owner, repo, branch string) error {
	if branch == "" {
		return fault.Newf(fault.KindGitHost, "checkout", "branch cannot be empty")
	}

	if err := os.RemoveAll(w.dir); err != nil {
		return fault.New(fault.KindGitHost, "checkout", fmt.Errorf("clearing workspace: %w", err))
	}

	remote := remoteURL(owner, repo)
	clog.FromContext(ctx).Infof("Cloning %s (branch %s) into %s", remote, branch, w.dir)

	auth, err := w.auth()
	if err != nil {
		return fault.New(fault.KindGitHost, "checkout", err)
	}

	r, err := git.PlainCloneContext(ctx, w.dir, false, &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return fault.New(fault.KindGitHost, "checkout", fmt.Errorf("cloning repository: %w", err))
	}

	head, err := r.Head()
	if err != nil {
		return fault.New(fault.KindGitHost, "checkout", fmt.Errorf("resolving HEAD: %w", err))
	}

	w.repo = r
	w.sha = head.Hash().String()
	return nil
}

// CreateBranch creates a branch at the checked-out commit and switches the
// working tree onto it. Uncommitted modifications are kept.
func (w *Workspace) CreateBranch(ctx context.Context, name string) error {
	if name == "" {
		return fault.Newf(fault.KindGitHost, "create branch", "branch name cannot be empty")
	}

	refName := plumbing.NewBranchReferenceName(name)
	ref := plumbing.NewHashReference(refName, plumbing.NewHash(w.sha))
	if err := w.repo.Storer.SetReference(ref); err != nil {
		return fault.New(fault.KindGitHost, "create branch", fmt.Errorf("setting branch reference: %w", err))
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return fault.New(fault.KindGitHost, "create branch", fmt.Errorf("getting worktree: %w", err))
	}

	// Keep: the agent's edits must survive the branch switch.
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: refName, Keep: true}); err != nil {
		return fault.New(fault.KindGitHost, "create branch", fmt.Errorf("checking out branch: %w", err))
	}

	clog.FromContext(ctx).Infof("Created branch %s at %s", name, w.sha)
	return nil
}

// CommitAll stages every change in the working tree and commits it with the
// workspace identity as author.
func (w *Workspace) CommitAll(ctx context.Context, message string) error {
	if message == "" {
		return fault.Newf(fault.KindGitHost, "commit", "commit message cannot be empty")
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return fault.New(fault.KindGitHost, "commit", fmt.Errorf("getting worktree: %w", err))
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fault.New(fault.KindGitHost, "commit", fmt.Errorf("staging changes: %w", err))
	}

	email := w.identity
	if !strings.Contains(email, "@") {
		email = fmt.Sprintf("%s@chainguard.dev", email)
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  w.identity,
			Email: email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fault.New(fault.KindGitHost, "commit", fmt.Errorf("committing: %w", err))
	}

	clog.FromContext(ctx).Infof("Committed %s: %s", commit, firstLine(message))
	return nil
}

// Push pushes the named branch to origin. Force overwrites any remote branch
// of the same name, which is how re-triggered runs replace their earlier
// attempt.
func (w *Workspace) Push(ctx context.Context, branch string, force bool) error {
	log := clog.FromContext(ctx)

	auth, err := w.auth()
	if err != nil {
		return fault.New(fault.KindGitHost, "push", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
	log.Infof("Pushing %s (force=%t)", refSpec, force)

	if err := w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
		Force:      force,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Infof("Branch already up to date")
			return nil
		}
		return fault.New(fault.KindGitHost, "push", fmt.Errorf("pushing: %w", err))
	}
	return nil
}

// Revert restores the given workspace-relative paths to their state at the
// checked-out commit. Paths that did not exist there are removed.
func (w *Workspace) Revert(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	log := clog.FromContext(ctx)

	tree, err := w.headTree()
	if err != nil {
		return fault.New(fault.KindGitHost, "revert", err)
	}

	for _, path := range paths {
		content, found, err := blobContent(tree, path)
		if err != nil {
			return fault.New(fault.KindGitHost, "revert", fmt.Errorf("reading %s at HEAD: %w", path, err))
		}

		fsPath := filepath.Join(w.dir, filepath.FromSlash(path))
		if !found {
			log.Debugf("Reverting %s: removing (absent at HEAD)", path)
			if err := os.RemoveAll(fsPath); err != nil {
				return fault.New(fault.KindGitHost, "revert", fmt.Errorf("removing %s: %w", path, err))
			}
			continue
		}

		log.Debugf("Reverting %s: restoring from HEAD", path)
		if err := os.MkdirAll(filepath.Dir(fsPath), 0o755); err != nil {
			return fault.New(fault.KindGitHost, "revert", fmt.Errorf("restoring %s: %w", path, err))
		}
		if err := os.WriteFile(fsPath, []byte(content), 0o644); err != nil {
			return fault.New(fault.KindGitHost, "revert", fmt.Errorf("restoring %s: %w", path, err))
		}
	}
	return nil
}

// DiffText renders a unified diff of the given workspace-relative paths
// against the checked-out commit, concatenated in the given order.
func (w *Workspace) DiffText(paths []string) (string, error) {
	tree, err := w.headTree()
	if err != nil {
		return "", fault.New(fault.KindGitHost, "diff", err)
	}

	var sb strings.Builder
	for _, path := range paths {
		before, _, err := blobContent(tree, path)
		if err != nil {
			return "", fault.New(fault.KindGitHost, "diff", fmt.Errorf("reading %s at HEAD: %w", path, err))
		}

		after, err := readWorkingFile(filepath.Join(w.dir, filepath.FromSlash(path)))
		if err != nil {
			return "", fault.New(fault.KindGitHost, "diff", fmt.Errorf("reading %s: %w", path, err))
		}

		if before == after {
			continue
		}
		sb.WriteString(udiff.Unified("a/"+path, "b/"+path, before, after))
	}
	return sb.String(), nil
}

func (w *Workspace) headTree() (*object.Tree, error) {
	commit, err := w.repo.CommitObject(plumbing.NewHash(w.sha))
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}
	return tree, nil
}

func blobContent(tree *object.Tree, path string) (string, bool, error) {
	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	content, err := file.Contents()
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

func readWorkingFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (w *Workspace) auth() (*githttp.BasicAuth, error) {
	token, err := w.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
