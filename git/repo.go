package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNoRemote is returned when the repository has no
// remote of the requested name, or it has no URL.
var ErrNoRemote = errors.New("no such remote")

// Repo is an opened local repository.
type Repo struct {
	// Dir is the worktree root.
	Dir string

	repo *gogit.Repository
}

// Open opens the repository enclosing dir, walking up
// parent directories until a .git is found.
func Open(dir string) (*Repo, error) {
	const errCtx = "opening repository"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, err := gogit.PlainOpenWithOptions(
		abs,
		&gogit.PlainOpenOptions{DetectDotGit: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf(
			"%s: worktree: %w", errCtx, err,
		)
	}

	return &Repo{
		Dir:  wt.Filesystem.Root(),
		repo: repo,
	}, nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	const errCtx = "reading remote url"

	rem, err := r.repo.Remote(name)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, name, ErrNoRemote,
		)
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	urls := rem.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, name, ErrNoRemote,
		)
	}

	return urls[0], nil
}

// Head returns the checked-out commit. branch is empty
// when HEAD is detached.
func (r *Repo) Head() (sha string, branch string, err error) {
	const errCtx = "reading head"

	ref, err := r.repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if ref.Name().IsBranch() {
		branch = ref.Name().Short()
	}

	return ref.Hash().String(), branch, nil
}

// RelPath returns path relative to the worktree root,
// slash separated.
func (r *Repo) RelPath(path string) (string, error) {
	const errCtx = "resolving repository path"

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	rel, err := filepath.Rel(r.Dir, abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf(
			"%s: %s is outside %s", errCtx, path, r.Dir,
		)
	}

	return rel, nil
}

// CommitMessage returns the message of the commit rev
// resolves to, a sha, branch, tag or "HEAD".
func (r *Repo) CommitMessage(rev string) (string, error) {
	const errCtx = "reading commit message"

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, rev, err)
	}

	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, rev, err)
	}

	return c.Message, nil
}
