package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/byte4ever/gitremote/remote"
)

// worktree is the part of git.Repo resources are built
// from.
type worktree interface {
	Head() (sha string, branch string, err error)
	RelPath(path string) (string, error)
}

// ResourceArgs selects a resource of the remote.
type ResourceArgs struct {
	Kind string   `arg:"" enum:"repo,branches,branch,commit,compare,file,revision" help:"One of ${enum}."`
	Args []string `arg:"" optional:"" help:"branch, sha, base and compare refs, or path and ref."`

	Lines    string `short:"L" help:"Line or line range of a file, e.g. 12 or 12-20."`
	Notation string `default:"..." enum:"..,..." help:"Comparison notation."`
}

var errArgs = errors.New("wrong number of arguments")

func (a ResourceArgs) resource(wt worktree) (remote.Resource, error) {
	const errCtx = "selecting resource"

	arg := func(i int) string {
		if i < len(a.Args) {
			return a.Args[i]
		}

		return ""
	}

	rng, err := parseLines(a.Lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	limit := map[string]int{
		"repo": 0, "branches": 0, "branch": 1, "commit": 1,
		"compare": 2, "file": 2, "revision": 2,
	}[a.Kind]

	if len(a.Args) > limit {
		return nil, fmt.Errorf(
			"%s: %s takes at most %d: %w", errCtx, a.Kind, limit, errArgs,
		)
	}

	switch a.Kind {
	case "repo":
		return remote.Repo{}, nil
	case "branches":
		return remote.Branches{}, nil
	case "compare":
		if len(a.Args) != 2 {
			return nil, fmt.Errorf(
				"%s: compare needs two refs: %w", errCtx, errArgs,
			)
		}

		return remote.Comparison{
			Base:     arg(0),
			Compare:  arg(1),
			Notation: a.Notation,
		}, nil
	}

	sha, branch, err := wt.Head()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	switch a.Kind {
	case "branch":
		if b := arg(0); b != "" {
			branch = b
		}

		if branch == "" {
			return nil, fmt.Errorf(
				"%s: HEAD is detached, name a branch", errCtx,
			)
		}

		return remote.Branch{Branch: branch}, nil
	case "commit":
		if s := arg(0); s != "" {
			sha = s
		}

		return remote.Commit{SHA: sha}, nil
	}

	if len(a.Args) == 0 {
		return nil, fmt.Errorf(
			"%s: %s needs a path: %w", errCtx, a.Kind, errArgs,
		)
	}

	path, err := wt.RelPath(arg(0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if a.Kind == "file" {
		if b := arg(1); b != "" {
			branch = b
		}

		// Detached: fall back to the commit.
		if branch == "" {
			return remote.Revision{
				FileName: path, SHA: sha, Range: rng,
			}, nil
		}

		return remote.File{
			FileName: path, BranchOrTag: branch, Range: rng,
		}, nil
	}

	if s := arg(1); s != "" {
		sha = s
	}

	return remote.Revision{
		FileName:    path,
		SHA:         sha,
		BranchOrTag: branch,
		Range:       rng,
	}, nil
}

// parseLines reads "N" or "N-M"; "" is no range.
func parseLines(s string) (*remote.Range, error) {
	if s == "" {
		return nil, nil
	}

	first, last, isRange := strings.Cut(s, "-")

	start, err := strconv.Atoi(first)
	if err != nil || start < 1 {
		return nil, fmt.Errorf("invalid line %q", s)
	}

	end := start

	if isRange {
		end, err = strconv.Atoi(last)
		if err != nil || end < start {
			return nil, fmt.Errorf("invalid line range %q", s)
		}
	}

	return &remote.Range{Start: start, End: end}, nil
}
