// Package git reads the local repository a remote is
// resolved for: the fetch URL of a git remote, the
// checked-out commit and branch, and worktree-relative
// file paths.
package git
