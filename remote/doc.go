// Package remote models the hosting services behind a git
// remote and the authenticated connection to them.
//
// A Provider turns a Resource (branch, commit, file range,
// comparison, ...) into a forge URL using a URLBuilder, and
// can open or copy that URL. A RichProvider adds an
// authenticated session on top: it resolves the session
// once per instance, remembers the user's opt-in or
// opt-out in workspace and global Stores, disconnects
// after MaxRequestFailures rejected requests and caches
// the pull request associated with each commit.
//
// Rich providers that share an Identity key coordinate
// through a Bus: a disconnect on one instance disconnects
// the others, a connect makes them pick the session up.
//
// Forge-specific URL builders and API clients live in the
// github, gitlab, bitbucket and custom sub-packages; the
// factory sub-package selects one from a git remote URL.
package remote
