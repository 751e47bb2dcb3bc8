// Package factory turns a git remote URL into a remote
// provider. The host selects the forge: github.com and
// gitlab.com are known, other hosts must be configured.
// With a session provider configured the result is a
// remote.RichProvider.
package factory
