// Package commitmsg finds issue and pull request
// references such as "#123", "!45" or "GH-7" in git
// commit messages, so they can be looked up on the forge
// the repository is hosted on. References to other
// repositories are left out.
package commitmsg
