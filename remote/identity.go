package remote

import "strings"

// Identity describes where a remote lives and which kind
// of provider serves it.
type Identity struct {
	// ID is the provider kind (e.g. "github").
	ID string
	// Name is the display name. Custom remotes may
	// override the provider default.
	Name string
	// Domain is the host, with an optional port.
	Domain string
	// Path is the repository path on the host
	// (e.g. "org/repo").
	Path string
	// Protocol is the URL scheme used to build links.
	// Empty means "https".
	Protocol string
	// Custom marks a remote configured by the user on a
	// non-default domain.
	Custom bool
}

// Key namespaces persisted state and bus notifications.
// Custom remotes are further qualified by their domain
// so two self-hosted instances never share state.
func (i Identity) Key() string {
	if i.Custom {
		return i.Name + ":" + i.Domain
	}

	return i.Name
}

// BaseURL returns protocol://domain/path.
func (i Identity) BaseURL() string {
	protocol := i.Protocol
	if protocol == "" {
		protocol = "https"
	}

	return protocol + "://" + i.Domain + "/" +
		strings.Trim(i.Path, "/")
}

// SplitPath splits Path at its first slash into owner
// and repository name.
func (i Identity) SplitPath() (owner string, repo string) {
	p := strings.Trim(i.Path, "/")

	idx := strings.Index(p, "/")
	if idx < 0 {
		return "", p
	}

	return p[:idx], p[idx+1:]
}
