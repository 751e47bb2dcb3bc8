package factory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// ErrUnsupportedURL is returned for remotes that do not
// live on a web-facing host, such as local paths.
var ErrUnsupportedURL = errors.New("unsupported remote url")

// Location is where a git remote lives on the web.
type Location struct {
	// Domain is the host, with a port when the remote
	// uses a non-default HTTP(S) port.
	Domain string
	// Path is the repository path without ".git".
	Path string
	// Protocol is the scheme used for links, "http" or
	// "https".
	Protocol string
}

// ParseURL parses scp-like, ssh, git, http and https
// remote URLs.
func ParseURL(raw string) (Location, error) {
	const errCtx = "parsing remote url"

	ep, err := transport.NewEndpoint(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if ep.Host == "" || ep.Protocol == "file" {
		return Location{}, fmt.Errorf(
			"%s: %s: %w", errCtx, raw, ErrUnsupportedURL,
		)
	}

	loc := Location{
		Domain:   ep.Host,
		Path:     strings.TrimSuffix(strings.Trim(ep.Path, "/"), ".git"),
		Protocol: "https",
	}

	switch ep.Protocol {
	case "http":
		loc.Protocol = "http"
		if ep.Port != 0 && ep.Port != 80 {
			loc.Domain += ":" + strconv.Itoa(ep.Port)
		}
	case "https":
		if ep.Port != 0 && ep.Port != 443 {
			loc.Domain += ":" + strconv.Itoa(ep.Port)
		}
	}

	if loc.Path == "" {
		return Location{}, fmt.Errorf(
			"%s: %s: no repository path", errCtx, raw,
		)
	}

	return loc, nil
}
