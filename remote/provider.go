package remote

import (
	"errors"
	"fmt"
	"log/slog"
)

// Pattern: Strategy -- each forge supplies its own
// URLBuilder; resolution, opening and copying stay here.

// URLBuilder builds forge-specific URLs. A builder returns
// an empty string for a resource it cannot link to.
type URLBuilder interface {
	RepoURL() string
	BranchesURL() string
	BranchURL(branch string) string
	CommitURL(sha string) string
	// FileURL links to fileName at sha when set, else at
	// branch when set, else at the default branch. rng
	// may be nil.
	FileURL(
		fileName string,
		branch string,
		sha string,
		rng *Range,
	) string
}

// ComparisonBuilder is implemented by builders whose forge
// has a diff view between two refs.
type ComparisonBuilder interface {
	ComparisonURL(
		base string,
		compare string,
		notation string,
	) string
}

// Opener opens a URI outside the process, typically in a
// browser.
type Opener interface {
	OpenExternal(uri string) bool
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Remote is the capability set shared by simple and rich
// providers.
type Remote interface {
	Identity() Identity
	// HasAPI reports whether the remote supports
	// authenticated rich integrations.
	HasAPI() bool
	ResolveURL(res Resource) (string, bool)
	Open(res Resource) (opened bool, resolved bool)
	Copy(res Resource) error
}

// ErrNoClipboard is returned by Copy when the provider was
// built without a Clipboard.
var ErrNoClipboard = errors.New("no clipboard configured")

// Config holds the settings shared by every provider.
type Config struct {
	// Identity locates the remote.
	Identity Identity
	// Builder builds URLs for the forge.
	Builder URLBuilder
	// Opener is used by Open. Optional.
	Opener Opener
	// Clipboard is used by Copy. Optional.
	Clipboard Clipboard
}

// Provider links resources of a remote without any
// authentication.
type Provider struct {
	ident     Identity
	builder   URLBuilder
	opener    Opener
	clipboard Clipboard
}

var _ Remote = (*Provider)(nil)

// NewProvider validates cfg and returns a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating remote provider"

	if cfg.Identity.Name == "" {
		return nil, fmt.Errorf(
			"%s: name must be set", errCtx,
		)
	}

	if cfg.Identity.Domain == "" {
		return nil, fmt.Errorf(
			"%s: domain must be set", errCtx,
		)
	}

	if cfg.Builder == nil {
		return nil, fmt.Errorf(
			"%s: url builder must be set", errCtx,
		)
	}

	return &Provider{
		ident:     cfg.Identity,
		builder:   cfg.Builder,
		opener:    cfg.Opener,
		clipboard: cfg.Clipboard,
	}, nil
}

// Identity returns the remote identity.
func (p *Provider) Identity() Identity {
	return p.ident
}

// HasAPI is false for plain providers.
func (p *Provider) HasAPI() bool {
	return false
}

// ResolveURL builds the encoded URL of res. The boolean is
// false when the forge cannot link to res.
func (p *Provider) ResolveURL(res Resource) (string, bool) {
	var raw string

	switch r := res.(type) {
	case Branch:
		raw = p.builder.BranchURL(r.Branch)
	case Branches:
		raw = p.builder.BranchesURL()
	case Commit:
		raw = p.builder.CommitURL(r.SHA)
	case Comparison:
		cb, ok := p.builder.(ComparisonBuilder)
		if !ok {
			return "", false
		}

		notation := r.Notation
		if notation == "" {
			notation = "..."
		}

		raw = cb.ComparisonURL(r.Base, r.Compare, notation)
	case File:
		raw = p.builder.FileURL(
			r.FileName, r.BranchOrTag, "", r.Range,
		)
	case Repo:
		raw = p.builder.RepoURL()
	case Revision:
		raw = p.builder.FileURL(
			r.FileName, r.BranchOrTag, r.SHA, r.Range,
		)
	default:
		return "", false
	}

	if raw == "" {
		return "", false
	}

	return EncodeURI(raw), true
}

// Open resolves res and opens it externally. resolved is
// false when no URL could be built, in which case nothing
// is opened.
func (p *Provider) Open(res Resource) (opened bool, resolved bool) {
	u, ok := p.ResolveURL(res)
	if !ok {
		return false, false
	}

	if p.opener == nil {
		slog.Warn(
			"no opener configured",
			"provider", p.ident.Key(),
			"url", u,
		)

		return false, true
	}

	return p.opener.OpenExternal(u), true
}

// Copy resolves res and writes the URL to the clipboard.
// It does nothing when no URL could be built.
func (p *Provider) Copy(res Resource) error {
	const errCtx = "copying remote url"

	u, ok := p.ResolveURL(res)
	if !ok {
		return nil
	}

	if p.clipboard == nil {
		return fmt.Errorf("%s: %w", errCtx, ErrNoClipboard)
	}

	if err := p.clipboard.WriteText(u); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
