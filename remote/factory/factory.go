package factory

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/byte4ever/gitremote/remote"
	"github.com/byte4ever/gitremote/remote/bitbucket"
	"github.com/byte4ever/gitremote/remote/custom"
	"github.com/byte4ever/gitremote/remote/github"
	"github.com/byte4ever/gitremote/remote/gitlab"
)

// Forge kinds.
const (
	KindGitHub          = "github"
	KindGitLab          = "gitlab"
	KindBitbucketServer = "bitbucket-server"
	KindCustom          = "custom"
)

type forge struct {
	name   string
	scopes []string
}

var forges = map[string]forge{
	KindGitHub: {
		name:   "GitHub",
		scopes: []string{"repo", "read:user", "user:email"},
	},
	KindGitLab: {
		name:   "GitLab",
		scopes: []string{"read_api", "read_user"},
	},
	KindBitbucketServer: {
		name:   "Bitbucket Server",
		scopes: []string{"REPO_READ"},
	},
	KindCustom: {
		name: "Custom",
	},
}

var knownDomains = map[string]string{
	"github.com": KindGitHub,
	"gitlab.com": KindGitLab,
}

// Remote configures a self-hosted forge.
type Remote struct {
	// Domain is matched against the host of the git
	// remote, port included.
	Domain string `yaml:"domain" json:"domain"`
	// Type is one of the Kind constants.
	Type string `yaml:"type" json:"type"`
	// Name overrides the display name of the forge.
	Name string `yaml:"name" json:"name"`
	// Protocol overrides the scheme used for links.
	Protocol string `yaml:"protocol" json:"protocol"`
	// Templates describes the links of a custom forge.
	Templates custom.Templates `yaml:"urls" json:"urls"`
}

// Config holds the settings of a Factory.
type Config struct {
	// Remotes lists self-hosted forges.
	Remotes []Remote
	// Opener and Clipboard are handed to every provider.
	Opener    remote.Opener
	Clipboard remote.Clipboard

	// Sessions enables rich providers. The fields below
	// only apply when it is set.
	Sessions  remote.SessionProvider
	Workspace remote.Store
	Global    remote.Store
	Prompter  remote.Prompter
	Bus       *remote.Bus
	// HTTPClient is used for forge API calls. Optional.
	HTTPClient *http.Client
}

// Factory builds providers for git remote URLs.
type Factory struct {
	cfg     Config
	remotes map[string]Remote
}

// New validates cfg and returns a Factory.
func New(cfg Config) (*Factory, error) {
	const errCtx = "creating provider factory"

	remotes := make(map[string]Remote, len(cfg.Remotes))

	for _, r := range cfg.Remotes {
		if r.Domain == "" {
			return nil, fmt.Errorf(
				"%s: remote domain must be set", errCtx,
			)
		}

		if _, ok := forges[r.Type]; !ok {
			return nil, fmt.Errorf(
				"%s: %s: unknown remote type %q",
				errCtx, r.Domain, r.Type,
			)
		}

		remotes[strings.ToLower(r.Domain)] = r
	}

	if cfg.Sessions != nil &&
		(cfg.Workspace == nil || cfg.Global == nil) {
		return nil, fmt.Errorf(
			"%s: workspace and global stores must be set",
			errCtx,
		)
	}

	return &Factory{cfg: cfg, remotes: remotes}, nil
}

// Identity maps a git remote URL onto a provider
// identity. Configured remotes win over known domains.
func (f *Factory) Identity(rawURL string) (remote.Identity, error) {
	const errCtx = "identifying remote"

	loc, err := ParseURL(rawURL)
	if err != nil {
		return remote.Identity{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	domain := strings.ToLower(loc.Domain)

	id := remote.Identity{
		Domain:   loc.Domain,
		Path:     loc.Path,
		Protocol: loc.Protocol,
	}

	if r, ok := f.remotes[domain]; ok {
		id.ID = r.Type
		id.Name = forges[r.Type].name
		id.Custom = true

		if r.Name != "" {
			id.Name = r.Name
		}

		if r.Protocol != "" {
			id.Protocol = r.Protocol
		}
	} else if kind, ok := knownDomains[domain]; ok {
		id.ID = kind
		id.Name = forges[kind].name
	} else {
		return remote.Identity{}, fmt.Errorf(
			"%s: %s: no provider for %s",
			errCtx, rawURL, loc.Domain,
		)
	}

	if id.ID == KindBitbucketServer {
		id.Path = strings.TrimPrefix(id.Path, "scm/")
	}

	return id, nil
}

// FromURL returns the provider serving the git remote
// rawURL.
func (f *Factory) FromURL(rawURL string) (remote.Remote, error) {
	const errCtx = "building provider"

	id, err := f.Identity(rawURL)
	if err != nil {
		return nil, err
	}

	base := remote.Config{
		Identity:  id,
		Builder:   f.builder(id),
		Opener:    f.cfg.Opener,
		Clipboard: f.cfg.Clipboard,
	}

	api, err := f.api(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if api == nil || f.cfg.Sessions == nil {
		p, err := remote.NewProvider(base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		return p, nil
	}

	p, err := remote.NewRichProvider(remote.RichConfig{
		Config: base,
		API:    api,
		Auth: remote.AuthProvider{
			ID:     AuthProviderID(id),
			Scopes: forges[id.ID].scopes,
		},
		Sessions:  f.cfg.Sessions,
		Workspace: f.cfg.Workspace,
		Global:    f.cfg.Global,
		Prompter:  f.cfg.Prompter,
		Bus:       f.cfg.Bus,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p, nil
}

// AuthProviderID names the credential provider of id:
// the forge kind, qualified by the domain for
// self-hosted forges.
func AuthProviderID(id remote.Identity) string {
	if id.Custom {
		return id.ID + ":" + id.Domain
	}

	return id.ID
}

func (f *Factory) builder(id remote.Identity) remote.URLBuilder {
	switch id.ID {
	case KindGitHub:
		return github.NewBuilder(id)
	case KindGitLab:
		return gitlab.NewBuilder(id)
	case KindBitbucketServer:
		return bitbucket.NewBuilder(id)
	default:
		return custom.NewBuilder(
			id, f.remotes[strings.ToLower(id.Domain)].Templates,
		)
	}
}

// api returns nil for forges without an API.
func (f *Factory) api(id remote.Identity) (remote.API, error) {
	web := id.Protocol
	if web == "" {
		web = "https"
	}

	host := web + "://" + id.Domain
	owner, repo := id.SplitPath()

	switch id.ID {
	case KindGitHub:
		cfg := github.Config{
			RepoOwner:  owner,
			Repo:       repo,
			Name:       id.Name,
			HTTPClient: f.cfg.HTTPClient,
		}

		if id.Custom {
			cfg.APIURL = host + "/api/v3/"
		}

		return github.NewAPI(cfg)
	case KindGitLab:
		return gitlab.NewAPI(gitlab.Config{
			Host:       host,
			Repo:       id.Path,
			Name:       id.Name,
			HTTPClient: f.cfg.HTTPClient,
		})
	case KindBitbucketServer:
		return bitbucket.NewAPI(bitbucket.Config{
			Host:       host,
			Project:    owner,
			Repo:       repo,
			Name:       id.Name,
			HTTPClient: f.cfg.HTTPClient,
		})
	default:
		return nil, nil
	}
}
