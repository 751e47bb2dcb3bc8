package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/byte4ever/gitremote/config"
	"github.com/byte4ever/gitremote/git"
	"github.com/byte4ever/gitremote/host"
	"github.com/byte4ever/gitremote/remote"
	"github.com/byte4ever/gitremote/remote/factory"
	"github.com/byte4ever/gitremote/store"
)

// app is the wiring shared by the commands: the
// repository, its remote provider and the host services.
type app struct {
	cfg      config.Config
	repo     *git.Repo
	remote   remote.Remote
	sessions *host.KeyringSessions
	prompter *host.TerminalPrompter
}

var errNoAPI = errors.New("remote has no API integration")

func (g *Globals) config() (config.Config, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if g.Remote != "" {
		cfg.Remote = g.Remote
	}

	if g.NonInteractive {
		cfg.Interactive = false
	}

	return cfg, nil
}

func (g *Globals) host(cfg config.Config) (
	*host.KeyringSessions,
	*host.TerminalPrompter,
) {
	prompter := &host.TerminalPrompter{Accessible: cfg.Accessible}

	kc := host.KeyringConfig{Service: cfg.KeyringService}
	if cfg.Interactive {
		kc.Prompt = prompter.PromptToken
	}

	return host.NewKeyringSessions(kc), prompter
}

// open builds the provider of the configured remote of
// the repository enclosing g.Dir.
func (g *Globals) open() (*app, error) {
	const errCtx = "opening remote"

	cfg, err := g.config()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, err := git.Open(g.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	rawURL, err := repo.RemoteURL(cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	workspace, global, err := g.stores(cfg, repo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sessions, prompter := g.host(cfg)

	var opener remote.Opener = host.Browser{}
	if g.opener != nil {
		opener = g.opener
	}

	fc := factory.Config{
		Remotes:   cfg.Remotes,
		Opener:    opener,
		Clipboard: host.Clipboard{},
		Sessions:  sessions,
		Workspace: workspace,
		Global:    global,
	}

	if cfg.Interactive {
		fc.Prompter = prompter
	}

	f, err := factory.New(fc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	r, err := f.FromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &app{
		cfg:      cfg,
		repo:     repo,
		remote:   r,
		sessions: sessions,
		prompter: prompter,
	}, nil
}

func (g *Globals) stores(cfg config.Config, repo *git.Repo) (
	remote.Store,
	remote.Store,
	error,
) {
	if g.Ephemeral {
		return store.NewMemory(), store.NewMemory(), nil
	}

	workspace, err := store.OpenFile(
		cfg.WorkspaceStatePath(filepath.Join(repo.Dir, ".git")),
	)
	if err != nil {
		return nil, nil, err
	}

	global, err := store.OpenFile(cfg.GlobalState)
	if err != nil {
		return nil, nil, err
	}

	return workspace, global, nil
}

func (a *app) Close() {
	if rp, ok := a.remote.(*remote.RichProvider); ok {
		rp.Close()
	}
}

// rich returns the provider when it has an API.
func (a *app) rich() (*remote.RichProvider, error) {
	rp, ok := a.remote.(*remote.RichProvider)
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.remote.Identity().Name, errNoAPI)
	}

	return rp, nil
}

// connected returns the provider once it has a session.
func (a *app) connected(ctx context.Context) (*remote.RichProvider, error) {
	rp, err := a.rich()
	if err != nil {
		return nil, err
	}

	if !rp.IsConnected(ctx) {
		return nil, fmt.Errorf(
			"%s is not connected, run gitremote connect",
			rp.Identity().Name,
		)
	}

	return rp, nil
}
