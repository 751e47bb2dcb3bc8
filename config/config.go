package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/gitremote/host"
	"github.com/byte4ever/gitremote/remote/factory"
)

// Config is the gitremote configuration file.
type Config struct {
	// Remote is the git remote to resolve links for.
	Remote string `yaml:"remote"`
	// WorkspaceState is the per-repository state file,
	// relative to the repository .git directory unless
	// absolute.
	WorkspaceState string `yaml:"workspaceState"`
	// GlobalState is the per-user state file.
	GlobalState string `yaml:"globalState"`
	// KeyringService namespaces stored tokens.
	KeyringService string `yaml:"keyringService"`
	// Interactive enables connection prompts.
	Interactive bool `yaml:"interactive"`
	// Accessible renders plain line-based prompts.
	Accessible bool `yaml:"accessible"`
	// Remotes lists self-hosted forges.
	Remotes []factory.Remote `yaml:"remotes"`
}

// Default returns the configuration used when no file
// exists.
func Default() Config {
	global := "gitremote-state.yaml"

	if dir, err := os.UserConfigDir(); err == nil {
		global = filepath.Join(dir, "gitremote", "state.yaml")
	}

	return Config{
		Remote:         "origin",
		WorkspaceState: "gitremote.json",
		GlobalState:    global,
		KeyringService: host.DefaultService,
		Interactive:    true,
	}
}

// DefaultPath returns the per-user configuration file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gitremote.yaml"
	}

	return filepath.Join(dir, "gitremote", "config.yaml")
}

// Load reads the file at path over Default. A missing
// file yields Default.
func Load(path string) (Config, error) {
	const errCtx = "loading config"

	cfg := Default()

	b, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf(
			"%s: %s: %w", errCtx, path, err,
		)
	}

	return cfg, nil
}

// Validate checks the fields Load cannot default.
func (c Config) Validate() error {
	if c.Remote == "" {
		return errors.New("remote must be set")
	}

	if c.WorkspaceState == "" || c.GlobalState == "" {
		return errors.New("state files must be set")
	}

	seen := make(map[string]bool, len(c.Remotes))

	for i, r := range c.Remotes {
		if r.Domain == "" {
			return fmt.Errorf("remotes[%d]: domain must be set", i)
		}

		if seen[r.Domain] {
			return fmt.Errorf(
				"remotes[%d]: duplicate domain %s", i, r.Domain,
			)
		}

		seen[r.Domain] = true

		switch r.Type {
		case factory.KindGitHub, factory.KindGitLab,
			factory.KindBitbucketServer:
		case factory.KindCustom:
			if r.Templates.Repository == "" {
				return fmt.Errorf(
					"remotes[%d]: custom remote needs a repository url",
					i,
				)
			}
		default:
			return fmt.Errorf(
				"remotes[%d]: unknown type %q", i, r.Type,
			)
		}
	}

	return nil
}

// WorkspaceStatePath resolves WorkspaceState against the
// git directory of the repository.
func (c Config) WorkspaceStatePath(gitDir string) string {
	if filepath.IsAbs(c.WorkspaceState) {
		return c.WorkspaceState
	}

	return filepath.Join(gitDir, c.WorkspaceState)
}
