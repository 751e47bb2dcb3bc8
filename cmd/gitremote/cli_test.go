package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup creates a repository whose origin is remoteURL
// and a non-interactive configuration keeping state in
// the temp dir. It returns the repository dir, the config
// path and the head sha.
func setup(t *testing.T, remoteURL string, extra string) (
	string,
	string,
	string,
) {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "repo")

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "a.go"), []byte("package a\n"), 0o600,
	))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add("a.go")
	require.NoError(t, err)

	hash, err := wt.Commit("init", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	cfg := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"interactive: false\n"+
			"keyringService: gitremote-cli-test\n"+
			"workspaceState: "+filepath.Join(root, "ws.json")+"\n"+
			"globalState: "+filepath.Join(root, "global.yaml")+"\n"+
			extra,
	), 0o600))

	return dir, cfg, hash.String()
}

// stubOpener records the opened URL and reports ok.
type stubOpener struct {
	ok     bool
	opened string
}

func (o *stubOpener) OpenExternal(uri string) bool {
	o.opened = uri

	return o.ok
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return executeWith(t, &stubOpener{ok: true}, args...)
}

func executeWith(
	t *testing.T,
	opener *stubOpener,
	args ...string,
) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cli := CLI{Globals: Globals{out: &out, opener: opener}}

	parser, err := newParser(context.Background(), &cli)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	err = kctx.Run(&cli.Globals)

	return out.String(), err
}

func TestURL_github(t *testing.T) {
	t.Parallel()

	dir, cfg, sha := setup(t, "git@github.com:org/repo.git", "")

	out, err := execute(t, "--config", cfg, "--dir", dir, "url", "commit")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/org/repo/commit/"+sha+"\n", out)

	// go-git initialises repositories on master.
	out, err = execute(
		t, "--config", cfg, "--dir", dir,
		"url", "file", filepath.Join(dir, "a.go"), "-L", "3-5",
	)
	require.NoError(t, err)
	assert.Equal(
		t, "https://github.com/org/repo/blob/master/a.go#L3-L5\n", out,
	)
}

func TestURL_custom_remote(t *testing.T) {
	t.Parallel()

	dir, cfg, _ := setup(
		t,
		"https://code.corp.io/team/app.git",
		"remotes:\n"+
			"  - domain: code.corp.io\n"+
			"    type: custom\n"+
			"    name: Corp\n"+
			"    urls:\n"+
			"      repository: ${repo}\n"+
			"      branch: ${repo}/b/${branch}\n",
	)

	out, err := execute(
		t, "--config", cfg, "--dir", dir, "url", "branch", "dev",
	)
	require.NoError(t, err)
	assert.Equal(t, "https://code.corp.io/team/app/b/dev\n", out)

	_, err = execute(t, "--config", cfg, "--dir", dir, "url", "commit")
	assert.ErrorContains(t, err, "Corp cannot link to a commit")
}

func TestStatus_plain_remote(t *testing.T) {
	t.Parallel()

	dir, cfg, _ := setup(
		t,
		"https://code.corp.io/team/app.git",
		"remotes:\n"+
			"  - domain: code.corp.io\n"+
			"    type: custom\n"+
			"    urls:\n"+
			"      repository: ${repo}\n",
	)

	out, err := execute(t, "--config", cfg, "--dir", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "remote: Custom (code.corp.io/team/app)")
	assert.Contains(t, out, "state:  no api")

	_, err = execute(t, "--config", cfg, "--dir", dir, "pr")
	assert.ErrorIs(t, err, errNoAPI)

	out, err = execute(t, "--config", cfg, "--dir", dir, "refs")
	require.NoError(t, err)
	assert.Equal(t, "init\n", out)
}

func TestURL_ephemeral_state(t *testing.T) {
	t.Parallel()

	dir, cfg, _ := setup(t, "git@gitlab.com:group/project.git", "")

	out, err := execute(
		t, "--config", cfg, "--dir", dir, "--ephemeral",
		"url", "branches",
	)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/group/project/-/branches\n", out)

	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "ws.json"))
}

func TestURL_missing_remote(t *testing.T) {
	t.Parallel()

	dir, cfg, _ := setup(t, "git@github.com:org/repo.git", "")

	_, err := execute(
		t, "--config", cfg, "--dir", dir, "--remote", "upstream",
		"url", "repo",
	)
	assert.ErrorContains(t, err, "no such remote")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir, cfg, sha := setup(t, "git@github.com:org/repo.git", "")

	opener := &stubOpener{ok: true}

	_, err := executeWith(
		t, opener, "--config", cfg, "--dir", dir, "open", "commit",
	)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/org/repo/commit/"+sha, opener.opened)
}

func TestOpen_browser_failure(t *testing.T) {
	t.Parallel()

	dir, cfg, _ := setup(t, "git@github.com:org/repo.git", "")

	_, err := executeWith(
		t, &stubOpener{}, "--config", cfg, "--dir", dir, "open", "repo",
	)

	assert.ErrorIs(t, err, errNoBrowser)
	assert.ErrorContains(t, err, "opening resource")
}
