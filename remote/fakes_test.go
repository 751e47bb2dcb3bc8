package remote_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitremote/remote"
)

// stubBuilder links resources under base the way a
// GitHub-like forge does.
type stubBuilder struct {
	base string
}

func (b stubBuilder) RepoURL() string     { return b.base }
func (b stubBuilder) BranchesURL() string { return b.base + "/branches" }

func (b stubBuilder) BranchURL(branch string) string {
	return b.base + "/commits/" + branch
}

func (b stubBuilder) CommitURL(sha string) string {
	return b.base + "/commit/" + sha
}

func (b stubBuilder) FileURL(
	fileName string,
	branch string,
	sha string,
	rng *remote.Range,
) string {
	line := ""
	if rng != nil {
		line = fmt.Sprintf("#L%d", rng.Start)
		if !rng.IsSingleLine() {
			line += fmt.Sprintf("-L%d", rng.End)
		}
	}

	switch {
	case sha != "":
		return b.base + "/blob/" + sha + "/" + fileName + line
	case branch != "":
		return b.base + "/blob/" + branch + "/" + fileName + line
	default:
		return b.base + "?path=" + fileName + line
	}
}

// compareBuilder adds a diff view to stubBuilder.
type compareBuilder struct {
	stubBuilder
}

func (b compareBuilder) ComparisonURL(
	base string,
	compare string,
	notation string,
) string {
	return b.base + "/compare/" + base + notation + compare
}

// memStore is an in-memory remote.Store counting writes.
type memStore struct {
	mu     sync.Mutex
	values map[string]any
	writes int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]any)}
}

func (s *memStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]

	return v, ok
}

func (s *memStore) Update(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++

	if value == nil {
		delete(s.values, key)

		return nil
	}

	s.values[key] = value

	return nil
}

func (s *memStore) snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

// fakeSessions hands out sessions through respond and
// counts requests. When gate is set, requests block until
// it is closed.
type fakeSessions struct {
	mu      sync.Mutex
	calls   int
	creates int
	respond func(remote.SessionOptions) (*remote.Session, error)
	gate    chan struct{}
	changed remote.Emitter[remote.SessionsChanged]
}

func (f *fakeSessions) RequestSession(
	_ context.Context,
	_ string,
	_ []string,
	opts remote.SessionOptions,
) (*remote.Session, error) {
	f.mu.Lock()
	f.calls++
	if opts.CreateIfNone {
		f.creates++
	}
	gate, respond := f.gate, f.respond
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if respond == nil {
		return nil, nil
	}

	return respond(opts)
}

func (f *fakeSessions) OnSessionsChanged(
	fn func(remote.SessionsChanged),
) func() {
	return f.changed.Subscribe(fn)
}

func (f *fakeSessions) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func (f *fakeSessions) setRespond(
	fn func(remote.SessionOptions) (*remote.Session, error),
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.respond = fn
}

var testSession = &remote.Session{
	ID:          "s1",
	AccessToken: "tok",
	Account:     remote.SessionAccount{ID: "1", Label: "octocat"},
}

// always returns s for every request.
func always(
	s *remote.Session,
) func(remote.SessionOptions) (*remote.Session, error) {
	return func(remote.SessionOptions) (*remote.Session, error) {
		return s, nil
	}
}

// fakeAPI delegates to optional functions and counts
// calls per method.
type fakeAPI struct {
	accountForCommit func(string) (*remote.Account, error)
	prForCommit      func(string) (*remote.PullRequest, error)

	accountCalls atomic.Int32
	prCalls      atomic.Int32
}

func (a *fakeAPI) AccountForCommit(
	_ context.Context,
	_ *remote.Session,
	ref string,
	_ remote.AccountOptions,
) (*remote.Account, error) {
	a.accountCalls.Add(1)

	if a.accountForCommit == nil {
		return nil, nil
	}

	return a.accountForCommit(ref)
}

func (a *fakeAPI) AccountForEmail(
	context.Context,
	*remote.Session,
	string,
	remote.AccountOptions,
) (*remote.Account, error) {
	return nil, nil
}

func (a *fakeAPI) IssueOrPullRequest(
	context.Context,
	*remote.Session,
	string,
) (*remote.IssueOrPullRequest, error) {
	return nil, nil
}

func (a *fakeAPI) PullRequestForBranch(
	context.Context,
	*remote.Session,
	string,
	remote.PullRequestForBranchOptions,
) (*remote.PullRequest, error) {
	return nil, nil
}

func (a *fakeAPI) PullRequestForCommit(
	_ context.Context,
	_ *remote.Session,
	ref string,
) (*remote.PullRequest, error) {
	a.prCalls.Add(1)

	if a.prForCommit == nil {
		return nil, nil
	}

	return a.prForCommit(ref)
}

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) ShowInformationMessage(
	_ context.Context,
	text string,
	buttons ...string,
) (string, error) {
	args := m.Called(text, buttons)

	return args.String(0), args.Error(1)
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) OpenExternal(uri string) bool {
	return m.Called(uri).Bool(0)
}

type mockClipboard struct {
	mock.Mock
}

func (m *mockClipboard) WriteText(text string) error {
	return m.Called(text).Error(0)
}

// busRecorder collects every change seen on a bus.
type busRecorder struct {
	mu      sync.Mutex
	changes []remote.ConnectionChange
}

func recordBus(t *testing.T, bus *remote.Bus) *busRecorder {
	t.Helper()

	r := &busRecorder{}
	t.Cleanup(bus.Subscribe(func(c remote.ConnectionChange) {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.changes = append(r.changes, c)
	}))

	return r
}

func (r *busRecorder) all() []remote.ConnectionChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]remote.ConnectionChange(nil), r.changes...)
}

// fixture is a rich provider wired to fakes.
type fixture struct {
	p         *remote.RichProvider
	sessions  *fakeSessions
	api       *fakeAPI
	workspace *memStore
	global    *memStore
	bus       *remote.Bus
	prompter  *mockPrompter
	changes   *atomic.Int32
}

type fixtureOption func(*remote.RichConfig)

func withPrompter(m *mockPrompter) fixtureOption {
	return func(c *remote.RichConfig) { c.Prompter = m }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		sessions:  &fakeSessions{},
		api:       &fakeAPI{},
		workspace: newMemStore(),
		global:    newMemStore(),
		bus:       remote.NewBus(),
		changes:   &atomic.Int32{},
	}

	cfg := remote.RichConfig{
		Config: remote.Config{
			Identity: remote.Identity{
				ID:     "github",
				Name:   "GitHub",
				Domain: "github.com",
				Path:   "org/repo",
			},
			Builder: compareBuilder{
				stubBuilder{base: "https://github.com/org/repo"},
			},
		},
		API:       f.api,
		Auth:      remote.AuthProvider{ID: "github"},
		Sessions:  f.sessions,
		Workspace: f.workspace,
		Global:    f.global,
		Bus:       f.bus,
	}

	for _, o := range opts {
		o(&cfg)
	}

	if m, ok := cfg.Prompter.(*mockPrompter); ok {
		f.prompter = m
	}

	p, err := remote.NewRichProvider(cfg)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	t.Cleanup(p.OnDidChange(func() { f.changes.Add(1) }))

	f.p = p

	return f
}

// connect makes the provider pick up a session without
// prompting.
func (f *fixture) connect(t *testing.T) {
	t.Helper()

	f.sessions.setRespond(always(testSession))
	require.True(t, f.p.IsConnected(context.Background()))
}

const (
	key      = "GitHub"
	testWait = time.Second
	testTick = 5 * time.Millisecond
)

func connectedKey() string {
	return remote.ConnectedKeyPrefixForTest + key
}

func deniedKey() string {
	return remote.DeniedKeyPrefixForTest + key
}
