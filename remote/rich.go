package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// MaxRequestFailures is the number of consecutive rejected
// requests after which a rich provider disconnects.
const MaxRequestFailures = 5

// ConnectionState is the lifecycle state of a rich
// provider's session.
type ConnectionState int

// Connection states.
const (
	// StateUnknown: the session was never resolved.
	StateUnknown ConnectionState = iota
	// StateResolving: a resolution is in flight and no
	// session is cached yet.
	StateResolving
	StateConnected
	// StateDisconnected: resolved to no session, or
	// explicitly disconnected.
	StateDisconnected
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateResolving:
		return "resolving"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "invalid"
	}
}

// Prompt buttons.
const (
	ButtonConnect         = "Connect"
	ButtonNotForWorkspace = "Not for this Workspace"
	ButtonDontAskAgain    = "Don't Ask Again"
	ButtonCancel          = "Cancel"
)

const (
	connectedKeyPrefix = "remotes.connected:"
	deniedKeyPrefix    = "remotes.denied:"
)

type promptKind int

const (
	promptNone promptKind = iota
	promptOptIn
	promptReconnect
)

// RichConfig holds the settings of a RichProvider.
type RichConfig struct {
	Config

	// API fetches accounts, issues and pull requests.
	API API
	// Auth names the credential provider and scopes.
	Auth AuthProvider
	// Sessions hands out authenticated sessions.
	Sessions SessionProvider
	// Workspace stores per-workspace connection flags.
	Workspace Store
	// Global stores flags synced across machines.
	Global Store
	// Prompter asks the user to connect. Optional: no
	// prompt is shown when nil.
	Prompter Prompter
	// Bus coordinates instances sharing an identity key.
	// Nil means DefaultBus.
	Bus *Bus
}

// RichProvider is a Provider with an authenticated session
// and forge API access.
//
// All methods are safe for concurrent use. Session
// resolution is single-flight per instance: overlapping
// callers share one request to the SessionProvider and at
// most one prompt is shown.
type RichProvider struct {
	*Provider

	api       API
	auth      AuthProvider
	sessions  SessionProvider
	workspace Store
	global    Store
	prompter  Prompter
	bus       *Bus

	mu        sync.Mutex
	known     bool
	session   *Session
	resolving bool
	epoch     uint64
	failures  int
	prompted  bool
	pending   promptKind

	prs     *commitCache
	gate    singleflight.Group
	calls   singleflight.Group
	changed Emitter[struct{}]

	closeOnce   sync.Once
	unsubscribe []func()
}

var _ Remote = (*RichProvider)(nil)

// NewRichProvider validates cfg, subscribes to the bus and
// to session changes, and returns a provider in
// StateUnknown. Call Close to unsubscribe.
func NewRichProvider(cfg RichConfig) (*RichProvider, error) {
	const errCtx = "creating rich remote provider"

	base, err := NewProvider(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.API == nil {
		return nil, fmt.Errorf(
			"%s: api must be set", errCtx,
		)
	}

	if cfg.Auth.ID == "" {
		return nil, fmt.Errorf(
			"%s: auth provider id must be set", errCtx,
		)
	}

	if cfg.Sessions == nil {
		return nil, fmt.Errorf(
			"%s: session provider must be set", errCtx,
		)
	}

	if cfg.Workspace == nil || cfg.Global == nil {
		return nil, fmt.Errorf(
			"%s: workspace and global stores must be set",
			errCtx,
		)
	}

	bus := cfg.Bus
	if bus == nil {
		bus = DefaultBus
	}

	p := &RichProvider{
		Provider:  base,
		api:       cfg.API,
		auth:      cfg.Auth,
		sessions:  cfg.Sessions,
		workspace: cfg.Workspace,
		global:    cfg.Global,
		prompter:  cfg.Prompter,
		bus:       bus,
		prs:       newCommitCache(),
	}

	p.unsubscribe = append(
		p.unsubscribe,
		bus.Subscribe(p.onConnectionChanged),
		cfg.Sessions.OnSessionsChanged(p.onSessionsChanged),
	)

	return p, nil
}

// Close unsubscribes the provider from the bus and from
// session changes.
func (p *RichProvider) Close() {
	p.closeOnce.Do(func() {
		for _, fn := range p.unsubscribe {
			fn()
		}
	})
}

// HasAPI is true for rich providers.
func (p *RichProvider) HasAPI() bool {
	return true
}

// OnDidChange registers fn to run whenever the provider
// connects or disconnects, and returns a function
// removing it.
func (p *RichProvider) OnDidChange(fn func()) func() {
	return p.changed.Subscribe(func(struct{}) { fn() })
}

// State returns the current connection state without
// triggering a resolution.
func (p *RichProvider) State() ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.session != nil:
		return StateConnected
	case p.resolving && !p.known:
		return StateResolving
	case p.known:
		return StateDisconnected
	default:
		return StateUnknown
	}
}

// MaybeConnected returns the cached connection status.
// known is false while the session was never resolved.
func (p *RichProvider) MaybeConnected() (connected bool, known bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session != nil, p.known
}

// FailureCount returns the number of consecutive rejected
// requests.
func (p *RichProvider) FailureCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.failures
}

// IsConnected reports whether a session is available. A
// provider that never resolved its session resolves it
// now, without asking the user to sign in.
func (p *RichProvider) IsConnected(ctx context.Context) bool {
	return p.currentSession(ctx) != nil
}

// Connect clears any earlier opt-out and resolves the
// session interactively, letting the session provider ask
// the user to sign in. It reports whether a session
// resulted.
func (p *RichProvider) Connect(ctx context.Context) bool {
	key := p.ident.Key()

	slog.Debug("connecting", "provider", key)

	if err := p.clearDenials(); err != nil {
		slog.Warn(
			"cannot clear connection opt-out",
			"provider", key,
			"error", err,
		)
	}

	s, err := p.ensureSession(ctx, true)
	if err != nil {
		slog.Warn(
			"connect failed",
			"provider", key,
			"error", err,
		)

		return false
	}

	return s != nil
}

// Disconnect drops the session, clears the commit cache,
// remembers the opt-out for the workspace and notifies
// other instances. Disconnecting twice is a no-op.
func (p *RichProvider) Disconnect() {
	p.disconnect(false)
}

// ResetRemoteConnectionAuthorization forgets every
// persisted connect or opt-out decision so the next
// resolution starts from a clean slate. The live session
// is kept.
func (p *RichProvider) ResetRemoteConnectionAuthorization() error {
	const errCtx = "resetting remote connection authorization"

	key := p.ident.Key()

	err := errors.Join(
		p.workspace.Update(connectedKeyPrefix+key, nil),
		p.workspace.Update(deniedKeyPrefix+key, nil),
		p.global.Update(deniedKeyPrefix+key, nil),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// disconnect is Disconnect; silent skips the bus
// notification and is used when reacting to one.
func (p *RichProvider) disconnect(silent bool) {
	key := p.ident.Key()

	p.mu.Lock()
	if p.known && p.session == nil {
		p.mu.Unlock()

		return
	}

	p.epoch++
	p.known = true
	p.session = nil
	p.failures = 0
	p.mu.Unlock()

	p.prs.clear()

	err := errors.Join(
		p.workspace.Update(connectedKeyPrefix+key, nil),
		p.workspace.Update(deniedKeyPrefix+key, true),
	)
	if err != nil {
		slog.Warn(
			"cannot persist disconnect",
			"provider", key,
			"error", err,
		)
	}

	slog.Info(
		"disconnected",
		"provider", key,
		"silent", silent,
	)

	p.changed.Fire(struct{}{})

	if !silent {
		p.bus.Disconnected(key)
	}
}

// currentSession returns the cached session, resolving it
// non-interactively when it was never resolved.
func (p *RichProvider) currentSession(ctx context.Context) *Session {
	p.mu.Lock()
	known, s := p.known, p.session
	p.mu.Unlock()

	if known {
		return s
	}

	s, _ = p.ensureSession(ctx, false)

	return s
}

// ensureSession returns the session, resolving it unless
// one is cached. Overlapping calls share one resolution.
// An interactive caller that joined a silent resolution
// which found no session resolves again interactively.
func (p *RichProvider) ensureSession(
	ctx context.Context,
	create bool,
) (*Session, error) {
	var err error

	for {
		p.mu.Lock()
		if s := p.session; s != nil {
			p.mu.Unlock()

			return s, nil
		}
		p.mu.Unlock()

		ran := false

		_, err, _ = p.gate.Do("ensureSession", func() (any, error) {
			ran = true

			return p.resolveSession(ctx, create)
		})

		if ran || !create || p.hasSession() {
			break
		}

		// The user is connecting: drop the opt-in prompt
		// queued by the silent resolution.
		p.mu.Lock()
		p.pending = promptNone
		p.mu.Unlock()
	}

	// Answering the prompt may have connected.
	p.showPendingPrompt(ctx)

	p.mu.Lock()
	s := p.session
	p.mu.Unlock()

	if s != nil {
		return s, nil
	}

	return nil, err
}

func (p *RichProvider) hasSession() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session != nil
}

func (p *RichProvider) resolveSession(
	ctx context.Context,
	create bool,
) (*Session, error) {
	const errCtx = "resolving session"

	key := p.ident.Key()

	p.mu.Lock()
	if s := p.session; s != nil {
		p.mu.Unlock()

		return s, nil
	}

	p.resolving = true
	epoch := p.epoch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.resolving = false
		p.mu.Unlock()
	}()

	if !create && p.optedOut() {
		slog.Debug(
			"not resolving session, user opted out",
			"provider", key,
		)
		p.settle(epoch, nil)

		return nil, nil
	}

	slog.Debug(
		"requesting session",
		"provider", key,
		"auth", p.auth.ID,
		"create", create,
	)

	s, err := p.sessions.RequestSession(
		ctx,
		p.auth.ID,
		p.auth.Scopes,
		SessionOptions{CreateIfNone: create},
	)
	if err != nil {
		p.settle(epoch, nil)

		if !create {
			if isConsentRevoked(err) {
				p.queuePrompt(promptReconnect)
			} else {
				p.queuePrompt(promptOptIn)
			}
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if s == nil {
		p.settle(epoch, nil)

		if !create {
			p.queuePrompt(promptOptIn)
		}

		return nil, nil
	}

	if !p.settle(epoch, s) {
		slog.Debug(
			"discarding session, disconnected meanwhile",
			"provider", key,
		)

		return nil, nil
	}

	err = errors.Join(
		p.workspace.Update(connectedKeyPrefix+key, true),
		p.workspace.Update(deniedKeyPrefix+key, nil),
		p.global.Update(deniedKeyPrefix+key, nil),
	)
	if err != nil {
		slog.Warn(
			"cannot persist connection",
			"provider", key,
			"error", err,
		)
	}

	slog.Info(
		"connected",
		"provider", key,
		"account", s.Account.Label,
	)

	if create {
		p.changed.Fire(struct{}{})
		p.bus.Connected(key)
	}

	return s, nil
}

// settle caches s (nil meaning no session) unless a
// disconnect happened since the resolution started at
// epoch. It reports whether s was kept.
func (p *RichProvider) settle(epoch uint64, s *Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.epoch != epoch {
		return false
	}

	p.known = true
	p.session = s
	p.failures = 0

	return true
}

// optedOut reports whether the user declined to connect
// and never connected this workspace since.
func (p *RichProvider) optedOut() bool {
	key := p.ident.Key()

	denied := flagSet(p.workspace, deniedKeyPrefix+key) ||
		flagSet(p.global, deniedKeyPrefix+key)

	return denied &&
		!flagSet(p.workspace, connectedKeyPrefix+key)
}

func (p *RichProvider) clearDenials() error {
	key := p.ident.Key()

	return errors.Join(
		p.workspace.Update(deniedKeyPrefix+key, nil),
		p.global.Update(deniedKeyPrefix+key, nil),
	)
}

// queuePrompt records a prompt to show once the current
// resolution settles. Each instance prompts at most once.
func (p *RichProvider) queuePrompt(kind promptKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.prompted {
		return
	}

	p.prompted = true
	p.pending = kind
}

// showPendingPrompt shows the queued prompt, if any. It
// runs outside the resolution gate so that answering
// "Connect" can start a new resolution.
func (p *RichProvider) showPendingPrompt(ctx context.Context) {
	p.mu.Lock()
	kind := p.pending
	p.pending = promptNone
	p.mu.Unlock()

	if kind == promptNone || p.prompter == nil {
		return
	}

	key := p.ident.Key()
	name := p.ident.Name

	var (
		choice string
		err    error
	)

	switch kind {
	case promptReconnect:
		choice, err = p.prompter.ShowInformationMessage(
			ctx,
			name+" is no longer connected. "+
				"Would you like to connect now?",
			ButtonConnect, ButtonCancel,
		)
	default:
		choice, err = p.prompter.ShowInformationMessage(
			ctx,
			"Connect to "+name+" to see pull requests, "+
				"issues and avatars?",
			ButtonConnect, ButtonNotForWorkspace,
			ButtonDontAskAgain,
		)
	}

	if err != nil {
		slog.Warn(
			"cannot show connect prompt",
			"provider", key,
			"error", err,
		)

		return
	}

	switch choice {
	case ButtonConnect:
		p.Connect(ctx)
	case ButtonNotForWorkspace:
		err = p.workspace.Update(deniedKeyPrefix+key, true)
	case ButtonDontAskAgain:
		err = p.global.Update(deniedKeyPrefix+key, true)
	}

	if err != nil {
		slog.Warn(
			"cannot persist connect choice",
			"provider", key,
			"error", err,
		)
	}
}

// onConnectionChanged reacts to another instance with the
// same key connecting or disconnecting.
func (p *RichProvider) onConnectionChanged(e ConnectionChange) {
	if e.Key != p.ident.Key() {
		return
	}

	switch e.Reason {
	case Disconnected:
		p.disconnect(true)
	case Connected:
		_, _ = p.ensureSession(context.Background(), false)
	}
}

// onSessionsChanged disconnects on any change to the
// credential provider, whichever session changed.
func (p *RichProvider) onSessionsChanged(e SessionsChanged) {
	if e.ProviderID != p.auth.ID {
		return
	}

	slog.Debug(
		"sessions changed",
		"provider", p.ident.Key(),
		"auth", e.ProviderID,
	)

	p.disconnect(true)
}
