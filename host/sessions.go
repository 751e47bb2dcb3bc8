package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"

	"github.com/byte4ever/gitremote/remote"
)

// DefaultService is the keyring service tokens are stored
// under.
const DefaultService = "gitremote"

// TokenPrompt asks the user for an access token. An empty
// token means the user declined.
type TokenPrompt func(
	ctx context.Context,
	providerID string,
) (string, error)

// KeyringConfig holds the settings of KeyringSessions.
type KeyringConfig struct {
	// Service namespaces the keyring entries. Defaults
	// to DefaultService.
	Service string
	// Prompt is used when a session must be created.
	// Without it sessions can only be stored with Store.
	Prompt TokenPrompt
}

// KeyringSessions hands out sessions made of access
// tokens kept in the OS keyring, one per credential
// provider.
//
// Pattern: Strategy -- implements remote.SessionProvider.
type KeyringSessions struct {
	service string
	prompt  TokenPrompt
	changed remote.Emitter[remote.SessionsChanged]
}

var _ remote.SessionProvider = (*KeyringSessions)(nil)

// NewKeyringSessions returns a keyring-backed session
// provider.
func NewKeyringSessions(cfg KeyringConfig) *KeyringSessions {
	service := cfg.Service
	if service == "" {
		service = DefaultService
	}

	return &KeyringSessions{
		service: service,
		prompt:  cfg.Prompt,
	}
}

// RequestSession returns the stored session of
// providerID. When none is stored and opts.CreateIfNone
// is set, the user is asked for a token, which is then
// stored.
func (k *KeyringSessions) RequestSession(
	ctx context.Context,
	providerID string,
	scopes []string,
	opts remote.SessionOptions,
) (*remote.Session, error) {
	const errCtx = "requesting session"

	token, err := keyring.Get(k.service, providerID)

	switch {
	case err == nil:
		return k.session(providerID, token, scopes), nil
	case !errors.Is(err, keyring.ErrNotFound):
		return nil, fmt.Errorf("%s: %s: %w", errCtx, providerID, err)
	case !opts.CreateIfNone:
		return nil, nil
	}

	if k.prompt == nil {
		return nil, fmt.Errorf(
			"%s: %s: no way to sign in", errCtx, providerID,
		)
	}

	token, err = k.prompt(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if token == "" {
		return nil, fmt.Errorf(
			"%s: %s: %s to login",
			errCtx, providerID, remote.ConsentRevokedMessage,
		)
	}

	if err := keyring.Set(k.service, providerID, token); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, providerID, err)
	}

	slog.Info("signed in", "provider", providerID)

	return k.session(providerID, token, scopes), nil
}

// OnSessionsChanged subscribes fn to Store and Remove.
func (k *KeyringSessions) OnSessionsChanged(
	fn func(remote.SessionsChanged),
) func() {
	return k.changed.Subscribe(fn)
}

// Store saves token as the session of providerID.
func (k *KeyringSessions) Store(providerID string, token string) error {
	const errCtx = "storing session"

	if token == "" {
		return fmt.Errorf("%s: token must be set", errCtx)
	}

	if err := keyring.Set(k.service, providerID, token); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, providerID, err)
	}

	k.changed.Fire(remote.SessionsChanged{ProviderID: providerID})

	return nil
}

// Remove deletes the session of providerID. Removing a
// missing session is not an error.
func (k *KeyringSessions) Remove(providerID string) error {
	const errCtx = "removing session"

	err := keyring.Delete(k.service, providerID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, providerID, err)
	}

	k.changed.Fire(remote.SessionsChanged{ProviderID: providerID})

	return nil
}

func (k *KeyringSessions) session(
	providerID string,
	token string,
	scopes []string,
) *remote.Session {
	return &remote.Session{
		ID:          providerID,
		AccessToken: token,
		Account: remote.SessionAccount{
			ID:    providerID,
			Label: providerID,
		},
		Scopes: scopes,
	}
}
