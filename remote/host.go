package remote

import "context"

// Session is an authenticated session handed out by a
// SessionProvider.
type Session struct {
	// ID identifies the session within its provider.
	ID string
	// AccessToken authenticates forge API calls.
	AccessToken string
	// Account is the signed-in account.
	Account SessionAccount
	// Scopes granted to the session.
	Scopes []string
}

// SessionAccount names the account a session belongs to.
type SessionAccount struct {
	ID    string
	Label string
}

// SessionOptions tunes RequestSession.
type SessionOptions struct {
	// CreateIfNone asks the user to sign in when no
	// session exists yet.
	CreateIfNone bool
}

// SessionsChanged reports that the sessions of one
// credential provider were added, removed or changed.
type SessionsChanged struct {
	ProviderID string
}

// SessionProvider hands out authenticated sessions.
//
// RequestSession returns (nil, nil) when no session exists
// and CreateIfNone is false. An error whose message
// contains "User did not consent" means the user revoked
// or refused consent.
type SessionProvider interface {
	RequestSession(
		ctx context.Context,
		providerID string,
		scopes []string,
		opts SessionOptions,
	) (*Session, error)
	OnSessionsChanged(
		fn func(SessionsChanged),
	) (unsubscribe func())
}

// Store is a persisted key-value store. Update with a nil
// value deletes the key.
type Store interface {
	Get(key string) (any, bool)
	Update(key string, value any) error
}

// Prompter shows an informational message with buttons
// and returns the label of the chosen one, or "" when the
// message was dismissed.
type Prompter interface {
	ShowInformationMessage(
		ctx context.Context,
		text string,
		buttons ...string,
	) (string, error)
}

// flagSet reports whether key holds boolean true.
func flagSet(s Store, key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}

	b, _ := v.(bool)

	return b
}
