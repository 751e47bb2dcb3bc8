package host_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/byte4ever/gitremote/host"
	"github.com/byte4ever/gitremote/remote"
)

// newSessions isolates each test under its own keyring
// service. The mock keyring is not safe for concurrent
// use, so these tests do not run in parallel.
func newSessions(t *testing.T, prompt host.TokenPrompt) *host.KeyringSessions {
	t.Helper()

	service := "gitremote-test-" + t.Name()

	t.Cleanup(func() {
		_ = keyring.DeleteAll(service) //nolint:errcheck
	})

	return host.NewKeyringSessions(host.KeyringConfig{
		Service: service,
		Prompt:  prompt,
	})
}

func tokenPrompt(token string, calls *int) host.TokenPrompt {
	return func(context.Context, string) (string, error) {
		*calls++

		return token, nil
	}
}

func TestKeyringSessions_none_without_create(t *testing.T) {
	calls := 0
	k := newSessions(t, tokenPrompt("tok", &calls))

	s, err := k.RequestSession(
		context.Background(), "github", nil, remote.SessionOptions{},
	)

	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Zero(t, calls)
}

func TestKeyringSessions_create_stores_token(t *testing.T) {
	calls := 0
	k := newSessions(t, tokenPrompt("tok", &calls))
	ctx := context.Background()

	s, err := k.RequestSession(
		ctx, "github", []string{"repo"},
		remote.SessionOptions{CreateIfNone: true},
	)

	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, []string{"repo"}, s.Scopes)

	s, err = k.RequestSession(ctx, "github", nil, remote.SessionOptions{})

	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "tok", s.AccessToken)
	assert.Equal(t, 1, calls)
}

func TestKeyringSessions_declined_login(t *testing.T) {
	calls := 0
	k := newSessions(t, tokenPrompt("", &calls))

	s, err := k.RequestSession(
		context.Background(), "github", nil,
		remote.SessionOptions{CreateIfNone: true},
	)

	assert.Nil(t, s)
	assert.ErrorContains(t, err, remote.ConsentRevokedMessage)
}

func TestKeyringSessions_prompt_error(t *testing.T) {
	errBoom := errors.New("boom")

	k := newSessions(t, func(context.Context, string) (string, error) {
		return "", errBoom
	})

	_, err := k.RequestSession(
		context.Background(), "github", nil,
		remote.SessionOptions{CreateIfNone: true},
	)

	assert.ErrorIs(t, err, errBoom)
}

func TestKeyringSessions_no_prompt(t *testing.T) {
	k := newSessions(t, nil)

	_, err := k.RequestSession(
		context.Background(), "github", nil,
		remote.SessionOptions{CreateIfNone: true},
	)

	assert.ErrorContains(t, err, "no way to sign in")
}

func TestKeyringSessions_store_and_remove_notify(t *testing.T) {
	k := newSessions(t, nil)

	var got []remote.SessionsChanged

	unsub := k.OnSessionsChanged(func(e remote.SessionsChanged) {
		got = append(got, e)
	})
	t.Cleanup(unsub)

	require.NoError(t, k.Store("gitlab", "tok"))

	s, err := k.RequestSession(
		context.Background(), "gitlab", nil, remote.SessionOptions{},
	)
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NoError(t, k.Remove("gitlab"))
	require.NoError(t, k.Remove("gitlab"))

	s, err = k.RequestSession(
		context.Background(), "gitlab", nil, remote.SessionOptions{},
	)
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Equal(t, []remote.SessionsChanged{
		{ProviderID: "gitlab"},
		{ProviderID: "gitlab"},
	}, got)
}

func TestKeyringSessions_store_empty_token(t *testing.T) {
	k := newSessions(t, nil)

	assert.ErrorContains(t, k.Store("gitlab", ""), "token must be set")
}
