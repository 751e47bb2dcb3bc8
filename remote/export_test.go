package remote

import "context"

// Exported helpers for the remote_test package.

// ConnectedKeyPrefixForTest is connectedKeyPrefix.
const ConnectedKeyPrefixForTest = connectedKeyPrefix

// DeniedKeyPrefixForTest is deniedKeyPrefix.
const DeniedKeyPrefixForTest = deniedKeyPrefix

// EnsureSessionForTest exposes ensureSession.
func (p *RichProvider) EnsureSessionForTest(
	ctx context.Context,
	create bool,
) (*Session, error) {
	return p.ensureSession(ctx, create)
}

// CachedCommitsForTest returns the number of entries in
// the commit cache.
func (p *RichProvider) CachedCommitsForTest() int {
	return p.prs.len()
}
