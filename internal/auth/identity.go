package auth

import "context"

// Identity is the authenticated principal acting on a request.
type Identity struct {
	// Subject owns inventory rows; it is never taken from request input.
	Subject  string
	Username string
	// TokenID and ExpiresAt identify the session for revocation.
	TokenID   string
	ExpiresAt int64
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity installed by the authentication gate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.Subject == "" {
		return Identity{}, false
	}
	return id, true
}
