package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevokedToken is returned for tokens that were logged out.
	ErrRevokedToken = errors.New("session token revoked")
)

type claims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoker Revoker
	now     func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, revoker Revoker) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  "inventory-keeper",
		revoker: revoker,
		now:     time.Now,
	}, nil
}

// TTL reports how long issued tokens remain valid.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subject and returns it with its expiry.
func (m *TokenManager) Issue(subject, username string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses raw and returns the identity it carries.
func (m *TokenManager) Verify(ctx context.Context, raw string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	revoked, err := m.revoker.IsRevoked(ctx, c.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Identity{}, ErrRevokedToken
	}

	return Identity{
		Subject:   c.Subject,
		Username:  c.Username,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Unix(),
	}, nil
}

// Revoke invalidates the session carried by id until it would have expired.
func (m *TokenManager) Revoke(ctx context.Context, id Identity) error {
	if id.TokenID == "" {
		return nil
	}
	return m.revoker.Revoke(ctx, id.TokenID, time.Unix(id.ExpiresAt, 0))
}
