package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/example/textbookhub/pkg/apperr"
	"github.com/example/textbookhub/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by every access token.
type Claims struct {
	IdentityID string `json:"identity_id"`
	SchoolID   string `json:"school_id,omitempty"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// TokenBlacklist is the externally-owned store of revoked token IDs.
// Entries expire together with the token they revoke.
type TokenBlacklist interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Manager struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	blacklist TokenBlacklist
}

func NewManager(cfg *config.JWTConfig, blacklist TokenBlacklist) *Manager {
	return &Manager{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
		blacklist: blacklist,
	}
}

// Issue mints an access token for the given identity.
func (m *Manager) Issue(identityID, schoolID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		IdentityID: identityID,
		SchoolID:   schoolID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identityID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and consults the blacklist.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.CodeInvalidCredential, "invalid or expired token", err)
	}

	if m.blacklist != nil && claims.ID != "" {
		revoked, err := m.blacklist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, apperr.New(apperr.CodeInvalidCredential, "token has been revoked")
		}
	}

	return claims, nil
}

// Revoke blacklists the token for the remainder of its lifetime.
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.Verify(ctx, tokenString)
	if err != nil {
		return err
	}
	if m.blacklist == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return m.blacklist.RevokeToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}
