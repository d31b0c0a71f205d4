// Package jwt issues HS256 access tokens and opaque rotating refresh tokens.
package jwt

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "job-garden"

// Config contains token settings.
type Config struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// TokenStore persists refresh tokens and resolves their owners.
type TokenStore interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
}

// Claims are the access token claims.
type Claims struct {
	Role domain.Role `json:"role"`
	gojwt.RegisteredClaims
}

// Authenticator implements identity.Authenticator.
type Authenticator struct {
	cfg   Config
	store TokenStore
	now   func() time.Time
}

// NewAuthenticator creates a JWT authenticator.
func NewAuthenticator(cfg Config, store TokenStore) *Authenticator {
	return &Authenticator{cfg: cfg, store: store, now: time.Now}
}

// Type returns the authenticator type.
func (a *Authenticator) Type() string {
	return "jwt"
}

// GenerateTokens issues a new access token and stores a new refresh token.
func (a *Authenticator) GenerateTokens(ctx context.Context, user *domain.User) (*identity.TokenPair, error) {
	now := a.now()

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(a.cfg.AccessTokenDuration)),
		},
	}

	access, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := a.store.SaveRefreshToken(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(refresh),
		ExpiresAt: now.Add(a.cfg.RefreshTokenDuration),
	}); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &identity.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccessToken verifies signature, issuer and expiry.
func (a *Authenticator) ValidateAccessToken(_ context.Context, token string) (string, domain.Role, error) {
	var claims Claims
	parsed, err := gojwt.ParseWithClaims(token, &claims, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.cfg.SecretKey), nil
	},
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuer(issuer),
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Name}),
		gojwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", "", identity.ErrInvalidToken
	}

	return claims.Subject, claims.Role, nil
}

// RefreshTokens consumes a refresh token and issues a new pair.
// A token can be consumed once; replaying it fails.
func (a *Authenticator) RefreshTokens(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	hash := HashToken(refreshToken)

	stored, err := a.store.GetRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if err := a.store.DeleteRefreshToken(ctx, hash); err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}

	if stored.IsExpired(a.now()) {
		return nil, identity.ErrInvalidToken
	}

	user, err := a.store.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return a.GenerateTokens(ctx, user)
}

// RevokeRefreshToken deletes a refresh token.
func (a *Authenticator) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return a.store.DeleteRefreshToken(ctx, HashToken(refreshToken))
}

// HashToken returns the hex SHA-256 of a refresh token, the form it is stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
