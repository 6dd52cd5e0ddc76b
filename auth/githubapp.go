// Package auth provides platform credential helpers. Personal access tokens
// are passed through config as-is; GitHub App installations mint short-lived
// JWTs here.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// GitHub caps app JWT lifetime at 10 minutes.
const maxAppTokenTTL = 10 * time.Minute

var (
	// ErrInvalidKey indicates the app private key could not be parsed.
	ErrInvalidKey = errors.New("invalid GitHub App private key")

	// ErrMissingAppID indicates no app ID was configured.
	ErrMissingAppID = errors.New("GitHub App ID is required")
)

// AppConfig holds GitHub App credentials.
type AppConfig struct {
	// AppID is the numeric GitHub App identifier.
	AppID string

	// PrivateKeyPEM is the app's RSA private key in PEM form.
	PrivateKeyPEM []byte

	// TokenTTL is the JWT lifetime. Defaults to (and is capped at) 10 minutes.
	TokenTTL time.Duration
}

func (c AppConfig) ttl() time.Duration {
	if c.TokenTTL <= 0 || c.TokenTTL > maxAppTokenTTL {
		return maxAppTokenTTL
	}
	return c.TokenTTL
}

// MintAppJWT creates a signed JWT identifying the GitHub App. The result is
// exchanged by the caller for an installation token via the GitHub API.
func MintAppJWT(cfg AppConfig) (string, error) {
	if cfg.AppID == "" {
		return "", ErrMissingAppID
	}

	key, err := parseKey(cfg.PrivateKeyPEM)
	if err != nil {
		return "", err
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	// Backdate iat by 60s to tolerate clock drift between us and GitHub.
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.AppID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
		ID:        tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app JWT: %w", err)
	}
	return signed, nil
}

// VerifyAppJWT parses and validates a JWT minted by MintAppJWT against the
// app's public key. Used in tests and token introspection tooling.
func VerifyAppJWT(tokenString string, key *rsa.PublicKey) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse app JWT: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("app JWT is not valid")
	}
	return claims, nil
}

func parseKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	if len(pemBytes) == 0 {
		return nil, ErrInvalidKey
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}
