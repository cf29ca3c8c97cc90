// Package token issues and verifies the bearer credentials that authenticate
// HTTP requests and WebSocket connection upgrades.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken rejects a credential. Expired, malformed, and forged
// credentials are deliberately indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

const signingMethodName = "HS256"

// Identity is the authenticated principal derived from a verified credential.
// The username doubles as the display name shown to message recipients.
type Identity struct {
	ID       string
	Username string
}

// identityClaims is the internal claims type used for JWT parsing.
type identityClaims struct {
	jwt.RegisteredClaims
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Issuer signs and verifies identity tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer. The secret is required; ttl bounds how
// long an issued token stays valid.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token carrying the identity's id and username.
func (i *Issuer) Issue(identity Identity) (string, error) {
	if i == nil {
		return "", errors.New("issuer is not configured")
	}
	userID := strings.TrimSpace(identity.ID)
	username := strings.TrimSpace(identity.Username)
	if userID == "" {
		return "", errors.New("identity id is required")
	}
	if username == "" {
		return "", errors.New("identity username is required")
	}

	now := i.now().UTC()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		ID:       userID,
		Username: username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a credential and returns the identity it carries. Any failure
// yields ErrInvalidToken; callers must not branch on the rejection reason.
func (i *Issuer) Verify(credential string) (Identity, error) {
	if i == nil {
		return Identity{}, errors.New("issuer is not configured")
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, ErrInvalidToken
	}

	var claims identityClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethodName}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	userID := strings.TrimSpace(claims.ID)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	username := strings.TrimSpace(claims.Username)
	if userID == "" || username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: userID, Username: username}, nil
}
