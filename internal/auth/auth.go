// Package auth verifies access tokens issued by the hosted identity
// provider. Sign-up, sessions and password flows stay with the provider.
package auth

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrMissingToken  = stderrors.New("missing bearer token")
	ErrInvalidToken  = stderrors.New("invalid token")
	ErrNotConfigured = stderrors.New("token verification is not configured")
)

// Claims represents the authorization claims carried by a provider token.
type Claims struct {
	jwt.StandardClaims
	Email       string                 `json:"email,omitempty"`
	Role        string                 `json:"role,omitempty"`
	AppMetadata map[string]interface{} `json:"app_metadata,omitempty"`
}

func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin reports the provider-managed app_metadata role, which users
// cannot edit themselves.
func (c *Claims) IsAdmin() bool {
	role, _ := c.AppMetadata["role"].(string)
	return role == "admin"
}

// Verifier checks HS256 tokens against the provider's shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.secret, nil
}

func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign produces an HS256 token for claims. The provider issues tokens in
// production; this is used by the CLI and tests.
func (v *Verifier) Sign(claims *Claims) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrNotConfigured
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
