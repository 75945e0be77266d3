package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token body issued by the account service. The user id is
// carried in "id"; "sub" is accepted as a fallback.
type Claims struct {
	AccountID string `json:"id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id the token was issued for.
func (c *Claims) UserID() string {
	if c.AccountID != "" {
		return c.AccountID
	}
	return c.Subject
}

// JWTVerifier checks HS256 tokens locally.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier builds a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify parses the token, checks signature and expiry and returns the user id.
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID() == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID(), nil
}

// Issue signs a token for userID. The service itself never issues tokens;
// tests and local tooling do.
func Issue(secret, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := &Claims{
		AccountID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
