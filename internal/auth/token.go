// ABOUTME: JWT minting and verification for the OAuth compatibility endpoints
// ABOUTME: Uses HS256 signing with a configurable shared secret

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenIssuer mints bearer tokens for registered clients.
type TokenIssuer interface {
	Issue(clientID string) (token string, expiresIn time.Duration, err error)
}

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	Verify(tokenString string) (clientID string, err error)
}

// Authority both issues and verifies tokens. The transport layer depends on
// this interface so an external OAuth provider could replace JWTAuthority.
type Authority interface {
	TokenIssuer
	TokenVerifier
}

// JWTAuthority issues and verifies HS256 signed JWTs.
type JWTAuthority struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTAuthority creates an authority with the given secret. A zero ttl
// falls back to DefaultTokenTTL.
func NewJWTAuthority(secret []byte, ttl time.Duration) *JWTAuthority {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTAuthority{secret: secret, ttl: ttl}
}

// Issue creates a new JWT for the given client ID. An empty client ID
// gets a fresh anonymous identity.
func (a *JWTAuthority) Issue(clientID string) (string, time.Duration, error) {
	if clientID == "" {
		clientID = "anon-" + uuid.New().String()
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": clientID,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, a.ttl, nil
}

// Verify validates the token and extracts the client ID from the "sub" claim
func (a *JWTAuthority) Verify(tokenString string) (clientID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}
