// Package auth holds session tokens, password hashing, GitHub sign-in and
// the HTTP middleware that turns a token into a *model.Requester.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Thcamm/personal-diary/internal/model"
)

const issuer = "personal-diary"

// ErrTokenExpired is returned by Validate for a well-signed token past its
// expiry, so callers can tell "log in again" apart from garbage.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies session tokens (HS256 JWTs).
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService requires a secret of at least 16 bytes.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is how long a freshly issued token stays valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims carries the username next to the registered claims so a request
// can be attributed without a user lookup.
type claims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// Generate issues a token for the given user. Each token gets a random jti.
func (s *TokenService) Generate(userID, username string) (string, error) {
	now := s.now()
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and expiry of tokenStr and returns
// the requester it was issued to.
func (s *TokenService) Validate(tokenStr string) (*model.Requester, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return &model.Requester{ID: c.Subject, Username: c.Username}, nil
}
