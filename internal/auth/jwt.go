// Package auth provides session tokens, password hashing and the HTTP
// middleware that turns a session cookie into a request-scoped identity.
//
// SESSION FLOW:
//  1. POST /auth/login verifies the credentials against the credential store.
//  2. The server signs a JWT holding the account's email, display name and
//     role, and stores it in the HttpOnly "session" cookie.
//  3. On every later request, LoadSession validates the cookie and puts a
//     *model.Session into the request context. Handlers read it from there.
//  4. POST /auth/logout deletes the cookie.
//
// Nothing about a session is kept in server memory, so there is no global
// session state to share between requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/veiculos/internal/model"
)

const (
	issuer = "veiculos-online"

	// DefaultSessionTTL is used when no lifetime is configured.
	DefaultSessionTTL = 12 * time.Hour
)

// TokenService handles JWT creation and validation for sessions.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and session
// lifetime. The secret must be at least 16 characters.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of issued tokens; the session cookie uses the same.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. Subject holds the account email.
type claims struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs a session token for the given identity.
func (s *TokenService) Generate(session *model.Session) (string, error) {
	return s.GenerateWithDuration(session, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to produce expired tokens.
func (s *TokenService) GenerateWithDuration(session *model.Session, d time.Duration) (string, error) {
	if !session.LoggedIn() {
		return "", errors.New("auth: cannot issue a token for an empty session")
	}

	now := time.Now()
	c := claims{
		Name: session.UserName,
		Role: session.UserRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   session.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token and returns the identity it
// carries. Expired, tampered or foreign tokens are rejected.
func (s *TokenService) Validate(tokenStr string) (*model.Session, error) {
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
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if !c.Role.Valid() {
		return nil, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return &model.Session{
		Email:    c.Subject,
		UserName: c.Name,
		UserRole: c.Role,
	}, nil
}
