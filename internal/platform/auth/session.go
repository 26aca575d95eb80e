// Package auth guards the bridge. The host mints a short-lived HS256 session
// token at startup and hands it to the UI surface; every bridge request must
// present it as a bearer token.
package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	Issuer   = "news2-shell"
	Audience = "news2-shell-ui"

	DefaultTTL = 24 * time.Hour
)

// SessionIDKey holds the verified token id on the echo context.
const SessionIDKey = "session_id"

type Claims struct {
	jwt.RegisteredClaims
}

// Session issues and verifies bridge tokens.
type Session struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSession uses secret as the signing key. An empty secret gets a random
// per-process key, so tokens die with the host.
func NewSession(secret []byte, ttl time.Duration) (*Session, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Session{key: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for one UI session.
func (s *Session) Issue() (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			Subject:   "ui",
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and checks signature, issuer, audience and expiry.
func (s *Session) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token. Paths for which
// skip returns true pass through untouched.
func (s *Session) Middleware(skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := s.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}

			c.Set(SessionIDKey, claims.ID)
			return next(c)
		}
	}
}

// PublicPaths lists routes reachable without a token.
var PublicPaths = map[string]bool{
	"/healthz": true,
}

// Skipper returns true for requests whose path should skip authentication.
func Skipper(c echo.Context) bool {
	return PublicPaths[c.Path()] || PublicPaths[c.Request().URL.Path]
}
