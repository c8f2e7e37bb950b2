// Package middleware provides logging, metrics, tracing, rate limiting and session token helpers.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token issuer and audience for session tokens.
const (
	TokenIssuer   = "petbuddies-api"
	TokenAudience = "petbuddies-client"
)

// SessionClaims is the payload of a session token. The profile fields let the
// client render the user without an extra request.
type SessionClaims struct {
	Login   string `json:"login"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// SignSessionToken signs claims with HS256.
func SignSessionToken(claims *SessionClaims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewSessionClaims fills the registered claims for a token valid for ttl.
func NewSessionClaims(userID uint, jti string, ttl time.Duration, now time.Time) *SessionClaims {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
}

// ErrNoToken is returned when a request carries no session token.
var ErrNoToken = errors.New("no session token")

// TokenFromRequest reads the session token from the cookie, the Authorization
// header, or (for websocket upgrades) the token query parameter.
func TokenFromRequest(c *fiber.Ctx, cookieName string) (string, error) {
	if v := c.Cookies(cookieName); v != "" {
		return v, nil
	}
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errors.New("invalid authorization header format")
		}
		return token, nil
	}
	if v := c.Query("token"); v != "" {
		return v, nil
	}
	return "", ErrNoToken
}

// ParseSessionToken verifies signature, issuer, audience and expiry.
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
