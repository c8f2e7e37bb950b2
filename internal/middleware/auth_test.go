package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signedToken(t *testing.T, claims *SessionClaims, secret string) string {
	t.Helper()
	token, err := SignSessionToken(claims, secret)
	require.NoError(t, err)
	return token
}

func TestParseSessionToken(t *testing.T) {
	now := time.Now()

	valid := NewSessionClaims(42, "jti-1", time.Hour, now)
	valid.Login = "kasia"

	expired := NewSessionClaims(42, "jti-2", time.Hour, now.Add(-2*time.Hour))

	wrongAudience := NewSessionClaims(42, "jti-3", time.Hour, now)
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}

	badSubject := NewSessionClaims(42, "jti-4", time.Hour, now)
	badSubject.Subject = "abc"

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", signedToken(t, valid, testSecret), false},
		{"expired", signedToken(t, expired, testSecret), true},
		{"wrong secret", signedToken(t, valid, "another-secret-another-secret-1234"), true},
		{"wrong audience", signedToken(t, wrongAudience, testSecret), true},
		{"non numeric subject", signedToken(t, badSubject, testSecret), true},
		{"garbage", "not.a.jwt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseSessionToken(tt.token, testSecret)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, uint(42), id)
			assert.Equal(t, "kasia", claims.Login)
			assert.Equal(t, "jti-1", claims.ID)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/t", func(c *fiber.Ctx) error {
		token, err := TokenFromRequest(c, "access_token")
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(token)
	})

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		target     string
		wantStatus int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: "c"}) }, "/t", http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer b") }, "/t", http.StatusOK},
		{"query", func(r *http.Request) {}, "/t?token=q", http.StatusOK},
		{"basic auth rejected", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcg==") }, "/t", http.StatusUnauthorized},
		{"missing", func(r *http.Request) {}, "/t", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
