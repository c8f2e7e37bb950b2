package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"petbuddies/internal/cache"
	"petbuddies/internal/config"
	"petbuddies/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signTestToken(t *testing.T, userID uint, jti string, mutate func(*middleware.SessionClaims)) string {
	t.Helper()
	claims := middleware.NewSessionClaims(userID, jti, time.Hour, time.Now())
	claims.Login = "tester"
	if mutate != nil {
		mutate(claims)
	}
	token, err := middleware.SignSessionToken(claims, testSecret)
	require.NoError(t, err)
	return token
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{
		config: &config.Config{JWTSecret: testSecret, CookieName: "access_token"},
	}
	app := fiber.New()

	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		userID := c.Locals("userID")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": userID})
	})

	valid := signTestToken(t, 123, "jti-valid", nil)

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		tokenParam     string
		expectedStatus int
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + valid,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Token via Cookie",
			cookie:         valid,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Token via Query Param",
			tokenParam:     valid,
			expectedStatus: http.StatusOK,
		},
		{
			name: "Expired Token",
			authHeader: "Bearer " + signTestToken(t, 123, "jti-expired", func(c *middleware.SessionClaims) {
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid Issuer",
			authHeader: "Bearer " + signTestToken(t, 123, "jti-iss", func(c *middleware.SessionClaims) {
				c.Issuer = "wrong-issuer"
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Invalid Audience",
			authHeader: "Bearer " + signTestToken(t, 123, "jti-aud", func(c *middleware.SessionClaims) {
				c.Audience = jwt.ClaimStrings{"wrong-audience"}
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Non Numeric Subject",
			authHeader: "Bearer " + signTestToken(t, 123, "jti-sub", func(c *middleware.SessionClaims) {
				c.Subject = "abc"
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "BearerTokenOnly",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Wrong Signing Key",
			authHeader: "Bearer " + func() string {
				token, _ := middleware.SignSessionToken(middleware.NewSessionClaims(123, "jti-key", time.Hour, time.Now()), "another-secret")
				return token
			}(),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/protected"
			if tt.tokenParam != "" {
				path += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
			}
		})
	}
}

func TestServer_AuthRequiredRejectsRevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	s := &Server{config: &config.Config{JWTSecret: testSecret, CookieName: "access_token"}}
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token := signTestToken(t, 7, "jti-revoked", nil)
	require.NoError(t, cache.RevokeToken(context.Background(), "jti-revoked", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", decodeError(t, resp).Error)
}
