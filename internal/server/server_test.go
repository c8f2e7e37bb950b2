package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"petbuddies/internal/cache"
	"petbuddies/internal/config"
	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/service"
	"petbuddies/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:     testSecret,
		CookieName:    "access_token",
		StorageDriver: "memory",
	}
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return srv, db
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	claims := middleware.NewSessionClaims(u.ID, fmt.Sprintf("jti-%d", u.ID), time.Hour, time.Now())
	claims.Login = u.Login
	token, err := middleware.SignSessionToken(claims, testSecret)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func validRegistration(login string) RegisterRequest {
	return RegisterRequest{
		Login:    login,
		Email:    login + "@example.com",
		Password: "Str0ng!Passw0rd",
		Name:     "Anna",
		Surname:  "Nowak",
	}
}

func TestRegisterAndMe(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", validRegistration("anna"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session SessionResponse
	decodeInto(t, resp, &session)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "anna", session.User.Login)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))

	me := doJSON(t, srv, http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, me.StatusCode)
	var body map[string]any
	decodeInto(t, me, &body)
	assert.Equal(t, "anna", body["login"])
	assert.Equal(t, "anna@example.com", body["email"])
	assert.Equal(t, false, body["is_admin"])
}

func TestRegister_Rejections(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, srv, http.MethodPost, "/api/auth/register", "", validRegistration("taken")).StatusCode)

	weak := validRegistration("weakling")
	weak.Password = "short"

	sameEmail := validRegistration("other")
	sameEmail.Email = "taken@example.com"

	tests := []struct {
		name       string
		req        RegisterRequest
		wantStatus int
		wantCode   string
	}{
		{"weak password", weak, http.StatusBadRequest, models.CodeValidation},
		{"duplicate login", validRegistration("taken"), http.StatusConflict, models.CodeConflict},
		{"duplicate email", sameEmail, http.StatusConflict, models.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", tt.req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Code)
		})
	}
}

func TestLogin(t *testing.T) {
	srv, db := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng!Passw0rd"), bcrypt.MinCost)
	require.NoError(t, err)

	member := testutil.CreateUser(t, db, testutil.WithPassword(string(hash)))
	banned := testutil.CreateUser(t, db, testutil.WithPassword(string(hash)), testutil.WithBanned())

	tests := []struct {
		name       string
		identifier string
		password   string
		wantStatus int
	}{
		{"by login", member.Login, "Str0ng!Passw0rd", http.StatusOK},
		{"by email", member.Email, "Str0ng!Passw0rd", http.StatusOK},
		{"wrong password", member.Login, "Wrong!Passw0rd", http.StatusUnauthorized},
		{"unknown user", "nobody", "Str0ng!Passw0rd", http.StatusUnauthorized},
		{"banned", banned.Login, "Str0ng!Passw0rd", http.StatusForbidden},
		{"empty", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
				LoginRequest{Identifier: tt.identifier, Password: tt.password})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				var session SessionResponse
				decodeInto(t, resp, &session)
				assert.Equal(t, member.ID, session.User.ID)
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", validRegistration("leaver"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session SessionResponse
	decodeInto(t, resp, &session)

	require.Equal(t, http.StatusOK,
		doJSON(t, srv, http.MethodPost, "/api/auth/logout", session.Token, nil).StatusCode)

	after := doJSON(t, srv, http.MethodGet, "/api/auth/me", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
}

func TestHealthChecks(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/health/live", "", nil).StatusCode)

	ready := doJSON(t, srv, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, ready.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeInto(t, ready, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	srv, db := newTestServer(t)

	owner := testutil.CreateUser(t, db)
	pet := testutil.CreatePet(t, db, owner.ID)
	sitter := testutil.CreateUser(t, db)
	latecomer := testutil.CreateUser(t, db)
	ownerToken, sitterToken, lateToken := tokenFor(t, owner), tokenFor(t, sitter), tokenFor(t, latecomer)

	w := testutil.FutureWindow()
	created := doJSON(t, srv, http.MethodPost, "/api/posts/", ownerToken, PostRequest{
		StartDate:   w.Start.Format(models.DateLayout),
		EndDate:     w.End.Format(models.DateLayout),
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		Cost:        120,
		Description: "Two walks a day",
		PetIDs:      []uint{pet.ID},
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	var post models.Post
	decodeInto(t, created, &post)
	require.NotZero(t, post.ID)
	postPath := fmt.Sprintf("/api/posts/%d", post.ID)

	statusFor := func(token string) string {
		resp := doJSON(t, srv, http.MethodGet, postPath, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var detail service.PostDetail
		decodeInto(t, resp, &detail)
		return detail.Status
	}
	assert.Equal(t, models.StatusOwn, statusFor(ownerToken))
	assert.Equal(t, models.StatusNone, statusFor(sitterToken))

	own := doJSON(t, srv, http.MethodPost, postPath+"/applications", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, own.StatusCode)

	require.Equal(t, http.StatusOK,
		doJSON(t, srv, http.MethodPost, postPath+"/applications", sitterToken, nil).StatusCode)
	assert.Equal(t, models.StatusApplied, statusFor(sitterToken))

	stranger := doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("%s/applications/%d/accept", postPath, sitter.ID), lateToken, nil)
	assert.Equal(t, http.StatusNotFound, stranger.StatusCode)

	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost,
		fmt.Sprintf("%s/applications/%d/accept", postPath, sitter.ID), ownerToken, nil).StatusCode)
	assert.Equal(t, models.StatusAccepted, statusFor(sitterToken))

	late := doJSON(t, srv, http.MethodPost, postPath+"/applications", lateToken, nil)
	assert.Equal(t, http.StatusNotFound, late.StatusCode)

	applicants := doJSON(t, srv, http.MethodGet, postPath+"/applications", ownerToken, nil)
	require.Equal(t, http.StatusOK, applicants.StatusCode)
	var rows []service.ApplicantItem
	decodeInto(t, applicants, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, sitter.ID, rows[0].UserID)
	assert.Equal(t, models.ApplicantAccepted, rows[0].Status)

	closed := doJSON(t, srv, http.MethodDelete, postPath, ownerToken, nil)
	assert.Equal(t, http.StatusConflict, closed.StatusCode)
}

func TestBannedUserCannotMutate(t *testing.T) {
	srv, db := newTestServer(t)
	banned := testutil.CreateUser(t, db, testutil.WithBanned())
	token := tokenFor(t, banned)

	resp := doJSON(t, srv, http.MethodPost, "/api/pets/", token, CreatePetRequest{
		Name: "Reksio", Type: models.PetTypeDog, Size: models.PetSizeSmall,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil).StatusCode)
}
