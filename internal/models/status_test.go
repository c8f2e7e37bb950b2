package models

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDetailStatus(t *testing.T) {
	t.Parallel()

	post := &Post{ID: 1, UserID: 10, IsActive: true}
	inactive := &Post{ID: 2, UserID: 10, IsActive: false}

	tests := []struct {
		name   string
		post   *Post
		app    *PetCareApplication
		viewer uint
		want   string
	}{
		{"owner", post, nil, 10, StatusOwn},
		{"owner ignores application", post, &PetCareApplication{Accepted: true}, 10, StatusOwn},
		{"no application", post, nil, 20, StatusNone},
		{"accepted", inactive, &PetCareApplication{Accepted: true}, 20, StatusAccepted},
		{"declined", post, &PetCareApplication{Declined: true}, 20, StatusDeclined},
		{"pending", post, &PetCareApplication{}, 20, StatusApplied},
		{"pending on inactive post", inactive, &PetCareApplication{}, 20, StatusApplied},
		{"cancelled", post, &PetCareApplication{Cancelled: true}, 20, StatusCancelled},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetailStatus(tt.post, tt.app, tt.viewer))
		})
	}
}

func TestApplicationListStatus(t *testing.T) {
	t.Parallel()

	active := &Post{IsActive: true}
	inactive := &Post{IsActive: false}

	tests := []struct {
		name string
		post *Post
		app  *PetCareApplication
		want string
	}{
		{"declined", active, &PetCareApplication{Declined: true}, StatusDeclined},
		{"accepted on closed post", inactive, &PetCareApplication{Accepted: true}, StatusAccepted},
		{"waiting", active, &PetCareApplication{}, StatusWaiting},
		{"pending on closed post", inactive, &PetCareApplication{}, StatusCancelled},
		{"cancelled", active, &PetCareApplication{Cancelled: true}, StatusCancelled},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ApplicationListStatus(tt.post, tt.app))
		})
	}
}

func TestOwnerPostStatusAndApplicantLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusAccepted, OwnerPostStatus(&Post{IsActive: false}, true))
	assert.Equal(t, StatusActive, OwnerPostStatus(&Post{IsActive: true}, false))
	assert.Equal(t, StatusCancelled, OwnerPostStatus(&Post{IsActive: false}, false))

	assert.Equal(t, ApplicantAccepted, ApplicantLabel(&PetCareApplication{Accepted: true}))
	assert.Equal(t, ApplicantDeclined, ApplicantLabel(&PetCareApplication{Declined: true}))
	assert.Equal(t, ApplicantPending, ApplicantLabel(&PetCareApplication{}))
}

func TestCanRate(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	post := &Post{ID: 1, EndDate: end, EndTime: "18:30"}
	accepted := &PetCareApplication{Accepted: true}

	tests := []struct {
		name  string
		app   *PetCareApplication
		rated bool
		now   time.Time
		want  bool
	}{
		{"before end", accepted, false, time.Date(2026, 3, 10, 18, 29, 0, 0, time.UTC), false},
		{"exactly at end", accepted, false, time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC), true},
		{"after end", accepted, false, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), true},
		{"already rated", accepted, true, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), false},
		{"no accepted application", nil, false, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), false},
		{"pending application", &PetCareApplication{}, false, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanRate(post, tt.app, tt.rated, tt.now))
		})
	}

	broken := &Post{EndDate: end, EndTime: "late"}
	assert.False(t, CanRate(broken, accepted, false, end.Add(48*time.Hour)))
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewIntegrityError("dup", nil), fiber.StatusNotAcceptable},
		{NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewConflictError("taken"), fiber.StatusConflict},
		{fmt.Errorf("wrapped: %w", NewConflictError("taken")), fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), tt.err.Error())
	}
}

func TestIsIntegrityViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsIntegrityViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsIntegrityViolation(fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated)))
	assert.True(t, IsIntegrityViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsIntegrityViolation(errors.New("UNIQUE constraint failed: pet_cares.post_id")))
	assert.False(t, IsIntegrityViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsIntegrityViolation(nil))
}

func TestRespondWithErrorHidesInternalDetails(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("dsn leaked")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "dsn leaked")
	assert.Contains(t, string(body), CodeInternal)
}
