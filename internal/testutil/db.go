package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"petbuddies/internal/database"
	"petbuddies/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// The pool is limited to one connection, so code under test must use the
// transaction handle inside a transaction.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

var seq atomic.Int64

// UserOption customizes CreateUser.
type UserOption func(*models.User)

// WithAdmin marks the user as an administrator.
func WithAdmin() UserOption { return func(u *models.User) { u.IsAdmin = true } }

// WithBanned marks the user as banned.
func WithBanned() UserOption { return func(u *models.User) { u.IsBanned = true } }

// WithoutAddress clears the city and postal code.
func WithoutAddress() UserOption {
	return func(u *models.User) {
		u.City = ""
		u.PostalCode = ""
	}
}

// WithPassword sets the stored password hash.
func WithPassword(hash string) UserOption { return func(u *models.User) { u.Password = hash } }

// CreateUser inserts a user with a unique login and a filled-in address.
func CreateUser(t *testing.T, db *gorm.DB, opts ...UserOption) *models.User {
	t.Helper()
	n := seq.Add(1)
	u := &models.User{
		Login:      fmt.Sprintf("user%d", n),
		Email:      fmt.Sprintf("user%d@example.com", n),
		Password:   "x",
		Name:       "Jan",
		Surname:    fmt.Sprintf("Kowalski%d", n),
		City:       "Kraków",
		PostalCode: "30-001",
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePet inserts a dog owned by ownerID.
func CreatePet(t *testing.T, db *gorm.DB, ownerID uint) *models.Pet {
	t.Helper()
	p := &models.Pet{
		UserID: ownerID,
		Name:   fmt.Sprintf("Burek%d", seq.Add(1)),
		Type:   models.PetTypeDog,
		Size:   models.PetSizeMedium,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return p
}

// PostWindow is the date/time window of a fixture post.
type PostWindow struct {
	Start, End         time.Time
	StartTime, EndTime string
}

// FutureWindow is a window that has not ended yet.
func FutureWindow() PostWindow {
	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	return PostWindow{Start: start, End: start.AddDate(0, 0, 2), StartTime: "09:00", EndTime: "18:00"}
}

// PastWindow is a window that ended yesterday.
func PastWindow() PostWindow {
	start := time.Now().UTC().AddDate(0, 0, -3).Truncate(24 * time.Hour)
	return PostWindow{Start: start, End: start.AddDate(0, 0, 2), StartTime: "09:00", EndTime: "18:00"}
}

// CreatePost inserts an active post for ownerID covering petIDs.
func CreatePost(t *testing.T, db *gorm.DB, ownerID uint, w PostWindow, petIDs ...uint) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:      ownerID,
		StartDate:   w.Start,
		EndDate:     w.End,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		Description: "Opieka nad psem",
		Cost:        120,
		IsActive:    true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	for _, id := range petIDs {
		if err := db.Create(&models.PetCare{PostID: p.ID, PetID: id}).Error; err != nil {
			t.Fatalf("create pet care: %v", err)
		}
	}
	return p
}

// CreateApplication inserts an application in the given state.
func CreateApplication(t *testing.T, db *gorm.DB, postID, userID uint, mutate ...func(*models.PetCareApplication)) *models.PetCareApplication {
	t.Helper()
	a := &models.PetCareApplication{PostID: postID, UserID: userID}
	for _, m := range mutate {
		m(a)
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}
	return a
}

// CreateReportType inserts a report type.
func CreateReportType(t *testing.T, db *gorm.DB, name string) *models.ReportType {
	t.Helper()
	rt := &models.ReportType{Name: name}
	if err := db.Create(rt).Error; err != nil {
		t.Fatalf("create report type: %v", err)
	}
	return rt
}

// Reload re-reads dst by primary key.
func Reload[T any](t *testing.T, db *gorm.DB, id uint) *T {
	t.Helper()
	var out T
	if err := db.First(&out, id).Error; err != nil {
		t.Fatalf("reload %T %d: %v", out, id, err)
	}
	return &out
}
