package repository

import (
	"context"
	"errors"
	"strings"

	"petbuddies/internal/cache"
	"petbuddies/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingSummary is a user's average rating.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// ProfileUpdate holds the editable profile columns.
type ProfileUpdate struct {
	Name            string
	Surname         string
	City            string
	PostalCode      string
	Street          string
	HouseNumber     string
	ApartmentNumber string
	PhoneNumber     string
	Description     string
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByLoginOrEmail(ctx context.Context, identifier string) (*models.User, error)
	Taken(ctx context.Context, login, email string) (loginTaken, emailTaken bool, err error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) error
	SetAdmin(ctx context.Context, id uint, admin bool) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	GetPhoto(ctx context.Context, userID uint) (*models.UserPhoto, error)
	// ReplacePhoto stores photoName for the user and returns the previous name, if any.
	ReplacePhoto(ctx context.Context, userID uint, photoName string) (string, error)
	RatingSummary(ctx context.Context, userID uint) (RatingSummary, error)
	ListRatings(ctx context.Context, userID uint) ([]models.UserRating, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByLoginOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var user models.User
	err := r.db.WithContext(ctx).
		Where("login = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "User", identifier)
	}
	return &user, nil
}

func (r *userRepository) Taken(ctx context.Context, login, email string) (bool, bool, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Select("login", "email").
		Where("login = ? OR email = ?", login, email).
		Find(&rows).Error
	if err != nil {
		return false, false, models.NewInternalError(err)
	}
	var loginTaken, emailTaken bool
	for _, u := range rows {
		loginTaken = loginTaken || u.Login == login
		emailTaken = emailTaken || u.Email == email
	}
	return loginTaken, emailTaken, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if models.IsIntegrityViolation(err) {
			return models.NewConflictError("Login or email already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":             in.Name,
		"surname":          in.Surname,
		"city":             in.City,
		"postal_code":      in.PostalCode,
		"street":           in.Street,
		"house_number":     in.HouseNumber,
		"apartment_number": in.ApartmentNumber,
		"phone_number":     in.PhoneNumber,
		"description":      in.Description,
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	if err := readDB(r.db).WithContext(ctx).Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return admins, nil
}

func (r *userRepository) GetPhoto(ctx context.Context, userID uint) (*models.UserPhoto, error) {
	var photo models.UserPhoto
	err := readDB(r.db).WithContext(ctx).Where("user_id = ?", userID).First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &photo, nil
}

func (r *userRepository) ReplacePhoto(ctx context.Context, userID uint, photoName string) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserPhoto
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.UserPhoto{UserID: userID, PhotoName: photoName}).Error
		case err != nil:
			return err
		}
		previous = existing.PhotoName
		return tx.Model(&existing).Update("photo_name", photoName).Error
	})
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return previous, nil
}

// RatingSummary is cached because every post detail and profile view needs it.
func (r *userRepository) RatingSummary(ctx context.Context, userID uint) (RatingSummary, error) {
	var summary RatingSummary
	err := cache.Aside(ctx, cache.UserRatingKey(userID), &summary, cache.UserRatingTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Model(&models.UserRating{}).
			Select("COALESCE(AVG(star_number), 0) AS average, COUNT(*) AS count").
			Where("user_id = ?", userID).
			Scan(&summary).Error
	})
	if err != nil {
		return RatingSummary{}, models.NewInternalError(err)
	}
	return summary, nil
}

// ListRatings returns ratings received by the user, newest first, with their authors.
func (r *userRepository) ListRatings(ctx context.Context, userID uint) ([]models.UserRating, error) {
	var ratings []models.UserRating
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}
