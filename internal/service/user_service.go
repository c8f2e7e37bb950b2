package service

import (
	"context"
	"strings"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/repository"
	"petbuddies/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
	petRepo  repository.PetRepository
	photos   *PhotoService
}

type UpdateProfileInput struct {
	UserID          uint
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

// RatingView is a received rating as shown on a profile.
type RatingView struct {
	AuthorID      uint      `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorSurname string    `json:"author_surname"`
	StarNumber    int       `json:"star_number"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
}

// PublicProfile is what other users see about a user.
type PublicProfile struct {
	User      *models.User             `json:"user"`
	PhotoURL  string                   `json:"photo,omitempty"`
	Rating    repository.RatingSummary `json:"rating"`
	Ratings   []RatingView             `json:"ratings"`
	Pets      []models.Pet             `json:"pets"`
	CanReport bool                     `json:"can_report"`
}

func NewUserService(userRepo repository.UserRepository, petRepo repository.PetRepository, photos *PhotoService) *UserService {
	return &UserService{userRepo: userRepo, petRepo: petRepo, photos: photos}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	clean := repository.ProfileUpdate{
		Name:            strings.TrimSpace(in.Name),
		Surname:         strings.TrimSpace(in.Surname),
		City:            strings.TrimSpace(in.City),
		PostalCode:      strings.TrimSpace(in.PostalCode),
		Street:          strings.TrimSpace(in.Street),
		HouseNumber:     strings.TrimSpace(in.HouseNumber),
		ApartmentNumber: strings.TrimSpace(in.ApartmentNumber),
		PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
		Description:     strings.TrimSpace(in.Description),
	}

	if err := validation.ValidateRequired("name", clean.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateRequired("surname", clean.Surname); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if clean.PostalCode != "" {
		if err := validation.ValidatePostalCode(clean.PostalCode); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if err := validation.ValidatePhone(clean.PhoneNumber); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	for _, f := range []struct {
		name, value string
		max         int
	}{
		{"name", clean.Name, 100},
		{"surname", clean.Surname, 100},
		{"city", clean.City, 100},
		{"street", clean.Street, 100},
		{"house_number", clean.HouseNumber, 10},
		{"apartment_number", clean.ApartmentNumber, 10},
		{"description", clean.Description, maxProfileDescLen},
	} {
		if err := validation.ValidateMaxLength(f.name, f.value, f.max); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, in.UserID, clean); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, in.UserID)
}

// SetPhoto replaces the user's profile photo and returns its URL.
func (s *UserService) SetPhoto(ctx context.Context, userID uint, content []byte, contentType string) (string, error) {
	key, err := s.photos.Store(ctx, PhotoKindUser, content, contentType)
	if err != nil {
		return "", err
	}
	previous, err := s.userRepo.ReplacePhoto(ctx, userID, key)
	if err != nil {
		s.photos.Remove(ctx, key)
		return "", err
	}
	s.photos.Remove(ctx, previous)
	return s.photos.URL(key), nil
}

// PhotoURL returns the presigned URL of the user's photo, or "".
func (s *UserService) PhotoURL(ctx context.Context, userID uint) (string, error) {
	photo, err := s.userRepo.GetPhoto(ctx, userID)
	if err != nil || photo == nil {
		return "", err
	}
	return s.photos.URL(photo.PhotoName), nil
}

// PublicProfile assembles the profile of userID as seen by viewerID.
func (s *UserService) PublicProfile(ctx context.Context, userID, viewerID uint) (*PublicProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	photoURL, err := s.PhotoURL(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.userRepo.RatingSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.userRepo.ListRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	pets, err := s.petRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]RatingView, 0, len(ratings))
	for _, r := range ratings {
		views = append(views, RatingView{
			AuthorID:      r.AuthorID,
			AuthorName:    r.Author.Name,
			AuthorSurname: r.Author.Surname,
			StarNumber:    r.StarNumber,
			Description:   r.Description,
			Date:          r.CreatedAt,
		})
	}
	for i := range pets {
		if pets[i].Photo != nil {
			pets[i].PhotoURL = s.photos.URL(pets[i].Photo.PhotoName)
		}
	}

	return &PublicProfile{
		User:      user,
		PhotoURL:  photoURL,
		Rating:    summary,
		Ratings:   views,
		Pets:      pets,
		CanReport: viewerID != userID,
	}, nil
}

func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	if err := s.userRepo.SetAdmin(ctx, targetID, isAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListAdmins(ctx)
}
