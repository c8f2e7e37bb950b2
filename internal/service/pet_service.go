package service

import (
	"context"
	"strings"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/repository"
	"petbuddies/internal/validation"
)

// PetService manages a user's pets and their photos.
type PetService struct {
	repo   repository.PetRepository
	photos *PhotoService
	now    func() time.Time
}

func NewPetService(repo repository.PetRepository, photos *PhotoService) *PetService {
	return &PetService{repo: repo, photos: photos, now: time.Now}
}

type CreatePetInput struct {
	OwnerID          uint
	Name             string
	Type             models.PetType
	Race             string
	Size             models.PetSize
	BirthDate        string
	Description      string
	Photo            []byte
	PhotoContentType string
}

func (s *PetService) validate(in *CreatePetInput) (*models.Pet, error) {
	pet := &models.Pet{
		UserID:      in.OwnerID,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Race:        strings.TrimSpace(in.Race),
		Size:        in.Size,
		Description: strings.TrimSpace(in.Description),
	}
	if err := validation.ValidateRequired("pet_name", pet.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMaxLength("pet_name", pet.Name, 100); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMaxLength("race", pet.Race, 100); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMaxLength("description", pet.Description, maxProfileDescLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if !models.ValidPetType(pet.Type) {
		return nil, models.NewValidationError("Unknown pet type")
	}
	if !models.ValidPetSize(pet.Size) {
		return nil, models.NewValidationError("Unknown pet size")
	}
	if raw := strings.TrimSpace(in.BirthDate); raw != "" {
		bd, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, models.NewValidationError("birth_date must be in YYYY-MM-DD format")
		}
		if bd.After(s.now()) {
			return nil, models.NewValidationError("birth_date cannot be in the future")
		}
		pet.BirthDate = &bd
	}
	return pet, nil
}

// CreatePet stores a pet and, when given, its photo.
func (s *PetService) CreatePet(ctx context.Context, in CreatePetInput) (*models.Pet, error) {
	pet, err := s.validate(&in)
	if err != nil {
		return nil, err
	}

	var key string
	if len(in.Photo) > 0 {
		if key, err = s.photos.Store(ctx, PhotoKindPet, in.Photo, in.PhotoContentType); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, pet); err != nil {
		s.photos.Remove(ctx, key)
		return nil, err
	}
	if key != "" {
		if _, err := s.repo.ReplacePhoto(ctx, pet.ID, key); err != nil {
			s.photos.Remove(ctx, key)
			return nil, err
		}
		pet.PhotoURL = s.photos.URL(key)
	}
	return pet, nil
}

func (s *PetService) withURL(pet *models.Pet) {
	if pet.Photo != nil {
		pet.PhotoURL = s.photos.URL(pet.Photo.PhotoName)
	}
}

// ListMine returns the owner's live pets.
func (s *PetService) ListMine(ctx context.Context, ownerID uint) ([]models.Pet, error) {
	pets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range pets {
		s.withURL(&pets[i])
	}
	return pets, nil
}

// Get returns one of the owner's live pets.
func (s *PetService) Get(ctx context.Context, id, ownerID uint) (*models.Pet, error) {
	pet, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.withURL(pet)
	return pet, nil
}

// Delete soft-deletes the pet and drops its photo from storage.
func (s *PetService) Delete(ctx context.Context, id, ownerID uint) error {
	if err := s.repo.SoftDelete(ctx, id, ownerID); err != nil {
		return err
	}
	key, err := s.repo.DeletePhoto(ctx, id)
	if err != nil {
		if models.StatusForError(err) == 404 {
			return nil
		}
		return err
	}
	s.photos.Remove(ctx, key)
	return nil
}

// SetPhoto replaces the pet's photo.
func (s *PetService) SetPhoto(ctx context.Context, id, ownerID uint, content []byte, contentType string) (*models.Pet, error) {
	pet, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	key, err := s.photos.Store(ctx, PhotoKindPet, content, contentType)
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.ReplacePhoto(ctx, pet.ID, key)
	if err != nil {
		s.photos.Remove(ctx, key)
		return nil, err
	}
	s.photos.Remove(ctx, previous)
	pet.Photo = &models.PetPhoto{PetID: pet.ID, PhotoName: key}
	pet.PhotoURL = s.photos.URL(key)
	return pet, nil
}
