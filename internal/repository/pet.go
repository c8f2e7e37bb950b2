package repository

import (
	"context"
	"errors"

	"petbuddies/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PetRepository defines persistence operations for pets and their photos.
type PetRepository interface {
	Create(ctx context.Context, pet *models.Pet) error
	GetOwned(ctx context.Context, id, ownerID uint) (*models.Pet, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Pet, error)
	// CountOwned reports how many of ids are live pets of ownerID.
	CountOwned(ctx context.Context, ownerID uint, ids []uint) (int64, error)
	SoftDelete(ctx context.Context, id, ownerID uint) error
	ReplacePhoto(ctx context.Context, petID uint, photoName string) (string, error)
	DeletePhoto(ctx context.Context, petID uint) (string, error)
}

type petRepository struct {
	db *gorm.DB
}

// NewPetRepository returns a new PetRepository implementation.
func NewPetRepository(db *gorm.DB) PetRepository {
	return &petRepository{db: db}
}

func (r *petRepository) Create(ctx context.Context, pet *models.Pet) error {
	if err := r.db.WithContext(ctx).Create(pet).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetOwned hides pets of other users and deleted pets behind the same NotFound.
func (r *petRepository) GetOwned(ctx context.Context, id, ownerID uint) (*models.Pet, error) {
	var pet models.Pet
	err := readDB(r.db).WithContext(ctx).
		Preload("Photo").
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, ownerID, false).
		First(&pet).Error
	if err != nil {
		return nil, notFoundOr(err, "Pet", id)
	}
	return &pet, nil
}

func (r *petRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Pet, error) {
	var pets []models.Pet
	err := readDB(r.db).WithContext(ctx).
		Preload("Photo").
		Where("user_id = ? AND is_deleted = ?", ownerID, false).
		Order("name").
		Find(&pets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pets, nil
}

func (r *petRepository) CountOwned(ctx context.Context, ownerID uint, ids []uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Pet{}).
		Where("id IN ? AND user_id = ? AND is_deleted = ?", ids, ownerID, false).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *petRepository) SoftDelete(ctx context.Context, id, ownerID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Pet{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, ownerID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Pet", id)
	}
	return nil
}

func (r *petRepository) ReplacePhoto(ctx context.Context, petID uint, photoName string) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PetPhoto
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("pet_id = ?", petID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.PetPhoto{PetID: petID, PhotoName: photoName}).Error
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

// DeletePhoto removes the photo row and returns its object key.
func (r *petRepository) DeletePhoto(ctx context.Context, petID uint) (string, error) {
	var photo models.PetPhoto
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pet_id = ?", petID).First(&photo).Error; err != nil {
			return err
		}
		return tx.Delete(&photo).Error
	})
	if err != nil {
		return "", notFoundOr(err, "Pet photo", petID)
	}
	return photo.PhotoName, nil
}
