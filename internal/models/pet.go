package models

import "time"

// PetType is one of the supported animal kinds.
type PetType string

const (
	PetTypeDog    PetType = "Pies"
	PetTypeCat    PetType = "Kot"
	PetTypeRabbit PetType = "Królik"
	PetTypeParrot PetType = "Papuga"
	PetTypeFerret PetType = "Fretka"
	PetTypeOther  PetType = "Inne"
)

// PetSize is a coarse size bucket.
type PetSize string

const (
	PetSizeSmall  PetSize = "Mały"
	PetSizeMedium PetSize = "Średni"
	PetSizeLarge  PetSize = "Duży"
)

// ValidPetType reports whether t is a known pet type.
func ValidPetType(t PetType) bool {
	switch t {
	case PetTypeDog, PetTypeCat, PetTypeRabbit, PetTypeParrot, PetTypeFerret, PetTypeOther:
		return true
	}
	return false
}

// ValidPetSize reports whether s is a known pet size.
func ValidPetSize(s PetSize) bool {
	switch s {
	case PetSizeSmall, PetSizeMedium, PetSizeLarge:
		return true
	}
	return false
}

// Pet is an animal owned by a user. Deleted pets are kept for history.
type Pet struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Name        string     `gorm:"size:100;not null" json:"pet_name"`
	Type        PetType    `gorm:"size:20;not null" json:"type"`
	Race        string     `gorm:"size:100" json:"race"`
	Size        PetSize    `gorm:"size:20;not null" json:"size"`
	BirthDate   *time.Time `gorm:"type:date" json:"birth_date,omitempty"`
	Description string     `gorm:"type:text" json:"description"`
	IsDeleted   bool       `gorm:"not null;index" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	Photo       *PetPhoto  `gorm:"foreignKey:PetID" json:"-"`

	// PhotoURL is a presigned link filled in by the read models.
	PhotoURL string `gorm:"-" json:"photo,omitempty"`
}

// PetPhoto links a pet to the object key of its photo.
type PetPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PetID     uint      `gorm:"not null;uniqueIndex" json:"pet_id"`
	PhotoName string    `gorm:"size:255;not null" json:"photo_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (PetPhoto) TableName() string {
	return "pet_photos"
}
