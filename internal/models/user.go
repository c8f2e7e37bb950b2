// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a registered marketplace member.
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Login           string     `gorm:"size:30;uniqueIndex;not null" json:"login"`
	Email           string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"not null" json:"-"`
	Name            string     `gorm:"size:100;not null" json:"name"`
	Surname         string     `gorm:"size:100;not null" json:"surname"`
	City            string     `gorm:"size:100" json:"city"`
	PostalCode      string     `gorm:"size:6" json:"postal_code"`
	Street          string     `gorm:"size:100" json:"street"`
	HouseNumber     string     `gorm:"size:10" json:"house_number"`
	ApartmentNumber string     `gorm:"size:10" json:"apartment_number"`
	PhoneNumber     string     `gorm:"size:16" json:"phone_number"`
	Description     string     `gorm:"type:text" json:"description"`
	IsBanned        bool       `gorm:"not null" json:"is_banned"`
	IsAdmin         bool       `gorm:"not null" json:"is_admin"`
	CreatedAt       time.Time  `json:"join_date"`
	UpdatedAt       time.Time  `json:"-"`
	Photo           *UserPhoto `gorm:"foreignKey:UserID" json:"-"`
}

// HasAddress reports whether the user filled in the location needed to publish posts.
func (u *User) HasAddress() bool {
	return u.City != "" && u.PostalCode != ""
}

// UserPhoto links a user to the object key of their profile photo.
type UserPhoto struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	PhotoName string    `gorm:"size:255;not null" json:"photo_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (UserPhoto) TableName() string {
	return "user_photos"
}
