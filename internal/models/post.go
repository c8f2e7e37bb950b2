package models

import (
	"fmt"
	"time"
)

// Date and time layouts used on the wire.
const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02-01-2006"
	TimeLayout        = "15:04"
)

// Post is a care request for one or more pets over a date and time window.
// Once inactive it never becomes active again.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	StartDate   time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null" json:"end_date"`
	StartTime   string    `gorm:"size:5;not null" json:"start_time"`
	EndTime     string    `gorm:"size:5;not null" json:"end_time"`
	Description string    `gorm:"type:text" json:"description"`
	Cost        float64   `gorm:"type:numeric(10,2);not null" json:"cost"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	PetCares    []PetCare `gorm:"foreignKey:PostID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EndsAt combines the end date and end time into one instant in the end date's location.
func (p *Post) EndsAt() (time.Time, error) {
	t, err := time.Parse(TimeLayout, p.EndTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("post %d end time %q: %w", p.ID, p.EndTime, err)
	}
	y, m, d := p.EndDate.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, p.EndDate.Location()), nil
}

// PetCare attaches a pet to a post.
type PetCare struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	PostID uint `gorm:"not null;uniqueIndex:idx_pet_care_post_pet" json:"post_id"`
	PetID  uint `gorm:"not null;uniqueIndex:idx_pet_care_post_pet;index" json:"pet_id"`
	Pet    Pet  `gorm:"foreignKey:PetID" json:"-"`
}

// TableName specifies the table name for GORM.
func (PetCare) TableName() string {
	return "pet_cares"
}
