package models

import "time"

// UserRating is a star rating one participant of a completed stay leaves for the other.
type UserRating struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID uint      `gorm:"not null;uniqueIndex:idx_rating_application_author" json:"application_id"`
	AuthorID      uint      `gorm:"not null;uniqueIndex:idx_rating_application_author" json:"author_id"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"-"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	StarNumber    int       `gorm:"not null" json:"star_number"`
	Description   string    `gorm:"type:text" json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (UserRating) TableName() string {
	return "user_ratings"
}
