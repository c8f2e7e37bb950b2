package models

import "time"

// PetCareApplication is a volunteer's request to look after the pets of a post.
// All three flags false means the application is pending; at most one is ever true.
type PetCareApplication struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_application_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_application_post_user;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Post      Post      `gorm:"foreignKey:PostID" json:"-"`
	Declined  bool      `gorm:"not null" json:"declined"`
	Cancelled bool      `gorm:"not null" json:"cancelled"`
	Accepted  bool      `gorm:"not null" json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PetCareApplication) TableName() string {
	return "pet_care_applications"
}

// Pending reports whether the owner has not decided yet and the volunteer has not withdrawn.
func (a *PetCareApplication) Pending() bool {
	return !a.Accepted && !a.Declined && !a.Cancelled
}
