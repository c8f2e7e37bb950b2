package models

import "time"

// ReportType is a dictionary entry describing why a user was reported.
type ReportType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// Report is a complaint about a user, reviewed by administrators.
type Report struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReporterID     uint       `gorm:"not null;index:idx_report_reporter_target" json:"reporter_id"`
	Reporter       User       `gorm:"foreignKey:ReporterID" json:"-"`
	ReportedUserID uint       `gorm:"not null;index:idx_report_reporter_target;index" json:"reported_user_id"`
	ReportedUser   User       `gorm:"foreignKey:ReportedUserID" json:"-"`
	ReportTypeID   uint       `gorm:"not null" json:"report_type_id"`
	ReportType     ReportType `gorm:"foreignKey:ReportTypeID" json:"-"`
	Description    string     `gorm:"type:text" json:"description"`
	WasConsidered  bool       `gorm:"not null;index" json:"was_considered"`
	CreatedAt      time.Time  `json:"report_date"`
}

// PostalCode maps a Polish postal code to a place name and coordinates.
type PostalCode struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	PostalCode string  `gorm:"size:6;not null;index" json:"postal_code"`
	Place      string  `gorm:"size:100;not null;index" json:"place"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// TableName specifies the table name for GORM.
func (PostalCode) TableName() string {
	return "postal_codes"
}
