package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/validation"

	"gorm.io/gorm"
)

// ReportCooldown is how long a reporter must wait before reporting the same user again.
const ReportCooldown = 72 * time.Hour

// ReportService files user reports.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportService returns a new ReportService.
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

type ReportUserInput struct {
	ReporterID     uint
	ReportedUserID uint
	ReportTypeID   uint
	Description    string
}

// ReportUser files a report unless the reporter already reported the same
// user within ReportCooldown.
func (s *ReportService) ReportUser(ctx context.Context, in ReportUserInput) (*models.Report, error) {
	if in.ReporterID == in.ReportedUserID {
		return nil, models.NewValidationError("You cannot report yourself")
	}
	description := strings.TrimSpace(in.Description)
	if err := validation.ValidateMaxLength("description", description, maxReportDescriptionLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var report *models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, in.ReportedUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", in.ReportedUserID)
			}
			return err
		}
		if err := tx.First(&models.ReportType{}, in.ReportTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Report type", in.ReportTypeID)
			}
			return err
		}

		var last models.Report
		err := tx.Where("reporter_id = ? AND reported_user_id = ?", in.ReporterID, in.ReportedUserID).
			Order("created_at DESC").
			First(&last).Error
		switch {
		case err == nil:
			if s.now().Sub(last.CreatedAt) < ReportCooldown {
				return models.NewConflictError("You already reported this user recently")
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		report = &models.Report{
			ReporterID:     in.ReporterID,
			ReportedUserID: in.ReportedUserID,
			ReportTypeID:   in.ReportTypeID,
			Description:    description,
			CreatedAt:      s.now(),
		}
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, txError(err)
	}
	return report, nil
}
