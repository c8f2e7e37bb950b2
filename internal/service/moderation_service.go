package service

import (
	"context"
	"errors"
	"log/slog"

	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// TransitionBan is the metrics name for the ban cascade.
const TransitionBan = "ban"

// PersonRef is the short user block shown in admin lists.
type PersonRef struct {
	ID      uint   `json:"id"`
	Login   string `json:"login"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

func personRef(u models.User) PersonRef {
	return PersonRef{ID: u.ID, Login: u.Login, Name: u.Name, Surname: u.Surname, Email: u.Email}
}

// ReportRow is a row of the admin report list.
type ReportRow struct {
	models.Report
	TypeName string    `json:"report_type"`
	By       PersonRef `json:"reporter"`
	Against  PersonRef `json:"reported_user"`
}

// AdminUserRow is a row of the admin user list.
type AdminUserRow struct {
	models.User
	ReportCount int64 `json:"report_count"`
}

// AdminUserDetail aggregates user and moderation data for admin views.
type AdminUserDetail struct {
	User     models.User     `json:"user"`
	Reports  []models.Report `json:"reports"`
	Posts    []models.Post   `json:"posts"`
	Warnings []string        `json:"warnings,omitempty"`
}

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	TotalUsers     int64 `json:"total_users"`
	TotalPosts     int64 `json:"total_posts"`
	ActivePosts    int64 `json:"active_posts"`
	PendingReports int64 `json:"pending_reports"`
	BannedUsers    int64 `json:"banned_users"`
}

// BanResult reports what the ban cascade changed.
type BanResult struct {
	UserID            uint  `json:"user_id"`
	PostsDeactivated  int64 `json:"posts_deactivated"`
	ReportsConsidered int64 `json:"reports_considered"`
}

// ModerationService provides admin moderation and reporting logic.
type ModerationService struct {
	db *gorm.DB
}

// NewModerationService returns a new ModerationService.
func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

// BanUser bans the user, deactivates their active posts and marks pending
// reports against them as considered, all in one transaction.
func (s *ModerationService) BanUser(ctx context.Context, adminID, userID uint) (result *BanResult, err error) {
	span, ctx := observability.NewSpan(ctx, "moderation.ban_user", attribute.Int64("user.id", int64(userID)))
	defer span.End()
	defer func() { finish(span, TransitionBan, err) }()

	if adminID == userID {
		return nil, models.NewForbiddenError("You cannot ban yourself")
	}

	result = &BanResult{UserID: userID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", userID)
			}
			return err
		}
		if user.IsAdmin {
			return models.NewForbiddenError("Administrators cannot be banned")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("is_banned", true).Error; err != nil {
			return err
		}

		posts := tx.Model(&models.Post{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false)
		if posts.Error != nil {
			return posts.Error
		}
		result.PostsDeactivated = posts.RowsAffected

		reports := tx.Model(&models.Report{}).
			Where("reported_user_id = ? AND was_considered = ?", userID, false).
			Update("was_considered", true)
		if reports.Error != nil {
			return reports.Error
		}
		result.ReportsConsidered = reports.RowsAffected
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	middleware.Logger.InfoContext(ctx, "user banned",
		slog.Uint64("admin_id", uint64(adminID)),
		slog.Uint64("banned_user_id", uint64(userID)),
		slog.Int64("posts_deactivated", result.PostsDeactivated),
		slog.Int64("reports_considered", result.ReportsConsidered),
	)
	return result, nil
}

// UnbanUser lifts a ban. Posts closed by the ban stay closed.
func (s *ModerationService) UnbanUser(ctx context.Context, userID uint) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_banned", false)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// RemovePost deactivates any active post.
func (s *ModerationService) RemovePost(ctx context.Context, postID uint) (*models.Post, error) {
	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		post, err = lockPost(tx, postID)
		if err != nil {
			return err
		}
		if !post.IsActive {
			return models.NewConflictError("Post is already inactive")
		}
		post.IsActive = false
		return tx.Model(&models.Post{}).Where("id = ?", postID).Update("is_active", false).Error
	})
	if err != nil {
		return nil, txError(err)
	}
	return post, nil
}

// ConsiderReport marks a report as reviewed. Repeating it is harmless.
func (s *ModerationService) ConsiderReport(ctx context.Context, reportID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", reportID).Update("was_considered", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Report", reportID)
	}
	return nil
}

// ListReports returns reports newest first, optionally only pending ones.
func (s *ModerationService) ListReports(ctx context.Context, pendingOnly bool, limit, offset int) ([]ReportRow, error) {
	q := s.db.WithContext(ctx).
		Preload("Reporter").
		Preload("ReportedUser").
		Preload("ReportType").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset)
	if pendingOnly {
		q = q.Where("was_considered = ?", false)
	}

	var reports []models.Report
	if err := q.Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	rows := make([]ReportRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, ReportRow{
			Report:   r,
			TypeName: r.ReportType.Name,
			By:       personRef(r.Reporter),
			Against:  personRef(r.ReportedUser),
		})
	}
	return rows, nil
}

// ListUsers returns users with the number of reports filed against them.
func (s *ModerationService) ListUsers(ctx context.Context, limit, offset int) ([]AdminUserRow, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	type countRow struct {
		ReportedUserID uint
		ReportCount    int64
	}
	counts := map[uint]int64{}
	if len(ids) > 0 {
		var rows []countRow
		if err := s.db.WithContext(ctx).
			Model(&models.Report{}).
			Select("reported_user_id, COUNT(*) AS report_count").
			Where("reported_user_id IN ?", ids).
			Group("reported_user_id").
			Scan(&rows).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		for _, r := range rows {
			counts[r.ReportedUserID] = r.ReportCount
		}
	}

	resp := make([]AdminUserRow, 0, len(users))
	for _, u := range users {
		resp = append(resp, AdminUserRow{User: u, ReportCount: counts[u.ID]})
	}
	return resp, nil
}

// GetAdminUserDetail returns a user with the reports against them and their posts.
// Partial failures are reported as warnings instead of failing the view.
func (s *ModerationService) GetAdminUserDetail(ctx context.Context, userID uint) (*AdminUserDetail, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, models.NewInternalError(err)
	}

	detail := &AdminUserDetail{User: user, Reports: []models.Report{}, Posts: []models.Post{}}

	if err := s.db.WithContext(ctx).
		Where("reported_user_id = ?", userID).
		Order("created_at DESC").
		Limit(200).
		Find(&detail.Reports).Error; err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load reports for user", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		detail.Warnings = append(detail.Warnings, "Partial data: reports could not be loaded.")
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(200).
		Find(&detail.Posts).Error; err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load posts for user", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		detail.Warnings = append(detail.Warnings, "Partial data: posts could not be loaded.")
	}

	return detail, nil
}

// Stats returns the admin dashboard counters.
func (s *ModerationService) Stats(ctx context.Context) (*DashboardStats, error) {
	var st DashboardStats
	db := s.db.WithContext(ctx)
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&st.TotalUsers, db.Model(&models.User{})},
		{&st.TotalPosts, db.Model(&models.Post{})},
		{&st.ActivePosts, db.Model(&models.Post{}).Where("is_active = ?", true)},
		{&st.PendingReports, db.Model(&models.Report{}).Where("was_considered = ?", false)},
		{&st.BannedUsers, db.Model(&models.User{}).Where("is_banned = ?", true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return &st, nil
}
