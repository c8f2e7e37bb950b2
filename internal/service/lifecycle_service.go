package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"petbuddies/internal/models"
	"petbuddies/internal/observability"
	"petbuddies/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transition names recorded in metrics.
const (
	TransitionCreatePost = "create_post"
	TransitionUpdatePost = "update_post"
	TransitionApply      = "apply"
	TransitionAccept     = "accept"
	TransitionDecline    = "decline"
	TransitionCancel     = "cancel"
	TransitionClosePost  = "close_post"
)

// LifecycleService owns every state change of posts and applications.
// Each operation is one transaction holding a row lock on the post.
type LifecycleService struct {
	db *gorm.DB
}

// NewLifecycleService returns a new LifecycleService.
func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{db: db}
}

type CreatePostInput struct {
	OwnerID     uint
	StartDate   string
	EndDate     string
	StartTime   string
	EndTime     string
	Cost        float64
	Description string
	PetIDs      []uint
}

type UpdatePostInput struct {
	PostID      uint
	OwnerID     uint
	StartDate   string
	EndDate     string
	StartTime   string
	EndTime     string
	Cost        float64
	Description string
}

// ClosePostResult tells the caller whom to notify about a closed post.
type ClosePostResult struct {
	Post                *models.Post
	PendingApplicantIDs []uint
}

func validatePostFields(cost float64, description string) (float64, string, error) {
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, "", models.NewValidationError("cost must be a non-negative amount")
	}
	description = strings.TrimSpace(description)
	if err := validation.ValidateMaxLength("description", description, maxPostDescriptionLen); err != nil {
		return 0, "", models.NewValidationError(err.Error())
	}
	return math.Round(cost*100) / 100, description, nil
}

// lockPost loads the post with a row lock. Missing posts are NotFound.
func lockPost(tx *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// lockOwnedPost additionally hides posts of other owners behind NotFound.
func lockOwnedPost(tx *gorm.DB, postID, ownerID uint) (*models.Post, error) {
	post, err := lockPost(tx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != ownerID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

func setApplicationFlag(tx *gorm.DB, id uint, column string, value bool) error {
	return tx.Model(&models.PetCareApplication{}).Where("id = ?", id).Update(column, value).Error
}

func findApplication(tx *gorm.DB, postID, userID uint) (*models.PetCareApplication, error) {
	var app models.PetCareApplication
	err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// CreatePost publishes a post for the owner's pets.
func (s *LifecycleService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.create_post", attribute.Int64("user.id", int64(in.OwnerID)))
	defer span.End()
	defer func() { finish(span, TransitionCreatePost, err) }()

	w, err := parseWindow(in.StartDate, in.EndDate, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	cost, description, err := validatePostFields(in.Cost, in.Description)
	if err != nil {
		return nil, err
	}
	petIDs := uniqueIDs(in.PetIDs)
	if len(petIDs) == 0 {
		return nil, models.NewValidationError("Select at least one pet")
	}

	post = &models.Post{
		UserID:      in.OwnerID,
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
		StartTime:   w.StartTime,
		EndTime:     w.EndTime,
		Cost:        cost,
		Description: description,
		IsActive:    true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, in.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", in.OwnerID)
			}
			return err
		}
		if !owner.HasAddress() {
			return models.NewValidationError("Fill in your city and postal code before publishing a post")
		}

		var owned int64
		if err := tx.Model(&models.Pet{}).
			Where("id IN ? AND user_id = ? AND is_deleted = ?", petIDs, in.OwnerID, false).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(petIDs)) {
			return models.NewValidationError("Pets must be your own and not deleted")
		}

		if err := tx.Create(post).Error; err != nil {
			return err
		}
		cares := make([]models.PetCare, 0, len(petIDs))
		for _, id := range petIDs {
			cares = append(cares, models.PetCare{PostID: post.ID, PetID: id})
		}
		if err := tx.Create(&cares).Error; err != nil {
			return err
		}
		post.PetCares = cares
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return post, nil
}

// UpdatePost edits the window, cost and description of an active post.
func (s *LifecycleService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.update_post", attribute.Int64("post.id", int64(in.PostID)))
	defer span.End()
	defer func() { finish(span, TransitionUpdatePost, err) }()

	w, err := parseWindow(in.StartDate, in.EndDate, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	cost, description, err := validatePostFields(in.Cost, in.Description)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lockErr error
		post, lockErr = lockOwnedPost(tx, in.PostID, in.OwnerID)
		if lockErr != nil {
			return lockErr
		}
		if !post.IsActive {
			return models.NewConflictError("Only active posts can be edited")
		}
		post.StartDate = w.StartDate
		post.EndDate = w.EndDate
		post.StartTime = w.StartTime
		post.EndTime = w.EndTime
		post.Cost = cost
		post.Description = description
		return tx.Model(post).Select("start_date", "end_date", "start_time", "end_time", "cost", "description").Updates(post).Error
	})
	if err != nil {
		return nil, txError(err)
	}
	return post, nil
}

// ApplyToPost registers the volunteer for an active post. Re-applying after a
// cancellation reopens the same application; any other existing application
// is returned unchanged.
func (s *LifecycleService) ApplyToPost(ctx context.Context, postID, volunteerID uint) (app *models.PetCareApplication, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.apply",
		attribute.Int64("post.id", int64(postID)),
		attribute.Int64("user.id", int64(volunteerID)),
	)
	defer span.End()
	defer func() { finish(span, TransitionApply, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		if !post.IsActive {
			return models.NewNotFoundError("Post", postID)
		}
		if post.UserID == volunteerID {
			return models.NewValidationError("You cannot apply to your own post")
		}

		app, err = findApplication(tx, postID, volunteerID)
		if err != nil {
			return err
		}
		if app == nil {
			app = &models.PetCareApplication{PostID: postID, UserID: volunteerID}
			if err := tx.Create(app).Error; err != nil {
				return err
			}
		} else if app.Cancelled {
			app.Cancelled = false
			if err := setApplicationFlag(tx, app.ID, "cancelled", false); err != nil {
				return err
			}
		}
		app.Post = *post
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return app, nil
}

// AcceptApplication accepts the volunteer and deactivates the post in the same
// transaction. The deactivation is conditional, so of two racing accepts only
// one succeeds and the other gets a conflict.
func (s *LifecycleService) AcceptApplication(ctx context.Context, postID, ownerID, volunteerID uint) (app *models.PetCareApplication, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.accept",
		attribute.Int64("post.id", int64(postID)),
		attribute.Int64("applicant.id", int64(volunteerID)),
	)
	defer span.End()
	defer func() { finish(span, TransitionAccept, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decideErr error
		app, decideErr = s.decidable(tx, postID, ownerID, volunteerID)
		if decideErr != nil {
			return decideErr
		}
		if app.Declined {
			return models.NewConflictError("A declined application cannot be accepted")
		}

		res := tx.Model(&models.Post{}).
			Where("id = ? AND is_active = ?", postID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Post is no longer active")
		}

		app.Accepted = true
		return setApplicationFlag(tx, app.ID, "accepted", true)
	})
	if err != nil {
		return nil, txError(err)
	}
	return app, nil
}

// DeclineApplication declines the volunteer. The post stays active.
func (s *LifecycleService) DeclineApplication(ctx context.Context, postID, ownerID, volunteerID uint) (app *models.PetCareApplication, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.decline",
		attribute.Int64("post.id", int64(postID)),
		attribute.Int64("applicant.id", int64(volunteerID)),
	)
	defer span.End()
	defer func() { finish(span, TransitionDecline, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var decideErr error
		app, decideErr = s.decidable(tx, postID, ownerID, volunteerID)
		if decideErr != nil {
			return decideErr
		}
		if app.Accepted {
			return models.NewConflictError("An accepted application cannot be declined")
		}
		if app.Declined {
			return nil
		}
		app.Declined = true
		return setApplicationFlag(tx, app.ID, "declined", true)
	})
	if err != nil {
		return nil, txError(err)
	}
	return app, nil
}

// decidable checks the preconditions shared by accept and decline.
func (s *LifecycleService) decidable(tx *gorm.DB, postID, ownerID, volunteerID uint) (*models.PetCareApplication, error) {
	post, err := lockOwnedPost(tx, postID, ownerID)
	if err != nil {
		return nil, err
	}
	if !post.IsActive {
		return nil, models.NewConflictError("Post is no longer active")
	}
	app, err := findApplication(tx, postID, volunteerID)
	if err != nil {
		return nil, err
	}
	if app == nil || app.Cancelled {
		return nil, models.NewNotFoundError("Application", volunteerID)
	}
	app.Post = *post
	return app, nil
}

// CancelMyApplication withdraws the volunteer's pending application. It works
// whether or not the post is still active; decided applications stay as they are.
func (s *LifecycleService) CancelMyApplication(ctx context.Context, postID, volunteerID uint) (app *models.PetCareApplication, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.cancel",
		attribute.Int64("post.id", int64(postID)),
		attribute.Int64("user.id", int64(volunteerID)),
	)
	defer span.End()
	defer func() { finish(span, TransitionCancel, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}
		app, err = findApplication(tx, postID, volunteerID)
		if err != nil {
			return err
		}
		if app == nil {
			return models.NewNotFoundError("Application", postID)
		}
		app.Post = *post
		switch {
		case app.Accepted:
			return models.NewConflictError("An accepted application cannot be cancelled")
		case app.Declined:
			return models.NewConflictError("A declined application cannot be cancelled")
		case app.Cancelled:
			return nil
		}
		app.Cancelled = true
		return setApplicationFlag(tx, app.ID, "cancelled", true)
	})
	if err != nil {
		return nil, txError(err)
	}
	return app, nil
}

// ClosePost deactivates the owner's post for good.
func (s *LifecycleService) ClosePost(ctx context.Context, postID, ownerID uint) (result *ClosePostResult, err error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.close_post", attribute.Int64("post.id", int64(postID)))
	defer span.End()
	defer func() { finish(span, TransitionClosePost, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockOwnedPost(tx, postID, ownerID)
		if err != nil {
			return err
		}
		if !post.IsActive {
			return models.NewConflictError("Post is already closed")
		}
		if err := tx.Model(post).Update("is_active", false).Error; err != nil {
			return err
		}
		post.IsActive = false

		var pending []uint
		if err := tx.Model(&models.PetCareApplication{}).
			Where("post_id = ? AND accepted = ? AND declined = ? AND cancelled = ?", postID, false, false, false).
			Order("id").
			Pluck("user_id", &pending).Error; err != nil {
			return err
		}
		result = &ClosePostResult{Post: post, PendingApplicantIDs: pending}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return result, nil
}
