package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"petbuddies/internal/cache"
	"petbuddies/internal/models"
	"petbuddies/internal/observability"
	"petbuddies/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// TransitionRate is the metrics name for ratings.
const TransitionRate = "rate"

// RatingService records ratings between the two participants of a finished stay.
type RatingService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRatingService returns a new RatingService.
func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{db: db, now: time.Now}
}

type RateUserInput struct {
	PostID      uint
	AuthorID    uint
	RatedUserID uint
	StarNumber  int
	Description string
}

// acceptedApplication returns the post's accepted application or nil.
func acceptedApplication(db *gorm.DB, postID uint) (*models.PetCareApplication, error) {
	var app models.PetCareApplication
	err := db.Where("post_id = ? AND accepted = ?", postID, true).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ratingExists reports whether authorID already rated within the application.
func ratingExists(db *gorm.DB, applicationID, authorID uint) (bool, error) {
	var n int64
	err := db.Model(&models.UserRating{}).
		Where("application_id = ? AND author_id = ?", applicationID, authorID).
		Count(&n).Error
	return n > 0, err
}

// counterpart returns whom author may rate within the stay, or 0 when author
// did not take part in it.
func counterpart(post *models.Post, accepted *models.PetCareApplication, authorID uint) uint {
	switch authorID {
	case post.UserID:
		return accepted.UserID
	case accepted.UserID:
		return post.UserID
	}
	return 0
}

// RateUser stores a rating from one participant of the post for the other.
func (s *RatingService) RateUser(ctx context.Context, in RateUserInput) (rating *models.UserRating, err error) {
	span, ctx := observability.NewSpan(ctx, "rating.rate_user",
		attribute.Int64("post.id", int64(in.PostID)),
		attribute.Int64("user.id", int64(in.AuthorID)),
	)
	defer span.End()
	defer func() { finish(span, TransitionRate, err) }()

	if in.AuthorID == in.RatedUserID {
		return nil, models.NewValidationError("You cannot rate yourself")
	}
	if in.StarNumber < 1 || in.StarNumber > 5 {
		return nil, models.NewValidationError("star_number must be between 1 and 5")
	}
	description := strings.TrimSpace(in.Description)
	if err := validation.ValidateMaxLength("description", description, maxRatingDescriptionLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, in.PostID)
		if err != nil {
			return err
		}
		accepted, err := acceptedApplication(tx, post.ID)
		if err != nil {
			return err
		}
		if accepted == nil {
			return models.NewConflictError("This post has no completed stay to rate")
		}
		if target := counterpart(post, accepted, in.AuthorID); target == 0 || target != in.RatedUserID {
			return models.NewForbiddenError("Only participants of the stay can rate each other")
		}

		rated, err := ratingExists(tx, accepted.ID, in.AuthorID)
		if err != nil {
			return err
		}
		if !models.CanRate(post, accepted, rated, s.now()) {
			return models.NewConflictError("The stay has not ended yet or you already rated it")
		}

		rating = &models.UserRating{
			ApplicationID: accepted.ID,
			AuthorID:      in.AuthorID,
			UserID:        in.RatedUserID,
			StarNumber:    in.StarNumber,
			Description:   description,
		}
		if err := tx.Create(rating).Error; err != nil {
			if models.IsIntegrityViolation(err) {
				return models.NewConflictError("You already rated this stay")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	cache.InvalidateUserRating(ctx, in.RatedUserID)
	return rating, nil
}
