package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/repository"

	"gorm.io/gorm"
)

// Dashboard page sizes.
const (
	DefaultDashboardLimit = 10
	MaxDashboardLimit     = 50
)

// QueryService builds the read models behind the listing and detail pages.
// It never changes state.
type QueryService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	photos   *PhotoService
	now      func() time.Time
}

func NewQueryService(db *gorm.DB, userRepo repository.UserRepository, photos *PhotoService) *QueryService {
	return &QueryService{db: db, userRepo: userRepo, photos: photos, now: time.Now}
}

// PetView is a pet as listed on a post.
type PetView struct {
	ID          uint           `json:"id"`
	Name        string         `json:"pet_name"`
	Type        models.PetType `json:"type"`
	Race        string         `json:"race"`
	Size        models.PetSize `json:"size"`
	BirthDate   string         `json:"birth_date,omitempty"`
	Description string         `json:"description"`
	PhotoURL    string         `json:"photo,omitempty"`
}

// PostView is a post with display-formatted dates.
type PostView struct {
	ID          uint    `json:"post_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
}

// OwnerView is the owner block on a post detail page.
type OwnerView struct {
	ID         uint                     `json:"id"`
	Login      string                   `json:"login"`
	Name       string                   `json:"name"`
	Surname    string                   `json:"surname"`
	City       string                   `json:"city"`
	PostalCode string                   `json:"postal_code"`
	PhotoURL   string                   `json:"photo,omitempty"`
	Rating     repository.RatingSummary `json:"rating"`
}

type DashboardItem struct {
	PostView
	OwnerID    uint     `json:"user_id"`
	Name       string   `json:"name"`
	Surname    string   `json:"surname"`
	City       string   `json:"city"`
	PostalCode string   `json:"postal_code"`
	PetCount   int      `json:"pet_count"`
	PetPhotos  []string `json:"pet_photos"`
}

type PostDetail struct {
	Owner   OwnerView `json:"user"`
	Post    PostView  `json:"post"`
	Pets    []PetView `json:"pets"`
	CanRate bool      `json:"can_rate"`
	Status  string    `json:"status"`
}

// PostEditView carries the raw values the edit form starts from.
type PostEditView struct {
	ID          uint      `json:"post_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Cost        float64   `json:"cost"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	Pets        []PetView `json:"pets"`
}

type MyPostItem struct {
	PostView
	PetNames            []string `json:"pet_list"`
	Status              string   `json:"status"`
	PendingApplications int64    `json:"pending_applications"`
}

type ApplicantItem struct {
	UserID   uint                     `json:"user_id"`
	Login    string                   `json:"login"`
	Name     string                   `json:"name"`
	Surname  string                   `json:"surname"`
	City     string                   `json:"city"`
	PhotoURL string                   `json:"photo,omitempty"`
	Rating   repository.RatingSummary `json:"rating"`
	Status   string                   `json:"status"`
}

type MyApplicationItem struct {
	PostView
	OwnerID  uint     `json:"user_id"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname"`
	City     string   `json:"city"`
	PetNames []string `json:"pet_list"`
	Status   string   `json:"status"`
}

func postView(p *models.Post) PostView {
	return PostView{
		ID:          p.ID,
		StartDate:   p.StartDate.Format(models.DisplayDateLayout),
		EndDate:     p.EndDate.Format(models.DisplayDateLayout),
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Cost:        p.Cost,
		Description: p.Description,
		IsActive:    p.IsActive,
	}
}

func (s *QueryService) petView(p *models.Pet) PetView {
	v := PetView{
		ID:          p.ID,
		Name:        p.Name,
		Type:        p.Type,
		Race:        p.Race,
		Size:        p.Size,
		Description: p.Description,
	}
	if p.BirthDate != nil {
		v.BirthDate = p.BirthDate.Format(models.DateLayout)
	}
	if p.Photo != nil {
		v.PhotoURL = s.photos.URL(p.Photo.PhotoName)
	}
	return v
}

func petNames(cares []models.PetCare) []string {
	names := make([]string, 0, len(cares))
	for _, c := range cares {
		names = append(names, c.Pet.Name)
	}
	return names
}

func clampDashboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultDashboardLimit
	}
	if limit > MaxDashboardLimit {
		return MaxDashboardLimit
	}
	return limit
}

// Dashboard lists the newest active posts of other users, optionally in one city.
func (s *QueryService) Dashboard(ctx context.Context, viewerID uint, limit int, city string) ([]DashboardItem, error) {
	q := s.db.WithContext(ctx).
		Preload("User").
		Preload("PetCares.Pet.Photo").
		Where("is_active = ? AND user_id <> ?", true, viewerID).
		Order("created_at DESC, id DESC").
		Limit(clampDashboardLimit(limit))
	if city = strings.TrimSpace(city); city != "" {
		q = q.Where("user_id IN (?)", s.db.Model(&models.User{}).Select("id").Where("LOWER(city) = ?", strings.ToLower(city)))
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	items := make([]DashboardItem, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		photos := make([]string, 0, len(p.PetCares))
		for _, c := range p.PetCares {
			if c.Pet.Photo != nil {
				photos = append(photos, s.photos.URL(c.Pet.Photo.PhotoName))
			}
		}
		items = append(items, DashboardItem{
			PostView:   postView(p),
			OwnerID:    p.UserID,
			Name:       p.User.Name,
			Surname:    p.User.Surname,
			City:       p.User.City,
			PostalCode: p.User.PostalCode,
			PetCount:   len(p.PetCares),
			PetPhotos:  photos,
		})
	}
	return items, nil
}

func (s *QueryService) loadPost(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("PetCares.Pet.Photo").
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// PostDetail is the post page as seen by viewerID.
func (s *QueryService) PostDetail(ctx context.Context, postID, viewerID uint) (*PostDetail, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	own, err := findApplication(db, postID, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	accepted, err := acceptedApplication(db, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	canRate := false
	if accepted != nil && counterpart(post, accepted, viewerID) != 0 {
		rated, err := ratingExists(db, accepted.ID, viewerID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		canRate = models.CanRate(post, accepted, rated, s.now())
	}

	summary, err := s.userRepo.RatingSummary(ctx, post.UserID)
	if err != nil {
		return nil, err
	}
	photo, err := s.userRepo.GetPhoto(ctx, post.UserID)
	if err != nil {
		return nil, err
	}
	owner := OwnerView{
		ID:         post.User.ID,
		Login:      post.User.Login,
		Name:       post.User.Name,
		Surname:    post.User.Surname,
		City:       post.User.City,
		PostalCode: post.User.PostalCode,
		Rating:     summary,
	}
	if photo != nil {
		owner.PhotoURL = s.photos.URL(photo.PhotoName)
	}

	pets := make([]PetView, 0, len(post.PetCares))
	for i := range post.PetCares {
		pets = append(pets, s.petView(&post.PetCares[i].Pet))
	}

	return &PostDetail{
		Owner:   owner,
		Post:    postView(post),
		Pets:    pets,
		CanRate: canRate,
		Status:  models.DetailStatus(post, own, viewerID),
	}, nil
}

// EditView returns the owner's post with raw dates for editing.
func (s *QueryService) EditView(ctx context.Context, postID, ownerID uint) (*PostEditView, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != ownerID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	pets := make([]PetView, 0, len(post.PetCares))
	for i := range post.PetCares {
		pets = append(pets, s.petView(&post.PetCares[i].Pet))
	}
	return &PostEditView{
		ID:          post.ID,
		StartDate:   post.StartDate.Format(models.DateLayout),
		EndDate:     post.EndDate.Format(models.DateLayout),
		StartTime:   post.StartTime,
		EndTime:     post.EndTime,
		Cost:        post.Cost,
		Description: post.Description,
		IsActive:    post.IsActive,
		Pets:        pets,
	}, nil
}

// MyPosts lists the owner's posts with their derived status.
func (s *QueryService) MyPosts(ctx context.Context, ownerID uint) ([]MyPostItem, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Preload("PetCares.Pet").
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(posts) == 0 {
		return []MyPostItem{}, nil
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	var apps []models.PetCareApplication
	if err := s.db.WithContext(ctx).
		Select("post_id", "accepted", "declined", "cancelled").
		Where("post_id IN ?", ids).
		Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	hasAccepted := map[uint]bool{}
	pending := map[uint]int64{}
	for i := range apps {
		a := &apps[i]
		if a.Accepted {
			hasAccepted[a.PostID] = true
		}
		if a.Pending() {
			pending[a.PostID]++
		}
	}

	items := make([]MyPostItem, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		status := models.OwnerPostStatus(p, hasAccepted[p.ID])
		item := MyPostItem{
			PostView: postView(p),
			PetNames: petNames(p.PetCares),
			Status:   status,
		}
		if status == models.StatusActive {
			item.PendingApplications = pending[p.ID]
		}
		items = append(items, item)
	}
	return items, nil
}

// Applicants lists the non-cancelled applications of the owner's post.
func (s *QueryService) Applicants(ctx context.Context, postID, ownerID uint) ([]ApplicantItem, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewInternalError(err)
	}
	if post.UserID != ownerID {
		return nil, models.NewNotFoundError("Post", postID)
	}

	var apps []models.PetCareApplication
	if err := s.db.WithContext(ctx).
		Preload("User.Photo").
		Where("post_id = ? AND cancelled = ?", postID, false).
		Order("id").
		Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	items := make([]ApplicantItem, 0, len(apps))
	for i := range apps {
		a := &apps[i]
		summary, err := s.userRepo.RatingSummary(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		item := ApplicantItem{
			UserID:  a.UserID,
			Login:   a.User.Login,
			Name:    a.User.Name,
			Surname: a.User.Surname,
			City:    a.User.City,
			Rating:  summary,
			Status:  models.ApplicantLabel(a),
		}
		if a.User.Photo != nil {
			item.PhotoURL = s.photos.URL(a.User.Photo.PhotoName)
		}
		items = append(items, item)
	}
	return items, nil
}

// MyApplications lists every application of the volunteer with its status.
func (s *QueryService) MyApplications(ctx context.Context, userID uint) ([]MyApplicationItem, error) {
	var apps []models.PetCareApplication
	if err := s.db.WithContext(ctx).
		Preload("Post.User").
		Preload("Post.PetCares.Pet").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&apps).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	items := make([]MyApplicationItem, 0, len(apps))
	for i := range apps {
		a := &apps[i]
		items = append(items, MyApplicationItem{
			PostView: postView(&a.Post),
			OwnerID:  a.Post.UserID,
			Name:     a.Post.User.Name,
			Surname:  a.Post.User.Surname,
			City:     a.Post.User.City,
			PetNames: petNames(a.Post.PetCares),
			Status:   models.ApplicationListStatus(&a.Post, a),
		})
	}
	return items, nil
}

// ApplicationsCount counts undecided and accepted applications on the owner's active posts.
func (s *QueryService) ApplicationsCount(ctx context.Context, ownerID uint) (int64, error) {
	var n int64
	active := s.db.Model(&models.Post{}).Select("id").Where("user_id = ? AND is_active = ?", ownerID, true)
	if err := s.db.WithContext(ctx).
		Model(&models.PetCareApplication{}).
		Where("declined = ? AND cancelled = ? AND post_id IN (?)", false, false, active).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
