package seed

import (
	"context"
	"fmt"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Password123!"

var (
	petTypes = []models.PetType{
		models.PetTypeDog, models.PetTypeCat, models.PetTypeRabbit,
		models.PetTypeParrot, models.PetTypeFerret, models.PetTypeOther,
	}
	petSizes = []models.PetSize{models.PetSizeSmall, models.PetSizeMedium, models.PetSizeLarge}
	careTimes = [][2]string{{"07:00", "19:00"}, {"08:30", "17:00"}, {"09:00", "21:00"}, {"10:00", "18:00"}}
)

// Factory builds marketplace entities with fake content and persists them.
// Posts and applications go through the lifecycle service so seeded data
// obeys the same rules as live traffic.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	lifecycle    *service.LifecycleService
	ratings      *service.RatingService
	passwordHash string
	places       []models.PostalCode
	seq          int
}

// NewFactory creates a Factory. A fixed seed makes the output reproducible.
func NewFactory(db *gorm.DB, seed int64) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	var places []models.PostalCode
	if err := db.Find(&places).Error; err != nil {
		return nil, fmt.Errorf("load postal codes: %w", err)
	}
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		lifecycle:    service.NewLifecycleService(db),
		ratings:      service.NewRatingService(db),
		passwordHash: string(hash),
		places:       places,
	}, nil
}

// User inserts a user with a filled-in address.
func (f *Factory) User() (*models.User, error) {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	u := &models.User{
		Login:       fmt.Sprintf("%s%d", f.faker.Username(), f.seq),
		Email:       fmt.Sprintf("user%d.%s@example.com", f.seq, f.faker.LetterN(6)),
		Password:    f.passwordHash,
		Name:        first,
		Surname:     last,
		City:        "Kraków",
		PostalCode:  "30-001",
		Street:      f.faker.Street(),
		HouseNumber: fmt.Sprint(f.faker.Number(1, 120)),
		PhoneNumber: fmt.Sprintf("+48%09d", f.faker.Number(500000000, 899999999)),
		Description: f.faker.Sentence(12),
	}
	if len(f.places) > 0 {
		p := f.places[f.faker.Number(0, len(f.places)-1)]
		u.City, u.PostalCode = p.Place, p.PostalCode
	}
	if err := f.db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Pet inserts a pet for owner.
func (f *Factory) Pet(owner *models.User) (*models.Pet, error) {
	birth := f.faker.DateRange(time.Now().AddDate(-15, 0, 0), time.Now().AddDate(0, -3, 0)).UTC().Truncate(24 * time.Hour)
	p := &models.Pet{
		UserID:      owner.ID,
		Name:        f.faker.PetName(),
		Type:        petTypes[f.faker.Number(0, len(petTypes)-1)],
		Race:        f.faker.Animal(),
		Size:        petSizes[f.faker.Number(0, len(petSizes)-1)],
		BirthDate:   &birth,
		Description: f.faker.Sentence(10),
	}
	if err := f.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}
	return p, nil
}

// Post publishes a post for owner's pets starting daysFromNow days away.
// Negative values produce stays that already ended.
func (f *Factory) Post(ctx context.Context, owner *models.User, pets []*models.Pet, daysFromNow int) (*models.Post, error) {
	start := time.Now().UTC().AddDate(0, 0, daysFromNow)
	end := start.AddDate(0, 0, f.faker.Number(0, 6))
	if daysFromNow < 0 && !end.Before(time.Now().UTC().AddDate(0, 0, -1)) {
		end = time.Now().UTC().AddDate(0, 0, -1)
		if end.Before(start) {
			start = end
		}
	}
	hours := careTimes[f.faker.Number(0, len(careTimes)-1)]

	ids := make([]uint, 0, len(pets))
	for _, p := range pets {
		ids = append(ids, p.ID)
	}
	return f.lifecycle.CreatePost(ctx, service.CreatePostInput{
		OwnerID:     owner.ID,
		StartDate:   start.Format(models.DateLayout),
		EndDate:     end.Format(models.DateLayout),
		StartTime:   hours[0],
		EndTime:     hours[1],
		Cost:        float64(f.faker.Number(4, 40) * 10),
		Description: f.faker.Paragraph(1, 3, 12, " "),
		PetIDs:      ids,
	})
}

// Apply files an application of volunteer to post.
func (f *Factory) Apply(ctx context.Context, post *models.Post, volunteer *models.User) (*models.PetCareApplication, error) {
	return f.lifecycle.ApplyToPost(ctx, post.ID, volunteer.ID)
}

// Accept accepts volunteer's application on post.
func (f *Factory) Accept(ctx context.Context, post *models.Post, volunteer *models.User) error {
	_, err := f.lifecycle.AcceptApplication(ctx, post.ID, post.UserID, volunteer.ID)
	return err
}

// Decline declines volunteer's application on post.
func (f *Factory) Decline(ctx context.Context, post *models.Post, volunteer *models.User) error {
	_, err := f.lifecycle.DeclineApplication(ctx, post.ID, post.UserID, volunteer.ID)
	return err
}

// RateBoth has owner and sitter rate each other for a finished stay.
func (f *Factory) RateBoth(ctx context.Context, post *models.Post, sitter *models.User) error {
	pairs := [][2]uint{{post.UserID, sitter.ID}, {sitter.ID, post.UserID}}
	for _, p := range pairs {
		if _, err := f.ratings.RateUser(ctx, service.RateUserInput{
			PostID:      post.ID,
			AuthorID:    p[0],
			RatedUserID: p[1],
			StarNumber:  f.faker.Number(3, 5),
			Description: f.faker.Sentence(8),
		}); err != nil {
			return err
		}
	}
	return nil
}
