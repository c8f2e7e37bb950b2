package seed

import (
	"context"
	"fmt"
	"math/rand"

	"petbuddies/internal/middleware"
	"petbuddies/internal/models"

	"gorm.io/gorm"
)

// Options configure a demo data run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	Seed        int64
}

// Summary counts what a run created.
type Summary struct {
	Users        int
	Pets         int
	Posts        int
	Applications int
	Ratings      int
}

// Seeder fills the database with a small believable marketplace.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes marketplace data, leaving the dictionaries in place.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.UserRating{},
		&models.Report{},
		&models.PetCareApplication{},
		&models.PetCare{},
		&models.Post{},
		&models.PetPhoto{},
		&models.Pet{},
		&models.UserPhoto{},
		&models.User{},
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
				return fmt.Errorf("clear %T: %w", t, err)
			}
		}
		return nil
	})
}

// Run seeds dictionaries, users with pets, and posts in every lifecycle
// state: open with pending applicants, taken, and finished and rated.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.NumUsers < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", opts.NumUsers)
	}
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}
	if err := Dictionaries(s.db); err != nil {
		return nil, err
	}

	f, err := NewFactory(s.db, opts.Seed)
	if err != nil {
		return nil, err
	}
	r := rand.New(rand.NewSource(opts.Seed))
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	pets := make(map[uint][]*models.Pet, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.User()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
		sum.Users++

		for j := 0; j < 1+r.Intn(3); j++ {
			p, err := f.Pet(u)
			if err != nil {
				return nil, err
			}
			pets[u.ID] = append(pets[u.ID], p)
			sum.Pets++
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		owner := users[r.Intn(len(users))]
		owned := pets[owner.ID]
		chosen := owned[:1+r.Intn(len(owned))]

		// A third of the posts are stays that already happened.
		finished := i%3 == 2
		days := 1 + r.Intn(30)
		if finished {
			days = -(7 + r.Intn(60))
		}

		post, err := f.Post(ctx, owner, chosen, days)
		if err != nil {
			return nil, fmt.Errorf("seed post: %w", err)
		}
		sum.Posts++

		volunteers := pickOthers(r, users, owner.ID, 1+r.Intn(3))
		for _, v := range volunteers {
			if _, err := f.Apply(ctx, post, v); err != nil {
				return nil, fmt.Errorf("seed application: %w", err)
			}
			sum.Applications++
		}

		switch {
		case finished:
			if err := f.Accept(ctx, post, volunteers[0]); err != nil {
				return nil, fmt.Errorf("seed accept: %w", err)
			}
			if err := f.RateBoth(ctx, post, volunteers[0]); err != nil {
				return nil, fmt.Errorf("seed ratings: %w", err)
			}
			sum.Ratings += 2
		case len(volunteers) > 1 && r.Intn(2) == 0:
			if err := f.Decline(ctx, post, volunteers[1]); err != nil {
				return nil, fmt.Errorf("seed decline: %w", err)
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		"users", sum.Users, "pets", sum.Pets, "posts", sum.Posts,
		"applications", sum.Applications, "ratings", sum.Ratings)
	return sum, nil
}

func pickOthers(r *rand.Rand, users []*models.User, exclude uint, n int) []*models.User {
	out := make([]*models.User, 0, n)
	for _, idx := range r.Perm(len(users)) {
		if users[idx].ID == exclude {
			continue
		}
		out = append(out, users[idx])
		if len(out) == n {
			break
		}
	}
	return out
}
