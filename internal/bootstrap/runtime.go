// Package bootstrap wires the database, Redis and startup data for the entry points.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"petbuddies/internal/cache"
	"petbuddies/internal/config"
	"petbuddies/internal/database"
	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDictionaries bool
}

// InitRuntime connects to DB and Redis and optionally seeds the dictionaries.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable
	r := cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDictionaries {
		if err := seed.Dictionaries(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed dictionaries: %w", err)
		}
	}

	return db, r, nil
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	login := strings.TrimSpace(cfg.DevRootLogin)
	if login == "" {
		login = "petbuddies_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@petbuddies.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("login = ?", login).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Login:    login,
				Email:    email,
				Password: string(hashedPassword),
				Name:     "Root",
				Surname:  "Admin",
				IsAdmin:  true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		}
		return tx.Model(&models.User{}).Where("id = ?", root.ID).
			Updates(map[string]any{"is_admin": true, "is_banned": false}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.String("login", login))
	return nil
}
