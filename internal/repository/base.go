// Package repository implements the data access layer for users, pets and dictionaries.
package repository

import (
	"errors"

	"petbuddies/internal/database"
	"petbuddies/internal/models"

	"gorm.io/gorm"
)

// readDB prefers the replica for plain reads.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.ReadDB; db != nil {
		return db
	}
	return primary
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound AppError and wraps anything else as internal.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
