package database

import "petbuddies/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserPhoto{},
		&models.Pet{},
		&models.PetPhoto{},
		&models.Post{},
		&models.PetCare{},
		&models.PetCareApplication{},
		&models.UserRating{},
		&models.ReportType{},
		&models.Report{},
		&models.PostalCode{},
	}
}
