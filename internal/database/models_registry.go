package database

import "github.com/alex-zharinov/hw05-final/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// ordered so that referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	}
}
