package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Group must be migrated first as other models depend on it
func AllModels() []interface{} {
	return []interface{}{
		&Group{},
		&Entity{},
		&Membership{},
		&Edge{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
