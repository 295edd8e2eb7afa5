package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// Migrate creates or updates the tables backing every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Shipment{},
		&models.ShipmentEvent{},
		&models.Message{},
		&models.AuditLog{},
		&models.UploadRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
