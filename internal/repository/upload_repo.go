package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// UploadRepository persists metadata about attachments pushed to blob storage.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	FindByChecksum(ctx context.Context, checksum string) (models.UploadRecord, error)
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByChecksum returns the most recent upload with identical content.
func (r *uploadRepository) FindByChecksum(ctx context.Context, checksum string) (models.UploadRecord, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("checksum = ?", checksum).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return models.UploadRecord{}, err
	}

	return record, nil
}
