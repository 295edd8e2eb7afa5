package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// MessageRepository persists shipment chat messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (models.Message, error)
	ListByShipment(ctx context.Context, shipmentID uint) ([]models.Message, error)
	UpdateContent(ctx context.Context, id uint, content string) (models.Message, error)
	Delete(ctx context.Context, id uint) error
	MarkRead(ctx context.Context, shipmentID uint, sender models.MessageSender, readAt time.Time) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.Message{}, err
	}

	return message, nil
}

// ListByShipment returns the whole thread oldest first.
func (r *messageRepository) ListByShipment(ctx context.Context, shipmentID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uint, content string) (models.Message, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("content", content)
	if result.Error != nil {
		return models.Message{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Message{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// MarkRead stamps every unread message from sender and reports how many changed.
func (r *messageRepository) MarkRead(ctx context.Context, shipmentID uint, sender models.MessageSender, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("shipment_id = ? AND sender = ? AND read_at IS NULL", shipmentID, sender).
		Update("read_at", readAt)
	return result.RowsAffected, result.Error
}
