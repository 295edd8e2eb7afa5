package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// ShipmentFilter narrows admin shipment listings.
type ShipmentFilter struct {
	AdminID  *uint
	Deleted  bool
	Status   models.ShipmentStatus
	Search   string
	Page     int
	PageSize int
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *models.Shipment) error
	TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error)
	GetByID(ctx context.Context, id uint) (models.Shipment, error)
	GetByIDForUpdate(ctx context.Context, id uint) (models.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error)
	List(ctx context.Context, filter ShipmentFilter) ([]models.Shipment, int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uint, status models.ShipmentStatus) error
	SetDeleted(ctx context.Context, id uint, deletedAt *time.Time) error
	Delete(ctx context.Context, id uint) error
	CountByAdmin(ctx context.Context, adminID uint) (int64, error)
}

type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository constructs a shipment repository.
func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(shipment).Error
}

func (r *shipmentRepository) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("tracking_number = ?", trackingNumber).
		Count(&count).Error
	return count > 0, err
}

// GetByID returns the shipment regardless of its soft-delete state.
func (r *shipmentRepository) GetByID(ctx context.Context, id uint) (models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, id).Error; err != nil {
		return models.Shipment{}, err
	}

	return shipment, nil
}

// GetByIDForUpdate loads the shipment and holds a row lock until the surrounding transaction ends.
func (r *shipmentRepository) GetByIDForUpdate(ctx context.Context, id uint) (models.Shipment, error) {
	var shipment models.Shipment
	query := r.db.WithContext(ctx)
	// SQLite serialises writers on its single connection and has no row locks.
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.First(&shipment, id).Error
	if err != nil {
		return models.Shipment{}, err
	}

	return shipment, nil
}

func (r *shipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Where("tracking_number = ?", strings.ToUpper(strings.TrimSpace(trackingNumber))).
		Where("is_deleted = ?", false).
		First(&shipment).Error
	if err != nil {
		return models.Shipment{}, err
	}

	return shipment, nil
}

func (r *shipmentRepository) List(ctx context.Context, filter ShipmentFilter) ([]models.Shipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("is_deleted = ?", filter.Deleted)

	if filter.AdminID != nil {
		query = query.Where("admin_id = ?", *filter.AdminID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(tracking_number) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(origin) LIKE ? OR LOWER(destination) LIKE ?",
			like, like, like, like,
		)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Deleted {
		query = query.Order("deleted_at DESC")
	} else {
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var shipments []models.Shipment
	if err := query.Preload("Admin").Find(&shipments).Error; err != nil {
		return nil, 0, err
	}

	return shipments, total, nil
}

func (r *shipmentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *shipmentRepository) UpdateStatus(ctx context.Context, id uint, status models.ShipmentStatus) error {
	return r.Update(ctx, id, map[string]interface{}{"status": status})
}

// SetDeleted flips the soft-delete flag; a nil timestamp restores the shipment.
func (r *shipmentRepository) SetDeleted(ctx context.Context, id uint, deletedAt *time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_deleted": deletedAt != nil,
		"deleted_at": deletedAt,
	})
}

// Delete removes the shipment together with its timeline and conversation.
// Callers run it inside a transaction so the three deletes commit together.
func (r *shipmentRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("shipment_id = ?", id).Delete(&models.ShipmentEvent{}).Error; err != nil {
		return err
	}
	if err := db.Where("shipment_id = ?", id).Delete(&models.Message{}).Error; err != nil {
		return err
	}

	result := db.Delete(&models.Shipment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *shipmentRepository) CountByAdmin(ctx context.Context, adminID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("admin_id = ?", adminID).
		Count(&count).Error
	return count, err
}
