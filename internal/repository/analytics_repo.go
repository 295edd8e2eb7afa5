package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// StatusCount is the number of live shipments in one status.
type StatusCount struct {
	Status models.ShipmentStatus
	Total  int64
}

// DestinationCount is the number of live shipments heading to one destination.
type DestinationCount struct {
	Destination string
	Total       int64
}

// AnalyticsRepository supplies aggregates for the dashboard and analytics views.
// A nil adminID aggregates across every admin.
type AnalyticsRepository interface {
	CountByStatus(ctx context.Context, adminID *uint) ([]StatusCount, error)
	CreatedSince(ctx context.Context, adminID *uint, since time.Time) ([]time.Time, error)
	TopDestinations(ctx context.Context, adminID *uint, limit int) ([]DestinationCount, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) scoped(ctx context.Context, adminID *uint) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Shipment{}).Where("is_deleted = ?", false)
	if adminID != nil {
		query = query.Where("admin_id = ?", *adminID)
	}
	return query
}

func (r *analyticsRepository) CountByStatus(ctx context.Context, adminID *uint) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.scoped(ctx, adminID).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepository) CreatedSince(ctx context.Context, adminID *uint, since time.Time) ([]time.Time, error) {
	var shipments []models.Shipment
	err := r.scoped(ctx, adminID).
		Select("id", "created_at").
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&shipments).Error
	if err != nil {
		return nil, err
	}

	created := make([]time.Time, 0, len(shipments))
	for _, shipment := range shipments {
		created = append(created, shipment.CreatedAt)
	}

	return created, nil
}

func (r *analyticsRepository) TopDestinations(ctx context.Context, adminID *uint, limit int) ([]DestinationCount, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []DestinationCount
	err := r.scoped(ctx, adminID).
		Select("destination, COUNT(*) AS total").
		Group("destination").
		Order("total DESC").
		Order("destination ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
