package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// EventRepository persists shipment tracking events.
type EventRepository interface {
	Create(ctx context.Context, event *models.ShipmentEvent) error
	GetForShipment(ctx context.Context, shipmentID, eventID uint) (models.ShipmentEvent, error)
	Update(ctx context.Context, event *models.ShipmentEvent) error
	Delete(ctx context.Context, id uint) error
	Latest(ctx context.Context, shipmentID uint) (models.ShipmentEvent, error)
	ListByShipment(ctx context.Context, shipmentID uint, newestFirst bool) ([]models.ShipmentEvent, error)
	LatestByShipments(ctx context.Context, shipmentIDs []uint) (map[uint]models.ShipmentEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// timelineDesc orders events newest first; insertion order breaks timestamp ties.
const timelineDesc = "shipment_events.timestamp DESC, shipment_events.id DESC"

const timelineAsc = "shipment_events.timestamp ASC, shipment_events.id ASC"

func (r *eventRepository) Create(ctx context.Context, event *models.ShipmentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) GetForShipment(ctx context.Context, shipmentID, eventID uint) (models.ShipmentEvent, error) {
	var event models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("id = ? AND shipment_id = ?", eventID, shipmentID).
		First(&event).Error
	if err != nil {
		return models.ShipmentEvent{}, err
	}

	return event, nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.ShipmentEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ShipmentEvent{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Latest returns gorm.ErrRecordNotFound when the shipment has no events.
func (r *eventRepository) Latest(ctx context.Context, shipmentID uint) (models.ShipmentEvent, error) {
	var event models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order(timelineDesc).
		First(&event).Error
	if err != nil {
		return models.ShipmentEvent{}, err
	}

	return event, nil
}

func (r *eventRepository) ListByShipment(ctx context.Context, shipmentID uint, newestFirst bool) ([]models.ShipmentEvent, error) {
	order := timelineAsc
	if newestFirst {
		order = timelineDesc
	}

	var events []models.ShipmentEvent
	if err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order(order).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) LatestByShipments(ctx context.Context, shipmentIDs []uint) (map[uint]models.ShipmentEvent, error) {
	latest := make(map[uint]models.ShipmentEvent, len(shipmentIDs))
	if len(shipmentIDs) == 0 {
		return latest, nil
	}

	var events []models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id IN ?", shipmentIDs).
		Order("shipment_id ASC").
		Order(timelineDesc).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		if _, seen := latest[event.ShipmentID]; !seen {
			latest[event.ShipmentID] = event
		}
	}

	return latest, nil
}
