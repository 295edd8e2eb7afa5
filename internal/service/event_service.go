package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

// ErrEventNotFound indicates the event is missing or belongs to another shipment.
var ErrEventNotFound = errors.New("shipment event not found")

// EventService mutates shipment timelines and keeps shipment status in step.
type EventService interface {
	Create(ctx context.Context, actor policy.Actor, shipmentID uint, req dto.CreateEventRequest) (dto.EventMutationResponse, error)
	Update(ctx context.Context, actor policy.Actor, shipmentID, eventID uint, req dto.UpdateEventRequest) (dto.EventMutationResponse, error)
	Delete(ctx context.Context, actor policy.Actor, shipmentID, eventID uint) (dto.EventMutationResponse, error)
}

type eventService struct {
	store    repository.Store
	validate *validator.Validate
	notifier ShipmentNotifier
	sync     *statusSynchronizer
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewEventService constructs the event service. notifier and publisher may be nil.
func NewEventService(store repository.Store, validate *validator.Validate, notifier ShipmentNotifier, publisher StatusPublisher, logger zerolog.Logger) EventService {
	return &eventService{
		store:    store,
		validate: validate,
		notifier: notifier,
		sync:     newStatusSynchronizer(publisher, logger),
		logger:   logger.With().Str("component", "event_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/atlas-logistics-api/internal/service/event"),
		now:      time.Now,
	}
}

// mutate locks the shipment, authorises the actor, applies fn and synchronises the status,
// all inside one transaction.
func (s *eventService) mutate(ctx context.Context, actor policy.Actor, shipmentID uint, trigger string, fn func(tx repository.Store, shipment models.Shipment) error) (models.Shipment, StatusChange, error) {
	var (
		shipment models.Shipment
		change   StatusChange
	)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Shipments().GetByIDForUpdate(ctx, shipmentID)
		if err != nil {
			return notFound(err, ErrShipmentNotFound)
		}
		if err := policy.Authorize(actor, locked); err != nil {
			return err
		}
		if err := fn(tx, locked); err != nil {
			return err
		}

		change, err = s.sync.Sync(ctx, tx, locked, trigger)
		if err != nil {
			return err
		}
		locked.Status = change.Current
		shipment = locked
		return nil
	})
	if err != nil {
		return models.Shipment{}, StatusChange{}, err
	}

	s.sync.Announce(ctx, change)
	return shipment, change, nil
}

func (s *eventService) Create(ctx context.Context, actor policy.Actor, shipmentID uint, req dto.CreateEventRequest) (dto.EventMutationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment_event.create")
	defer span.End()
	span.SetAttributes(attribute.Int("shipment.id", int(shipmentID)))

	if err := s.validate.Struct(req); err != nil {
		return dto.EventMutationResponse{}, err
	}
	status, ok := models.ParseEventStatus(req.Status)
	if !ok {
		return dto.EventMutationResponse{}, s.validate.Var(req.Status, "oneof=CREATED PENDING IN_TRANSIT PAUSED ON_HOLD OUT_FOR_DELIVERY DELIVERED RETURNED")
	}

	event := models.ShipmentEvent{
		Status:      status,
		Location:    sanitizeText(req.Location),
		Description: sanitizeText(req.Description),
		Timestamp:   s.now().UTC(),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		event.Timestamp = req.Timestamp.UTC()
	}

	shipment, change, err := s.mutate(ctx, actor, shipmentID, SyncTriggerCreate, func(tx repository.Store, shipment models.Shipment) error {
		event.ShipmentID = shipment.ID
		if err := tx.Events().Create(ctx, &event); err != nil {
			return err
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditCreateEvent, models.AuditEntityEvent, event.ID, map[string]interface{}{
			"shipment_id": shipment.ID,
			"status":      string(event.Status),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create event failed")
		return dto.EventMutationResponse{}, err
	}

	s.notifyStatus(ctx, shipment, change, event)

	response := dto.NewEventResponse(event)
	return dto.EventMutationResponse{Event: &response, ShipmentStatus: change.Current}, nil
}

func (s *eventService) Update(ctx context.Context, actor policy.Actor, shipmentID, eventID uint, req dto.UpdateEventRequest) (dto.EventMutationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment_event.update")
	defer span.End()
	span.SetAttributes(attribute.Int("shipment.id", int(shipmentID)), attribute.Int("event.id", int(eventID)))

	if err := s.validate.Struct(req); err != nil {
		return dto.EventMutationResponse{}, err
	}

	var updated models.ShipmentEvent
	_, change, err := s.mutate(ctx, actor, shipmentID, SyncTriggerUpdate, func(tx repository.Store, shipment models.Shipment) error {
		event, err := tx.Events().GetForShipment(ctx, shipment.ID, eventID)
		if err != nil {
			return notFound(err, ErrEventNotFound)
		}

		if req.Status != nil {
			status, ok := models.ParseEventStatus(*req.Status)
			if !ok {
				return s.validate.Var(*req.Status, "oneof=CREATED PENDING IN_TRANSIT PAUSED ON_HOLD OUT_FOR_DELIVERY DELIVERED RETURNED")
			}
			event.Status = status
		}
		if req.Location != nil {
			event.Location = sanitizeText(*req.Location)
		}
		if req.Description != nil {
			event.Description = sanitizeText(*req.Description)
		}
		if req.Timestamp != nil && !req.Timestamp.IsZero() {
			event.Timestamp = req.Timestamp.UTC()
		}
		if req.Latitude != nil {
			event.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			event.Longitude = req.Longitude
		}

		if err := tx.Events().Update(ctx, &event); err != nil {
			return err
		}
		updated = event

		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditUpdateEvent, models.AuditEntityEvent, event.ID, map[string]interface{}{
			"shipment_id": shipment.ID,
			"status":      string(event.Status),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update event failed")
		return dto.EventMutationResponse{}, err
	}

	response := dto.NewEventResponse(updated)
	return dto.EventMutationResponse{Event: &response, ShipmentStatus: change.Current}, nil
}

func (s *eventService) Delete(ctx context.Context, actor policy.Actor, shipmentID, eventID uint) (dto.EventMutationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment_event.delete")
	defer span.End()
	span.SetAttributes(attribute.Int("shipment.id", int(shipmentID)), attribute.Int("event.id", int(eventID)))

	_, change, err := s.mutate(ctx, actor, shipmentID, SyncTriggerDelete, func(tx repository.Store, shipment models.Shipment) error {
		event, err := tx.Events().GetForShipment(ctx, shipment.ID, eventID)
		if err != nil {
			return notFound(err, ErrEventNotFound)
		}
		if err := tx.Events().Delete(ctx, event.ID); err != nil {
			return notFound(err, ErrEventNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditDeleteEvent, models.AuditEntityEvent, event.ID, map[string]interface{}{
			"shipment_id": shipment.ID,
			"status":      string(event.Status),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete event failed")
		return dto.EventMutationResponse{}, err
	}

	return dto.EventMutationResponse{ShipmentStatus: change.Current}, nil
}

// notifyStatus emails the customer when an appended event became the newest entry.
func (s *eventService) notifyStatus(ctx context.Context, shipment models.Shipment, change StatusChange, event models.ShipmentEvent) {
	if s.notifier == nil || shipment.CustomerEmail == "" {
		return
	}
	if change.Latest == nil || change.Latest.ID != event.ID {
		return
	}
	if err := s.notifier.StatusChanged(ctx, shipment, event); err != nil {
		s.logger.Error().Err(err).
			Uint("shipment_id", shipment.ID).
			Str("status", string(event.Status)).
			Msg("event recorded but customer notification failed")
	}
}
