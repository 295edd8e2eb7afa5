package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
	"github.com/noah-isme/atlas-logistics-api/pkg/label"
)

// ErrShipmentNotFound indicates the shipment does not exist.
var ErrShipmentNotFound = errors.New("shipment not found")

const (
	initialEventDescription = "Shipment created"
	systemLocation          = "System"
)

// ShipmentService manages the shipment lifecycle.
type ShipmentService interface {
	Create(ctx context.Context, actor policy.Actor, req dto.CreateShipmentRequest) (dto.ShipmentResponse, error)
	List(ctx context.Context, actor policy.Actor, req dto.ShipmentListRequest) (dto.ShipmentListResponse, error)
	Get(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error)
	Update(ctx context.Context, actor policy.Actor, id uint, req dto.UpdateShipmentRequest) (dto.ShipmentResponse, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
	Restore(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error)
	ForceDelete(ctx context.Context, actor policy.Actor, id uint) error
	Clone(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error)
	Label(ctx context.Context, actor policy.Actor, id uint) ([]byte, string, error)
	Track(ctx context.Context, trackingNumber string) (dto.PublicShipmentResponse, error)
}

type shipmentService struct {
	store    repository.Store
	validate *validator.Validate
	notifier ShipmentNotifier
	sync     *statusSynchronizer
	generate TrackingNumberGenerator
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewShipmentService constructs the shipment service. notifier and publisher may be nil.
func NewShipmentService(store repository.Store, validate *validator.Validate, notifier ShipmentNotifier, publisher StatusPublisher, logger zerolog.Logger) ShipmentService {
	return &shipmentService{
		store:    store,
		validate: validate,
		notifier: notifier,
		sync:     newStatusSynchronizer(publisher, logger),
		generate: NewTrackingNumberGenerator(nil),
		logger:   logger.With().Str("component", "shipment_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/atlas-logistics-api/internal/service/shipment"),
		now:      time.Now,
	}
}

func (s *shipmentService) Create(ctx context.Context, actor policy.Actor, req dto.CreateShipmentRequest) (dto.ShipmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.create")
	defer span.End()

	if err := policy.RequireAdmin(actor); err != nil {
		return dto.ShipmentResponse{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ShipmentResponse{}, err
	}

	createdAt := s.now().UTC()
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}

	shipment := models.Shipment{
		SenderInfo:         sanitizeText(req.SenderInfo),
		ReceiverInfo:       sanitizeText(req.ReceiverInfo),
		Origin:             sanitizeText(req.Origin),
		Destination:        sanitizeText(req.Destination),
		CustomerEmail:      strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		EstimatedDelivery:  utcPtr(req.EstimatedDelivery),
		ProductDescription: sanitizeText(req.ProductDescription),
		ImageURLs:          datatypes.JSONSlice[string](cleanURLs(req.ImageURLs)),
		AdminID:            actor.ID,
		CreatedAt:          createdAt,
	}

	created, change, err := s.register(ctx, actor, shipment, createdAt, models.AuditCreateShipment, map[string]interface{}{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return dto.ShipmentResponse{}, err
	}

	span.SetAttributes(attribute.String("shipment.tracking_number", created.TrackingNumber))
	observability.ShipmentsCreated().WithLabelValues("create").Inc()
	s.sync.Announce(ctx, change)
	s.notifyCreated(ctx, created)

	return s.detail(ctx, created)
}

// register inserts the shipment with a fresh tracking number, writes the CREATED event,
// synchronises the status and records the audit entry in one transaction.
func (s *shipmentService) register(ctx context.Context, actor policy.Actor, shipment models.Shipment, eventAt time.Time, action models.AuditAction, details map[string]interface{}) (models.Shipment, StatusChange, error) {
	trigger := SyncTriggerCreate
	if action == models.AuditCloneShipment {
		trigger = SyncTriggerClone
	}

	var change StatusChange
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		shipment.Status = models.ShipmentStatusPending

		_, err := allocateTrackingNumber(ctx, s.generate, tx.Shipments().TrackingNumberExists, func(candidate string) error {
			shipment.ID = 0
			shipment.TrackingNumber = candidate
			// The savepoint keeps the outer transaction usable after a unique violation.
			return tx.Transaction(ctx, func(inner repository.Store) error {
				return inner.Shipments().Create(ctx, &shipment)
			})
		})
		if err != nil {
			return err
		}

		location := shipment.Origin
		if location == "" {
			location = systemLocation
		}
		event := models.ShipmentEvent{
			ShipmentID:  shipment.ID,
			Status:      models.EventStatusCreated,
			Location:    location,
			Description: initialEventDescription,
			Timestamp:   eventAt,
		}
		if err := tx.Events().Create(ctx, &event); err != nil {
			return err
		}

		locked, err := tx.Shipments().GetByIDForUpdate(ctx, shipment.ID)
		if err != nil {
			return err
		}
		change, err = s.sync.Sync(ctx, tx, locked, trigger)
		if err != nil {
			return err
		}
		shipment.Status = change.Current

		details["tracking_number"] = shipment.TrackingNumber
		return recordAudit(ctx, tx.AuditLogs(), actor, action, models.AuditEntityShipment, shipment.ID, details)
	})
	if err != nil {
		return models.Shipment{}, StatusChange{}, err
	}

	return shipment, change, nil
}

func (s *shipmentService) notifyCreated(ctx context.Context, shipment models.Shipment) {
	if s.notifier == nil || shipment.CustomerEmail == "" {
		return
	}
	if err := s.notifier.ShipmentCreated(ctx, shipment); err != nil {
		s.logger.Error().Err(err).
			Uint("shipment_id", shipment.ID).
			Str("tracking_number", shipment.TrackingNumber).
			Msg("shipment created but customer notification failed")
	}
}

func (s *shipmentService) List(ctx context.Context, actor policy.Actor, req dto.ShipmentListRequest) (dto.ShipmentListResponse, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return dto.ShipmentListResponse{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return dto.ShipmentListResponse{}, err
	}

	filter := repository.ShipmentFilter{
		AdminID:  policy.Scope(actor, req.ViewAs),
		Deleted:  req.Deleted,
		Status:   models.ShipmentStatus(req.Status),
		Search:   strings.TrimSpace(req.Search),
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize, defaultPageSize, maxPageSize),
	}

	shipments, total, err := s.store.Shipments().List(ctx, filter)
	if err != nil {
		return dto.ShipmentListResponse{}, err
	}

	ids := make([]uint, 0, len(shipments))
	for _, shipment := range shipments {
		ids = append(ids, shipment.ID)
	}
	latest, err := s.store.Events().LatestByShipments(ctx, ids)
	if err != nil {
		return dto.ShipmentListResponse{}, err
	}

	items := make([]dto.ShipmentResponse, 0, len(shipments))
	for _, shipment := range shipments {
		item := dto.NewShipmentResponse(shipment)
		if event, ok := latest[shipment.ID]; ok {
			response := dto.NewEventResponse(event)
			item.LatestEvent = &response
		}
		items = append(items, item)
	}

	return dto.ShipmentListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// load fetches the shipment and checks ownership, in that order.
func (s *shipmentService) load(ctx context.Context, repo repository.ShipmentRepository, actor policy.Actor, id uint) (models.Shipment, error) {
	shipment, err := repo.GetByID(ctx, id)
	if err != nil {
		return models.Shipment{}, notFound(err, ErrShipmentNotFound)
	}
	if err := policy.Authorize(actor, shipment); err != nil {
		return models.Shipment{}, err
	}
	return shipment, nil
}

func (s *shipmentService) Get(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error) {
	shipment, err := s.load(ctx, s.store.Shipments(), actor, id)
	if err != nil {
		return dto.ShipmentResponse{}, err
	}
	return s.detail(ctx, shipment)
}

func (s *shipmentService) detail(ctx context.Context, shipment models.Shipment) (dto.ShipmentResponse, error) {
	events, err := s.store.Events().ListByShipment(ctx, shipment.ID, true)
	if err != nil {
		return dto.ShipmentResponse{}, err
	}
	if shipment.Admin == nil {
		if admin, err := s.store.Users().GetByID(ctx, shipment.AdminID); err == nil {
			shipment.Admin = &admin
		}
	}

	response := dto.NewShipmentResponse(shipment)
	response.Events = dto.NewEventResponseSlice(events)
	if len(events) > 0 {
		latest := response.Events[0]
		response.LatestEvent = &latest
	}
	return response, nil
}

func (s *shipmentService) Update(ctx context.Context, actor policy.Actor, id uint, req dto.UpdateShipmentRequest) (dto.ShipmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ShipmentResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.SenderInfo != nil {
		updates["sender_info"] = sanitizeText(*req.SenderInfo)
	}
	if req.ReceiverInfo != nil {
		updates["receiver_info"] = sanitizeText(*req.ReceiverInfo)
	}
	if req.Origin != nil {
		updates["origin"] = sanitizeText(*req.Origin)
	}
	if req.Destination != nil {
		updates["destination"] = sanitizeText(*req.Destination)
	}
	if req.CustomerEmail != nil {
		updates["customer_email"] = strings.ToLower(strings.TrimSpace(*req.CustomerEmail))
	}
	if req.EstimatedDelivery != nil {
		updates["estimated_delivery"] = req.EstimatedDelivery.UTC()
	}
	if req.ProductDescription != nil {
		updates["product_description"] = sanitizeText(*req.ProductDescription)
	}
	if req.ImageURLs != nil {
		updates["image_urls"] = datatypes.JSONSlice[string](cleanURLs(*req.ImageURLs))
	}

	var updated models.Shipment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.load(ctx, tx.Shipments(), actor, id); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Shipments().Update(ctx, id, updates); err != nil {
			return notFound(err, ErrShipmentNotFound)
		}

		fields := make([]string, 0, len(updates))
		for field := range updates {
			fields = append(fields, field)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditUpdateShipment, models.AuditEntityShipment, id, map[string]interface{}{
			"fields": fields,
		})
	})
	if err != nil {
		return dto.ShipmentResponse{}, err
	}

	updated, err = s.store.Shipments().GetByID(ctx, id)
	if err != nil {
		return dto.ShipmentResponse{}, notFound(err, ErrShipmentNotFound)
	}
	return s.detail(ctx, updated)
}

func (s *shipmentService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		shipment, err := s.load(ctx, tx.Shipments(), actor, id)
		if err != nil {
			return err
		}
		deletedAt := s.now().UTC()
		if err := tx.Shipments().SetDeleted(ctx, id, &deletedAt); err != nil {
			return notFound(err, ErrShipmentNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditDeleteShipment, models.AuditEntityShipment, id, map[string]interface{}{
			"tracking_number": shipment.TrackingNumber,
		})
	})
}

func (s *shipmentService) Restore(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error) {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		shipment, err := s.load(ctx, tx.Shipments(), actor, id)
		if err != nil {
			return err
		}
		if err := tx.Shipments().SetDeleted(ctx, id, nil); err != nil {
			return notFound(err, ErrShipmentNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditRestoreShipment, models.AuditEntityShipment, id, map[string]interface{}{
			"tracking_number": shipment.TrackingNumber,
		})
	})
	if err != nil {
		return dto.ShipmentResponse{}, err
	}

	restored, err := s.store.Shipments().GetByID(ctx, id)
	if err != nil {
		return dto.ShipmentResponse{}, notFound(err, ErrShipmentNotFound)
	}
	return s.detail(ctx, restored)
}

func (s *shipmentService) ForceDelete(ctx context.Context, actor policy.Actor, id uint) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		shipment, err := s.load(ctx, tx.Shipments(), actor, id)
		if err != nil {
			return err
		}
		if err := tx.Shipments().Delete(ctx, id); err != nil {
			return notFound(err, ErrShipmentNotFound)
		}
		return recordAudit(ctx, tx.AuditLogs(), actor, models.AuditDeleteShipmentPermanent, models.AuditEntityShipment, id, map[string]interface{}{
			"tracking_number": shipment.TrackingNumber,
		})
	})
}

// Clone copies the descriptive fields of a shipment into a new PENDING shipment owned by the actor.
// Attachments, events and messages are not copied.
func (s *shipmentService) Clone(ctx context.Context, actor policy.Actor, id uint) (dto.ShipmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.clone")
	defer span.End()

	if err := policy.RequireAdmin(actor); err != nil {
		return dto.ShipmentResponse{}, err
	}
	// Any admin may clone any shipment; the copy belongs to the caller.
	source, err := s.store.Shipments().GetByID(ctx, id)
	if err != nil {
		return dto.ShipmentResponse{}, notFound(err, ErrShipmentNotFound)
	}

	clone := models.Shipment{
		SenderInfo:         source.SenderInfo,
		ReceiverInfo:       source.ReceiverInfo,
		Origin:             source.Origin,
		Destination:        source.Destination,
		CustomerEmail:      source.CustomerEmail,
		EstimatedDelivery:  source.EstimatedDelivery,
		ProductDescription: source.ProductDescription,
		ImageURLs:          datatypes.JSONSlice[string]{},
		AdminID:            actor.ID,
	}

	now := s.now().UTC()
	clone.CreatedAt = now
	created, change, err := s.register(ctx, actor, clone, now, models.AuditCloneShipment, map[string]interface{}{
		"source_id":              source.ID,
		"source_tracking_number": source.TrackingNumber,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clone failed")
		return dto.ShipmentResponse{}, err
	}

	observability.ShipmentsCreated().WithLabelValues("clone").Inc()
	s.sync.Announce(ctx, change)

	return s.detail(ctx, created)
}

func (s *shipmentService) Label(ctx context.Context, actor policy.Actor, id uint) ([]byte, string, error) {
	shipment, err := s.load(ctx, s.store.Shipments(), actor, id)
	if err != nil {
		return nil, "", err
	}

	pdf, err := label.Render(label.Data{
		TrackingNumber:    shipment.TrackingNumber,
		Status:            string(shipment.Status),
		SenderInfo:        shipment.SenderInfo,
		ReceiverInfo:      shipment.ReceiverInfo,
		Origin:            shipment.Origin,
		Destination:       shipment.Destination,
		Contents:          shipment.ProductDescription,
		CreatedAt:         shipment.CreatedAt,
		EstimatedDelivery: shipment.EstimatedDelivery,
	})
	if err != nil {
		return nil, "", err
	}

	return pdf, shipment.TrackingNumber, nil
}

// Track returns the customer view of a live shipment, events oldest first.
func (s *shipmentService) Track(ctx context.Context, trackingNumber string) (dto.PublicShipmentResponse, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return dto.PublicShipmentResponse{}, ErrShipmentNotFound
	}

	shipment, err := s.store.Shipments().GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return dto.PublicShipmentResponse{}, notFound(err, ErrShipmentNotFound)
	}

	events, err := s.store.Events().ListByShipment(ctx, shipment.ID, false)
	if err != nil {
		return dto.PublicShipmentResponse{}, err
	}

	return dto.NewPublicShipmentResponse(shipment, events), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	value := t.UTC()
	return &value
}

func cleanURLs(urls []string) []string {
	cleaned := make([]string, 0, len(urls))
	for _, raw := range urls {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
