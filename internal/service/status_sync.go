package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

// Status sync triggers.
const (
	SyncTriggerCreate = "create"
	SyncTriggerUpdate = "update"
	SyncTriggerDelete = "delete"
	SyncTriggerClone  = "clone"
)

// StatusChange is the outcome of recomputing a shipment's status.
type StatusChange struct {
	ShipmentID     uint
	TrackingNumber string
	Previous       models.ShipmentStatus
	Current        models.ShipmentStatus
	Trigger        string
	At             time.Time
	// Latest is nil when the shipment has no events left.
	Latest *models.ShipmentEvent
}

// Changed reports whether the stored status moved.
func (c StatusChange) Changed() bool {
	return c.Previous != c.Current
}

// DeriveStatus returns the shipment status implied by the newest event.
func DeriveStatus(latest *models.ShipmentEvent) models.ShipmentStatus {
	if latest == nil {
		return models.ShipmentStatusPending
	}
	return latest.Status.ShipmentStatus()
}

// statusSynchronizer keeps Shipment.status equal to the status of its newest event.
type statusSynchronizer struct {
	publisher StatusPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func newStatusSynchronizer(publisher StatusPublisher, logger zerolog.Logger) *statusSynchronizer {
	return &statusSynchronizer{
		publisher: publisher,
		logger:    logger.With().Str("component", "status_sync").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/atlas-logistics-api/internal/service/status_sync"),
		now:       time.Now,
	}
}

// Sync recomputes and stores the status of shipment. It must run on a
// transactional store after the shipment row has been locked and the event
// mutation applied, so the read sees the mutation and concurrent writers wait.
func (s *statusSynchronizer) Sync(ctx context.Context, tx repository.Store, shipment models.Shipment, trigger string) (StatusChange, error) {
	ctx, span := s.tracer.Start(ctx, "shipment.status_sync")
	defer span.End()
	span.SetAttributes(
		attribute.Int("shipment.id", int(shipment.ID)),
		attribute.String("sync.trigger", trigger),
	)

	change := StatusChange{
		ShipmentID:     shipment.ID,
		TrackingNumber: shipment.TrackingNumber,
		Previous:       shipment.Status,
		Trigger:        trigger,
		At:             s.now().UTC(),
	}

	latest, err := tx.Events().Latest(ctx, shipment.ID)
	switch {
	case err == nil:
		change.Latest = &latest
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		span.RecordError(err)
		return StatusChange{}, err
	}

	change.Current = DeriveStatus(change.Latest)
	span.SetAttributes(
		attribute.String("status.previous", string(change.Previous)),
		attribute.String("status.current", string(change.Current)),
	)

	if change.Changed() {
		if err := tx.Shipments().UpdateStatus(ctx, shipment.ID, change.Current); err != nil {
			span.RecordError(err)
			return StatusChange{}, err
		}
	}

	return change, nil
}

// Announce records metrics for a committed change and publishes it when the status moved.
func (s *statusSynchronizer) Announce(ctx context.Context, change StatusChange) {
	observability.StatusSyncs().WithLabelValues(change.Trigger, strconv.FormatBool(change.Changed())).Inc()

	if !change.Changed() || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatusChange(ctx, change); err != nil {
		s.logger.Warn().Err(err).
			Uint("shipment_id", change.ShipmentID).
			Str("status", string(change.Current)).
			Msg("failed to publish status change")
	}
}
