package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
)

func TestShipmentLifecycleFollowsEventTimeline(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)
	publisher := &publisherStub{}

	shipments := NewShipmentService(store, testValidator(), nil, publisher, testLogger())
	events := NewEventService(store, testValidator(), nil, publisher, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, actor, dto.CreateShipmentRequest{
		SenderInfo:   "Acme Corp",
		ReceiverInfo: "Jane Doe",
		Origin:       "NYC",
		Destination:  "LA",
	})
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusPending, created.Status)
	require.Regexp(t, `^TRK\d{8}$`, created.TrackingNumber)
	require.Len(t, created.Events, 1)
	require.Equal(t, models.EventStatusCreated, created.Events[0].Status)
	require.Equal(t, "NYC", created.Events[0].Location)
	require.Equal(t, "Shipment created", created.Events[0].Description)

	inTransit := "IN_TRANSIT"
	updated, err := events.Update(ctx, actor, created.ID, created.Events[0].ID, dto.UpdateEventRequest{Status: &inTransit})
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusInTransit, updated.ShipmentStatus)

	detail, err := shipments.Get(ctx, actor, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusInTransit, detail.Status)

	deleted, err := events.Delete(ctx, actor, created.ID, created.Events[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusPending, deleted.ShipmentStatus)

	detail, err = shipments.Get(ctx, actor, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusPending, detail.Status)
	require.Empty(t, detail.Events)

	require.Len(t, publisher.changes, 2)
	require.Equal(t, models.ShipmentStatusInTransit, publisher.changes[0].Current)
	require.Equal(t, models.ShipmentStatusPending, publisher.changes[1].Current)
}

func TestShipmentCreateWithoutOriginUsesSystemLocation(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)
	notifier := &notifierStub{}

	svc := NewShipmentService(store, testValidator(), notifier, nil, testLogger())
	created, err := svc.Create(context.Background(), actor, dto.CreateShipmentRequest{
		SenderInfo:    "<b>Acme</b> & Sons",
		ReceiverInfo:  "Jane",
		CustomerEmail: "Jane@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "System", created.Events[0].Location)
	require.Equal(t, "Acme & Sons", created.SenderInfo)
	require.Equal(t, "jane@example.com", created.CustomerEmail)
	require.Equal(t, []string{created.TrackingNumber}, notifier.created)

	var audit models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditCreateShipment).First(&audit).Error)
	require.Equal(t, created.ID, audit.EntityID)
	require.Equal(t, created.TrackingNumber, audit.Details["tracking_number"])
}

func TestShipmentCreateSucceedsWhenNotificationFails(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)
	notifier := &notifierStub{err: errors.New("smtp down")}

	svc := NewShipmentService(store, testValidator(), notifier, nil, testLogger())
	created, err := svc.Create(context.Background(), actor, dto.CreateShipmentRequest{
		SenderInfo:    "Acme",
		ReceiverInfo:  "Jane",
		CustomerEmail: "jane@example.com",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Shipment{}).Where("id = ?", created.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestShipmentCreateRejectsInvalidPayload(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	_, err := svc.Create(context.Background(), actor, dto.CreateShipmentRequest{ReceiverInfo: "Jane"})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), policy.Actor{}, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.ErrorIs(t, err, policy.ErrUnauthorized)
}

func TestShipmentOwnershipIsEnforced(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)
	_, other := seedAdmin(t, db, "other@example.com", models.RoleAdmin)
	_, super := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "Acme", ReceiverInfo: "Jane"})
	require.NoError(t, err)

	destination := "Boston"
	_, err = svc.Update(ctx, other, created.ID, dto.UpdateShipmentRequest{Destination: &destination})
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	require.ErrorIs(t, svc.Delete(ctx, other, created.ID), policy.ErrUnauthorized)
	_, err = svc.Restore(ctx, other, created.ID)
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	require.ErrorIs(t, svc.ForceDelete(ctx, other, created.ID), policy.ErrUnauthorized)
	_, err = svc.Get(ctx, other, created.ID)
	require.ErrorIs(t, err, policy.ErrUnauthorized)

	updated, err := svc.Update(ctx, super, created.ID, dto.UpdateShipmentRequest{Destination: &destination})
	require.NoError(t, err)
	require.Equal(t, "Boston", updated.Destination)
	require.Equal(t, owner.ID, updated.AdminID)

	_, err = svc.Get(ctx, owner, 9999)
	require.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestShipmentSoftDeleteRestoreAndForceDelete(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	messages := NewMessageService(store.Shipments(), store.Messages(), testValidator(), nil, MessageConfig{}, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, dto.CreateShipmentRequest{SenderInfo: "Acme", ReceiverInfo: "Jane"})
	require.NoError(t, err)
	text := "hello"
	_, err = messages.PostAsAdmin(ctx, actor, created.ID, dto.PostMessageRequest{Content: &text})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, created.ID))

	_, err = svc.Track(ctx, created.TrackingNumber)
	require.ErrorIs(t, err, ErrShipmentNotFound)

	live, err := svc.List(ctx, actor, dto.ShipmentListRequest{})
	require.NoError(t, err)
	require.Empty(t, live.Items)

	bin, err := svc.List(ctx, actor, dto.ShipmentListRequest{Deleted: true})
	require.NoError(t, err)
	require.Len(t, bin.Items, 1)
	require.True(t, bin.Items[0].IsDeleted)
	require.NotNil(t, bin.Items[0].DeletedAt)

	restored, err := svc.Restore(ctx, actor, created.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)

	require.NoError(t, svc.ForceDelete(ctx, actor, created.ID))

	_, err = svc.Restore(ctx, actor, created.ID)
	require.ErrorIs(t, err, ErrShipmentNotFound)

	var events, msgs int64
	require.NoError(t, db.Model(&models.ShipmentEvent{}).Where("shipment_id = ?", created.ID).Count(&events).Error)
	require.NoError(t, db.Model(&models.Message{}).Where("shipment_id = ?", created.ID).Count(&msgs).Error)
	require.Zero(t, events)
	require.Zero(t, msgs)

	var actions []models.AuditAction
	require.NoError(t, db.Model(&models.AuditLog{}).Order("id ASC").Pluck("action", &actions).Error)
	require.Equal(t, []models.AuditAction{
		models.AuditCreateShipment,
		models.AuditDeleteShipment,
		models.AuditRestoreShipment,
		models.AuditDeleteShipmentPermanent,
	}, actions)
}

func TestShipmentCloneCopiesDescriptiveFields(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)
	_, super := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	events := NewEventService(store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	eta := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	source, err := shipments.Create(ctx, owner, dto.CreateShipmentRequest{
		SenderInfo:         "Acme",
		ReceiverInfo:       "Jane",
		Origin:             "NYC",
		Destination:        "LA",
		CustomerEmail:      "jane@example.com",
		EstimatedDelivery:  &eta,
		ProductDescription: "Books",
		ImageURLs:          []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)
	_, err = events.Create(ctx, owner, source.ID, dto.CreateEventRequest{Status: "DELIVERED"})
	require.NoError(t, err)

	clone, err := shipments.Clone(ctx, super, source.ID)
	require.NoError(t, err)
	require.NotEqual(t, source.ID, clone.ID)
	require.NotEqual(t, source.TrackingNumber, clone.TrackingNumber)
	require.Equal(t, models.ShipmentStatusPending, clone.Status)
	require.Empty(t, clone.ImageURLs)
	require.Equal(t, source.Origin, clone.Origin)
	require.Equal(t, source.Destination, clone.Destination)
	require.Equal(t, source.SenderInfo, clone.SenderInfo)
	require.Equal(t, source.ReceiverInfo, clone.ReceiverInfo)
	require.Equal(t, source.ProductDescription, clone.ProductDescription)
	require.Equal(t, super.ID, clone.AdminID)
	require.Len(t, clone.Events, 1)
	require.Equal(t, models.EventStatusCreated, clone.Events[0].Status)

	var audit models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditCloneShipment).First(&audit).Error)
	require.Equal(t, source.TrackingNumber, audit.Details["source_tracking_number"])
}

func TestShipmentCloneByAnyAdmin(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)
	_, other := seedAdmin(t, db, "other@example.com", models.RoleAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	source, err := svc.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "Acme", ReceiverInfo: "Jane", Origin: "NYC"})
	require.NoError(t, err)

	clone, err := svc.Clone(ctx, other, source.ID)
	require.NoError(t, err)
	require.Equal(t, other.ID, clone.AdminID)
	require.Equal(t, "NYC", clone.Origin)

	_, err = svc.Get(ctx, other, clone.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, other, source.ID)
	require.ErrorIs(t, err, policy.ErrUnauthorized)

	_, err = svc.Clone(ctx, other, 9999)
	require.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestShipmentListScopesByOwner(t *testing.T) {
	db, store := setupStore(t)
	_, first := seedAdmin(t, db, "first@example.com", models.RoleAdmin)
	_, second := seedAdmin(t, db, "second@example.com", models.RoleAdmin)
	_, super := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, first, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, second, dto.CreateShipmentRequest{SenderInfo: "c", ReceiverInfo: "d"})
	require.NoError(t, err)

	own, err := svc.List(ctx, first, dto.ShipmentListRequest{ViewAs: &second.ID})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	require.Equal(t, first.ID, own.Items[0].AdminID)
	require.NotNil(t, own.Items[0].LatestEvent)

	all, err := svc.List(ctx, super, dto.ShipmentListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.EqualValues(t, 2, all.Pagination.TotalItems)

	narrowed, err := svc.List(ctx, super, dto.ShipmentListRequest{ViewAs: &second.ID})
	require.NoError(t, err)
	require.Len(t, narrowed.Items, 1)
	require.Equal(t, second.ID, narrowed.Items[0].AdminID)
}

func TestShipmentTrackReturnsEventsOldestFirst(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	events := NewEventService(store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, actor, dto.CreateShipmentRequest{SenderInfo: "Acme", ReceiverInfo: "Jane", Origin: "NYC"})
	require.NoError(t, err)
	later := time.Now().UTC().Add(time.Hour)
	_, err = events.Create(ctx, actor, created.ID, dto.CreateEventRequest{Status: "IN_TRANSIT", Location: "Chicago", Timestamp: &later})
	require.NoError(t, err)

	tracked, err := shipments.Track(ctx, created.TrackingNumber)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusInTransit, tracked.Status)
	require.Len(t, tracked.Events, 2)
	require.Equal(t, models.EventStatusCreated, tracked.Events[0].Status)
	require.Equal(t, "Chicago", tracked.Events[1].Location)

	_, err = shipments.Track(ctx, "TRK00000000")
	require.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestShipmentLabelRendersPDF(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	created, err := svc.Create(context.Background(), actor, dto.CreateShipmentRequest{SenderInfo: "Acme", ReceiverInfo: "Jane"})
	require.NoError(t, err)

	pdf, trackingNumber, err := svc.Label(context.Background(), actor, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.TrackingNumber, trackingNumber)
	require.Equal(t, "%PDF", string(pdf[:4]))
}

func TestShipmentCreateRetriesTrackingNumberCollisions(t *testing.T) {
	db, store := setupStore(t)
	_, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)

	svc := NewShipmentService(store, testValidator(), nil, nil, testLogger()).(*shipmentService)
	ctx := context.Background()

	candidates := []string{"TRK11111111", "TRK11111111", "TRK22222222"}
	svc.generate = func() (string, error) {
		next := candidates[0]
		candidates = candidates[1:]
		return next, nil
	}

	first, err := svc.Create(ctx, actor, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)
	require.Equal(t, "TRK11111111", first.TrackingNumber)

	second, err := svc.Create(ctx, actor, dto.CreateShipmentRequest{SenderInfo: "c", ReceiverInfo: "d"})
	require.NoError(t, err)
	require.Equal(t, "TRK22222222", second.TrackingNumber)
}
