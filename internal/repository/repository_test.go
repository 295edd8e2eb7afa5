package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Shipment{}, &models.ShipmentEvent{}, &models.Message{}, &models.AuditLog{}, &models.UploadRecord{}))
	return db
}

func seedShipment(t *testing.T, db *gorm.DB, adminID uint, tracking string, createdAt time.Time) models.Shipment {
	t.Helper()
	shipment := models.Shipment{
		TrackingNumber: tracking,
		Origin:         "NYC",
		Destination:    "LA",
		Status:         models.ShipmentStatusPending,
		CustomerEmail:  tracking + "@example.com",
		AdminID:        adminID,
		CreatedAt:      createdAt,
	}
	require.NoError(t, db.Create(&shipment).Error)
	return shipment
}

func TestShipmentRepositoryListScopesAndFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewShipmentRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	first := seedShipment(t, db, 1, "TRK00000001", now.Add(-2*time.Hour))
	second := seedShipment(t, db, 1, "TRK00000002", now.Add(-time.Hour))
	other := seedShipment(t, db, 2, "TRK00000003", now)

	deletedAt := now
	require.NoError(t, repo.SetDeleted(ctx, first.ID, &deletedAt))

	adminID := uint(1)
	shipments, total, err := repo.List(ctx, ShipmentFilter{AdminID: &adminID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, second.ID, shipments[0].ID)

	shipments, total, err = repo.List(ctx, ShipmentFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, other.ID, shipments[0].ID, "expected newest shipment first")

	shipments, _, err = repo.List(ctx, ShipmentFilter{Deleted: true})
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	require.Equal(t, first.ID, shipments[0].ID)

	shipments, _, err = repo.List(ctx, ShipmentFilter{Search: "trk00000003"})
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	require.Equal(t, other.ID, shipments[0].ID)

	require.NoError(t, repo.SetDeleted(ctx, first.ID, nil))
	restored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)
}

func TestShipmentRepositoryTrackingNumberIsUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewShipmentRepository(db)
	ctx := context.Background()

	seedShipment(t, db, 1, "TRK12345678", time.Now())

	exists, err := repo.TrackingNumberExists(ctx, "TRK12345678")
	require.NoError(t, err)
	require.True(t, exists)

	err = repo.Create(ctx, &models.Shipment{TrackingNumber: "TRK12345678", Status: models.ShipmentStatusPending, AdminID: 1})
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestEventRepositoryLatestBreaksTiesByInsertion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	shipment := seedShipment(t, db, 1, "TRK00000010", time.Now())
	at := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &models.ShipmentEvent{ShipmentID: shipment.ID, Status: models.EventStatusCreated, Timestamp: at.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.ShipmentEvent{ShipmentID: shipment.ID, Status: "IN_TRANSIT", Timestamp: at}))
	require.NoError(t, repo.Create(ctx, &models.ShipmentEvent{ShipmentID: shipment.ID, Status: "ON_HOLD", Timestamp: at}))

	latest, err := repo.Latest(ctx, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventStatus("ON_HOLD"), latest.Status)

	events, err := repo.ListByShipment(ctx, shipment.ID, false)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, models.EventStatusCreated, events[0].Status)

	byShipment, err := repo.LatestByShipments(ctx, []uint{shipment.ID})
	require.NoError(t, err)
	require.Equal(t, latest.ID, byShipment[shipment.ID].ID)

	_, err = repo.GetForShipment(ctx, shipment.ID+1, latest.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestShipmentRepositoryDeleteRemovesTimelineAndThread(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	shipment := seedShipment(t, db, 1, "TRK00000020", time.Now())
	require.NoError(t, store.Events().Create(ctx, &models.ShipmentEvent{ShipmentID: shipment.ID, Status: models.EventStatusCreated, Timestamp: time.Now()}))
	content := "hello"
	require.NoError(t, store.Messages().Create(ctx, &models.Message{ShipmentID: shipment.ID, Content: &content, Sender: models.MessageSenderClient}))

	require.NoError(t, store.Transaction(ctx, func(tx Store) error {
		return tx.Shipments().Delete(ctx, shipment.ID)
	}))

	_, err := store.Shipments().GetByID(ctx, shipment.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var events, messages int64
	require.NoError(t, db.Model(&models.ShipmentEvent{}).Where("shipment_id = ?", shipment.ID).Count(&events).Error)
	require.NoError(t, db.Model(&models.Message{}).Where("shipment_id = ?", shipment.ID).Count(&messages).Error)
	require.Zero(t, events)
	require.Zero(t, messages)
}

func TestStoreTransactionRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.Users().Create(ctx, &models.User{Email: "a@example.com", Password: "x", Role: models.RoleAdmin}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Users().GetByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMessageRepositoryMarkRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	shipment := seedShipment(t, db, 1, "TRK00000030", time.Now())
	for _, sender := range []models.MessageSender{models.MessageSenderClient, models.MessageSenderClient, models.MessageSenderAdmin} {
		content := string(sender)
		require.NoError(t, repo.Create(ctx, &models.Message{ShipmentID: shipment.ID, Content: &content, Sender: sender}))
	}

	updated, err := repo.MarkRead(ctx, shipment.ID, models.MessageSenderClient, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)

	updated, err = repo.MarkRead(ctx, shipment.ID, models.MessageSenderClient, time.Now())
	require.NoError(t, err)
	require.Zero(t, updated)

	thread, err := repo.ListByShipment(ctx, shipment.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	require.Equal(t, models.MessageSenderAdmin, thread[2].Sender)
	require.Nil(t, thread[2].ReadAt)
}

func TestAnalyticsRepositoryAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	seedShipment(t, db, 1, "TRK00000041", now.Add(-48*time.Hour))
	seedShipment(t, db, 1, "TRK00000042", now.Add(-24*time.Hour))
	delivered := seedShipment(t, db, 2, "TRK00000043", now)
	require.NoError(t, db.Model(&delivered).Updates(map[string]interface{}{"status": models.ShipmentStatusDelivered, "destination": "Chicago"}).Error)

	counts, err := repo.CountByStatus(ctx, nil)
	require.NoError(t, err)
	totals := map[models.ShipmentStatus]int64{}
	for _, row := range counts {
		totals[row.Status] = row.Total
	}
	require.Equal(t, int64(2), totals[models.ShipmentStatusPending])
	require.Equal(t, int64(1), totals[models.ShipmentStatusDelivered])

	adminID := uint(1)
	created, err := repo.CreatedSince(ctx, &adminID, now.Add(-36*time.Hour))
	require.NoError(t, err)
	require.Len(t, created, 1)

	destinations, err := repo.TopDestinations(ctx, nil, 5)
	require.NoError(t, err)
	require.Len(t, destinations, 2)
	require.Equal(t, "LA", destinations[0].Destination)
	require.Equal(t, int64(2), destinations[0].Total)
}
