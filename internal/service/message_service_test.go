package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
)

func strPtr(v string) *string { return &v }

func TestMessageRelayBetweenCustomerAndAdmin(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)
	_, other := seedAdmin(t, db, "other@example.com", models.RoleAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	svc := NewMessageService(store.Shipments(), store.Messages(), testValidator(), nil, MessageConfig{PollInterval: 3 * time.Second}, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)

	fromCustomer, err := svc.PostAsCustomer(ctx, created.TrackingNumber, dto.PostMessageRequest{Content: strPtr("  Where is my <script>x</script>parcel?  ")})
	require.NoError(t, err)
	require.Equal(t, models.MessageSenderClient, fromCustomer.Sender)
	require.Equal(t, "Where is my parcel?", *fromCustomer.Content)
	require.Nil(t, fromCustomer.ReadAt)

	fromAdmin, err := svc.PostAsAdmin(ctx, owner, created.ID, dto.PostMessageRequest{ImageURL: strPtr("https://cdn.example.com/proof.png")})
	require.NoError(t, err)
	require.Equal(t, models.MessageSenderAdmin, fromAdmin.Sender)
	require.Nil(t, fromAdmin.Content)

	thread, meta, err := svc.CustomerThread(ctx, created.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	require.Equal(t, fromCustomer.ID, thread[0].ID)
	require.Equal(t, fromAdmin.ID, thread[1].ID)
	require.EqualValues(t, 3000, meta.PollIntervalMS)
	require.Equal(t, 2, meta.Count)

	_, _, err = svc.Thread(ctx, other, created.ID)
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	_, err = svc.PostAsAdmin(ctx, other, created.ID, dto.PostMessageRequest{Content: strPtr("hi")})
	require.ErrorIs(t, err, policy.ErrUnauthorized)

	read, err := svc.MarkRead(ctx, owner, created.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, read.Updated)

	again, err := svc.MarkRead(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Zero(t, again.Updated)

	adminThread, _, err := svc.Thread(ctx, owner, created.ID)
	require.NoError(t, err)
	require.NotNil(t, adminThread[0].ReadAt)
	require.Nil(t, adminThread[1].ReadAt)
}

func TestMessagePostRejectsEmptyMessages(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	svc := NewMessageService(store.Shipments(), store.Messages(), testValidator(), nil, MessageConfig{}, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)

	_, err = svc.PostAsCustomer(ctx, created.TrackingNumber, dto.PostMessageRequest{})
	require.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.PostAsCustomer(ctx, created.TrackingNumber, dto.PostMessageRequest{Content: strPtr("   ")})
	require.ErrorIs(t, err, ErrEmptyMessage)
	_, err = svc.PostAsAdmin(ctx, owner, created.ID, dto.PostMessageRequest{Content: strPtr("<p></p>")})
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.PostAsCustomer(ctx, "TRK00000000", dto.PostMessageRequest{Content: strPtr("hi")})
	require.ErrorIs(t, err, ErrShipmentNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestMessageEditAndDelete(t *testing.T) {
	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)
	_, other := seedAdmin(t, db, "other@example.com", models.RoleAdmin)
	_, super := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	svc := NewMessageService(store.Shipments(), store.Messages(), testValidator(), nil, MessageConfig{}, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)
	posted, err := svc.PostAsAdmin(ctx, owner, created.ID, dto.PostMessageRequest{Content: strPtr("first draft")})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, other, posted.ID, dto.EditMessageRequest{Content: "hijack"})
	require.ErrorIs(t, err, policy.ErrUnauthorized)

	edited, err := svc.Edit(ctx, super, posted.ID, dto.EditMessageRequest{Content: "final"})
	require.NoError(t, err)
	require.Equal(t, "final", *edited.Content)

	require.ErrorIs(t, svc.Delete(ctx, other, posted.ID), policy.ErrUnauthorized)
	require.NoError(t, svc.Delete(ctx, owner, posted.ID))
	require.ErrorIs(t, svc.Delete(ctx, owner, posted.ID), ErrMessageNotFound)

	_, err = svc.Edit(ctx, owner, 9999, dto.EditMessageRequest{Content: "x"})
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageThreadCacheIsInvalidatedOnWrite(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	db, store := setupStore(t)
	_, owner := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)

	shipments := NewShipmentService(store, testValidator(), nil, nil, testLogger())
	svc := NewMessageService(store.Shipments(), store.Messages(), testValidator(), client, MessageConfig{CachePrefix: "atlas", CacheTTL: time.Minute}, testLogger())
	ctx := context.Background()

	created, err := shipments.Create(ctx, owner, dto.CreateShipmentRequest{SenderInfo: "a", ReceiverInfo: "b"})
	require.NoError(t, err)
	_, err = svc.PostAsCustomer(ctx, created.TrackingNumber, dto.PostMessageRequest{Content: strPtr("one")})
	require.NoError(t, err)

	thread, _, err := svc.Thread(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)

	key := fmt.Sprintf("atlas:messages:%d", created.ID)
	require.True(t, server.Exists(key))
	raw, err := server.Get(key)
	require.NoError(t, err)
	var cached []dto.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.Len(t, cached, 1)

	_, err = svc.PostAsCustomer(ctx, created.TrackingNumber, dto.PostMessageRequest{Content: strPtr("two")})
	require.NoError(t, err)
	require.False(t, server.Exists(key))

	thread, _, err = svc.CustomerThread(ctx, created.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, thread, 2)
}
