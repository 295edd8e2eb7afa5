package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
)

func newTestUserService(t *testing.T) (*userService, func() (superID, adminID uint)) {
	t.Helper()
	db, store := setupStore(t)
	svc := NewUserService(store, testValidator(), testLogger()).(*userService)
	svc.cost = bcrypt.MinCost
	return svc, func() (uint, uint) {
		super, _ := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)
		admin, _ := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)
		return super.ID, admin.ID
	}
}

func TestUserServiceLifecycle(t *testing.T) {
	svc, seed := newTestUserService(t)
	superID, _ := seed()
	super := policy.Actor{ID: superID, Role: models.RoleSuperAdmin}
	ctx := context.Background()

	created, err := svc.Create(ctx, super, dto.CreateUserRequest{Email: "New@Example.com", Name: "New", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", created.Email)
	require.Equal(t, models.RoleAdmin, created.Role)

	_, err = svc.Create(ctx, super, dto.CreateUserRequest{Email: "new@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, svc.Delete(ctx, super, created.ID))

	active, err := svc.List(ctx, super, false)
	require.NoError(t, err)
	require.Len(t, active, 2)

	deleted, err := svc.List(ctx, super, true)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.True(t, deleted[0].IsDeleted)

	restored, err := svc.Restore(ctx, super, created.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)

	require.NoError(t, svc.ForceDelete(ctx, super, created.ID))
	_, err = svc.Restore(ctx, super, created.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceGuards(t *testing.T) {
	svc, seed := newTestUserService(t)
	superID, adminID := seed()
	super := policy.Actor{ID: superID, Role: models.RoleSuperAdmin}
	admin := policy.Actor{ID: adminID, Role: models.RoleAdmin}
	ctx := context.Background()

	require.ErrorIs(t, svc.Delete(ctx, super, superID), ErrSelfDelete)
	require.ErrorIs(t, svc.ForceDelete(ctx, super, superID), ErrSelfDelete)

	_, err := svc.List(ctx, admin, false)
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	_, err = svc.Create(ctx, admin, dto.CreateUserRequest{Email: "x@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	require.ErrorIs(t, svc.Delete(ctx, admin, superID), policy.ErrUnauthorized)

	_, err = svc.Create(ctx, super, dto.CreateUserRequest{Email: "short@example.com", Password: "123"})
	require.Error(t, err)

	require.ErrorIs(t, svc.Delete(ctx, super, 9999), ErrUserNotFound)
}

func TestUserForceDeleteRefusesOwners(t *testing.T) {
	db, store := setupStore(t)
	svc := NewUserService(store, testValidator(), testLogger())
	_, super := seedAdmin(t, db, "root@example.com", models.RoleSuperAdmin)
	owner, _ := seedAdmin(t, db, "owner@example.com", models.RoleAdmin)

	require.NoError(t, db.Create(&models.Shipment{TrackingNumber: "TRK12345678", Status: models.ShipmentStatusPending, AdminID: owner.ID}).Error)

	require.ErrorIs(t, svc.ForceDelete(context.Background(), super, owner.ID), ErrUserHasShipments)
	require.NoError(t, svc.Delete(context.Background(), super, owner.ID))
}

func TestUserUpdatePassword(t *testing.T) {
	db, store := setupStore(t)
	svc := NewUserService(store, testValidator(), testLogger()).(*userService)
	svc.cost = bcrypt.MinCost
	user, actor := seedAdmin(t, db, "ops@example.com", models.RoleAdmin)
	ctx := context.Background()

	require.Error(t, svc.UpdatePassword(ctx, actor, dto.UpdatePasswordRequest{Password: "12345"}))
	require.NoError(t, svc.UpdatePassword(ctx, actor, dto.UpdatePasswordRequest{Password: "brand-new"}))

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("brand-new")))

	var audit models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditUpdatePassword).First(&audit).Error)
	require.Empty(t, audit.Details)

	me, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", me.Email)
}

func TestUserPasswordByteLimit(t *testing.T) {
	svc, seed := newTestUserService(t)
	superID, adminID := seed()
	ctx := context.Background()

	// 40 runes but 80 bytes.
	multibyte := strings.Repeat("é", 40)

	_, err := svc.Create(ctx, policy.Actor{ID: superID, Role: models.RoleSuperAdmin}, dto.CreateUserRequest{
		Email:    "accent@example.com",
		Password: multibyte,
	})
	require.ErrorIs(t, err, ErrPasswordTooLong)

	admin := policy.Actor{ID: adminID, Role: models.RoleAdmin}
	require.ErrorIs(t, svc.UpdatePassword(ctx, admin, dto.UpdatePasswordRequest{Password: multibyte}), ErrPasswordTooLong)

	// 36 runes, exactly 72 bytes.
	require.NoError(t, svc.UpdatePassword(ctx, admin, dto.UpdatePasswordRequest{Password: strings.Repeat("é", 36)}))
}
