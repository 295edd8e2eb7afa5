package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/database"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupStore(t *testing.T) (*gorm.DB, repository.Store) {
	t.Helper()
	db, err := database.ConnectSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, repository.NewStore(db)
}

func seedAdmin(t *testing.T, db *gorm.DB, email string, role models.UserRole) (models.User, policy.Actor) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Email: email, Name: email, Password: string(hash), Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user, policy.Actor{ID: user.ID, Role: role}
}

type notifierStub struct {
	mu      sync.Mutex
	created []string
	changes []models.EventStatus
	err     error
}

func (n *notifierStub) ShipmentCreated(ctx context.Context, shipment models.Shipment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, shipment.TrackingNumber)
	return n.err
}

func (n *notifierStub) StatusChanged(ctx context.Context, shipment models.Shipment, event models.ShipmentEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, event.Status)
	return n.err
}

type publisherStub struct {
	mu      sync.Mutex
	changes []StatusChange
}

func (p *publisherStub) PublishStatusChange(ctx context.Context, change StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}
