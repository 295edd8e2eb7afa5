package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in shipment unit-of-work transactions.
type Store interface {
	Users() UserRepository
	Shipments() ShipmentRepository
	Events() EventRepository
	Messages() MessageRepository
	AuditLogs() AuditLogRepository
	// Transaction runs fn against a store bound to a single database transaction.
	// Returning an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore constructs a store over the provided database handle.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *store) Shipments() ShipmentRepository {
	return NewShipmentRepository(s.db)
}

func (s *store) Events() EventRepository {
	return NewEventRepository(s.db)
}

func (s *store) Messages() MessageRepository {
	return NewMessageRepository(s.db)
}

func (s *store) AuditLogs() AuditLogRepository {
	return NewAuditLogRepository(s.db)
}

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
