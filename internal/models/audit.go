package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction enumerates the administrative operations recorded in the audit trail.
type AuditAction string

const (
	AuditCreateShipment          AuditAction = "CREATE_SHIPMENT"
	AuditUpdateShipment          AuditAction = "UPDATE_SHIPMENT"
	AuditDeleteShipment          AuditAction = "DELETE_SHIPMENT"
	AuditRestoreShipment         AuditAction = "RESTORE_SHIPMENT"
	AuditDeleteShipmentPermanent AuditAction = "DELETE_SHIPMENT_PERMANENT"
	AuditCloneShipment           AuditAction = "CLONE_SHIPMENT"
	AuditCreateEvent             AuditAction = "CREATE_EVENT"
	AuditUpdateEvent             AuditAction = "UPDATE_EVENT"
	AuditDeleteEvent             AuditAction = "DELETE_EVENT"
	AuditCreateUser              AuditAction = "CREATE_USER"
	AuditDeleteUser              AuditAction = "DELETE_USER"
	AuditRestoreUser             AuditAction = "RESTORE_USER"
	AuditDeleteUserPermanent     AuditAction = "DELETE_USER_PERMANENT"
	AuditUpdatePassword          AuditAction = "UPDATE_PASSWORD"
)

// Audit entity types.
const (
	AuditEntityShipment = "shipment"
	AuditEntityEvent    = "shipment_event"
	AuditEntityUser     = "user"
)

// AuditLog is an append-only record of an administrative action.
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	AdminID    uint              `gorm:"not null;index" json:"admin_id"`
	Admin      *User             `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action     AuditAction       `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   uint              `gorm:"index" json:"entity_id"`
	Details    datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
