package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ShipmentStatus enumerates the lifecycle states a shipment can be in.
type ShipmentStatus string

const (
	ShipmentStatusPending        ShipmentStatus = "PENDING"
	ShipmentStatusInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusPaused         ShipmentStatus = "PAUSED"
	ShipmentStatusOnHold         ShipmentStatus = "ON_HOLD"
	ShipmentStatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentStatusDelivered      ShipmentStatus = "DELIVERED"
	ShipmentStatusReturned       ShipmentStatus = "RETURNED"
)

// ShipmentStatuses lists every shipment status in display order.
var ShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusInTransit,
	ShipmentStatusPaused,
	ShipmentStatusOnHold,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
	ShipmentStatusReturned,
}

// Valid reports whether the status is a known shipment status.
func (s ShipmentStatus) Valid() bool {
	for _, status := range ShipmentStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsException reports whether the status counts as a delivery exception on the dashboard.
func (s ShipmentStatus) IsException() bool {
	return s == ShipmentStatusPaused || s == ShipmentStatusReturned
}

// EventStatus is the status recorded on a tracking event.
// It accepts every shipment status plus CREATED.
type EventStatus string

// EventStatusCreated marks the first event written when a shipment is registered.
const EventStatusCreated EventStatus = "CREATED"

// ParseEventStatus normalises user input into an event status.
func ParseEventStatus(raw string) (EventStatus, bool) {
	status := EventStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == EventStatusCreated || ShipmentStatus(status).Valid() {
		return status, true
	}
	return "", false
}

// ShipmentStatus maps the event status onto the shipment status it implies.
func (s EventStatus) ShipmentStatus() ShipmentStatus {
	if s == EventStatusCreated {
		return ShipmentStatusPending
	}
	return ShipmentStatus(s)
}

// Shipment is a parcel registered by an admin and tracked by its customer.
type Shipment struct {
	ID                 uint                        `gorm:"primaryKey" json:"id"`
	TrackingNumber     string                      `gorm:"size:32;uniqueIndex;not null" json:"tracking_number"`
	SenderInfo         string                      `gorm:"type:text" json:"sender_info"`
	ReceiverInfo       string                      `gorm:"type:text" json:"receiver_info"`
	Origin             string                      `gorm:"size:255" json:"origin"`
	Destination        string                      `gorm:"size:255;index" json:"destination"`
	Status             ShipmentStatus              `gorm:"size:32;not null;index" json:"status"`
	CustomerEmail      string                      `gorm:"size:255" json:"customer_email"`
	EstimatedDelivery  *time.Time                  `json:"estimated_delivery"`
	ProductDescription string                      `gorm:"type:text" json:"product_description"`
	ImageURLs          datatypes.JSONSlice[string] `gorm:"type:json" json:"image_urls"`
	IsDeleted          bool                        `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt          *time.Time                  `json:"deleted_at,omitempty"`
	AdminID            uint                        `gorm:"not null;index" json:"admin_id"`
	Admin              *User                       `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Events             []ShipmentEvent             `gorm:"foreignKey:ShipmentID" json:"events,omitempty"`
	Messages           []Message                   `gorm:"foreignKey:ShipmentID" json:"messages,omitempty"`
	CreatedAt          time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

// OwnerID returns the admin that owns the shipment.
func (s Shipment) OwnerID() uint {
	return s.AdminID
}

// ShipmentEvent is a single entry on a shipment's tracking timeline.
type ShipmentEvent struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ShipmentID  uint        `gorm:"not null;index" json:"shipment_id"`
	Status      EventStatus `gorm:"size:32;not null" json:"status"`
	Location    string      `gorm:"size:255" json:"location"`
	Description string      `gorm:"type:text" json:"description"`
	Timestamp   time.Time   `gorm:"not null;index" json:"timestamp"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
