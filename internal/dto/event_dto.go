package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// CreateEventRequest appends a tracking event to a shipment.
type CreateEventRequest struct {
	Status      string     `json:"status" validate:"required,max=32"`
	Location    string     `json:"location" validate:"omitempty,max=255"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	Timestamp   *time.Time `json:"timestamp"`
	Latitude    *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// UpdateEventRequest edits an existing event; omitted fields keep their value.
type UpdateEventRequest struct {
	Status      *string    `json:"status" validate:"omitempty,max=32"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Timestamp   *time.Time `json:"timestamp"`
	Latitude    *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// EventResponse is a single entry on the tracking timeline.
type EventResponse struct {
	ID          uint               `json:"id"`
	ShipmentID  uint               `json:"shipment_id"`
	Status      models.EventStatus `json:"status"`
	Location    string             `json:"location"`
	Description string             `json:"description"`
	Timestamp   time.Time          `json:"timestamp"`
	Latitude    *float64           `json:"latitude,omitempty"`
	Longitude   *float64           `json:"longitude,omitempty"`
}

// EventMutationResponse reports the event and the shipment status after synchronisation.
type EventMutationResponse struct {
	Event          *EventResponse        `json:"event,omitempty"`
	ShipmentStatus models.ShipmentStatus `json:"shipment_status"`
}

// NewEventResponse converts the model into a response payload.
func NewEventResponse(event models.ShipmentEvent) EventResponse {
	return EventResponse{
		ID:          event.ID,
		ShipmentID:  event.ShipmentID,
		Status:      event.Status,
		Location:    event.Location,
		Description: event.Description,
		Timestamp:   event.Timestamp,
		Latitude:    event.Latitude,
		Longitude:   event.Longitude,
	}
}

// NewEventResponseSlice converts a timeline, preserving order.
func NewEventResponseSlice(events []models.ShipmentEvent) []EventResponse {
	responses := make([]EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, NewEventResponse(event))
	}
	return responses
}
