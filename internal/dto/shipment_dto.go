package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// CreateShipmentRequest registers a new shipment.
type CreateShipmentRequest struct {
	SenderInfo         string     `json:"sender_info" validate:"required,max=2000"`
	ReceiverInfo       string     `json:"receiver_info" validate:"required,max=2000"`
	Origin             string     `json:"origin" validate:"omitempty,max=255"`
	Destination        string     `json:"destination" validate:"omitempty,max=255"`
	CustomerEmail      string     `json:"customer_email" validate:"omitempty,email,max=255"`
	EstimatedDelivery  *time.Time `json:"estimated_delivery"`
	ProductDescription string     `json:"product_description" validate:"omitempty,max=2000"`
	ImageURLs          []string   `json:"image_urls" validate:"omitempty,max=20,dive,url"`
	// CreatedAt backdates the shipment and its initial event, used when importing historic parcels.
	CreatedAt *time.Time `json:"created_at"`
}

// UpdateShipmentRequest edits the descriptive fields of a shipment.
// Status is derived from the event timeline and cannot be set here.
type UpdateShipmentRequest struct {
	SenderInfo         *string    `json:"sender_info" validate:"omitempty,min=1,max=2000"`
	ReceiverInfo       *string    `json:"receiver_info" validate:"omitempty,min=1,max=2000"`
	Origin             *string    `json:"origin" validate:"omitempty,max=255"`
	Destination        *string    `json:"destination" validate:"omitempty,max=255"`
	CustomerEmail      *string    `json:"customer_email" validate:"omitempty,email,max=255"`
	EstimatedDelivery  *time.Time `json:"estimated_delivery"`
	ProductDescription *string    `json:"product_description" validate:"omitempty,max=2000"`
	ImageURLs          *[]string  `json:"image_urls" validate:"omitempty,max=20,dive,url"`
}

// ShipmentListRequest narrows the admin shipment listing.
type ShipmentListRequest struct {
	ViewAs   *uint
	Deleted  bool
	Status   string `validate:"omitempty,oneof=PENDING IN_TRANSIT PAUSED ON_HOLD OUT_FOR_DELIVERY DELIVERED RETURNED"`
	Search   string `validate:"omitempty,max=100"`
	Page     int
	PageSize int
}

// ShipmentResponse is the admin view of a shipment.
type ShipmentResponse struct {
	ID                 uint                  `json:"id"`
	TrackingNumber     string                `json:"tracking_number"`
	SenderInfo         string                `json:"sender_info"`
	ReceiverInfo       string                `json:"receiver_info"`
	Origin             string                `json:"origin"`
	Destination        string                `json:"destination"`
	Status             models.ShipmentStatus `json:"status"`
	CustomerEmail      string                `json:"customer_email"`
	EstimatedDelivery  *time.Time            `json:"estimated_delivery"`
	ProductDescription string                `json:"product_description"`
	ImageURLs          []string              `json:"image_urls"`
	IsDeleted          bool                  `json:"is_deleted"`
	DeletedAt          *time.Time            `json:"deleted_at,omitempty"`
	AdminID            uint                  `json:"admin_id"`
	AdminName          string                `json:"admin_name,omitempty"`
	LatestEvent        *EventResponse        `json:"latest_event,omitempty"`
	Events             []EventResponse       `json:"events,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ShipmentListResponse wraps a page of shipments.
type ShipmentListResponse struct {
	Items      []ShipmentResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewShipmentResponse converts the model into the admin payload.
func NewShipmentResponse(shipment models.Shipment) ShipmentResponse {
	response := ShipmentResponse{
		ID:                 shipment.ID,
		TrackingNumber:     shipment.TrackingNumber,
		SenderInfo:         shipment.SenderInfo,
		ReceiverInfo:       shipment.ReceiverInfo,
		Origin:             shipment.Origin,
		Destination:        shipment.Destination,
		Status:             shipment.Status,
		CustomerEmail:      shipment.CustomerEmail,
		EstimatedDelivery:  shipment.EstimatedDelivery,
		ProductDescription: shipment.ProductDescription,
		ImageURLs:          imageURLs(shipment),
		IsDeleted:          shipment.IsDeleted,
		DeletedAt:          shipment.DeletedAt,
		AdminID:            shipment.AdminID,
		CreatedAt:          shipment.CreatedAt,
		UpdatedAt:          shipment.UpdatedAt,
	}
	if shipment.Admin != nil {
		response.AdminName = shipment.Admin.Name
	}
	if len(shipment.Events) > 0 {
		response.Events = NewEventResponseSlice(shipment.Events)
	}
	return response
}

// PublicShipmentResponse is what a customer sees on the tracking page.
// It omits the owning admin and the customer contact address.
type PublicShipmentResponse struct {
	TrackingNumber     string                `json:"tracking_number"`
	SenderInfo         string                `json:"sender_info"`
	ReceiverInfo       string                `json:"receiver_info"`
	Origin             string                `json:"origin"`
	Destination        string                `json:"destination"`
	Status             models.ShipmentStatus `json:"status"`
	EstimatedDelivery  *time.Time            `json:"estimated_delivery"`
	ProductDescription string                `json:"product_description"`
	ImageURLs          []string              `json:"image_urls"`
	Events             []EventResponse       `json:"events"`
	CreatedAt          time.Time             `json:"created_at"`
}

// NewPublicShipmentResponse builds the customer-facing view from a shipment and its timeline.
func NewPublicShipmentResponse(shipment models.Shipment, events []models.ShipmentEvent) PublicShipmentResponse {
	return PublicShipmentResponse{
		TrackingNumber:     shipment.TrackingNumber,
		SenderInfo:         shipment.SenderInfo,
		ReceiverInfo:       shipment.ReceiverInfo,
		Origin:             shipment.Origin,
		Destination:        shipment.Destination,
		Status:             shipment.Status,
		EstimatedDelivery:  shipment.EstimatedDelivery,
		ProductDescription: shipment.ProductDescription,
		ImageURLs:          imageURLs(shipment),
		Events:             NewEventResponseSlice(events),
		CreatedAt:          shipment.CreatedAt,
	}
}

func imageURLs(shipment models.Shipment) []string {
	if len(shipment.ImageURLs) == 0 {
		return []string{}
	}
	return append([]string(nil), shipment.ImageURLs...)
}
