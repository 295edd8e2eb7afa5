package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// PostMessageRequest appends a message to a shipment thread.
// At least one of Content or ImageURL must be present.
type PostMessageRequest struct {
	Content  *string `json:"content" validate:"omitempty,max=4000"`
	ImageURL *string `json:"image_url" validate:"omitempty,url,max=512"`
}

// EditMessageRequest replaces the text of an existing message.
type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// MessageResponse is a single chat entry.
type MessageResponse struct {
	ID         uint                 `json:"id"`
	ShipmentID uint                 `json:"shipment_id"`
	Content    *string              `json:"content"`
	ImageURL   *string              `json:"image_url"`
	Sender     models.MessageSender `json:"sender"`
	ReadAt     *time.Time           `json:"read_at"`
	CreatedAt  time.Time            `json:"created_at"`
}

// MarkReadResponse reports how many client messages were acknowledged.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// ThreadMeta tells polling clients how often to refresh.
type ThreadMeta struct {
	PollIntervalMS int64 `json:"poll_interval_ms"`
	Count          int   `json:"count"`
}

// NewMessageResponse converts the model into a response payload.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		ShipmentID: message.ShipmentID,
		Content:    message.Content,
		ImageURL:   message.ImageURL,
		Sender:     message.Sender,
		ReadAt:     message.ReadAt,
		CreatedAt:  message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a thread, preserving order.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, NewMessageResponse(message))
	}
	return responses
}
