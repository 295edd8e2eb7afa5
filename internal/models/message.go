package models

import "time"

// MessageSender identifies which side of the conversation wrote a message.
type MessageSender string

const (
	MessageSenderClient MessageSender = "CLIENT"
	MessageSenderAdmin  MessageSender = "ADMIN"
)

// Message is a single chat entry attached to a shipment.
type Message struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	ShipmentID uint          `gorm:"not null;index" json:"shipment_id"`
	Content    *string       `gorm:"type:text" json:"content"`
	ImageURL   *string       `gorm:"size:512" json:"image_url"`
	Sender     MessageSender `gorm:"size:16;not null" json:"sender"`
	ReadAt     *time.Time    `json:"read_at"`
	CreatedAt  time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
