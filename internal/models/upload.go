package models

import "time"

// UploadRecord stores metadata about an attachment pushed to blob storage.
type UploadRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UploaderID *uint     `gorm:"index" json:"uploader_id"`
	Public     bool      `gorm:"not null;default:false" json:"public"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	MimeType   string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	Checksum   string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}
