package dto

import (
	"time"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
)

// AuditLogListRequest defines filters for the audit log viewer.
type AuditLogListRequest struct {
	Page     int
	PageSize int
	AdminID  uint
	Action   string
}

// AuditLogResponse is a single audit entry.
type AuditLogResponse struct {
	ID         uint                   `json:"id"`
	AdminID    uint                   `json:"admin_id"`
	AdminName  string                 `json:"admin_name"`
	AdminEmail string                 `json:"admin_email"`
	Action     models.AuditAction     `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AuditLogListResponse wraps a page of audit entries.
type AuditLogListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewAuditLogResponse converts the model into a response payload.
func NewAuditLogResponse(entry models.AuditLog) AuditLogResponse {
	response := AuditLogResponse{
		ID:         entry.ID,
		AdminID:    entry.AdminID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    map[string]interface{}(entry.Details),
		CreatedAt:  entry.CreatedAt,
	}
	if response.Details == nil {
		response.Details = map[string]interface{}{}
	}
	if entry.Admin != nil {
		response.AdminName = entry.Admin.Name
		response.AdminEmail = entry.Admin.Email
	}
	return response
}
