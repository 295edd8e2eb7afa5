package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

const defaultAuditPageSize = 100

// AuditService exposes the audit trail to super admins.
type AuditService interface {
	List(ctx context.Context, actor policy.Actor, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit log reader.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) List(ctx context.Context, actor policy.Actor, req dto.AuditLogListRequest) (dto.AuditLogListResponse, error) {
	if err := policy.RequireSuperAdmin(actor); err != nil {
		return dto.AuditLogListResponse{}, err
	}

	filter := repository.AuditLogFilter{
		Page:     normalizePage(req.Page),
		PageSize: clampPageSize(req.PageSize, defaultAuditPageSize, 500),
		Action:   models.AuditAction(strings.ToUpper(strings.TrimSpace(req.Action))),
	}
	if req.AdminID > 0 {
		adminID := req.AdminID
		filter.AdminID = &adminID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditLogListResponse{}, err
	}

	items := make([]dto.AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAuditLogResponse(entry))
	}

	return dto.AuditLogListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// recordAudit appends an audit entry through the given repository, normally one bound to the
// transaction of the audited change.
func recordAudit(ctx context.Context, repo repository.AuditLogRepository, actor policy.Actor, action models.AuditAction, entityType string, entityID uint, details map[string]interface{}) error {
	return repo.Create(ctx, &models.AuditLog{
		AdminID:    actor.ID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    datatypes.JSONMap(scrubDetails(details)),
	})
}

var secretDetailKeys = []string{"password", "token", "secret"}

func scrubDetails(details map[string]interface{}) map[string]interface{} {
	cleaned := make(map[string]interface{}, len(details))
	for key, value := range details {
		lower := strings.ToLower(key)
		secret := false
		for _, marker := range secretDetailKeys {
			if strings.Contains(lower, marker) {
				secret = true
				break
			}
		}
		if secret {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}
