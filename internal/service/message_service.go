package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

var (
	// ErrMessageNotFound indicates the message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrEmptyMessage indicates a post carried neither text nor an image.
	ErrEmptyMessage = errors.New("message must contain text or an image")
)

// MessageConfig tunes the relay.
type MessageConfig struct {
	PollInterval time.Duration
	CacheTTL     time.Duration
	CachePrefix  string
}

// MessageService relays the per-shipment conversation between customers and admins.
// Both sides poll the full thread; nothing is pushed.
type MessageService interface {
	CustomerThread(ctx context.Context, trackingNumber string) ([]dto.MessageResponse, dto.ThreadMeta, error)
	PostAsCustomer(ctx context.Context, trackingNumber string, req dto.PostMessageRequest) (dto.MessageResponse, error)
	Thread(ctx context.Context, actor policy.Actor, shipmentID uint) ([]dto.MessageResponse, dto.ThreadMeta, error)
	PostAsAdmin(ctx context.Context, actor policy.Actor, shipmentID uint, req dto.PostMessageRequest) (dto.MessageResponse, error)
	Edit(ctx context.Context, actor policy.Actor, messageID uint, req dto.EditMessageRequest) (dto.MessageResponse, error)
	Delete(ctx context.Context, actor policy.Actor, messageID uint) error
	MarkRead(ctx context.Context, actor policy.Actor, shipmentID uint) (dto.MarkReadResponse, error)
}

type messageService struct {
	shipments repository.ShipmentRepository
	messages  repository.MessageRepository
	validate  *validator.Validate
	cache     *redis.Client
	cfg       MessageConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMessageService constructs the relay. cache may be nil.
func NewMessageService(shipments repository.ShipmentRepository, messages repository.MessageRepository, validate *validator.Validate, cache *redis.Client, cfg MessageConfig, logger zerolog.Logger) MessageService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &messageService{
		shipments: shipments,
		messages:  messages,
		validate:  validate,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With().Str("component", "message_service").Logger(),
		now:       time.Now,
	}
}

func (s *messageService) cacheKey(shipmentID uint) string {
	if s.cfg.CachePrefix == "" {
		return fmt.Sprintf("messages:%d", shipmentID)
	}
	return fmt.Sprintf("%s:messages:%d", s.cfg.CachePrefix, shipmentID)
}

func (s *messageService) meta(count int) dto.ThreadMeta {
	return dto.ThreadMeta{PollIntervalMS: s.cfg.PollInterval.Milliseconds(), Count: count}
}

func (s *messageService) CustomerThread(ctx context.Context, trackingNumber string) ([]dto.MessageResponse, dto.ThreadMeta, error) {
	shipment, err := s.shipments.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, dto.ThreadMeta{}, notFound(err, ErrShipmentNotFound)
	}
	return s.thread(ctx, shipment.ID)
}

func (s *messageService) PostAsCustomer(ctx context.Context, trackingNumber string, req dto.PostMessageRequest) (dto.MessageResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}
	shipment, err := s.shipments.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return dto.MessageResponse{}, notFound(err, ErrShipmentNotFound)
	}
	return s.append(ctx, shipment.ID, models.MessageSenderClient, req)
}

func (s *messageService) Thread(ctx context.Context, actor policy.Actor, shipmentID uint) ([]dto.MessageResponse, dto.ThreadMeta, error) {
	if _, err := s.ownedShipment(ctx, actor, shipmentID); err != nil {
		return nil, dto.ThreadMeta{}, err
	}
	return s.thread(ctx, shipmentID)
}

func (s *messageService) PostAsAdmin(ctx context.Context, actor policy.Actor, shipmentID uint, req dto.PostMessageRequest) (dto.MessageResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}
	if _, err := s.ownedShipment(ctx, actor, shipmentID); err != nil {
		return dto.MessageResponse{}, err
	}
	return s.append(ctx, shipmentID, models.MessageSenderAdmin, req)
}

func (s *messageService) Edit(ctx context.Context, actor policy.Actor, messageID uint, req dto.EditMessageRequest) (dto.MessageResponse, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return dto.MessageResponse{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return dto.MessageResponse{}, err
	}
	content := sanitizeText(req.Content)
	if content == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	message, err := s.ownedMessage(ctx, actor, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	updated, err := s.messages.UpdateContent(ctx, message.ID, content)
	if err != nil {
		return dto.MessageResponse{}, notFound(err, ErrMessageNotFound)
	}
	s.invalidate(ctx, message.ShipmentID)

	return dto.NewMessageResponse(updated), nil
}

func (s *messageService) Delete(ctx context.Context, actor policy.Actor, messageID uint) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}
	message, err := s.ownedMessage(ctx, actor, messageID)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, message.ID); err != nil {
		return notFound(err, ErrMessageNotFound)
	}
	s.invalidate(ctx, message.ShipmentID)
	return nil
}

// MarkRead stamps read_at on every unread customer message of the shipment.
func (s *messageService) MarkRead(ctx context.Context, actor policy.Actor, shipmentID uint) (dto.MarkReadResponse, error) {
	if _, err := s.ownedShipment(ctx, actor, shipmentID); err != nil {
		return dto.MarkReadResponse{}, err
	}

	updated, err := s.messages.MarkRead(ctx, shipmentID, models.MessageSenderClient, s.now().UTC())
	if err != nil {
		return dto.MarkReadResponse{}, err
	}
	if updated > 0 {
		s.invalidate(ctx, shipmentID)
	}
	return dto.MarkReadResponse{Updated: updated}, nil
}

func (s *messageService) append(ctx context.Context, shipmentID uint, sender models.MessageSender, req dto.PostMessageRequest) (dto.MessageResponse, error) {
	content := sanitizeOptional(req.Content)
	var imageURL *string
	if req.ImageURL != nil {
		if trimmed := strings.TrimSpace(*req.ImageURL); trimmed != "" {
			imageURL = &trimmed
		}
	}
	if content == nil && imageURL == nil {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	message := models.Message{
		ShipmentID: shipmentID,
		Content:    content,
		ImageURL:   imageURL,
		Sender:     sender,
	}
	if err := s.messages.Create(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	observability.MessagesPosted().WithLabelValues(string(sender)).Inc()
	s.invalidate(ctx, shipmentID)

	return dto.NewMessageResponse(message), nil
}

func (s *messageService) ownedShipment(ctx context.Context, actor policy.Actor, shipmentID uint) (models.Shipment, error) {
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return models.Shipment{}, notFound(err, ErrShipmentNotFound)
	}
	if err := policy.Authorize(actor, shipment); err != nil {
		return models.Shipment{}, err
	}
	return shipment, nil
}

func (s *messageService) ownedMessage(ctx context.Context, actor policy.Actor, messageID uint) (models.Message, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return models.Message{}, notFound(err, ErrMessageNotFound)
	}
	if _, err := s.ownedShipment(ctx, actor, message.ShipmentID); err != nil {
		if errors.Is(err, ErrShipmentNotFound) {
			return models.Message{}, ErrMessageNotFound
		}
		return models.Message{}, err
	}
	return message, nil
}

func (s *messageService) thread(ctx context.Context, shipmentID uint) ([]dto.MessageResponse, dto.ThreadMeta, error) {
	key := s.cacheKey(shipmentID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var responses []dto.MessageResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				return responses, s.meta(len(responses)), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read message cache")
		}
	}

	messages, err := s.messages.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, dto.ThreadMeta{}, err
	}
	responses := dto.NewMessageResponseSlice(messages)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("failed to write message cache")
			}
		}
	}

	return responses, s.meta(len(responses)), nil
}

func (s *messageService) invalidate(ctx context.Context, shipmentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(shipmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("shipment_id", shipmentID).Msg("failed to invalidate message cache")
	}
}
