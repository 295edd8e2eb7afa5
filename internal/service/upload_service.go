package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadEmpty indicates no bytes were received.
	ErrUploadEmpty = errors.New("file is required")
	// ErrUploadUnavailable indicates no blob store is configured.
	ErrUploadUnavailable = errors.New("file storage is not configured")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader) (string, error)
}

// UploadInput is a single file received from a client.
type UploadInput struct {
	FileName   string
	Content    io.Reader
	UploaderID *uint
	// Public uploads come from the customer chat widget and only accept images.
	Public bool
}

// UploadService validates attachments and stores them in the blob store.
type UploadService interface {
	Upload(ctx context.Context, input UploadInput) (dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service. storage may be nil, in which case uploads fail with ErrUploadUnavailable.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/atlas-logistics-api/internal/service/upload"),
		now:     time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, input UploadInput) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.Bool("upload.public", input.Public),
		attribute.String("upload.original_name", strings.TrimSpace(input.FileName)),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage unavailable")
		return dto.UploadResponse{}, ErrUploadUnavailable
	}
	if input.Content == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadEmpty
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(input.Content, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}
	if buf.Len() == 0 {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadEmpty
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	mimeType := strings.ToLower(detected.String())
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))
	if !isAllowedType(mimeType, input.Public) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	sum := sha256.Sum256(buf.Bytes())
	checksum := hex.EncodeToString(sum[:])
	if existing, err := s.repo.FindByChecksum(ctx, checksum); err == nil {
		span.SetAttributes(attribute.Bool("upload.deduplicated", true))
		span.SetStatus(codes.Ok, "deduplicated")
		return toUploadResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Err(err).Msg("checksum lookup failed, uploading anyway")
	}

	fileName := sanitizeFileName(input.FileName, detected.Extension(), s.now())
	folder := "shipments"
	if input.Public {
		folder = "chat"
	}
	span.SetAttributes(
		attribute.String("upload.sanitized_name", fileName),
		attribute.Int64("upload.size_bytes", int64(buf.Len())),
	)

	url, err := s.storage.Upload(ctx, folder+"/"+fileName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	record := models.UploadRecord{
		UploaderID: input.UploaderID,
		Public:     input.Public,
		FileName:   fileName,
		URL:        url,
		MimeType:   mimeType,
		SizeBytes:  int64(buf.Len()),
		Checksum:   checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(uploadTypeLabel(mimeType)).Inc()
	span.SetStatus(codes.Ok, "stored")

	return toUploadResponse(record), nil
}

func toUploadResponse(record models.UploadRecord) dto.UploadResponse {
	return dto.UploadResponse{
		URL:       record.URL,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
	}
}

func sanitizeFileName(name, detectedExt string, now time.Time) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", now.Unix())
	}
	ext := strings.ToLower(detectedExt)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func isAllowedType(mimeType string, public bool) bool {
	if strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml" {
		return true
	}
	return !public && mimeType == "application/pdf"
}

func uploadTypeLabel(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return "image"
	}
	return mimeType
}
