package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
)

type trackingShipmentStub struct {
	service.ShipmentService
}

func (trackingShipmentStub) Track(_ context.Context, trackingNumber string) (dto.PublicShipmentResponse, error) {
	if trackingNumber != "TRK12345678" {
		return dto.PublicShipmentResponse{}, service.ErrShipmentNotFound
	}
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return dto.PublicShipmentResponse{
		TrackingNumber: trackingNumber,
		SenderInfo:     "Alice, NYC",
		ReceiverInfo:   "Bob, LA",
		Origin:         "New York",
		Destination:    "Los Angeles",
		Status:         models.ShipmentStatusInTransit,
		ImageURLs:      []string{},
		Events: []dto.EventResponse{
			{ID: 1, ShipmentID: 1, Status: models.EventStatusCreated, Location: "System", Timestamp: created},
			{ID: 2, ShipmentID: 1, Status: models.EventStatus(models.ShipmentStatusInTransit), Location: "Chicago", Timestamp: created.Add(24 * time.Hour)},
		},
		CreatedAt: created,
	}, nil
}

type trackingMessageStub struct {
	service.MessageService
	posted []dto.PostMessageRequest
}

func (s *trackingMessageStub) CustomerThread(_ context.Context, trackingNumber string) ([]dto.MessageResponse, dto.ThreadMeta, error) {
	content := "Where is my parcel?"
	return []dto.MessageResponse{
		{ID: 1, ShipmentID: 1, Content: &content, Sender: models.MessageSenderClient, CreatedAt: time.Now().UTC()},
	}, dto.ThreadMeta{PollIntervalMS: 5000, Count: 1}, nil
}

func (s *trackingMessageStub) PostAsCustomer(_ context.Context, trackingNumber string, req dto.PostMessageRequest) (dto.MessageResponse, error) {
	if req.Content == nil && req.ImageURL == nil {
		return dto.MessageResponse{}, service.ErrEmptyMessage
	}
	s.posted = append(s.posted, req)
	return dto.MessageResponse{ID: 2, ShipmentID: 1, Content: req.Content, Sender: models.MessageSenderClient, CreatedAt: time.Now().UTC()}, nil
}

type uploadServiceStub struct {
	inputs []service.UploadInput
	bodies []string
	err    error
}

func (s *uploadServiceStub) Upload(_ context.Context, input service.UploadInput) (dto.UploadResponse, error) {
	if s.err != nil {
		return dto.UploadResponse{}, s.err
	}
	content, _ := io.ReadAll(input.Content)
	s.inputs = append(s.inputs, input)
	s.bodies = append(s.bodies, string(content))
	return dto.UploadResponse{URL: "https://files.test/chat/" + input.FileName}, nil
}

func trackingApp(messages *trackingMessageStub, uploads *uploadServiceStub) *fiber.App {
	app := fiber.New()
	NewTrackingHandler(trackingShipmentStub{}, messages, uploads, zerolog.Nop()).Register(app.Group("/api/track"), nil)
	return app
}

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestTrackingLookup(t *testing.T) {
	app := trackingApp(&trackingMessageStub{}, &uploadServiceStub{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/track/TRK12345678", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(decode(t, resp).Data), `"status":"IN_TRANSIT"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/track/TRK00000000", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTrackingCustomerMessages(t *testing.T) {
	messages := &trackingMessageStub{}
	app := trackingApp(messages, &uploadServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/track/TRK12345678/messages", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, messages.posted, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/track/TRK12345678/messages", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/track/TRK12345678/messages", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(decode(t, resp).Meta), `"poll_interval_ms":5000`)
}

func TestTrackingUploadIsPublic(t *testing.T) {
	uploads := &uploadServiceStub{}
	app := trackingApp(&trackingMessageStub{}, uploads)

	body, contentType := multipartBody(t, "photo.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/track/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, uploads.inputs, 1)
	require.True(t, uploads.inputs[0].Public)
	require.Nil(t, uploads.inputs[0].UploaderID)
	require.Equal(t, "photo.png", uploads.inputs[0].FileName)
	require.Equal(t, "png-bytes", uploads.bodies[0])
}

func TestAdminUploadRecordsUploader(t *testing.T) {
	uploads := &uploadServiceStub{}
	app := fiber.New()
	NewUploadHandler(uploads, zerolog.Nop()).Register(app.Group("/upload", withActor(5, models.RoleAdmin)))

	req := httptest.NewRequest(http.MethodPost, "/upload?filename=manifest.pdf", strings.NewReader("%PDF-1.4"))
	req.Header.Set(fiber.HeaderContentType, "application/pdf")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, uploads.inputs, 1)
	require.False(t, uploads.inputs[0].Public)
	require.NotNil(t, uploads.inputs[0].UploaderID)
	require.Equal(t, uint(5), *uploads.inputs[0].UploaderID)
	require.Equal(t, "manifest.pdf", uploads.inputs[0].FileName)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/upload", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminUploadMapsServiceErrors(t *testing.T) {
	uploads := &uploadServiceStub{err: service.ErrUploadTooLarge}
	app := fiber.New()
	NewUploadHandler(uploads, zerolog.Nop()).Register(app.Group("/upload", withActor(5, models.RoleAdmin)))

	req := httptest.NewRequest(http.MethodPost, "/upload?filename=big.png", strings.NewReader("data"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
