package handler

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// UploadHandler accepts attachments from signed-in admins.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	input, err := uploadInputFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	defer input.close()

	actor := actorFromContext(c)
	if actor.ID > 0 {
		input.UploaderID = &actor.ID
	}

	result, err := h.service.Upload(c.UserContext(), input.UploadInput)
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}

	return utils.SendSuccess(c, "upload successful", result)
}

type requestUpload struct {
	service.UploadInput
	closer io.Closer
}

func (u requestUpload) close() {
	if u.closer != nil {
		_ = u.closer.Close()
	}
}

// uploadInputFromRequest accepts either a multipart "file" field or a raw body
// named by the filename query parameter.
func uploadInputFromRequest(c *fiber.Ctx) (requestUpload, error) {
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		header, err := c.FormFile("file")
		if err != nil {
			return requestUpload{}, err
		}
		file, err := header.Open()
		if err != nil {
			return requestUpload{}, err
		}
		return requestUpload{
			UploadInput: service.UploadInput{FileName: header.Filename, Content: file},
			closer:      file,
		}, nil
	}

	body := c.Body()
	if len(body) == 0 {
		return requestUpload{}, errors.New("empty body")
	}
	content := make([]byte, len(body))
	copy(content, body)

	return requestUpload{
		UploadInput: service.UploadInput{FileName: c.Query("filename"), Content: bytes.NewReader(content)},
	}, nil
}
