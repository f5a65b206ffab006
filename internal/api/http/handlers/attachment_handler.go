package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/storage"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// AttachmentHandler accepts evidence uploads.
type AttachmentHandler struct {
	store    storage.AttachmentStore
	maxBytes int64
}

// NewAttachmentHandler constructs handler.
func NewAttachmentHandler(store storage.AttachmentStore, maxBytes int64) *AttachmentHandler {
	return &AttachmentHandler{store: store, maxBytes: maxBytes}
}

// Upload POST /attachments (multipart field "file"). The returned reference
// is what request and progress-update payloads carry as "attachment".
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" required", nil)
	}
	if header.Size <= 0 {
		return apperrors.NewValidationError("file is empty", nil)
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": h.maxBytes})
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	key, err := h.store.Put(c.UserContext(), header.Filename, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrStorageDisabled) {
			return apperrors.NewDomainError("STORAGE_UNAVAILABLE", "attachment storage unavailable", http.StatusServiceUnavailable, nil)
		}
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentResponse{
		Attachment:  key,
		FileName:    header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
	}})
}
