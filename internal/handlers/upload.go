package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/transcription"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// UploadHandler handles video uploads
type UploadHandler struct {
	svc      *pipeline.Service
	maxBytes int64
	log      *logger.Logger
}

// NewUploadHandler creates a new upload handler. Files of maxBytes or more are rejected.
func NewUploadHandler(svc *pipeline.Service, maxBytes int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		svc:      svc,
		maxBytes: maxBytes,
		log:      log.With("handler", "upload"),
	}
}

// Handle stores the multipart "video" field and creates a submission for it
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		return fail(c, h.log, apierr.BadRequest("ERR_NO_FILE", "No video uploaded"))
	}

	prompt := strings.TrimSpace(c.FormValue("prompt"))
	if prompt == "" {
		return fail(c, h.log, apierr.BadRequest("ERR_NO_PROMPT", "prompt is required"))
	}

	mimeType, err := checkVideo(file, h.maxBytes)
	if err != nil {
		return fail(c, h.log, err)
	}

	id := uuid.New().String()
	storedPath := h.svc.Files().UploadPath(id, file.Filename)

	if err := c.SaveFile(file, storedPath); err != nil {
		os.Remove(storedPath)
		return fail(c, h.log, apierr.New(fiber.StatusInternalServerError, "ERR_SAVE_FAILED", fmt.Errorf("failed to save file: %w", err)))
	}

	sub, err := h.svc.CreateSubmission(c.UserContext(), pipeline.NewSubmission{
		ID:         id,
		Prompt:     prompt,
		SourceType: types.SourceUpload,
		File: types.FileMeta{
			OriginalName: file.Filename,
			StoredPath:   storedPath,
			Size:         file.Size,
			MimeType:     mimeType,
		},
	})
	if err != nil {
		os.Remove(storedPath)
		return fail(c, h.log, err)
	}

	return ok(c, fiber.Map{"submission": sub})
}

// checkVideo enforces the size limit and the allowed video types before anything touches disk
func checkVideo(file *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes > 0 && file.Size >= maxBytes {
		return "", apierr.TooLarge("ERR_FILE_TOO_LARGE", fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}
	mimeType, allowed := transcription.ValidateVideoFormat(file.Filename, file.Header.Get("Content-Type"))
	if !allowed {
		return "", apierr.BadRequest("ERR_INVALID_FORMAT", "Unsupported video format")
	}
	return mimeType, nil
}
