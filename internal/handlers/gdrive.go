package handlers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/storage"
	"github.com/codebuildervaibhav/quizsplice/internal/transcription"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// GDriveHandler imports a video from a Google Drive share link
type GDriveHandler struct {
	svc      *pipeline.Service
	fetcher  storage.DriveFetcher
	maxBytes int64
	log      *logger.Logger
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(svc *pipeline.Service, fetcher storage.DriveFetcher, maxBytes int64, log *logger.Logger) *GDriveHandler {
	return &GDriveHandler{
		svc:      svc,
		fetcher:  fetcher,
		maxBytes: maxBytes,
		log:      log.With("handler", "gdrive"),
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// Handle downloads the linked file and creates a submission for it
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, h.log, apierr.BadRequest("ERR_INVALID_BODY", "Invalid request body"))
	}
	if strings.TrimSpace(req.URL) == "" {
		return fail(c, h.log, apierr.BadRequest("ERR_NO_URL", "URL is required"))
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return fail(c, h.log, apierr.BadRequest("ERR_NO_PROMPT", "prompt is required"))
	}

	fileID := storage.ExtractDriveFileID(req.URL)
	if fileID == "" {
		return fail(c, h.log, apierr.BadRequest("ERR_INVALID_URL", "Invalid Google Drive URL"))
	}

	files := h.svc.Files()
	tempPath := files.TempUploadPath(fileID)

	h.log.Info("downloading from google drive", "fileId", fileID)
	meta, err := h.fetcher.Fetch(c.UserContext(), fileID, tempPath, h.maxBytes)
	if errors.Is(err, storage.ErrDriveTooLarge) {
		return fail(c, h.log, apierr.TooLarge("ERR_FILE_TOO_LARGE", fmt.Sprintf("File too large (max %dMB)", h.maxBytes/(1024*1024))))
	}
	if err != nil {
		h.log.Warn("drive download failed", "fileId", fileID, "error", err)
		return fail(c, h.log, apierr.BadRequest("ERR_FILE_NOT_ACCESSIBLE", "File not accessible (may be private or doesn't exist)"))
	}

	name := meta.Name
	if name == "" {
		name = fileID
	}
	mimeType, allowed := transcription.ValidateVideoFormat(name, meta.MimeType)
	if !allowed {
		os.Remove(tempPath)
		return fail(c, h.log, apierr.BadRequest("ERR_INVALID_FORMAT", "Unsupported video format"))
	}

	id := uuid.New().String()
	storedPath := files.UploadPath(id, name)
	if err := os.Rename(tempPath, storedPath); err != nil {
		os.Remove(tempPath)
		return fail(c, h.log, apierr.New(fiber.StatusInternalServerError, "ERR_SAVE_FAILED", fmt.Errorf("failed to store download: %w", err)))
	}

	sub, err := h.svc.CreateSubmission(c.UserContext(), pipeline.NewSubmission{
		ID:         id,
		Prompt:     prompt,
		SourceType: types.SourceGDrive,
		File: types.FileMeta{
			OriginalName: name,
			StoredPath:   storedPath,
			Size:         meta.Size,
			MimeType:     mimeType,
		},
	})
	if err != nil {
		os.Remove(storedPath)
		return fail(c, h.log, err)
	}

	return ok(c, fiber.Map{"submission": sub})
}
