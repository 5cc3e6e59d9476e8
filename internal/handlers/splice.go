package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// SpliceHandler inserts the generated clips into a stored submission or a freshly uploaded video
type SpliceHandler struct {
	svc      *pipeline.Service
	maxBytes int64
	log      *logger.Logger
}

func NewSpliceHandler(svc *pipeline.Service, maxBytes int64, log *logger.Logger) *SpliceHandler {
	return &SpliceHandler{svc: svc, maxBytes: maxBytes, log: log.With("handler", "splice")}
}

// SpliceRequest is the JSON form of a splice request
type SpliceRequest struct {
	SubmissionID string      `json:"submissionId"`
	InsertAtMs   json.Number `json:"insertAtMs"`
}

// Handle accepts either JSON {submissionId, insertAtMs} or multipart with submissionId or a "video" file
func (h *SpliceHandler) Handle(c *fiber.Ctx) error {
	var (
		submissionID string
		rawInsert    string
	)
	if c.Is("json") {
		var req SpliceRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fail(c, h.log, apierr.BadRequest("ERR_INVALID_BODY", "Invalid request body"))
		}
		submissionID, rawInsert = req.SubmissionID, req.InsertAtMs.String()
	} else {
		submissionID, rawInsert = c.FormValue("submissionId"), c.FormValue("insertAtMs")
	}

	insertAt, err := parseInsertAt(rawInsert)
	if err != nil {
		return fail(c, h.log, err)
	}

	var out *types.SpliceOutput
	if id := strings.TrimSpace(submissionID); id != "" {
		out, err = h.svc.Splice(c.UserContext(), id, insertAt)
	} else {
		out, err = h.spliceUpload(c, insertAt)
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"splice": out})
}

func (h *SpliceHandler) spliceUpload(c *fiber.Ctx, insertAt int64) (*types.SpliceOutput, error) {
	file, err := c.FormFile("video")
	if err != nil {
		return nil, apierr.BadRequest("ERR_NO_FILE", "submissionId or video is required")
	}
	if _, err := checkVideo(file, h.maxBytes); err != nil {
		return nil, err
	}

	tempPath := h.svc.Files().TempUploadPath(file.Filename)
	if err := c.SaveFile(file, tempPath); err != nil {
		os.Remove(tempPath)
		return nil, apierr.New(fiber.StatusInternalServerError, "ERR_SAVE_FAILED", fmt.Errorf("failed to save file: %w", err))
	}
	return h.svc.SpliceUpload(c.UserContext(), tempPath, insertAt)
}

// parseInsertAt accepts integer or fractional milliseconds; the range check belongs to the splicer
func parseInsertAt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apierr.BadRequest("ERR_INVALID_INSERT", "insertAtMs is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apierr.BadRequest("ERR_INVALID_INSERT", "insertAtMs must be a number")
	}
	return int64(math.Round(v)), nil
}
