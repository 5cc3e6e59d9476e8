package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
)

// SubmissionHandler exposes the stored submissions and runs single pipeline stages on them
type SubmissionHandler struct {
	svc *pipeline.Service
	log *logger.Logger
}

func NewSubmissionHandler(svc *pipeline.Service, log *logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, log: log.With("handler", "submissions")}
}

// List returns all submissions, newest first
func (h *SubmissionHandler) List(c *fiber.Ctx) error {
	subs, err := h.svc.List(c.UserContext())
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"submissions": subs})
}

func (h *SubmissionHandler) Get(c *fiber.Ctx) error {
	sub, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"submission": sub})
}

// Transcribe runs whisper unless a transcript is already stored
func (h *SubmissionHandler) Transcribe(c *fiber.Ctx) error {
	tr, cached, err := h.svc.Transcribe(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"transcript": tr, "cached": cached})
}

// Analyze asks the language model for the show, break, question and answer
func (h *SubmissionHandler) Analyze(c *fiber.Ctx) error {
	res, err := h.svc.Analyze(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"gemini": res})
}

// Clips generates the question and answer clips
func (h *SubmissionHandler) Clips(c *fiber.Ctx) error {
	clips, err := h.svc.GenerateClips(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"clips": clips})
}

// Screenshot serves the middle frame as PNG
func (h *SubmissionHandler) Screenshot(c *fiber.Ctx) error {
	path, err := h.svc.Screenshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	c.Type("png")
	return c.SendFile(path)
}
