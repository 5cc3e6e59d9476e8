package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
)

// AlexaHandler serves the quiz session and grades spoken answers for the voice skill
type AlexaHandler struct {
	svc *pipeline.Service
	log *logger.Logger
}

func NewAlexaHandler(svc *pipeline.Service, log *logger.Logger) *AlexaHandler {
	return &AlexaHandler{svc: svc, log: log.With("handler", "alexa")}
}

// VerifyRequest is a spoken answer for a submission's quiz
type VerifyRequest struct {
	SubmissionID string `json:"submissionId"`
	Answer       string `json:"answer"`
}

func (h *AlexaHandler) Session(c *fiber.Ctx) error {
	session, err := h.svc.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"session": session})
}

// Verify grades the answer; a wrong answer is still a 200
func (h *AlexaHandler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, h.log, apierr.BadRequest("ERR_INVALID_BODY", "Invalid request body"))
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		return fail(c, h.log, apierr.BadRequest("ERR_NO_SUBMISSION", "submissionId is required"))
	}

	res, err := h.svc.VerifyAnswer(c.UserContext(), req.SubmissionID, req.Answer)
	if err != nil {
		return fail(c, h.log, err)
	}
	return ok(c, fiber.Map{"correct": res.Correct, "message": res.Message, "score": res.Score})
}
