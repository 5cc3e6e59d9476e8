package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/queue"
)

// JobHandler enqueues whole-pipeline runs and reports their state
type JobHandler struct {
	svc     *pipeline.Service
	pool    *queue.WorkerPool
	tracker *queue.Tracker
	log     *logger.Logger
}

func NewJobHandler(svc *pipeline.Service, pool *queue.WorkerPool, tracker *queue.Tracker, log *logger.Logger) *JobHandler {
	return &JobHandler{svc: svc, pool: pool, tracker: tracker, log: log.With("handler", "jobs")}
}

// JobRequest optionally pins the insertion point; without it the worker picks one.
type JobRequest struct {
	InsertAtMs json.Number `json:"insertAtMs"`
}

// Enqueue answers 202 with the queued job
func (h *JobHandler) Enqueue(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.svc.Get(c.UserContext(), id); err != nil {
		return fail(c, h.log, err)
	}

	var insertAt *int64
	if body := c.Body(); len(body) > 0 {
		var req JobRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return fail(c, h.log, apierr.BadRequest("ERR_INVALID_BODY", "Invalid request body"))
		}
		if req.InsertAtMs != "" {
			v, err := parseInsertAt(req.InsertAtMs.String())
			if err != nil {
				return fail(c, h.log, err)
			}
			insertAt = &v
		}
	}

	job, err := h.pool.Enqueue(c.UserContext(), id, insertAt)
	if err != nil {
		return fail(c, h.log, apierr.Upstream("ERR_QUEUE", fmt.Errorf("enqueue failed: %w", err)))
	}

	h.log.Info("job queued", "jobId", job.ID, "submissionId", id)
	c.Status(fiber.StatusAccepted)
	return ok(c, fiber.Map{"job": job})
}

func (h *JobHandler) Status(c *fiber.Ctx) error {
	job, found := h.tracker.Get(c.Params("id"))
	if !found {
		return fail(c, h.log, apierr.NotFound("ERR_NOT_FOUND", "job not found"))
	}
	return ok(c, fiber.Map{"job": job})
}
