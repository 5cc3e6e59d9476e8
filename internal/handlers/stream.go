package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/queue"
)

// StreamHandler pushes job status changes over a WebSocket
type StreamHandler struct {
	tracker *queue.Tracker
	log     *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(tracker *queue.Tracker, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		tracker: tracker,
		log:     log.With("handler", "stream"),
	}
}

// Upgrade rejects plain HTTP requests on the WebSocket routes
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle sends the current job state, then every change until the job finishes or the client leaves
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	if _, found := h.tracker.Get(id); !found {
		c.WriteJSON(fiber.Map{"ok": false, "error": "job not found", "code": "ERR_NOT_FOUND"})
		return
	}

	updates, cancel := h.tracker.Subscribe(id)
	defer cancel()

	// The client never sends anything meaningful; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.log.Debug("job stream opened", "jobId", id)
	for {
		select {
		case <-gone:
			h.log.Debug("job stream closed by client", "jobId", id)
			return
		case job, open := <-updates:
			if !open {
				return
			}
			if err := c.WriteJSON(job); err != nil {
				h.log.Warn("job stream write failed", "jobId", id, "error", err)
				return
			}
			if job.Terminal() {
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, job.Status))
				return
			}
		}
	}
}
