package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/queue"
	"github.com/codebuildervaibhav/quizsplice/internal/storage"
)

// Routes is everything the HTTP layer needs
type Routes struct {
	Service   *pipeline.Service
	Pool      *queue.WorkerPool
	Tracker   *queue.Tracker
	Drive     storage.DriveFetcher
	MaxUpload int64
	PublicDir string
	LogLines  func() []string
	Log       *logger.Logger
}

// Register mounts the API, the job websocket and the static directories on app
func Register(app *fiber.App, r Routes) {
	upload := NewUploadHandler(r.Service, r.MaxUpload, r.Log)
	gdrive := NewGDriveHandler(r.Service, r.Drive, r.MaxUpload, r.Log)
	subs := NewSubmissionHandler(r.Service, r.Log)
	splice := NewSpliceHandler(r.Service, r.MaxUpload, r.Log)
	jobs := NewJobHandler(r.Service, r.Pool, r.Tracker, r.Log)
	stream := NewStreamHandler(r.Tracker, r.Log)
	alexa := NewAlexaHandler(r.Service, r.Log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return ok(c, fiber.Map{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	api := app.Group("/api")
	api.Post("/upload", upload.Handle)
	api.Post("/upload/gdrive", gdrive.Handle)

	api.Get("/submissions", subs.List)
	api.Get("/submissions/:id", subs.Get)
	api.Post("/submissions/:id/transcribe", subs.Transcribe)
	api.Post("/submissions/:id/gemini", subs.Analyze)
	api.Post("/submissions/:id/clips", subs.Clips)
	api.Get("/submissions/:id/screenshot", subs.Screenshot)
	api.Post("/submissions/:id/jobs", jobs.Enqueue)

	api.Post("/splice", splice.Handle)
	api.Get("/jobs/:id", jobs.Status)

	api.Get("/alexa/session/:id", alexa.Session)
	api.Post("/alexa/verify", alexa.Verify)

	if r.LogLines != nil {
		api.Get("/logs", func(c *fiber.Ctx) error {
			return ok(c, fiber.Map{"logs": r.LogLines()})
		})
	}

	app.Use("/ws", stream.Upgrade)
	app.Get("/ws/jobs/:id", websocket.New(stream.Handle))

	files := r.Service.Files()
	app.Static(storage.UploadsURLPrefix, files.UploadDir())
	app.Static(storage.GeneratedURLPrefix, files.GeneratedDir())
	if r.PublicDir != "" {
		app.Static("/", r.PublicDir)
	}
}
