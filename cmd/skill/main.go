package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/skill"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log, err := logger.New(getenv("SKILL_LOG_MODE", "dev"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	backendURL := getenv("SKILL_BACKEND_URL", "http://localhost:3000")
	submissionID := os.Getenv("SKILL_SUBMISSION_ID")
	if submissionID == "" {
		log.Warn("SKILL_SUBMISSION_ID not set, launches will report a missing quiz")
	}

	timeout, err := time.ParseDuration(getenv("SKILL_BACKEND_TIMEOUT", "10s"))
	if err != nil {
		log.Fatal("invalid SKILL_BACKEND_TIMEOUT", "error", err)
	}

	s := skill.New(skill.NewClient(backendURL, timeout), submissionID, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Post("/", s.Webhook)
	app.Post("/alexa", s.Webhook)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + getenv("SKILL_PORT", "3001")
	log.Info("skill webhook starting", "addr", addr, "backend", backendURL, "submission", submissionID)
	if err := app.Listen(addr); err != nil {
		log.Error("skill server failed", "error", err)
	}
}
