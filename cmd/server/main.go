package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/quizsplice/internal/analysis"
	"github.com/codebuildervaibhav/quizsplice/internal/cleanup"
	"github.com/codebuildervaibhav/quizsplice/internal/config"
	"github.com/codebuildervaibhav/quizsplice/internal/handlers"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/media"
	"github.com/codebuildervaibhav/quizsplice/internal/pipeline"
	"github.com/codebuildervaibhav/quizsplice/internal/queue"
	"github.com/codebuildervaibhav/quizsplice/internal/storage"
	"github.com/codebuildervaibhav/quizsplice/internal/transcription"
	"github.com/codebuildervaibhav/quizsplice/internal/verify"
	"github.com/codebuildervaibhav/quizsplice/internal/videogen"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $QUIZSPLICE_CONFIG or config/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logBuffer, err := logger.NewWithBuffer(cfg.Log.Mode, cfg.Log.BufferLines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing components")

	files, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.GeneratedDir, cfg.Storage.TempDir)
	if err != nil {
		log.Fatal("failed to prepare media directories", "error", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal("failed to open submission store", "backend", cfg.Storage.Backend, "error", err)
	}
	defer repo.Close()
	log.Info("submission store ready", "backend", cfg.Storage.Backend)

	runner := media.NewExecRunner(log)
	ffmpeg := media.NewFFmpeg(runner, log, cfg.FFmpeg.Path, cfg.FFmpeg.ProbePath)

	deps := pipeline.Deps{
		Repo:    repo,
		Files:   files,
		Media:   ffmpeg,
		Checker: verify.NewChecker(cfg.Verify.MinOverlap),
		Log:     log,
	}

	whisper, err := transcription.NewWhisperTranscriber(transcription.WhisperConfig{
		Binary:    cfg.Whisper.Binary,
		ModelPath: cfg.Whisper.ModelPath,
		Threads:   cfg.Whisper.Threads,
		Language:  cfg.Whisper.Language,
		TempDir:   cfg.Storage.TempDir,
	}, runner, ffmpeg, log)
	if err != nil {
		log.Warn("whisper not available, transcription disabled", "error", err)
	} else {
		deps.Transcriber = whisper
	}

	gemini, err := analysis.NewGeminiClient(analysis.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		BaseURL:     cfg.Gemini.BaseURL,
		Temperature: *cfg.Gemini.Temperature,
	}, log)
	if err != nil {
		log.Warn("gemini not configured, analysis disabled", "error", err)
	} else {
		deps.Analyzer = analysis.NewAnalyzer(gemini, log)
	}

	veo, err := videogen.NewVeoClient(videogen.VeoConfig{
		APIKey:       cfg.Veo.APIKey,
		Model:        cfg.Veo.Model,
		BaseURL:      cfg.Veo.BaseURL,
		PollInterval: cfg.VeoPollInterval(),
		AspectRatio:  cfg.Veo.AspectRatio,
	}, log)
	if err != nil {
		log.Warn("veo not configured, clip generation disabled", "error", err)
	} else {
		deps.Clips = veo
	}

	// Google Drive client (optional - may fail if credentials not set up)
	var drive storage.DriveFetcher = &storage.PublicDriveFetcher{}
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName, log)
		if err != nil {
			log.Warn("google drive not available, using public links only", "error", err)
		} else {
			log.Info("google drive integration enabled", "folder", cfg.GoogleDrive.FolderName)
			drive = driveClient
			if cfg.GoogleDrive.Publish {
				deps.Publisher = driveClient
			}
		}
	} else {
		log.Info("google drive credentials not found, using public links only")
	}

	svc := pipeline.NewService(deps)

	broker, err := openBroker(cfg, log)
	if err != nil {
		log.Fatal("failed to open job queue", "backend", cfg.Queue.Backend, "error", err)
	}
	tracker := queue.NewTracker()
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, broker, tracker, svc, log)
	workerPool.Start(ctx)

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
		log,
	)
	cleanupScheduler.Start(ctx)

	app := fiber.New(fiber.Config{
		// multipart overhead on top of the largest accepted file; the handlers enforce the real limit
		BodyLimit:             int(cfg.MaxUploadBytes()) + 1024*1024,
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.Register(app, handlers.Routes{
		Service:   svc,
		Pool:      workerPool,
		Tracker:   tracker,
		Drive:     drive,
		MaxUpload: cfg.MaxUploadBytes(),
		PublicDir: cfg.Server.PublicDir,
		LogLines:  logBuffer.Lines,
		Log:       log,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	addr := cfg.Addr()
	log.Info("server starting", "addr", addr, "workers", cfg.Workers.Count, "queue", cfg.Queue.Backend)
	if err := app.Listen(addr); err != nil {
		log.Error("server failed", "error", err)
	}

	cleanupScheduler.Stop()
	workerPool.Stop()
	if err := broker.Close(); err != nil {
		log.Warn("queue close failed", "error", err)
	}
	log.Info("shutdown complete")
}

func openRepository(cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case "json":
		return storage.NewJSONStore(cfg.Storage.DataFile)
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.Database)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func openBroker(cfg *config.Config, log *logger.Logger) (queue.Broker, error) {
	switch cfg.Queue.Backend {
	case "memory":
		return queue.NewChannelBroker(cfg.Queue.Size), nil
	case "redis":
		return queue.NewRedisBroker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Queue.Key, log)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}
