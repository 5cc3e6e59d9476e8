package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/media"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// WhisperConfig configures the whisper.cpp binary.
type WhisperConfig struct {
	Binary    string
	ModelPath string
	Threads   int
	Language  string
	TempDir   string
}

// WhisperTranscriber runs whisper.cpp on audio extracted from a video.
type WhisperTranscriber struct {
	cfg    WhisperConfig
	runner media.Runner
	tools  media.Toolkit
	log    *logger.Logger
	mu     sync.Mutex // whisper.cpp saturates the CPU; one run at a time
}

// NewWhisperTranscriber creates a transcriber. The model file must exist.
func NewWhisperTranscriber(cfg WhisperConfig, runner media.Runner, tools media.Toolkit, log *logger.Logger) (*WhisperTranscriber, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("whisper model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found: %w", err)
	}
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "temp"
	}

	log = log.With("component", "WhisperTranscriber")
	log.Info("whisper configured", "binary", cfg.Binary, "model", cfg.ModelPath, "threads", cfg.Threads)

	return &WhisperTranscriber{
		cfg:    cfg,
		runner: runner,
		tools:  tools,
		log:    log,
	}, nil
}

// Transcribe extracts audio from videoPath and returns timestamped segments and full text.
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, videoPath string) (*types.Transcript, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if err := os.MkdirAll(wt.cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	base := filepath.Join(wt.cfg.TempDir, "whisper_"+uuid.New().String())
	wavPath := base + ".wav"
	srtPath := base + ".srt"
	txtPath := base + ".txt"
	defer func() {
		for _, p := range []string{wavPath, srtPath, txtPath} {
			_ = os.Remove(p)
		}
	}()

	if err := wt.tools.ExtractAudio(ctx, videoPath, wavPath); err != nil {
		return nil, err
	}

	args := []string{
		"-m", wt.cfg.ModelPath,
		"-f", wavPath,
		"-otxt",
		"-osrt",
		"-of", base,
	}
	if wt.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(wt.cfg.Threads))
	}
	if wt.cfg.Language != "" {
		args = append(args, "-l", wt.cfg.Language)
	}

	wt.log.Info("transcribing", "video", videoPath)
	if _, err := wt.runner.Run(ctx, wt.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	srtData, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper subtitles: %w", err)
	}
	segments := ParseSRT(string(srtData))

	text := ""
	if txtData, err := os.ReadFile(txtPath); err == nil {
		text = strings.Join(strings.Fields(string(txtData)), " ")
	}
	if text == "" {
		parts := make([]string, 0, len(segments))
		for _, s := range segments {
			parts = append(parts, s.Text)
		}
		text = strings.Join(parts, " ")
	}

	wt.log.Info("transcription completed", "segments", len(segments), "chars", len(text))

	return &types.Transcript{
		Text:      text,
		Segments:  segments,
		Model:     filepath.Base(wt.cfg.ModelPath),
		CreatedAt: time.Now().UTC(),
	}, nil
}
