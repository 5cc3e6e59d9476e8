package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// DefaultFPS is used when a probed frame rate is malformed or out of range.
const DefaultFPS = 30.0

// VideoProps is the geometry of a video stream.
type VideoProps struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Toolkit is the set of media operations the pipeline needs.
type Toolkit interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ProbeVideo(ctx context.Context, path string) (VideoProps, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	CaptureMidFrame(ctx context.Context, videoPath, outPath string) error
	HasAudio(ctx context.Context, path string) bool
	Splice(ctx context.Context, in SpliceInput) error
}

// FFmpeg implements Toolkit with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	runner      Runner
	log         *logger.Logger
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a toolkit. Empty binary paths default to "ffmpeg" and "ffprobe".
func NewFFmpeg(runner Runner, log *logger.Logger, ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		runner:      runner,
		log:         log.With("component", "FFmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ProbeDuration returns the container duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration failed: %w", err)
	}

	raw := strings.TrimSpace(out)
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, fmt.Errorf("invalid duration: %v", duration)
	}
	return duration, nil
}

type probeStreams struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// ProbeVideo returns width, height and frame rate of the first video stream.
func (f *FFmpeg) ProbeVideo(ctx context.Context, path string) (VideoProps, error) {
	out, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "json",
		path,
	)
	if err != nil {
		return VideoProps{}, fmt.Errorf("ffprobe video failed: %w", err)
	}

	var parsed probeStreams
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return VideoProps{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return VideoProps{}, fmt.Errorf("no video stream in %s", filepath.Base(path))
	}

	s := parsed.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return VideoProps{}, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
	}
	return VideoProps{
		Width:  s.Width,
		Height: s.Height,
		FPS:    ParseFrameRate(s.RFrameRate),
	}, nil
}

// ParseFrameRate turns "30000/1001" or "25" into a float, falling back to DefaultFPS.
func ParseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultFPS
	}

	var fps float64
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return DefaultFPS
		}
		fps = n / d
	} else {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return DefaultFPS
		}
		fps = v
	}

	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 || fps >= 240 {
		return DefaultFPS
	}
	return fps
}

// ExtractAudio converts a video's audio to 16kHz mono 16-bit PCM WAV.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("mkdir audio dir: %w", err)
	}
	_, err := f.runner.Run(ctx, f.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio failed: %w", err)
	}
	return nil
}

// CaptureMidFrame writes exactly one PNG frame taken at half the video's duration.
func (f *FFmpeg) CaptureMidFrame(ctx context.Context, videoPath, outPath string) error {
	duration, err := f.ProbeDuration(ctx, videoPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("mkdir frame dir: %w", err)
	}

	_, err = f.runner.Run(ctx, f.ffmpegPath,
		"-y",
		"-ss", formatSeconds(duration/2),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "png",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg frame capture failed: %w", err)
	}
	return nil
}

// HasAudio reports whether path has at least one audio stream. Probe failures count as no audio.
func (f *FFmpeg) HasAudio(ctx context.Context, path string) bool {
	out, err := f.runner.Run(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		f.log.Debug("audio probe failed, treating as silent", "path", path, "error", err)
		return false
	}
	return strings.TrimSpace(out) != ""
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
