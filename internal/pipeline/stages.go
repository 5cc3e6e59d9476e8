package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/media"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
	"github.com/codebuildervaibhav/quizsplice/internal/videogen"
)

// Transcribe runs whisper on the submission's upload. A stored non-empty transcript is
// returned unchanged with cached set.
func (s *Service) Transcribe(ctx context.Context, id string) (tr *types.Transcript, cached bool, err error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if sub.Transcript != nil && strings.TrimSpace(sub.Transcript.Text) != "" {
		return sub.Transcript, true, nil
	}
	if s.transcriber == nil {
		return nil, false, notConfigured("transcription")
	}
	if err := requireFile(sub.File.StoredPath, "ERR_FILE_MISSING", "uploaded video not found on disk"); err != nil {
		return nil, false, err
	}

	start := time.Now()
	tr, err = s.transcriber.Transcribe(ctx, sub.File.StoredPath)
	if err != nil {
		return nil, false, apierr.Upstream("ERR_TRANSCRIBE", fmt.Errorf("transcription failed: %w", err))
	}

	if _, err := s.update(ctx, id, func(sub *types.Submission) error {
		sub.Transcript = tr
		return nil
	}); err != nil {
		return nil, false, err
	}

	s.log.Info("transcription stored", "submission", id, "segments", len(tr.Segments), "elapsed", time.Since(start).String())
	return tr, false, nil
}

// Analyze asks the language model for the four-line analysis and stores it.
func (s *Service) Analyze(ctx context.Context, id string) (*types.AnalysisResult, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Transcript == nil || len(sub.Transcript.Segments) == 0 {
		return nil, apierr.BadRequest("ERR_NO_TRANSCRIPT", "run transcription first")
	}
	if s.analyzer == nil {
		return nil, notConfigured("gemini")
	}

	res, err := s.analyzer.Analyze(ctx, sub.Prompt, sub.Transcript)
	if err != nil {
		return nil, apierr.Upstream("ERR_GEMINI", fmt.Errorf("analysis failed: %w", err))
	}

	if _, err := s.update(ctx, id, func(sub *types.Submission) error {
		sub.Gemini = res
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info("analysis stored", "submission", id, "show", res.Show, "missing", strings.Join(res.Missing, ","))
	return res, nil
}

// Screenshot captures the mid-point frame once and returns its path.
func (s *Service) Screenshot(ctx context.Context, id string) (string, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.midFrame(ctx, sub)
}

func (s *Service) midFrame(ctx context.Context, sub *types.Submission) (string, error) {
	framePath := s.files.FramePath(sub.ID)
	if fileExists(framePath) {
		return framePath, nil
	}
	if err := requireFile(sub.File.StoredPath, "ERR_FILE_MISSING", "uploaded video not found on disk"); err != nil {
		return "", err
	}
	if err := s.media.CaptureMidFrame(ctx, sub.File.StoredPath, framePath); err != nil {
		return "", apierr.Upstream("ERR_FRAME", fmt.Errorf("frame capture failed: %w", err))
	}
	if !fileExists(framePath) {
		return "", apierr.Upstream("ERR_FRAME", errors.New("frame capture produced no image"))
	}
	return framePath, nil
}

// GenerateClips renders the question and answer clips concurrently and stores their URLs.
func (s *Service) GenerateClips(ctx context.Context, id string) (*types.GeneratedClips, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Gemini == nil || strings.TrimSpace(sub.Gemini.Clip1Question) == "" || strings.TrimSpace(sub.Gemini.Clip2Answer) == "" {
		return nil, apierr.BadRequest("ERR_NO_ANALYSIS", "missing clips, run analysis first")
	}
	if s.clips == nil {
		return nil, notConfigured("veo")
	}

	framePath, err := s.midFrame(ctx, sub)
	if err != nil {
		return nil, err
	}
	frame, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference frame: %w", err)
	}

	out := &types.GeneratedClips{
		Clip1Path: s.files.ClipPath(id, 1),
		Clip2Path: s.files.ClipPath(id, 2),
		Prompt1:   videogen.BuildClipPrompt(sub.Gemini.Show, sub.Gemini.Clip1Question),
		Prompt2:   videogen.BuildClipPrompt(sub.Gemini.Show, sub.Gemini.Clip2Answer),
		FramePath: framePath,
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, req := range []videogen.ClipRequest{
		{Prompt: out.Prompt1, ReferenceImage: frame, ImageMimeType: "image/png", OutPath: out.Clip1Path},
		{Prompt: out.Prompt2, ReferenceImage: frame, ImageMimeType: "image/png", OutPath: out.Clip2Path},
	} {
		req := req
		g.Go(func() error {
			if err := s.clips.Generate(gctx, req); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(req.OutPath), err)
			}
			if !fileExists(req.OutPath) {
				return fmt.Errorf("%s missing after generation", filepath.Base(req.OutPath))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apierr.Upstream("ERR_VEO", fmt.Errorf("clip generation failed: %w", err))
	}

	out.Clip1URL = s.files.URLFor(out.Clip1Path)
	out.Clip2URL = s.files.URLFor(out.Clip2Path)
	out.CreatedAt = time.Now().UTC()

	if _, err := s.update(ctx, id, func(sub *types.Submission) error {
		sub.Clips = out
		return nil
	}); err != nil {
		return nil, err
	}

	s.log.Info("clips stored", "submission", id, "elapsed", time.Since(start).String())
	return out, nil
}

// Splice inserts the submission's clips into its original at insertAtMs.
func (s *Service) Splice(ctx context.Context, id string, insertAtMs int64) (*types.SpliceOutput, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireFile(sub.File.StoredPath, "ERR_FILE_MISSING", "uploaded video not found on disk"); err != nil {
		return nil, err
	}
	clip1, clip2, err := s.resolveClips(sub)
	if err != nil {
		return nil, err
	}

	out, err := s.splice(ctx, sub.File.StoredPath, clip1, clip2, insertAtMs)
	if err != nil {
		return nil, err
	}
	out.DriveURL = s.publish(ctx, out.OutputPath, fmt.Sprintf("%s_quiz.mp4", id))

	if _, err := s.update(ctx, id, func(sub *types.Submission) error {
		sub.Splice = out
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// SpliceUpload splices the legacy clip pair into an ad-hoc upload, then deletes the upload.
func (s *Service) SpliceUpload(ctx context.Context, videoPath string, insertAtMs int64) (*types.SpliceOutput, error) {
	defer func() {
		if err := os.Remove(videoPath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove temp upload", "path", videoPath, "error", err)
		}
	}()

	clip1, clip2 := s.files.LegacyClipPath(1), s.files.LegacyClipPath(2)
	if !fileExists(clip1) || !fileExists(clip2) {
		return nil, apierr.NotFound("ERR_CLIPS_MISSING", "generated clips not found, generate clips first")
	}
	out, err := s.splice(ctx, videoPath, clip1, clip2, insertAtMs)
	if err != nil {
		return nil, err
	}
	out.DriveURL = s.publish(ctx, out.OutputPath, filepath.Base(out.OutputPath))
	return out, nil
}

func (s *Service) splice(ctx context.Context, original, clip1, clip2 string, insertAtMs int64) (*types.SpliceOutput, error) {
	if insertAtMs <= 0 {
		return nil, apierr.BadRequest("ERR_INVALID_INSERT", "insertAtMs must be a positive number of milliseconds")
	}

	outPath := s.files.NewOutputPath()
	start := time.Now()
	err := s.media.Splice(ctx, media.SpliceInput{
		OriginalPath: original,
		Clip1Path:    clip1,
		Clip2Path:    clip2,
		InsertAtMs:   insertAtMs,
		OutputPath:   outPath,
	})
	if errors.Is(err, media.ErrInsertOutOfRange) {
		return nil, apierr.New(http.StatusBadRequest, "ERR_INVALID_INSERT", err)
	}
	if err != nil {
		return nil, apierr.Upstream("ERR_SPLICE", fmt.Errorf("splice failed: %w", err))
	}

	s.log.Info("splice finished", "output", outPath, "insert_at_ms", insertAtMs, "elapsed", time.Since(start).String())
	return &types.SpliceOutput{
		OutputPath: outPath,
		OutputURL:  s.files.URLFor(outPath),
		InsertAtMs: insertAtMs,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// resolveClips prefers the submission's own clip files, then the stored URLs, then the legacy pair.
func (s *Service) resolveClips(sub *types.Submission) (string, string, error) {
	if c1, c2 := s.files.ClipPath(sub.ID, 1), s.files.ClipPath(sub.ID, 2); fileExists(c1) && fileExists(c2) {
		return c1, c2, nil
	}

	if sub.Clips != nil {
		c1, ok1 := s.files.PathFromURL(sub.Clips.Clip1URL)
		c2, ok2 := s.files.PathFromURL(sub.Clips.Clip2URL)
		if ok1 && ok2 && fileExists(c1) && fileExists(c2) {
			return c1, c2, nil
		}
	}

	if c1, c2 := s.files.LegacyClipPath(1), s.files.LegacyClipPath(2); fileExists(c1) && fileExists(c2) {
		s.log.Warn("using legacy clip pair", "submission", sub.ID)
		return c1, c2, nil
	}

	return "", "", apierr.NotFound("ERR_CLIPS_MISSING", "generated clips not found, generate clips first")
}

// publish uploads to Drive when configured. Failures are logged and yield an empty link.
func (s *Service) publish(ctx context.Context, path, name string) string {
	if s.publisher == nil {
		return ""
	}
	link, err := s.publisher.Publish(ctx, path, name)
	if err != nil {
		s.log.Warn("drive publish failed, keeping local output only", "output", path, "error", err)
		return ""
	}
	s.log.Info("output published to drive", "output", path, "link", link)
	return link
}

func requireFile(path, code, msg string) error {
	if path == "" || !fileExists(path) {
		return apierr.NotFound(code, msg)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
