package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/queue"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// RunJob runs every stage for the job's submission, reusing whatever earlier runs stored.
func (s *Service) RunJob(ctx context.Context, job queue.Job, progress func(status string)) (string, error) {
	id := job.SubmissionID

	progress(types.StatusTranscribing)
	if _, _, err := s.Transcribe(ctx, id); err != nil {
		return "", err
	}

	progress(types.StatusAnalyzing)
	sub, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !hasScripts(sub) {
		if _, err := s.Analyze(ctx, id); err != nil {
			return "", err
		}
		if sub, err = s.Get(ctx, id); err != nil {
			return "", err
		}
		if !hasScripts(sub) {
			return "", apierr.Upstream("ERR_GEMINI", fmt.Errorf("model response missing %v", sub.Gemini.Missing))
		}
	}

	progress(types.StatusCapturing)
	if _, err := s.midFrame(ctx, sub); err != nil {
		return "", err
	}

	progress(types.StatusGenerating)
	if c1, c2 := s.files.ClipPath(id, 1), s.files.ClipPath(id, 2); !fileExists(c1) || !fileExists(c2) {
		if _, err := s.GenerateClips(ctx, id); err != nil {
			return "", err
		}
	}

	progress(types.StatusSplicing)
	insertAt := int64(0)
	if job.InsertAtMs != nil {
		insertAt = *job.InsertAtMs
	} else if insertAt, err = s.defaultInsertAt(ctx, sub); err != nil {
		return "", err
	}

	out, err := s.Splice(ctx, id, insertAt)
	if err != nil {
		return "", err
	}
	return out.OutputURL, nil
}

// defaultInsertAt is the start of the longest break when it lies inside the video, else the midpoint.
func (s *Service) defaultInsertAt(ctx context.Context, sub *types.Submission) (int64, error) {
	dur, err := s.media.ProbeDuration(ctx, sub.File.StoredPath)
	if err != nil {
		return 0, apierr.Upstream("ERR_PROBE", fmt.Errorf("probe failed: %w", err))
	}
	durMs := int64(math.Round(dur * 1000))

	if b := sub.Gemini.LongestBreak; b.Detected() && *b.StartMs > 0 && *b.StartMs < durMs {
		return *b.StartMs, nil
	}
	return durMs / 2, nil
}
