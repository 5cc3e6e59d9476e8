// Package pipeline runs the per-submission stages: transcription, analysis, clip generation
// and splicing, plus the quiz session derived from them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/media"
	"github.com/codebuildervaibhav/quizsplice/internal/storage"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
	"github.com/codebuildervaibhav/quizsplice/internal/verify"
	"github.com/codebuildervaibhav/quizsplice/internal/videogen"
)

// Transcriber turns a video into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) (*types.Transcript, error)
}

// Analyzer asks the language model for the show, break window and two scripts.
type Analyzer interface {
	Analyze(ctx context.Context, goal string, tr *types.Transcript) (*types.AnalysisResult, error)
}

// ClipGenerator produces one generated clip on disk.
type ClipGenerator interface {
	Generate(ctx context.Context, req videogen.ClipRequest) error
}

// Publisher copies a finished video somewhere shareable and returns its link.
type Publisher interface {
	Publish(ctx context.Context, localPath, name string) (string, error)
}

// Deps are the collaborators of a Service. Transcriber, Analyzer, Clips and Publisher may be
// nil when the backing tool or API is not configured.
type Deps struct {
	Repo        storage.Repository
	Files       *storage.LocalStorage
	Media       media.Toolkit
	Transcriber Transcriber
	Analyzer    Analyzer
	Clips       ClipGenerator
	Publisher   Publisher
	Checker     verify.Checker
	Log         *logger.Logger
}

// Service implements every pipeline stage on top of a Repository.
type Service struct {
	repo        storage.Repository
	files       *storage.LocalStorage
	media       media.Toolkit
	transcriber Transcriber
	analyzer    Analyzer
	clips       ClipGenerator
	publisher   Publisher
	checker     verify.Checker
	log         *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		repo:        d.Repo,
		files:       d.Files,
		media:       d.Media,
		transcriber: d.Transcriber,
		analyzer:    d.Analyzer,
		clips:       d.Clips,
		publisher:   d.Publisher,
		checker:     d.Checker,
		log:         d.Log.With("component", "Pipeline"),
	}
}

// Files exposes the media layout so handlers can place uploads.
func (s *Service) Files() *storage.LocalStorage { return s.files }

// NewSubmission is what the upload handlers know about a freshly stored file.
type NewSubmission struct {
	ID         string
	Prompt     string
	SourceType string
	File       types.FileMeta
}

// CreateSubmission records an upload that is already on disk.
func (s *Service) CreateSubmission(ctx context.Context, in NewSubmission) (*types.Submission, error) {
	sub := &types.Submission{
		ID:         in.ID,
		CreatedAt:  time.Now().UTC(),
		Prompt:     in.Prompt,
		SourceType: in.SourceType,
		File:       in.File,
	}
	if sub.File.URL == "" {
		sub.File.URL = s.files.URLFor(sub.File.StoredPath)
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	s.log.Info("submission created", "submission", sub.ID, "source", sub.SourceType, "size", sub.File.Size)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id string) (*types.Submission, error) {
	sub, err := s.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apierr.NotFound("ERR_NOT_FOUND", "submission not found")
	}
	return sub, err
}

func (s *Service) List(ctx context.Context) ([]*types.Submission, error) {
	return s.repo.List(ctx)
}

// update persists fn's changes and maps a missing record to 404.
func (s *Service) update(ctx context.Context, id string, fn func(*types.Submission) error) (*types.Submission, error) {
	sub, err := s.repo.Update(ctx, id, fn)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apierr.NotFound("ERR_NOT_FOUND", "submission not found")
	}
	return sub, err
}

func notConfigured(what string) error {
	return apierr.Upstream("ERR_NOT_CONFIGURED", fmt.Errorf("%s is not configured", what))
}
