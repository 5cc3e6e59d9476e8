package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// Scheduler removes stale scratch files (audio extracts, half-finished downloads, ad-hoc
// splice uploads) from the temp directory. Uploads and generated media are never touched.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, interval, maxAge time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: interval,
		maxAge:   maxAge,
		log:      log.With("component", "Cleanup"),
	}
}

// Start runs one sweep immediately, then one per interval until Stop or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.log.Info("running initial temp file cleanup", "dir", s.tempDir)
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.Sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	s.log.Info("cleanup scheduler started", "interval", s.interval.String(), "max_age", s.maxAge.String())
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("cleanup scheduler stopped")
}

// Sweep removes files older than maxAge relative to now and reports how many went.
func (s *Scheduler) Sweep(now time.Time) int {
	var (
		deletedCount int
		deletedSize  int64
	)

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.log.Warn("failed to delete old temp file", "path", path, "error", err)
			return nil
		}
		deletedCount++
		deletedSize += size
		s.log.Debug("deleted old temp file", "file", filepath.Base(path), "age", age.Round(time.Minute).String(), "size_kb", size/1024)
		return nil
	})
	if err != nil {
		s.log.Error("error during cleanup", "error", err)
	}

	if deletedCount > 0 {
		s.log.Info("cleanup complete", "deleted", deletedCount, "freed_mb", float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}
