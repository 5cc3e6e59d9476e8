package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
}

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "splice_old.mp4")
	nested := filepath.Join(dir, "audio", "old.wav")
	fresh := filepath.Join(dir, "splice_new.mp4")
	writeAged(t, old, 48*time.Hour)
	writeAged(t, nested, 30*time.Hour)
	writeAged(t, fresh, time.Minute)

	s := NewScheduler(dir, time.Hour, 24*time.Hour, logger.Nop())
	if n := s.Sweep(time.Now()); n != 2 {
		t.Errorf("deleted %d files, want 2", n)
	}
	for _, p := range []string{old, nested} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be gone", p)
		}
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
}

func TestStartSweepsImmediatelyAndStops(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "stale.part")
	writeAged(t, old, 2*time.Hour)

	s := NewScheduler(dir, time.Hour, time.Hour, logger.Nop())
	s.Start(context.Background())
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("initial sweep did not run")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSweepMissingDir(t *testing.T) {
	s := NewScheduler(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Hour, logger.Nop())
	if n := s.Sweep(time.Now()); n != 0 {
		t.Errorf("deleted %d", n)
	}
}
