package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

func newSubmission(id string, at time.Time) *types.Submission {
	return &types.Submission{
		ID:        id,
		CreatedAt: at,
		Prompt:    "learn " + id,
		File:      types.FileMeta{OriginalName: id + ".mp4", Size: 42, MimeType: "video/mp4"},
	}
}

// repositories returns one instance of every backend rooted in a fresh temp dir.
func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	dir := t.TempDir()

	js, err := NewJSONStore(filepath.Join(dir, "data", "submissions.json"))
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	sq, err := NewSQLiteStore(filepath.Join(dir, "data", "quizsplice.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Repository{"json": js, "sqlite": sq}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Upsert(ctx, newSubmission("a", base)); err != nil {
				t.Fatal(err)
			}
			if err := repo.Upsert(ctx, newSubmission("b", base.Add(time.Minute))); err != nil {
				t.Fatal(err)
			}

			list, err := repo.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
				t.Fatalf("expected newest first, got %v", ids(list))
			}

			got, err := repo.Get(ctx, "a")
			if err != nil || got.Prompt != "learn a" || got.File.Size != 42 {
				t.Fatalf("Get(a) = %+v, %v", got, err)
			}

			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo.Upsert(ctx, newSubmission("a", base))
			repo.Upsert(ctx, newSubmission("b", base.Add(time.Minute)))

			changed := newSubmission("a", base)
			changed.Prompt = "changed"
			if err := repo.Upsert(ctx, changed); err != nil {
				t.Fatal(err)
			}

			list, _ := repo.List(ctx)
			if len(list) != 2 || list[1].ID != "a" || list[1].Prompt != "changed" {
				t.Errorf("replace should keep position, got %v", ids(list))
			}
		})
	}
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo.Upsert(ctx, newSubmission("a", time.Now()))

			updated, err := repo.Update(ctx, "a", func(s *types.Submission) error {
				s.Transcript = &types.Transcript{Text: "hello"}
				return nil
			})
			if err != nil || updated.Transcript == nil {
				t.Fatalf("Update = %+v, %v", updated, err)
			}
			got, _ := repo.Get(ctx, "a")
			if got.Transcript == nil || got.Transcript.Text != "hello" {
				t.Errorf("update not persisted: %+v", got.Transcript)
			}

			boom := errors.New("boom")
			_, err = repo.Update(ctx, "a", func(s *types.Submission) error {
				s.Prompt = "should not persist"
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("expected fn error, got %v", err)
			}
			got, _ = repo.Get(ctx, "a")
			if got.Prompt == "should not persist" {
				t.Error("failed update must not be written")
			}

			if _, err := repo.Update(ctx, "missing", func(*types.Submission) error { return nil }); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				repo.Upsert(ctx, newSubmission(fmt.Sprintf("s%d", i), time.Now()))
			}

			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := repo.Update(ctx, fmt.Sprintf("s%d", i), func(s *types.Submission) error {
						s.Prompt = "updated"
						return nil
					})
					if err != nil {
						t.Errorf("update s%d: %v", i, err)
					}
				}(i)
			}
			wg.Wait()

			list, _ := repo.List(ctx)
			for _, s := range list {
				if s.Prompt != "updated" {
					t.Errorf("lost update for %s", s.ID)
				}
			}
		})
	}
}

func TestJSONStoreFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.json")
	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("new store should be an empty array, got %q", data)
	}

	store.Upsert(context.Background(), newSubmission("a", time.Now()))
	data, _ = os.ReadFile(path)
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "[") || !strings.Contains(string(data), `"id": "a"`) {
		t.Errorf("unexpected file contents %s", data)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.List(context.Background()); err == nil {
		t.Error("corrupt store should be reported")
	}
}

func TestLocalStoragePaths(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(filepath.Join(dir, "uploads"), filepath.Join(dir, "generated"), filepath.Join(dir, "temp"))
	if err != nil {
		t.Fatal(err)
	}

	for _, sub := range []string{"clips", "frames", "outputs"} {
		if info, err := os.Stat(filepath.Join(dir, "generated", sub)); err != nil || !info.IsDir() {
			t.Errorf("missing %s dir", sub)
		}
	}

	tests := []struct {
		path string
		url  string
	}{
		{ls.UploadPath("abc", "My Video.mp4"), "/uploads/abc_My_Video.mp4"},
		{ls.ClipPath("abc", 1), "/generated/clips/abc_clip1.mp4"},
		{ls.LegacyClipPath(2), "/generated/clips/clip2.mp4"},
		{ls.FramePath("abc"), "/generated/frames/abc_mid.png"},
	}
	for _, tt := range tests {
		if got := ls.URLFor(tt.path); got != tt.url {
			t.Errorf("URLFor(%s) = %q, want %q", tt.path, got, tt.url)
		}
		back, ok := ls.PathFromURL(tt.url)
		if !ok || back != tt.path {
			t.Errorf("PathFromURL(%s) = %q, %v; want %q", tt.url, back, ok, tt.path)
		}
	}

	out := ls.NewOutputPath()
	if !strings.HasPrefix(ls.URLFor(out), "/generated/outputs/") || !strings.HasSuffix(out, ".mp4") {
		t.Errorf("unexpected output path %s", out)
	}
	if ls.URLFor(filepath.Join(dir, "elsewhere.mp4")) != "" {
		t.Error("paths outside the served dirs have no URL")
	}
}

func TestPathFromURLRejects(t *testing.T) {
	dir := t.TempDir()
	ls, _ := NewLocalStorage(filepath.Join(dir, "uploads"), filepath.Join(dir, "generated"), filepath.Join(dir, "temp"))

	if p, ok := ls.PathFromURL("http://localhost:3000/generated/clips/x_clip1.mp4?v=2"); !ok || p != ls.ClipPath("x", 1) {
		t.Errorf("absolute URL should resolve, got %q %v", p, ok)
	}
	for _, u := range []string{"/generated/../../etc/passwd", "/static/app.js", "https://example.com", "/generated/"} {
		if p, ok := ls.PathFromURL(u); ok {
			t.Errorf("PathFromURL(%q) should fail, got %q", u, p)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":            "clip.mp4",
		"../../etc/passwd":    "passwd",
		`C:\videos\a b?.mov`:  "a_b_.mov",
		"":                    "video",
		"weird:name*<>|.webm": "weird_name____.webm",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}

	long := sanitizeFilename(strings.Repeat("x", 300) + ".mp4")
	if len(long) != 100 || !strings.HasSuffix(long, ".mp4") {
		t.Errorf("long names should be cut to 100 chars keeping the extension, got %d", len(long))
	}
}

func TestExtractDriveFileID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://drive.google.com/file/d/1AbC_def-GHI/view?usp=sharing", "1AbC_def-GHI"},
		{"https://drive.google.com/open?id=XYZ123", "XYZ123"},
		{"https://drive.google.com/uc?export=download&id=q_w-e", "q_w-e"},
		{"1234567890abcdefghijklmnopqrstuv", "1234567890abcdefghijklmnopqrstuv"},
		{"https://example.com/video.mp4", ""},
		{"short", ""},
	}
	for _, tt := range tests {
		if got := ExtractDriveFileID(tt.url); got != tt.want {
			t.Errorf("ExtractDriveFileID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestPublicDriveFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "ok":
			w.Header().Set("Content-Type", "video/mp4")
			w.Header().Set("Content-Disposition", `attachment; filename="lesson.mp4"`)
			w.Write([]byte("video-bytes"))
		case "big":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte(strings.Repeat("x", 64)))
		case "streamed":
			// no Content-Length, so only the copy can enforce the limit
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte(strings.Repeat("x", 32)))
			w.(http.Flusher).Flush()
			w.Write([]byte(strings.Repeat("x", 32)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := PublicDriveFetcher{BaseURL: srv.URL}
	dir := t.TempDir()

	file, err := f.Fetch(context.Background(), "ok", filepath.Join(dir, "ok.mp4"), 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Name != "lesson.mp4" || file.MimeType != "video/mp4" || file.Size != int64(len("video-bytes")) {
		t.Errorf("unexpected file %+v", file)
	}

	bigPath := filepath.Join(dir, "big.mp4")
	if _, err := f.Fetch(context.Background(), "big", bigPath, 10); !errors.Is(err, ErrDriveTooLarge) {
		t.Errorf("expected ErrDriveTooLarge, got %v", err)
	}
	if _, err := os.Stat(bigPath); !os.IsNotExist(err) {
		t.Error("oversized download must not be kept")
	}

	// the limit itself is already too large
	exactPath := filepath.Join(dir, "exact.mp4")
	if _, err := f.Fetch(context.Background(), "big", exactPath, 64); !errors.Is(err, ErrDriveTooLarge) {
		t.Errorf("file of exactly the limit: expected ErrDriveTooLarge, got %v", err)
	}
	if _, err := os.Stat(exactPath); !os.IsNotExist(err) {
		t.Error("download at the limit must not be kept")
	}

	streamedPath := filepath.Join(dir, "streamed.mp4")
	if _, err := f.Fetch(context.Background(), "streamed", streamedPath, 64); !errors.Is(err, ErrDriveTooLarge) {
		t.Errorf("streamed file of exactly the limit: expected ErrDriveTooLarge, got %v", err)
	}
	if _, err := os.Stat(streamedPath); !os.IsNotExist(err) {
		t.Error("streamed download at the limit must not be kept")
	}

	file, err = f.Fetch(context.Background(), "big", filepath.Join(dir, "under.mp4"), 65)
	if err != nil || file.Size != 64 {
		t.Errorf("file one byte under the limit: size=%d err=%v", file.Size, err)
	}

	if _, err := f.Fetch(context.Background(), "private", filepath.Join(dir, "p.mp4"), 1024); err == nil {
		t.Error("expected error for inaccessible file")
	}
}

func ids(list []*types.Submission) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func TestWriteLimited(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		size   int
		max    int64
		tooBig bool
	}{
		{"under limit", 9, 10, false},
		{"at limit", 10, 10, true},
		{"over limit", 11, 10, true},
		{"no limit", 50, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_"))
			n, err := writeLimited(strings.NewReader(strings.Repeat("x", tt.size)), dst, tt.max)
			if tt.tooBig {
				if !errors.Is(err, ErrDriveTooLarge) {
					t.Fatalf("expected ErrDriveTooLarge, got n=%d err=%v", n, err)
				}
				if _, err := os.Stat(dst); !os.IsNotExist(err) {
					t.Error("rejected file must be removed")
				}
				return
			}
			if err != nil || n != int64(tt.size) {
				t.Fatalf("n=%d err=%v", n, err)
			}
		})
	}
}
