package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	UploadsURLPrefix   = "/uploads"
	GeneratedURLPrefix = "/generated"
)

// LocalStorage lays out uploaded and generated media on disk and maps paths to public URLs.
//
//	<uploads>/<id>_<name>
//	<generated>/clips/<id>_clip<N>.mp4
//	<generated>/frames/<id>_mid.png
//	<generated>/outputs/<uuid>.mp4
type LocalStorage struct {
	uploadDir    string
	generatedDir string
	tempDir      string
}

// NewLocalStorage creates the directory tree if needed.
func NewLocalStorage(uploadDir, generatedDir, tempDir string) (*LocalStorage, error) {
	ls := &LocalStorage{
		uploadDir:    filepath.Clean(uploadDir),
		generatedDir: filepath.Clean(generatedDir),
		tempDir:      filepath.Clean(tempDir),
	}
	for _, dir := range []string{
		ls.uploadDir,
		ls.tempDir,
		filepath.Join(ls.generatedDir, "clips"),
		filepath.Join(ls.generatedDir, "frames"),
		filepath.Join(ls.generatedDir, "outputs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return ls, nil
}

func (ls *LocalStorage) UploadDir() string    { return ls.uploadDir }
func (ls *LocalStorage) GeneratedDir() string { return ls.generatedDir }
func (ls *LocalStorage) TempDir() string      { return ls.tempDir }

// UploadPath is where the upload for submission id is stored.
func (ls *LocalStorage) UploadPath(id, originalName string) string {
	return filepath.Join(ls.uploadDir, fmt.Sprintf("%s_%s", id, sanitizeFilename(originalName)))
}

// TempUploadPath is a throwaway location for ad-hoc splice uploads.
func (ls *LocalStorage) TempUploadPath(originalName string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(originalName)))
	return filepath.Join(ls.tempDir, "splice_"+uuid.New().String()+ext)
}

func (ls *LocalStorage) ClipPath(id string, index int) string {
	return filepath.Join(ls.generatedDir, "clips", fmt.Sprintf("%s_clip%d.mp4", id, index))
}

// LegacyClipPath is the fixed clip pair used when no per-submission clip exists.
func (ls *LocalStorage) LegacyClipPath(index int) string {
	return filepath.Join(ls.generatedDir, "clips", fmt.Sprintf("clip%d.mp4", index))
}

func (ls *LocalStorage) FramePath(id string) string {
	return filepath.Join(ls.generatedDir, "frames", id+"_mid.png")
}

// NewOutputPath returns a fresh, uniquely named splice output path.
func (ls *LocalStorage) NewOutputPath() string {
	return filepath.Join(ls.generatedDir, "outputs", uuid.New().String()+".mp4")
}

// URLFor maps a stored file to its public URL, or "" if it lives outside the served trees.
func (ls *LocalStorage) URLFor(p string) string {
	p = filepath.Clean(p)
	if rel, ok := within(ls.uploadDir, p); ok {
		return path.Join(UploadsURLPrefix, filepath.ToSlash(rel))
	}
	if rel, ok := within(ls.generatedDir, p); ok {
		return path.Join(GeneratedURLPrefix, filepath.ToSlash(rel))
	}
	return ""
}

// PathFromURL is the inverse of URLFor. Absolute URLs are accepted; only the path is used.
func (ls *LocalStorage) PathFromURL(u string) (string, bool) {
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return "", false
		}
		u = rest[slash:]
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = path.Clean("/" + u)

	var base, rel string
	switch {
	case strings.HasPrefix(u, UploadsURLPrefix+"/"):
		base, rel = ls.uploadDir, strings.TrimPrefix(u, UploadsURLPrefix+"/")
	case strings.HasPrefix(u, GeneratedURLPrefix+"/"):
		base, rel = ls.generatedDir, strings.TrimPrefix(u, GeneratedURLPrefix+"/")
	default:
		return "", false
	}

	full := filepath.Join(base, filepath.FromSlash(rel))
	if _, ok := within(base, full); !ok {
		return "", false
	}
	return full, true
}

func within(base, p string) (string, bool) {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// sanitizeFilename keeps the base name and replaces characters that are unsafe in paths and URLs
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "video"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	result := b.String()
	if len(result) > 100 {
		ext := filepath.Ext(result)
		if len(ext) > 10 {
			ext = ""
		}
		result = result[:100-len(ext)] + ext
	}
	return result
}
