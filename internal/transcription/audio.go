package transcription

import (
	"path/filepath"
	"strings"
)

var allowedVideoTypes = map[string][]string{
	"video/mp4":        {".mp4", ".m4v"},
	"video/quicktime":  {".mov"},
	"video/webm":       {".webm"},
	"video/x-matroska": {".mkv"},
}

// ValidateVideoFormat checks the upload's MIME type, falling back to the extension when the
// client sent a generic octet-stream. It returns the MIME type to record.
func ValidateVideoFormat(filename, mimeType string) (string, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if _, ok := allowedVideoTypes[mimeType]; ok {
		return mimeType, true
	}

	if mimeType != "" && mimeType != "application/octet-stream" {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for mt, exts := range allowedVideoTypes {
		for _, e := range exts {
			if ext == e {
				return mt, true
			}
		}
	}
	return "", false
}
