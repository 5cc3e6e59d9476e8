package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// PreviewLen is how much of an unexpected body is kept in error messages.
const PreviewLen = 200

// StatusError is a non-2xx vendor response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Preview trims and truncates a raw body for logging and error messages.
func Preview(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= PreviewLen {
		return s
	}
	cut := PreviewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// ReadJSON reads resp.Body and decodes it into out. Non-2xx statuses and non-JSON bodies
// come back as errors carrying a truncated preview of the raw body.
func ReadJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: Preview(raw)}
	}

	if !json.Valid(raw) {
		return fmt.Errorf("non-JSON response (status %d, content-type %q): %s",
			resp.StatusCode, resp.Header.Get("Content-Type"), Preview(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w; body=%s", err, Preview(raw))
	}
	return nil
}
