package httpx

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "  <html>oops</html>\n", "<html>oops</html>"},
		{"ascii cut", strings.Repeat("a", PreviewLen+5), strings.Repeat("a", PreviewLen) + "..."},
		// "é" is two bytes; the limit falls inside the last one
		{"multibyte cut", strings.Repeat("a", PreviewLen-1) + "ééé", strings.Repeat("a", PreviewLen-1) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview([]byte(tt.in))
			if got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Preview() returned invalid UTF-8 %q", got)
			}
		})
	}
}

func TestReadJSONNonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader("<html>" + strings.Repeat("日本", 200) + "</html>")),
	}
	var out map[string]any
	err := ReadJSON(resp, &out)
	if err == nil || !strings.Contains(err.Error(), "non-JSON response") {
		t.Fatalf("expected non-JSON error, got %v", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Errorf("error message is not valid UTF-8: %q", err.Error())
	}
}
