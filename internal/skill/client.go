package skill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/httpx"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
	"github.com/codebuildervaibhav/quizsplice/internal/verify"
)

// ErrQuizNotFound means the backend has no usable session for the submission.
var ErrQuizNotFound = errors.New("quiz not found")

// Backend is the part of the quiz server the skill talks to.
type Backend interface {
	Session(ctx context.Context, submissionID string) (*types.Session, error)
	Verify(ctx context.Context, submissionID, answer string) (verify.Result, error)
}

// Client calls the quiz server's alexa endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Session(ctx context.Context, submissionID string) (*types.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/alexa/session/"+url.PathEscape(submissionID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}

	var out struct {
		Session *types.Session `json:"session"`
	}
	if err := httpx.ReadJSON(resp, &out); err != nil {
		var se *httpx.StatusError
		// 400 means the submission exists but has no analysis yet; to the viewer that is the same thing
		if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, se.Body)
		}
		return nil, err
	}
	if out.Session == nil || strings.TrimSpace(out.Session.Question) == "" {
		return nil, ErrQuizNotFound
	}
	return out.Session, nil
}

func (c *Client) Verify(ctx context.Context, submissionID, answer string) (verify.Result, error) {
	body, err := json.Marshal(map[string]string{"submissionId": submissionID, "answer": answer})
	if err != nil {
		return verify.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/alexa/verify", bytes.NewReader(body))
	if err != nil {
		return verify.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return verify.Result{}, fmt.Errorf("verify request failed: %w", err)
	}
	var out verify.Result
	if err := httpx.ReadJSON(resp, &out); err != nil {
		return verify.Result{}, err
	}
	return out, nil
}
