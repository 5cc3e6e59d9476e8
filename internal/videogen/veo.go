package videogen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/httpx"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

const (
	defaultVeoBaseURL      = "https://generativelanguage.googleapis.com"
	defaultVeoModel        = "veo-3.0-generate-preview"
	defaultPollInterval    = 10 * time.Second
	defaultDurationSeconds = 8
)

// ClipRequest is one clip to generate.
type ClipRequest struct {
	Prompt         string
	ReferenceImage []byte
	ImageMimeType  string
	OutPath        string
}

// VeoConfig configures the predictLongRunning client.
type VeoConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	PollInterval    time.Duration
	DurationSeconds int
	AspectRatio     string
}

// VeoClient submits video generation operations, polls them and downloads the result.
type VeoClient struct {
	cfg        VeoConfig
	httpClient *http.Client
	log        *logger.Logger
}

func NewVeoClient(cfg VeoConfig, log *logger.Logger) (*VeoClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing VEO_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = defaultVeoModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVeoBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = defaultDurationSeconds
	}
	return &VeoClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        log.With("component", "VeoClient"),
	}, nil
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	DurationSeconds int    `json:"durationSeconds"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
	SampleCount     int    `json:"sampleCount"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

// Generate runs one clip end to end and writes it to req.OutPath.
func (c *VeoClient) Generate(ctx context.Context, req ClipRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("video prompt required")
	}
	if req.OutPath == "" {
		return errors.New("output path required")
	}

	op, err := c.submit(ctx, req)
	if err != nil {
		return err
	}
	if op.Name == "" {
		return errors.New("veo: operation missing name")
	}
	log := c.log.With("operation", op.Name)
	log.Info("video generation submitted", "out", req.OutPath)

	for !op.Done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		op, err = c.poll(ctx, op.Name)
		if err != nil {
			return err
		}
		log.Debug("polled video operation", "done", op.Done)
	}

	if op.Error != nil {
		return fmt.Errorf("veo generation failed (%d): %s", op.Error.Code, op.Error.Message)
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return errors.New("veo: operation finished without a video")
	}
	uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	if uri == "" {
		return errors.New("veo: generated sample has no uri")
	}

	if err := c.download(ctx, uri, req.OutPath); err != nil {
		return err
	}
	if info, err := os.Stat(req.OutPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("veo: clip missing after download: %s", req.OutPath)
	}

	log.Info("video generation finished", "out", req.OutPath)
	return nil
}

func (c *VeoClient) submit(ctx context.Context, req ClipRequest) (veoOperation, error) {
	inst := veoInstance{Prompt: req.Prompt}
	if len(req.ReferenceImage) > 0 {
		mt := req.ImageMimeType
		if mt == "" {
			mt = "image/png"
		}
		inst.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.ReferenceImage),
			MimeType:           mt,
		}
	}

	body := veoRequest{
		Instances: []veoInstance{inst},
		Parameters: veoParameters{
			DurationSeconds: c.cfg.DurationSeconds,
			AspectRatio:     c.cfg.AspectRatio,
			SampleCount:     1,
		},
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return veoOperation{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", c.baseURL(), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return veoOperation{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	return c.doOperation(httpReq)
}

func (c *VeoClient) poll(ctx context.Context, name string) (veoOperation, error) {
	url := fmt.Sprintf("%s/v1beta/%s", c.baseURL(), strings.TrimLeft(name, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return veoOperation{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
	return c.doOperation(httpReq)
}

func (c *VeoClient) doOperation(req *http.Request) (veoOperation, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return veoOperation{}, fmt.Errorf("veo request failed: %w", err)
	}
	var op veoOperation
	if err := httpx.ReadJSON(resp, &op); err != nil {
		return veoOperation{}, fmt.Errorf("veo: %w", err)
	}
	return op, nil
}

func (c *VeoClient) download(ctx context.Context, uri, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpx.StatusError{StatusCode: resp.StatusCode, Body: httpx.Preview(raw)}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("mkdir clip dir: %w", err)
	}
	tmp := outPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create clip file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write clip: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close clip: %w", err)
	}
	return os.Rename(tmp, outPath)
}

func (c *VeoClient) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}
