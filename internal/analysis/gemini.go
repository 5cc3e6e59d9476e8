package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codebuildervaibhav/quizsplice/internal/httpx"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// TextGenerator produces text from a single prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures the generateContent client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
	log        *logger.Logger
}

func NewGeminiClient(cfg GeminiConfig, log *logger.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	// zero timeout means none, matching the pipeline's no-timeout policy
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "GeminiClient"),
	}, nil
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateText sends prompt as a single user turn and returns the concatenated text parts.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	var reqBody geminiRequest
	reqBody.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	reqBody.GenerationConfig.Temperature = c.cfg.Temperature

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var out geminiResponse
	if err := httpx.ReadJSON(resp, &out); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var parts []string
	for _, p := range out.Candidates[0].Content.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text (finish reason %q)", out.Candidates[0].FinishReason)
	}

	c.log.Debug("gemini response", "model", c.cfg.Model, "chars", len(text), "elapsed", time.Since(start).String())
	return text, nil
}

// Analyzer asks a TextGenerator for the four-line analysis and parses it.
type Analyzer struct {
	gen TextGenerator
	log *logger.Logger
}

func NewAnalyzer(gen TextGenerator, log *logger.Logger) *Analyzer {
	return &Analyzer{gen: gen, log: log.With("component", "Analyzer")}
}

// Analyze builds the prompt, calls the model and parses its answer. Only transport failures
// are errors; a malformed answer yields a partially filled result.
func (a *Analyzer) Analyze(ctx context.Context, goal string, tr *types.Transcript) (*types.AnalysisResult, error) {
	text, err := a.gen.GenerateText(ctx, BuildPrompt(goal, tr))
	if err != nil {
		return nil, err
	}

	res := ParseResponse(text)
	res.CreatedAt = time.Now().UTC()
	if len(res.Missing) > 0 {
		a.log.Warn("model response missing labels", "missing", strings.Join(res.Missing, ","))
	}
	return &res, nil
}
