// Package llm implements the optional Gemini-backed intent classifier.
//
// It is the only package that makes external API calls. The rule router
// remains the fallback, so the pipeline works offline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/askdb-labs/askdb/internal/nlq"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// Config configures the Gemini classifier.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// GeminiClassifier implements nlq.Classifier over the Gemini API.
type GeminiClassifier struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini classifier. A nil logger discards.
func NewGemini(cfg Config, logger *slog.Logger) *GeminiClassifier {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GeminiClassifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

const classifyPrompt = `You route questions about a NYC taxi trip dataset
(columns: pickup_datetime, dropoff_datetime, vendor_id, fare_amount,
tip_amount, total_amount) to one of these intents:

- count_over_time: trip counts bucketed by day/week/month
- aggregate_metric: average or total of fares, tips, or amounts
- entity_activity: per-vendor activity or inactivity
- sample_rows: show raw example rows
- unknown: anything the dataset cannot answer

Respond with JSON only: {"intent": "...", "confidence": 0.0-1.0}`

// classification is the JSON shape the model must return.
type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classify implements nlq.Classifier. Transport and parse failures come back
// as errors so a fallback classifier can take over.
func (g *GeminiClassifier) Classify(ctx context.Context, text string) (nlq.Intent, float64, error) {
	prompt := classifyPrompt + "\n\nQUESTION: " + text + "\n\nRespond with valid JSON only:"

	response, err := g.call(ctx, prompt)
	if err != nil {
		return nlq.IntentUnknown, 0, fmt.Errorf("gemini API error: %w", err)
	}

	var c classification
	if err := json.Unmarshal([]byte(extractJSON(response)), &c); err != nil {
		return nlq.IntentUnknown, 0, fmt.Errorf("failed to parse classification %q: %w", truncate(response, 120), err)
	}

	intent := nlq.Intent(c.Intent)
	switch intent {
	case nlq.IntentCountOverTime, nlq.IntentAggregateMetric, nlq.IntentEntityActivity,
		nlq.IntentSampleRows, nlq.IntentUnknown:
	default:
		return nlq.IntentUnknown, 0, fmt.Errorf("gemini returned unknown intent %q", c.Intent)
	}

	g.logger.Debug("gemini classified", "intent", string(intent), "confidence", c.Confidence)
	return intent, c.Confidence, nil
}

// geminiRequest is the Gemini API request body.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse is the Gemini API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// call sends a prompt to the Gemini API and returns the text response.
func (g *GeminiClassifier) call(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s",
		g.config.Endpoint, g.config.Model, g.config.APIKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON strips markdown fences the model sometimes wraps around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ nlq.Classifier = (*GeminiClassifier)(nil)
