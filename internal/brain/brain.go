// Package brain turns raw sensor snapshots into natural language via the
// Gemini API.
package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoAPIKey is returned by New when the API key is missing.
var ErrNoAPIKey = errors.New("gemini api key not set")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Brain is a Gemini-backed vision interpreter. It never sees the image
// itself, only the recognition JSON the camera produces.
type Brain struct {
	config Config
	http   *http.Client
}

// New creates a Brain. Zero-value config fields get defaults.
func New(cfg Config) (*Brain, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Brain{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

const baseInstruction = "You are a computer vision brain. You analyze raw JSON data from a HuskyLens 2 camera."

// Describe summarizes the current snapshot in natural language.
func (b *Brain) Describe(ctx context.Context, sensorJSON string) (string, error) {
	prompt := fmt.Sprintf(`%s

SENSOR DATA (JSON):
%s

INSTRUCTION:
Briefly describe what is currently visible based on the data. Translate coordinates or IDs into natural language.`,
		baseInstruction, sensorJSON)
	return b.generate(ctx, prompt)
}

// Answer answers a question about the current snapshot, grounded only in
// the sensor data.
func (b *Brain) Answer(ctx context.Context, sensorJSON, question string) (string, error) {
	prompt := fmt.Sprintf(`%s

SENSOR DATA (JSON):
%s

USER QUESTION: %q

INSTRUCTION:
Answer the user's question based ONLY on the evidence in the JSON data.
If the JSON is empty or confidence is low, state that clearly.
Keep the answer concise.`,
		baseInstruction, sensorJSON, question)
	return b.generate(ctx, prompt)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the Gemini API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api: status %d: %s", e.StatusCode, e.Message)
}

func (b *Brain) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", b.config.BaseURL, b.config.Model, b.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error.Message != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: result.Error.Message}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func parseAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
