// Package ollama talks to a local Ollama server over its JSON HTTP API. The
// API is small enough that no client library exists for it; requests go
// straight through net/http.
package ollama

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

	"go.uber.org/zap"

	"github.com/spigell/fit-judge/internal/retry"
)

const (
	defaultBaseURL = "http://localhost:11434/api"
	defaultTimeout = 120 * time.Second
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

// Generator produces completions via the Ollama /api/generate endpoint with
// transient-failure retries.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
}

// NewGenerator creates a Generator for the given server URL and model. An
// empty URL targets the default local server.
func NewGenerator(rawURL, model string, timeout time.Duration, policy retry.Policy, logger *zap.Logger) (*Generator, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("ollama model is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/api") {
		baseURL += "/api"
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
		logger:     logger,
	}, nil
}

// GenerateContent sends the prompt to the server and returns the completion.
// Transport errors and 429/5xx statuses are retried under the generator's
// policy; API errors reported in the response body are final.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.httpClient == nil {
		return "", errors.New("ollama generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}

	var output string
	err = g.policy.Do(ctx, g.logger, "ollama generate", func(ctx context.Context) error {
		text, err := g.generate(ctx, payload)
		if err != nil {
			return err
		}
		output = text
		return nil
	})
	if err != nil {
		return "", err
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) generate(ctx context.Context, payload []byte) (string, error) {
	endpoint := g.baseURL + "/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ollama request: %w", err)
		}
		return "", retry.MarkTemporary(fmt.Errorf("ollama request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", retry.MarkTemporary(err)
		}
		return "", err
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", errors.New("ollama returned empty response")
	}

	g.logger.Debug("ollama response received",
		zap.String("done_reason", response.DoneReason),
		zap.Int("prompt_tokens", response.PromptEvalCount),
		zap.Int("completion_tokens", response.EvalCount),
	)

	return text, nil
}
