package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/fit-judge/internal/retry"
)

const defaultModel = "gemini-2.5-flash"

// contentCaller is the slice of the genai client the generator needs. Tests
// substitute a fake; production wraps client.Models.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type modelsCaller struct {
	client *genai.Client
}

func (m *modelsCaller) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.client.Models.GenerateContent(ctx, model, contents, config)
}

// Generator wraps the Google GenAI client with transient-failure retries.
type Generator struct {
	caller contentCaller
	model  string
	policy retry.Policy
	logger *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, policy retry.Policy, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		caller: &modelsCaller{client: client},
		model:  model,
		policy: policy,
		logger: logger,
	}, nil
}

// GenerateContent sends the prompt to Gemini and returns the joined textual
// response. Rate-limit and server errors are retried under the generator's
// policy; a quota hint longer than the policy allows fails the call instead.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.caller == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var output string
	err := g.policy.Do(ctx, g.logger, "gemini generate content", func(ctx context.Context) error {
		resp, err := g.caller.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return classify(fmt.Errorf("generate content: %w", err))
		}

		text, err := joinParts(resp)
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

func joinParts(resp *genai.GenerateContentResponse) (string, error) {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// classify marks rate-limit and server-side API errors as temporary, carrying
// any delay the backend suggested so the retry policy can honor or reject it.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
		return &retry.TemporaryError{Err: err, RetryAfter: quotaDelay(apiErr.Message)}
	}

	return err
}

// Quota errors carry the suggested delay either as prose ("retry after 60
// seconds") or as an embedded RetryInfo fragment ("retryDelay":"17s").
var quotaDelayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)retry\s+after\s+(\d+(?:\.\d+)?)\s*s`),
	regexp.MustCompile(`(?i)retrydelay"?\s*:\s*"?(\d+(?:\.\d+)?)s`),
}

func quotaDelay(message string) time.Duration {
	for _, pattern := range quotaDelayPatterns {
		match := pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		seconds, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(seconds * float64(time.Second))
	}
	return 0
}
