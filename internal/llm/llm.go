// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the language model providers the agents prompt.
// Each provider implements Client; NewClient picks one from settings.
package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Client generates text from a prompt.
type Client interface {
	// Name returns the provider name ("ollama", "openai", "gemini").
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string

	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a single prompt.
type Request struct {
	// System is an optional system instruction.
	System string

	Prompt string

	// Temperature and MaxTokens override the client defaults when non-zero.
	Temperature float64
	MaxTokens   int

	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Response is the generated text and token accounting.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// defaultTimeout bounds a single generation request.
const defaultTimeout = 5 * time.Minute

// NewClient returns the client for cfg.Provider wrapped with retries.
func NewClient(ctx context.Context, cfg types.LLMConfig) (Client, error) {
	httpClient := &http.Client{Timeout: defaultTimeout}

	var c Client
	switch cfg.Provider {
	case types.ProviderOllama:
		c = &OllamaClient{
			BaseURL:     cfg.OllamaBaseURL,
			ModelName:   cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Client:      httpClient,
		}
	case types.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai requires API key")
		}
		c = &OpenAIClient{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			ModelName:   cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Client:      httpClient,
		}
	case types.ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}

	return WithRetry(c, cfg.MaxRetries), nil
}

// backoffBase controls the base duration for exponential backoff between
// failed generations. Tests override this to avoid real sleeps.
var backoffBase = time.Second

type retryClient struct {
	Client
	maxRetries int
}

// WithRetry wraps c so that failed generations are retried up to
// maxRetries times with exponential backoff. Context errors are not retried.
func WithRetry(c Client, maxRetries int) Client {
	if maxRetries <= 0 {
		return c
	}
	return &retryClient{Client: c, maxRetries: maxRetries}
}

func (r *retryClient) Generate(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := r.Client.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}

// StripCodeFence removes a surrounding Markdown code fence such as
// ```json ... ``` that models often wrap JSON answers in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func pick[T comparable](override, fallback T) T {
	var zero T
	if override != zero {
		return override
	}
	return fallback
}
