// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/httputil"
)

// OpenAIClient calls an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	Temperature float64
	MaxTokens   int
	Client      *http.Client
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the configured model.
func (c *OpenAIClient) Model() string { return c.ModelName }

// Generate sends one chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	if c.APIKey == "" {
		return Response{}, fmt.Errorf("OpenAI API key not configured")
	}

	body := openAIRequest{
		Model:       c.ModelName,
		Messages:    messages(req),
		Temperature: pick(req.Temperature, c.Temperature),
		MaxTokens:   pick(req.MaxTokens, c.MaxTokens),
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, httpReq, 0)
	if err != nil {
		return Response{}, fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading OpenAI response: %w", err)
	}

	var or openAIResponse
	if err := json.Unmarshal(data, &or); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Response{}, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return Response{}, fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if or.Error != nil {
			return Response{}, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, or.Error.Message)
		}
		return Response{}, fmt.Errorf("OpenAI API returned %d", resp.StatusCode)
	}
	if len(or.Choices) == 0 || strings.TrimSpace(or.Choices[0].Message.Content) == "" {
		return Response{}, fmt.Errorf("OpenAI API returned empty content")
	}

	return Response{
		Text:             or.Choices[0].Message.Content,
		Model:            pick(or.Model, c.ModelName),
		PromptTokens:     or.Usage.PromptTokens,
		CompletionTokens: or.Usage.CompletionTokens,
	}, nil
}
