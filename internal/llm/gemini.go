// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates text through Google's Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiClient creates a Gemini client from cfg.
func NewGeminiClient(ctx context.Context, cfg types.LLMConfig) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini requires API key")
	}
	model := cfg.Model
	if model == "" || model == "llama3" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return "gemini" }

// Model returns the configured model.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends one GenerateContent request.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(pick(req.Temperature, c.temperature))),
		MaxOutputTokens: int32(pick(req.MaxTokens, c.maxTokens)),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return Response{}, fmt.Errorf("calling Gemini API: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, fmt.Errorf("Gemini API returned empty content")
	}

	out := Response{Text: text, Model: c.model}
	if u := result.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}
