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

// OllamaClient calls a local Ollama server's chat endpoint.
type OllamaClient struct {
	BaseURL     string
	ModelName   string
	Temperature float64
	MaxTokens   int
	Client      *http.Client
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// chatMessage is shared by the Ollama and OpenAI chat formats.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Name returns the provider identifier.
func (c *OllamaClient) Name() string { return "ollama" }

// Model returns the configured model.
func (c *OllamaClient) Model() string { return c.ModelName }

// Generate sends one non-streaming chat request.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (Response, error) {
	body := ollamaRequest{
		Model:    c.ModelName,
		Messages: messages(req),
		Stream:   false,
		Options: ollamaOptions{
			Temperature: pick(req.Temperature, c.Temperature),
			NumPredict:  pick(req.MaxTokens, c.MaxTokens),
		},
	}
	if req.JSON {
		body.Format = "json"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.Client, httpReq, 0)
	if err != nil {
		return Response{}, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var or ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Response{}, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if or.Error != "" {
		return Response{}, fmt.Errorf("Ollama error: %s", or.Error)
	}
	if strings.TrimSpace(or.Message.Content) == "" {
		return Response{}, fmt.Errorf("Ollama returned empty content")
	}

	return Response{
		Text:             or.Message.Content,
		Model:            pick(or.Model, c.ModelName),
		PromptTokens:     or.PromptEvalCount,
		CompletionTokens: or.EvalCount,
	}, nil
}

func messages(req Request) []chatMessage {
	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.Prompt})
}
