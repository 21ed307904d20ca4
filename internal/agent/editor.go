// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/llm"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/logging"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// EditorName is the state key of the editor agent.
const EditorName = "Editor"

// DefaultQualityThreshold is the score below which a revision is requested.
const DefaultQualityThreshold = 0.7

// EditorConfig tunes the editor.
type EditorConfig struct {
	Enabled       bool
	Threshold     float64
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// Editor scores the draft and either requests a revision or applies its own
// copy edits.
type Editor struct {
	llm    llm.Client
	cfg    EditorConfig
	logger *zap.Logger
}

// NewEditor returns an editor backed by client.
func NewEditor(client llm.Client, cfg EditorConfig, logger *zap.Logger) *Editor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultQualityThreshold
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 1
	}
	return &Editor{llm: client, cfg: cfg, logger: logging.Agent(logger, EditorName)}
}

// Name implements Agent.
func (e *Editor) Name() string { return EditorName }

// ShouldExecute implements Conditional.
func (e *Editor) ShouldExecute(state *types.BlogState) bool {
	return e.cfg.Enabled && strings.TrimSpace(state.BlogPost) != ""
}

// review is the editor's JSON answer.
type review struct {
	Score       *float64 `json:"score"`
	Feedback    string   `json:"feedback"`
	RevisedPost string   `json:"revised_post"`
}

// Execute reviews the post.
func (e *Editor) Execute(ctx context.Context, state *types.BlogState) error {
	if err := RequireFields(state, "blog_post"); err != nil {
		return err
	}

	prompt, err := render(editorPromptTmpl, promptData(state))
	if err != nil {
		return fmt.Errorf("rendering editor prompt: %w", err)
	}
	resp, err := e.llm.Generate(ctx, llm.Request{
		System:      editorSystem,
		Prompt:      prompt,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return fmt.Errorf("reviewing draft: %w", err)
	}

	rv, err := parseReview(resp.Text)
	if err != nil {
		return err
	}

	score := *rv.Score
	state.QualityScore = &score
	state.EditorFeedback = strings.TrimSpace(rv.Feedback)
	state.NeedsRevision = score < e.cfg.Threshold && state.DraftIterations < e.cfg.MaxIterations

	if !state.NeedsRevision {
		if revised := strings.TrimSpace(rv.RevisedPost); revised != "" {
			state.BlogPost = revised
			state.BlogTitle = PostTitle(revised, state.Topic)
			state.BlogMetadata = BuildMetadata(revised, state.Topic, e.llm.Model())
		}
	}

	LogMetric(ctx, e.logger, "quality_score", score)
	e.logger.Info("review complete",
		zap.Float64("score", score),
		zap.Bool("needs_revision", state.NeedsRevision),
		zap.Int("draft_iterations", state.DraftIterations))
	return nil
}

// parseReview decodes the editor's answer, tolerating a surrounding code
// fence or prose around the JSON object.
func parseReview(text string) (review, error) {
	body := llm.StripCodeFence(text)
	if i, j := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); i >= 0 && j > i {
		body = body[i : j+1]
	}

	var rv review
	if err := json.Unmarshal([]byte(body), &rv); err != nil {
		return review{}, fmt.Errorf("parsing editor response: %w", err)
	}
	if rv.Score == nil {
		return review{}, fmt.Errorf("editor response has no score")
	}
	if *rv.Score < 0 || *rv.Score > 1 {
		return review{}, fmt.Errorf("editor score %.2f outside [0, 1]", *rv.Score)
	}
	return rv, nil
}
