// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/llm"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/logging"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// WriterName is the state key of the writer agent.
const WriterName = "Writer"

// wordsPerMinute is the reading speed used for PostMetadata.ReadingMinutes.
const wordsPerMinute = 200

// WriterConfig tunes the writer.
type WriterConfig struct {
	MinWords    int
	Temperature float64
	MaxTokens   int
}

// Writer drafts the blog post from the research.
type Writer struct {
	llm    llm.Client
	cfg    WriterConfig
	logger *zap.Logger
}

// NewWriter returns a writer backed by client.
func NewWriter(client llm.Client, cfg WriterConfig, logger *zap.Logger) *Writer {
	return &Writer{llm: client, cfg: cfg, logger: logging.Agent(logger, WriterName)}
}

// Name implements Agent.
func (w *Writer) Name() string { return WriterName }

// Execute drafts (or redrafts, when editor feedback is present) the post.
func (w *Writer) Execute(ctx context.Context, state *types.BlogState) error {
	if err := RequireFields(state, "topic"); err != nil {
		return err
	}

	prompt, err := render(writerPromptTmpl, promptData(state))
	if err != nil {
		return fmt.Errorf("rendering writer prompt: %w", err)
	}
	draft, err := w.generate(ctx, prompt)
	if err != nil {
		return err
	}

	words := CountWords(draft)
	if w.cfg.MinWords > 0 && words < w.cfg.MinWords {
		w.logger.Warn("draft below minimum length, expanding",
			zap.Int("words", words),
			zap.Int("min_words", w.cfg.MinWords))

		v := promptData(state)
		v.Draft = draft
		v.MinWords = w.cfg.MinWords
		prompt, err := render(expandPromptTmpl, v)
		if err != nil {
			return fmt.Errorf("rendering expand prompt: %w", err)
		}
		draft, err = w.generate(ctx, prompt)
		if err != nil {
			return err
		}
		if words = CountWords(draft); words < w.cfg.MinWords {
			return fmt.Errorf("draft too short: %d words (minimum %d)", words, w.cfg.MinWords)
		}
	}

	state.BlogPost = draft
	state.BlogTitle = PostTitle(draft, state.Topic)
	state.BlogMetadata = BuildMetadata(draft, state.Topic, w.llm.Model())
	state.DraftIterations++
	state.NeedsRevision = false

	LogMetric(ctx, w.logger, "word_count", float64(words))
	LogMetric(ctx, w.logger, "draft_iteration", float64(state.DraftIterations))
	return nil
}

func (w *Writer) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := w.llm.Generate(ctx, llm.Request{
		System:      writerSystem,
		Prompt:      prompt,
		Temperature: w.cfg.Temperature,
		MaxTokens:   w.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating draft: %w", err)
	}
	draft := unwrapMarkdown(resp.Text)
	if draft == "" {
		return "", fmt.Errorf("generating draft: model returned an empty post")
	}
	return draft, nil
}

// unwrapMarkdown removes a ```markdown fence wrapped around the whole post.
// Other fences are left alone since a post may open with a code sample.
func unwrapMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```markdown") || strings.HasPrefix(s, "```md\n") {
		return llm.StripCodeFence(s)
	}
	return s
}

var h1Pattern = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)

// PostTitle returns the first Markdown H1 of post, or the title-cased topic.
func PostTitle(post, topic string) string {
	if m := h1Pattern.FindStringSubmatch(post); m != nil {
		return strings.TrimSpace(m[1])
	}
	return cases.Title(language.English).String(strings.TrimSpace(topic))
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

var sectionPattern = regexp.MustCompile(`(?m)^##[ \t]+\S`)

// BuildMetadata derives PostMetadata from the post text.
func BuildMetadata(post, topic, model string) *types.PostMetadata {
	words := CountWords(post)
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return &types.PostMetadata{
		WordCount:      words,
		ReadingMinutes: minutes,
		Sections:       len(sectionPattern.FindAllString(post, -1)),
		Tags:           Tags(topic),
		Model:          model,
		GeneratedAt:    time.Now(),
	}
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "for": true, "from": true,
	"how": true, "in": true, "into": true, "is": true, "of": true, "on": true,
	"or": true, "the": true, "to": true, "what": true, "why": true, "with": true,
	"your": true, "you": true, "vs": true,
}

const maxTags = 5

// Tags returns up to five lowercase keywords from topic.
func Tags(topic string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !(r == '-' || r == '+' || r == '#' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		f = strings.Trim(f, "-")
		if len(f) < 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		tags = append(tags, f)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
