// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func researchedState() *types.BlogState {
	s := newState()
	s.ResearchData = []string{"Channels synchronize goroutines"}
	s.ResearchSources = []types.Source{{Title: "Effective Go", URL: "https://go.dev/doc/effective_go"}}
	return s
}

func TestWriterDraft(t *testing.T) {
	post := "# Mastering Go Concurrency\n\n## Intro\n\n" + words(250) + "\n\n## Conclusion\n\nDone [1]."
	model := &scriptedLLM{responses: []string{post}}
	w := NewWriter(model, WriterConfig{MinWords: 100, Temperature: 0.7}, nil)
	s := researchedState()
	s.NeedsRevision = true

	require.NoError(t, w.Execute(context.Background(), s))

	assert.Equal(t, post, s.BlogPost)
	assert.Equal(t, "Mastering Go Concurrency", s.BlogTitle)
	assert.Equal(t, 1, s.DraftIterations)
	assert.False(t, s.NeedsRevision)

	require.NotNil(t, s.BlogMetadata)
	assert.Equal(t, CountWords(post), s.BlogMetadata.WordCount)
	assert.Equal(t, 2, s.BlogMetadata.ReadingMinutes)
	assert.Equal(t, 2, s.BlogMetadata.Sections)
	assert.Equal(t, "test-model", s.BlogMetadata.Model)
	assert.Equal(t, []string{"go", "concurrency", "patterns"}, s.BlogMetadata.Tags)

	require.Len(t, model.requests, 1)
	prompt := model.requests[0].Prompt
	assert.Contains(t, prompt, `Write a blog post about "Go concurrency patterns"`)
	assert.Contains(t, prompt, "- Channels synchronize goroutines")
	assert.Contains(t, prompt, "[1] Effective Go - https://go.dev/doc/effective_go")
	assert.NotContains(t, prompt, "editor reviewed")
}

func TestWriterIncludesFeedbackOnRevision(t *testing.T) {
	model := &scriptedLLM{responses: []string{"# T\n\n" + words(120)}}
	w := NewWriter(model, WriterConfig{MinWords: 100}, nil)
	s := researchedState()
	s.DraftIterations = 1
	s.EditorFeedback = "Add a section on errgroup."

	require.NoError(t, w.Execute(context.Background(), s))
	assert.Contains(t, model.requests[0].Prompt, "Add a section on errgroup.")
	assert.Equal(t, 2, s.DraftIterations)
}

func TestWriterExpandsShortDraft(t *testing.T) {
	model := &scriptedLLM{responses: []string{"# Short\n\n" + words(20), "# Longer\n\n" + words(150)}}
	w := NewWriter(model, WriterConfig{MinWords: 100}, nil)
	s := researchedState()

	require.NoError(t, w.Execute(context.Background(), s))
	require.Len(t, model.requests, 2)
	assert.Contains(t, model.requests[1].Prompt, "too short")
	assert.Contains(t, model.requests[1].Prompt, "at least 100 words")
	assert.Equal(t, "Longer", s.BlogTitle)
}

func TestWriterFailsWhenStillShort(t *testing.T) {
	model := &scriptedLLM{responses: []string{words(10), words(30)}}
	w := NewWriter(model, WriterConfig{MinWords: 100}, nil)
	s := researchedState()

	err := w.Execute(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft too short: 30 words (minimum 100)")
	assert.Empty(t, s.BlogPost)
}

func TestWriterEmptyResponse(t *testing.T) {
	w := NewWriter(&scriptedLLM{responses: []string{"   "}}, WriterConfig{}, nil)
	assert.ErrorContains(t, w.Execute(context.Background(), researchedState()), "empty post")
}

func TestPostTitle(t *testing.T) {
	tests := []struct{ post, topic, want string }{
		{"# Hello World\n\nbody", "x", "Hello World"},
		{"intro\n\n# Later Title #\n", "x", "Later Title"},
		{"## Only a section\n", "rust async runtimes", "Rust Async Runtimes"},
		{"no headings", "go generics", "Go Generics"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PostTitle(tt.post, tt.topic))
	}
}

func TestUnwrapMarkdown(t *testing.T) {
	assert.Equal(t, "# T\n\nbody", unwrapMarkdown("```markdown\n# T\n\nbody\n```"))
	code := "```go\nfmt.Println()\n```\n\nText"
	assert.Equal(t, code, unwrapMarkdown(code))
}

func TestBuildMetadataMinimumReadingTime(t *testing.T) {
	m := BuildMetadata("tiny", "topic", "m")
	assert.Equal(t, 1, m.ReadingMinutes)
	assert.Equal(t, 0, m.Sections)
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"introduction", "rust", "c++", "developers"}, Tags("An Introduction to Rust for C++ Developers"))
	assert.Equal(t, []string{"a1", "b2", "c3", "d4", "e5"}, Tags("a1 b2 c3 d4 e5 f6"))
	assert.Empty(t, Tags("the of and"))
}
