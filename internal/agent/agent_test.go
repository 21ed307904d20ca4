// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/llm"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

func TestMain(m *testing.M) {
	searchRetryDelay = 0
	os.Exit(m.Run())
}

// --- fakes shared by the agent tests ---

type funcAgent struct {
	name string
	fn   func(ctx context.Context, s *types.BlogState) error
}

func (a *funcAgent) Name() string { return a.name }
func (a *funcAgent) Execute(ctx context.Context, s *types.BlogState) error {
	return a.fn(ctx, s)
}

type skippingAgent struct {
	funcAgent
	run bool
}

func (a *skippingAgent) ShouldExecute(*types.BlogState) bool { return a.run }

// scriptedLLM returns its responses in order and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []llm.Request
}

func (s *scriptedLLM) Name() string  { return "scripted" }
func (s *scriptedLLM) Model() string { return "test-model" }
func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Response{}, s.errs[i]
	}
	if i >= len(s.responses) {
		return llm.Response{}, fmt.Errorf("unexpected call %d", i+1)
	}
	return llm.Response{Text: s.responses[i], Model: "test-model"}, nil
}

func newState() *types.BlogState {
	return types.NewState("Go concurrency patterns", types.StateOptions{})
}

// --- Runner ---

func TestRunnerSuccess(t *testing.T) {
	a := &funcAgent{name: "Writer", fn: func(_ context.Context, s *types.BlogState) error {
		s.BlogPost = "# Title\n\nbody"
		return nil
	}}
	r := NewRunner(a)
	s := newState()

	resp := r.Run(context.Background(), s)

	require.True(t, resp.Success)
	assert.Equal(t, "Writer", resp.AgentName)
	assert.Equal(t, "# Title\n\nbody", s.BlogPost)
	assert.Equal(t, types.StatusCompleted, s.AgentStatus["Writer"])
	assert.Contains(t, s.ExecutionTime, "Writer")
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, "Writer", s.LastModifiedBy)
	assert.Empty(t, s.ErrorLog)
	assert.Equal(t, 1, r.ExecutionCount())
}

func TestRunnerFailureKeepsContent(t *testing.T) {
	a := &funcAgent{name: "Writer", fn: func(_ context.Context, s *types.BlogState) error {
		s.BlogPost = "half-written"
		return errors.New("model unavailable")
	}}
	r := NewRunner(a)
	s := newState()
	s.BlogPost = "original"

	r.Run(context.Background(), s)
	resp := r.Run(context.Background(), s)

	assert.False(t, resp.Success)
	assert.Equal(t, "model unavailable", resp.Error)
	assert.Equal(t, "original", s.BlogPost)
	assert.Equal(t, types.StatusFailed, s.AgentStatus["Writer"])
	assert.Equal(t, 1, s.Version, "failures do not bump the version")
	require.Len(t, s.ErrorLog, 2)
	assert.Equal(t, "Writer", s.ErrorLog[1].Agent)
	assert.Equal(t, "model unavailable", s.ErrorLog[1].Error)
	assert.Equal(t, 2, s.ErrorLog[1].ExecutionCount)
	assert.True(t, s.Failed())
}

func TestRunnerRecoversPanic(t *testing.T) {
	a := &funcAgent{name: "Boom", fn: func(context.Context, *types.BlogState) error {
		panic("nil map")
	}}
	s := newState()

	resp := NewRunner(a).Run(context.Background(), s)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "panic in Boom: nil map")
	require.Len(t, s.ErrorLog, 1)
}

func TestRunnerTimeout(t *testing.T) {
	a := &funcAgent{name: "Slow", fn: func(ctx context.Context, _ *types.BlogState) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	s := newState()

	resp := NewRunner(a, WithTimeout(10*time.Millisecond)).Run(context.Background(), s)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "deadline exceeded")
	assert.Equal(t, types.StatusFailed, s.AgentStatus["Slow"])
}

func TestRunnerConditionalSkip(t *testing.T) {
	called := false
	a := &skippingAgent{funcAgent: funcAgent{name: "Editor", fn: func(context.Context, *types.BlogState) error {
		called = true
		return nil
	}}}
	s := newState()

	resp := NewRunner(a).Run(context.Background(), s)

	assert.True(t, resp.Success)
	assert.True(t, resp.Skipped)
	assert.False(t, called)
	assert.Equal(t, types.StatusCompleted, s.AgentStatus["Editor"])
	assert.NotContains(t, s.ExecutionTime, "Editor")
	assert.Equal(t, 1, s.Version)
}

func TestRunnerSkipDoesNotCountAsExecution(t *testing.T) {
	a := &skippingAgent{funcAgent: funcAgent{name: "Editor", fn: func(context.Context, *types.BlogState) error {
		return errors.New("bad review")
	}}}
	r := NewRunner(a)
	s := newState()

	r.Run(context.Background(), s)
	assert.Equal(t, 0, r.ExecutionCount())

	a.run = true
	resp := r.Run(context.Background(), s)

	assert.False(t, resp.Success)
	assert.Equal(t, 1, r.ExecutionCount())
	require.Len(t, s.ErrorLog, 1)
	assert.Equal(t, 1, s.ErrorLog[0].ExecutionCount)
}

func TestRunnerLogsUnderAgentName(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := &funcAgent{name: "Researcher", fn: func(context.Context, *types.BlogState) error { return nil }}

	NewRunner(a, WithLogger(zap.New(core))).Run(context.Background(), newState())

	entries := logs.All()
	require.NotEmpty(t, entries)
	assert.Equal(t, "agent.researcher", entries[0].LoggerName)
	assert.True(t, strings.HasPrefix(entries[0].Message, "Researcher starting execution #1"))
	assert.True(t, strings.HasPrefix(entries[len(entries)-1].Message, "Researcher completed in"))
}

func TestLogMetric(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	LogMetric(context.Background(), zap.New(core), "sources_found", 4)

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "Metric: sources_found", e.Message)
	assert.Equal(t, 4.0, e.ContextMap()["value"])
}

func TestRequireFields(t *testing.T) {
	s := newState()
	assert.NoError(t, RequireFields(s, "topic", "tone"))

	err := RequireFields(s, "topic", "blog_post")
	assert.EqualError(t, err, "Missing required field: blog_post")

	assert.ErrorContains(t, RequireFields(s, "nonsense"), "unknown state field")
}
