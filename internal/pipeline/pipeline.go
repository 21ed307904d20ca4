// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline assembles the agents, workflow graph and store from
// settings and runs blog generations end to end. The CLI and the HTTP
// server both drive generation through a Pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/agent"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/config"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/llm"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/publish"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/search"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/store"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/telemetry"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/workflow"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Input is one generation request.
type Input struct {
	Topic        string `json:"topic" yaml:"topic"`
	Requirements string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Audience     string `json:"target_audience,omitempty" yaml:"target_audience,omitempty"`
	Tone         string `json:"tone,omitempty" yaml:"tone,omitempty"`
	WordCount    int    `json:"word_count,omitempty" yaml:"word_count,omitempty"`

	// Publish writes the post as Markdown into the configured output
	// directory.
	Publish bool `json:"publish,omitempty" yaml:"publish,omitempty"`
}

// Result is the outcome of one generation. State is set even when the run
// failed, so callers can inspect the error log.
type Result struct {
	RunID  string           `json:"run_id"`
	PostID string           `json:"post_id,omitempty"`
	Path   string           `json:"path,omitempty"`
	State  *types.BlogState `json:"state"`

	// UnknownCitations lists [n] citations with no matching source.
	UnknownCitations []int `json:"unknown_citations,omitempty"`
}

// BatchItem is the outcome of one topic in a batch.
type BatchItem struct {
	Input  Input
	Result *Result
	Err    error
}

// BatchResult holds the outcome of a batch run, in input order.
type BatchResult struct {
	Succeeded int
	Failed    int
	Items     []BatchItem
}

// Total returns the number of topics processed.
func (r BatchResult) Total() int { return r.Succeeded + r.Failed }

// HasFailures reports whether any topic failed.
func (r BatchResult) HasFailures() bool { return r.Failed > 0 }

// Option overrides a component New would otherwise build from settings.
type Option func(*options)

type options struct {
	llm      llm.Client
	provider search.Provider
	store    *store.Store
	logger   *zap.Logger
	observer workflow.Observer
	newID    func() string
}

// WithLLM uses c instead of the configured provider.
func WithLLM(c llm.Client) Option { return func(o *options) { o.llm = c } }

// WithSearchProvider uses p instead of the configured search backend.
func WithSearchProvider(p search.Provider) Option { return func(o *options) { o.provider = p } }

// WithStore uses s instead of opening the configured database. The caller
// keeps ownership; Close does not close it.
func WithStore(s *store.Store) Option { return func(o *options) { o.store = s } }

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithObserver receives every node event of every run.
func WithObserver(obs workflow.Observer) Option { return func(o *options) { o.observer = obs } }

// WithIDFunc replaces the run and post ID generator.
func WithIDFunc(f func() string) Option { return func(o *options) { o.newID = f } }

// Pipeline runs blog generations.
type Pipeline struct {
	settings types.Settings
	llm      llm.Client
	search   *search.Tool
	store    *store.Store
	ownStore bool
	logger   *zap.Logger
	observer workflow.Observer
	newID    func() string

	researcher *agent.Runner
	writer     *agent.Runner
	editor     *agent.Runner
}

// New builds a pipeline from settings. Settings are expected to be
// validated already.
func New(ctx context.Context, settings types.Settings, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.newID == nil {
		o.newID = func() string { return uuid.NewString() }
	}

	p := &Pipeline{
		settings: settings,
		llm:      o.llm,
		store:    o.store,
		logger:   o.logger,
		observer: o.observer,
		newID:    o.newID,
	}

	if p.llm == nil {
		c, err := llm.NewClient(ctx, settings.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
		p.llm = c
	}

	if p.store == nil {
		path, err := config.DatabasePath(settings.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st, err := store.Open(path, store.Options{
			CacheTTL:     settings.Cache.TTLDuration(),
			CacheMaxSize: settings.Cache.MaxSize,
			Logger:       o.logger,
		})
		if err != nil {
			return nil, err
		}
		p.store = st
		p.ownStore = true
	}

	var cache search.Cache
	if settings.Cache.Enabled {
		cache = p.store.SearchCache()
	}
	if o.provider != nil {
		p.search = search.NewToolWithProvider(o.provider, settings.Search.MaxResults, cache, o.logger)
	} else {
		searchOpts := []search.Option{search.WithLogger(o.logger)}
		if cache != nil {
			searchOpts = append(searchOpts, search.WithCache(cache))
		}
		tool, err := search.NewTool(settings.Search, searchOpts...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("creating search tool: %w", err)
		}
		p.search = tool
	}

	p.buildAgents()
	return p, nil
}

func (p *Pipeline) buildAgents() {
	s := p.settings

	runnerOpts := []agent.RunnerOption{agent.WithLogger(p.logger)}
	if s.Agents.AgentTimeout > 0 {
		runnerOpts = append(runnerOpts, agent.WithTimeout(time.Duration(s.Agents.AgentTimeout)*time.Second))
	}

	p.researcher = agent.NewRunner(agent.NewResearcher(p.search, p.llm, agent.ResearcherConfig{
		MaxQueries:     s.Agents.ResearcherQueries,
		ResultsPerPage: s.Search.MaxResults,
		MaxSources:     s.Workflow().MaxResearchResults,
		Retries:        s.Agents.ResearcherRetries,
		Concurrency:    max(1, s.Agents.MaxConcurrentAgents),
		Summarize:      s.Agents.SummarizeResearch,
	}, p.logger), runnerOpts...)

	p.writer = agent.NewRunner(agent.NewWriter(p.llm, agent.WriterConfig{
		MinWords:    s.Agents.WriterMinWords,
		Temperature: s.LLM.Temperature,
		MaxTokens:   s.LLM.MaxTokens,
	}, p.logger), runnerOpts...)

	p.editor = agent.NewRunner(agent.NewEditor(p.llm, agent.EditorConfig{
		Enabled:       s.Agents.EditorEnabled,
		MaxIterations: s.Agents.MaxIterations,
		Temperature:   s.LLM.Temperature,
		MaxTokens:     s.LLM.MaxTokens,
	}, p.logger), runnerOpts...)
}

// Close releases the store when the pipeline opened it.
func (p *Pipeline) Close() error {
	if p.ownStore && p.store != nil {
		return p.store.Close()
	}
	return nil
}

// Store returns the pipeline's store.
func (p *Pipeline) Store() *store.Store { return p.store }

// Search returns the pipeline's search tool.
func (p *Pipeline) Search() *search.Tool { return p.search }

// Settings returns the settings the pipeline was built from.
func (p *Pipeline) Settings() types.Settings { return p.settings }

// Model returns the identifier of the model the agents prompt.
func (p *Pipeline) Model() string { return p.llm.Model() }

// NewState validates in and returns the initial state for it.
func NewState(in Input) (*types.BlogState, error) {
	state := types.NewState(strings.TrimSpace(in.Topic), types.StateOptions{
		Requirements: strings.TrimSpace(in.Requirements),
		Audience:     strings.TrimSpace(in.Audience),
		Tone:         strings.ToLower(strings.TrimSpace(in.Tone)),
		WordCount:    in.WordCount,
	})
	if err := types.ValidateState(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Generate runs the workflow for in and persists the run and, on success,
// the post. Validation failures wrap types.ErrInvalidState and leave no
// trace in the store.
func (p *Pipeline) Generate(ctx context.Context, in Input) (*Result, error) {
	state, err := NewState(in)
	if err != nil {
		return nil, err
	}
	state.RunID = p.newID()
	logger := p.logger.With(zap.String("run_id", state.RunID))
	res := &Result{RunID: state.RunID, State: state}

	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.generate",
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.String("blog.topic", state.Topic),
		))
	defer span.End()

	if err := p.store.SaveRun(ctx, state, store.RunRunning); err != nil {
		return res, err
	}

	graph, err := p.graph(logger)
	if err != nil {
		return res, err
	}

	logger.Info("generation started", zap.String("topic", state.Topic))
	start := time.Now()
	runErr := graph.Run(ctx, state)
	if runErr == nil && strings.TrimSpace(state.BlogPost) == "" {
		runErr = errors.New("workflow finished without a post")
	}

	status := store.RunCompleted
	if runErr != nil {
		status = store.RunFailed
	}
	// The run row is finalized even when ctx has ended.
	if err := p.store.SaveRun(context.WithoutCancel(ctx), state, status); err != nil {
		logger.Error("saving run", zap.Error(err))
	}

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		logger.Error("generation failed", zap.Error(runErr), zap.Duration("elapsed", time.Since(start)))
		return res, fmt.Errorf("run %s: %w", state.RunID, runErr)
	}

	post := postFromState(state, p.newID())
	if err := p.store.SavePost(ctx, post); err != nil {
		return res, err
	}
	res.PostID = post.ID

	if bad := publish.ValidateCitations(state.BlogPost, len(state.ResearchSources)); len(bad) > 0 {
		res.UnknownCitations = bad
		logger.Warn("post cites unknown sources", zap.Ints("citations", bad))
	}

	if in.Publish && p.settings.OutputDir != "" {
		path, err := publish.WriteMarkdown(p.settings.OutputDir, state)
		if err != nil {
			return res, fmt.Errorf("publishing post: %w", err)
		}
		res.Path = path
	}

	logger.Info("generation finished",
		zap.String("post_id", post.ID),
		zap.String("title", post.Title),
		zap.Int("word_count", post.WordCount),
		zap.Int("draft_iterations", state.DraftIterations),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// GenerateBatch runs Generate for every input. Topics run concurrently, up
// to max_concurrent_agents at a time, when parallel execution is enabled
// and one after another otherwise. A failed topic does not stop the others.
func (p *Pipeline) GenerateBatch(ctx context.Context, inputs []Input) BatchResult {
	limit := 1
	if p.settings.Agents.ParallelExecution {
		limit = max(1, p.settings.Agents.MaxConcurrentAgents)
	}

	items := make([]BatchItem, len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			res, err := p.Generate(ctx, in)
			items[i] = BatchItem{Input: in, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Items: items}
	for _, it := range items {
		if it.Err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	p.logger.Info("batch finished",
		zap.Int("total", out.Total()),
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", out.Failed))
	return out
}

func (p *Pipeline) graph(logger *zap.Logger) (*workflow.Graph, error) {
	opts := []workflow.Option{workflow.WithLogger(logger)}
	if p.observer != nil {
		opts = append(opts, workflow.WithObserver(p.observer))
	}
	return workflow.NewBlogGraph(p.researcher, p.writer, p.editor, p.settings.Workflow(), opts...)
}

func postFromState(s *types.BlogState, id string) *types.Post {
	words := agent.CountWords(s.BlogPost)
	if s.BlogMetadata != nil {
		words = s.BlogMetadata.WordCount
	}
	title := s.BlogTitle
	if title == "" {
		title = s.Topic
	}
	return &types.Post{
		ID:           id,
		RunID:        s.RunID,
		Topic:        s.Topic,
		Title:        title,
		Body:         s.BlogPost,
		Tone:         s.Tone,
		Audience:     s.TargetAudience,
		WordCount:    words,
		QualityScore: s.QualityScore,
		Sources:      s.ResearchSources,
		CreatedAt:    time.Now().UTC(),
	}
}
