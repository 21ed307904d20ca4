// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/llm"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/logging"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/search"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// ResearcherName is the state key of the researcher agent.
const ResearcherName = "Researcher"

// Searcher is the search capability the researcher needs. *search.Tool
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []types.Source
}

// ResearcherConfig tunes the researcher.
type ResearcherConfig struct {
	MaxQueries     int  // queries built per topic
	ResultsPerPage int  // results requested per query
	MaxSources     int  // cap after deduplication
	Retries        int  // attempts per query that returns nothing
	Concurrency    int  // queries in flight
	Summarize      bool // ask the LLM for key findings
}

// searchRetryDelay separates retries of an empty query. Tests set it to zero.
var searchRetryDelay = 500 * time.Millisecond

// Researcher gathers web sources for the topic and condenses them into
// findings.
type Researcher struct {
	searcher Searcher
	llm      llm.Client
	cfg      ResearcherConfig
	logger   *zap.Logger
}

// NewResearcher returns a researcher. client may be nil, in which case
// findings are built from the source snippets.
func NewResearcher(s Searcher, client llm.Client, cfg ResearcherConfig, logger *zap.Logger) *Researcher {
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 3
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Researcher{searcher: s, llm: client, cfg: cfg, logger: logging.Agent(logger, ResearcherName)}
}

// Name implements Agent.
func (r *Researcher) Name() string { return ResearcherName }

// Execute runs the research queries and fills the research fields of state.
func (r *Researcher) Execute(ctx context.Context, state *types.BlogState) error {
	if err := RequireFields(state, "topic"); err != nil {
		return err
	}

	queries := BuildQueries(state, r.cfg.MaxQueries)
	perQuery := make([][]types.Source, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			res, err := r.searchWithRetry(gctx, q)
			perQuery[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("research: %w", err)
	}

	var all []types.Source
	for _, res := range perQuery {
		all = append(all, res...)
	}
	sources, removed := search.Deduplicate(all)
	if r.cfg.MaxSources > 0 && len(sources) > r.cfg.MaxSources {
		sources = sources[:r.cfg.MaxSources]
	}
	LogMetric(ctx, r.logger, "duplicates_removed", float64(removed))
	LogMetric(ctx, r.logger, "sources_found", float64(len(sources)))

	if len(sources) == 0 {
		return fmt.Errorf("no research results for topic %q", state.Topic)
	}

	now := time.Now()
	state.ResearchSources = sources
	state.ResearchData = r.findings(ctx, state, sources)
	state.ResearchQuality = GradeResearch(sources)
	state.ResearchTimestamp = &now
	return nil
}

func (r *Researcher) searchWithRetry(ctx context.Context, query string) ([]types.Source, error) {
	for attempt := 1; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(searchRetryDelay):
			}
		}
		res := r.searcher.Search(ctx, query, r.cfg.ResultsPerPage)
		if len(res) > 0 {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("query returned no results",
			zap.String("query", query),
			zap.Int("attempt", attempt))
	}
	return nil, nil
}

// findings returns the research notes handed to the writer. With an LLM and
// summarization enabled it asks for key findings; otherwise, or when the
// model fails, it lists each source as "Title: snippet".
func (r *Researcher) findings(ctx context.Context, state *types.BlogState, sources []types.Source) []string {
	if r.llm != nil && r.cfg.Summarize {
		prompt, err := render(summaryPromptTmpl, promptData(state))
		if err == nil {
			resp, err := r.llm.Generate(ctx, llm.Request{System: researcherSystem, Prompt: prompt, Temperature: 0.3})
			if err == nil {
				if notes := parseBullets(resp.Text); len(notes) > 0 {
					return notes
				}
				r.logger.Warn("summary was empty, using snippets")
			} else {
				r.logger.Warn("summary failed, using snippets", zap.Error(err))
			}
		}
	}

	notes := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Snippet == "" {
			notes = append(notes, s.Title)
			continue
		}
		notes = append(notes, s.Title+": "+s.Snippet)
	}
	return notes
}

// BuildQueries derives up to max search queries from the topic, audience
// and requirements. The topic itself is always the first query.
func BuildQueries(state *types.BlogState, max int) []string {
	topic := strings.TrimSpace(state.Topic)
	candidates := []string{topic}
	if a := strings.TrimSpace(state.TargetAudience); a != "" && a != types.DefaultAudience {
		candidates = append(candidates, topic+" for "+a)
	} else {
		candidates = append(candidates, topic+" overview")
	}
	if req := strings.TrimSpace(state.UserRequirements); req != "" {
		candidates = append(candidates, topic+" "+req)
	}
	candidates = append(candidates,
		topic+" best practices",
		topic+" examples",
		topic+" latest trends",
	)

	seen := make(map[string]bool)
	var out []string
	for _, q := range candidates {
		k := strings.ToLower(q)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}

// GradeResearch grades a source set by how many sources carry a snippet.
func GradeResearch(sources []types.Source) types.ResearchQuality {
	n := 0
	for _, s := range sources {
		if strings.TrimSpace(s.Snippet) != "" {
			n++
		}
	}
	switch {
	case n >= 4:
		return types.QualityHigh
	case n >= 2:
		return types.QualityMedium
	default:
		return types.QualityLow
	}
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// parseBullets splits a model answer into one finding per non-empty line,
// stripping list markers.
func parseBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
