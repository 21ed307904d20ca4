// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent implements the agents of the blog pipeline and the runner
// that wraps every agent invocation with status tracking, timing, error
// logging and state versioning.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/logging"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/telemetry"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Agent is one stage of the pipeline. Execute mutates the state it is given;
// the runner hands it a private copy and commits the copy only on success.
type Agent interface {
	Name() string
	Execute(ctx context.Context, state *types.BlogState) error
}

// Conditional is implemented by agents that may decline to run.
type Conditional interface {
	ShouldExecute(state *types.BlogState) bool
}

// Runner invokes an agent against the live state.
type Runner struct {
	agent   Agent
	timeout time.Duration
	logger  *zap.Logger
	count   atomic.Int64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each execution. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption { return func(r *Runner) { r.timeout = d } }

// WithLogger sets the base logger; the runner derives agent.<name> from it.
func WithLogger(l *zap.Logger) RunnerOption { return func(r *Runner) { r.logger = l } }

// NewRunner wraps a.
func NewRunner(a Agent, opts ...RunnerOption) *Runner {
	r := &Runner{agent: a}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Agent(r.logger, a.Name())
	return r
}

// Name returns the wrapped agent's name.
func (r *Runner) Name() string { return r.agent.Name() }

// ExecutionCount returns how many times Run has been called.
func (r *Runner) ExecutionCount() int { return int(r.count.Load()) }

// Run executes the agent and records the outcome on state.
//
// On success the agent's changes are committed, the status becomes
// completed and the version is incremented. On failure the content fields
// are left as they were, the status becomes failed and one entry is appended
// to the error log. A conditional agent that declines is marked completed
// without executing.
func (r *Runner) Run(ctx context.Context, state *types.BlogState) types.AgentResponse {
	name := r.agent.Name()
	if state.AgentStatus == nil {
		state.AgentStatus = map[string]types.AgentStatus{}
	}
	if state.ExecutionTime == nil {
		state.ExecutionTime = map[string]float64{}
	}

	if c, ok := r.agent.(Conditional); ok && !c.ShouldExecute(state) {
		r.logger.Info(name + " skipped (condition not met)")
		state.AgentStatus[name] = types.StatusCompleted
		return types.AgentResponse{Success: true, Skipped: true, AgentName: name}
	}
	n := int(r.count.Add(1))

	ctx, span := telemetry.Tracer().Start(ctx, "agent."+strings.ToLower(name),
		trace.WithAttributes(
			attribute.String("agent.name", name),
			attribute.Int("agent.execution_count", n),
			attribute.String("run.id", state.RunID),
		))
	defer span.End()

	r.logger.Info(fmt.Sprintf("%s starting execution #%d", name, n))
	start := time.Now()
	state.AgentStatus[name] = types.StatusInProgress

	work := state.Clone()
	err := r.execute(ctx, work)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		state.AgentStatus[name] = types.StatusFailed
		state.ExecutionTime[name] = elapsed
		state.ErrorLog = append(state.ErrorLog, types.ErrorEntry{
			Agent:          name,
			Error:          err.Error(),
			Timestamp:      time.Now(),
			ExecutionCount: n,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error(fmt.Sprintf("%s failed after %.2fs", name, elapsed),
			zap.Error(err),
			zap.Float64("execution_time", elapsed),
			zap.Int("execution_count", n))
		return types.AgentResponse{AgentName: name, Error: err.Error(), ExecutionTime: elapsed}
	}

	work.AgentStatus[name] = types.StatusCompleted
	work.ExecutionTime[name] = elapsed
	work.LastModifiedBy = name
	work.LastModifiedAt = time.Now()
	work.Version = state.Version + 1
	*state = *work

	r.logger.Info(fmt.Sprintf("%s completed in %.2fs", name, elapsed),
		zap.Float64("execution_time", elapsed),
		zap.Int("execution_count", n))
	return types.AgentResponse{Success: true, AgentName: name, ExecutionTime: elapsed}
}

func (r *Runner) execute(ctx context.Context, state *types.BlogState) (err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", r.agent.Name(), p)
		}
	}()
	if err := r.agent.Execute(ctx, state); err != nil {
		return err
	}
	return ctx.Err()
}

// LogMetric records a named metric for the agent owning logger, both as a
// structured log line and as an event on the current span.
func LogMetric(ctx context.Context, logger *zap.Logger, metric string, value float64) {
	logger.Info("Metric: "+metric, zap.String("metric", metric), zap.Float64("value", value))
	trace.SpanFromContext(ctx).AddEvent("metric", trace.WithAttributes(
		attribute.String("metric", metric),
		attribute.Float64("value", value),
	))
}

// RequireFields reports the first named field that is empty on state.
func RequireFields(state *types.BlogState, fields ...string) error {
	for _, f := range fields {
		var missing bool
		switch f {
		case "topic":
			missing = strings.TrimSpace(state.Topic) == ""
		case "target_audience":
			missing = state.TargetAudience == ""
		case "tone":
			missing = state.Tone == ""
		case "research_data":
			missing = len(state.ResearchData) == 0
		case "research_sources":
			missing = len(state.ResearchSources) == 0
		case "blog_post":
			missing = strings.TrimSpace(state.BlogPost) == ""
		case "blog_title":
			missing = state.BlogTitle == ""
		default:
			return fmt.Errorf("unknown state field %q", f)
		}
		if missing {
			return fmt.Errorf("Missing required field: %s", f)
		}
	}
	return nil
}
