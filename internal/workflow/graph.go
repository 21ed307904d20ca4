// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow wires agents into a directed state graph and walks it for
// one run, routing between nodes on the shared blog state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/telemetry"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// End is the terminal pseudo-node.
const End = "__end__"

// DefaultStepLimit bounds the number of node executions in one run.
const DefaultStepLimit = 25

var (
	// ErrStepLimit is returned when a run exceeds the step limit.
	ErrStepLimit = errors.New("workflow step limit exceeded")
	// ErrNotCompiled is returned by Run before a successful Compile.
	ErrNotCompiled = errors.New("workflow graph not compiled")
)

// Node is one executable step. *agent.Runner satisfies it.
type Node interface {
	Name() string
	Run(ctx context.Context, state *types.BlogState) types.AgentResponse
}

// Router picks the next node from the state after a node completes.
type Router func(state *types.BlogState) string

// Event reports the outcome of one node execution.
type Event struct {
	Step     int
	Node     string
	Status   types.AgentStatus
	Skipped  bool
	Duration time.Duration
	Err      string
}

// Observer receives an Event after every node execution.
type Observer func(Event)

type node struct {
	n        Node
	critical bool
}

type conditional struct {
	router  Router
	targets []string
}

// Graph is a directed graph of nodes with static and conditional edges.
type Graph struct {
	nodes     map[string]node
	order     []string
	edges     map[string]string
	routes    map[string]conditional
	entry     string
	stepLimit int
	timeout   time.Duration
	observer  Observer
	logger    *zap.Logger
	compiled  bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithStepLimit overrides DefaultStepLimit.
func WithStepLimit(n int) Option { return func(g *Graph) { g.stepLimit = n } }

// WithRunTimeout bounds a whole run. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option { return func(g *Graph) { g.timeout = d } }

// WithObserver registers an observer for node events.
func WithObserver(o Observer) Option { return func(g *Graph) { g.observer = o } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(g *Graph) { g.logger = l } }

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:     map[string]node{},
		edges:     map[string]string{},
		routes:    map[string]conditional{},
		stepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	g.logger = g.logger.Named("workflow")
	return g
}

// AddNode registers n under name. A failure of a critical node aborts the
// run; a failure of any other node ends it with the state as it stands.
func (g *Graph) AddNode(name string, n Node, critical bool) error {
	if name == "" || name == End {
		return fmt.Errorf("invalid node name %q", name)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("duplicate node %q", name)
	}
	g.nodes[name] = node{n: n, critical: critical}
	g.order = append(g.order, name)
	g.compiled = false
	return nil
}

// AddEdge routes from -> to unconditionally.
func (g *Graph) AddEdge(from, to string) error {
	if err := g.checkRoute(from); err != nil {
		return err
	}
	g.edges[from] = to
	g.compiled = false
	return nil
}

// AddConditionalEdges routes from the node to whichever of targets the
// router returns.
func (g *Graph) AddConditionalEdges(from string, router Router, targets ...string) error {
	if err := g.checkRoute(from); err != nil {
		return err
	}
	if router == nil || len(targets) == 0 {
		return fmt.Errorf("conditional edges from %q need a router and targets", from)
	}
	g.routes[from] = conditional{router: router, targets: targets}
	g.compiled = false
	return nil
}

func (g *Graph) checkRoute(from string) error {
	if _, ok := g.edges[from]; ok {
		return fmt.Errorf("node %q already has an outgoing route", from)
	}
	if _, ok := g.routes[from]; ok {
		return fmt.Errorf("node %q already has an outgoing route", from)
	}
	return nil
}

// SetEntry sets the first node of a run.
func (g *Graph) SetEntry(name string) {
	g.entry = name
	g.compiled = false
}

// Nodes returns the node names in registration order.
func (g *Graph) Nodes() []string { return slices.Clone(g.order) }

// Compile validates the graph: the entry exists, every node has exactly one
// outgoing route, and every route targets a node or End.
func (g *Graph) Compile() error {
	var errs []error
	if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry node %q not defined", g.entry))
	}
	exists := func(n string) bool {
		_, ok := g.nodes[n]
		return ok || n == End
	}
	for _, name := range g.order {
		to, static := g.edges[name]
		c, cond := g.routes[name]
		switch {
		case static:
			if !exists(to) {
				errs = append(errs, fmt.Errorf("edge %s -> %s: unknown target", name, to))
			}
		case cond:
			for _, t := range c.targets {
				if !exists(t) {
					errs = append(errs, fmt.Errorf("conditional edge %s -> %s: unknown target", name, t))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("node %q has no outgoing route", name))
		}
	}
	for from := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
		}
	}
	for from := range g.routes {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("conditional edge from unknown node %q", from))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("compiling workflow: %w", err)
	}
	g.compiled = true
	return nil
}

// Run walks the graph from the entry node until End, mutating state.
func (g *Graph) Run(ctx context.Context, state *types.BlogState) error {
	if !g.compiled {
		return ErrNotCompiled
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx, span := telemetry.Tracer().Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.String("topic", state.Topic),
		))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	start := time.Now()
	current := g.entry
	for step := 1; current != End; step++ {
		if step > g.stepLimit {
			return fail(fmt.Errorf("%w (%d steps)", ErrStepLimit, g.stepLimit))
		}
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("workflow interrupted before %s: %w", current, err))
		}

		nd := g.nodes[current]
		resp := g.runNode(ctx, step, current, nd, state)
		if !resp.Success {
			if nd.critical {
				return fail(fmt.Errorf("%s failed: %s", current, resp.Error))
			}
			g.logger.Warn("non-critical node failed, ending run",
				zap.String("node", current),
				zap.String("error", resp.Error))
			break
		}

		next, err := g.next(current, state)
		if err != nil {
			return fail(err)
		}
		current = next
	}

	g.logger.Info("workflow complete",
		zap.String("run_id", state.RunID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("version", state.Version))
	return nil
}

func (g *Graph) runNode(ctx context.Context, step int, name string, nd node, state *types.BlogState) types.AgentResponse {
	ctx, span := telemetry.Tracer().Start(ctx, "workflow.node",
		trace.WithAttributes(
			attribute.String("node", name),
			attribute.Int("step", step),
		))
	defer span.End()

	start := time.Now()
	resp := nd.n.Run(ctx, state)
	ev := Event{
		Step:     step,
		Node:     name,
		Status:   types.StatusCompleted,
		Skipped:  resp.Skipped,
		Duration: time.Since(start),
		Err:      resp.Error,
	}
	if !resp.Success {
		ev.Status = types.StatusFailed
		span.SetStatus(codes.Error, resp.Error)
	}
	if g.observer != nil {
		g.observer(ev)
	}
	return resp
}

func (g *Graph) next(current string, state *types.BlogState) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	c := g.routes[current]
	to := c.router(state)
	if !slices.Contains(c.targets, to) {
		return "", fmt.Errorf("router for %s returned undeclared target %q", current, to)
	}
	return to, nil
}
