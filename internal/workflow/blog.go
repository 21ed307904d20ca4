// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"strings"
	"time"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Node names of the blog graph.
const (
	NodeResearch = "research"
	NodeWrite    = "write"
	NodeEdit     = "edit"
)

// NewBlogGraph builds and compiles the research -> write -> edit graph.
//
// Research and write are critical. When the editor is enabled, write routes
// to edit whenever there is a post, and edit routes back to write while the
// state asks for a revision and the iteration budget allows it. A nil editor
// or cfg.EnableEditor == false yields the two-node graph.
func NewBlogGraph(researcher, writer, editor Node, cfg types.WorkflowConfig, opts ...Option) (*Graph, error) {
	if cfg.TimeoutSeconds > 0 {
		opts = append([]Option{WithRunTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)}, opts...)
	}
	g := New(opts...)

	if err := g.AddNode(NodeResearch, researcher, true); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeWrite, writer, true); err != nil {
		return nil, err
	}
	g.SetEntry(NodeResearch)
	if err := g.AddEdge(NodeResearch, NodeWrite); err != nil {
		return nil, err
	}

	if editor == nil || !cfg.EnableEditor {
		if err := g.AddEdge(NodeWrite, End); err != nil {
			return nil, err
		}
		return compiled(g)
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	if err := g.AddNode(NodeEdit, editor, false); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdges(NodeWrite, func(s *types.BlogState) string {
		if strings.TrimSpace(s.BlogPost) == "" {
			return End
		}
		return NodeEdit
	}, NodeEdit, End); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdges(NodeEdit, func(s *types.BlogState) string {
		if s.NeedsRevision && s.DraftIterations < maxIter {
			return NodeWrite
		}
		return End
	}, NodeWrite, End); err != nil {
		return nil, err
	}
	return compiled(g)
}

func compiled(g *Graph) (*Graph, error) {
	if err := g.Compile(); err != nil {
		return nil, err
	}
	return g, nil
}
