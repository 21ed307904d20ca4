// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one post in an export file.
type ExportEntry struct {
	ID           string   `json:"id" yaml:"id"`
	RunID        string   `json:"run_id" yaml:"run_id"`
	Topic        string   `json:"topic" yaml:"topic"`
	Title        string   `json:"title" yaml:"title"`
	Tone         string   `json:"tone,omitempty" yaml:"tone,omitempty"`
	Audience     string   `json:"audience,omitempty" yaml:"audience,omitempty"`
	WordCount    int      `json:"word_count" yaml:"word_count"`
	QualityScore *float64 `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	CreatedAt    string   `json:"created_at" yaml:"created_at"`
	Sources      []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Body         string   `json:"body" yaml:"body"`
}

const exportLimit = 100000

// Export writes posts matching query (all posts when query is empty) to w
// as "yaml" or "json".
func (s *Store) Export(ctx context.Context, w io.Writer, query, format string) error {
	posts, err := s.SearchPosts(ctx, query, exportLimit)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(posts))
	for i, p := range posts {
		entries[i] = ExportEntry{
			ID:           p.ID,
			RunID:        p.RunID,
			Topic:        p.Topic,
			Title:        p.Title,
			Tone:         p.Tone,
			Audience:     p.Audience,
			WordCount:    p.WordCount,
			QualityScore: p.QualityScore,
			CreatedAt:    timestamp(p.CreatedAt),
			Body:         p.Body,
		}
		for _, src := range p.Sources {
			entries[i].Sources = append(entries[i].Sources, src.URL)
		}
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
