// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Source is a single web search result used as research material.
type Source struct {
	// Title is the page title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// URL is the result link.
	URL string `json:"url" yaml:"url"`

	// Snippet is the provider's excerpt of the page.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Provider identifies which search backend found this result
	// (e.g. "duckduckgo", "serper", "tavily").
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// Post is a persisted, generated blog post.
type Post struct {
	ID           string    `json:"id" yaml:"id"`
	RunID        string    `json:"run_id" yaml:"run_id"`
	Topic        string    `json:"topic" yaml:"topic"`
	Title        string    `json:"title" yaml:"title"`
	Body         string    `json:"body" yaml:"body"`
	Tone         string    `json:"tone" yaml:"tone"`
	Audience     string    `json:"audience" yaml:"audience"`
	WordCount    int       `json:"word_count" yaml:"word_count"`
	QualityScore *float64  `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	Sources      []Source  `json:"sources,omitempty" yaml:"sources,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}
