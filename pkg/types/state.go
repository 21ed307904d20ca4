// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for the blog generation
// pipeline: the state every agent reads and writes, the settings model, and
// the search and post records exchanged between stages.
package types

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// AgentStatus is the execution status of one agent within a run.
type AgentStatus string

const (
	StatusPending    AgentStatus = "pending"
	StatusInProgress AgentStatus = "in_progress"
	StatusCompleted  AgentStatus = "completed"
	StatusFailed     AgentStatus = "failed"
)

// ResearchQuality grades the research gathered for a topic.
type ResearchQuality string

const (
	QualityHigh    ResearchQuality = "high"
	QualityMedium  ResearchQuality = "medium"
	QualityLow     ResearchQuality = "low"
	QualityUnknown ResearchQuality = "unknown"
)

// Tones accepted in BlogState.Tone.
var Tones = []string{"professional", "casual", "technical", "friendly"}

const (
	DefaultAudience  = "general"
	DefaultTone      = "professional"
	DefaultWordCount = 500

	minTopicLen = 3
	maxTopicLen = 200
)

// ErrInvalidState is wrapped by every error returned from ValidateState.
var ErrInvalidState = errors.New("invalid state")

// ErrorEntry records one agent failure in the state's error log.
type ErrorEntry struct {
	Agent          string    `json:"agent" yaml:"agent"`
	Error          string    `json:"error" yaml:"error"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	ExecutionCount int       `json:"execution_count" yaml:"execution_count"`
}

// PostMetadata describes a generated post.
type PostMetadata struct {
	WordCount      int       `json:"word_count" yaml:"word_count"`
	ReadingMinutes int       `json:"reading_minutes" yaml:"reading_minutes"`
	Sections       int       `json:"sections" yaml:"sections"`
	Tags           []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Model          string    `json:"model,omitempty" yaml:"model,omitempty"`
	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
}

// BlogState is the shared clipboard passed between agents. The agent runner
// is the only writer of the execution metadata and version fields.
type BlogState struct {
	RunID string `json:"run_id" yaml:"run_id"`

	// Input
	Topic            string `json:"topic" yaml:"topic"`
	UserRequirements string `json:"user_requirements,omitempty" yaml:"user_requirements,omitempty"`
	TargetAudience   string `json:"target_audience" yaml:"target_audience"`
	Tone             string `json:"tone" yaml:"tone"`
	WordCount        int    `json:"word_count" yaml:"word_count"`

	// Research
	ResearchData      []string        `json:"research_data" yaml:"research_data"`
	ResearchSources   []Source        `json:"research_sources" yaml:"research_sources"`
	ResearchQuality   ResearchQuality `json:"research_quality" yaml:"research_quality"`
	ResearchTimestamp *time.Time      `json:"research_timestamp,omitempty" yaml:"research_timestamp,omitempty"`

	// Writing
	BlogPost        string        `json:"blog_post" yaml:"blog_post"`
	BlogTitle       string        `json:"blog_title,omitempty" yaml:"blog_title,omitempty"`
	BlogMetadata    *PostMetadata `json:"blog_metadata,omitempty" yaml:"blog_metadata,omitempty"`
	DraftIterations int           `json:"draft_iterations" yaml:"draft_iterations"`

	// Editing
	EditorFeedback string   `json:"editor_feedback,omitempty" yaml:"editor_feedback,omitempty"`
	QualityScore   *float64 `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	NeedsRevision  bool     `json:"needs_revision" yaml:"needs_revision"`

	// Execution metadata. ExecutionTime holds seconds per agent.
	AgentStatus   map[string]AgentStatus `json:"agent_status" yaml:"agent_status"`
	ExecutionTime map[string]float64     `json:"execution_time" yaml:"execution_time"`
	ErrorLog      []ErrorEntry           `json:"error_log" yaml:"error_log"`

	Version        int       `json:"version" yaml:"version"`
	LastModifiedBy string    `json:"last_modified_by,omitempty" yaml:"last_modified_by,omitempty"`
	LastModifiedAt time.Time `json:"last_modified_at" yaml:"last_modified_at"`
}

// StateOptions carries the optional inputs of NewState. Zero values select
// the defaults.
type StateOptions struct {
	Requirements string
	Audience     string
	Tone         string
	WordCount    int
}

// NewState returns an initial state for topic with defaults applied.
func NewState(topic string, opts StateOptions) *BlogState {
	audience := opts.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	tone := opts.Tone
	if tone == "" {
		tone = DefaultTone
	}
	words := opts.WordCount
	if words == 0 {
		words = DefaultWordCount
	}
	return &BlogState{
		Topic:            topic,
		UserRequirements: opts.Requirements,
		TargetAudience:   audience,
		Tone:             tone,
		WordCount:        words,
		ResearchData:     []string{},
		ResearchSources:  []Source{},
		ResearchQuality:  QualityUnknown,
		AgentStatus:      map[string]AgentStatus{},
		ExecutionTime:    map[string]float64{},
		ErrorLog:         []ErrorEntry{},
		Version:          1,
		LastModifiedAt:   time.Now(),
	}
}

// ValidateState checks the input fields of s.
func ValidateState(s *BlogState) error {
	if s == nil || strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("%w: Missing required field: topic", ErrInvalidState)
	}
	n := utf8.RuneCountInString(s.Topic)
	if n < minTopicLen {
		return fmt.Errorf("%w: Topic must be at least %d characters long", ErrInvalidState, minTopicLen)
	}
	if n > maxTopicLen {
		return fmt.Errorf("%w: Topic must be less than %d characters", ErrInvalidState, maxTopicLen)
	}
	if s.WordCount < 0 {
		return fmt.Errorf("%w: word count must be positive, got %d", ErrInvalidState, s.WordCount)
	}
	if s.Tone != "" && !slices.Contains(Tones, s.Tone) {
		return fmt.Errorf("%w: tone must be one of %v, got %q", ErrInvalidState, Tones, s.Tone)
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *BlogState) Clone() *BlogState {
	c := *s
	c.ResearchData = slices.Clone(s.ResearchData)
	c.ResearchSources = slices.Clone(s.ResearchSources)
	c.ErrorLog = slices.Clone(s.ErrorLog)
	c.AgentStatus = maps.Clone(s.AgentStatus)
	c.ExecutionTime = maps.Clone(s.ExecutionTime)
	if c.AgentStatus == nil {
		c.AgentStatus = map[string]AgentStatus{}
	}
	if c.ExecutionTime == nil {
		c.ExecutionTime = map[string]float64{}
	}
	if s.ResearchTimestamp != nil {
		t := *s.ResearchTimestamp
		c.ResearchTimestamp = &t
	}
	if s.QualityScore != nil {
		q := *s.QualityScore
		c.QualityScore = &q
	}
	if s.BlogMetadata != nil {
		m := *s.BlogMetadata
		m.Tags = slices.Clone(s.BlogMetadata.Tags)
		c.BlogMetadata = &m
	}
	return &c
}

// Failed reports whether any agent in the run ended in StatusFailed.
func (s *BlogState) Failed() bool {
	for _, st := range s.AgentStatus {
		if st == StatusFailed {
			return true
		}
	}
	return false
}

// WorkflowConfig controls a single workflow execution.
type WorkflowConfig struct {
	MaxResearchResults int  `json:"max_research_results" yaml:"max_research_results"`
	EnableEditor       bool `json:"enable_editor" yaml:"enable_editor"`
	MaxIterations      int  `json:"max_iterations" yaml:"max_iterations"`
	TimeoutSeconds     int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	ParallelExecution  bool `json:"parallel_execution" yaml:"parallel_execution"`
}

// AgentResponse is the outcome of one agent invocation.
type AgentResponse struct {
	Success       bool    `json:"success"`
	Skipped       bool    `json:"skipped,omitempty"`
	AgentName     string  `json:"agent_name"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
}
