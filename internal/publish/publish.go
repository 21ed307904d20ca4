// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish writes finished posts as Markdown files with YAML front
// matter, checks their citations, and renders them for the terminal.
package publish

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/glamour"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const (
	frontMatterDelim = "---"
	maxSlugLen       = 80
)

// SourceRef is a source as listed in front matter.
type SourceRef struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// FrontMatter is the YAML header of a published post.
type FrontMatter struct {
	Title          string      `yaml:"title"`
	Topic          string      `yaml:"topic"`
	Date           time.Time   `yaml:"date"`
	RunID          string      `yaml:"run_id,omitempty"`
	Audience       string      `yaml:"audience,omitempty"`
	Tone           string      `yaml:"tone,omitempty"`
	Tags           []string    `yaml:"tags,omitempty"`
	WordCount      int         `yaml:"word_count,omitempty"`
	ReadingMinutes int         `yaml:"reading_minutes,omitempty"`
	QualityScore   *float64    `yaml:"quality_score,omitempty"`
	Model          string      `yaml:"model,omitempty"`
	Sources        []SourceRef `yaml:"sources,omitempty"`
}

// Slug turns title into a lowercase, hyphen-separated file name stem.
// Accents are folded to their base letters.
func Slug(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if r := []rune(slug); len(r) > maxSlugLen {
		slug = strings.TrimRight(string(r[:maxSlugLen]), "-")
	}
	if slug == "" {
		return "post"
	}
	return slug
}

// NewFrontMatter builds the front matter for state.
func NewFrontMatter(state *types.BlogState) FrontMatter {
	fm := FrontMatter{
		Title:        state.BlogTitle,
		Topic:        state.Topic,
		Date:         state.LastModifiedAt.UTC().Truncate(time.Second),
		RunID:        state.RunID,
		Audience:     state.TargetAudience,
		Tone:         state.Tone,
		QualityScore: state.QualityScore,
	}
	if fm.Title == "" {
		fm.Title = state.Topic
	}
	if m := state.BlogMetadata; m != nil {
		fm.Tags = m.Tags
		fm.WordCount = m.WordCount
		fm.ReadingMinutes = m.ReadingMinutes
		fm.Model = m.Model
	}
	for _, s := range state.ResearchSources {
		fm.Sources = append(fm.Sources, SourceRef{Title: s.Title, URL: s.URL})
	}
	return fm
}

var sourcesHeading = regexp.MustCompile(`(?mi)^#{1,6}\s+(sources|references)\s*$`)

// Render returns the Markdown file content for state: front matter, the
// post, and a numbered Sources section unless the post already has one.
func Render(state *types.BlogState) ([]byte, error) {
	fm, err := yaml.Marshal(NewFrontMatter(state))
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString(frontMatterDelim + "\n")
	b.Write(fm)
	b.WriteString(frontMatterDelim + "\n\n")
	b.WriteString(strings.TrimSpace(state.BlogPost))
	b.WriteString("\n")

	if len(state.ResearchSources) > 0 && !sourcesHeading.MatchString(state.BlogPost) {
		b.WriteString("\n## Sources\n\n")
		for i, s := range state.ResearchSources {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, s.Title, s.URL)
		}
	}
	return b.Bytes(), nil
}

// WriteMarkdown writes state to dir/<slug>.md and returns the path. An
// existing file is never overwritten; a numeric suffix is added instead.
func WriteMarkdown(dir string, state *types.BlogState) (string, error) {
	if strings.TrimSpace(state.BlogPost) == "" {
		return "", errors.New("no post to publish")
	}
	data, err := Render(state)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	title := state.BlogTitle
	if title == "" {
		title = state.Topic
	}
	stem := Slug(title)
	for i := 1; ; i++ {
		name := stem + ".md"
		if i > 1 {
			name = stem + "-" + strconv.Itoa(i) + ".md"
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
		return path, f.Close()
	}
}

// ReadFrontMatter parses a published file, returning its front matter and
// the Markdown that follows it.
func ReadFrontMatter(path string) (*FrontMatter, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return ParseFrontMatter(data)
}

// ParseFrontMatter splits data into front matter and body.
func ParseFrontMatter(data []byte) (*FrontMatter, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return nil, "", errors.New("missing front matter")
	}
	rest := text[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
	if end < 0 {
		return nil, "", errors.New("unterminated front matter")
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, "", fmt.Errorf("parsing front matter: %w", err)
	}
	body := strings.TrimLeft(rest[end+len(frontMatterDelim)+2:], "\n")
	return &fm, body, nil
}

// citationPattern matches numeric citations: [3] or [1, 2] or [1; 4]. The
// second group catches "[1](" so Markdown links can be skipped.
var citationPattern = regexp.MustCompile(`\[(\d+(?:\s*[,;]\s*\d+)*)\](\()?`)

// ValidateCitations returns, sorted and without duplicates, the citation
// numbers in post that do not refer to one of nSources sources.
func ValidateCitations(post string, nSources int) []int {
	seen := make(map[int]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(post, -1) {
		if m[2] != "" {
			continue
		}
		for _, part := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
			n, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			if n < 1 || n > nSources {
				seen[n] = true
			}
		}
	}

	bad := make([]int, 0, len(seen))
	for n := range seen {
		bad = append(bad, n)
	}
	sort.Ints(bad)
	return bad
}

// RenderTerminal renders Markdown for display in a terminal. An empty style
// picks one from the terminal background; "notty" disables colour.
func RenderTerminal(markdown string, width int, style string) (string, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
