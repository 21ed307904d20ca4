// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"text/template"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const (
	researcherSystem = "You are a meticulous research assistant. You condense web search results into accurate, concise findings."
	writerSystem     = "You are an experienced blog writer. You write engaging, well-structured Markdown articles grounded in the research you are given."
	editorSystem     = "You are a demanding blog editor. You review drafts for accuracy, structure, clarity and tone, and you answer only with JSON."
)

// promptVars is the data every prompt template renders from.
type promptVars struct {
	Topic        string
	Audience     string
	Tone         string
	WordCount    int
	Requirements string
	Findings     []string
	Sources      []types.Source
	Feedback     string
	Draft        string
	MinWords     int
}

func promptData(s *types.BlogState) promptVars {
	return promptVars{
		Topic:        s.Topic,
		Audience:     s.TargetAudience,
		Tone:         s.Tone,
		WordCount:    s.WordCount,
		Requirements: s.UserRequirements,
		Findings:     s.ResearchData,
		Sources:      s.ResearchSources,
		Feedback:     s.EditorFeedback,
		Draft:        s.BlogPost,
	}
}

var summaryPromptTmpl = template.Must(template.New("summary").Funcs(funcs).Parse(`Summarize the key findings about "{{.Topic}}" from the search results below.
Write one finding per line as a Markdown bullet. Cite the source number in brackets, e.g. [2].
Do not invent facts that the results do not support.

Search results:
{{range $i, $s := .Sources}}[{{inc $i}}] {{$s.Title}} ({{$s.URL}})
{{$s.Snippet}}
{{end}}`))

var writerPromptTmpl = template.Must(template.New("writer").Funcs(funcs).Parse(`Write a blog post about "{{.Topic}}".

Audience: {{.Audience}}
Tone: {{.Tone}}
Target length: about {{.WordCount}} words
{{- if .Requirements}}
Additional requirements: {{.Requirements}}
{{- end}}

Format:
- Start with a single Markdown H1 title line ("# Title").
- Use "##" headings for sections, with an introduction and a conclusion.
- Cite sources inline with their number in brackets, e.g. [1].

Research findings:
{{range .Findings}}- {{.}}
{{end}}
Sources:
{{range $i, $s := .Sources}}[{{inc $i}}] {{$s.Title}} - {{$s.URL}}
{{end}}
{{- if .Feedback}}
An editor reviewed the previous draft. Address this feedback in the new draft:
{{.Feedback}}
{{- end}}`))

var expandPromptTmpl = template.Must(template.New("expand").Funcs(funcs).Parse(`The draft below about "{{.Topic}}" is too short. Expand it to at least {{.MinWords}} words
(target about {{.WordCount}}) while keeping its title, structure, tone and citations.
Return the complete expanded post in Markdown.

Draft:
{{.Draft}}`))

var editorPromptTmpl = template.Must(template.New("editor").Funcs(funcs).Parse(`Review the blog post below about "{{.Topic}}" written for a {{.Audience}} audience in a {{.Tone}} tone.

Score it from 0.0 to 1.0 for accuracy against the sources, structure, clarity and tone.
Respond with a JSON object with exactly these keys:
  "score": number between 0 and 1,
  "feedback": concise, actionable feedback for the writer,
  "revised_post": the post with your copy edits applied, in Markdown (empty string if no edits).

Sources:
{{range $i, $s := .Sources}}[{{inc $i}}] {{$s.Title}} - {{$s.URL}}
{{end}}
Post:
{{.Draft}}`))

var funcs = template.FuncMap{"inc": func(i int) int { return i + 1 }}

// render executes tmpl with v.
func render(tmpl *template.Template, v promptVars) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
