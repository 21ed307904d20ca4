// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/pipeline"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/publish"
)

var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate one blog post for a topic",
	Long: `Generate runs the researcher, writer and (when enabled) editor agents for a
topic. The post and the run are saved to the database; unless --no-publish
is given the post is also written as Markdown into the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	in, err := inputFromFlags(cmd, args)
	if err != nil {
		return err
	}

	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Generate(cmd.Context(), in)
	if err != nil {
		if res != nil && res.State != nil {
			printErrors(os.Stderr, res)
		}
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if show, _ := cmd.Flags().GetBool("show"); show {
		style, _ := cmd.Flags().GetString("style")
		out, err := publish.RenderTerminal(res.State.BlogPost, 100, style)
		if err != nil {
			return err
		}
		fmt.Print(out)
	}
	printSummary(os.Stdout, res)
	return nil
}

func inputFromFlags(cmd *cobra.Command, args []string) (pipeline.Input, error) {
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" && len(args) > 0 {
		topic = args[0]
	}
	if strings.TrimSpace(topic) == "" {
		return pipeline.Input{}, fmt.Errorf("topic required: pass it as an argument or with --topic")
	}
	requirements, _ := cmd.Flags().GetString("requirements")
	audience, _ := cmd.Flags().GetString("audience")
	tone, _ := cmd.Flags().GetString("tone")
	words, _ := cmd.Flags().GetInt("words")
	noPublish, _ := cmd.Flags().GetBool("no-publish")

	return pipeline.Input{
		Topic:        topic,
		Requirements: requirements,
		Audience:     audience,
		Tone:         tone,
		WordCount:    words,
		Publish:      !noPublish,
	}, nil
}

func printSummary(w io.Writer, res *pipeline.Result) {
	st := res.State
	fmt.Fprintf(w, "Title:      %s\n", st.BlogTitle)
	fmt.Fprintf(w, "Run:        %s\n", res.RunID)
	fmt.Fprintf(w, "Post:       %s\n", res.PostID)
	if st.BlogMetadata != nil {
		fmt.Fprintf(w, "Words:      %d (%d min read)\n", st.BlogMetadata.WordCount, st.BlogMetadata.ReadingMinutes)
	}
	if st.QualityScore != nil {
		fmt.Fprintf(w, "Quality:    %.2f after %d draft(s)\n", *st.QualityScore, st.DraftIterations)
	}
	fmt.Fprintf(w, "Sources:    %d (%s quality)\n", len(st.ResearchSources), st.ResearchQuality)
	if res.Path != "" {
		fmt.Fprintf(w, "Written to: %s\n", res.Path)
	}
	if len(res.UnknownCitations) > 0 {
		fmt.Fprintf(w, "Warning:    citations without a source: %v\n", res.UnknownCitations)
	}

	agents := make([]string, 0, len(st.ExecutionTime))
	for name := range st.ExecutionTime {
		agents = append(agents, name)
	}
	sort.Strings(agents)
	for _, name := range agents {
		fmt.Fprintf(w, "  %-10s %-11s %.2fs\n", name, st.AgentStatus[name], st.ExecutionTime[name])
	}
	printErrors(w, res)
}

func printErrors(w io.Writer, res *pipeline.Result) {
	for _, e := range res.State.ErrorLog {
		fmt.Fprintf(w, "  error in %s (attempt %d): %s\n", e.Agent, e.ExecutionCount, e.Error)
	}
}

func init() {
	generateCmd.Flags().String("topic", "", "blog topic (3 to 200 characters)")
	generateCmd.Flags().String("requirements", "", "additional requirements for the post")
	generateCmd.Flags().String("audience", "", "target audience (default: general audience)")
	generateCmd.Flags().String("tone", "", "tone: professional, casual, technical, friendly")
	generateCmd.Flags().Int("words", 0, "target word count (default 500)")
	generateCmd.Flags().Bool("no-publish", false, "do not write the Markdown file")
	generateCmd.Flags().Bool("show", false, "render the post in the terminal")
	generateCmd.Flags().String("style", "", "glamour style for --show (default: auto)")
	generateCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(generateCmd)
}
