// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <topics.yaml>",
	Short: "Generate posts for every topic in a YAML file",
	Long: `Batch reads a YAML list of topics (plain strings or mappings with topic,
tone, target_audience, word_count and requirements) and generates a post for
each. Topics run concurrently up to agents.max_concurrent_agents when
agents.parallel_execution is set, one at a time otherwise. A failed topic
does not stop the others.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputs, err := loadBatchInputs(cmd, args[0])
	if err != nil {
		return err
	}

	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintf(os.Stderr, "Generating %d post(s)\n", len(inputs))
	result := p.GenerateBatch(cmd.Context(), inputs)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if err := printBatchJSON(result); err != nil {
			return err
		}
	} else {
		printBatchTable(result)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d topic(s) failed", result.Failed, result.Total())
	}
	return nil
}

// loadBatchInputs reads the topics file. Topics publish unless the file says
// otherwise; --no-publish, when given, wins over the file.
func loadBatchInputs(cmd *cobra.Command, path string) ([]pipeline.Input, error) {
	inputs, err := pipeline.LoadInputsFile(path, true)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("no-publish") {
		noPublish, _ := cmd.Flags().GetBool("no-publish")
		for i := range inputs {
			inputs[i].Publish = inputs[i].Publish && !noPublish
		}
	}
	return inputs, nil
}

type batchLine struct {
	Topic  string `json:"topic"`
	PostID string `json:"post_id,omitempty"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

func printBatchJSON(result pipeline.BatchResult) error {
	lines := make([]batchLine, len(result.Items))
	for i, item := range result.Items {
		lines[i] = batchLine{Topic: item.Input.Topic}
		if item.Result != nil {
			lines[i].PostID = item.Result.PostID
			lines[i].Path = item.Result.Path
		}
		if item.Err != nil {
			lines[i].Error = item.Err.Error()
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(lines)
}

func printBatchTable(result pipeline.BatchResult) {
	fmt.Fprintf(os.Stdout, "%-4s  %-40s  %-6s  %s\n", "#", "Topic", "Status", "Post / Error")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, item := range result.Items {
		status, detail := "ok", ""
		switch {
		case item.Err != nil:
			status, detail = "FAIL", item.Err.Error()
		case item.Result.Path != "":
			detail = item.Result.Path
		default:
			detail = item.Result.PostID
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-40s  %-6s  %s\n", i+1, clip(item.Input.Topic, 40), status, detail)
	}

	fmt.Fprintf(os.Stdout, "\n%d succeeded, %d failed\n", result.Succeeded, result.Failed)
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	batchCmd.Flags().Bool("no-publish", false, "do not write Markdown files")
	batchCmd.Flags().Bool("json", false, "output per-topic results as JSON")

	rootCmd.AddCommand(batchCmd)
}
