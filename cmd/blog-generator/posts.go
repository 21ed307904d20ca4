// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/publish"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Browse generated posts (list, show, search, export)",
	Long: `Posts reads the SQLite database that generate, batch and serve write to.
Use subcommands to list recent posts, show one, search them or export.`,
}

// --- list subcommand ---

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent posts",
	Args:  cobra.NoArgs,
	RunE:  runPostsList,
}

func runPostsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	posts, err := st.ListPosts(cmd.Context(), limit)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPosts(os.Stdout, posts, jsonOutput)
}

// --- search subcommand ---

var postsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over titles, topics and bodies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPostsSearch,
}

func runPostsSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	posts, err := st.SearchPosts(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPosts(os.Stdout, posts, jsonOutput)
}

// --- show subcommand ---

var postsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one post",
	Long: `Show prints a stored post. By default the Markdown is rendered for the
terminal; --raw prints it unchanged and --json prints the full record.`,
	Args: cobra.ExactArgs(1),
	RunE: runPostsShow,
}

func runPostsShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	post, err := st.GetPost(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("post %s: %w", args[0], err)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(post)
	}
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		fmt.Println(post.Body)
		return nil
	}

	style, _ := cmd.Flags().GetString("style")
	width, _ := cmd.Flags().GetInt("width")
	out, err := publish.RenderTerminal(post.Body, width, style)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// --- export subcommand ---

var postsExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export posts to YAML or JSON",
	Long: `Export writes every post (or those matching a full-text query) as YAML or
JSON, to stdout or to the file named by --output.`,
	RunE: runPostsExport,
}

func runPostsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := st.Export(cmd.Context(), w, strings.Join(args, " "), format); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	}
	return nil
}

// --- shared helpers ---

func formatPosts(w io.Writer, posts []*types.Post, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(posts)
	}

	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-45s  %-6s  %-7s  %s\n", "ID", "Title", "Words", "Quality", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, p := range posts {
		quality := "-"
		if p.QualityScore != nil {
			quality = fmt.Sprintf("%.2f", *p.QualityScore)
		}
		fmt.Fprintf(w, "%-36s  %-45s  %-6d  %-7s  %s\n",
			p.ID, clip(p.Title, 45), p.WordCount, quality, p.CreatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(w, "\n%d posts\n", len(posts))
	return nil
}

func init() {
	postsCmd.PersistentFlags().Int("limit", 20, "maximum number of posts")

	postsListCmd.Flags().Bool("json", false, "output posts as JSON")
	postsSearchCmd.Flags().Bool("json", false, "output posts as JSON")

	postsShowCmd.Flags().Bool("json", false, "output the post record as JSON")
	postsShowCmd.Flags().Bool("raw", false, "print the Markdown without rendering")
	postsShowCmd.Flags().String("style", "", "glamour style (default: auto)")
	postsShowCmd.Flags().Int("width", 100, "word wrap width")

	postsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	postsExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsSearchCmd)
	postsCmd.AddCommand(postsShowCmd)
	postsCmd.AddCommand(postsExportCmd)

	rootCmd.AddCommand(postsCmd)
}
