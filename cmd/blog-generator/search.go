// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/config"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/search"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a web search with the configured provider",
	Long: `Search queries the configured provider (duckduckgo, serper or tavily) the
same way the researcher agent does. Results are deduplicated by URL and
title. With the cache enabled, repeated queries are answered from SQLite.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	cfg := settings.Search
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		cfg.Provider = provider
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	opts := []search.Option{search.WithLogger(logger)}
	if settings.Cache.Enabled && !noCache {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, search.WithCache(st.SearchCache()))
	}

	tool, err := search.NewTool(cfg, opts...)
	if err != nil {
		return err
	}
	sources, err := tool.SearchE(cmd.Context(), query, maxResults)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(sources, os.Stdout)
	}
	search.FormatTable(sources, os.Stdout)
	return nil
}

// openStore opens the configured database.
func openStore() (*store.Store, error) {
	path, err := config.DatabasePath(settings.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store.Open(path, store.Options{
		CacheTTL:     settings.Cache.TTLDuration(),
		CacheMaxSize: settings.Cache.MaxSize,
		Logger:       logger,
	})
}

var searchCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show or purge the search result cache",
	RunE:  runSearchCache,
}

func runSearchCache(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cache := st.SearchCache()
	if purge, _ := cmd.Flags().GetBool("purge"); purge {
		if err := cache.Purge(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Search cache purged.")
		return nil
	}
	n, err := cache.Len(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d cached queries in %s\n", n, st.Path())
	return nil
}

func init() {
	searchCmd.Flags().String("provider", "", "override search provider: duckduckgo, serper, tavily")
	searchCmd.Flags().Int("max-results", 0, "maximum results (0 = search.max_results)")
	searchCmd.Flags().Bool("no-cache", false, "bypass the search cache")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	searchCacheCmd.Flags().Bool("purge", false, "delete every cached entry")

	searchCmd.AddCommand(searchCacheCmd)
	rootCmd.AddCommand(searchCmd)
}
