// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation API over HTTP",
	Long: `Serve starts the JSON API:

  GET  /healthz
  POST /api/v1/generate
  GET  /api/v1/posts?q=&limit=
  GET  /api/v1/posts/{id}
  GET  /api/v1/runs/{id}

CORS and per-client rate limiting follow the api section of the settings.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		settings.API.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		settings.API.Port = port
	}

	p, err := newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer p.Close()

	srv := server.New(settings.API, p, p.Store(), version, logger)
	logger.Info("serving",
		zap.String("addr", srv.Addr()),
		zap.String("llm", settings.LLM.Provider),
		zap.String("model", p.Model()),
		zap.String("search", p.Search().Provider()))
	return srv.Run(cmd.Context())
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default: api.host)")
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")

	rootCmd.AddCommand(serveCmd)
}
