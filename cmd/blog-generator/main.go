// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the blog-generator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/config"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/logging"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/pipeline"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/telemetry"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Loaded by the root command before any subcommand runs.
var (
	settings          types.Settings
	logger            = zap.NewNop()
	shutdownTelemetry = func(context.Context) error { return nil }
)

// rootCmd is the base command for the blog-generator CLI.
var rootCmd = &cobra.Command{
	Use:   "blog-generator",
	Short: "Research, write and edit blog posts with cooperating LLM agents",
	Long: `blog-generator turns a topic into a finished blog post. A researcher agent
searches the web, a writer agent drafts the post from the findings, and an
optional editor agent scores the draft and asks for revisions until it is
good enough or the iteration budget is spent.

Settings come from blog-generator.yaml, .env, the environment and .secrets/.
Posts and runs are stored in SQLite; posts can also be written as Markdown.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Sync()
		return shutdownTelemetry(context.Background())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./blog-generator.yaml or ~/.config/blog-generator/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "override log level: DEBUG, INFO, WARNING, ERROR")
	rootCmd.PersistentFlags().String("log-format", "", "override log format: json or console")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}
	viper.SetConfigName("blog-generator")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "blog-generator"))
	}
}

// setup loads settings, builds the logger and starts tracing.
func setup(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	secretsDir, _ := cmd.Flags().GetString("secrets-dir")

	s, err := config.Load(config.Options{
		EnvFile:    envFile,
		SecretsDir: secretsDir,
		Viper:      viper.GetViper(),
		Warn:       os.Stderr,
	})
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		s.Log.Level = strings.ToUpper(lvl)
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		s.Log.Format = f
	}
	settings = s

	// A bad log setting is reported by requireValid; until then log nowhere
	// so "config check" can still describe it.
	if l, err := logging.New(s.Log); err == nil {
		logger = l.With(zap.String("environment", s.Environment))
	}

	shutdown, err := telemetry.Setup(cmd.Context(), s.AppName, version, s.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		shutdownTelemetry = shutdown
	}
	return nil
}

// requireValid fails with every configuration problem at once.
func requireValid() error {
	return config.ValidateConfiguration(settings)
}

// newPipeline validates settings and builds the generation pipeline.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	if err := requireValid(); err != nil {
		return nil, err
	}
	return pipeline.New(ctx, settings, pipeline.WithLogger(logger))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
