// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/config"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective settings",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and report missing API keys",
	Long: `Check loads settings the same way every command does (defaults, config
file, .env, environment, .secrets/) and reports every problem at once. With
--show the effective settings are printed as YAML with API keys redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigCheck,
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if show, _ := cmd.Flags().GetBool("show"); show {
		if err := writeSettingsYAML(out, settings); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(out, "Config file:  %s\n", f)
	} else {
		fmt.Fprintln(out, "Config file:  none (defaults and environment)")
	}
	fmt.Fprintf(out, "LLM:          %s (%s)\n", settings.LLM.Provider, settings.LLM.Model)
	fmt.Fprintf(out, "Search:       %s\n", settings.Search.Provider)
	fmt.Fprintf(out, "Database:     %s\n", settings.DatabaseURL)

	problems := checkSettings(settings)
	if len(problems) == 0 {
		fmt.Fprintln(out, "\nConfiguration OK.")
		return nil
	}
	fmt.Fprintln(out, "\nProblems:")
	for _, p := range problems {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	return fmt.Errorf("%d configuration problem(s)", len(problems))
}

// checkSettings flattens validation errors and missing keys into lines.
func checkSettings(s types.Settings) []string {
	var problems []string
	if err := config.Validate(s); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				problems = append(problems, e.Error())
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	for _, key := range config.MissingAPIKeys(s) {
		problems = append(problems, "missing API key "+key)
	}
	return problems
}

// writeSettingsYAML prints s with every API key masked.
func writeSettingsYAML(w io.Writer, s types.Settings) error {
	mask := func(v *string) {
		if *v != "" {
			*v = redacted
		}
	}
	mask(&s.LLM.OpenAIAPIKey)
	mask(&s.LLM.GeminiAPIKey)
	mask(&s.Search.SerperAPIKey)
	mask(&s.Search.TavilyAPIKey)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	configCheckCmd.Flags().Bool("show", false, "print the effective settings as YAML")

	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
