// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/container"
)

const ollamaReadyTimeout = 2 * time.Minute

var ollamaCmd = &cobra.Command{
	Use:   "ollama",
	Short: "Run a local Ollama server in a container",
	Long: `Ollama manages a containerized Ollama server with docker (or podman when
docker is unavailable), so the ollama LLM provider works without a host
install. Models are kept in a named volume across restarts.`,
}

var ollamaUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the Ollama container and optionally pull a model",
	Args:  cobra.NoArgs,
	RunE:  runOllamaUp,
}

func runOllamaUp(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime(cmd.Context())
	if err != nil {
		return err
	}
	opts := ollamaOptionsFromFlags(cmd)
	if pull, _ := cmd.Flags().GetBool("pull"); pull && opts.Model == "" {
		opts.Model = settings.LLM.Model
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ollamaReadyTimeout+10*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	if err := container.EnsureOllama(ctx, rt, client, opts, os.Stdout); err != nil {
		return err
	}
	if opts.Model == "" {
		waitCtx, cancelWait := context.WithTimeout(ctx, ollamaReadyTimeout)
		defer cancelWait()
		if err := container.WaitReady(waitCtx, client, opts.BaseURL()); err != nil {
			return err
		}
	}
	fmt.Printf("Ollama ready at %s (set OLLAMA_BASE_URL to use it)\n", opts.BaseURL())
	return nil
}

var ollamaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the Ollama container state and installed models",
	Args:  cobra.NoArgs,
	RunE:  runOllamaStatus,
}

func runOllamaStatus(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime(cmd.Context())
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	st := container.OllamaState(cmd.Context(), rt, client, ollamaOptionsFromFlags(cmd))

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("Runtime:    %s\n", st.Runtime)
	fmt.Printf("Container:  %s (%s)\n", st.Container, st.State)
	fmt.Printf("URL:        %s\n", st.BaseURL)
	fmt.Printf("Ready:      %t\n", st.Ready)
	if len(st.Models) > 0 {
		fmt.Printf("Models:     %s\n", strings.Join(st.Models, ", "))
	}
	return nil
}

var ollamaDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the Ollama container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := container.DetectRuntime(cmd.Context())
		if err != nil {
			return err
		}
		opts := ollamaOptionsFromFlags(cmd)
		if err := rt.Stop(cmd.Context(), opts.Spec().Name); err != nil {
			return err
		}
		fmt.Printf("Stopped %s\n", opts.Spec().Name)
		return nil
	},
}

func ollamaOptionsFromFlags(cmd *cobra.Command) container.OllamaOptions {
	name, _ := cmd.Flags().GetString("name")
	port, _ := cmd.Flags().GetInt("port")
	image, _ := cmd.Flags().GetString("image")
	model, _ := cmd.Flags().GetString("model")
	return container.OllamaOptions{
		Name:     name,
		Image:    image,
		HostPort: port,
		Model:    model,
	}
}

func init() {
	ollamaCmd.PersistentFlags().String("name", container.OllamaContainer, "container name")
	ollamaCmd.PersistentFlags().Int("port", container.OllamaPort, "host port mapped to the Ollama API")

	ollamaUpCmd.Flags().String("image", container.OllamaImage, "container image")
	ollamaUpCmd.Flags().String("model", "", "model to pull once the server is up")
	ollamaUpCmd.Flags().Bool("pull", false, "pull the configured llm.model")

	ollamaStatusCmd.Flags().Bool("json", false, "output status as JSON")

	ollamaCmd.AddCommand(ollamaUpCmd)
	ollamaCmd.AddCommand(ollamaStatusCmd)
	ollamaCmd.AddCommand(ollamaDownCmd)

	rootCmd.AddCommand(ollamaCmd)
}
