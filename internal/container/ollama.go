// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Ollama container defaults.
const (
	OllamaImage     = "ollama/ollama:latest"
	OllamaContainer = "blog-generator-ollama"
	OllamaPort      = 11434
	OllamaVolume    = "blog-generator-ollama"
)

// readyPollInterval separates readiness probes. Tests shorten it.
var readyPollInterval = 500 * time.Millisecond

// OllamaOptions selects the container to manage. Zero fields take the
// defaults above.
type OllamaOptions struct {
	Name     string
	Image    string
	HostPort int
	Volume   string

	// Model is pulled inside the container once the server answers.
	Model string
}

func (o OllamaOptions) withDefaults() OllamaOptions {
	if o.Name == "" {
		o.Name = OllamaContainer
	}
	if o.Image == "" {
		o.Image = OllamaImage
	}
	if o.HostPort == 0 {
		o.HostPort = OllamaPort
	}
	if o.Volume == "" {
		o.Volume = OllamaVolume
	}
	return o
}

// BaseURL is the host address of the containerized server.
func (o OllamaOptions) BaseURL() string {
	return "http://localhost:" + strconv.Itoa(o.withDefaults().HostPort)
}

// Spec returns the detached container specification.
func (o OllamaOptions) Spec() Spec {
	o = o.withDefaults()
	return Spec{
		Name:    o.Name,
		Image:   o.Image,
		Ports:   map[int]int{o.HostPort: OllamaPort},
		Volumes: map[string]string{o.Volume: "/root/.ollama"},
	}
}

// OllamaStatus describes the managed container and the server inside it.
type OllamaStatus struct {
	Runtime   string   `json:"runtime"`
	Container string   `json:"container"`
	State     string   `json:"state"`
	BaseURL   string   `json:"base_url"`
	Ready     bool     `json:"ready"`
	Models    []string `json:"models,omitempty"`
}

// EnsureOllama gets the Ollama container running: an existing stopped
// container is restarted, otherwise the image is pulled if missing and a
// new container started. When opts.Model is set the model is pulled once
// the server answers. Progress goes to out.
func EnsureOllama(ctx context.Context, rt Runtime, client *http.Client, opts OllamaOptions, out io.Writer) error {
	opts = opts.withDefaults()

	state, err := rt.Status(ctx, opts.Name)
	switch {
	case err == nil && state == "running":
		fmt.Fprintf(out, "%s already running\n", opts.Name)
	case err == nil:
		fmt.Fprintf(out, "starting %s (was %s)\n", opts.Name, state)
		if err := rt.Start(ctx, opts.Name); err != nil {
			return err
		}
	case errors.Is(err, ErrNoContainer):
		if rt.ImageExists(ctx, opts.Image) != nil {
			fmt.Fprintf(out, "pulling %s\n", opts.Image)
			if err := rt.Pull(ctx, opts.Image, out); err != nil {
				return err
			}
		}
		id, err := rt.RunDetached(ctx, opts.Spec())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "started %s (%s) on port %d\n", opts.Name, shortID(id), opts.HostPort)
	default:
		return err
	}

	if opts.Model == "" {
		return nil
	}
	if err := WaitReady(ctx, client, opts.BaseURL()); err != nil {
		return err
	}
	fmt.Fprintf(out, "pulling model %s\n", opts.Model)
	return rt.Exec(ctx, opts.Name, []string{"ollama", "pull", opts.Model}, out)
}

// OllamaState reports the container state and, when it is running, whether
// the server answers and which models it has.
func OllamaState(ctx context.Context, rt Runtime, client *http.Client, opts OllamaOptions) OllamaStatus {
	opts = opts.withDefaults()
	st := OllamaStatus{Runtime: rt.Name(), Container: opts.Name, BaseURL: opts.BaseURL()}

	state, err := rt.Status(ctx, opts.Name)
	if err != nil {
		st.State = "absent"
		return st
	}
	st.State = state
	if state != "running" {
		return st
	}
	if models, err := ListModels(ctx, client, st.BaseURL); err == nil {
		st.Ready = true
		st.Models = models
	}
	return st
}

// ListModels returns the model names an Ollama server has installed.
func ListModels(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying ollama: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing ollama tags: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// WaitReady polls the server until it answers or ctx ends.
func WaitReady(ctx context.Context, client *http.Client, baseURL string) error {
	for {
		if _, err := ListModels(ctx, client, baseURL); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for ollama at %s: %w", baseURL, ctx.Err())
		case <-time.After(readyPollInterval):
		}
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
