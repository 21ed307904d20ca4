// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container drives a local container runtime (docker or podman) to
// host the Ollama model server.
package container

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// ErrNoContainer is returned by Status when no container has the name.
var ErrNoContainer = errors.New("no such container")

// Spec describes a detached container.
type Spec struct {
	Name  string
	Image string

	// Ports maps host ports to container ports.
	Ports map[int]int

	// Volumes maps named volumes or host paths to container paths.
	Volumes map[string]string

	Env map[string]string
}

// Runtime provides the container operations the CLI needs.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available(ctx context.Context) bool

	// ImageExists returns nil when image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Pull downloads image, streaming progress to out.
	Pull(ctx context.Context, image string, out io.Writer) error

	// RunDetached creates and starts a container and returns its ID.
	RunDetached(ctx context.Context, spec Spec) (string, error)

	// Start restarts an existing, stopped container.
	Start(ctx context.Context, name string) error

	// Stop stops a running container.
	Stop(ctx context.Context, name string) error

	// Status returns the container state ("running", "exited", ...) or
	// ErrNoContainer.
	Status(ctx context.Context, name string) (string, error)

	// Exec runs a command inside a running container, streaming its output
	// to out.
	Exec(ctx context.Context, name string, args []string, out io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Stream(ctx context.Context, name string, args []string, out io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

func (o *osExecutor) Stream(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman share the same CLI surface apart from the image check subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	_, err := r.exec.Output(ctx, r.bin, "info")
	return err == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, r.imageCheckCmd...), image)
	if _, err := r.exec.Output(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Pull(ctx context.Context, image string, out io.Writer) error {
	if err := r.exec.Stream(ctx, r.bin, []string{"pull", image}, out); err != nil {
		return fmt.Errorf("pulling %s with %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) RunDetached(ctx context.Context, spec Spec) (string, error) {
	if spec.Image == "" {
		return "", errors.New("container spec has no image")
	}
	out, err := r.exec.Output(ctx, r.bin, runArgs(spec)...)
	if err != nil {
		return "", fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *runtime) Start(ctx context.Context, name string) error {
	if _, err := r.exec.Output(ctx, r.bin, "start", name); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	return nil
}

func (r *runtime) Stop(ctx context.Context, name string) error {
	if _, err := r.exec.Output(ctx, r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping %s: %w", name, err)
	}
	return nil
}

func (r *runtime) Status(ctx context.Context, name string) (string, error) {
	out, err := r.exec.Output(ctx, r.bin, "inspect", "--format", "{{.State.Status}}", name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNoContainer)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *runtime) Exec(ctx context.Context, name string, args []string, out io.Writer) error {
	full := append([]string{"exec", name}, args...)
	if err := r.exec.Stream(ctx, r.bin, full, out); err != nil {
		return fmt.Errorf("exec in %s: %w", name, err)
	}
	return nil
}

// runArgs builds "run -d" arguments with sorted flags so the command line
// is stable.
func runArgs(spec Spec) []string {
	args := []string{"run", "-d"}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	for _, host := range sortedKeys(spec.Ports) {
		args = append(args, "-p", strconv.Itoa(host)+":"+strconv.Itoa(spec.Ports[host]))
	}
	for _, src := range sortedKeys(spec.Volumes) {
		args = append(args, "-v", src+":"+spec.Volumes[src])
	}
	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	return append(args, spec.Image)
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime(ctx context.Context) (Runtime, error) {
	return detectRuntime(ctx, defaultExec)
}

func detectRuntime(ctx context.Context, exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available(ctx) {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available(ctx) {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
