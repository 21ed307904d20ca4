// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	outputs       map[string]string // "bin arg1 arg2" -> stdout; absent keys fail
	streamFunc    func(name string, args []string, out io.Writer) error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	m.calls = append(m.calls, key)
	out, ok := m.outputs[key]
	if !ok {
		return nil, errors.New("command failed: " + key)
	}
	return []byte(out), nil
}

func (m *mockExecutor) Stream(_ context.Context, name string, args []string, out io.Writer) error {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if m.streamFunc != nil {
		return m.streamFunc(name, args, out)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				outputs:       map[string]string{"docker info": ""},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				outputs:       map[string]string{"podman info": ""},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				outputs:       map[string]string{"podman info": ""},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				outputs:       map[string]string{"docker info": "", "podman info": ""},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		outputs map[string]string
		wantErr bool
	}{
		{
			name:    "docker image exists",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			outputs: map[string]string{"docker image inspect ollama/ollama:latest": "[]"},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantErr: true,
		},
		{
			name:    "podman image exists",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			outputs: map[string]string{"podman image exists ollama/ollama:latest": ""},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mkRT(&mockExecutor{outputs: tt.outputs})
			err := rt.ImageExists(context.Background(), OllamaImage)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), OllamaImage) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	spec := Spec{
		Name:    "ollama",
		Image:   "ollama/ollama:latest",
		Ports:   map[int]int{11434: 11434, 8080: 80},
		Volumes: map[string]string{"models": "/root/.ollama"},
		Env:     map[string]string{"OLLAMA_KEEP_ALIVE": "5m"},
	}
	got := strings.Join(runArgs(spec), " ")
	want := "run -d --name ollama -p 8080:80 -p 11434:11434 -v models:/root/.ollama -e OLLAMA_KEEP_ALIVE=5m ollama/ollama:latest"
	if got != want {
		t.Errorf("runArgs =\n  %s\nwant\n  %s", got, want)
	}
}

func TestRunDetached(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{
		"docker run -d --name n -p 1:2 img": "abc123\n",
	}}
	rt := newDockerRuntime(exec)

	id, err := rt.RunDetached(context.Background(), Spec{Name: "n", Image: "img", Ports: map[int]int{1: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "abc123" {
		t.Errorf("id = %q, want abc123", id)
	}

	if _, err := rt.RunDetached(context.Background(), Spec{Name: "n"}); err == nil {
		t.Error("expected error for spec without image")
	}
}

func TestStatus(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{
		"podman inspect --format {{.State.Status}} up": "running\n",
	}}
	rt := newPodmanRuntime(exec)

	state, err := rt.Status(context.Background(), "up")
	if err != nil || state != "running" {
		t.Errorf("Status(up) = %q, %v; want running", state, err)
	}
	if _, err := rt.Status(context.Background(), "gone"); !errors.Is(err, ErrNoContainer) {
		t.Errorf("Status(gone) error = %v, want ErrNoContainer", err)
	}
}

func TestPullAndExecStream(t *testing.T) {
	exec := &mockExecutor{streamFunc: func(name string, args []string, out io.Writer) error {
		if args[0] == "pull" && args[1] == "bad" {
			return errors.New("manifest unknown")
		}
		fmt.Fprintf(out, "%s %s", name, strings.Join(args, " "))
		return nil
	}}
	rt := newDockerRuntime(exec)
	ctx := context.Background()

	var out bytes.Buffer
	if err := rt.Pull(ctx, "ollama/ollama:latest", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "docker pull ollama/ollama:latest" {
		t.Errorf("pull output = %q", out.String())
	}
	if err := rt.Pull(ctx, "bad", io.Discard); err == nil || !strings.Contains(err.Error(), "pulling bad") {
		t.Errorf("expected wrapped pull error, got %v", err)
	}

	out.Reset()
	if err := rt.Exec(ctx, "c", []string{"ollama", "list"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "docker exec c ollama list" {
		t.Errorf("exec output = %q", out.String())
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	docker := newDockerRuntime(exec)
	if docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	podman := newPodmanRuntime(exec)
	if podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
}

// --- Ollama ---

func ollamaServer(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		var parts []string
		for _, m := range models {
			parts = append(parts, fmt.Sprintf(`{"name":%q}`, m))
		}
		fmt.Fprintf(w, `{"models":[%s]}`, strings.Join(parts, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func statusKey(name string) string {
	return "docker inspect --format {{.State.Status}} " + name
}

func TestEnsureOllamaCreatesContainer(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{
		"docker run -d --name blog-generator-ollama -p 11434:11434 -v blog-generator-ollama:/root/.ollama ollama/ollama:latest": "0123456789abcdef\n",
	}}
	var out bytes.Buffer
	err := EnsureOllama(context.Background(), newDockerRuntime(exec), http.DefaultClient, OllamaOptions{}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Contains(exec.calls, "docker pull ollama/ollama:latest") {
		t.Errorf("missing image was not pulled; calls: %v", exec.calls)
	}
	if !strings.Contains(out.String(), "started blog-generator-ollama (0123456789ab) on port 11434") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEnsureOllamaRestartsStopped(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{
		statusKey("blog-generator-ollama"): "exited",
		"docker start blog-generator-ollama": "blog-generator-ollama",
	}}
	var out bytes.Buffer
	if err := EnsureOllama(context.Background(), newDockerRuntime(exec), http.DefaultClient, OllamaOptions{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "was exited") {
		t.Errorf("output = %q", out.String())
	}
	for _, c := range exec.calls {
		if strings.HasPrefix(c, "docker run") {
			t.Errorf("unexpected new container: %s", c)
		}
	}
}

func TestEnsureOllamaPullsModel(t *testing.T) {
	srv := ollamaServer(t)
	hostPort := serverPort(t, srv)

	exec := &mockExecutor{outputs: map[string]string{statusKey("m"): "running"}}
	var out bytes.Buffer
	opts := OllamaOptions{Name: "m", HostPort: hostPort, Model: "llama3"}
	if err := EnsureOllama(context.Background(), newDockerRuntime(exec), srv.Client(), opts, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Contains(exec.calls, "docker exec m ollama pull llama3") {
		t.Errorf("model not pulled; calls: %v", exec.calls)
	}
}

func TestOllamaState(t *testing.T) {
	srv := ollamaServer(t, "llama3:latest", "mistral:7b")
	hostPort := serverPort(t, srv)
	ctx := context.Background()

	exec := &mockExecutor{outputs: map[string]string{statusKey("m"): "running"}}
	st := OllamaState(ctx, newDockerRuntime(exec), srv.Client(), OllamaOptions{Name: "m", HostPort: hostPort})
	if !st.Ready || st.State != "running" {
		t.Errorf("state = %+v, want running and ready", st)
	}
	if !slices.Equal(st.Models, []string{"llama3:latest", "mistral:7b"}) {
		t.Errorf("models = %v", st.Models)
	}

	st = OllamaState(ctx, newDockerRuntime(&mockExecutor{}), srv.Client(), OllamaOptions{Name: "m"})
	if st.State != "absent" || st.Ready {
		t.Errorf("state = %+v, want absent", st)
	}
}

func TestWaitReady(t *testing.T) {
	old := readyPollInterval
	readyPollInterval = 5 * time.Millisecond
	defer func() { readyPollInterval = old }()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	if err := WaitReady(context.Background(), srv.Client(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("probes = %d, want 3", hits.Load())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := WaitReady(ctx, srv.Client(), "http://127.0.0.1:1"); err == nil {
		t.Error("expected error when server never answers")
	}
}
