// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadInputs(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		publish bool
		want    []Input
	}{
		{
			name: "bare list of strings",
			yaml: "- Go generics\n- Rust ownership\n",
			want: []Input{{Topic: "Go generics"}, {Topic: "Rust ownership"}},
		},
		{
			name: "mixed entries",
			yaml: `
- Go generics
- topic: Rust ownership
  tone: technical
  word_count: 800
`,
			want: []Input{
				{Topic: "Go generics"},
				{Topic: "Rust ownership", Tone: "technical", WordCount: 800},
			},
		},
		{
			name: "defaults fill empty fields",
			yaml: `
defaults:
  tone: casual
  target_audience: students
  publish: true
topics:
  - Go generics
  - topic: Rust ownership
    tone: technical
`,
			want: []Input{
				{Topic: "Go generics", Tone: "casual", Audience: "students", Publish: true},
				{Topic: "Rust ownership", Tone: "technical", Audience: "students", Publish: true},
			},
		},
		{
			name: "entry publish overrides fallback",
			yaml: `
- Go generics
- topic: Draft only
  publish: false
`,
			publish: true,
			want: []Input{
				{Topic: "Go generics", Publish: true},
				{Topic: "Draft only"},
			},
		},
		{
			name: "entry publish overrides defaults",
			yaml: `
defaults:
  publish: false
topics:
  - Go generics
  - topic: Rust ownership
    publish: true
`,
			publish: true,
			want: []Input{
				{Topic: "Go generics"},
				{Topic: "Rust ownership", Publish: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadInputs(strings.NewReader(tt.yaml), tt.publish)
			if err != nil {
				t.Fatalf("LoadInputs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("inputs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadInputsErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"scalar document", "just a topic", "must be a list"},
		{"no topics", "defaults:\n  tone: casual\n", "no topics"},
		{"bad yaml", "- [unclosed", "parsing topics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadInputs(strings.NewReader(tt.yaml), false)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadInputsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("- Go generics\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadInputsFile(path, false)
	if err != nil {
		t.Fatalf("LoadInputsFile: %v", err)
	}
	if len(got) != 1 || got[0].Topic != "Go generics" {
		t.Errorf("got %+v", got)
	}

	if _, err := LoadInputsFile(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Error("expected error for missing file")
	}
}
