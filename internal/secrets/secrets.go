// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys from a directory of plain-text
// files. Each file is one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Recognised key files: openai-api-key, gemini-api-key, serper-api-key,
// tavily-api-key.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Key file names.
const (
	OpenAIKey = "openai-api-key"
	GeminiKey = "gemini-api-key"
	SerperKey = "serper-api-key"
	TavilyKey = "tavily-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error. Unreadable files produce a
// warning on w and are skipped.
func Load(dir string, w io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(w, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Apply copies secrets into the API key fields of s that are still empty.
// Keys set through the environment or the config file win.
func Apply(s *types.Settings, secrets map[string]string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}
	fill(&s.LLM.OpenAIAPIKey, OpenAIKey)
	fill(&s.LLM.GeminiAPIKey, GeminiKey)
	fill(&s.Search.SerperAPIKey, SerperKey)
	fill(&s.Search.TavilyAPIKey, TavilyKey)
}
