// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
	assert.Empty(t, MissingAPIKeys(Defaults()))
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "blog-generator.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
llm:
  provider: openai
  model: gpt-4o-mini
search:
  max_results: 8
agents:
  writer_min_words: 400
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEARCH_PROVIDER=tavily\nLLM_MODEL=from-dotenv\n"), 0o644))

	secretsDir := filepath.Join(dir, ".secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "tavily-api-key"), []byte("tvly-file\n"), 0o600))

	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	// gotenv sets variables for the process; make sure the test cleans up.
	t.Setenv("SEARCH_PROVIDER", "")
	os.Unsetenv("SEARCH_PROVIDER")

	s, err := Load(Options{ConfigFile: cfgPath, EnvFile: envPath, SecretsDir: secretsDir})
	require.NoError(t, err)

	assert.Equal(t, types.ProviderOpenAI, s.LLM.Provider, "config file")
	assert.Equal(t, "gpt-4o", s.LLM.Model, "environment beats .env and config file")
	assert.Equal(t, 8, s.Search.MaxResults, "config file")
	assert.Equal(t, 400, s.Agents.WriterMinWords, "config file")
	assert.Equal(t, types.SearchTavily, s.Search.Provider, ".env fills unset variables")
	assert.Equal(t, "sk-env", s.LLM.OpenAIAPIKey)
	assert.Equal(t, "tvly-file", s.Search.TavilyAPIKey, "secrets file")
	assert.Equal(t, "DEBUG", s.Log.Level, "normalized to upper case")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.API.CORSOrigins)
	assert.Equal(t, 0.7, s.LLM.Temperature, "default kept")

	require.NoError(t, ValidateConfiguration(withLogDir(t, s)))
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	s, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, Defaults().AppName, s.AppName)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Settings)
		want   string
	}{
		{"llm provider", func(s *types.Settings) { s.LLM.Provider = "anthropic" }, "llm provider must be one of"},
		{"search provider", func(s *types.Settings) { s.Search.Provider = "bing" }, "search provider must be one of"},
		{"environment", func(s *types.Settings) { s.Environment = "qa" }, "environment must be one of"},
		{"log level", func(s *types.Settings) { s.Log.Level = "TRACE" }, "log level must be one of"},
		{"temperature", func(s *types.Settings) { s.LLM.Temperature = 2.5 }, "temperature"},
		{"max tokens", func(s *types.Settings) { s.LLM.MaxTokens = 0 }, "max tokens"},
		{"search results", func(s *types.Settings) { s.Search.MaxResults = 21 }, "search max results"},
		{"port", func(s *types.Settings) { s.API.Port = 80 }, "api port"},
		{"min words", func(s *types.Settings) { s.Agents.WriterMinWords = 50 }, "writer min words"},
		{"agent timeout", func(s *types.Settings) { s.Agents.AgentTimeout = 10 }, "agent timeout"},
		{"trusted proxy", func(s *types.Settings) { s.API.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"} }, "trusted proxy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	s := Defaults()
	s.LLM.Provider = "x"
	s.Search.Provider = "y"
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm provider")
	assert.Contains(t, err.Error(), "search provider")
}

func TestMissingAPIKeys(t *testing.T) {
	s := Defaults()
	s.LLM.Provider = types.ProviderOpenAI
	s.Search.Provider = types.SearchSerper
	assert.Equal(t, []string{"OPENAI_API_KEY", "SERPER_API_KEY"}, MissingAPIKeys(s))

	err := ValidateConfiguration(withLogDir(t, s))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing required API keys: OPENAI_API_KEY, SERPER_API_KEY")
}

func TestValidateConfigurationCreatesLogDir(t *testing.T) {
	s := withLogDir(t, Defaults())
	require.NoError(t, ValidateConfiguration(s))
	_, err := os.Stat(filepath.Dir(s.Log.File))
	assert.NoError(t, err)
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sqlite:///./data/app.db", "./data/app.db", false},
		{"sqlite:///tmp/x.db", "tmp/x.db", false},
		{"data/app.db", "data/app.db", false},
		{"postgres://localhost/db", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := DatabasePath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func withLogDir(t *testing.T, s types.Settings) types.Settings {
	t.Helper()
	s.Log.File = filepath.Join(t.TempDir(), "logs", "app.log")
	return s
}
