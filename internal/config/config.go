// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads and validates application settings.
//
// Sources are layered, later ones winning: built-in defaults, a YAML config
// file read through viper, a .env file (which never overrides variables
// already present in the process environment), the process environment,
// and finally API key files in the secrets directory for keys still unset.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/secrets"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

var (
	llmProviders    = []string{types.ProviderOllama, types.ProviderOpenAI, types.ProviderGemini}
	searchProviders = []string{types.SearchDuckDuckGo, types.SearchSerper, types.SearchTavily}
	environments    = []string{"development", "staging", "production"}
	logLevels       = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	logFormats      = []string{"json", "console"}
)

// Defaults returns the built-in settings.
func Defaults() types.Settings {
	return types.Settings{
		AppName:     "Multi-Agent Blog Generator",
		AppVersion:  "1.0.0",
		Environment: "development",
		LLM: types.LLMConfig{
			Provider:      types.ProviderOllama,
			Model:         "llama3",
			Temperature:   0.7,
			MaxTokens:     2000,
			MaxRetries:    3,
			OpenAIBaseURL: "https://api.openai.com/v1",
			OllamaBaseURL: "http://localhost:11434",
		},
		Search: types.SearchConfig{
			Provider:   types.SearchDuckDuckGo,
			MaxResults: 5,
			Timeout:    10,
			UserAgent:  "blog-generator/1.0",
		},
		Log: types.LogConfig{
			Level:  "INFO",
			File:   "logs/app.log",
			Format: "json",
		},
		API: types.APIConfig{
			Host:                 "0.0.0.0",
			Port:                 8000,
			Workers:              1,
			CORSOrigins:          []string{"http://localhost:3000"},
			CORSAllowCredentials: true,
			RateLimitEnabled:     true,
			RateLimitRequests:    100,
			RateLimitPeriod:      3600,
		},
		Agents: types.AgentConfig{
			ResearcherRetries:   3,
			ResearcherQueries:   3,
			SummarizeResearch:   true,
			WriterMinWords:      300,
			EditorEnabled:       true,
			MaxIterations:       2,
			MaxConcurrentAgents: 5,
			AgentTimeout:        300,
		},
		Cache: types.CacheConfig{
			Enabled: true,
			TTL:     3600,
			MaxSize: 1000,
		},
		DatabaseURL: "sqlite:///./data/app.db",
		OutputDir:   "output/posts",
	}
}

// Options selects the files Load reads. Empty fields are skipped.
type Options struct {
	// ConfigFile is an explicit YAML config path. When empty, Viper's
	// search paths (if any were registered) are used.
	ConfigFile string

	// EnvFile is a dotenv file, typically ".env". A missing file is ignored.
	EnvFile string

	// SecretsDir holds API key files, typically ".secrets/".
	SecretsDir string

	// Viper is the instance to read the config file with. Nil uses a new one.
	Viper *viper.Viper

	// Warn receives non-fatal messages. Nil discards them.
	Warn io.Writer
}

// Load builds Settings from defaults, config file, .env, environment and
// secrets, then normalizes it. It does not validate; call Validate.
func Load(opts Options) (types.Settings, error) {
	s := Defaults()
	warn := opts.Warn
	if warn == nil {
		warn = io.Discard
	}

	v := opts.Viper
	if v == nil {
		v = viper.New()
	}
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return s, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		fmt.Fprintln(warn, "Using config file:", v.ConfigFileUsed())
		if err := v.Unmarshal(&s); err != nil {
			return s, fmt.Errorf("decoding config file: %w", err)
		}
	}

	if opts.EnvFile != "" {
		if _, err := os.Stat(opts.EnvFile); err == nil {
			if err := gotenv.Load(opts.EnvFile); err != nil {
				return s, fmt.Errorf("loading %s: %w", opts.EnvFile, err)
			}
		}
	}

	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}

	if opts.SecretsDir != "" {
		loaded, err := secrets.Load(opts.SecretsDir, warn)
		if err != nil {
			return s, err
		}
		secrets.Apply(&s, loaded)
	}

	s.Log.Level = strings.ToUpper(s.Log.Level)
	s.LLM.Provider = strings.ToLower(s.LLM.Provider)
	s.Search.Provider = strings.ToLower(s.Search.Provider)
	return s, nil
}

// Validate checks enumerations and ranges. All problems are reported
// together.
func Validate(s types.Settings) error {
	var errs []error
	oneOf := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s must be one of %v, got %q", field, allowed, value))
		}
	}
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	oneOf("llm provider", s.LLM.Provider, llmProviders)
	oneOf("search provider", s.Search.Provider, searchProviders)
	oneOf("environment", s.Environment, environments)
	oneOf("log level", strings.ToUpper(s.Log.Level), logLevels)
	oneOf("log format", s.Log.Format, logFormats)

	check(s.LLM.Temperature >= 0 && s.LLM.Temperature <= 2, "llm temperature must be within [0, 2], got %g", s.LLM.Temperature)
	check(s.LLM.MaxTokens > 0, "llm max tokens must be positive, got %d", s.LLM.MaxTokens)
	check(s.Search.MaxResults >= 1 && s.Search.MaxResults <= 20, "search max results must be within [1, 20], got %d", s.Search.MaxResults)
	check(s.Search.Timeout >= 1, "search timeout must be at least 1 second, got %d", s.Search.Timeout)
	check(s.API.Port >= 1024 && s.API.Port <= 65535, "api port must be within [1024, 65535], got %d", s.API.Port)
	check(s.API.Workers >= 1, "api workers must be at least 1, got %d", s.API.Workers)
	check(s.Agents.ResearcherRetries >= 1, "researcher retries must be at least 1, got %d", s.Agents.ResearcherRetries)
	check(s.Agents.WriterMinWords >= 100, "writer min words must be at least 100, got %d", s.Agents.WriterMinWords)
	check(s.Agents.MaxConcurrentAgents >= 1, "max concurrent agents must be at least 1, got %d", s.Agents.MaxConcurrentAgents)
	check(s.Agents.AgentTimeout >= 30, "agent timeout must be at least 30 seconds, got %d", s.Agents.AgentTimeout)
	check(s.Agents.MaxIterations >= 1, "max iterations must be at least 1, got %d", s.Agents.MaxIterations)
	for _, p := range s.API.TrustedProxies {
		_, perr := netip.ParsePrefix(p)
		_, aerr := netip.ParseAddr(p)
		check(perr == nil || aerr == nil, "trusted proxy must be an IP address or CIDR range, got %q", p)
	}

	return errors.Join(errs...)
}

// MissingAPIKeys lists the environment variable names of API keys the
// selected providers need but that are unset.
func MissingAPIKeys(s types.Settings) []string {
	var missing []string
	if s.LLM.Provider == types.ProviderOpenAI && s.LLM.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if s.LLM.Provider == types.ProviderGemini && s.LLM.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if s.Search.Provider == types.SearchSerper && s.Search.SerperAPIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if s.Search.Provider == types.SearchTavily && s.Search.TavilyAPIKey == "" {
		missing = append(missing, "TAVILY_API_KEY")
	}
	return missing
}

// ValidateConfiguration runs Validate, checks API keys and creates the log
// directory.
func ValidateConfiguration(s types.Settings) error {
	if err := Validate(s); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if missing := MissingAPIKeys(s); len(missing) > 0 {
		return fmt.Errorf("Missing required API keys: %s", strings.Join(missing, ", "))
	}
	if dir := filepath.Dir(s.Log.File); s.Log.File != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}
	return nil
}

// DatabasePath converts a sqlite:/// URL into a filesystem path. Plain paths
// are returned unchanged.
func DatabasePath(url string) (string, error) {
	switch {
	case url == "":
		return "", errors.New("database url is empty")
	case strings.HasPrefix(url, "sqlite:///"):
		return strings.TrimPrefix(url, "sqlite:///"), nil
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://"), nil
	case strings.Contains(url, "://"):
		return "", fmt.Errorf("unsupported database url %q: only sqlite is supported", url)
	default:
		return url, nil
	}
}
