// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Search providers.
const (
	SearchDuckDuckGo = "duckduckgo"
	SearchSerper     = "serper"
	SearchTavily     = "tavily"
)

// LLMConfig holds settings for the language model used by the agents.
type LLMConfig struct {
	// Provider selects the backend: ollama, openai, or gemini.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider" env:"LLM_PROVIDER"`

	// Model is the model identifier passed to the provider (e.g. "llama3").
	Model string `json:"model" yaml:"model" mapstructure:"model" env:"LLM_MODEL"`

	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature" env:"LLM_TEMPERATURE"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" env:"LLM_MAX_TOKENS"`

	// MaxRetries is the number of retry attempts for failed generations (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" env:"LLM_MAX_RETRIES"`

	OpenAIAPIKey  string `json:"-" yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `json:"openai_base_url" yaml:"openai_base_url" mapstructure:"openai_base_url" env:"OPENAI_BASE_URL"`
	GeminiAPIKey  string `json:"-" yaml:"gemini_api_key,omitempty" mapstructure:"gemini_api_key" env:"GEMINI_API_KEY"`
	OllamaBaseURL string `json:"ollama_base_url" yaml:"ollama_base_url" mapstructure:"ollama_base_url" env:"OLLAMA_BASE_URL"`
}

// SearchConfig holds settings for the web search tool.
type SearchConfig struct {
	Provider   string `json:"provider" yaml:"provider" mapstructure:"provider" env:"SEARCH_PROVIDER"`
	MaxResults int    `json:"max_results" yaml:"max_results" mapstructure:"max_results" env:"SEARCH_MAX_RESULTS"`

	// Timeout is the request timeout in seconds.
	Timeout int `json:"timeout" yaml:"timeout" mapstructure:"timeout" env:"SEARCH_TIMEOUT"`

	// UserAgent is the User-Agent header sent with search requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" env:"SEARCH_USER_AGENT"`

	SerperAPIKey string `json:"-" yaml:"serper_api_key,omitempty" mapstructure:"serper_api_key" env:"SERPER_API_KEY"`
	TavilyAPIKey string `json:"-" yaml:"tavily_api_key,omitempty" mapstructure:"tavily_api_key" env:"TAVILY_API_KEY"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c SearchConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" env:"LOG_LEVEL"`
	File   string `json:"file" yaml:"file" mapstructure:"file" env:"LOG_FILE"`
	Format string `json:"format" yaml:"format" mapstructure:"format" env:"LOG_FORMAT"`
}

// APIConfig holds settings for the HTTP server.
type APIConfig struct {
	Host    string `json:"host" yaml:"host" mapstructure:"host" env:"API_HOST"`
	Port    int    `json:"port" yaml:"port" mapstructure:"port" env:"API_PORT"`
	Workers int    `json:"workers" yaml:"workers" mapstructure:"workers" env:"API_WORKERS"`

	CORSOrigins          []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins" env:"CORS_ORIGINS"`
	CORSAllowCredentials bool     `json:"cors_allow_credentials" yaml:"cors_allow_credentials" mapstructure:"cors_allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`

	// TrustedProxies lists proxy addresses or CIDR ranges whose
	// X-Forwarded-For header identifies the client. Other peers are keyed
	// by their socket address.
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies" mapstructure:"trusted_proxies" env:"TRUSTED_PROXIES"`

	RateLimitEnabled  bool `json:"rate_limit_enabled" yaml:"rate_limit_enabled" mapstructure:"rate_limit_enabled" env:"RATE_LIMIT_ENABLED"`
	RateLimitRequests int  `json:"rate_limit_requests" yaml:"rate_limit_requests" mapstructure:"rate_limit_requests" env:"RATE_LIMIT_REQUESTS"`

	// RateLimitPeriod is the window, in seconds, in which RateLimitRequests are allowed.
	RateLimitPeriod int `json:"rate_limit_period" yaml:"rate_limit_period" mapstructure:"rate_limit_period" env:"RATE_LIMIT_PERIOD"`
}

// AgentConfig holds per-agent knobs.
type AgentConfig struct {
	ResearcherRetries   int  `json:"researcher_retries" yaml:"researcher_retries" mapstructure:"researcher_retries" env:"RESEARCHER_RETRIES"`
	ResearcherQueries   int  `json:"researcher_queries" yaml:"researcher_queries" mapstructure:"researcher_queries" env:"RESEARCHER_QUERIES"`
	SummarizeResearch   bool `json:"summarize_research" yaml:"summarize_research" mapstructure:"summarize_research" env:"SUMMARIZE_RESEARCH"`
	WriterMinWords      int  `json:"writer_min_words" yaml:"writer_min_words" mapstructure:"writer_min_words" env:"WRITER_MIN_WORDS"`
	EditorEnabled       bool `json:"editor_enabled" yaml:"editor_enabled" mapstructure:"editor_enabled" env:"EDITOR_ENABLED"`
	MaxIterations       int  `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations" env:"MAX_ITERATIONS"`
	MaxConcurrentAgents int  `json:"max_concurrent_agents" yaml:"max_concurrent_agents" mapstructure:"max_concurrent_agents" env:"MAX_CONCURRENT_AGENTS"`

	// AgentTimeout is the per-agent execution limit in seconds.
	AgentTimeout int `json:"agent_timeout" yaml:"agent_timeout" mapstructure:"agent_timeout" env:"AGENT_TIMEOUT"`

	// WorkflowTimeout bounds a whole run in seconds. Zero disables it.
	WorkflowTimeout   int  `json:"workflow_timeout" yaml:"workflow_timeout" mapstructure:"workflow_timeout" env:"WORKFLOW_TIMEOUT"`
	ParallelExecution bool `json:"parallel_execution" yaml:"parallel_execution" mapstructure:"parallel_execution" env:"PARALLEL_EXECUTION"`
}

// CacheConfig holds settings for the search result cache.
type CacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled" env:"CACHE_ENABLED"`

	// TTL is the entry lifetime in seconds.
	TTL     int `json:"ttl" yaml:"ttl" mapstructure:"ttl" env:"CACHE_TTL"`
	MaxSize int `json:"max_size" yaml:"max_size" mapstructure:"max_size" env:"CACHE_MAX_SIZE"`
}

// TTLDuration returns TTL as a time.Duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Settings is the complete application configuration.
type Settings struct {
	AppName     string `json:"app_name" yaml:"app_name" mapstructure:"app_name" env:"APP_NAME"`
	AppVersion  string `json:"app_version" yaml:"app_version" mapstructure:"app_version" env:"APP_VERSION"`
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment" env:"ENVIRONMENT"`

	LLM    LLMConfig    `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
	API    APIConfig    `json:"api" yaml:"api" mapstructure:"api"`
	Agents AgentConfig  `json:"agents" yaml:"agents" mapstructure:"agents"`
	Cache  CacheConfig  `json:"cache" yaml:"cache" mapstructure:"cache"`

	// DatabaseURL locates the SQLite database (e.g. "sqlite:///./data/app.db").
	DatabaseURL string `json:"database_url" yaml:"database_url" mapstructure:"database_url" env:"DATABASE_URL"`

	// OutputDir receives rendered Markdown posts.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" env:"OUTPUT_DIR"`

	// OTelEndpoint enables OTLP trace export when set.
	OTelEndpoint string `json:"otel_endpoint" yaml:"otel_endpoint" mapstructure:"otel_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Workflow derives the per-run workflow configuration from s.
func (s Settings) Workflow() WorkflowConfig {
	return WorkflowConfig{
		MaxResearchResults: s.Search.MaxResults * max(1, s.Agents.ResearcherQueries),
		EnableEditor:       s.Agents.EditorEnabled,
		MaxIterations:      s.Agents.MaxIterations,
		TimeoutSeconds:     s.Agents.WorkflowTimeout,
		ParallelExecution:  s.Agents.ParallelExecution,
	}
}
