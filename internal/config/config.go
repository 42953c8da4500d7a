// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	Cache      CacheConfig     `yaml:"cache"`
	Quota      QuotaConfig     `yaml:"quota"`
	Search     SearchConfig    `yaml:"search"`
	LLM        LLMConfig       `yaml:"llm"`
	FactCheck  FactCheckConfig `yaml:"factcheck"`
	Janitor    JanitorConfig   `yaml:"janitor"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Logging    LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mongo, mysql, memory
	Path   string `yaml:"path"`   // for sqlite
	URL    string `yaml:"url"`    // for mongo and mysql
	Name   string `yaml:"name"`   // mongo database name
}

type CacheConfig struct {
	Driver   string        `yaml:"driver"` // store, redis
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type QuotaConfig struct {
	DailyLimit   int `yaml:"daily_limit"`
	SafetyBuffer int `yaml:"safety_buffer"`
}

// EffectiveLimit is the count at which the primary provider stops being called.
func (q QuotaConfig) EffectiveLimit() int {
	return q.DailyLimit - q.SafetyBuffer
}

type SearchConfig struct {
	Google          GoogleConfig  `yaml:"google"`
	Tavily          APIKeyConfig  `yaml:"tavily"`
	GNews           APIKeyConfig  `yaml:"gnews"`
	NewsAPI         APIKeyConfig  `yaml:"newsapi"`
	MinResults      int           `yaml:"min_results"`
	TargetResults   int           `yaml:"target_results"`
	ExploreResults  int           `yaml:"explore_results"`
	PrimaryTimeout  time.Duration `yaml:"primary_timeout"`
	FallbackTimeout time.Duration `yaml:"fallback_timeout"`
	RequestsPerSec  float64       `yaml:"requests_per_second"`
	DefaultLang     string        `yaml:"default_lang"`
	DefaultRegion   string        `yaml:"default_region"`
}

type GoogleConfig struct {
	APIKey         string `yaml:"api_key"`
	SearchEngineID string `yaml:"search_engine_id"`
}

type APIKeyConfig struct {
	APIKey string `yaml:"api_key"`
}

type LLMConfig struct {
	Primary         ProviderConfig `yaml:"primary"`
	Fallback        ProviderConfig `yaml:"fallback"`
	MaxAttempts     int            `yaml:"max_attempts"`
	Backoff         time.Duration  `yaml:"backoff"`
	PrimaryTimeout  time.Duration  `yaml:"primary_timeout"`
	FallbackTimeout time.Duration  `yaml:"fallback_timeout"`
}

type ProviderConfig struct {
	Provider string `yaml:"provider"` // openai, groq, anthropic, ollama, gemini
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// Enabled reports whether a provider has been selected.
func (p ProviderConfig) Enabled() bool {
	return p.Provider != "" && p.Provider != "none"
}

type FactCheckConfig struct {
	MaxSources       int `yaml:"max_sources"`
	EvidenceChars    int `yaml:"evidence_chars"`
	SummaryMaxTokens int `yaml:"summary_max_tokens"`
	VerdictMaxTokens int `yaml:"verdict_max_tokens"`
}

type JanitorConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	QuotaKeepDays int    `yaml:"quota_keep_days"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/satyashield.db",
			Name:   "satyashield",
		},
		Cache: CacheConfig{
			Driver: "store",
			TTL:    3 * time.Hour,
		},
		Quota: QuotaConfig{
			DailyLimit:   100,
			SafetyBuffer: 10,
		},
		Search: SearchConfig{
			MinResults:      2,
			TargetResults:   8,
			ExploreResults:  20,
			PrimaryTimeout:  10 * time.Second,
			FallbackTimeout: 4 * time.Second,
			RequestsPerSec:  5,
			DefaultLang:     "en",
			DefaultRegion:   "in",
		},
		LLM: LLMConfig{
			Primary: ProviderConfig{
				Provider: "groq",
				Model:    "llama-3.1-8b-instant",
			},
			Fallback: ProviderConfig{
				Provider: "gemini",
				Model:    "gemini-1.5-flash",
			},
			MaxAttempts:     3,
			Backoff:         200 * time.Millisecond,
			PrimaryTimeout:  20 * time.Second,
			FallbackTimeout: 4 * time.Second,
		},
		FactCheck: FactCheckConfig{
			MaxSources:       8,
			EvidenceChars:    4000,
			SummaryMaxTokens: 300,
			VerdictMaxTokens: 250,
		},
		Janitor: JanitorConfig{
			Enabled:       true,
			Schedule:      "@every 30m",
			QuotaKeepDays: 7,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run init-config to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# SatyaShield Configuration

server:
  port: 8080
  shutdown_timeout: 10s

database:
  driver: sqlite  # sqlite, mongo, mysql or memory
  path: ./data/satyashield.db
  # driver: mongo
  # url: ${MONGODB_URI}
  # name: satyashield
  # driver: mysql
  # url: ${MYSQL_DSN}

cache:
  driver: store  # store (use the database) or redis
  # redis_url: ${REDIS_URL}
  ttl: 3h

quota:
  daily_limit: 100
  safety_buffer: 10

search:
  google:
    api_key: ${GOOGLE_API_KEY}
    search_engine_id: ${GOOGLE_CSE_ID}
  tavily:
    api_key: ${TAVILY_API_KEY}
  gnews:
    api_key: ${GNEWS_API_KEY}
  newsapi:
    api_key: ${NEWS_API_KEY}
  min_results: 2
  target_results: 8
  explore_results: 20
  primary_timeout: 10s
  fallback_timeout: 4s
  requests_per_second: 5
  default_lang: en
  default_region: in

llm:
  primary:
    provider: groq  # groq, openai, anthropic, ollama
    model: llama-3.1-8b-instant
    api_key: ${GROQ_API_KEY}
  fallback:
    provider: gemini
    model: gemini-1.5-flash
    api_key: ${GEMINI_API_KEY}
  max_attempts: 3
  backoff: 200ms
  primary_timeout: 20s
  fallback_timeout: 4s

factcheck:
  max_sources: 8
  evidence_chars: 4000

janitor:
  enabled: true
  schedule: "@every 30m"
  quota_keep_days: 7

rate_limits:
  requests_per_minute: 60

logging:
  level: info  # debug, info, warn, error
  format: json # json or text
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "mongo", "mysql":
		if c.Database.URL == "" {
			return fmt.Errorf("%s database url is required", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "store":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis cache requires redis_url")
		}
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Quota.DailyLimit <= 0 || c.Quota.SafetyBuffer < 0 || c.Quota.EffectiveLimit() <= 0 {
		return fmt.Errorf("invalid quota: limit %d, buffer %d", c.Quota.DailyLimit, c.Quota.SafetyBuffer)
	}

	if c.Search.MinResults < 0 || c.Search.TargetResults <= 0 {
		return fmt.Errorf("invalid search thresholds")
	}

	validProviders := map[string]bool{"openai": true, "groq": true, "anthropic": true, "ollama": true, "gemini": true}
	for name, p := range map[string]ProviderConfig{"primary": c.LLM.Primary, "fallback": c.LLM.Fallback} {
		if !p.Enabled() {
			continue
		}
		if !validProviders[p.Provider] {
			return fmt.Errorf("unsupported %s LLM provider: %s", name, p.Provider)
		}
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm max_attempts must be at least 1")
	}

	if c.FactCheck.MaxSources <= 0 || c.FactCheck.EvidenceChars <= 0 {
		return fmt.Errorf("invalid factcheck bounds")
	}

	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables become empty so that providers without credentials stay disabled.
func interpolateEnvVars(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		return os.Getenv(varName)
	})
}
