package model

import "time"

// Config is the complete narrascan configuration.
// Sources, highest priority first: CLI flags, NARRASCAN_* env vars, config file, defaults.
type Config struct {
	Backend     BackendConfig     `yaml:"backend" mapstructure:"backend"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// BackendConfig selects the extraction backend at construction time
type BackendConfig struct {
	// Kind: "heuristic", "rules" or "external"
	Kind string `yaml:"kind" mapstructure:"kind"`
}

// LLMConfig configures the text generator behind the external backend
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds, per request
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Requests per second allowed per provider (0 disables limiting)
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the external model response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig points at the optional archive database
type StoreConfig struct {
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Projections bool `yaml:"projections" mapstructure:"projections"`
	Verbose     bool `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns sensible defaults: offline rule engine, no LLM, no store
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind: "rules",
		},
		LLM: LLMConfig{
			Provider:      "",
			Model:         "",
			Timeout:       60,
			MaxTokens:     1500,
			RatePerSecond: 0.8,
			Burst:         5,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".narrascan-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Projections: false,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
