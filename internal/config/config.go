package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the marketlens configuration shared by the CLI and the API server.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
	Reports  ReportsConfig  `yaml:"reports"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // must cover a full pipeline run
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the optional shared store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	MemoryMaxKeys    int      `yaml:"memory_max_keys"`
}

// SearchConfig holds the external search backend settings.
type SearchConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	Model              string `yaml:"model"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffBaseMs      int    `yaml:"backoff_base_ms"`
	CacheSize          int    `yaml:"cache_size"`
	PersistentTTLHours int    `yaml:"persistent_ttl_hours"` // 0 disables the store-backed tier
	TimeoutSec         int    `yaml:"timeout_sec"`
}

// BudgetConfig holds LLM token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// LLMConfig holds the agent chat model settings.
type LLMConfig struct {
	BaseURL       string       `yaml:"base_url"`
	APIKey        string       `yaml:"api_key"`
	Model         string       `yaml:"model"`
	Temperature   float32      `yaml:"temperature"`
	MaxToolRounds int          `yaml:"max_tool_rounds"`
	TimeoutSec    int          `yaml:"timeout_sec"`
	Budget        BudgetConfig `yaml:"budget"`
}

// ReportsConfig holds report retention settings.
type ReportsConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// Load reads configuration by environment name (local, dev, prod).
// A missing file is not an error: defaults and environment variables apply.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// PathEnvVar names an explicit config file that overrides the per-environment lookup.
const PathEnvVar = "MARKETLENS_CONFIG"

// Resolve loads the file named by MARKETLENS_CONFIG when set, otherwise the env profile.
func Resolve(env string) (Config, error) {
	if path := os.Getenv(PathEnvVar); path != "" {
		return LoadFile(path)
	}
	return Load(env)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filepath.Clean(configPath))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fall through to defaults
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	default:
		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 900
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MemoryMaxKeys <= 0 {
		c.Database.MemoryMaxKeys = 10_000
	}

	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://api.perplexity.ai"
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("PERPLEXITY_API_KEY")
	}
	if c.Search.Model == "" {
		c.Search.Model = "llama-3.1-sonar-huge-128k-online"
	}
	if c.Search.MaxRetries <= 0 {
		c.Search.MaxRetries = 3
	}
	if c.Search.BackoffBaseMs <= 0 {
		c.Search.BackoffBaseMs = 1000
	}
	if c.Search.CacheSize <= 0 {
		c.Search.CacheSize = 100
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 60
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4"
	}
	if c.LLM.MaxToolRounds <= 0 {
		c.LLM.MaxToolRounds = 6
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}

	if c.Reports.TTLHours <= 0 {
		c.Reports.TTLHours = 24 * 7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Search.MaxRetries < 1 {
		return fmt.Errorf("search.max_retries must be at least 1, got %d", c.Search.MaxRetries)
	}
	if c.Search.CacheSize < 1 {
		return fmt.Errorf("search.cache_size must be at least 1, got %d", c.Search.CacheSize)
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
