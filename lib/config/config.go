package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath   = "./config.yaml"
	defaultPort         = "8080"
	defaultDBPath       = "recommender.db"
	defaultLogLevel     = "info"
	defaultEvalSchedule = "0 4 * * *"  // nightly, off the interactive path
	defaultAnalyzeEvery = "*/30 * * * *"
	defaultOpenAIModel  = "gpt-4o-mini"
)

// Config defines all runtime configuration. Engine parameters themselves
// (score weights, thresholds) are fixed constants in their packages; this
// covers the surfaces around the engine.
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	// RedisAddr enables the Redis-backed similarity cache when set;
	// empty means the in-process cache.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// OpenAIKey enables the LLM interest tagger when set; empty means
	// the keyword heuristic.
	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	// Cron expressions for the background jobs.
	EvalSchedule    string `yaml:"eval_schedule"`
	AnalyzeSchedule string `yaml:"analyze_schedule"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Port:            defaultPort,
		DBPath:          defaultDBPath,
		LogLevel:        defaultLogLevel,
		OpenAIModel:     defaultOpenAIModel,
		EvalSchedule:    defaultEvalSchedule,
		AnalyzeSchedule: defaultAnalyzeEvery,
	}
}

// Load reads configuration from RECOMMENDER_CONFIG or the default path.
// A missing file is not an error; defaults plus environment overrides
// apply so the service starts with zero configuration.
func Load() (Config, error) {
	path := os.Getenv("RECOMMENDER_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
}

// SlogLevel maps the configured log level onto slog's levels.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}
