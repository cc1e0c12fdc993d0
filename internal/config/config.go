package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	News       NewsConfig       `yaml:"news" mapstructure:"news"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	SQL        SQLConfig        `yaml:"sql" mapstructure:"sql"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BatchConfig holds batch defaults used when a request leaves them unset.
type BatchConfig struct {
	MaxConcurrent     int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	Strategy          string `yaml:"strategy" mapstructure:"strategy"`
	IncludeNews       bool   `yaml:"include_news" mapstructure:"include_news"`
	IncludeEnrichment bool   `yaml:"include_enrichment" mapstructure:"include_enrichment"`
}

// RegistryConfig configures the CNPJ registry client.
type RegistryConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerMinute int    `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// NewsConfig configures the news search.
type NewsConfig struct {
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	WindowDays   int      `yaml:"window_days" mapstructure:"window_days"`
	PerQuery     int      `yaml:"per_query" mapstructure:"per_query"`
	MaxItems     int      `yaml:"max_items" mapstructure:"max_items"`
	QueryDelayMs int      `yaml:"query_delay_ms" mapstructure:"query_delay_ms"`
	SkipPaths    []string `yaml:"skip_paths" mapstructure:"skip_paths"` // article paths never scraped
}

// ClassifierConfig selects and configures the risk classifier backend.
type ClassifierConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Failed reads inside failure_window_secs pause Jina for cooldown_secs.
	FailureThreshold  int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	FailureWindowSecs int `yaml:"failure_window_secs" mapstructure:"failure_window_secs"`
	CooldownSecs      int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// StoreConfig configures the lookup cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SQLConfig holds defaults for SQL source connections.
type SQLConfig struct {
	Driver         string `yaml:"driver" mapstructure:"driver"`
	Server         string `yaml:"server" mapstructure:"server"`
	Port           int    `yaml:"port" mapstructure:"port"`
	Database       string `yaml:"database" mapstructure:"database"`
	Username       string `yaml:"username" mapstructure:"username"`
	Password       string `yaml:"password" mapstructure:"password"`
	UseWindowsAuth bool   `yaml:"use_windows_auth" mapstructure:"use_windows_auth"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8001)
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("batch.strategy", "auto")
	v.SetDefault("batch.include_news", true)
	v.SetDefault("batch.include_enrichment", true)
	v.SetDefault("registry.base_url", "https://brasilapi.com.br")
	v.SetDefault("registry.timeout_secs", 10)
	v.SetDefault("registry.rate_per_minute", 60)
	v.SetDefault("registry.cache_ttl_hours", 24)
	v.SetDefault("news.base_url", "https://news.google.com")
	v.SetDefault("news.window_days", 30)
	v.SetDefault("news.per_query", 5)
	v.SetDefault("news.max_items", 5)
	v.SetDefault("news.query_delay_ms", 1000)
	v.SetDefault("classifier.provider", "http")
	v.SetDefault("classifier.base_url", "http://127.0.0.1:8000")
	v.SetDefault("classifier.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.failure_threshold", 3)
	v.SetDefault("jina.failure_window_secs", 30)
	v.SetDefault("jina.cooldown_secs", 60)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "risk-cli.db")
	v.SetDefault("sql.driver", "postgres")
	v.SetDefault("sql.port", 5432)
	v.SetDefault("sql.server", "")
	v.SetDefault("sql.database", "")
	v.SetDefault("sql.username", "")
	v.SetDefault("sql.password", "")
	v.SetDefault("sql.use_windows_auth", false)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is the command name:
// "serve", "batch", "sql" or "detect".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
		errs = append(errs, fmt.Sprintf("batch.max_concurrent must be between 1 and 50 (got %d)", c.Batch.MaxConcurrent))
	}

	if mode != "detect" {
		switch c.Classifier.Provider {
		case "http":
			if c.Classifier.BaseURL == "" {
				errs = append(errs, "classifier.base_url is required for the http provider")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required for the anthropic provider")
			}
		default:
			errs = append(errs, fmt.Sprintf("classifier.provider must be http or anthropic (got %q)", c.Classifier.Provider))
		}
		switch c.Store.Driver {
		case "", "none", "sqlite", "postgres", "postgresql":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite, postgres or none (got %q)", c.Store.Driver))
		}
	}

	if mode == "serve" && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
