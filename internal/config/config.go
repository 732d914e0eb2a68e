// Package config loads orchestrator settings from .env files, an optional
// YAML file and CHECKOUT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHECKOUT"

// Draft backends.
const (
	DraftMemory   = "memory"
	DraftFile     = "file"
	DraftPostgres = "postgres"
)

// Config is the fully resolved configuration.
type Config struct {
	Env      string         `mapstructure:"env"`
	API      APIConfig      `mapstructure:"api"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Draft    DraftConfig    `mapstructure:"draft"`
	Database DatabaseConfig `mapstructure:"database"`
	Sandbox  SandboxConfig  `mapstructure:"sandbox"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Token string `mapstructure:"token"`
}

type PaymentConfig struct {
	ReturnURL           string        `mapstructure:"return_url"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	RateLimitedInterval time.Duration `mapstructure:"rate_limited_interval"`
}

type DraftConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SandboxConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so env overrides are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("api.base_url", "http://127.0.0.1:8000/api/")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("auth.token", "")
	v.SetDefault("payment.return_url", "http://localhost:5173/payment/return")
	v.SetDefault("payment.poll_interval", 3*time.Second)
	v.SetDefault("payment.rate_limited_interval", 10*time.Second)
	v.SetDefault("draft.backend", DraftMemory)
	v.SetDefault("draft.path", ".checkout/drafts.yaml")
	v.SetDefault("draft.key", "rentalDraft")
	v.SetDefault("database.url", "")
	v.SetDefault("sandbox.port", "8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. configFile may be empty. Missing .env files are
// ignored.
func Load(configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	switch c.Draft.Backend {
	case DraftMemory, DraftFile:
	case DraftPostgres:
		if c.Database.URL == "" {
			return errors.New("config: draft.backend=postgres requires database.url")
		}
	default:
		return fmt.Errorf("config: unknown draft.backend %q", c.Draft.Backend)
	}
	if c.Payment.PollInterval <= 0 || c.Payment.RateLimitedInterval <= 0 {
		return errors.New("config: payment poll intervals must be positive")
	}
	if c.API.Timeout <= 0 {
		return errors.New("config: api.timeout must be positive")
	}
	return nil
}

// IsDevelopment reports whether development-only features are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NewLogger builds the process logger from the log settings.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
