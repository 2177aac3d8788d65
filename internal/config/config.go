// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and OPSDESK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OPSDESK_"

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	CORS       CORSConfig       `koanf:"cors"`
	Escalation EscalationConfig `koanf:"escalation"`
	Feed       FeedConfig       `koanf:"feed"`
	Paging     PagingConfig     `koanf:"paging"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig configures cross-origin requests.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// EscalationConfig configures the notification store and ID generation.
type EscalationConfig struct {
	// IDStrategy is "sequence" or "uuid".
	IDStrategy string `koanf:"id_strategy"`
	// MaxNotifications bounds the feed; 0 keeps everything.
	MaxNotifications int `koanf:"max_notifications"`
}

// FeedConfig configures the simulated alert feed.
type FeedConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	Seed         uint64        `koanf:"seed"`
	SeedDemoData bool          `koanf:"seed_demo_data"`
}

// PagingConfig configures paging of responder teams.
type PagingConfig struct {
	Enabled    bool             `koanf:"enabled"`
	BaseURL    string           `koanf:"base_url"`
	Worker     WorkerConfig     `koanf:"worker"`
	Retry      RetryConfig      `koanf:"retry"`
	Mattermost MattermostConfig `koanf:"mattermost"`
	Telegram   TelegramConfig   `koanf:"telegram"`
	// Teams lists the channels paged for each responder team.
	Teams []TeamChannels `koanf:"teams"`
}

// WorkerConfig configures the paging worker pool.
type WorkerConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
	NumWorkers   int           `koanf:"num_workers"`
}

// RetryConfig configures paging retries.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// MattermostConfig configures the Mattermost sender.
type MattermostConfig struct {
	Username string        `koanf:"username"`
	IconURL  string        `koanf:"icon_url"`
	Timeout  time.Duration `koanf:"timeout"`
}

// TelegramConfig configures the Telegram sender.
type TelegramConfig struct {
	Enabled   bool    `koanf:"enabled"`
	BotToken  string  `koanf:"bot_token"`
	RateLimit float64 `koanf:"rate_limit"`
}

// TeamChannels are the paging destinations of one team.
type TeamChannels struct {
	Team       string   `koanf:"team"`
	Mattermost []string `koanf:"mattermost"`
	Telegram   []string `koanf:"telegram"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Escalation: EscalationConfig{
			IDStrategy:       "sequence",
			MaxNotifications: 50,
		},
		Feed: FeedConfig{
			Enabled:      true,
			Interval:     5 * time.Second,
			Seed:         1,
			SeedDemoData: true,
		},
		Paging: PagingConfig{
			Enabled: false,
			Worker: WorkerConfig{
				BatchSize:    50,
				PollInterval: 2 * time.Second,
				NumWorkers:   2,
			},
			Retry: RetryConfig{
				MaxAttempts:       5,
				InitialBackoff:    time.Second,
				MaxBackoff:        2 * time.Minute,
				BackoffMultiplier: 2.0,
			},
			Mattermost: MattermostConfig{
				Username: "opsdesk",
				Timeout:  10 * time.Second,
			},
			Telegram: TelegramConfig{
				RateLimit: 25,
			},
		},
	}
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, the YAML file at path (if non-empty), then environment variables.
// Nesting in variable names is written with a double underscore, for example
// OPSDESK_SERVER__METRICS_PORT.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
		if key == "cors.allowed_origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	// Keys absent from file and env keep their Default values.
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
	validIDStrategy = []string{"sequence", "uuid"}
)

// Validate rejects unknown enum values and non-positive intervals.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %v", c.Log.Level, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of %v", c.Log.Format, validLogFormats))
	}
	if !slices.Contains(validIDStrategy, c.Escalation.IDStrategy) {
		errs = append(errs, fmt.Errorf("escalation.id_strategy %q must be one of %v", c.Escalation.IDStrategy, validIDStrategy))
	}
	if c.Escalation.MaxNotifications < 0 {
		errs = append(errs, errors.New("escalation.max_notifications must not be negative"))
	}
	if c.Feed.Enabled && c.Feed.Interval <= 0 {
		errs = append(errs, errors.New("feed.interval must be positive"))
	}

	if c.Paging.Enabled {
		if c.Paging.Worker.PollInterval <= 0 {
			errs = append(errs, errors.New("paging.worker.poll_interval must be positive"))
		}
		if c.Paging.Worker.NumWorkers <= 0 || c.Paging.Worker.BatchSize <= 0 {
			errs = append(errs, errors.New("paging.worker.num_workers and batch_size must be positive"))
		}
		if c.Paging.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("paging.retry.max_attempts must be positive"))
		}
		if c.Paging.Retry.InitialBackoff <= 0 || c.Paging.Retry.MaxBackoff < c.Paging.Retry.InitialBackoff {
			errs = append(errs, errors.New("paging.retry backoff must be positive and max_backoff >= initial_backoff"))
		}
		if c.Paging.Retry.BackoffMultiplier < 1 {
			errs = append(errs, errors.New("paging.retry.backoff_multiplier must be at least 1"))
		}
		if c.Paging.Telegram.Enabled && c.Paging.Telegram.BotToken == "" {
			errs = append(errs, errors.New("paging.telegram.bot_token is required when telegram is enabled"))
		}
		for _, team := range c.Paging.Teams {
			if team.Team == "" {
				errs = append(errs, errors.New("paging.teams entries need a team name"))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
