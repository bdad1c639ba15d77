package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. HONEYFEED_SOURCE_PATH.
const EnvPrefix = "HONEYFEED_"

// DefaultPath is read when no explicit config file is given and it exists.
const DefaultPath = "honeyfeed.yaml"

// Config holds all honeyfeed configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Source   SourceConfig   `koanf:"source"`
	Sessions SessionsConfig `koanf:"sessions"`
	Geo      GeoConfig      `koanf:"geo"`
	Bus      BusConfig      `koanf:"bus"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Server   ServerConfig   `koanf:"server"`
}

// LogConfig controls honeyfeed's own diagnostics.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	File   string `koanf:"file"`
}

// SourceConfig selects the honeypot log to follow.
type SourceConfig struct {
	Provider string `koanf:"provider" validate:"required"`
	Path     string `koanf:"path" validate:"required"`
	Poll     bool   `koanf:"poll"`
}

// SessionsConfig bounds per-address session state.
type SessionsConfig struct {
	Capacity int `koanf:"capacity" validate:"min=1"`
}

// GeoConfig controls address enrichment.
type GeoConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Endpoint    string        `koanf:"endpoint" validate:"omitempty,url"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Capacity    int           `koanf:"capacity" validate:"min=1"`
	NegativeTTL time.Duration `koanf:"negative_ttl" validate:"gt=0"`
}

// BusConfig sizes the delivery queues.
type BusConfig struct {
	FeedCapacity       int `koanf:"feed_capacity" validate:"min=1"`
	NotifyCapacity     int `koanf:"notify_capacity" validate:"min=1"`
	SubscriberCapacity int `koanf:"subscriber_capacity" validate:"min=1"`
}

// WebhookConfig controls the external notifier. An empty URL disables it.
type WebhookConfig struct {
	URL       string        `koanf:"url" validate:"omitempty,url"`
	URLFile   string        `koanf:"url_file"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
	Interval  time.Duration `koanf:"interval" validate:"gt=0"`
	Burst     int           `koanf:"burst" validate:"min=1"`
	IdlePause time.Duration `koanf:"idle_pause" validate:"gt=0"`
}

// ServerConfig controls the live feed HTTP listener.
type ServerConfig struct {
	Addr       string        `koanf:"addr" validate:"required"`
	PingPeriod time.Duration `koanf:"ping_period" validate:"gt=0"`
	// RateLimit caps new /stream and /ws connections per client IP within
	// RateWindow. Zero disables the limit.
	RateLimit  int           `koanf:"rate_limit" validate:"min=0"`
	RateWindow time.Duration `koanf:"rate_window" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Source: SourceConfig{
			Provider: "file",
			Path:     "var/log/cowrie/cowrie.log",
		},
		Sessions: SessionsConfig{Capacity: 10000},
		Geo: GeoConfig{
			Enabled:     true,
			Endpoint:    "http://ip-api.com/json/",
			Timeout:     2 * time.Second,
			Capacity:    10000,
			NegativeTTL: 5 * time.Minute,
		},
		Bus: BusConfig{
			FeedCapacity:       500,
			NotifyCapacity:     200,
			SubscriberCapacity: 100,
		},
		Webhook: WebhookConfig{
			Timeout:   4 * time.Second,
			Interval:  1200 * time.Millisecond,
			Burst:     1,
			IdlePause: time.Second,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			PingPeriod: 30 * time.Second,
			RateLimit:  30,
			RateWindow: time.Minute,
		},
	}
}

// Load layers configuration: defaults, then the YAML file at path (or
// DefaultPath if path is empty and the file exists), then HONEYFEED_*
// environment variables.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.Webhook.URL == "" && cfg.Webhook.URLFile != "" {
		cfg.Webhook.URL = readURLFile(cfg.Webhook.URLFile)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if c.Geo.Enabled && c.Geo.Endpoint == "" {
		return errors.New("config: invalid: geo.endpoint is required when geo is enabled")
	}
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// envKey maps HONEYFEED_WEBHOOK_URL_FILE to webhook.url_file. Section names
// never contain an underscore, so only the first one separates the path.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.Replace(key, "_", ".", 1)
}

// readURLFile returns the trimmed first line of path. A missing or unreadable
// file disables notifications rather than failing startup.
func readURLFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("webhook url file unreadable, notifications disabled", "path", path, "error", err)
		return ""
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line)
}
