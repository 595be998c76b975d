package labauth

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/labkm/labauth/guard"
	"github.com/labkm/labauth/session"
	"github.com/labkm/labauth/transport"
)

// Config is the complete client configuration. Zero values are filled from
// [DefaultConfig] by the loaders; a hand-built Config should start from it.
type Config struct {
	Transport transport.Config `yaml:"transport"`
	Refresh   RefreshConfig    `yaml:"refresh"`
	Storage   StorageConfig    `yaml:"storage"`
	Session   session.Config   `yaml:"session"`
	Guard     guard.Config     `yaml:"guard"`
	Notify    NotifyConfig     `yaml:"notify"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Log       LogConfig        `yaml:"log"`
	// RoutesFile replaces the built-in route table when set.
	RoutesFile string `yaml:"routes_file"`
}

/*
====================================
SUB CONFIGS
====================================
*/

// RefreshConfig controls the access-token exchange.
type RefreshConfig struct {
	Path string `yaml:"path"`
	// Coalesce shares one exchange between concurrent expiries.
	Coalesce bool `yaml:"coalesce"`
}

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// StorageConfig selects the credential store.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// NotifyConfig controls delivery of user-visible notices.
type NotifyConfig struct {
	// Sink is "slog" (default), "json" (stderr) or "none".
	Sink       string `yaml:"sink"`
	Async      bool   `yaml:"async"`
	BufferSize int    `yaml:"buffer_size"`
	DropIfFull bool   `yaml:"drop_if_full"`
}

// MetricsConfig mirrors metrics.Config.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the defaults used by [New] and the loaders.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Transport: transport.DefaultConfig(),
		Refresh: RefreshConfig{
			Path:     "/api/v1/auth/refresh",
			Coalesce: true,
		},
		Storage: StorageConfig{
			Backend:     StoreMemory,
			RedisPrefix: "labauth",
		},
		Session: session.DefaultConfig(),
		Guard:   guard.DefaultConfig(),
		Notify: NotifyConfig{
			Sink:       "slog",
			Async:      false,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Transport.PublicPaths != nil {
		out.Transport.PublicPaths = append([]string(nil), cfg.Transport.PublicPaths...)
	}
	return out
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over [DefaultConfig] and applies environment
// overrides. Keys absent from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment overrides honored by [ApplyEnv].
const (
	EnvBaseURL   = "LABAUTH_BASE_URL"
	EnvTimeout   = "LABAUTH_TIMEOUT"
	EnvStore     = "LABAUTH_STORE"
	EnvStorePath = "LABAUTH_STORE_PATH"
	EnvRedisAddr = "LABAUTH_REDIS_ADDR"
	EnvLogLevel  = "LABAUTH_LOG_LEVEL"
	EnvLogFormat = "LABAUTH_LOG_FORMAT"
	EnvMetrics   = "LABAUTH_METRICS"
)

// ApplyEnv overrides cfg from LABAUTH_* variables. Unset or unparsable
// values leave the field alone.
func ApplyEnv(cfg *Config) {
	cfg.Transport.BaseURL = envString(EnvBaseURL, cfg.Transport.BaseURL)
	cfg.Transport.Timeout = envDuration(EnvTimeout, cfg.Transport.Timeout)
	cfg.Storage.Backend = envString(EnvStore, cfg.Storage.Backend)
	cfg.Storage.Path = envString(EnvStorePath, cfg.Storage.Path)
	cfg.Storage.RedisAddr = envString(EnvRedisAddr, cfg.Storage.RedisAddr)
	cfg.Log.Level = envString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = envString(EnvLogFormat, cfg.Log.Format)
	cfg.Metrics.Enabled = envBool(EnvMetrics, cfg.Metrics.Enabled)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting. Every error wraps
// [ErrInvalidConfig].
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	// Transport
	if strings.TrimSpace(c.Transport.BaseURL) != "" {
		u, err := url.Parse(c.Transport.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("Transport BaseURL %q must be an absolute URL", c.Transport.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return invalid("Transport BaseURL scheme must be http or https")
		}
	}
	if c.Transport.Timeout <= 0 {
		return invalid("Transport Timeout must be > 0")
	}
	if c.Transport.RedirectDelay < 0 {
		return invalid("Transport RedirectDelay must be >= 0")
	}
	if c.Transport.RedirectDelay > time.Minute {
		return invalid("Transport RedirectDelay must be <= 1m")
	}
	if c.Transport.ProactiveRefreshWindow < 0 {
		return invalid("Transport ProactiveRefreshWindow must be >= 0")
	}
	if !strings.HasPrefix(c.Transport.LoginPath, "/") {
		return invalid("Transport LoginPath must start with /")
	}

	// Refresh
	if !strings.HasPrefix(c.Refresh.Path, "/") {
		return invalid("Refresh Path must start with /")
	}

	// Storage
	switch c.Storage.Backend {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return invalid("Storage Path required for the file backend")
		}
	case StoreRedis:
		if c.Storage.RedisDB < 0 {
			return invalid("Storage RedisDB must be >= 0")
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownStore, c.Storage.Backend)
	}

	// Notify
	switch c.Notify.Sink {
	case "slog", "json", "none":
	default:
		return invalid("Notify Sink %q must be slog, json or none", c.Notify.Sink)
	}
	if c.Notify.Async && c.Notify.BufferSize <= 0 {
		return invalid("Notify BufferSize must be > 0 when Async is true")
	}

	// Log
	if _, ok := parseLevel(c.Log.Level); !ok {
		return invalid("Log Level %q is not debug, info, warn or error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("Log Format must be text or json")
	}
	return nil
}
