package labauth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "base url valid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "http://localhost:5000"
			},
			wantValid: true,
		},
		{
			name: "base url relative invalid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "base url scheme invalid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "ftp://lab"
			},
			wantValid: false,
		},
		{
			name: "timeout zero invalid",
			mutate: func(c *Config) {
				c.Transport.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "redirect delay negative invalid",
			mutate: func(c *Config) {
				c.Transport.RedirectDelay = -time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "proactive window negative invalid",
			mutate: func(c *Config) {
				c.Transport.ProactiveRefreshWindow = -time.Second
			},
			wantValid: false,
		},
		{
			name: "file store without path invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = StoreFile
			},
			wantValid: false,
		},
		{
			name: "file store with path valid",
			mutate: func(c *Config) {
				c.Storage.Backend = StoreFile
				c.Storage.Path = "/tmp/labauth.json"
			},
			wantValid: true,
		},
		{
			name: "unknown store invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = "sqlite"
			},
			wantValid: false,
		},
		{
			name: "async notify without buffer invalid",
			mutate: func(c *Config) {
				c.Notify.Async = true
				c.Notify.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "log level invalid",
			mutate: func(c *Config) {
				c.Log.Level = "verbose"
			},
			wantValid: false,
		},
		{
			name: "refresh path invalid",
			mutate: func(c *Config) {
				c.Refresh.Path = "auth/refresh"
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatal("expected invalid config")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestUnknownStoreWrapsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "etcd"
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownStore) {
		t.Fatalf("expected ErrUnknownStore, got %v", err)
	}
}

func TestLoadConfigYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labauth.yaml")
	data := []byte(`transport:
  base_url: http://lab.local:5000
  timeout: 15s
storage:
  backend: file
  path: /var/lib/labauth/credentials.json
log:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport.BaseURL != "http://lab.local:5000" || cfg.Transport.Timeout != 15*time.Second {
		t.Fatalf("transport not loaded: %+v", cfg.Transport)
	}
	if cfg.Transport.LoginPath != "/auth/login" || cfg.Transport.RedirectDelay != 500*time.Millisecond {
		t.Fatalf("defaults lost: %+v", cfg.Transport)
	}
	if cfg.Storage.Backend != StoreFile || cfg.Log.Level != "debug" || !cfg.Refresh.Coalesce {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("transport: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://kms.example.org")
	t.Setenv(EnvTimeout, "5s")
	t.Setenv(EnvStore, StoreRedis)
	t.Setenv(EnvRedisAddr, "127.0.0.1:6380")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvMetrics, "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport.BaseURL != "https://kms.example.org" || cfg.Transport.Timeout != 5*time.Second {
		t.Fatalf("transport env not applied: %+v", cfg.Transport)
	}
	if cfg.Storage.Backend != StoreRedis || cfg.Storage.RedisAddr != "127.0.0.1:6380" {
		t.Fatalf("storage env not applied: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "warn" || cfg.Metrics.Enabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvTimeout, "soon")
	t.Setenv(EnvMetrics, "maybe")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	if cfg.Transport.Timeout != 60*time.Second || !cfg.Metrics.Enabled {
		t.Fatalf("garbage env changed config: %+v", cfg)
	}
}

func TestCloneConfigCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Transport.PublicPaths[0] = "/changed"
	if cfg.Transport.PublicPaths[0] == "/changed" {
		t.Fatal("clone shares PublicPaths")
	}
}
