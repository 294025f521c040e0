package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Cache    CacheConfig    `yaml:"cache"`
	Viewport ViewportConfig `yaml:"viewport"`
	Session  SessionConfig  `yaml:"session"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// BackendConfig holds settings for the postings backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout Duration      `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	Backoff BackoffConfig `yaml:"backoff"`
	// MaxResults mirrors the server-side result cap used for truncation
	// detection.
	MaxResults int `yaml:"max_results"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CacheConfig holds area cache settings.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// ViewportConfig holds fetch-orchestration settings.
type ViewportConfig struct {
	DebounceDelay       Duration `yaml:"debounce_delay"`
	TruncationThreshold int      `yaml:"truncation_threshold"`
	MaxAreaDegrees      float64  `yaml:"max_area_degrees"`
	PrefetchFactor      float64  `yaml:"prefetch_factor"`
}

// SessionConfig holds per-client session settings.
type SessionConfig struct {
	TTL Duration `yaml:"ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/freestuff.db",
		},
		Server: ServerConfig{
			Address: "localhost:1910",
		},
		Backend: BackendConfig{
			BaseURL: "https://freestuff-backend.herokuapp.com",
			Timeout: Duration(15 * time.Second),
			Retries: 3,
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(5 * time.Second),
			},
			MaxResults: 150,
		},
		Cache: CacheConfig{
			TTL:        Duration(60 * time.Second),
			MaxEntries: 30,
		},
		Viewport: ViewportConfig{
			DebounceDelay:       Duration(400 * time.Millisecond),
			TruncationThreshold: 150,
			MaxAreaDegrees:      1.0,
			PrefetchFactor:      0,
		},
		Session: SessionConfig{
			TTL: Duration(30 * time.Minute),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		applyEnv(cfg)
		return cfg, cfg.validate()
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, cfg.validate()
}

// applyEnv overrides selected settings from the environment.
func applyEnv(cfg *Config) {
	if u := os.Getenv("FREESTUFF_BACKEND_URL"); u != "" {
		cfg.Backend.BaseURL = u
	}
	if addr := os.Getenv("FREESTUFF_LISTEN_ADDR"); addr != "" {
		cfg.Server.Address = addr
	}
}

// validate checks the plain numeric knobs for positivity.
func (c *Config) validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", time.Duration(c.Cache.TTL))
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Viewport.DebounceDelay <= 0 {
		return fmt.Errorf("viewport.debounce_delay must be positive, got %v", time.Duration(c.Viewport.DebounceDelay))
	}
	if c.Viewport.TruncationThreshold <= 0 {
		return fmt.Errorf("viewport.truncation_threshold must be positive, got %d", c.Viewport.TruncationThreshold)
	}
	if c.Viewport.MaxAreaDegrees <= 0 {
		return fmt.Errorf("viewport.max_area_degrees must be positive, got %g", c.Viewport.MaxAreaDegrees)
	}
	if c.Viewport.PrefetchFactor < 0 {
		return fmt.Errorf("viewport.prefetch_factor must not be negative, got %g", c.Viewport.PrefetchFactor)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# FreeStuff Configuration
# ----------------------
# Supported Duration units: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
