// Package config handles loading and validating rootmcp configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for rootmcp.
// Nil pointer sub-configs mean the feature is disabled.
type Config struct {
	Server        ServerConfig         `json:"server" yaml:"server"`
	Execution     ExecutionConfig      `json:"execution" yaml:"execution"`
	Policy        PolicyConfig         `json:"policy" yaml:"policy"`
	Features      FeaturesConfig       `json:"features" yaml:"features"`
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`             // nil = execution history disabled
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = metrics/tracing disabled
	Cleanup       *CleanupConfig       `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`             // nil = workspaces are never deleted
}

// ServerConfig holds MCP server identity.
type ServerConfig struct {
	Name    string `json:"name" yaml:"name"`       // Default: "rootmcp".
	Version string `json:"version" yaml:"version"` // Default: build version.
}

// ExecutionConfig bounds sandboxed code execution.
type ExecutionConfig struct {
	TimeoutSeconds   int    `json:"timeout_seconds" yaml:"timeout_seconds"`     // Default: 60.
	MaxOutputSize    int    `json:"max_output_size" yaml:"max_output_size"`     // Bytes per stream. Default: 10_000_000.
	MaxCodeLength    int    `json:"max_code_length" yaml:"max_code_length"`     // Characters. Default: 100_000.
	WorkingDirectory string `json:"working_directory" yaml:"working_directory"` // Workspace base. Default: /tmp/rootmcp. Override: ROOTMCP_WORKDIR env var.
	Python           string `json:"python" yaml:"python"`                       // Interpreter. Default: "python3". Override: ROOTMCP_PYTHON env var.
}

// Timeout returns the execution timeout as a duration.
func (e ExecutionConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// PolicyConfig extends the built-in validation policy. Names listed here
// are merged into the default tables; the built-in tables themselves cannot
// be removed through configuration.
type PolicyConfig struct {
	ExtraBlockedModules    []string `json:"extra_blocked_modules,omitempty" yaml:"extra_blocked_modules,omitempty"`
	ExtraBlockedAttributes []string `json:"extra_blocked_attributes,omitempty" yaml:"extra_blocked_attributes,omitempty"`
	ExtraBlockedBuiltins   []string `json:"extra_blocked_builtins,omitempty" yaml:"extra_blocked_builtins,omitempty"`
	ExtraAllowedModules    []string `json:"extra_allowed_modules,omitempty" yaml:"extra_allowed_modules,omitempty"`
}

// FeaturesConfig toggles optional tool groups.
type FeaturesConfig struct {
	// EnableRoot registers the ROOT execution tools. Even when true, the
	// tools are only registered if the availability probe finds PyROOT.
	EnableRoot bool `json:"enable_root" yaml:"enable_root"` // Override: ROOTMCP_ENABLE_ROOT env var.

	// SkipProbe registers tools without probing for PyROOT at startup.
	// Executions then fail inside the child process if ROOT is missing.
	SkipProbe bool `json:"skip_probe" yaml:"skip_probe"`
}

// StorageConfig configures the execution history backend.
// When nil, execution history is not recorded.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"`                         // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`     // SQLite-specific settings.
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"` // PostgreSQL-specific settings.
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return "sqlite"
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // Database file path. Default: <working_directory>/history.db.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
type PostgresStorageConfig struct {
	DSN string `json:"dsn" yaml:"dsn"` // Override: ROOTMCP_DB_DSN env var.
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition. The MCP transport
// owns stdout, so metrics are served on a separate HTTP listener.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"` // Default: ":9464".
}

// TracingConfig configures OpenTelemetry tracing via OTLP.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: server name.
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317".
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" (default) or "http".
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Disable TLS for the exporter.
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0 to 1.0. Default: 1.0.
}

// CleanupConfig configures workspace retention. Workspaces hold the harness
// script, output artifacts, and result file of finished executions; without
// cleanup they accumulate for the server's lifetime.
type CleanupConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Schedule      string `json:"schedule" yaml:"schedule"`               // Cron expression or @every spec. Default: "@every 10m".
	MaxAgeMinutes int    `json:"max_age_minutes" yaml:"max_age_minutes"` // Delete workspaces older than this. Default: 60.
	MaxWorkspaces int    `json:"max_workspaces" yaml:"max_workspaces"`   // Keep at most this many, oldest first. 0 = no cap.
}

// MaxAge returns the workspace retention age as a duration.
func (c *CleanupConfig) MaxAge() time.Duration {
	if c == nil || c.MaxAgeMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Name: "rootmcp"},
		Execution: ExecutionConfig{
			TimeoutSeconds:   60,
			MaxOutputSize:    10_000_000,
			MaxCodeLength:    100_000,
			WorkingDirectory: "/tmp/rootmcp",
			Python:           "python3",
		},
	}
}

// DefaultConfigPath returns ~/.config/rootmcp/config.yaml, or a relative
// fallback when the home directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "rootmcp", "config.yaml")
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path, or the default path when no file exists there,
// yields the built-in defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err) && path == DefaultConfigPath():
			// Zero-config mode: the default location is optional.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv merges environment overrides. Env vars take precedence over
// config file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ROOTMCP_WORKDIR"); v != "" {
		cfg.Execution.WorkingDirectory = v
	}
	if v := os.Getenv("ROOTMCP_PYTHON"); v != "" {
		cfg.Execution.Python = v
	}
	if v := os.Getenv("ROOTMCP_DB_DSN"); v != "" {
		if cfg.Storage == nil {
			cfg.Storage = &StorageConfig{Driver: "postgres"}
		}
		if cfg.Storage.Postgres == nil {
			cfg.Storage.Postgres = &PostgresStorageConfig{}
		}
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("ROOTMCP_ENABLE_ROOT"); v != "" {
		cfg.Features.EnableRoot = strings.EqualFold(v, "true") || v == "1"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "rootmcp"
	}
	if cfg.Execution.TimeoutSeconds <= 0 {
		cfg.Execution.TimeoutSeconds = 60
	}
	if cfg.Execution.MaxOutputSize <= 0 {
		cfg.Execution.MaxOutputSize = 10_000_000
	}
	if cfg.Execution.MaxCodeLength <= 0 {
		cfg.Execution.MaxCodeLength = 100_000
	}
	if cfg.Execution.WorkingDirectory == "" {
		cfg.Execution.WorkingDirectory = "/tmp/rootmcp"
	}
	if cfg.Execution.Python == "" {
		cfg.Execution.Python = "python3"
	}
	if cfg.Cleanup != nil && cfg.Cleanup.Schedule == "" {
		cfg.Cleanup.Schedule = "@every 10m"
	}
	if obs := cfg.Observability; obs != nil {
		if obs.Metrics != nil && obs.Metrics.ListenAddr == "" {
			obs.Metrics.ListenAddr = ":9464"
		}
		if obs.Tracing != nil && obs.Tracing.SampleRate <= 0 {
			obs.Tracing.SampleRate = 1.0
		}
	}
}

// defaultConfigTemplate is the two-tier file written by `rootmcp init`.
const defaultConfigTemplate = `# rootmcp configuration
# ------------------------------------------------------
# QUICK START - edit only this section to get going
# ------------------------------------------------------

features:
  enable_root: false # set true once ROOT/PyROOT is installed

execution:
  timeout_seconds: 60
  working_directory: "/tmp/rootmcp"

# ------------------------------------------------------
# ADVANCED - change only if you need fine-tuning
# ------------------------------------------------------

# execution:
#   max_output_size: 10000000
#   max_code_length: 100000
#   python: "python3"

# policy:
#   extra_blocked_modules: []
#   extra_allowed_modules: []

# storage:
#   driver: "sqlite"
#   sqlite:
#     path: "/tmp/rootmcp/history.db"

# observability:
#   metrics:
#     enabled: true
#     listen_addr: ":9464"

# cleanup:
#   enabled: true
#   schedule: "@every 10m"
#   max_age_minutes: 60
#   max_workspaces: 500
`

// WriteDefault writes the commented default config file, creating parent
// directories as needed. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
