package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Name != "rootmcp" {
		t.Errorf("server name = %q, want rootmcp", cfg.Server.Name)
	}
	if cfg.Execution.TimeoutSeconds != 60 {
		t.Errorf("timeout = %d, want 60", cfg.Execution.TimeoutSeconds)
	}
	if cfg.Execution.MaxOutputSize != 10_000_000 {
		t.Errorf("max output size = %d, want 10_000_000", cfg.Execution.MaxOutputSize)
	}
	if cfg.Execution.MaxCodeLength != 100_000 {
		t.Errorf("max code length = %d, want 100_000", cfg.Execution.MaxCodeLength)
	}
	if cfg.Storage != nil || cfg.Observability != nil || cfg.Cleanup != nil {
		t.Error("optional sub-configs should default to nil (disabled)")
	}
}

func TestLoadMissingDefaultPathUsesDefaults(t *testing.T) {
	cfg, err := Load(DefaultConfigPath())
	if err != nil {
		// A broken real config at the default path is not this test's concern.
		t.Skipf("default config path unusable: %v", err)
	}
	if cfg == nil {
		t.Fatal("config is nil")
	}
	if cfg.Execution.Python == "" {
		t.Error("python interpreter default not applied")
	}
}

func TestLoadExplicitMissingPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for explicitly named missing file")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  name: physics-mcp
execution:
  timeout_seconds: 120
  working_directory: /var/lib/rootmcp
features:
  enable_root: true
policy:
  extra_blocked_modules: [pickle]
storage:
  driver: sqlite
cleanup:
  enabled: true
  max_age_minutes: 30
observability:
  metrics:
    enabled: true
  tracing:
    enabled: true
    endpoint: localhost:4317
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Name != "physics-mcp" {
		t.Errorf("server name = %q, want physics-mcp", cfg.Server.Name)
	}
	if cfg.Execution.TimeoutSeconds != 120 {
		t.Errorf("timeout = %d, want 120", cfg.Execution.TimeoutSeconds)
	}
	if got := cfg.Execution.Timeout().Seconds(); got != 120 {
		t.Errorf("Timeout() = %vs, want 120s", got)
	}
	if !cfg.Features.EnableRoot {
		t.Error("enable_root not parsed")
	}
	if len(cfg.Policy.ExtraBlockedModules) != 1 || cfg.Policy.ExtraBlockedModules[0] != "pickle" {
		t.Errorf("extra blocked modules = %v, want [pickle]", cfg.Policy.ExtraBlockedModules)
	}
	// Unset fields inside a present file still get defaults.
	if cfg.Execution.MaxOutputSize != 10_000_000 {
		t.Errorf("max output size = %d, want default", cfg.Execution.MaxOutputSize)
	}
	if cfg.Cleanup == nil || cfg.Cleanup.Schedule != "@every 10m" {
		t.Errorf("cleanup schedule default not applied: %+v", cfg.Cleanup)
	}
	if cfg.Cleanup.MaxAge().Minutes() != 30 {
		t.Errorf("max age = %v, want 30m", cfg.Cleanup.MaxAge())
	}
	if cfg.Observability.Metrics.ListenAddr != ":9464" {
		t.Errorf("metrics listen addr = %q, want :9464 default", cfg.Observability.Metrics.ListenAddr)
	}
	if cfg.Observability.Tracing.SampleRate != 1.0 {
		t.Errorf("sample rate = %v, want 1.0 default", cfg.Observability.Tracing.SampleRate)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROOTMCP_WORKDIR", "/custom/work")
	t.Setenv("ROOTMCP_PYTHON", "python3.12")
	t.Setenv("ROOTMCP_DB_DSN", "postgres://u:p@localhost/rootmcp")
	t.Setenv("ROOTMCP_ENABLE_ROOT", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Execution.WorkingDirectory != "/custom/work" {
		t.Errorf("working directory = %q, want env override", cfg.Execution.WorkingDirectory)
	}
	if cfg.Execution.Python != "python3.12" {
		t.Errorf("python = %q, want env override", cfg.Execution.Python)
	}
	if cfg.Storage == nil || cfg.Storage.Postgres == nil {
		t.Fatal("DSN env var did not enable postgres storage")
	}
	if cfg.Storage.Postgres.DSN != "postgres://u:p@localhost/rootmcp" {
		t.Errorf("dsn = %q, want env value", cfg.Storage.Postgres.DSN)
	}
	if cfg.Storage.StorageDriver() != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Storage.StorageDriver())
	}
	if !cfg.Features.EnableRoot {
		t.Error("enable_root env override not applied")
	}
}

func TestStorageDriverDefaults(t *testing.T) {
	var nilStorage *StorageConfig
	if got := nilStorage.StorageDriver(); got != "sqlite" {
		t.Errorf("nil storage driver = %q, want sqlite", got)
	}
	if got := (&StorageConfig{}).StorageDriver(); got != "sqlite" {
		t.Errorf("empty storage driver = %q, want sqlite", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "enable_root") {
		t.Error("template missing enable_root knob")
	}

	// The written template must load cleanly.
	if _, err := Load(path); err != nil {
		t.Errorf("generated config does not load: %v", err)
	}

	// Refuses to overwrite.
	if err := WriteDefault(path); err == nil {
		t.Error("expected error on existing file")
	}
}
