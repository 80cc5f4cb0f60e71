package janitor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rootmcp/rootmcp/internal/config"
)

func newTestJanitor(t *testing.T, baseDir string, cfg *config.CleanupConfig) *Janitor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	j := New(cfg, baseDir, nil, logger)
	if j == nil {
		t.Fatal("janitor is nil for an enabled config")
	}
	return j
}

func makeWorkspace(t *testing.T, baseDir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(baseDir, name)
	if err := os.MkdirAll(path, 0750); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if New(nil, "/tmp", nil, logger) != nil {
		t.Error("nil config should disable the janitor")
	}
	if New(&config.CleanupConfig{Enabled: false}, "/tmp", nil, logger) != nil {
		t.Error("disabled config should disable the janitor")
	}

	// Nil janitor lifecycle is safe.
	var j *Janitor
	if err := j.Start(); err != nil {
		t.Errorf("nil Start: %v", err)
	}
	j.Stop()
}

func TestSweepByAge(t *testing.T) {
	base := t.TempDir()
	old := makeWorkspace(t, base, "exec_old", 2*time.Hour)
	fresh := makeWorkspace(t, base, "exec_fresh", time.Minute)
	// Non-workspace entries are never touched.
	stray := makeWorkspace(t, base, "history", 10*time.Hour)

	j := newTestJanitor(t, base, &config.CleanupConfig{Enabled: true, MaxAgeMinutes: 60})

	deleted, err := j.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired workspace still exists")
	}
	for _, path := range []string{fresh, stray} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s was deleted, want kept", path)
		}
	}
}

func TestSweepByCap(t *testing.T) {
	base := t.TempDir()
	oldest := makeWorkspace(t, base, "exec_a", 30*time.Minute)
	makeWorkspace(t, base, "exec_b", 20*time.Minute)
	makeWorkspace(t, base, "exec_c", 10*time.Minute)

	j := newTestJanitor(t, base, &config.CleanupConfig{
		Enabled:       true,
		MaxAgeMinutes: 600, // nothing expires by age
		MaxWorkspaces: 2,
	})

	deleted, err := j.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1 (cap overflow)", deleted)
	}
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Error("oldest workspace survived cap enforcement")
	}
}

func TestSweepMissingBase(t *testing.T) {
	j := newTestJanitor(t, filepath.Join(t.TempDir(), "nope"), &config.CleanupConfig{Enabled: true})
	deleted, err := j.Sweep()
	if err != nil || deleted != 0 {
		t.Errorf("Sweep on missing base = (%d, %v), want (0, nil)", deleted, err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := newTestJanitor(t, t.TempDir(), &config.CleanupConfig{Enabled: true, Schedule: "not a schedule"})
	if err := j.Start(); err == nil {
		j.Stop()
		t.Error("expected error for invalid cron expression")
	}
}
