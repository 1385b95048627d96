package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/b2bhub/quoteflow/internal/store"
)

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("QUOTEFLOW_STATE_DIR", "")
	t.Setenv("QUOTEFLOW_LOG_LEVEL", "")
	t.Setenv("QUOTEFLOW_DEBUG", "")
	t.Setenv("SESSION_TTL", "")

	config := loadEnvironmentConfig()
	if config.StateDir != DefaultStateDir {
		t.Errorf("StateDir = %q, want %q", config.StateDir, DefaultStateDir)
	}
	want := filepath.Join(DefaultStateDir, DefaultDBFileName)
	if config.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q, want %q", config.DatabaseURL, want)
	}
	if config.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", config.LogLevel)
	}
}

func TestLoadEnvironmentConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://qf:qf@localhost/quoteflow")
	t.Setenv("QUOTEFLOW_STATE_DIR", "/tmp/qf-state")
	t.Setenv("QUOTEFLOW_LOG_LEVEL", "debug")

	config := loadEnvironmentConfig()
	if config.DatabaseURL != "postgres://qf:qf@localhost/quoteflow" {
		t.Errorf("DatabaseURL = %q", config.DatabaseURL)
	}
	if config.StateDir != "/tmp/qf-state" {
		t.Errorf("StateDir = %q", config.StateDir)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", config.LogLevel)
	}
}

func TestLoadEnvironmentConfigDebugToggle(t *testing.T) {
	t.Setenv("QUOTEFLOW_LOG_LEVEL", "warn")
	t.Setenv("QUOTEFLOW_DEBUG", "true")

	config := loadEnvironmentConfig()
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug when QUOTEFLOW_DEBUG is set", config.LogLevel)
	}
}

func TestBuildStoreOptionsClassifiesDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"postgres://qf:qf@localhost/quoteflow", "postgres"},
		{"host=localhost user=qf dbname=quoteflow", "postgres"},
		{"/var/lib/quoteflow/quoteflow.db", "sqlite"},
		{"quoteflow.db", "sqlite"},
	}
	for _, c := range cases {
		if got := store.DetectDSNType(c.dsn); got != c.want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", c.dsn, got, c.want)
		}
	}

	dsn := "sessions.db"
	ttl := time.Hour
	flags := Flags{dbDSN: &dsn, sessionTTL: &ttl}
	if opts := buildStoreOptions(flags); len(opts) != 2 {
		t.Errorf("len(opts) = %d, want DSN and TTL options", len(opts))
	}
}

func TestEnsureDirectoriesExist(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "nested", "state", "quoteflow.db")
	flags := Flags{dbDSN: &dsn}
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Fatalf("ensureDirectoriesExist failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Errorf("state directory missing: %v", err)
	}

	pg := "postgres://qf:qf@localhost/quoteflow"
	flags = Flags{dbDSN: &pg}
	if err := ensureDirectoriesExist(flags); err != nil {
		t.Errorf("postgres DSN should not create directories: %v", err)
	}
}
