package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultInstance = "work"
	cfg.Server.RedisURL = "redis://localhost:6379/0"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Poll.Fast = Duration{500 * time.Millisecond}
	cfg.Client.Token = "secret"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultInstance != "work" {
		t.Errorf("DefaultInstance = %q, want %q", loaded.DefaultInstance, "work")
	}
	if loaded.Poll.Fast.Duration != 500*time.Millisecond {
		t.Errorf("Poll.Fast = %v, want 500ms", loaded.Poll.Fast)
	}
	if loaded.Server.RedisURL != cfg.Server.RedisURL || loaded.Client.Token != "secret" {
		t.Errorf("loaded = %+v", loaded)
	}
	if !slices.Equal(loaded.Server.AllowedOrigins, cfg.Server.AllowedOrigins) {
		t.Errorf("AllowedOrigins = %v", loaded.Server.AllowedOrigins)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[poll]\nbackground = \"10s\"\nauto_seen = false\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Poll.Background.Duration != 10*time.Second {
		t.Errorf("Background = %v, want 10s", cfg.Poll.Background)
	}
	if cfg.Poll.Fast.Duration != time.Second || cfg.Poll.Recheck.Duration != time.Second {
		t.Errorf("unset intervals not defaulted: %+v", cfg.Poll)
	}
	if cfg.Poll.AutoSeen || !cfg.Poll.AutoDelivered {
		t.Errorf("auto receipts = delivered %v seen %v", cfg.Poll.AutoDelivered, cfg.Poll.AutoSeen)
	}
	if cfg.DefaultInstance != DefaultInstance || cfg.Server.PageSize != DefaultPageSize {
		t.Errorf("defaults missing: %+v", cfg)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[poll]\nfast = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for bad duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.DefaultInstance != DefaultInstance {
		t.Errorf("DefaultInstance = %q", cfg.DefaultInstance)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
