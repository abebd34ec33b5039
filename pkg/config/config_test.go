package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Monitor.ProbeInterval != 30*time.Second {
		t.Errorf("Monitor.ProbeInterval = %v, want 30s", cfg.Monitor.ProbeInterval)
	}
	if cfg.Monitor.Mode != "polling" {
		t.Errorf("Monitor.Mode = %q, want polling", cfg.Monitor.Mode)
	}
	if !cfg.Monitor.AutoRemediate {
		t.Error("Monitor.AutoRemediate = false, want true")
	}
	if cfg.Monitor.MaxConcurrentProbes != 4 {
		t.Errorf("Monitor.MaxConcurrentProbes = %d, want 4", cfg.Monitor.MaxConcurrentProbes)
	}
	if cfg.Monitor.TokenSource != "" {
		t.Errorf("Monitor.TokenSource = %q, want disabled by default", cfg.Monitor.TokenSource)
	}
	if cfg.Security.AuthEnabled {
		t.Error("Security.AuthEnabled = true, want false by default")
	}
}

func TestLoadRejectsNonPositiveProbeSlots(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_PROBES", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for zero MAX_CONCURRENT_PROBES")
	}
}

func TestLoadAuthRequiresToken(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_BEARER_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error when auth enabled without token")
	}
}

func TestLoadEventModeRequiresWatchPaths(t *testing.T) {
	t.Setenv("SCHEDULE_MODE", "event")
	t.Setenv("WATCH_PATHS", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for event mode without watch paths")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("PROBE_INTERVAL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for malformed PROBE_INTERVAL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROBE_INTERVAL", "5s")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.ProbeInterval != 5*time.Second {
		t.Errorf("Monitor.ProbeInterval = %v, want 5s", cfg.Monitor.ProbeInterval)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("Redis = %+v, want enabled at cache:6379", cfg.Redis)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.Security.AllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.Security.AllowedOrigins[i] != origin {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.Security.AllowedOrigins[i], origin)
		}
	}
}
