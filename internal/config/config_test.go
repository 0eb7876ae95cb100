package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("WATCHDOG_WINDOW", "")
	t.Setenv("SAVED_REVERT", "")
	t.Setenv("ERROR_REVERT", "")
	t.Setenv("CACHE_LOOKUP", "")

	cfg := Load()
	if cfg.BackendURL != "http://localhost:8000" {
		t.Fatalf("expected default backend url, got %q", cfg.BackendURL)
	}
	if cfg.WatchdogWindow != 90*time.Second {
		t.Fatalf("expected default watchdog window 90s, got %s", cfg.WatchdogWindow)
	}
	if cfg.SavedRevert != 1500*time.Millisecond {
		t.Fatalf("expected default saved revert 1.5s, got %s", cfg.SavedRevert)
	}
	if cfg.ErrorRevert != 3*time.Second {
		t.Fatalf("expected default error revert 3s, got %s", cfg.ErrorRevert)
	}
	if !cfg.CacheLookup {
		t.Fatal("expected cache lookup enabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://classify.internal:8443")
	t.Setenv("WATCHDOG_WINDOW", "45s")
	t.Setenv("BATCH_MAX_ROWS", "250")
	t.Setenv("CACHE_STORE", "false")
	t.Setenv("NATS_DISABLED", "true")

	cfg := Load()
	if cfg.BackendURL != "https://classify.internal:8443" {
		t.Fatalf("expected backend url override, got %q", cfg.BackendURL)
	}
	if cfg.WatchdogWindow != 45*time.Second {
		t.Fatalf("expected watchdog window 45s, got %s", cfg.WatchdogWindow)
	}
	if cfg.BatchMaxRows != 250 {
		t.Fatalf("expected batch max rows 250, got %d", cfg.BatchMaxRows)
	}
	if cfg.CacheStore {
		t.Fatal("expected cache store disabled by override")
	}
	if !cfg.NATSDisabled {
		t.Fatal("expected nats disabled by override")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WATCHDOG_WINDOW", "not-a-duration")
	t.Setenv("BATCH_MAX_ROWS", "many")
	t.Setenv("CACHE_LOOKUP", "maybe")

	cfg := Load()
	if cfg.WatchdogWindow != 90*time.Second {
		t.Fatalf("malformed duration must fall back, got %s", cfg.WatchdogWindow)
	}
	if cfg.BatchMaxRows != 5000 {
		t.Fatalf("malformed int must fall back, got %d", cfg.BatchMaxRows)
	}
	if !cfg.CacheLookup {
		t.Fatal("malformed bool must fall back")
	}
}
