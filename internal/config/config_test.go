package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("PORT", "")

	cfg := FromEnv()
	if cfg.DBName != "homekitchen" {
		t.Fatalf("expected default db name, got %q", cfg.DBName)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("expected 5s request timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.Port != "3000" {
		t.Fatalf("expected default port 3000, got %q", cfg.Port)
	}
}

func TestGetDurationEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL", "-4")
	if got := getDurationEnv("CATALOG_CACHE_TTL", 60, time.Second); got != time.Minute {
		t.Fatalf("expected fallback of 1m, got %v", got)
	}

	t.Setenv("CATALOG_CACHE_TTL", "abc")
	if got := getDurationEnv("CATALOG_CACHE_TTL", 60, time.Second); got != time.Minute {
		t.Fatalf("expected fallback of 1m, got %v", got)
	}

	t.Setenv("CATALOG_CACHE_TTL", "15")
	if got := getDurationEnv("CATALOG_CACHE_TTL", 60, time.Second); got != 15*time.Second {
		t.Fatalf("expected 15s, got %v", got)
	}
}
