package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_HOST", "APP_PORT", "DOCKET_TIMEZONE", "REDIS_DB", "STORAGE_MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}
	t.Setenv("SLA_CACHE_TTL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", cfg.App.Addr())
	}
	if cfg.Redis.SLACacheTTL() != 5*time.Minute {
		t.Fatalf("unexpected sla cache ttl %s", cfg.Redis.SLACacheTTL())
	}
	loc, err := cfg.Docket.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC docket location, got %v (%v)", loc, err)
	}
	if cfg.Storage.MaxUploadBytes() != 20<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.Storage.MaxUploadBytes())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("DOCKET_TIMEZONE", "Asia/Kuala_Lumpur")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr %q", cfg.App.Addr())
	}
	if cfg.App.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.App.RequestTimeout())
	}
	if !cfg.Storage.UseSSL {
		t.Fatalf("expected ssl enabled")
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.Postgres.MaxConns)
	}
	loc, err := cfg.Docket.Location()
	if err != nil || loc.String() != "Asia/Kuala_Lumpur" {
		t.Fatalf("unexpected location %v (%v)", loc, err)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("DOCKET_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("DOCKET_TIMEZONE", "")
	t.Setenv("REDIS_DB", "x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}
