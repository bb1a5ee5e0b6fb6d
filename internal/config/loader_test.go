package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:attendance.db" {
		t.Fatalf("unexpected default dsn: %s", cfg.SQLiteDSN)
	}
	if cfg.RefreshInterval != time.Minute {
		t.Fatalf("unexpected default refresh interval: %s", cfg.RefreshInterval)
	}
	if cfg.SubscriberBuffer != 16 {
		t.Fatalf("unexpected default subscriber buffer: %d", cfg.SubscriberBuffer)
	}
	if cfg.SummaryCacheTTL != 5*time.Second {
		t.Fatalf("unexpected default cache ttl: %s", cfg.SummaryCacheTTL)
	}
	if cfg.RateRPS != 20 || cfg.RateBurst != 40 {
		t.Fatalf("unexpected default rate limits: %f/%d", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ATTENDANCE_HTTP_PORT", "9090")
	t.Setenv("ATTENDANCE_SQLITE_DSN", "file:custom.db?cache=shared")
	t.Setenv("ATTENDANCE_REFRESH_INTERVAL", "30s")
	t.Setenv("ATTENDANCE_SUBSCRIBER_BUFFER", "64")
	t.Setenv("ATTENDANCE_SUMMARY_CACHE_TTL", "10s")
	t.Setenv("ATTENDANCE_RATE_RPS", "5.5")
	t.Setenv("ATTENDANCE_RATE_BURST", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:custom.db?cache=shared" {
		t.Fatalf("unexpected dsn: %s", cfg.SQLiteDSN)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("unexpected refresh interval: %s", cfg.RefreshInterval)
	}
	if cfg.SubscriberBuffer != 64 {
		t.Fatalf("unexpected subscriber buffer: %d", cfg.SubscriberBuffer)
	}
	if cfg.SummaryCacheTTL != 10*time.Second {
		t.Fatalf("unexpected cache ttl: %s", cfg.SummaryCacheTTL)
	}
	if cfg.RateRPS != 5.5 || cfg.RateBurst != 10 {
		t.Fatalf("unexpected rate limits: %f/%d", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoadAccumulatesInvalidValues(t *testing.T) {
	t.Setenv("ATTENDANCE_HTTP_PORT", "not-a-port")
	t.Setenv("ATTENDANCE_REFRESH_INTERVAL", "-5s")
	t.Setenv("ATTENDANCE_RATE_BURST", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for invalid values")
	}

	for _, name := range []string{"ATTENDANCE_HTTP_PORT", "ATTENDANCE_REFRESH_INTERVAL", "ATTENDANCE_RATE_BURST"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected error to name %s, got %v", name, err)
		}
	}
}
