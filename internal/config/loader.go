package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the attendance service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	RefreshInterval  time.Duration
	SubscriberBuffer int
	SummaryCacheTTL  time.Duration
	RateRPS          float64
	RateBurst        int
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; invalid values are accumulated and
// reported together so operators can fix them in one pass.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:attendance.db",
		RefreshInterval:  time.Minute,
		SubscriberBuffer: 16,
		SummaryCacheTTL:  5 * time.Second,
		RateRPS:          20,
		RateBurst:        40,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ATTENDANCE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ATTENDANCE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ATTENDANCE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if intervalValue := strings.TrimSpace(os.Getenv("ATTENDANCE_REFRESH_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "ATTENDANCE_REFRESH_INTERVAL")
		} else {
			cfg.RefreshInterval = interval
		}
	}

	if bufferValue := strings.TrimSpace(os.Getenv("ATTENDANCE_SUBSCRIBER_BUFFER")); bufferValue != "" {
		buffer, err := strconv.Atoi(bufferValue)
		if err != nil || buffer <= 0 {
			invalid = append(invalid, "ATTENDANCE_SUBSCRIBER_BUFFER")
		} else {
			cfg.SubscriberBuffer = buffer
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ATTENDANCE_SUMMARY_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ATTENDANCE_SUMMARY_CACHE_TTL")
		} else {
			cfg.SummaryCacheTTL = ttl
		}
	}

	if rpsValue := strings.TrimSpace(os.Getenv("ATTENDANCE_RATE_RPS")); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "ATTENDANCE_RATE_RPS")
		} else {
			cfg.RateRPS = rps
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("ATTENDANCE_RATE_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "ATTENDANCE_RATE_BURST")
		} else {
			cfg.RateBurst = burst
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
