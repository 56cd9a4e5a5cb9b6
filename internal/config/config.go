// Package config loads runtime configuration from environment
// variables. Required variables halt startup when missing; policy
// tunables fall back to the documented defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/civicworks/facility-reservation/internal/booking"
)

// Config holds all runtime configuration for the API server.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional, empty allowed
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int // access token TTL in minutes
	RefreshTTLDays int // refresh token TTL in days

	// Policy carries the reservation policy knobs: booking window,
	// active quota and reschedule cutoff.
	Policy booking.PolicyConfig
}

// Load reads configuration from the environment.
func Load() Config {
	def := booking.DefaultPolicyConfig()
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		Policy: booking.PolicyConfig{
			BookingWindowDays:    envInt("BOOKING_WINDOW_DAYS", def.BookingWindowDays),
			ActiveQuota:          envInt("ACTIVE_QUOTA", def.ActiveQuota),
			QuotaWindowDays:      envInt("QUOTA_WINDOW_DAYS", def.QuotaWindowDays),
			RescheduleCutoffDays: envInt("RESCHEDULE_CUTOFF_DAYS", def.RescheduleCutoffDays),
		},
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
