// Package config reads process configuration from the environment.
// Binaries call godotenv.Load first so a local .env file works in
// development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Janitor Constants
const (
	// JanitorSchedule is the cron spec for the scratch-directory sweep.
	JanitorSchedule = "@hourly"

	// TmpMaxAge is how long an orphaned scratch directory may survive.
	TmpMaxAge = 24 * time.Hour
)

// Get returns the env value or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns the env value parsed as int, or fallback when unset or
// unparseable.
func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// KafkaBrokers returns the broker list from KAFKA_BROKERS (comma separated).
func KafkaBrokers() []string {
	raw := Get("KAFKA_BROKERS", "localhost:9092")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StagePoolSize returns the worker pool size for a stage from
// <STAGE>_PROCESS, e.g. GENTLE_PROCESS=4. Zero disables the stage on this
// worker.
func StagePoolSize(stage string) int {
	return GetInt(strings.ToUpper(stage)+"_PROCESS", 1)
}
