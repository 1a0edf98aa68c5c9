package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBoolWithFallback(key string, fallback bool) bool {
	switch strings.ToLower(envString(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envPositiveIntWithFallback(key string, fallback int) int {
	parsed, err := strconv.Atoi(envString(key))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envPositiveFloatWithFallback(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(envString(key), 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envDurationWithFallback accepts Go durations ("90s") or bare seconds.
func envDurationWithFallback(key string, fallback time.Duration) time.Duration {
	raw := envString(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
