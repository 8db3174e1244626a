package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))

	if v == "" {
		return defaultValue
	}

	return v
}

// GetEnvBool falls back to defaultValue when the variable is unset or not a bool.
func GetEnvBool(key string, defaultValue bool) bool {
	v := GetEnvTrimmed(key)
	if v == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// GetEnvPositiveInt64 ignores values that are not strictly positive.
func GetEnvPositiveInt64(key string, defaultValue int64) int64 {
	v := GetEnvTrimmed(key)
	if v == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

// GetEnvPositiveDuration ignores values that are not strictly positive.
func GetEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	v := GetEnvTrimmed(key)
	if v == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

// GetEnvList splits a comma separated variable, dropping blank items.
func GetEnvList(key string) []string {
	raw := GetEnvTrimmed(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}

	if len(items) == 0 {
		return nil
	}
	return items
}
