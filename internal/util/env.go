// Package util holds small shared helpers.
package util

import (
	"log/slog"
	"os"
	"strconv"
)

// GetEnvOrDefault returns the environment variable value, or def when
// unset or empty.
func GetEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBoolEnv parses a boolean environment variable, returning def when
// unset or malformed.
func ParseBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}
