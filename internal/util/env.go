package util

import "os"

// EnvOrDefault returns the named environment variable, falling back when it
// is unset or empty. Flags in cmd/gira use it for their default values.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
