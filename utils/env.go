package utils

import (
	"os"
	"strconv"
)

const (
	// ArmNameEnvVar overrides the configured arm name. It names the run folder.
	ArmNameEnvVar = "PALPCAL_ARM"

	// DataDirEnvVar overrides the directory run folders are created in.
	DataDirEnvVar = "PALPCAL_DATA_DIR"

	// DefaultDataDir is where run folders go when nothing else is configured.
	DefaultDataDir = "data"
)

// GetEnvOrDefault returns the value of the environment variable key, or
// defaultValue when it is unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvFloatOrDefault is GetEnvOrDefault for float values. Unparseable values
// fall back to the default.
func GetEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
