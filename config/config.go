package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

func loadEnv() {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "No .env file loaded: %v\n", err)
		}
	})
}

// Config returns a required environment variable and exits if it is unset.
func Config(envVar string) string {
	loadEnv()

	envVarValue := os.Getenv(envVar)
	if envVarValue == "" {
		fmt.Fprintf(os.Stderr, "%s not set\n", envVar)
		os.Exit(1)
	}

	return envVarValue
}

// ConfigDefault returns an environment variable or the given fallback.
func ConfigDefault(envVar, fallback string) string {
	loadEnv()

	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// ConfigBool parses a boolean environment variable, falling back on the
// given default when unset or malformed.
func ConfigBool(envVar string, fallback bool) bool {
	loadEnv()

	v := os.Getenv(envVar)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
