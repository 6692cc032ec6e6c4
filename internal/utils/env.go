package utils

import (
	"log"
	"os"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// SafeEnvDuration parses key with time.ParseDuration. Unset or invalid values
// yield fallback; invalid ones are logged.
func SafeEnvDuration(key string, fallback time.Duration) time.Duration {
	v := SafeEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("env: invalid duration %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

// SafeEnvList splits a comma separated value, dropping empty entries.
func SafeEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
