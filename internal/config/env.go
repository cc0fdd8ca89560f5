// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/relay-extension/internal/log"
)

// lookupEnv returns the trimmed value of key. Unset and blank variables both
// report ok=false so the caller keeps its current value.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "dsn") || strings.Contains(k, "token")
}

func logEnvOverride(key, value string) {
	logger := log.WithComponent("config")
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
}

func invalidEnv(key, value, want string, err error) error {
	return fmt.Errorf("%w: %s=%q is not a valid %s: %v", ErrInvalidConfig, key, value, want, err)
}

// ParseString returns the value of key, or current when it is unset or blank.
// Values of DSN and token keys are never logged.
func ParseString(key, current string) string {
	v, ok := lookupEnv(key)
	if !ok {
		return current
	}
	logEnvOverride(key, v)
	return v
}

// ParseDuration reads a Go duration such as "5s". A malformed value is an
// ErrInvalidConfig error, matching how the YAML file is treated.
func ParseDuration(key string, current time.Duration) (time.Duration, error) {
	v, ok := lookupEnv(key)
	if !ok {
		return current, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return current, invalidEnv(key, v, "duration", err)
	}
	logEnvOverride(key, v)
	return d, nil
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, current bool) (bool, error) {
	v, ok := lookupEnv(key)
	if !ok {
		return current, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		logEnvOverride(key, v)
		return true, nil
	case "false", "0", "no":
		logEnvOverride(key, v)
		return false, nil
	}
	return current, invalidEnv(key, v, "boolean", fmt.Errorf("want true/false, 1/0 or yes/no"))
}

// ParseFloat reads a decimal number.
func ParseFloat(key string, current float64) (float64, error) {
	v, ok := lookupEnv(key)
	if !ok {
		return current, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return current, invalidEnv(key, v, "number", err)
	}
	logEnvOverride(key, v)
	return f, nil
}
