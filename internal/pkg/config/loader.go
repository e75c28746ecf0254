// Package config loads settings from the environment without ever failing:
// a missing value yields the default, and an unparsable or invalid value
// yields the default plus a warning the caller logs and counts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is the outcome of loading one setting. Value holds the
// typed value (string, int, float64, bool or time.Duration) and is always usable.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString returns the variable's value, or def when it is unset or
// empty.
func LoadEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadEnvWithFallback loads a string setting checked by validate, which may
// be nil.
func LoadEnvWithFallback(key, def string, validate func(string) error) ConfigLoadResult {
	return load(key, def, func(s string) (string, error) { return s, nil }, validate)
}

// LoadEnvDuration loads a time.ParseDuration setting such as "90m".
func LoadEnvDuration(key string, def time.Duration, validate func(time.Duration) error) ConfigLoadResult {
	return load(key, def, time.ParseDuration, validate)
}

// LoadEnvInt loads a base-10 integer setting.
func LoadEnvInt(key string, def int, validate func(int) error) ConfigLoadResult {
	return load(key, def, strconv.Atoi, validate)
}

// LoadEnvFloat loads a float64 setting.
func LoadEnvFloat(key string, def float64, validate func(float64) error) ConfigLoadResult {
	return load(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, validate)
}

// LoadEnvBool loads a strconv.ParseBool setting: 1, t, true, 0, f, false
// and their upper-case forms.
func LoadEnvBool(key string, def bool) ConfigLoadResult {
	return load(key, def, strconv.ParseBool, nil)
}

func load[T any](key string, def T, parse func(string) (T, error), validate func(T) error) ConfigLoadResult {
	raw := os.Getenv(key)
	if raw == "" {
		return ConfigLoadResult{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return ConfigLoadResult{
			Value:           def,
			Warnings:        []string{fmt.Sprintf("invalid %s=%q: %v; using default %v", key, raw, err, def)},
			FallbackApplied: true,
		}
	}
	return ConfigLoadResult{Value: v}
}
