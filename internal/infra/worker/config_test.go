package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// globalTestMetrics is shared by the package tests; the metrics register
// with the default Prometheus registry and can only be created once.
var globalTestMetrics = NewWorkerMetrics()

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CronSchedule != "0 4 * * *" {
		t.Errorf("Expected CronSchedule '0 4 * * *', got '%s'", config.CronSchedule)
	}
	if config.Timezone != "America/New_York" {
		t.Errorf("Expected Timezone 'America/New_York', got '%s'", config.Timezone)
	}
	if config.RunTimeout != 2*time.Hour {
		t.Errorf("Expected RunTimeout 2h, got %v", config.RunTimeout)
	}
	if config.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", config.HealthPort)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestDefaultConfig_Immutability(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	config1.CronSchedule = "0 6 * * *"

	if config2.CronSchedule != "0 4 * * *" {
		t.Error("DefaultConfig returned a shared instance instead of a new one")
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{name: "valid custom", mutate: func(c *WorkerConfig) { c.CronSchedule = "0 */6 * * *"; c.Timezone = "UTC" }},
		{name: "bad cron", mutate: func(c *WorkerConfig) { c.CronSchedule = "every night" }, wantErr: "cron schedule"},
		{name: "bad timezone", mutate: func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "timeout too short", mutate: func(c *WorkerConfig) { c.RunTimeout = 30 * time.Second }, wantErr: "run timeout"},
		{name: "timeout too long", mutate: func(c *WorkerConfig) { c.RunTimeout = 24 * time.Hour }, wantErr: "run timeout"},
		{name: "privileged port", mutate: func(c *WorkerConfig) { c.HealthPort = 80 }, wantErr: "health port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestWorkerConfig_Validate_CollectsAllErrors(t *testing.T) {
	config := WorkerConfig{CronSchedule: "bad", Timezone: "bad", RunTimeout: 0, HealthPort: 0}

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected error for zero config")
	}
	for _, field := range []string{"cron schedule", "timezone", "run timeout", "health port"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected error to mention %q, got: %v", field, err)
		}
	}
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	t.Setenv("CRON_SCHEDULE", "30 2 * * 1")
	t.Setenv("WORKER_TIMEZONE", "UTC")
	t.Setenv("RUN_TIMEOUT", "90m")
	t.Setenv("WORKER_HEALTH_PORT", "8081")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	config, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.CronSchedule != "30 2 * * 1" {
		t.Errorf("Expected CronSchedule '30 2 * * 1', got '%s'", config.CronSchedule)
	}
	if config.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", config.Timezone)
	}
	if config.RunTimeout != 90*time.Minute {
		t.Errorf("Expected RunTimeout 90m, got %v", config.RunTimeout)
	}
	if config.HealthPort != 8081 {
		t.Errorf("Expected HealthPort 8081, got %d", config.HealthPort)
	}
	if buf.Len() > 0 {
		t.Errorf("Expected no warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
		check func(*WorkerConfig) bool
	}{
		{"invalid cron", "CRON_SCHEDULE", "not a cron", "cron_schedule",
			func(c *WorkerConfig) bool { return c.CronSchedule == "0 4 * * *" }},
		{"invalid timezone", "WORKER_TIMEZONE", "Nowhere/City", "timezone",
			func(c *WorkerConfig) bool { return c.Timezone == "America/New_York" }},
		{"unparsable timeout", "RUN_TIMEOUT", "soon", "run_timeout",
			func(c *WorkerConfig) bool { return c.RunTimeout == 2*time.Hour }},
		{"timeout out of range", "RUN_TIMEOUT", "13h", "run_timeout",
			func(c *WorkerConfig) bool { return c.RunTimeout == 2*time.Hour }},
		{"port out of range", "WORKER_HEALTH_PORT", "70000", "health_port",
			func(c *WorkerConfig) bool { return c.HealthPort == 9091 }},
		{"port not a number", "WORKER_HEALTH_PORT", "ninety", "health_port",
			func(c *WorkerConfig) bool { return c.HealthPort == 9091 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			config, err := LoadConfigFromEnv(logger, globalTestMetrics)
			if err != nil {
				t.Fatalf("Expected no error (fail-open), got: %v", err)
			}
			if !tt.check(config) {
				t.Errorf("Expected default value for %s, got %+v", tt.field, config)
			}

			logs := buf.String()
			if !strings.Contains(logs, "Configuration fallback applied") {
				t.Errorf("Expected fallback warning, got: %s", logs)
			}
			if !strings.Contains(logs, tt.field) {
				t.Errorf("Expected warning to name field %s, got: %s", tt.field, logs)
			}
		})
	}
}
