package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var configKeys = []string{
	"SERVER_PORT", "CABINS", "TIMEZONE", "STEP_MINUTES", "METRICS_ADDR",
	"APPEND_RETRIES", "APPEND_BACKOFF_MS", "RELOAD_MODELS_EACH_CYCLE",
	"MODEL_STATUS_PATH", "MODEL_TEMPERATURE_PATH", "MODEL_FANSPEED_PATH", "MODEL_MODE_PATH",
	"RESULTS_CSV", "DB_DSN", "REDIS_URL", "REDIS_CHANNEL", "CACHE_TTL_SEC",
	"MQTT_URL", "MQTT_TOPIC_PREFIX", "MQTT_CLIENT_ID",
	"JWT_SECRET", "JWT_EXPIRY_HOURS", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_CONFIG_VAR", "")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}

	t.Setenv("TEST_CONFIG_VAR", "custom")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want %q", got, "custom")
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Run("fallback when unset", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 8080 {
			t.Errorf("getIntEnv() = %d, want %d", got, 8080)
		}
	})

	t.Run("parses valid int", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "9090")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 9090 {
			t.Errorf("getIntEnv() = %d, want %d", got, 9090)
		}
	})

	t.Run("error on invalid int", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "not_int")
		if _, err := getIntEnv("TEST_INT_VAR", 8080); err == nil {
			t.Error("expected error for invalid int value")
		}
	})
}

func TestParseCabins(t *testing.T) {
	got, err := parseCabins(" 1, 2,,3 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("parseCabins() = %v, want [1 2 3]", got)
	}

	if _, err := parseCabins("1,x"); err == nil {
		t.Error("expected error for non-numeric cabin")
	}
	if _, err := parseCabins(" , "); err == nil {
		t.Error("expected error for empty cabin list")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Scheduler.Cabins) != 3 {
		t.Errorf("Scheduler.Cabins = %v, want [1 2 3]", cfg.Scheduler.Cabins)
	}
	if cfg.Scheduler.Location.String() != "Asia/Kolkata" {
		t.Errorf("Scheduler.Location = %q, want Asia/Kolkata", cfg.Scheduler.Location)
	}
	if cfg.Scheduler.Step() != 5*time.Minute {
		t.Errorf("Scheduler.Step() = %s, want 5m", cfg.Scheduler.Step())
	}
	if cfg.Scheduler.ReloadModels {
		t.Error("Scheduler.ReloadModels should default to false")
	}
	if cfg.Models.StatusPath != "artifacts/status.json" {
		t.Errorf("Models.StatusPath = %q", cfg.Models.StatusPath)
	}
	if cfg.Store.ResultsCSV != "results_1.csv" {
		t.Errorf("Store.ResultsCSV = %q, want results_1.csv", cfg.Store.ResultsCSV)
	}
	if cfg.Database.Enabled() || cfg.Redis.Enabled() || cfg.MQTT.Enabled() || cfg.JWT.Enabled() {
		t.Error("optional integrations should be disabled by default")
	}
	if cfg.Redis.Channel != "hvac:rows" {
		t.Errorf("Redis.Channel = %q, want hvac:rows", cfg.Redis.Channel)
	}
	if cfg.JWT.ExpiryHours != 24 {
		t.Errorf("JWT.ExpiryHours = %d, want 24", cfg.JWT.ExpiryHours)
	}
	if cfg.CORS.AllowedOrigins != "*" {
		t.Errorf("CORS.AllowedOrigins = %q, want %q", cfg.CORS.AllowedOrigins, "*")
	}
}

func TestLoadConfigCustom(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("CABINS", "7,9")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("STEP_MINUTES", "15")
	t.Setenv("RELOAD_MODELS_EACH_CYCLE", "true")
	t.Setenv("APPEND_BACKOFF_MS", "250")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_EXPIRY_HOURS", "48")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if len(cfg.Scheduler.Cabins) != 2 || cfg.Scheduler.Cabins[1] != 9 {
		t.Errorf("Scheduler.Cabins = %v, want [7 9]", cfg.Scheduler.Cabins)
	}
	if cfg.Scheduler.Location != time.UTC {
		t.Errorf("Scheduler.Location = %v, want UTC", cfg.Scheduler.Location)
	}
	if cfg.Scheduler.Step() != 15*time.Minute {
		t.Errorf("Scheduler.Step() = %s, want 15m", cfg.Scheduler.Step())
	}
	if !cfg.Scheduler.ReloadModels {
		t.Error("Scheduler.ReloadModels should be true")
	}
	if cfg.Scheduler.AppendBackoff() != 250*time.Millisecond {
		t.Errorf("Scheduler.AppendBackoff() = %s, want 250ms", cfg.Scheduler.AppendBackoff())
	}
	if !cfg.Redis.Enabled() {
		t.Error("Redis should be enabled when REDIS_URL is set")
	}
	if cfg.JWT.ExpiryHours != 48 {
		t.Errorf("JWT.ExpiryHours = %d, want 48", cfg.JWT.ExpiryHours)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":              "invalid",
		"CABINS":                   "a,b",
		"TIMEZONE":                 "Mars/Olympus",
		"STEP_MINUTES":             "7",
		"APPEND_RETRIES":           "-1",
		"RELOAD_MODELS_EACH_CYCLE": "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"})
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %s, want debug", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", logger.Formatter)
	}

	fallback := NewLogger(LogConfig{Level: "loud"})
	if fallback.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %s, want info", fallback.GetLevel())
	}
}
