package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Scheduler SchedulerConfig
	Models    ModelsConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type SchedulerConfig struct {
	Cabins          []int
	TimeZone        string
	Location        *time.Location
	StepMinutes     int
	MetricsAddr     string
	AppendRetries   int
	AppendBackoffMS int
	ReloadModels    bool
}

// Step is the prediction interval.
func (s SchedulerConfig) Step() time.Duration {
	return time.Duration(s.StepMinutes) * time.Minute
}

func (s SchedulerConfig) AppendBackoff() time.Duration {
	return time.Duration(s.AppendBackoffMS) * time.Millisecond
}

type ModelsConfig struct {
	StatusPath      string
	TemperaturePath string
	FanSpeedPath    string
	ModePath        string
}

type StoreConfig struct {
	ResultsCSV string
}

type DatabaseConfig struct {
	DSN string
}

func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

type RedisConfig struct {
	URL         string
	Channel     string
	CacheTTLSec int
}

func (r RedisConfig) Enabled() bool { return r.URL != "" }

func (r RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSec) * time.Second
}

type MQTTConfig struct {
	URL         string
	TopicPrefix string
	ClientID    string
}

func (m MQTTConfig) Enabled() bool { return m.URL != "" }

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

func (j JWTConfig) Enabled() bool { return j.Secret != "" }

type CORSConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads the environment, after loading a .env file when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cabins, err := parseCabins(getEnv("CABINS", "1,2,3"))
	if err != nil {
		return nil, fmt.Errorf("invalid CABINS: %w", err)
	}
	tz := getEnv("TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	step, err := getIntEnv("STEP_MINUTES", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid STEP_MINUTES: %w", err)
	}
	if step <= 0 || (24*60)%step != 0 {
		return nil, fmt.Errorf("invalid STEP_MINUTES: %d does not divide a day", step)
	}
	retries, err := getIntEnv("APPEND_RETRIES", 5)
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid APPEND_RETRIES: %q", os.Getenv("APPEND_RETRIES"))
	}
	backoff, err := getIntEnv("APPEND_BACKOFF_MS", 500)
	if err != nil || backoff < 0 {
		return nil, fmt.Errorf("invalid APPEND_BACKOFF_MS: %q", os.Getenv("APPEND_BACKOFF_MS"))
	}
	reload, err := getBoolEnv("RELOAD_MODELS_EACH_CYCLE", false)
	if err != nil {
		return nil, fmt.Errorf("invalid RELOAD_MODELS_EACH_CYCLE: %w", err)
	}
	cacheTTL, err := getIntEnv("CACHE_TTL_SEC", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SEC: %w", err)
	}
	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Scheduler: SchedulerConfig{
			Cabins:          cabins,
			TimeZone:        tz,
			Location:        loc,
			StepMinutes:     step,
			MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
			AppendRetries:   retries,
			AppendBackoffMS: backoff,
			ReloadModels:    reload,
		},
		Models: ModelsConfig{
			StatusPath:      getEnv("MODEL_STATUS_PATH", "artifacts/status.json"),
			TemperaturePath: getEnv("MODEL_TEMPERATURE_PATH", "artifacts/temperature.json"),
			FanSpeedPath:    getEnv("MODEL_FANSPEED_PATH", "artifacts/fanspeed.json"),
			ModePath:        getEnv("MODEL_MODE_PATH", "artifacts/mode.json"),
		},
		Store: StoreConfig{
			ResultsCSV: getEnv("RESULTS_CSV", "results_1.csv"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			Channel:     getEnv("REDIS_CHANNEL", "hvac:rows"),
			CacheTTLSec: cacheTTL,
		},
		MQTT: MQTTConfig{
			URL:         getEnv("MQTT_URL", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "hvac/cabin"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "hvac-scheduler"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpiryHours: jwtExpiry,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func parseCabins(value string) ([]int, error) {
	var cabins []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		cabins = append(cabins, n)
	}
	if len(cabins) == 0 {
		return nil, fmt.Errorf("no cabins in %q", value)
	}
	return cabins, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
