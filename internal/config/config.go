package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	OpenDota  OpenDotaConfig
	Session   SessionConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	FrontendLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StateBackend       string // "memory" or "redis"
}

type DatabaseConfig struct {
	Connection string
}

type OpenDotaConfig struct {
	BaseURL        string
	CacheBackend   string // "file" or "postgres"
	CacheFile      string
	FlushEvery     int
	RetryWait      time.Duration
	RequestTimeout time.Duration
}

// SessionConfig tunes the query session controllers driven by the
// websocket and terminal front ends.
type SessionConfig struct {
	PollInitialDelay time.Duration
	PollInterval     time.Duration
	NoticeTimeout    time.Duration
	ClientTimeout    time.Duration
}

type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			FrontendLogPath:    getEnv("FRONTEND_LOG_PATH", "logs/frontend.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			StateBackend:       getEnv("STATE_BACKEND", "memory"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		OpenDota: OpenDotaConfig{
			BaseURL:        getEnv("OPENDOTA_BASE_URL", "https://api.opendota.com/api"),
			CacheBackend:   getEnv("OPENDOTA_CACHE_BACKEND", "file"),
			CacheFile:      getEnv("OPENDOTA_CACHE_FILE", "./dota2/cache.json"),
			FlushEvery:     getEnvAsInt("OPENDOTA_FLUSH_EVERY", 50),
			RetryWait:      getEnvAsDuration("OPENDOTA_RETRY_WAIT", 10*time.Second),
			RequestTimeout: getEnvAsDuration("OPENDOTA_REQUEST_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			PollInitialDelay: getEnvAsDuration("SESSION_POLL_INITIAL_DELAY", 500*time.Millisecond),
			PollInterval:     getEnvAsDuration("SESSION_POLL_INTERVAL", 500*time.Millisecond),
			NoticeTimeout:    getEnvAsDuration("SESSION_NOTICE_TIMEOUT", 5*time.Second),
			ClientTimeout:    getEnvAsDuration("SESSION_CLIENT_TIMEOUT", 0),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("750ms", "2s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
