package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	PORT            string
	APP_ENV         string
	APP_BASE_URL    string
	ALLOWED_HEADERS string

	// Local identity tokens
	JWT_SECRET   string
	TOKEN_ISSUER string
	TOKEN_TTL    time.Duration

	// External identity provider (OIDC)
	AUTH0_DOMAIN        string
	AUTH0_CLIENT_ID     string
	AUTH0_CLIENT_SECRET string
	AUTH0_CALLBACK_URL  string
	AUTH0_AUDIENCE      string
	STATE_SECRET        string

	REDIS_ADDR     string
	REDIS_PASSWORD string
	REDIS_DB       int

	// Object storage
	STORAGE_DRIVER         string
	STORAGE_DIR            string
	STORAGE_SIGNING_SECRET string
	STORAGE_UPLOAD_TTL     time.Duration
	STORAGE_URL_TTL        time.Duration
	S3_ENDPOINT            string
	S3_ACCESS_KEY          string
	S3_SECRET_KEY          string
	S3_BUCKET              string
	S3_USE_SSL             bool

	// Email
	RESEND_API_KEY  string
	RESEND_ENDPOINT string
	EMAIL_FROM      string

	// ClickHouse export for activity logs
	CLICKHOUSE_HOST     string
	CLICKHOUSE_PORT     int
	CLICKHOUSE_DATABASE string
	CLICKHOUSE_USERNAME string
	CLICKHOUSE_PASSWORD string
	CLICKHOUSE_USE_TLS  bool

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string

	OUTBOX_INTERVAL     time.Duration
	RECONCILE_INTERVAL  time.Duration
	DIAGNOSTICS_ENABLED bool
}

func ReadConfig() *Config {
	// Default to HTTP port 8123 (more compatible than native port 9000)
	clickhousePort := 8123
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			clickhousePort = port
		}
	}

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	return &Config{
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		PORT:            GetEnvOrDefault("PORT", "6060"),
		APP_ENV:         GetEnvOrDefault("APP_ENV", "development"),
		APP_BASE_URL:    GetEnvOrDefault("APP_BASE_URL", "http://localhost:6060"),
		ALLOWED_HEADERS: GetEnvOrDefault("ALLOWED_HEADERS", "Content-Type,Authorization"),

		JWT_SECRET:   os.Getenv("JWT_SECRET"),
		TOKEN_ISSUER: GetEnvOrDefault("TOKEN_ISSUER", "workboard"),
		TOKEN_TTL:    getDurationOrDefault("TOKEN_TTL", 24*time.Hour),

		AUTH0_DOMAIN:        os.Getenv("AUTH0_DOMAIN"),
		AUTH0_CLIENT_ID:     os.Getenv("AUTH0_CLIENT_ID"),
		AUTH0_CLIENT_SECRET: os.Getenv("AUTH0_CLIENT_SECRET"),
		AUTH0_CALLBACK_URL:  os.Getenv("AUTH0_CALLBACK_URL"),
		AUTH0_AUDIENCE:      GetEnvOrDefault("AUTH0_AUDIENCE", "workboard-api"),
		STATE_SECRET:        os.Getenv("STATE_SECRET"),

		REDIS_ADDR:     os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       redisDB,

		STORAGE_DRIVER:         GetEnvOrDefault("STORAGE_DRIVER", "disk"),
		STORAGE_DIR:            GetEnvOrDefault("STORAGE_DIR", "./data/objects"),
		STORAGE_SIGNING_SECRET: os.Getenv("STORAGE_SIGNING_SECRET"),
		STORAGE_UPLOAD_TTL:     getDurationOrDefault("STORAGE_UPLOAD_TTL", 15*time.Minute),
		STORAGE_URL_TTL:        getDurationOrDefault("STORAGE_URL_TTL", time.Hour),
		S3_ENDPOINT:            os.Getenv("S3_ENDPOINT"),
		S3_ACCESS_KEY:          os.Getenv("S3_ACCESS_KEY"),
		S3_SECRET_KEY:          os.Getenv("S3_SECRET_KEY"),
		S3_BUCKET:              GetEnvOrDefault("S3_BUCKET", "workboard"),
		S3_USE_SSL:             os.Getenv("S3_USE_SSL") == "true",

		RESEND_API_KEY:  os.Getenv("RESEND_API_KEY"),
		RESEND_ENDPOINT: GetEnvOrDefault("RESEND_ENDPOINT", "https://api.resend.com/emails"),
		EMAIL_FROM:      GetEnvOrDefault("EMAIL_FROM", "Workboard <onboarding@resend.dev>"),

		CLICKHOUSE_HOST:     os.Getenv("CLICKHOUSE_HOST"),
		CLICKHOUSE_PORT:     clickhousePort,
		CLICKHOUSE_DATABASE: GetEnvOrDefault("CLICKHOUSE_DATABASE", "workboard"),
		CLICKHOUSE_USERNAME: GetEnvOrDefault("CLICKHOUSE_USERNAME", "default"),
		CLICKHOUSE_PASSWORD: os.Getenv("CLICKHOUSE_PASSWORD"),
		CLICKHOUSE_USE_TLS:  os.Getenv("CLICKHOUSE_USE_TLS") == "true",

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		OUTBOX_INTERVAL:     getDurationOrDefault("OUTBOX_INTERVAL", 5*time.Second),
		RECONCILE_INTERVAL:  getDurationOrDefault("RECONCILE_INTERVAL", 10*time.Minute),
		DIAGNOSTICS_ENABLED: os.Getenv("DIAGNOSTICS_ENABLED") == "true",
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.APP_ENV == "production"
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
