package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Payment    PaymentConfig
	Uniqueness UniquenessConfig
	Receipts   ReceiptsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentConfig carries gateway credentials and the tuition schedule.
type PaymentConfig struct {
	GatewayBaseURL string
	GatewayKeyID   string
	GatewaySecret  string
	WebhookSecret  string
	Currency       string
	// AmountCents maps a course type to the application fee in minor units.
	AmountCents map[string]int64
	// DefaultAmountCents applies when the course type has no schedule entry.
	DefaultAmountCents int64
	// TestMode enables the synthetic completion path used outside production.
	TestMode   bool
	AttemptTTL time.Duration
}

// UniquenessConfig tunes the debounced email/phone availability checks.
type UniquenessConfig struct {
	DebounceWindow time.Duration
	LookupTimeout  time.Duration
	TakenCacheTTL  time.Duration
}

// ReceiptsConfig controls payment receipt generation and download links.
type ReceiptsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payment = PaymentConfig{
		GatewayBaseURL:     v.GetString("PAYMENT_GATEWAY_URL"),
		GatewayKeyID:       v.GetString("PAYMENT_GATEWAY_KEY_ID"),
		GatewaySecret:      v.GetString("PAYMENT_GATEWAY_SECRET"),
		WebhookSecret:      v.GetString("PAYMENT_WEBHOOK_SECRET"),
		Currency:           v.GetString("PAYMENT_CURRENCY"),
		AmountCents:        parseAmountSchedule(v.GetString("PAYMENT_AMOUNT_SCHEDULE")),
		DefaultAmountCents: v.GetInt64("PAYMENT_DEFAULT_AMOUNT"),
		TestMode:           v.GetBool("PAYMENT_TEST_MODE"),
		AttemptTTL:         parseDuration(v.GetString("PAYMENT_ATTEMPT_TTL"), 24*time.Hour),
	}

	cfg.Uniqueness = UniquenessConfig{
		DebounceWindow: parseDuration(v.GetString("UNIQUENESS_DEBOUNCE_WINDOW"), 500*time.Millisecond),
		LookupTimeout:  parseDuration(v.GetString("UNIQUENESS_LOOKUP_TIMEOUT"), 5*time.Second),
		TakenCacheTTL:  parseDuration(v.GetString("UNIQUENESS_TAKEN_CACHE_TTL"), time.Minute),
	}

	cfg.Receipts = ReceiptsConfig{
		StorageDir:        v.GetString("RECEIPTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), 7*24*time.Hour),
		WorkerConcurrency: v.GetInt("RECEIPTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("RECEIPTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admissions")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "admissions-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYMENT_GATEWAY_URL", "https://sandbox.gateway.example.com")
	v.SetDefault("PAYMENT_GATEWAY_KEY_ID", "")
	v.SetDefault("PAYMENT_GATEWAY_SECRET", "")
	v.SetDefault("PAYMENT_WEBHOOK_SECRET", "dev_webhook_secret")
	v.SetDefault("PAYMENT_CURRENCY", "USD")
	v.SetDefault("PAYMENT_AMOUNT_SCHEDULE", "")
	v.SetDefault("PAYMENT_DEFAULT_AMOUNT", 10000)
	v.SetDefault("PAYMENT_TEST_MODE", false)
	v.SetDefault("PAYMENT_ATTEMPT_TTL", "24h")

	v.SetDefault("UNIQUENESS_DEBOUNCE_WINDOW", "500ms")
	v.SetDefault("UNIQUENESS_LOOKUP_TIMEOUT", "5s")
	v.SetDefault("UNIQUENESS_TAKEN_CACHE_TTL", "1m")

	v.SetDefault("RECEIPTS_STORAGE_DIR", "./receipts")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "168h")
	v.SetDefault("RECEIPTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("RECEIPTS_WORKER_RETRIES", 3)
}

// parseAmountSchedule reads "courseType=cents" pairs, comma separated.
func parseAmountSchedule(raw string) map[string]int64 {
	schedule := make(map[string]int64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 64)
		if err != nil || amount < 0 {
			continue
		}
		schedule[strings.TrimSpace(kv[0])] = amount
	}
	return schedule
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
