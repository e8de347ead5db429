package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Database    DatabaseConfig
	JWT         JWTConfig
	App         AppConfig
	Redis       RedisConfig
	Lock        LockConfig
	Cron        CronConfig
	Webhook     WebhookConfig
	Marketplace MarketplaceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
	LockBackendMemory   = "memory"
)

type LockConfig struct {
	Backend    string
	TTLSeconds int
}

type CronConfig struct {
	Secret                string
	Enabled               bool
	SyncBaseOrders        time.Duration
	RecalculateDailyStats time.Duration
	EvaluateWageStatus    time.Duration
}

type WebhookConfig struct {
	Secret string
}

type MarketplaceConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	AuthURL         string
	TokenURL        string
	APIBaseURL      string
	Timeout         time.Duration
	PageLimit       int
	MaxPages        int
	DetailBatchSize int
	LookbackDays    int
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cast_backoffice"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := getEnvBool("AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Tokyo"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
		AutoMigrate:    autoMigrate,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Redis configuration
	redisPort, err := getEnvInt("REDIS_PORT", 6379)
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	config.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     redisPort,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Job lock configuration
	lockTTL, err := getEnvInt("LOCK_TTL_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	config.Lock = LockConfig{
		Backend:    strings.ToLower(getEnv("LOCK_BACKEND", LockBackendPostgres)),
		TTLSeconds: lockTTL,
	}

	// Cron configuration
	cronEnabled, err := getEnvBool("CRON_ENABLED", false)
	if err != nil {
		return nil, err
	}
	syncEvery, err := getEnvDuration("CRON_SYNC_BASE_ORDERS_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	recalcEvery, err := getEnvDuration("CRON_RECALCULATE_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	wageEvery, err := getEnvDuration("CRON_EVALUATE_WAGE_STATUS_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	config.Cron = CronConfig{
		Secret:                getEnv("CRON_SECRET", ""),
		Enabled:               cronEnabled,
		SyncBaseOrders:        syncEvery,
		RecalculateDailyStats: recalcEvery,
		EvaluateWageStatus:    wageEvery,
	}

	config.Webhook = WebhookConfig{
		Secret: getEnv("WEBHOOK_SECRET", ""),
	}

	// Marketplace configuration
	mpTimeout, err := getEnvDuration("BASE_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pageLimit, err := getEnvInt("BASE_PAGE_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	maxPages, err := getEnvInt("BASE_MAX_PAGES", 10)
	if err != nil {
		return nil, err
	}
	batchSize, err := getEnvInt("BASE_DETAIL_BATCH_SIZE", 5)
	if err != nil {
		return nil, err
	}
	lookback, err := getEnvInt("BASE_LOOKBACK_DAYS", 3)
	if err != nil {
		return nil, err
	}

	config.Marketplace = MarketplaceConfig{
		ClientID:        getEnv("BASE_CLIENT_ID", ""),
		ClientSecret:    getEnv("BASE_CLIENT_SECRET", ""),
		RedirectURL:     getEnv("BASE_REDIRECT_URL", ""),
		AuthURL:         getEnv("BASE_AUTH_URL", "https://api.thebase.in/1/oauth/authorize"),
		TokenURL:        getEnv("BASE_TOKEN_URL", "https://api.thebase.in/1/oauth/token"),
		APIBaseURL:      getEnv("BASE_API_URL", "https://api.thebase.in"),
		Timeout:         mpTimeout,
		PageLimit:       pageLimit,
		MaxPages:        maxPages,
		DetailBatchSize: batchSize,
		LookbackDays:    lookback,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if c.Cron.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	switch c.Lock.Backend {
	case LockBackendPostgres, LockBackendRedis, LockBackendMemory:
	default:
		return fmt.Errorf("LOCK_BACKEND must be one of postgres, redis, memory")
	}
	if c.Lock.TTLSeconds <= 0 {
		return fmt.Errorf("LOCK_TTL_SECONDS must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// LogAttrs summarizes the configuration without secrets.
func (c *Config) LogAttrs() []any {
	return []any{
		slog.String("env", c.App.Env),
		slog.Int("port", c.App.Port),
		slog.String("timezone", c.App.Timezone),
		slog.String("lock_backend", c.Lock.Backend),
		slog.Bool("cron_enabled", c.Cron.Enabled),
		slog.Bool("marketplace_configured", c.Marketplace.ClientID != ""),
	}
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
