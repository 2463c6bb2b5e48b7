package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by storage.driver.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

// AI providers accepted by ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	StorageDriver       string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	EventsSubject       string
	JWTSecret           string
	AIProvider          string
	AIModel             string
	AIWebSearch         bool
	GeminiAPIKey        string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	MaxAttempts         int
	RetryDelay          time.Duration
	UploadMaxBytes      int64
	UploadMaxFiles      int
	GradingRateLimit    int
	AnalyticsCacheTTL   time.Duration
	ShutdownGracePeriod time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// ProviderAPIKey returns the configured key of the selected AI provider. It is the
// fallback used when no key has been stored through the settings endpoint.
func (c Config) ProviderAPIKey() string {
	if c.AIProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Gema Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("database.url", "grader.db")
	v.SetDefault("events.subject", "grader.events")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.web_search", false)
	v.SetDefault("grading.max_attempts", 3)
	v.SetDefault("grading.retry_delay", "2s")
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("upload.max_files", 10)
	v.SetDefault("rate_limit.grading_per_minute", 10)
	v.SetDefault("analytics.cache_ttl", "1m")
	v.SetDefault("app.shutdown_grace", "10s")

	retryDelay, err := parseDuration(v, "grading.retry_delay")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "analytics.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	grace, err := parseDuration(v, "app.shutdown_grace")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		StorageDriver:       strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventsSubject:       v.GetString("events.subject"),
		JWTSecret:           v.GetString("jwt.secret"),
		AIProvider:          strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:             v.GetString("ai.model"),
		AIWebSearch:         v.GetBool("ai.web_search"),
		GeminiAPIKey:        v.GetString("gemini_api_key"),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		OpenAIBaseURL:       v.GetString("openai_base_url"),
		MaxAttempts:         v.GetInt("grading.max_attempts"),
		RetryDelay:          retryDelay,
		UploadMaxBytes:      int64(v.GetInt("upload.max_size_mb")) << 20,
		UploadMaxFiles:      v.GetInt("upload.max_files"),
		GradingRateLimit:    v.GetInt("rate_limit.grading_per_minute"),
		AnalyticsCacheTTL:   cacheTTL,
		ShutdownGracePeriod: grace,
	}

	switch cfg.StorageDriver {
	case StorageSQLite, StoragePostgres, StorageRedis, StorageMemory:
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == StorageRedis && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("redis storage requires redis.url")
	}
	if cfg.StorageDriver == StoragePostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("postgres storage requires database.url")
	}

	switch cfg.AIProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 20 << 20
	}
	if cfg.UploadMaxFiles <= 0 {
		cfg.UploadMaxFiles = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}
