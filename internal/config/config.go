package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Long-input policies applied when a text exceeds the model's maximum
// sequence length.
const (
	LongInputTruncate = "truncate"
	LongInputReject   = "reject"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	RedisURL         string
	ModelProvider    string
	ModelID          string
	ModelEndpoint    string
	ModelAPIKey      string
	ModelMaxTokens   int
	ModelLoadTimeout time.Duration
	ModelWarmup      bool
	LongInputPolicy  string
	VerdictCacheTTL  time.Duration
	OpenAIAPIKey     string
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("NEWSGUARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "NewsGuard API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("model.provider", "huggingface")
	v.SetDefault("model.id", "vikram71198/distilroberta-base-finetuned-fake-news-detection")
	v.SetDefault("model.max_tokens", 512)
	v.SetDefault("model.load_timeout", "60s")
	v.SetDefault("model.warmup", true)
	v.SetDefault("model.long_input_policy", LongInputTruncate)
	v.SetDefault("verdict.cache_ttl", "10m")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	loadTimeout, err := parseDuration(v.GetString("model.load_timeout"), 60*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid model load timeout: %w", err)
	}

	cacheTTL, err := parseDuration(v.GetString("verdict.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid verdict cache ttl: %w", err)
	}

	rateWindow, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		RedisURL:         v.GetString("redis.url"),
		ModelProvider:    strings.ToLower(v.GetString("model.provider")),
		ModelID:          v.GetString("model.id"),
		ModelEndpoint:    v.GetString("model.endpoint"),
		ModelAPIKey:      v.GetString("model.api_key"),
		ModelMaxTokens:   v.GetInt("model.max_tokens"),
		ModelLoadTimeout: loadTimeout,
		ModelWarmup:      v.GetBool("model.warmup"),
		LongInputPolicy:  strings.ToLower(v.GetString("model.long_input_policy")),
		VerdictCacheTTL:  cacheTTL,
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		RateLimitMax:     v.GetInt("rate_limit.max"),
		RateLimitWindow:  rateWindow,
	}

	// the SDK's conventional variable works without the prefix
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.ModelID == "" {
		return Config{}, fmt.Errorf("model id must be provided")
	}

	if cfg.LongInputPolicy != LongInputTruncate && cfg.LongInputPolicy != LongInputReject {
		return Config{}, fmt.Errorf("unknown long input policy %q", cfg.LongInputPolicy)
	}

	if cfg.ModelMaxTokens <= 0 {
		cfg.ModelMaxTokens = 512
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
