package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	AI        AIConfig
	Twitter   TwitterConfig
	LinkedIn  LinkedInConfig
	Facebook  FacebookConfig
	Email     EmailConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SubmitPerHour     int
	DistributePerHour int
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type TwitterConfig struct {
	BearerToken string
	BaseURL     string
}

type LinkedInConfig struct {
	AccessToken string
	BaseURL     string
}

type FacebookConfig struct {
	PageAccessToken string
	PageID          string
	BaseURL         string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	ToEmail        string
	BaseURL        string
}

type PipelineConfig struct {
	GenerationTimeout int // seconds, internal bound on one generation run
	DeliveryTimeout   int // seconds, per adapter call
	StatusPollWait    int // seconds, bounded wait on ?wait=true status reads
	AttemptPollWait   int // seconds, bounded wait on ?wait=true attempt reads
	RecordTTL         int // hours, redis retention for jobs and attempts
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("AI_API_KEY")
	readSecret("TWITTER_BEARER_TOKEN")
	readSecret("LINKEDIN_ACCESS_TOKEN")
	readSecret("FACEBOOK_PAGE_ACCESS_TOKEN")
	readSecret("SENDGRID_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ai.api_key", "AI_API_KEY")
	_ = viper.BindEnv("ai.base_url", "AI_BASE_URL")
	_ = viper.BindEnv("ai.model", "AI_MODEL")
	_ = viper.BindEnv("twitter.bearer_token", "TWITTER_BEARER_TOKEN")
	_ = viper.BindEnv("linkedin.access_token", "LINKEDIN_ACCESS_TOKEN")
	_ = viper.BindEnv("facebook.page_access_token", "FACEBOOK_PAGE_ACCESS_TOKEN")
	_ = viper.BindEnv("facebook.page_id", "FACEBOOK_PAGE_ID")
	_ = viper.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
	_ = viper.BindEnv("email.from_email", "EMAIL_FROM")
	_ = viper.BindEnv("email.to_email", "EMAIL_TO")
	_ = viper.BindEnv("pipeline.generation_timeout", "GENERATION_TIMEOUT")
	_ = viper.BindEnv("pipeline.delivery_timeout", "DELIVERY_TIMEOUT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.submit_per_hour", 20)
	viper.SetDefault("ratelimit.distribute_per_hour", 50)

	// AI producer defaults
	viper.SetDefault("ai.base_url", "https://router.huggingface.co/v1")
	viper.SetDefault("ai.model", "meta-llama/Llama-3.1-70B-Instruct")

	// Pipeline defaults
	viper.SetDefault("pipeline.generation_timeout", 120)
	viper.SetDefault("pipeline.delivery_timeout", 30)
	viper.SetDefault("pipeline.status_poll_wait", 60)
	viper.SetDefault("pipeline.attempt_poll_wait", 30)
	viper.SetDefault("pipeline.record_ttl", 168)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour:     viper.GetInt("ratelimit.submit_per_hour"),
			DistributePerHour: viper.GetInt("ratelimit.distribute_per_hour"),
		},
		AI: AIConfig{
			APIKey:  viper.GetString("ai.api_key"),
			BaseURL: viper.GetString("ai.base_url"),
			Model:   viper.GetString("ai.model"),
		},
		Twitter: TwitterConfig{
			BearerToken: viper.GetString("twitter.bearer_token"),
			BaseURL:     viper.GetString("twitter.base_url"),
		},
		LinkedIn: LinkedInConfig{
			AccessToken: viper.GetString("linkedin.access_token"),
			BaseURL:     viper.GetString("linkedin.base_url"),
		},
		Facebook: FacebookConfig{
			PageAccessToken: viper.GetString("facebook.page_access_token"),
			PageID:          viper.GetString("facebook.page_id"),
			BaseURL:         viper.GetString("facebook.base_url"),
		},
		Email: EmailConfig{
			SendGridAPIKey: viper.GetString("email.sendgrid_api_key"),
			FromEmail:      viper.GetString("email.from_email"),
			ToEmail:        viper.GetString("email.to_email"),
			BaseURL:        viper.GetString("email.base_url"),
		},
		Pipeline: PipelineConfig{
			GenerationTimeout: viper.GetInt("pipeline.generation_timeout"),
			DeliveryTimeout:   viper.GetInt("pipeline.delivery_timeout"),
			StatusPollWait:    viper.GetInt("pipeline.status_poll_wait"),
			AttemptPollWait:   viper.GetInt("pipeline.attempt_poll_wait"),
			RecordTTL:         viper.GetInt("pipeline.record_ttl"),
		},
	}

	return cfg, nil
}
