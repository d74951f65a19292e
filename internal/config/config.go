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
	Auth      AuthConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name               string
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	FeedLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type ChatConfig struct {
	LLMProvider    string // "chatapi" or "openai"
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	BannerDuration time.Duration
	SessionTTL     time.Duration
	GuestTTL       time.Duration
	HistoryTTL     time.Duration
}

type RateLimitConfig struct {
	// Rate uses the limiter's formatted form, e.g. "20-M".
	Rate string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "arcane-chat-be"),
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			FeedLogFilePath:    getEnv("FEED_LOG_FILE_PATH", "logs/feed.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			TokenTTL:           getEnvAsDuration("JWT_TTL", 24*time.Hour),
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		Chat: ChatConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "chatapi"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", "http://127.0.0.1:8000"),
			LLMAPIKey:      getEnv("LLM_API_KEY", ""),
			LLMModel:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
			LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			BannerDuration: getEnvAsDuration("BANNER_DURATION", 4*time.Second),
			SessionTTL:     getEnvAsDuration("SESSION_TTL", time.Hour),
			GuestTTL:       getEnvAsDuration("GUEST_TTL", 2*time.Hour),
			HistoryTTL:     getEnvAsDuration("HISTORY_TTL", 30*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Rate: getEnv("RATE_LIMIT", "20-M"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

// getEnvAsDuration accepts a Go duration ("90s") or a plain number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
