package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI        string
	DatabaseName       string
	RedisURI           string
	FrontendURL        string
	R2                 R2
	SecretKey          string
	CookieName         string
	UnifiedAPIKey      string
	UnifiedAPIBaseURL  string
	WebhookURL         string
	DefaultPublisher   string
	MaxPublishAttempts int
	PublishTimeoutSecs int
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		DatabaseName: getEnv("DATABASE_NAME", ""),
		RedisURI:     getEnv("REDIS_URI", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", ""),
		UnifiedAPIKey:      getEnv("UNIFIED_API_KEY", ""),
		UnifiedAPIBaseURL:  getEnv("UNIFIED_API_BASE_URL", "https://app.ayrshare.com/api"),
		WebhookURL:         getEnv("PUBLISH_WEBHOOK_URL", ""),
		DefaultPublisher:   getEnv("DEFAULT_PUBLISHER", "unified"),
		MaxPublishAttempts: getEnvInt("MAX_PUBLISH_ATTEMPTS", 3),
		PublishTimeoutSecs: getEnvInt("PUBLISH_TIMEOUT_SECONDS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
