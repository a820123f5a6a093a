package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all environment-driven settings for the engine.
type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string

	JWTSecret   string
	TokenExpiry time.Duration

	SweepInterval   time.Duration
	DispatchWorkers int
	LeaseTTL        time.Duration

	PushGatewayURL string
	PushAPIKey     string

	DirectoryURL    string
	DirectoryAPIKey string

	SMTPSender   string
	SMTPPassword string
	SMTPHost     string
	SMTPPort     string
	SMTPDomain   string

	AllowedOrigin string
}

// LoadConfig reads configuration from the environment, with a .env file
// as fallback for local development.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB", "pakuni_notifications"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenExpiry: getDuration("TOKEN_EXPIRY", 24*time.Hour),

		SweepInterval:   getDuration("SWEEP_INTERVAL", time.Minute),
		DispatchWorkers: getInt("DISPATCH_WORKERS", 8),
		LeaseTTL:        getDuration("ACTIVATION_LEASE_TTL", 5*time.Minute),

		PushGatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
		PushAPIKey:     getEnv("PUSH_API_KEY", ""),

		DirectoryURL:    getEnv("DIRECTORY_URL", "http://localhost:8081"),
		DirectoryAPIKey: getEnv("DIRECTORY_API_KEY", ""),

		SMTPSender:   getEnv("SMTP_SENDER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPDomain:   getEnv("SMTP_DOMAIN", "pakuni.app"),

		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
