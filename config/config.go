package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	Port           int
	AppEnv         string
	RequestTimeout time.Duration

	MongoURI      string
	MongoDatabase string

	RedisAddress   string
	RedisPassword  string
	IssueRateLimit int

	JWTSecret string
	JWTExpire time.Duration

	ClientURL string
	PublicURL string
	UploadDir string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
}

// Production reports whether the service runs with production settings.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads an optional .env file, then the environment, and validates required fields.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
	}
	rateLimit, err := getEnvInt("ISSUE_RATE_LIMIT", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse ISSUE_RATE_LIMIT: %w", err)
	}
	jwtExpire, err := getEnvDuration("JWT_EXPIRE", 7*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse JWT_EXPIRE: %w", err)
	}
	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return Config{}, fmt.Errorf("parse SMTP_PORT: %w", err)
	}

	cfg := Config{
		Port:           port,
		AppEnv:         getEnv("APP_ENV", "development"),
		RequestTimeout: requestTimeout,
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "rms"),
		RedisAddress:   getEnv("REDIS_ADDRESS", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		IssueRateLimit: rateLimit,
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpire:      jwtExpire,
		ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
		PublicURL:      getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       smtpPort,
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPass:       getEnv("SMTP_PASS", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@rms.local"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.IssueRateLimit < 0 {
		return fmt.Errorf("ISSUE_RATE_LIMIT must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
