package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DB    DBConfig
	Redis RedisConfig

	JWTSecret string
	JWTExpiry time.Duration

	Points PointsConfig
	Cron   CronConfig

	CloudinaryCloudName string

	LogLevel  string
	LogFormat string

	// Minimum interval between progress entries per user per challenge.
	RateLimitProgress time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	URL string
}

// PointsConfig enumerates every point amount the services hand out or require,
// so nothing reads ambient env vars at call time.
type PointsConfig struct {
	SignupBonus     int
	ChallengeReward int
	StakeMinimum    int

	// Default lifetime of a social challenge when the creator gives no end date.
	SocialChallengeDuration time.Duration
}

type CronConfig struct {
	ReminderCheck string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASS"),
			Name:     getEnv("DB_NAME", "habitstake"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		Points: PointsConfig{
			SignupBonus:             getEnvInt("POINTS_SIGNUP_BONUS", 100),
			ChallengeReward:         getEnvInt("POINTS_CHALLENGE_REWARD", 50),
			StakeMinimum:            getEnvInt("POINTS_STAKE_MINIMUM", 10),
			SocialChallengeDuration: 7 * 24 * time.Hour,
		},
		Cron: CronConfig{
			ReminderCheck: getEnv("CRON_REMINDER_CHECK", "*/5 * * * *"),
		},

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	var err error
	cfg.JWTExpiry, err = time.ParseDuration(getEnv("JWT_EXPIRY", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}
	cfg.RateLimitProgress, err = time.ParseDuration(getEnv("RATE_LIMIT_PROGRESS", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PROGRESS: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
