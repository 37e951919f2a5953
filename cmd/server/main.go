package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/model"
	"habitstake.app/backend/internal/server"
	"habitstake.app/backend/pkg/database"
	"habitstake.app/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(database.Options{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Name:     cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		logger.Fatalf("failed to connect database: %v", err)
	}

	if err := migrate(db); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	redisClient := connectRedis(cfg.Redis.URL)

	srv := server.NewServer(cfg, db, redisClient)

	logger.Infof("listening on :%s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Challenge{},
		&model.ChallengeParticipant{},
		&model.ChallengeWinner{},
		&model.ProgressLog{},
		&model.PointLog{},
		&model.Notification{},
		&model.Reminder{},
	)
}

// connectRedis returns nil when redis is unavailable. Every consumer treats a
// nil client as "feature disabled" rather than an error.
func connectRedis(url string) *redis.Client {
	if url == "" {
		logger.Warn("REDIS_URL not set, caching and notifications run degraded")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("invalid REDIS_URL, continuing without redis: ", err)
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable, continuing without redis: ", err)
		return nil
	}

	return client
}
