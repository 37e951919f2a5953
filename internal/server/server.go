package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"habitstake.app/backend/internal/config"
	"habitstake.app/backend/internal/handler"
	"habitstake.app/backend/internal/middleware"
	"habitstake.app/backend/internal/repository"
	"habitstake.app/backend/internal/scheduler"
	"habitstake.app/backend/internal/service"
	"habitstake.app/backend/pkg/logger"
	"habitstake.app/backend/pkg/storage"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	reminders   *scheduler.ReminderScheduler
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	progressRepo := repository.NewProgressLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	var imageStorage storage.ImageStorage
	if cfg.CloudinaryCloudName != "" {
		var err error
		imageStorage, err = storage.NewCloudinaryStorage(cfg.CloudinaryCloudName)
		if err != nil {
			logger.Fatalf("failed to initialize cloudinary storage: %v", err)
		}
	}

	notificationSvc := service.NewNotificationService(notificationRepo, redisClient)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	authSvc := service.NewAuthService(userRepo, imageStorage, cfg)
	authHandler := handler.NewAuthHandler(authSvc)

	advisorySvc := service.NewAdvisoryService(challengeRepo, userRepo)

	challengeSvc := service.NewChallengeService(challengeRepo, advisorySvc, cfg)
	challengeHandler := handler.NewChallengeHandler(challengeSvc, advisorySvc)

	progressSvc := service.NewProgressService(challengeRepo, progressRepo, notificationSvc, redisClient, cfg)
	progressHandler := handler.NewProgressHandler(progressSvc)

	socialSvc := service.NewSocialService(challengeRepo, userRepo, notificationSvc, redisClient, cfg)
	socialHandler := handler.NewSocialHandler(socialSvc)

	reminderScheduler := scheduler.NewReminderScheduler(reminderRepo, notificationSvc, cfg.Cron.ReminderCheck)

	router := gin.New()

	setupCORS(router, cfg)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Account routes
		protected.GET("/auth/me", authHandler.Me)
		protected.PUT("/profile/avatar", authHandler.UpdateAvatar)

		// Challenge routes
		protected.POST("/challenges", challengeHandler.CreateChallenge)
		protected.GET("/challenges", challengeHandler.GetUserChallenges)
		protected.GET("/challenges/:id/probability", challengeHandler.GetSuccessProbability)

		// Progress routes
		protected.POST("/challenges/:id/progress", progressHandler.LogProgress)
		protected.GET("/challenges/:id/progress", progressHandler.GetHistory)

		// Social challenge routes
		protected.POST("/social/challenges", socialHandler.CreateSocialChallenge)
		protected.GET("/social/challenges", socialHandler.GetActiveSocialChallenges)
		protected.GET("/social/challenges/mine", socialHandler.GetUserSocialChallenges)
		protected.POST("/social/challenges/:id/join", socialHandler.JoinSocialChallenge)
		protected.POST("/social/challenges/:id/settle", socialHandler.SettleSocialChallenge)
		protected.GET("/social/challenges/:id/can-join", socialHandler.CanJoinChallenge)

		// Advisory routes
		protected.GET("/suggestions", challengeHandler.GetSuggestions)
		protected.GET("/report", challengeHandler.GetProgressReport)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		reminders:   reminderScheduler,
	}
}

func (s *Server) Run(addr string) error {
	s.reminders.Start()
	defer s.reminders.Stop()

	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
