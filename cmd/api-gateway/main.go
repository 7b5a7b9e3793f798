package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/signalflags/signalflags-api/api/swagger"
	"github.com/signalflags/signalflags-api/internal/handler"
	"github.com/signalflags/signalflags-api/internal/middleware"
	"github.com/signalflags/signalflags-api/internal/repository"
	"github.com/signalflags/signalflags-api/internal/service"
	"github.com/signalflags/signalflags-api/internal/storage"
	"github.com/signalflags/signalflags-api/pkg/cache"
	"github.com/signalflags/signalflags-api/pkg/config"
	"github.com/signalflags/signalflags-api/pkg/cursor"
	"github.com/signalflags/signalflags-api/pkg/database"
	"github.com/signalflags/signalflags-api/pkg/jobs"
	"github.com/signalflags/signalflags-api/pkg/logger"
	corsmiddleware "github.com/signalflags/signalflags-api/pkg/middleware/cors"
	reqidmiddleware "github.com/signalflags/signalflags-api/pkg/middleware/requestid"
)

// @title Signal Flags API
// @version 1.0.0
// @description Signal-flag trivia backend: device-bound sessions, quiz engine and ranked leaderboard
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, disconnect, err := database.NewMongo(cfg.Mongo)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to mongo", "error", err)
	}
	defer disconnect(context.Background()) //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	resultRepo := repository.NewResultRepository(db)

	directory := service.NewDirectoryService(userRepo, logr)
	loginStamps := jobs.NewQueue("login-stamps", directory.StampLastLoginJob, jobs.QueueConfig{Logger: logr})
	loginStamps.Start(ctx)
	defer loginStamps.Stop()
	directory.UseLoginStampQueue(loginStamps)

	metrics := service.NewMetricsService()

	sessions := service.NewSessionManager(func(installID string) storage.DeviceStorage {
		return storage.NewInstrumentedStorage(storage.NewRedisStorage(redisClient, installID), metrics.ObserveStorageOp)
	}, directory, logr, cfg.Session)

	quiz := service.NewQuizService(cfg.Quiz, logr)

	codec := cursor.NewCodec(cfg.Leaderboard.CursorSecret)
	leaderboard := service.NewLeaderboardService(resultRepo, codec, cfg.Leaderboard, logr)
	leaderboard.UseMetrics(metrics)
	if cfg.Leaderboard.WatchEnabled {
		if err := leaderboard.StartWatch(ctx); err != nil {
			logr.Sugar().Warnw("leaderboard watch unavailable", "error", err)
		}
	}
	exports := service.NewExportService(leaderboard, cfg.Exports, logr)

	authHandler := handler.NewAuthHandler(sessions)
	userHandler := handler.NewUserHandler(directory)
	quizHandler := handler.NewQuizHandler(quiz, metrics)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboard, exports, metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		pingCtx, pingCancel := context.WithTimeout(c.Request.Context(), cfg.Mongo.ConnectTimeout)
		defer pingCancel()
		if err := db.Client().Ping(pingCtx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Session(sessions))

	auth := api.Group("/auth", middleware.InstallID())
	{
		auth.POST("/register", middleware.RequireGuest(sessions), authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/session", authHandler.Session)
		auth.POST("/session/validate", authHandler.ValidateSession)
	}

	users := api.Group("/users", middleware.InstallID())
	{
		users.GET("/me", middleware.RequireAuth(sessions), userHandler.Me)
		users.GET("/:id", middleware.RequireAuth(sessions), userHandler.GetUser)
		users.PATCH("/:id", middleware.RequireAdmin(sessions), userHandler.UpdateUser)
		users.DELETE("/:id", middleware.RequireAdmin(sessions), userHandler.DeactivateUser)
	}

	quizRoutes := api.Group("/quiz", middleware.InstallID())
	{
		quizRoutes.GET("/flags", quizHandler.ListFlags)
		quizRoutes.POST("/sessions", quizHandler.StartSession)
		quizRoutes.GET("/sessions/:id", quizHandler.GetSession)
		quizRoutes.POST("/sessions/:id/answers", quizHandler.SubmitAnswer)
		quizRoutes.POST("/sessions/:id/complete", quizHandler.CompleteSession)
	}

	board := api.Group("/leaderboard")
	{
		board.GET("", leaderboardHandler.GetLeaderboard)
		board.POST("/scores", middleware.InstallID(), middleware.RequireAuth(sessions), leaderboardHandler.SubmitScore)
		board.POST("/practice", middleware.InstallID(), middleware.RequireAuth(sessions), leaderboardHandler.SubmitPractice)
		board.GET("/history", middleware.InstallID(), middleware.RequireAuth(sessions), leaderboardHandler.GetHistory)
		board.GET("/export", middleware.InstallID(), middleware.RequireAdmin(sessions), leaderboardHandler.ExportStandings)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
