package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/go-demo/roomchat/internal/chat"
	"github.com/go-demo/roomchat/internal/config"
	"github.com/go-demo/roomchat/internal/handler"
	"github.com/go-demo/roomchat/internal/middleware"
	"github.com/go-demo/roomchat/internal/pkg/cache"
	"github.com/go-demo/roomchat/internal/pkg/database"
	"github.com/go-demo/roomchat/internal/pkg/ratelimit"
	"github.com/go-demo/roomchat/internal/repository"
	"github.com/go-demo/roomchat/internal/service"
	"github.com/go-demo/roomchat/internal/ws"
)

// @title           Room Chat API
// @version         1.0
// @description     Go 即時聊天室系統：大廳、自建聊天室、隨機配對
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

const (
	version             = "1.0.0"
	bucketPruneInterval = 5 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting chat server",
		zap.String("mode", cfg.Server.Mode),
		zap.Int("port", cfg.Server.Port),
	)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	var workers sync.WaitGroup

	health := handler.NewHealthHandler(version)

	// Optional Redis for the shared room-creation limit
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close(redisClient, logger)
		health.AddCheck("redis", cache.Check(redisClient))
	}

	// Optional Postgres for the moderation audit log
	var opts []chat.Option
	if cfg.Database.Enabled {
		var db *sqlx.DB
		db, err = database.NewPostgres(&cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer database.Close(db, logger)
		health.AddCheck("database", database.Check(db))

		events := repository.NewModerationEventRepository(db)
		if err := events.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}

		audit := service.NewAuditService(events, cfg.Database.AuditBuffer, logger)
		opts = append(opts, chat.WithAuditSink(audit))
		startWorker(&workers, func() { audit.Run(ctx) })
	}

	createLimiter, err := newCreateLimiter(cfg, redisClient)
	if err != nil {
		logger.Fatal("Invalid rate limit configuration", zap.Error(err))
	}

	// The hub delivers the core's events, so it is built first
	hub := ws.NewHub(logger)
	chatService := chat.NewService(cfg.Chat.ChatService(), hub, createLimiter, logger, opts...)
	sweeper := chat.NewSweeper(chatService, cfg.Chat.SweepInterval, nil, logger)

	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()
	startWorker(&workers, func() { sweeper.Run(ctx) })

	upgradeRate := rate.Inf
	if cfg.WS.UpgradeRate > 0 {
		upgradeRate = rate.Limit(cfg.WS.UpgradeRate)
	}
	upgradeLimiter := ratelimit.NewTokenBucket(upgradeRate, cfg.WS.UpgradeBurst, nil)
	startWorker(&workers, func() { pruneBuckets(ctx, upgradeLimiter, logger) })

	wsHandler := ws.NewHandler(hub, chatService, ws.HandlerConfig{
		AllowedOrigins: cfg.WS.AllowedOrigins,
		MessageRate:    cfg.WS.MessageRate,
		MessageBurst:   cfg.WS.MessageBurst,
	}, logger)
	roomHandler := handler.NewRoomHandler(chatService)

	// Setup router
	router := setupRouter(cfg, logger, upgradeLimiter, health, roomHandler, wsHandler)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server is running",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Closing the hub ends every connection's write pump
	stop()
	<-hubDone
	workers.Wait()

	logger.Info("Server exited")
}

func startWorker(wg *sync.WaitGroup, run func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		run()
	}()
}

// newCreateLimiter picks the room-creation limiter backend.
func newCreateLimiter(cfg *config.Config, client *redis.Client) (ratelimit.Limiter, error) {
	switch cfg.Chat.RateLimitBackend {
	case "", "memory":
		return ratelimit.NewSlidingWindow(cfg.Chat.CreateLimit, cfg.Chat.CreateWindow, nil), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("rate limit backend redis requires redis.enabled")
		}
		return ratelimit.NewRedis(client, cache.KeyRoomCreateLimit, cfg.Chat.CreateLimit, cfg.Chat.CreateWindow, nil), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Chat.RateLimitBackend)
	}
}

func pruneBuckets(ctx context.Context, limiter *ratelimit.TokenBucket, logger *zap.Logger) {
	ticker := time.NewTicker(bucketPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(bucketPruneInterval); n > 0 {
				logger.Debug("Pruned idle upgrade buckets", zap.Int("count", n))
			}
		}
	}
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	upgradeLimiter ratelimit.Limiter,
	health *handler.HealthHandler,
	roomHandler *handler.RoomHandler,
	wsHandler *ws.Handler,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger, "/health"))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint
	retryAfter := time.Second
	if cfg.WS.UpgradeRate > 0 {
		retryAfter = time.Duration(float64(time.Second) / cfg.WS.UpgradeRate)
	}
	router.GET("/ws", middleware.RateLimit(upgradeLimiter, "ws", retryAfter, logger), wsHandler.ServeWS)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListPublic)
			rooms.GET("/:code", roomHandler.GetByCode)
		}

		v1.GET("/ws/stats", wsHandler.GetStats)
	}

	return router
}
