package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/mroshb/lid_lottery/internal/config"
	"github.com/mroshb/lid_lottery/internal/database"
	"github.com/mroshb/lid_lottery/internal/handlers"
	"github.com/mroshb/lid_lottery/internal/lock"
	"github.com/mroshb/lid_lottery/internal/metrics"
	"github.com/mroshb/lid_lottery/internal/middleware"
	"github.com/mroshb/lid_lottery/internal/repositories"
	"github.com/mroshb/lid_lottery/internal/security"
	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/mroshb/lid_lottery/pkg/logger"
	"github.com/mroshb/lid_lottery/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.AppEnv == "development")
	defer logger.Sync()

	logger.Info("Starting lottery server...", "env", cfg.AppEnv)

	if err := cfg.ValidateProductionSecurity(); err != nil {
		logger.Fatal("Production security validation failed", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := database.SeedCodes(db, cfg.LotteryCodes); err != nil {
		logger.Fatal("Failed to seed lottery codes", err)
	}

	codec, err := security.NewCouponCodec([]byte(cfg.CouponSecret))
	if err != nil {
		logger.Fatal("Failed to create coupon codec", err)
	}
	validator, err := security.NewCodeValidator(cfg.CodePattern, cfg.LotteryCodes)
	if err != nil {
		logger.Fatal("Failed to create code validator", err)
	}
	engine, err := services.NewOutcomeEngine(cfg.WinOdds)
	if err != nil {
		logger.Fatal("Failed to create outcome engine", err)
	}

	var (
		locker      lock.Locker = lock.NewKeyedMutex()
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		locker = lock.NewRedisLocker(redisClient, cfg.GetLockTTL())
		logger.Info("Using redis code locks", "addr", cfg.RedisAddr)
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register metrics", err)
	}
	events := services.MultiSink{
		services.NewAttemptSink(repositories.NewAttemptRepository(db)),
		collector,
	}

	var notifier *telegram.Notifier
	if cfg.TelegramBotToken != "" {
		api, err := telegram.NewBotSender(cfg.TelegramBotToken, cfg.AppEnv == "development")
		if err != nil {
			logger.Warn("Admin notifications disabled", "error", err)
		} else {
			notifier = telegram.NewNotifier(api, cfg.TelegramAdminChatID)
			events = append(events, notifier)
		}
	}

	codes := repositories.NewCodeRepository(db)
	inventory, err := services.Inventory(codes, validator)
	if err != nil {
		logger.Fatal("Failed to read lottery codes", err)
	}
	for _, c := range inventory {
		logger.Info("Lottery code loaded", "code", c.Code, "status", c.Status, "outcome", c.Outcome)
	}
	handler := handlers.NewLotteryHandler(
		services.NewPlayService(codes, validator, codec, engine, locker, events, cfg.GetCouponTTL()),
		services.NewRedeemService(codes, codec, locker, events),
	)

	app := fiber.New(fiber.Config{
		AppName:               "lid-lottery",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		DisableStartupMessage: cfg.AppEnv == "production",
	})
	app.Use(middleware.RequestID())
	handler.Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			logger.Fatal("Server stopped", err)
		}
	}()
	logger.Info("Server started successfully", "port", cfg.AppPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if notifier != nil {
		notifier.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}
