package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/database"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/repository"
	"github.com/noah-isme/gema-grader/internal/router"
	"github.com/noah-isme/gema-grader/internal/service"
	"github.com/noah-isme/gema-grader/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	store, err := openStore(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	events := service.NewEventPublisher(redisClient, natsConn, cfg.EventsSubject, logger)
	events.Start(ctx)

	archive := service.NewResultArchive(store)
	settingsService := service.NewSettingsService(store, validate, cfg.ProviderAPIKey(), logger)
	gradingService := service.NewGradingService(newGrader(cfg, logger), archive, service.NewSubmissionRegistry(), settingsService, events, service.GradingServiceConfig{
		MaxAttempts:  cfg.MaxAttempts,
		RetryDelay:   cfg.RetryDelay,
		MaxFileBytes: cfg.UploadMaxBytes,
	}, logger)
	analyticsService := service.NewAnalyticsService(archive, redisClient, cfg.AnalyticsCacheTTL, logger)
	analyticsService.Start(ctx, events)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes)*cfg.UploadMaxFiles + 1<<20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	} else {
		logger.Warn().Msg("jwt.secret is not set, the API is unauthenticated")
	}

	router.Register(app, cfg, router.Dependencies{
		GradingHandler:   handler.NewGradingHandler(gradingService, validate, cfg.UploadMaxFiles, logger),
		ArchiveHandler:   handler.NewArchiveHandler(gradingService, validate, cfg.UploadMaxFiles, logger),
		SettingsHandler:  handler.NewSettingsHandler(settingsService, logger),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsService, logger),
		EventsHandler:    handler.NewEventsHandler(events, logger),
		JWTMiddleware:    jwtMiddleware,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("storage", cfg.StorageDriver).Str("provider", cfg.AIProvider).Msg("grading service listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app, cfg.ShutdownGracePeriod)
}

func openStore(cfg config.Config, redisClient *redis.Client) (repository.KeyValueRepository, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return repository.NewMemoryKeyValueRepository(), nil
	case config.StorageRedis:
		return repository.NewRedisKeyValueRepository(redisClient, "grader:"), nil
	case config.StoragePostgres:
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return repository.NewGormKeyValueRepository(db), nil
	case config.StorageSQLite:
		db, err := database.ConnectSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return repository.NewGormKeyValueRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func newGrader(cfg config.Config, logger zerolog.Logger) ai.Grader {
	if cfg.AIProvider == config.ProviderOpenAI {
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			Model:   cfg.AIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  logger,
		})
	}
	return ai.NewGeminiGrader(ai.GeminiConfig{
		Model:     cfg.AIModel,
		WebSearch: cfg.AIWebSearch,
		Logger:    logger,
	})
}

func waitForShutdown(ctx context.Context, app *fiber.App, grace time.Duration) {
	<-ctx.Done()

	if grace <= 0 {
		grace = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
