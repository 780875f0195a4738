package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/newsguardhq/newsguard/internal/config"
	"github.com/newsguardhq/newsguard/internal/database"
	"github.com/newsguardhq/newsguard/internal/handler"
	"github.com/newsguardhq/newsguard/internal/middleware"
	"github.com/newsguardhq/newsguard/internal/router"
	"github.com/newsguardhq/newsguard/internal/service"
	"github.com/newsguardhq/newsguard/pkg/classifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	source, err := buildModelSource(cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure model source: %v", err)
	}

	loader := classifier.NewLoader(source, classifier.LoaderConfig{
		ModelID:     cfg.ModelID,
		LoadTimeout: cfg.ModelLoadTimeout,
		Logger:      logger,
	})

	if cfg.ModelWarmup {
		// Warm-up failure is not fatal; the first request retries the load.
		if _, err := loader.Get(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("model warm-up failed, will retry lazily")
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	analysisService := service.NewAnalysisService(loader, cache, validate, cfg, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AnalysisHandler: analysisHandler,
		Loader:          loader,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildModelSource(cfg config.Config, logger zerolog.Logger) (classifier.ModelSource, error) {
	switch cfg.ModelProvider {
	case "openai":
		return classifier.NewOpenAISource(classifier.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			MaxTokens: cfg.ModelMaxTokens,
			Logger:    logger,
		})
	default:
		return classifier.NewHuggingFaceSource(classifier.HuggingFaceConfig{
			Endpoint:  cfg.ModelEndpoint,
			APIKey:    cfg.ModelAPIKey,
			MaxTokens: cfg.ModelMaxTokens,
			Logger:    logger,
		}), nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
