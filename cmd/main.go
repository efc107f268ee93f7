package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"ai_lp_server/api"
	"ai_lp_server/config"
	"ai_lp_server/internal/ai"
	"ai_lp_server/internal/ai/prompt"
	internalapi "ai_lp_server/internal/api"
	"ai_lp_server/internal/content"
	"ai_lp_server/internal/schema"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load .env before viper reads the environment. Missing .env is normal
	// in production.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	} else {
		log.Info().Msg("loaded environment variables from .env file")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	// Block schema registry; a load failure degrades prompt documentation
	// instead of preventing startup.
	registry, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.SchemaPath).Msg("block schemas unavailable, prompts will run in degraded mode")
	} else {
		log.Info().Int("blocks", registry.Len()).Msg("block schema registry loaded")
	}

	promptStore := prompt.NewStore(prompt.DefaultConfig())
	contentStore := content.NewStore(cfg.ContentDir)
	client := openai.NewClient(cfg.OpenAIKey)

	orchestrator := ai.NewOrchestrator(client, contentStore, promptStore, registry, ai.SessionOptions{
		Model:           cfg.ModelID,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
		JSONMode:        cfg.JSONMode,
	})

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	apiHandler := internalapi.NewAPIHandler(orchestrator, contentStore, promptStore, requestTimeout)

	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, apiHandler)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
		// Generation requests block on the model, so the write timeout has
		// to exceed the request timeout.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server listen error")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server forced shutdown")
	} else {
		log.Info().Msg("API server gracefully stopped")
	}
}
