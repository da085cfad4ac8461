package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/gemini"
	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
	"github.com/Abdulkalam-AIML/titanbot/internal/auth"
	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/config"
	"github.com/Abdulkalam-AIML/titanbot/internal/logging"
	"github.com/Abdulkalam-AIML/titanbot/internal/policy"
	"github.com/Abdulkalam-AIML/titanbot/internal/repository"
	"github.com/Abdulkalam-AIML/titanbot/internal/service"
	server "github.com/Abdulkalam-AIML/titanbot/internal/transport/http"
	"github.com/Abdulkalam-AIML/titanbot/internal/transport/http/middleware"
	v1 "github.com/Abdulkalam-AIML/titanbot/internal/transport/http/v1"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Int("port", cfg.HTTPPort).
		Str("mode", cfg.Mode).
		Str("cloud_backend", cfg.CloudBackend).
		Msg("starting titanbot")

	ctx := context.Background()

	// Initialize store
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize policy engine")
	}

	if cfg.AllowMockFederation {
		logger.Warn().Msg("mock federated tokens are accepted")
	}

	svc := service.New(
		store,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.AllowMockFederation, 10*time.Second),
		auth.NewAppleVerifier(cfg.AppleClientID, cfg.AllowMockFederation),
		newGateway(cfg, logger),
		policyEngine,
		service.Options{
			MaxHistoryTurns: cfg.MaxHistoryTurns,
			TitleMaxChars:   cfg.TitleMaxChars,
			Persona:         cfg.Persona.Prompt,
		},
		logger,
	)

	limiter := newRateLimiter(ctx, cfg, logger)

	srv := server.NewServer(svc, limiter, server.Config{
		APIPrefix:   cfg.APIPrefix,
		CORSOrigins: cfg.CORSOrigins,
		Handler: v1.Options{
			AuthPerMinute: cfg.RateLimitAuthPerMin,
			SendPerMinute: cfg.RateLimitSendPerMin,
		},
	}, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	logger.Info().Int("port", cfg.HTTPPort).Str("prefix", cfg.APIPrefix).Msg("api started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
	}
	logger.Info().Msg("titanbot stopped")
}

// newGateway assembles the local model and the configured cloud backend.
func newGateway(cfg *config.Config, logger zerolog.Logger) *completion.Gateway {
	var local completion.LocalProvider
	if cfg.LocalLLMEnabled || cfg.Mode == config.ModeMock {
		client := llm.NewChatClient(cfg.Mode, cfg.LocalLLMURL, "", cfg.LLMTimeout, logger)
		local = completion.NewLocalLLM(client, cfg.LocalModel)
	}

	var cloud completion.CloudProvider
	switch cfg.CloudBackend {
	case config.CloudBackendOpenAI:
		client := llm.NewChatClient(cfg.Mode, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMTimeout, logger)
		cloud = completion.NewOpenAICloud(client, cfg.OpenAIAPIKey)
	default:
		cloud = gemini.NewProvider(cfg.GeminiAPIKey)
	}

	return completion.NewGateway(local, cloud, completion.Config{
		CloudModels:          cfg.CloudModels,
		MaxDiscoveryAttempts: cfg.MaxDiscoveryAttempts,
	}, logger)
}

// newRateLimiter returns a Redis-backed limiter, or a disabled one when
// REDIS_URL is unset.
func newRateLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *middleware.RateLimiter {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set, rate limiting disabled")
		return middleware.NewRateLimiter(nil, logger)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, rate limiter will fail open until it recovers")
	}
	return middleware.NewRateLimiter(middleware.NewRedisCounter(client), logger)
}
