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

	"lafavorita/backend/internal/app"
	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/config"
	"lafavorita/backend/internal/httpapi"
	"lafavorita/backend/internal/logger"
	"lafavorita/backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b, err := app.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("storage unavailable")
	}
	defer b.Close(log)

	authManager := auth.NewManager(auth.Config{
		Secret:      cfg.AuthSecret,
		TokenTTL:    time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		RecoveryTTL: time.Duration(cfg.RecoveryTTLMinutes) * time.Minute,
	}, b.Repo, b.Sessions, log)
	if err := authManager.UpgradeLegacyCredentials(ctx); err != nil {
		log.Error().Err(err).Msg("could not hash legacy credentials")
	}

	svc := service.New(b.Repo, b.Carts, log).
		WithLocation(cfg.Location()).
		WithCartTTL(time.Duration(cfg.CartTTLMinutes) * time.Minute).
		WithCredentialUpgrader(authManager)
	api := httpapi.New(svc, authManager, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      70 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("backend", cfg.StoreBackend).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.StoreBackend == config.BackendPostgres && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	if cfg.StoreBackend == config.BackendRedis && cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=redis")
	}
	return nil
}
