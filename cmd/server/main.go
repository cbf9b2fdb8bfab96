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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/cache"
	"retailhub/backend/internal/config"
	"retailhub/backend/internal/httpapi"
	"retailhub/backend/internal/logger"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/recovery"
	"retailhub/backend/internal/session"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/store/memory"
	pgstore "retailhub/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init("retailhub", cfg.Env, cfg.LogLevel)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx); err != nil {
				log.Fatal().Err(err).Msg("migrations failed")
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("storage ready")
	} else {
		repo = memory.NewSeeded()
		log.Info().Str("repository", "memory").Msg("storage ready")
	}

	var guard cache.SweepGuard = cache.NewLocalSweepGuard()
	if cfg.RedisAddr != "" {
		redisGuard := cache.NewRedisSweepGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisGuard.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, purge sweeps are guarded per process")
			_ = redisGuard.Close()
		} else {
			guard = redisGuard
			closers = append(closers, redisGuard.Close)
			log.Info().Str("addr", cfg.RedisAddr).Msg("purge sweeps guarded by redis")
		}
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New(prometheus.DefaultRegisterer)
	}

	manager := recovery.New(repo, recorder, guard)
	sessions := session.NewRegistry(repo, manager)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.ManagerPIN, repo)
	api := httpapi.New(sessions, auth, cfg.AllowedOrigin, recorder)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           rootHandler(api.Handler(), cfg.MetricsEnabled),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("env", cfg.Env).Msg("retail backend listening")
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

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

// rootHandler mounts the API and, when enabled, the prometheus scrape endpoint.
func rootHandler(api http.Handler, withMetrics bool) http.Handler {
	if !withMetrics {
		return api
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)
	return mux
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

var weakPINs = map[string]bool{
	"123456": true, "654321": true, "121212": true, "112233": true,
	"123123": true, "696969": true, "101010": true, "159753": true,
}

// validatePINStrength rejects repeated digits, straight runs and well known PINs.
func validatePINStrength(pin string) error {
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("PIN must be digits only")
		}
	}
	if weakPINs[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame, ascending, descending := true, true, true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
		}
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	switch {
	case allSame:
		return fmt.Errorf("all-same-digit PIN not allowed")
	case ascending, descending:
		return fmt.Errorf("sequential PIN not allowed")
	}
	return nil
}
