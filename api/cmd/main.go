package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/terpspark/admission-service/internal/audit"
	"github.com/terpspark/admission-service/internal/config"
	"github.com/terpspark/admission-service/internal/domain"
	"github.com/terpspark/admission-service/internal/infrastructure/memory"
	"github.com/terpspark/admission-service/internal/infrastructure/postgres"
	"github.com/terpspark/admission-service/internal/infrastructure/rabbitmq"
	"github.com/terpspark/admission-service/internal/infrastructure/redis"
	"github.com/terpspark/admission-service/internal/pkg/logger"
	"github.com/terpspark/admission-service/internal/security"
	"github.com/terpspark/admission-service/internal/service"
	"github.com/terpspark/admission-service/internal/transport/rest"
)

const retentionEvery = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// logger reads LOG_LEVEL / LOG_FORMAT from env
	_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	_ = os.Setenv("LOG_FORMAT", cfg.LogFormat)

	logger.Init()
	log := logger.Logger.With().
		Str("service", "admission-service").
		Str("env", cfg.AppEnv).
		Logger()

	// Root ctx with signal cancellation
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditLog := audit.New(logger.Logger.With().Str("service", "admission-service").Logger())

	// ---- Store ----
	var (
		store  domain.Store
		repo   *postgres.Repository
		health []func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.New()
		log.Warn().Msg("using in-memory store; state is lost on restart")

	default:
		dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres pool create failed")
		}
		defer dbPool.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		err = dbPool.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")

		repo = postgres.New(dbPool)
		store = repo
		health = append(health, dbPool.Ping)
	}

	// ---- Redis (optional) ----
	var cache *redis.Cache
	if cfg.RedisEnabled {
		cache = redis.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.CacheEventTTL)
		defer func() { _ = cache.Close() }()

		// Best-effort ping; the cache is only a fast path
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Msg("redis connected")
		}
		cancel()
	}

	// ---- Application service ----
	opts := []service.Option{
		service.WithAuditLogger(auditLog),
		service.WithTimeout(cfg.RequestTimeout),
		service.WithGuestPolicy(domain.GuestPolicy{
			MaxGuests:      cfg.MaxGuests,
			AllowedDomains: cfg.GuestDomains,
		}),
	}
	if cache != nil {
		opts = append(opts, service.WithCache(cache))
	}
	svc := service.New(store, opts...)

	// ---- Router ----
	rl := rest.RateLimit{
		Enabled: cfg.RLEnabled,
		Limit:   cfg.RLLimit,
		Window:  cfg.RLWindow,
	}
	if cfg.RLBackend == config.RLBackendRedis && cache != nil {
		rl.Cache = cache
	}
	httpHandler := rest.NewRouter(rest.RouterDeps{
		Handler:   rest.NewHandler(svc),
		Verifier:  security.NewHS256Verifier(cfg.JWTSecret, cfg.JWTIssuer),
		RateLimit: rl,
		Health: func(ctx context.Context) error {
			for _, check := range health {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	// ---- MQ consumer (inbound door scans) ----
	if cfg.CheckinConsumerEnabled && cfg.RabbitURL != "" {
		mqConsumer := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, svc)
		if err := mqConsumer.Start(rootCtx); err != nil {
			log.Error().Err(err).Msg("check-in consumer failed to start (continuing)")
		}
	}

	// ---- Outbox worker + retention (postgres only) ----
	if repo != nil {
		if cfg.OutboxEnabled {
			repo.StartOutboxWorker(rootCtx, cfg.RabbitURL, cfg.RabbitExchange, auditLog)
			log.Info().Msg("outbox worker started")
		}
		repo.StartRetentionCleanup(rootCtx, retentionEvery)
	}

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server crash
	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
