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

	"auto-savings-vault/config"
	httpHandler "auto-savings-vault/internal/adapter/http/handler"
	"auto-savings-vault/internal/adapter/metrics"
	memStorage "auto-savings-vault/internal/adapter/storage/memory"
	pgStorage "auto-savings-vault/internal/adapter/storage/postgres"
	redisStorage "auto-savings-vault/internal/adapter/storage/redis"
	"auto-savings-vault/internal/core/guard"
	"auto-savings-vault/internal/core/pda"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/scheduler"
	"auto-savings-vault/internal/service"
	"auto-savings-vault/pkg/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// storage is the ledger backend selected by configuration.
type storage struct {
	transactor ports.Transactor
	auditRepo  ports.AuditRepository
	health     ports.HealthChecker
	close      func()
}

// sideStores are the fast-path stores, backed by redis when enabled.
type sideStores struct {
	cache   ports.IdempotencyCache
	nonces  ports.NonceStore
	limiter ports.RateLimiter
	health  ports.HealthChecker // nil without redis
	close   func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (ASV_JWT_SECRET)")
	}
	programID, err := solana.PublicKeyFromBase58(cfg.Protocol.ProgramID)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid protocol.program_id")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("program_id", programID.String()).
		Msg("Starting Auto Savings Vault")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger storage")
	}
	defer store.close()

	side, err := openSideStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer side.close()

	// Core
	m := metrics.New()
	deriver := pda.NewDeriver(programID)
	deps := service.LedgerDeps{
		Transactor: store.transactor,
		Deriver:    deriver,
		Guard: guard.New(guard.Features{
			Pause:  cfg.Protocol.PauseEnabled,
			TVLCap: cfg.Protocol.TVLCapEnabled,
		}),
		Cache:   side.cache,
		Metrics: m,
		Log:     logger.Component(log, "ledger"),
		TVLCap:  cfg.Protocol.TVLCap,
	}

	// Initialize business services
	savingsSvc := service.NewSavingsService(deps)
	treasurySvc := service.NewTreasuryService(deps)
	allocationSvc := service.NewAllocationService(deps)
	tokenVaultSvc := service.NewTokenVaultService(deps)
	reportingSvc := service.NewReportingService(store.transactor, deriver)

	sigSvc := service.NewEd25519SignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(sigSvc, tokenSvc)
	auditSvc := service.NewAuditService(store.auditRepo, logger.Component(log, "audit"))
	defer auditSvc.Wait()

	// Reconciliation
	if cfg.Reconcile.Enabled {
		reconciler := service.NewReconciler(store.transactor, deriver, m, logger.Component(log, "reconcile"))
		sched := scheduler.NewScheduler(ctx, reconciler, log)
		if err := sched.RegisterAll(cfg.Reconcile.Cron); err != nil {
			log.Fatal().Err(err).Msg("Failed to register scheduled tasks")
		}
		sched.Start()
		defer sched.Stop()
	}

	checkers := []ports.HealthChecker{store.health}
	if side.health != nil {
		checkers = append(checkers, side.health)
	}
	var limiter ports.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = side.limiter
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SavingsSvc:     savingsSvc,
		TreasurySvc:    treasurySvc,
		AllocationSvc:  allocationSvc,
		TokenVaultSvc:  tokenVaultSvc,
		ReportingSvc:   reportingSvc,
		AuthSvc:        authSvc,
		SigSvc:         sigSvc,
		NonceStore:     side.nonces,
		TokenSvc:       tokenSvc,
		RateLimiter:    limiter,
		HealthCheckers: checkers,
		AuditSvc:       auditSvc,
		Metrics:        m,
		Logger:         logger.Component(log, "http"),
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStorage connects the configured ledger backend, applying migrations for postgres.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("Using in-memory ledger storage, state is lost on exit")
		s := memStorage.NewStore()
		return &storage{
			transactor: s,
			auditRepo:  memStorage.NewAuditRepo(s),
			health:     s,
			close:      func() {},
		}, nil
	}

	if cfg.Storage.RunMigrations {
		if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
			return nil, err
		}
	}
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")
	return &storage{
		transactor: pgStorage.NewTransactor(pool),
		auditRepo:  pgStorage.NewAuditRepo(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

// openSideStores connects redis, or falls back to process-local stores.
func openSideStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sideStores, error) {
	if !cfg.Redis.Enabled {
		log.Warn().Msg("Redis disabled, using process-local nonce, cache and rate limit stores")
		return &sideStores{
			cache:   memStorage.NewIdempotencyCache(),
			nonces:  memStorage.NewNonceStore(),
			limiter: memStorage.NewRateLimiter(),
			close:   func() {},
		}, nil
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Redis connected")
	return &sideStores{
		cache:   redisStorage.NewIdempotencyCache(rdb),
		nonces:  redisStorage.NewNonceStore(rdb),
		limiter: redisStorage.NewRateLimitStore(rdb),
		health:  redisStorage.NewHealthCheck(rdb),
		close:   func() { _ = rdb.Close() },
	}, nil
}
