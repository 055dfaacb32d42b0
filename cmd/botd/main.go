package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/config"
	"github.com/adnane/nowab-bots-back/internal/directory"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/engine"
	"github.com/adnane/nowab-bots-back/internal/health"
	"github.com/adnane/nowab-bots-back/internal/orchestrator"
	"github.com/adnane/nowab-bots-back/internal/poller"
	"github.com/adnane/nowab-bots-back/internal/proclock"
	"github.com/adnane/nowab-bots-back/internal/session"
	"github.com/adnane/nowab-bots-back/internal/store"
	"github.com/adnane/nowab-bots-back/internal/transport"
)

func main() {
	logger := log.New(os.Stdout, "[botd] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	// One orchestrator per fleet: a second instance polling the same tokens
	// trips the platform's duplicate-consumer protection for every tenant.
	lock, err := proclock.Acquire(cfg.LockPath)
	if err != nil {
		logger.Fatalf("instance lock not acquired: %v", err)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, poolCloser := setupPool(ctx, cfg, logger)
	defer poolCloser()

	dir := setupDirectory(pool, logger)
	submissions := setupSubmissions(pool)
	sink := setupAudit(ctx, cfg, pool, logger)
	sessions := session.NewStore(cfg.SessionIdle)

	manager := poller.NewManager(poller.Deps{
		Dialer:      transport.NewTelegramDialer(cfg.PollTimeout),
		Sessions:    sessions,
		Submissions: submissions,
		Sink:        sink,
		Conflicts:   health.NewConflictRecorder(sink, logger, cfg.ConflictWindow),
		Logger:      logger,
		Engine: engine.Config{
			DuplicateLookback:   cfg.DuplicateLookbackRows,
			RequestDedupeWindow: cfg.RequestDedupeWindow,
			LoopAlertWindow:     cfg.LoopAlertWindow,
		},
		StartRetries:    cfg.StartRetries,
		StartRetryDelay: cfg.StartRetryDelay,
		PollTimeout:     cfg.PollTimeout,
		SendRetries:     cfg.SendRetries,
		SendRetryDelay:  cfg.SendRetryDelay,
		SendRateRPS:     cfg.SendRateRPS,
		SendRateBurst:   cfg.SendRateBurst,
		DispatchWorkers: cfg.DispatchWorkers,
		HealthInterval:  cfg.HealthInterval,
		UpdateRecency:   cfg.UpdateRecency,
	})
	runner := orchestrator.RunnerFunc(func(ctx context.Context, tenant domain.TenantConfig) (orchestrator.Handle, error) {
		return manager.Start(ctx, tenant)
	})

	orch := orchestrator.New(dir, runner, sessions, logger, orchestrator.Config{
		Interval: cfg.ReconcileInterval,
		Cooldown: cfg.FailureCooldown,
	})

	logger.Printf("orchestrator running, reconcile every %s", cfg.ReconcileInterval)
	orch.Run(ctx)
	logger.Printf("shutdown complete")
}

func setupPool(ctx context.Context, cfg config.Config, logger *log.Logger) (*pgxpool.Pool, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory stores")
		return nil, func() {}
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(ctx)
	}
	if err != nil {
		logger.Printf("failed to initialize postgres, fallback to memory: %v", err)
		return nil, func() {}
	}
	logger.Printf("postgres initialized")
	return pool, pool.Close
}

func setupDirectory(pool *pgxpool.Pool, logger *log.Logger) directory.Directory {
	if pool == nil {
		return directory.NewMemoryDirectory()
	}
	return directory.NewPostgresDirectoryFromPool(pool, logger)
}

func setupSubmissions(pool *pgxpool.Pool) store.Submissions {
	if pool == nil {
		return store.NewMemorySubmissions()
	}
	return store.NewPostgresSubmissionsFromPool(pool)
}

func setupAudit(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) audit.Sink {
	var funnel audit.Funnel
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, funnel counters stay in memory")
		funnel = audit.NewMemoryFunnel()
	} else {
		redisFunnel, err := audit.NewRedisFunnel(ctx, audit.RedisFunnelConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Printf("failed to initialize redis funnel, fallback to memory: %v", err)
			funnel = audit.NewMemoryFunnel()
		} else {
			logger.Printf("redis funnel counters initialized")
			funnel = redisFunnel
		}
	}

	if pool == nil {
		return audit.NewLoggerSink(funnel, logger)
	}
	return audit.NewDBSink(pool, funnel, logger)
}
