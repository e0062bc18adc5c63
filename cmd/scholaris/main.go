package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/app"
	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/directory"
	"github.com/scholaris-edu/scholaris/internal/grants"
	"github.com/scholaris-edu/scholaris/internal/identity"
	"github.com/scholaris-edu/scholaris/internal/observability"
	"github.com/scholaris-edu/scholaris/internal/platform/cache"
	"github.com/scholaris-edu/scholaris/internal/platform/db"
	"github.com/scholaris-edu/scholaris/internal/roles"
	"github.com/scholaris-edu/scholaris/internal/staff"
	"github.com/scholaris-edu/scholaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	// Policy decision point.
	authzRepo := authz.NewRepository(dbpool)
	decisionCache := authz.NewDecisionCache(redisClient, cfg.DecisionCacheTTL, logger)
	bypass := authz.NewBypassChecker(authzRepo, redisClient, cfg.BypassCacheTTL, logger)
	recorder := authz.NewQueueRecorder(jobClient.Raw(), cfg.DecisionQueueSize, logger)
	defer recorder.Close()
	evaluator := authz.NewEvaluator(authz.EvaluatorConfig{
		Store:      authzRepo,
		Cache:      decisionCache,
		Bypass:     bypass,
		Ownerships: authz.DefaultOwnerships(dbpool),
		Recorder:   recorder,
		Observer:   metrics,
		Logger:     logger,
	})
	invalidator := authz.NewInvalidator(decisionCache, bypass)
	guard := authz.Middleware{Evaluator: evaluator, Logger: logger}

	// Identity.
	sessions := identity.NewSessionStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	identityService := identity.NewService(identity.NewRepository(dbpool), sessions)
	identityHandler := identity.NewHandler(logger, identityService)
	authenticator := identity.Authenticator{Sessions: sessions, Logger: logger}

	// Administration surfaces.
	directoryService := directory.NewService(directory.NewRepository(dbpool))
	directoryHandler := directory.NewHandler(logger, directoryService, guard)

	staffService := staff.NewService(staff.NewRepository(dbpool), invalidator)
	staffHandler := staff.NewHandler(logger, staffService, guard)

	rolesService := roles.NewService(roles.NewRepository(dbpool), invalidator)
	rolesHandler := roles.NewHandler(logger, rolesService, guard)

	grantsService := grants.NewService(grants.NewRepository(dbpool), invalidator)
	grantsHandler := grants.NewHandler(logger, grantsService, guard)

	auditService := audit.NewService(audit.NewRepository(dbpool), logger)
	auditHandler := audit.NewHandler(logger, auditService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Authenticator:    authenticator,
		IdentityHandler:  identityHandler,
		DirectoryHandler: directoryHandler,
		StaffHandler:     staffHandler,
		RolesHandler:     rolesHandler,
		GrantsHandler:    grantsHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
