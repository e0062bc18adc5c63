package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/app"
	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/grants"
	jobmetrics "github.com/scholaris-edu/scholaris/internal/jobs"
	"github.com/scholaris-edu/scholaris/internal/platform/db"
	"github.com/scholaris-edu/scholaris/internal/staff"
	"github.com/scholaris-edu/scholaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := jobmetrics.NewMetrics(nil)

	auditService := audit.NewService(audit.NewRepository(pool), logger)
	grantsService := grants.NewService(grants.NewRepository(pool), noopInvalidator{})
	staffService := staff.NewService(staff.NewRepository(pool), noopInvalidator{})
	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)

	retention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: authz.TaskTypeRecordDecision, Handler: jobs.NewRecordDecisionHandler(auditService, metrics)},
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer)},
			{Type: jobs.TaskTypeAuditRetention, Handler: jobs.NewAuditRetentionHandler(auditService, retention, metrics)},
			{Type: jobs.TaskTypeOverrideExpiry, Handler: jobs.NewOverrideExpiryHandler(grantsService, staffService, jobClient, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: asynq.NewTask(jobs.TaskTypeAuditRetention, nil), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 7 * * *", Task: asynq.NewTask(jobs.TaskTypeOverrideExpiry, nil), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

// noopInvalidator satisfies the admin services' invalidator dependency.
// The worker only reads through these services; nothing it does changes
// grants, so there is never a cache to drop.
type noopInvalidator struct{}

func (noopInvalidator) Actor(ctx context.Context, actorID int64) error { return nil }
func (noopInvalidator) All(ctx context.Context) error                  { return nil }
