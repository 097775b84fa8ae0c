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

	"github.com/sitestack-erp/sitestack-erp/internal/app"
	"github.com/sitestack-erp/sitestack-erp/internal/audit"
	"github.com/sitestack-erp/sitestack-erp/internal/auth"
	"github.com/sitestack-erp/sitestack-erp/internal/notify"
	"github.com/sitestack-erp/sitestack-erp/internal/observability"
	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/platform/cache"
	"github.com/sitestack-erp/sitestack-erp/internal/platform/db"
	"github.com/sitestack-erp/sitestack-erp/internal/roles"
	"github.com/sitestack-erp/sitestack-erp/internal/users"
	"github.com/sitestack-erp/sitestack-erp/internal/workflow"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
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

	engine, err := perm.NewDefaultEngine()
	if err != nil {
		logger.Error("build permission engine", slog.Any("error", err))
		os.Exit(1)
	}
	permMiddleware := perm.Middleware{Engine: engine, Logger: logger}
	permHandler := perm.NewHandler(logger, engine)

	tokenStore := auth.NewTokenStore(redisClient, cfg.SessionTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokenStore)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)
	if err := rolesService.Sync(ctx); err != nil {
		logger.Error("sync roles", slog.Any("error", err))
		os.Exit(1)
	}
	rolesHandler := roles.NewHandler(logger, rolesService, permMiddleware)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, permMiddleware)

	metrics := observability.NewMetrics()

	auditRecorder := audit.NewRecorder(dbpool, logger)
	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	emitter := notify.NewEmitter(asynqClient, logger)

	workflowRepo := workflow.NewRepository(dbpool)
	workflowService := workflow.NewService(workflowRepo, engine, auditRecorder, emitter, logger, workflow.ServiceConfig{
		LockWait:        cfg.WorkflowLockWait,
		BulkParallelism: cfg.WorkflowBulkWorkers,
		Watchers:        cfg.WorkflowWatcherIDs,
	}).WithMetrics(metrics)
	workflowHandler := workflow.NewHandler(logger, workflowService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		PermHandler:     permHandler,
		PermMiddleware:  permMiddleware,
		WorkflowHandler: workflowHandler,
		AuditHandler:    auditHandler,
		UsersHandler:    usersHandler,
		RolesHandler:    rolesHandler,
		Metrics:         metrics,
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
