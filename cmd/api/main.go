package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/brametal/chapas-backend/api"
	"github.com/brametal/chapas-backend/api/controllers"
	"github.com/brametal/chapas-backend/api/middleware"
	"github.com/brametal/chapas-backend/api/routes"
	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/internal/cutting"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/db"
	"github.com/brametal/chapas-backend/pkg/instance"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/metrics"
	"github.com/brametal/chapas-backend/pkg/migrate"
	"github.com/brametal/chapas-backend/pkg/redis"
	"github.com/brametal/chapas-backend/pkg/retry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i]())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error closing resources", closeErr)
		}
	}()

	readiness := map[string]controllers.Pinger{}

	var dbClient *db.Client
	if needsDB(cfg.Production) {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)
		readiness["db"] = dbClient

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run dev migrations", err)
			os.Exit(1)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
		readiness["redis"] = redisClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prodMetrics := metrics.NewProductionMetrics(reg)

	cat := catalog.New(catalog.WorkbookSource{Path: cfg.Catalog.Path, Sheet: cfg.Catalog.Sheet}, logg)
	if report, err := cat.Load(ctx); err != nil {
		// The operator wizard answers CATALOG_UNAVAILABLE until a reload succeeds.
		logg.Error(logg.WithField(ctx, "path", cfg.Catalog.Path), "catalog not loaded", err)
	} else {
		prodMetrics.SetCatalogSize(report.Products)
	}

	policy := retry.FromConfig(cfg.Retry)
	stores, err := buildBackends(cfg, logg, dbClient, redisClient, policy)
	if err != nil {
		logg.Error(ctx, "failed to build storage backends", err)
		os.Exit(1)
	}

	svc, err := production.NewService(production.Params{
		Catalog:  cat,
		Rule:     cutting.NewRule(cfg.Production.CutStepMM),
		Lots:     stores.lots,
		Records:  stores.records,
		Sessions: stores.sessions,
		Saver:    stores.saver,
		Retry:    policy,
		Metrics:  prodMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create production service", err)
		os.Exit(1)
	}

	if cfg.Maintenance.Enabled {
		scheduler, err := buildScheduler(cfg, logg, reg, svc, cat, stores, redisClient)
		if err != nil {
			logg.Error(ctx, "failed to create maintenance scheduler", err)
			os.Exit(1)
		}
		go func() {
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "maintenance scheduler stopped", err)
			}
		}()
	}

	if cfg.Access.AdminKeyHash == "" || cfg.Access.SuperAdminKeyHash == "" {
		logg.Warn(ctx, "admin or super-admin access key hash not configured, those routes reject every request")
	}

	handler := routes.NewRouter(routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Service:    svc,
		Catalog:    cat,
		Readiness:  readiness,
		Redis:      redisClient,
		Gatherer:   reg,
		AccessKeys: middleware.AccessKeysFromConfig(cfg.Access),
	})
	server := api.NewServer(cfg, handler)

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            server.Addr,
		"instance":        instance.GetID(),
		"lots_backend":    cfg.Production.LotsBackend,
		"records_backend": cfg.Production.RecordsBackend,
		"cut_step_mm":     cfg.Production.CutStepMM,
	})
	logg.Info(logCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
