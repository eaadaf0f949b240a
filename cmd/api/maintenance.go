package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/internal/maintenance"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/internal/wizard"
	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/metrics"
	"github.com/brametal/chapas-backend/pkg/redis"
)

// buildScheduler registers the background jobs that apply to the configured
// backends. The lot audit reads shared state, so with redis only one replica
// runs it per cycle.
func buildScheduler(
	cfg *config.Config,
	logg *logger.Logger,
	reg prometheus.Registerer,
	svc *production.Service,
	cat *catalog.Catalog,
	stores backends,
	redisClient *redis.Client,
) (*maintenance.Scheduler, error) {
	registry, err := maintenance.NewRegistry(
		maintenance.NewCatalogRefreshJob(cfg.Catalog.Path, svc, cat, logg),
	)
	if err != nil {
		return nil, err
	}

	if mem, ok := stores.sessions.(*wizard.MemorySessions); ok {
		if err := registry.Register(maintenance.NewSessionSweepJob(mem, cfg.Production.SessionTTL, logg)); err != nil {
			return nil, err
		}
	}

	var audit maintenance.Job = maintenance.NewLotAuditJob(stores.records, stores.lots, logg)
	if redisClient != nil {
		lock, err := maintenance.NewRedisLock(redisClient, redisClient.LockKey(maintenance.LotAuditJobName), cfg.Maintenance.LockTTL)
		if err != nil {
			return nil, err
		}
		audit = maintenance.Guarded(audit, lock)
	}
	if err := registry.Register(audit); err != nil {
		return nil, err
	}
	logg.Info(logg.WithField(context.Background(), "jobs", registry.Names()), "maintenance jobs registered")

	return maintenance.NewScheduler(maintenance.SchedulerParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  metrics.NewJobMetrics(reg),
		Interval: cfg.Maintenance.Interval,
	})
}
