package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brametal/chapas-backend/api/controllers"
	"github.com/brametal/chapas-backend/api/middleware"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/enums"
	"github.com/brametal/chapas-backend/pkg/logger"
	pkgredis "github.com/brametal/chapas-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers. Redis and the
// metrics gatherer are optional.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Service    *production.Service
	Catalog    controllers.CatalogState
	Readiness  map[string]controllers.Pinger
	Redis      *pkgredis.Client
	Gatherer   prometheus.Gatherer
	AccessKeys middleware.AccessKeys
}

func NewRouter(d Deps) http.Handler {
	cfg, logg, svc := d.Config, d.Logger, d.Service

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiter          *middleware.AccessFailureLimiter
	)
	if d.Redis != nil {
		idempotencyStore = d.Redis
		limiter = middleware.NewAccessFailureLimiter(d.Redis, cfg.Access.FailureWindow, cfg.Access.FailureLimit)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Catalog, d.Readiness))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/operator", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Get("/products/{code}", controllers.OperatorLookupProduct(svc, logg))
		r.Route("/stations/{stationId}", func(r chi.Router) {
			r.Post("/scan", controllers.OperatorScan(svc, logg))
			r.Get("/wizard", controllers.OperatorSession(svc, logg))
			r.Delete("/wizard", controllers.OperatorCancel(svc, logg))
			r.Post("/wizard/reservation", controllers.OperatorReservation(svc, logg))
			r.Post("/wizard/quantity", controllers.OperatorQuantity(svc, logg))
			r.Post("/wizard/measured-mass", controllers.OperatorMeasuredMass(svc, logg))
			r.Post("/wizard/width", controllers.OperatorWidth(svc, logg))
			r.Post("/wizard/length", controllers.OperatorLength(svc, logg))
			r.Get("/wizard/preview", controllers.OperatorPreview(svc, logg))
			r.Post("/wizard/save", controllers.OperatorSave(svc, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(d.AccessKeys, limiter, logg))
		r.Use(middleware.RequireRole(logg, enums.AccessRoleAdmin, enums.AccessRoleSuperAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Get("/catalog", controllers.AdminCatalogReport(svc, logg))
		r.Route("/records", func(r chi.Router) {
			r.Get("/", controllers.AdminListRecords(svc, logg))
			r.Get("/summary", controllers.AdminRecordSummary(svc, logg))
			r.Get("/report", controllers.AdminRecordReport(svc, logg))
			r.Get("/export", controllers.AdminExportRecords(svc, logg))
			r.Get("/{recordId}", controllers.AdminGetRecord(svc, logg))
			r.Patch("/{recordId}/status", controllers.AdminUpdateStatus(svc, logg))
		})
	})

	r.Route("/api/v1/superadmin", func(r chi.Router) {
		r.Use(middleware.Auth(d.AccessKeys, limiter, logg))
		r.Use(middleware.RequireRole(logg, enums.AccessRoleSuperAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Delete("/records/{recordId}", controllers.SuperAdminDeleteRecord(svc, logg))
		r.Post("/reset", controllers.SuperAdminReset(svc, logg))
		r.Post("/catalog/reload", controllers.SuperAdminReloadCatalog(svc, logg))
		r.Route("/lots", func(r chi.Router) {
			r.Get("/", controllers.SuperAdminListLots(svc, logg))
			r.Get("/{code}", controllers.SuperAdminGetLot(svc, logg))
			r.Get("/{code}/next", controllers.SuperAdminPeekLot(svc, logg))
			r.Put("/{code}", controllers.SuperAdminOverrideLot(svc, logg))
		})
	})

	return r
}
