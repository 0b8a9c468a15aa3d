package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/catalog"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/idempotency"
	"appraisal/internal/platform/jobs"
	"appraisal/internal/platform/metrics"
	"appraisal/internal/store/cache"
	"appraisal/internal/store/memory"
	"appraisal/internal/store/postgres"
	appraisalhandler "appraisal/internal/transport/http/handlers/appraisal"
	audithandler "appraisal/internal/transport/http/handlers/audit"
	cataloghandler "appraisal/internal/transport/http/handlers/catalog"
	reportshandler "appraisal/internal/transport/http/handlers/reports"
	"appraisal/internal/transport/http/middleware"
	"appraisal/migrations"
)

// Backend is everything the HTTP surface needs from a store. Both the
// memory and postgres stores implement it.
type Backend interface {
	appraisal.AnswerListStore
	appraisal.TeamDirectory
	appraisal.UserDirectory
	catalog.StoreAPI
	idempotency.Store
	jobs.Purger
	audit.Store
}

type App struct {
	Config    config.Config
	DB        *pgxpool.Pool
	Store     Backend
	Appraisal *appraisal.Service
	Catalog   *catalog.Service
	Audit     *audit.Service
	Jobs      *jobs.Service
	Metrics   *metrics.Collector
	Router    http.Handler
}

// New opens the configured store, applies migrations when asked to and
// builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		app.Store = memory.New()
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if _, err := db.Migrate(ctx, pool, migrations.FS); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		app.DB = pool
		app.Store = postgres.NewStore(pool)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err := app.build(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// NewWithStore wires the HTTP surface over an existing backend.
func NewWithStore(cfg config.Config, store Backend) (*App, error) {
	app := &App{Config: cfg, Store: store}
	if err := app.build(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) build() error {
	collector, err := metrics.New()
	if err != nil {
		return err
	}
	a.Metrics = collector

	surveys := cache.NewSurveyCache(a.Store, a.Config.SurveyCacheSize, a.Config.SurveyCacheTTL)
	a.Appraisal = appraisal.NewService(appraisal.Deps{
		Answers:  a.Store,
		Surveys:  surveys,
		Teams:    a.Store,
		Users:    a.Store,
		Observer: collector,
	}, appraisal.WithConcurrency(a.Config.DistributionConcurrency))
	a.Catalog = catalog.NewService(a.Store)
	a.Audit = audit.New(a.Store)
	a.Jobs = jobs.New(a.Store, a.Config.IdempotencyTTL, a.Config.JobInterval)
	a.Router = a.routes()
	return nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	requireAuth := cfg.JWTSecret != ""

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.FanOutRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := a.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if requireAuth {
			r.Use(middleware.RequireUser)
		}

		catalogHandler := cataloghandler.NewHandler(a.Catalog, a.Audit, requireAuth)
		catalogHandler.RegisterRoutes(r)

		appraisalHandler := appraisalhandler.NewHandler(a.Appraisal, a.Store, a.Audit, requireAuth)
		appraisalHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(a.Audit, requireAuth)
		auditHandler.RegisterRoutes(r)

		reportsHandler := reportshandler.NewHandler(a.Appraisal, a.Catalog)
		reportsHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		slog.Info("database pool closed")
	}
}
