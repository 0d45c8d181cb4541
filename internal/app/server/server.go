package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/domain/announcements"
	"ems/internal/domain/attendance"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/leave"
	"ems/internal/domain/reports"
	"ems/internal/platform/cache"
	"ems/internal/platform/config"
	"ems/internal/platform/db"
	"ems/internal/platform/email"
	"ems/internal/platform/events"
	"ems/internal/platform/jobs"
	"ems/internal/platform/metrics"
	announcementhandler "ems/internal/transport/http/handlers/announcements"
	attendancehandler "ems/internal/transport/http/handlers/attendance"
	audithandler "ems/internal/transport/http/handlers/audit"
	authhandler "ems/internal/transport/http/handlers/auth"
	corehandler "ems/internal/transport/http/handlers/core"
	leavehandler "ems/internal/transport/http/handlers/leave"
	reportshandler "ems/internal/transport/http/handlers/reports"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

// Services holds what the router serves. Nil members disable the feature
// they back.
type Services struct {
	Core          *core.Service
	Attendance    *attendance.Service
	Leave         *leave.Service
	Announcements *announcements.Service
	Reports       *reports.Service
	Audit         *audit.Service
	Sync          *auth.SyncService
	Resolver      *auth.Resolver
	Idempotency   *middleware.IdempotencyStore
	Jobs          *jobs.Service
	Metrics       *metrics.Collector
	RateCounter   middleware.Counter
	Ready         func(ctx context.Context) error
}

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Services Services

	cache    *cache.RoleCache
	producer *events.Producer
}

// New connects to the database and the optional Redis and Kafka backends
// and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	roleCache, err := cache.New(cfg.RedisURL, cfg.RoleCacheTTL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	var rc auth.RoleCache
	var counter middleware.Counter = middleware.NewMemoryCounter()
	if roleCache != nil {
		if err := roleCache.Ping(ctx); err != nil {
			slog.Warn("role cache unreachable, continuing without it", "err", err)
		}
		rc = roleCache
		counter = roleCache.RateCounter()
	}

	producer := events.New(cfg.KafkaBrokers, cfg.AnnouncementTopic)
	var publisher announcements.Publisher
	if producer != nil {
		publisher = producer
	}

	authStore := auth.NewStore(pool)
	coreStore := core.NewStore(pool)
	reconciler := core.NewReconciler(coreStore, rc)
	attendanceService := attendance.NewService(attendance.NewStore(pool))
	announcementService := announcements.New(announcements.NewStore(pool), email.New(cfg), publisher)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	svc := Services{
		Core:          core.NewService(coreStore, reconciler, rc),
		Attendance:    attendanceService,
		Leave:         leave.NewService(leave.NewStore(pool)),
		Announcements: announcementService,
		Reports:       reports.NewService(reports.NewStore(pool), attendanceService),
		Audit:         audit.New(pool),
		Sync:          auth.NewSyncService(authStore, rc, cfg.AdminEmails),
		Resolver:      auth.NewResolver(authStore, rc),
		Idempotency:   middleware.NewIdempotencyStore(pool),
		Jobs:          jobs.New(jobs.PGRunStore{DB: pool}, cfg, reconciler, announcementService),
		Metrics:       collector,
		RateCounter:   counter,
		Ready:         pool.Ping,
	}

	logger := slog.Default()
	return &App{
		Config:   cfg,
		DB:       pool,
		Router:   NewRouter(cfg, logger, svc),
		Services: svc,
		cache:    roleCache,
		producer: producer,
	}, nil
}

// NewRouter wires middleware, API routes and the SPA.
func NewRouter(cfg config.Config, logger *slog.Logger, svc Services) http.Handler {
	var (
		resolver    middleware.RoleResolver
		recorder    middleware.ResolutionRecorder
		statuses    middleware.StatusRecorder
		snapshots   reportshandler.MetricsSource
		auditor     shared.AuditRecorder
		sweeper     reportshandler.Sweeper
		idempotency leavehandler.Idempotency
	)
	if svc.Resolver != nil {
		resolver = svc.Resolver
	}
	if svc.Metrics != nil {
		recorder, statuses, snapshots = svc.Metrics, svc.Metrics, svc.Metrics
	}
	if svc.Audit != nil {
		auditor = svc.Audit
	}
	if svc.Jobs != nil {
		sweeper = svc.Jobs
	}
	if svc.Idempotency != nil {
		idempotency = svc.Idempotency
	}
	counter := svc.RateCounter
	if counter == nil {
		counter = middleware.NewMemoryCounter()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(statuses))
	router.Use(middleware.Auth(cfg.IdPJWTSecret, cfg.IdPAudience, resolver, recorder))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := svc.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(counter, cfg.RateLimitPerMinute, time.Minute))

		var syncer authhandler.Syncer
		if svc.Sync != nil {
			syncer = svc.Sync
		}
		authHandler := authhandler.NewHandler(syncer, cfg.SyncSecretHash, auditor)
		if syncer != nil {
			authHandler.RegisterPublicRoutes(r)
		}
		authHandler.RegisterRoutes(r)

		if svc.Core != nil {
			corehandler.NewHandler(svc.Core, auditor).RegisterRoutes(r)
			if svc.Attendance != nil {
				attendancehandler.NewHandler(svc.Attendance, svc.Core, auditor).RegisterRoutes(r)
			}
			if svc.Leave != nil {
				leavehandler.NewHandler(svc.Leave, svc.Core, idempotency, auditor).RegisterRoutes(r)
			}
			if svc.Announcements != nil {
				announcementhandler.NewHandler(svc.Announcements, svc.Core, auditor).RegisterRoutes(r)
			}
			if svc.Reports != nil {
				reportshandler.NewHandler(svc.Reports, svc.Core, sweeper, snapshots).RegisterRoutes(r)
			}
		}
		if svc.Audit != nil {
			audithandler.NewHandler(svc.Audit).RegisterRoutes(r)
		}
	})

	router.Mount("/", middleware.Gatekeeper(spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"}))
	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a.Services.Jobs != nil {
		a.Services.Jobs.Start(ctx)
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("EMS server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			slog.Warn("kafka producer close failed", "err", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("role cache close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if err == nil || os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
