package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/lopanhq/gatekeeper/pkg/audit"
	"github.com/lopanhq/gatekeeper/pkg/config"
	"github.com/lopanhq/gatekeeper/pkg/httputil"
	"github.com/lopanhq/gatekeeper/pkg/identity"
	"github.com/lopanhq/gatekeeper/pkg/observability"
	"github.com/lopanhq/gatekeeper/pkg/rbac"
)

var runOnce = flag.Bool("cleanup-once", false, "Run the expired-assignment sweep once and exit")

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	sink, err := buildAuditSink(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize audit sink")
	}
	defer sink.Close()

	cache, err := buildCache(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize result cache")
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	directory := identity.NewMemoryDirectory(&identity.User{
		ID:     cfg.Engine.AdminUser,
		Name:   "Administrator",
		Active: true,
		Roles:  []string{string(rbac.RoleAdministrator)},
	})

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	engine := rbac.NewEngine(rbac.Options{
		Cache:        cache,
		Identity:     identity.ContextProvider{},
		Audit:        sink,
		Logger:       logger,
		Metrics:      metrics,
		MaxElevation: cfg.Engine.MaxElevation,
	})

	if *runOnce {
		removed := engine.CleanupExpiredAssignments(context.Background())
		log.WithField("removed", removed).Info("cleanup complete")
		return
	}

	// Periodic expired-assignment sweep.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Engine.CleanupSchedule, func() {
		removed := engine.CleanupExpiredAssignments(context.Background())
		if removed > 0 {
			log.WithField("removed", removed).Info("removed expired role assignments")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid cleanup schedule")
	}
	scheduler.Start()

	router := mux.NewRouter()
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(httputil.LoggingMiddleware(logger))
	router.Use(identity.NewMiddleware(directory).Handler)
	rbac.NewHandlers(engine).RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		log.WithField("addr", healthServer.Addr).Info("health/metrics listener starting")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health listener failed")
		}
	}()

	go func() {
		log.WithField("addr", server.Addr).Info("gatekeeper access service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutting down")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	if err := healthServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("health listener shutdown failed")
	}
}

func buildAuditSink(cfg *config.Config) (audit.Sink, error) {
	switch cfg.Audit.Backend {
	case "file":
		return audit.NewFileSink(audit.FileSinkConfig{BasePath: cfg.Audit.Dir})
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.Audit.DBPath)
		if err != nil {
			return nil, err
		}
		return audit.NewDBSink(db)
	default:
		return audit.NopSink{}, nil
	}
}

func buildCache(cfg *config.Config) (rbac.ResultCache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		return rbac.NewRedisCache(redis.NewClient(opts), cfg.Cache.TTL), nil
	default:
		return rbac.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL), nil
	}
}
