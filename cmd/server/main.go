package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"status-notification/internal/adapters/primary/http/handlers"
	"status-notification/internal/adapters/primary/http/middleware"
	"status-notification/internal/adapters/secondary/postgres"
	"status-notification/internal/adapters/secondary/prometheus"
	"status-notification/internal/adapters/secondary/sqlite"
	"status-notification/internal/adapters/secondary/telegram"
	"status-notification/internal/config"
	output "status-notification/internal/core/ports/output"
	"status-notification/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer repo.Close()
	log.WithField("driver", cfg.Database.Driver).Info("storage ready")

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters
	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		log.Fatalf("create notifier: %v", err)
	}
	metrics := prometheus.NewMetrics()

	// Core Services
	monitorSvc := services.NewMonitorService(repo, metrics, cfg.Monitoring.AllowedDelay, cfg.Security.APIKeys)
	watchdog := services.NewWatchdog(repo, notifier, metrics, cfg.Monitoring.CheckInterval, cfg.Monitoring.AllowedDelay)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(monitorSvc)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging("/healthz", "/metrics"), middleware.CORS(), gin.Recovery())

	h.RegisterRoutes(router)

	// Health check with storage ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := monitorSvc.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if err := watchdog.Start(); err != nil {
		log.Fatalf("start watchdog: %v", err)
	}

	// Start server
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}
	if err := watchdog.Stop(ctx); err != nil {
		log.Errorf("watchdog stop: %v", err)
	}

	log.Info("server stopped")
}

func openRepository(cfg *config.Config) (output.MonitorRepository, error) {
	if cfg.Database.Driver != "postgres" {
		return sqlite.Open(cfg.Database.Path)
	}

	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.NewMonitorRepository(pool), nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
