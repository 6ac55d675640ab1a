// Package main provides the entry point for the draw history fetcher.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/config"
	"github.com/chkomi/lotto/internal/datasource"
	"github.com/chkomi/lotto/internal/health"
	"github.com/chkomi/lotto/internal/logger"
	"github.com/chkomi/lotto/internal/metrics"
	"github.com/chkomi/lotto/internal/scheduler"
	"github.com/chkomi/lotto/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		daemon     = flag.Bool("daemon", false, "Run as a daemon, syncing on the configured schedule")
		from       = flag.Int("from", 0, "Backfill start round (requires -to)")
		to         = flag.Int("to", 0, "Backfill end round (requires -from)")
	)
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	store, err := datasource.NewStore(&cfg.DataSource, appLog)
	if err != nil {
		appLog.Fatalf("Failed to open draw store: %v", err)
	}
	source, err := datasource.New(&cfg.DataSource, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create draw source: %v", err)
	}
	syncSvc := service.NewDrawSyncService(source, store, appLog, 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *from > 0 || *to > 0:
		runBackfill(ctx, syncSvc, *from, *to, appLog)
	case *daemon:
		runDaemon(ctx, cfg, syncSvc, store, appLog)
	default:
		runOnce(ctx, syncSvc, appLog)
	}
}

func runOnce(ctx context.Context, syncSvc *service.DrawSyncService, appLog *logrus.Logger) {
	result, err := syncSvc.Sync(ctx)
	if err != nil {
		appLog.Fatalf("Draw sync failed: %v", err)
	}
	appLog.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"last_round": result.LastRound,
	}).Info("Draw history up to date")
}

func runBackfill(ctx context.Context, syncSvc *service.DrawSyncService, from, to int, appLog *logrus.Logger) {
	if from < 1 || to < from {
		appLog.Fatalf("Invalid backfill range %d..%d: -from and -to must satisfy 1 <= from <= to", from, to)
	}

	result, err := syncSvc.Backfill(ctx, from, to)
	if err != nil {
		appLog.Fatalf("Backfill failed: %v", err)
	}
	appLog.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"last_round": result.LastRound,
	}).Info("Backfill complete")
}

func runDaemon(ctx context.Context, cfg *config.Config, syncSvc *service.DrawSyncService, store *datasource.CSVStore, appLog *logrus.Logger) {
	if !cfg.Scheduler.Enabled {
		appLog.Fatal("Daemon mode requires scheduler.enabled in the config")
	}

	metrics.InitRegistry()

	var metricsHandler http.Handler
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Handler()
		metricsPath = cfg.Metrics.Path
	}
	healthServer := health.NewServer(health.Config{
		ServiceName:    "fetch",
		Version:        Version,
		Commit:         GitCommit,
		Port:           strconv.Itoa(cfg.Metrics.Port),
		Logger:         appLog,
		Store:          store,
		MetricsPath:    metricsPath,
		MetricsHandler: metricsHandler,
	})
	if err := healthServer.Start(); err != nil {
		appLog.Fatalf("Failed to start health server: %v", err)
	}

	sched, err := scheduler.NewScheduler(syncSvc, cfg.Scheduler.Timezone, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := sched.ScheduleDrawSync(cfg.Scheduler.DrawSync); err != nil {
		appLog.Fatalf("Failed to schedule draw sync: %v", err)
	}
	if err := sched.Start(); err != nil {
		appLog.Fatalf("Failed to start scheduler: %v", err)
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"schedule": cfg.Scheduler.DrawSync,
		"timezone": cfg.Scheduler.Timezone,
		"next_run": sched.GetNextRun().Format(time.RFC3339),
	}).Info("Draw sync scheduled")

	// Sync immediately so a fresh deployment does not wait for the next
	// scheduled draw.
	if _, err := syncSvc.Sync(ctx); err != nil {
		appLog.WithError(err).Error("Initial draw sync failed")
	}

	<-ctx.Done()
	appLog.Info("Shutdown signal received")

	healthServer.SetReady(false)
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Scheduler shutdown error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Health server shutdown error")
	}

	appLog.Info("Draw fetcher shut down")
}
