// Package main provides the entry point for the walk-forward backtest CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/backtest"
	"github.com/chkomi/lotto/internal/config"
	"github.com/chkomi/lotto/internal/datasource"
	"github.com/chkomi/lotto/internal/logger"
	"github.com/chkomi/lotto/internal/metrics"
	"github.com/chkomi/lotto/internal/models"
	"github.com/chkomi/lotto/internal/service"
	"github.com/chkomi/lotto/internal/strategy"
)

func main() {
	var (
		configPath   = flag.String("config", "config/config.yaml", "Path to config file")
		strategyName = flag.String("strategy", "", "Override the configured strategy")
		output       = flag.String("output", "", "Override the output directory for run artifacts")
		workers      = flag.Int("workers", -1, "Override the number of fold evaluation workers")
		syncFirst    = flag.Bool("sync", false, "Sync draw history from the configured source before running")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg, appLog)
	if *syncFirst {
		syncDraws(ctx, cfg, store, appLog)
	}

	seq := loadSequence(store, cfg, appLog)
	strat := resolveStrategy(cfg, *strategyName, appLog)
	btConfig := buildBacktestConfig(cfg, *workers, appLog)

	engine, err := backtest.NewEngine(btConfig, strat, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create engine: %v", err)
	}
	engine.SetProgress(func(percent float64, current, total int, detail string) {
		appLog.WithFields(logrus.Fields{
			"percent": fmt.Sprintf("%.1f", percent),
			"fold":    current,
			"total":   total,
		}).Debug(detail)
	})

	result, err := engine.Run(ctx, seq)
	if err != nil {
		metrics.RecordBacktestRun(strat.Name(), "failure", elapsedSeconds(result))
		appLog.Fatalf("Backtest run failed: %v", err)
	}

	metrics.RecordBacktestRun(strat.Name(), "success", result.Elapsed.Seconds())
	if result.Stats != nil {
		metrics.UpdateRunAverageHits(strat.Name(), result.Stats.AverageHits)
	}
	for range result.Failures {
		metrics.RecordFoldFailure()
	}

	fmt.Println(backtest.GenerateConsoleReport(result))

	outputPath := cfg.Backtest.OutputPath
	if *output != "" {
		outputPath = *output
	}
	exportResults(result, outputPath, appLog)
}

func openStore(cfg *config.Config, appLog *logrus.Logger) *datasource.CSVStore {
	store, err := datasource.NewStore(&cfg.DataSource, appLog)
	if err != nil {
		appLog.Fatalf("Failed to open draw store: %v", err)
	}
	return store
}

func syncDraws(ctx context.Context, cfg *config.Config, store *datasource.CSVStore, appLog *logrus.Logger) {
	source, err := datasource.New(&cfg.DataSource, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create draw source: %v", err)
	}
	svc := service.NewDrawSyncService(source, store, appLog, 0)
	if _, err := svc.Sync(ctx); err != nil {
		appLog.Fatalf("Draw sync failed: %v", err)
	}
}

func loadSequence(store *datasource.CSVStore, cfg *config.Config, appLog *logrus.Logger) *models.Sequence {
	seq, err := store.LoadSequence()
	if err != nil {
		appLog.Fatalf("Failed to load draw history: %v", err)
	}
	if seq.Len() == 0 {
		appLog.Fatalf("Draw history at %s is empty; run the fetch command first or pass -sync", cfg.DataSource.CSVPath)
	}
	return seq
}

// resolveStrategy builds the strategy from config, honoring the CLI
// override. Configured params belong to the configured strategy; an
// override of a different strategy starts from that strategy's defaults.
func resolveStrategy(cfg *config.Config, override string, appLog *logrus.Logger) strategy.Strategy {
	name := cfg.Backtest.Strategy.Name
	params := cfg.Backtest.Strategy.Params
	if override != "" && override != name {
		name = override
		params = nil
	}

	strat, err := strategy.New(name, params)
	if err != nil {
		appLog.Fatalf("Failed to create strategy %q: %v", name, err)
	}
	return strat
}

func buildBacktestConfig(cfg *config.Config, workers int, appLog *logrus.Logger) backtest.Config {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		appLog.Fatalf("Invalid backtest config: %v", err)
	}
	if workers >= 0 {
		btConfig.Workers = workers
	}
	return btConfig
}

func exportResults(result *backtest.RunResult, outputPath string, appLog *logrus.Logger) {
	runPath := filepath.Join(outputPath, fmt.Sprintf("run_%s.json", result.RunID))
	if err := backtest.ExportJSON(result, runPath); err != nil {
		appLog.Fatalf("Failed to export run JSON: %v", err)
	}

	recordsPath := filepath.Join(outputPath, fmt.Sprintf("records_%s.csv", result.RunID))
	if err := backtest.ExportRecordsCSV(result.Records, recordsPath); err != nil {
		appLog.Fatalf("Failed to export records CSV: %v", err)
	}

	appLog.WithFields(logrus.Fields{
		"run":     runPath,
		"records": recordsPath,
	}).Info("Run artifacts exported")
}

func elapsedSeconds(result *backtest.RunResult) float64 {
	if result == nil {
		return 0
	}
	return result.Elapsed.Seconds()
}
