package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chkomi/lotto/internal/backtest"
	"github.com/chkomi/lotto/internal/config"
	"github.com/chkomi/lotto/internal/datasource"
	"github.com/chkomi/lotto/internal/logger"
	"github.com/chkomi/lotto/internal/metrics"
	"github.com/chkomi/lotto/internal/models"
	"github.com/chkomi/lotto/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	objective  string
	minimize   bool
	workers    int
	output     string

	appLog *logrus.Logger
	cfg    *config.Config
	seq    *models.Sequence
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&objective, "objective", "", "Override the objective metric")
	rootCmd.Flags().BoolVar(&minimize, "minimize", false, "Treat lower objective values as better")
	rootCmd.Flags().IntVar(&workers, "workers", -1, "Override the number of combination workers")
	rootCmd.Flags().StringVar(&output, "output", "", "Override the output directory for sweep artifacts")
}

var rootCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Grid search over strategy parameters",
	Long:  `Sweeps the configured parameter grid, scoring every combination with a full walk-forward backtest, and reports the best parameters with per-parameter sensitivity.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runGridSearch(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	return config.Validate(cfg)
}

func setupDependencies() error {
	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	store, err := datasource.NewStore(&cfg.DataSource, appLog)
	if err != nil {
		return fmt.Errorf("failed to open draw store: %w", err)
	}

	seq, err = store.LoadSequence()
	if err != nil {
		return fmt.Errorf("failed to load draw history: %w", err)
	}
	if seq.Len() == 0 {
		return fmt.Errorf("draw history at %s is empty; run the fetch command first", cfg.DataSource.CSVPath)
	}

	return nil
}

func runGridSearch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.HasOptimizerGrid() {
		appLog.Fatal("No optimizer grid configured; add an optimizer.grid section to the config")
	}

	optCfg := buildOptimizerConfig(cmd)
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		appLog.Fatalf("Invalid backtest config: %v", err)
	}

	opt, err := backtest.NewOptimizer(optCfg, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create optimizer: %v", err)
	}
	opt.SetProgress(func(percent float64, current, total int, detail string) {
		appLog.WithFields(logrus.Fields{
			"percent":     fmt.Sprintf("%.1f", percent),
			"combination": current,
			"total":       total,
		}).Debug(detail)
	})

	grid := backtest.Grid(cfg.Optimizer.Grid)
	result, err := opt.Optimize(ctx, grid, buildPipeline(btConfig))
	if err != nil {
		metrics.RecordOptimizationRun(optCfg.Objective, "failure", elapsedSeconds(result))
		appLog.Fatalf("Grid search failed: %v", err)
	}

	metrics.RecordOptimizationRun(optCfg.Objective, "success", result.Elapsed.Seconds())
	for _, cr := range result.Combinations {
		if cr.Err != nil {
			metrics.RecordCombination("failure")
		} else {
			metrics.RecordCombination("success")
		}
	}
	if result.BestIndex >= 0 {
		metrics.UpdateBestScore(result.Objective, result.BestScore)
	}

	fmt.Println(backtest.GenerateOptimizationReport(result))
	exportResult(result)
}

func buildOptimizerConfig(cmd *cobra.Command) backtest.OptimizerConfig {
	optCfg := backtest.OptimizerConfig{
		Objective: cfg.Optimizer.Objective,
		Minimize:  cfg.Optimizer.Minimize,
		Workers:   cfg.Optimizer.Workers,
	}
	if objective != "" {
		optCfg.Objective = objective
	}
	if cmd.Flags().Changed("minimize") {
		optCfg.Minimize = minimize
	}
	if workers >= 0 {
		optCfg.Workers = workers
	}
	return optCfg
}

// buildPipeline runs one full walk-forward backtest per grid combination.
// Grid values overlay the configured strategy params, so a grid can vary a
// subset of params while the rest keep their configured values.
func buildPipeline(btConfig backtest.Config) backtest.Pipeline {
	// Per-combination engines log at warn level so sweep output stays
	// readable; the optimizer itself reports lifecycle and progress.
	quiet := logrus.New()
	quiet.SetOutput(appLog.Out)
	quiet.SetFormatter(appLog.Formatter)
	quiet.SetLevel(logrus.WarnLevel)

	base := cfg.Backtest.Strategy
	return func(ctx context.Context, params backtest.ParamSet) (*backtest.Statistics, error) {
		strat, err := strategy.New(base.Name, mergeParams(base.Params, params))
		if err != nil {
			return nil, err
		}
		engine, err := backtest.NewEngine(btConfig, strat, quiet)
		if err != nil {
			return nil, err
		}
		result, err := engine.Run(ctx, seq)
		if err != nil {
			return nil, err
		}
		if result.Stats == nil {
			return nil, fmt.Errorf("no evaluation records produced")
		}
		return result.Stats, nil
	}
}

func mergeParams(base map[string]interface{}, overlay backtest.ParamSet) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

func exportResult(result *backtest.OptimizationResult) {
	outputPath := cfg.Backtest.OutputPath
	if output != "" {
		outputPath = output
	}

	path := filepath.Join(outputPath, fmt.Sprintf("optimization_%s.json", result.RunID))
	if err := backtest.ExportJSON(result, path); err != nil {
		appLog.Fatalf("Failed to export sweep JSON: %v", err)
	}
	appLog.WithField("path", path).Info("Sweep artifacts exported")
}

func elapsedSeconds(result *backtest.OptimizationResult) float64 {
	if result == nil {
		return 0
	}
	return result.Elapsed.Seconds()
}
