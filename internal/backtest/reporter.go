package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GenerateConsoleReport formats a run result for terminal output.
func GenerateConsoleReport(result *RunResult) string {
	var builder strings.Builder
	builder.WriteString("Walk-Forward Report\n")
	builder.WriteString("===================\n")
	builder.WriteString(fmt.Sprintf("Strategy: %s\n", result.Strategy))
	builder.WriteString(fmt.Sprintf("Folds: %d (%d failed)\n", len(result.Folds), len(result.Failures)))
	builder.WriteString(fmt.Sprintf("Rounds evaluated: %d\n", len(result.Records)))
	builder.WriteString(fmt.Sprintf("Elapsed: %s\n", result.Elapsed))

	if result.Stats == nil {
		builder.WriteString("No statistics: insufficient evaluation data\n")
		return builder.String()
	}
	stats := result.Stats

	builder.WriteString(fmt.Sprintf("Average hits: %.3f (max %d)\n", stats.AverageHits, stats.MaxHits))
	builder.WriteString("Hit distribution:")
	for h, count := range stats.HitDistribution {
		builder.WriteString(fmt.Sprintf(" %d:%d", h, count))
	}
	builder.WriteString("\n")

	for _, k := range sortedKs(stats.HitRateAtK) {
		line := fmt.Sprintf("hit-rate@%d: %.4f", k, stats.HitRateAtK[k])
		if lift := stats.LiftAtK[k]; lift != nil {
			line += fmt.Sprintf(" (lift %.3f)", *lift)
		} else {
			line += " (lift undefined)"
		}
		builder.WriteString(line + "\n")
	}

	builder.WriteString(fmt.Sprintf("Average rank: %.2f\n", stats.AverageRank))
	builder.WriteString(fmt.Sprintf("MRR: %.4f\n", stats.MRR))
	builder.WriteString(fmt.Sprintf("Sharpe-like: %.3f\n", stats.SharpeLike))
	builder.WriteString(fmt.Sprintf("Drawdown: %d rounds\n", stats.Drawdown))

	if stats.Calibration != nil {
		builder.WriteString(fmt.Sprintf("Calibration: ECE %.2f, Brier %.4f over %d samples\n",
			stats.Calibration.ECE, stats.Calibration.Brier, stats.Calibration.Samples))
	}

	if len(result.Failures) > 0 {
		builder.WriteString("Failed folds:\n")
		for _, f := range result.Failures {
			builder.WriteString(fmt.Sprintf("  fold %d: %s\n", f.FoldIndex, f.Message))
		}
	}

	return builder.String()
}

// GenerateOptimizationReport formats a grid search result for terminal
// output.
func GenerateOptimizationReport(result *OptimizationResult) string {
	var builder strings.Builder
	builder.WriteString("Grid Search Report\n")
	builder.WriteString("==================\n")
	builder.WriteString(fmt.Sprintf("Objective: %s\n", result.Objective))

	failures := 0
	for _, cr := range result.Combinations {
		if cr.Err != nil {
			failures++
		}
	}
	builder.WriteString(fmt.Sprintf("Combinations: %d (%d failed)\n", len(result.Combinations), failures))

	if result.BestIndex < 0 {
		builder.WriteString("No successful combination\n")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("Best score: %.4f (combination %d)\n", result.BestScore, result.BestIndex))
	builder.WriteString(fmt.Sprintf("Best params: %s\n", formatParams(result.BestParams)))
	builder.WriteString(fmt.Sprintf("Elapsed: %s\n", result.Elapsed))

	if len(result.Sensitivity) > 0 {
		builder.WriteString("Sensitivity:\n")
		names := make([]string, 0, len(result.Sensitivity))
		for name := range result.Sensitivity {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := result.Sensitivity[name]
			builder.WriteString(fmt.Sprintf("  %s: best=%s range=%.4f\n", name, entry.BestValue, entry.Range))

			values := make([]string, 0, len(entry.ValueScores))
			for value := range entry.ValueScores {
				values = append(values, value)
			}
			sort.Strings(values)
			for _, value := range values {
				vs := entry.ValueScores[value]
				builder.WriteString(fmt.Sprintf("    %s: mean=%.4f std=%.4f n=%d\n", value, vs.Mean, vs.Std, vs.Count))
			}
		}
	}

	return builder.String()
}

// ExportJSON writes any result to an indented JSON file, creating parent
// directories as needed.
func ExportJSON(v interface{}, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportRecordsCSV writes per-round evaluation records for spreadsheets.
func ExportRecordsCSV(records []EvaluationRecord, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("round,fold,hit_count,avg_rank,best_rank,actual\n")
	for _, r := range records {
		actual := make([]string, len(r.Actual))
		for i, n := range r.Actual {
			actual[i] = fmt.Sprintf("%d", n)
		}
		builder.WriteString(fmt.Sprintf("%d,%d,%d,%.2f,%d,%s\n",
			r.Round, r.FoldIndex, r.HitCount, r.AvgRank, r.BestRank, strings.Join(actual, " ")))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

func sortedKs(m map[int]float64) []int {
	ks := make([]int, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

func formatParams(params ParamSet) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, params[name]))
	}
	return strings.Join(parts, " ")
}
