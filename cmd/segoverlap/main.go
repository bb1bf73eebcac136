package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"segoverlap/internal/models"
	"segoverlap/pkg/config"
	"segoverlap/pkg/overlap"
	"segoverlap/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "segoverlap.yaml", "YAML configuration file")
	gtDir := flag.String("gt", "", "Directory containing ground-truth label slices")
	predDir := flag.String("pred", "", "Directory containing predicted label slices")
	pattern := flag.String("pattern", "", "Glob selecting slice files (default from config)")
	numCores := flag.Int("cores", 0, "Number of goroutines per pass (default from config)")
	order := flag.String("order", "", "Rank order: encounter or label (default from config)")
	csvFile := flag.String("csv", "", "Write non-zero matrix cells to this CSV file")
	summaryFile := flag.String("summary", "", "Write a YAML evaluation report to this file")
	top := flag.Int("top", -1, "Number of largest overlaps to print (default from config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *gtDir, *predDir, *pattern, *numCores, *order, *csvFile, *summaryFile, *top)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Input.GroundTruthDir == "" || cfg.Input.PredictionDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(cfg *config.Config, gtDir, predDir, pattern string, numCores int, order, csvFile, summaryFile string, top int) {
	if gtDir != "" {
		cfg.Input.GroundTruthDir = gtDir
	}
	if predDir != "" {
		cfg.Input.PredictionDir = predDir
	}
	if pattern != "" {
		cfg.Input.Pattern = pattern
	}
	if numCores > 0 {
		cfg.Processing.NumCores = numCores
	}
	if order != "" {
		cfg.Processing.RankOrder = order
	}
	if csvFile != "" {
		cfg.Output.CSVFile = csvFile
	}
	if summaryFile != "" {
		cfg.Output.SummaryFile = summaryFile
	}
	if top >= 0 {
		cfg.Output.Top = top
	}
}

func run(cfg *config.Config) error {
	verbose := cfg.Output.Verbose

	gt, gtSlices, err := volume.LoadSlices(cfg.Input.GroundTruthDir, cfg.Input.Pattern)
	if err != nil {
		return fmt.Errorf("failed to load ground truth: %w", err)
	}
	pred, predSlices, err := volume.LoadSlices(cfg.Input.PredictionDir, cfg.Input.Pattern)
	if err != nil {
		return fmt.Errorf("failed to load prediction: %w", err)
	}
	if verbose {
		fmt.Printf("Loaded %d ground-truth slices, shape %v\n", len(gtSlices), gt.Shape())
		fmt.Printf("Loaded %d prediction slices, shape %v\n", len(predSlices), pred.Shape())
	}

	rankOrder, _ := overlap.ParseRankOrder(cfg.Processing.RankOrder)
	opts := []overlap.Option{
		overlap.WithWorkers(cfg.Processing.NumCores),
		overlap.WithRankOrder(rankOrder),
	}
	if verbose {
		opts = append(opts, overlap.WithProgress(func(stage string, completed, total int) {
			fmt.Printf("\rBuilding %s: %d/%d shards", stage, completed, total)
			if completed == total {
				fmt.Println()
			}
		}))
	}

	startTime := time.Now()
	m, err := overlap.Build(gt, pred, opts...)
	if err != nil {
		return err
	}
	elapsed := time.Since(startTime)

	summary := m.Summary()
	fmt.Printf("\nOverlap matrix built in %.3f seconds using %d cores\n", elapsed.Seconds(), cfg.Processing.NumCores)
	fmt.Printf("Ground-truth labels: %d (%d pixels)\n", summary.GroundTruthLabels, summary.GroundTruthPixels)
	fmt.Printf("Prediction labels:   %d (%d pixels)\n", summary.PredictionLabels, summary.PredictionPixels)
	fmt.Printf("Overlapping pixels:  %d in %d cells\n", summary.OverlapPixels, summary.NonZeroCells)

	pairs := topPairs(m.Pairs(), cfg.Output.Top)
	if len(pairs) > 0 {
		fmt.Printf("\nLargest overlaps:\n")
		for _, p := range pairs {
			fmt.Printf("  gt %d (%d px) x pred %d (%d px): %d px\n",
				p.GroundTruthLabel, p.GroundTruthSize, p.PredictionLabel, p.PredictionSize, p.Overlap)
		}
	}

	if cfg.Output.CSVFile != "" {
		if err := writeCSV(cfg.Output.CSVFile, m.Pairs()); err != nil {
			return err
		}
		fmt.Printf("Matrix cells written to: %s\n", cfg.Output.CSVFile)
	}

	if cfg.Output.SummaryFile != "" {
		report := models.Evaluation{
			GroundTruth: cfg.Input.GroundTruthDir,
			Prediction:  cfg.Input.PredictionDir,
			Shape:       gt.Shape(),
			RankOrder:   rankOrder.String(),
			Workers:     cfg.Processing.NumCores,
			Summary:     summary,
			TopPairs:    pairs,
		}
		if err := writeSummary(cfg.Output.SummaryFile, report); err != nil {
			return err
		}
		fmt.Printf("Summary written to: %s\n", cfg.Output.SummaryFile)
	}

	return nil
}

// topPairs returns the n largest overlaps, largest first
func topPairs(pairs []models.Pair, n int) []models.Pair {
	sorted := make([]models.Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Overlap > sorted[j].Overlap
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func writeCSV(path string, pairs []models.Pair) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	w := csv.NewWriter(file)
	w.Write([]string{"gt_label", "pred_label", "overlap", "gt_size", "pred_size"})
	for _, p := range pairs {
		w.Write([]string{
			strconv.FormatUint(p.GroundTruthLabel, 10),
			strconv.FormatUint(p.PredictionLabel, 10),
			strconv.FormatUint(p.Overlap, 10),
			strconv.FormatUint(p.GroundTruthSize, 10),
			strconv.FormatUint(p.PredictionSize, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}
	return nil
}

func writeSummary(path string, report models.Evaluation) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("error marshaling summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing summary: %w", err)
	}
	return nil
}
