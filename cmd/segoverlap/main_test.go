package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"segoverlap/internal/models"
	"segoverlap/pkg/config"
	"segoverlap/pkg/volume"
)

func writeStack(t *testing.T, dir string, data []uint64) {
	t.Helper()
	v, err := volume.FromSlice(data, 2, 2, 2)
	require.NoError(t, err)
	require.NoError(t, volume.SaveSlices(v, dir, "slice"))
}

// TestRun verifies the end to end evaluation with CSV and YAML outputs
func TestRun(t *testing.T) {
	root := t.TempDir()
	gtDir := filepath.Join(root, "gt")
	predDir := filepath.Join(root, "pred")
	writeStack(t, gtDir, []uint64{1, 1, 2, 0, 3, 3, 3, 0})
	writeStack(t, predDir, []uint64{5, 5, 5, 0, 0, 6, 6, 6})

	cfg := config.DefaultConfig()
	cfg.Input.GroundTruthDir = gtDir
	cfg.Input.PredictionDir = predDir
	cfg.Processing.NumCores = 2
	cfg.Output.Verbose = false
	cfg.Output.CSVFile = filepath.Join(root, "cells.csv")
	cfg.Output.SummaryFile = filepath.Join(root, "summary.yaml")
	cfg.Output.Top = 2

	require.NoError(t, run(cfg))

	file, err := os.Open(cfg.Output.CSVFile)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"gt_label", "pred_label", "overlap", "gt_size", "pred_size"},
		{"1", "5", "2", "2", "3"},
		{"2", "5", "1", "1", "3"},
		{"3", "6", "2", "3", "3"},
	}, records)

	data, err := os.ReadFile(cfg.Output.SummaryFile)
	require.NoError(t, err)
	var report models.Evaluation
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.Equal(t, []int{2, 2, 2}, report.Shape)
	assert.Equal(t, "encounter", report.RankOrder)
	assert.Equal(t, 3, report.Summary.GroundTruthLabels)
	assert.Equal(t, uint64(5), report.Summary.OverlapPixels)
	require.Len(t, report.TopPairs, 2)
	assert.Equal(t, uint64(2), report.TopPairs[0].Overlap)
}

// TestRunShapeMismatch verifies that stacks of different shapes fail the evaluation
func TestRunShapeMismatch(t *testing.T) {
	root := t.TempDir()
	gtDir := filepath.Join(root, "gt")
	predDir := filepath.Join(root, "pred")
	writeStack(t, gtDir, make([]uint64, 8))

	v, err := volume.New(1, 2, 2)
	require.NoError(t, err)
	require.NoError(t, volume.SaveSlices(v, predDir, "slice"))

	cfg := config.DefaultConfig()
	cfg.Input.GroundTruthDir = gtDir
	cfg.Input.PredictionDir = predDir
	cfg.Output.Verbose = false
	assert.Error(t, run(cfg))
}

// TestTopPairs verifies ordering and truncation of the largest overlaps
func TestTopPairs(t *testing.T) {
	pairs := []models.Pair{{Overlap: 1}, {Overlap: 5}, {Overlap: 3}, {Overlap: 5}}

	top := topPairs(pairs, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []uint64{5, 5, 3}, []uint64{top[0].Overlap, top[1].Overlap, top[2].Overlap})
	assert.Equal(t, uint64(1), pairs[0].Overlap)

	assert.Len(t, topPairs(pairs, 10), 4)
	assert.Empty(t, topPairs(pairs, 0))
}

// TestApplyFlags verifies that only explicitly set flags override the config
func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	applyFlags(cfg, "gt", "", "", 0, "label", "", "out.yaml", -1)

	assert.Equal(t, "gt", cfg.Input.GroundTruthDir)
	assert.Equal(t, "", cfg.Input.PredictionDir)
	assert.Equal(t, "*.png", cfg.Input.Pattern)
	assert.Equal(t, "label", cfg.Processing.RankOrder)
	assert.Equal(t, "out.yaml", cfg.Output.SummaryFile)
	assert.Equal(t, 10, cfg.Output.Top)
}

// TestWriteCSVErrors verifies that CSV failures are returned instead of dropped
func TestWriteCSVErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, writeCSV(dir, []models.Pair{{Overlap: 1}}))

	path := filepath.Join(dir, "cells.csv")
	require.NoError(t, writeCSV(path, []models.Pair{{GroundTruthLabel: 2, PredictionLabel: 3, Overlap: 1}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gt_label,pred_label,overlap,gt_size,pred_size\n2,3,1,0,0\n", string(data))
}
