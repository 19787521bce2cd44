package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for every file the pipeline reads or writes.
type Paths struct {
	DataDir   string
	RawDir    string
	OutputDir string
	LogsDir   string

	// Input of the imputation stage
	MasterTable string

	// Imputation outputs
	ParentsCSV          string
	SonsImputedCSV      string
	DaughtersImputedCSV string
	ImputedFinalCSV     string

	// Reindex output, also the reshaper input
	ImputedReindexedCSV string

	// Reshape outputs, also the analytics inputs
	ParentsSonsCSV      string
	ParentsDaughtersCSV string

	// Analytics outputs
	StatisticsCSV string
	HistogramsCSV string
	ChartsXLSX    string
}

// NewPaths resolves every path from the configured directories.
// An empty OutputDir defaults to <data>/processed and an empty MasterTable
// to <data>/raw/galton_family_heights.csv.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	logsDir, err := filepath.Abs(cfg.LogsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logs directory: %w", err)
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(dataDir, "processed")
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	rawDir := filepath.Join(dataDir, "raw")
	master := cfg.MasterTable
	if master == "" {
		master = filepath.Join(rawDir, MasterTableFile)
	}

	p := &Paths{
		DataDir:     dataDir,
		RawDir:      rawDir,
		OutputDir:   outputDir,
		LogsDir:     logsDir,
		MasterTable: master,
	}
	p.ParentsCSV = p.GetOutputPath(ParentsFile)
	p.SonsImputedCSV = p.GetOutputPath(SonsImputedFile)
	p.DaughtersImputedCSV = p.GetOutputPath(DaughtersImputedFile)
	p.ImputedFinalCSV = p.GetOutputPath(ImputedFinalFile)
	p.ImputedReindexedCSV = p.GetOutputPath(ImputedReindexedFile)
	p.ParentsSonsCSV = p.GetOutputPath(ParentsSonsFile)
	p.ParentsDaughtersCSV = p.GetOutputPath(ParentsDaughtersFile)
	p.StatisticsCSV = p.GetOutputPath(StatisticsFile)
	p.HistogramsCSV = p.GetOutputPath(HistogramsFile)
	p.ChartsXLSX = p.GetOutputPath(ChartsFile)

	return p, nil
}

// EnsureDirectories creates the output and log directories if missing
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetOutputPath returns the path of a file in the output directory
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path of a file in the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// ImputationOutputs lists the files written by the imputation stage
func (p *Paths) ImputationOutputs() []string {
	return []string{p.ParentsCSV, p.SonsImputedCSV, p.DaughtersImputedCSV, p.ImputedFinalCSV}
}

// ReshapeOutputs lists the files written by the reshaping stage
func (p *Paths) ReshapeOutputs() []string {
	return []string{p.ParentsSonsCSV, p.ParentsDaughtersCSV}
}

// AnalyticsOutputs lists the files written by the statistics stage
func (p *Paths) AnalyticsOutputs() []string {
	return []string{p.StatisticsCSV, p.HistogramsCSV, p.ChartsXLSX}
}
