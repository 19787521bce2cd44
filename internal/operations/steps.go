package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/galtons-data/family-heights/internal/config"
	"github.com/galtons-data/family-heights/internal/dataprocessing"
	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/internal/exporter"
	"github.com/galtons-data/family-heights/internal/infrastructure"
	"github.com/galtons-data/family-heights/pkg/contracts/domain"
)

// StepOptions carries what the pipeline steps share: file locations, the
// imputation tables and the reindex and histogram settings
type StepOptions struct {
	Paths     *config.Paths
	Sons      *domain.CategoryLookup
	Daughters *domain.CategoryLookup
	Parse     dataprocessing.ParseOptions
	Reindex   dataprocessing.ReindexOptions
	Bins      dataprocessing.BinSpec
	Metrics   *infrastructure.PipelineMetrics
	Logger    *slog.Logger
}

// NewStepOptions builds step options from the application configuration
func NewStepOptions(cfg *config.Config, paths *config.Paths, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) (*StepOptions, error) {
	sons, daughters, err := cfg.Lookups()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StepOptions{
		Paths:     paths,
		Sons:      sons,
		Daughters: daughters,
		Parse:     dataprocessing.ParseOptions{Aliases: cfg.Imputation.Aliases},
		Reindex: dataprocessing.ReindexOptions{
			Anomalous: cfg.Reindex.Anomalous,
			Target:    cfg.Reindex.Target,
		},
		Bins: dataprocessing.BinSpec{
			Start: cfg.Statistics.BinStart,
			Stop:  cfg.Statistics.BinStop,
			Edges: cfg.Statistics.BinEdges,
		},
		Metrics: metrics,
		Logger:  logger,
	}, nil
}

// tableOutput is one CSV written by a step
type tableOutput struct {
	name    string
	path    string
	options exporter.WriteOptions
}

// publish commits the tables (and any extra entries already on batch) as one
// set, then records rows written
func (o *StepOptions) publish(ctx context.Context, stepState *StepState, batch *exporter.Batch, tables ...tableOutput) error {
	for _, t := range tables {
		batch.AddCSV(t.path, t.options)
	}
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	written := make(map[string]int, len(tables))
	for _, t := range tables {
		o.Metrics.RecordRowsWritten(ctx, t.name, len(t.options.Records))
		written[t.name] = len(t.options.Records)
	}
	stepState.SetMetadata(MetadataRowsWritten, written)
	return nil
}

func (o *StepOptions) read(ctx context.Context, stepState *StepState, name, path string, schema domain.Schema) (*domain.FamilyTable, error) {
	table, err := dataprocessing.ReadFamilyTable(path, schema, o.Parse)
	if err != nil {
		return nil, err
	}
	o.Metrics.RecordRowsRead(ctx, name, len(table.Records))
	stepState.SetMetadata(MetadataInput, path)
	stepState.SetMetadata(MetadataRowsRead, len(table.Records))
	infrastructure.AddSpanEvent(ctx, "table.loaded", map[string]interface{}{
		"table": name,
		"rows":  len(table.Records),
	})
	return table, nil
}

// ImputeStep replaces categorical child heights in the master table
type ImputeStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewImputeStep creates the imputation step
func NewImputeStep(opts *StepOptions) *ImputeStep {
	return &ImputeStep{
		BaseStep: NewBaseStep(StepIDImpute, StepNameImpute),
		opts:     opts,
		logger:   opts.Logger.With(slog.String("step", StepIDImpute)),
	}
}

// RequiredInputs returns the master table
func (s *ImputeStep) RequiredInputs() []string {
	return []string{s.opts.Paths.MasterTable}
}

// ProducedOutputs returns the parents, sons, daughters and final tables
func (s *ImputeStep) ProducedOutputs() []string {
	return s.opts.Paths.ImputationOutputs()
}

// Execute reads the master table and writes the four imputed tables
func (s *ImputeStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	table, err := s.opts.read(ctx, stepState, "master", s.opts.Paths.MasterTable, domain.MasterSchema)
	if err != nil {
		return err
	}

	result, err := dataprocessing.Impute(table, s.opts.Sons, s.opts.Daughters)
	if err != nil {
		return err
	}

	total := 0
	for _, sub := range result.Substitutions {
		total += sub.Count
		s.opts.Metrics.RecordImputations(ctx, string(sub.Sex), sub.Label, sub.Count)
		s.logger.InfoContext(ctx, "Imputed categorical height",
			slog.String("sex", string(sub.Sex)),
			slog.String("label", sub.Label),
			slog.Float64("value", sub.Value),
			slog.Int("count", sub.Count))
	}
	for _, id := range result.CountMismatches {
		s.logger.WarnContext(ctx, "Child count is below the number of recorded children",
			slog.Int("family_id", id))
	}
	stepState.SetMetadata(MetadataSubstitutions, total)
	infrastructure.AddSpanEvent(ctx, "imputation.completed", map[string]interface{}{
		"substitutions":    total,
		"count_mismatches": len(result.CountMismatches),
	})

	paths := s.opts.Paths
	if err := s.opts.publish(ctx, stepState, exporter.NewBatch(s.logger),
		tableOutput{name: "parents", path: paths.ParentsCSV, options: exporter.WriteOptions{Records: result.Parents.Rows()}},
		tableOutput{name: "sons_imputed", path: paths.SonsImputedCSV, options: exporter.WriteOptions{Records: result.Sons.Rows()}},
		tableOutput{name: "daughters_imputed", path: paths.DaughtersImputedCSV, options: exporter.WriteOptions{Records: result.Daughters.Rows()}},
		tableOutput{name: "imputed_final", path: paths.ImputedFinalCSV, options: exporter.WriteOptions{Records: result.Final.Rows()}},
	); err != nil {
		return err
	}
	return s.removeStaleReindexed(ctx)
}

// removeStaleReindexed deletes a reindexed table derived from an earlier
// imputed table, so reshaping never reads it after a new imputation
func (s *ImputeStep) removeStaleReindexed(ctx context.Context) error {
	path := s.opts.Paths.ImputedReindexedCSV
	err := os.Remove(path)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Removed reindexed table of a previous run", slog.String("path", path))
		return nil
	case os.IsNotExist(err):
		return nil
	default:
		return apperrors.NewStorageError("failed to remove stale reindexed table", err).WithContext("path", path)
	}
}

// ReindexStep moves the anomalous family to its place in father-height order
type ReindexStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewReindexStep creates the reindexing step
func NewReindexStep(opts *StepOptions) *ReindexStep {
	return &ReindexStep{
		BaseStep: NewBaseStep(StepIDReindex, StepNameReindex),
		opts:     opts,
		logger:   opts.Logger.With(slog.String("step", StepIDReindex)),
	}
}

// RequiredInputs returns the imputed table
func (s *ReindexStep) RequiredInputs() []string {
	return []string{s.opts.Paths.ImputedFinalCSV}
}

// ProducedOutputs returns the reindexed table
func (s *ReindexStep) ProducedOutputs() []string {
	return []string{s.opts.Paths.ImputedReindexedCSV}
}

// Execute renumbers the imputed table
func (s *ReindexStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	table, err := s.opts.read(ctx, stepState, "imputed_final", s.opts.Paths.ImputedFinalCSV, domain.ImputedSchema)
	if err != nil {
		return err
	}

	result, err := dataprocessing.Reindex(table, s.opts.Reindex)
	if err != nil {
		return err
	}

	s.opts.Metrics.RecordShifted(ctx, len(result.Mapping))
	stepState.SetMetadata(MetadataTarget, result.Target)
	stepState.SetMetadata(MetadataShifted, len(result.Mapping))
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"reindex.anomalous": s.opts.Reindex.Anomalous,
		"reindex.target":    result.Target,
	})
	if result.Ordering != "" {
		stepState.SetMetadata(MetadataOrdering, string(result.Ordering))
		if !result.OrderingDetected {
			s.logger.WarnContext(ctx, "Father-height ordering could not be told from the table, assumed descending",
				slog.Int("anomalous", s.opts.Reindex.Anomalous))
		}
	}
	s.logger.InfoContext(ctx, "Family reindexed",
		slog.Int("anomalous", s.opts.Reindex.Anomalous),
		slog.Int("target", result.Target),
		slog.Bool("resolved", s.opts.Reindex.Target == 0),
		slog.String("ordering", string(result.Ordering)),
		slog.Int("families_shifted", len(result.Mapping)))

	return s.opts.publish(ctx, stepState, exporter.NewBatch(s.logger),
		tableOutput{name: "imputed_reindexed", path: s.opts.Paths.ImputedReindexedCSV, options: exporter.WriteOptions{Records: result.Table.Rows()}},
	)
}

// ReshapeStep turns family rows into one row per child
type ReshapeStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewReshapeStep creates the reshaping step
func NewReshapeStep(opts *StepOptions) *ReshapeStep {
	return &ReshapeStep{
		BaseStep: NewBaseStep(StepIDReshape, StepNameReshape),
		opts:     opts,
		logger:   opts.Logger.With(slog.String("step", StepIDReshape)),
	}
}

// input returns the reindexed table when it exists, the imputed table otherwise
func (s *ReshapeStep) input() (string, string) {
	if info, err := os.Stat(s.opts.Paths.ImputedReindexedCSV); err == nil && !info.IsDir() {
		return "imputed_reindexed", s.opts.Paths.ImputedReindexedCSV
	}
	return "imputed_final", s.opts.Paths.ImputedFinalCSV
}

// RequiredInputs returns the table the step will read
func (s *ReshapeStep) RequiredInputs() []string {
	_, path := s.input()
	return []string{path}
}

// ProducedOutputs returns the parents-sons and parents-daughters tables
func (s *ReshapeStep) ProducedOutputs() []string {
	return s.opts.Paths.ReshapeOutputs()
}

// Execute writes one row per recorded son and daughter
func (s *ReshapeStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	name, path := s.input()
	table, err := s.opts.read(ctx, stepState, name, path, domain.ImputedSchema)
	if err != nil {
		return err
	}

	result, err := dataprocessing.Reshape(table)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Families reshaped",
		slog.String("input", name),
		slog.Int("families", len(table.Records)),
		slog.Int("sons", len(result.ParentsSons)),
		slog.Int("daughters", len(result.ParentsDaughters)))

	return s.opts.publish(ctx, stepState, exporter.NewBatch(s.logger),
		tableOutput{name: "parents_sons", path: s.opts.Paths.ParentsSonsCSV, options: exporter.WriteOptions{Records: dataprocessing.ChildRows(result.ParentsSons)}},
		tableOutput{name: "parents_daughters", path: s.opts.Paths.ParentsDaughtersCSV, options: exporter.WriteOptions{Records: dataprocessing.ChildRows(result.ParentsDaughters)}},
	)
}

// DescribeStep computes group statistics and renders the chart workbook
type DescribeStep struct {
	BaseStep
	opts   *StepOptions
	logger *slog.Logger
}

// NewDescribeStep creates the statistics step
func NewDescribeStep(opts *StepOptions) *DescribeStep {
	return &DescribeStep{
		BaseStep: NewBaseStep(StepIDDescribe, StepNameDescribe),
		opts:     opts,
		logger:   opts.Logger.With(slog.String("step", StepIDDescribe)),
	}
}

// RequiredInputs returns the imputed table
func (s *DescribeStep) RequiredInputs() []string {
	return []string{s.opts.Paths.ImputedFinalCSV}
}

// ProducedOutputs returns the statistics and histogram tables and the workbook
func (s *DescribeStep) ProducedOutputs() []string {
	return s.opts.Paths.AnalyticsOutputs()
}

// Execute describes the imputed table
func (s *DescribeStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStep(s.ID())

	table, err := s.opts.read(ctx, stepState, "imputed_final", s.opts.Paths.ImputedFinalCSV, domain.ImputedSchema)
	if err != nil {
		return err
	}

	desc, err := dataprocessing.Describe(table, s.opts.Bins)
	if err != nil {
		return err
	}

	for _, g := range desc.Groups {
		s.logger.InfoContext(ctx, "Group described",
			slog.String("group", string(g.Group)),
			slog.Int("count", g.Count),
			slog.String("mean", fmt.Sprintf("%.3f", g.Mean)),
			slog.String("std", fmt.Sprintf("%.3f", g.Std)))
	}

	batch := exporter.NewBatch(s.logger)
	batch.Add(s.opts.Paths.ChartsXLSX, exporter.ChartWorkbookWriter(table, desc))
	return s.opts.publish(ctx, stepState, batch,
		tableOutput{name: "statistics", path: s.opts.Paths.StatisticsCSV, options: exporter.StatisticsRecords(desc)},
		tableOutput{name: "histograms", path: s.opts.Paths.HistogramsCSV, options: exporter.HistogramRecords(desc)},
	)
}

// PipelineSteps returns the four steps in execution order
func PipelineSteps(opts *StepOptions) []Step {
	return []Step{
		NewImputeStep(opts),
		NewReindexStep(opts),
		NewReshapeStep(opts),
		NewDescribeStep(opts),
	}
}

// RegisterPipeline registers the pipeline steps on registry
func RegisterPipeline(registry *Registry, opts *StepOptions) error {
	for _, step := range PipelineSteps(opts) {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}
