package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galtons-data/family-heights/internal/config"
	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/internal/operations"
	"github.com/galtons-data/family-heights/internal/shared/testutil"
)

const testConfig = `logging:
  level: debug
  format: json
  output: console
telemetry:
  tracing: true
  metrics: true
`

type fixture struct {
	dir  string
	opts Options
	logs *bytes.Buffer
}

func newFixture(t *testing.T, withMaster bool) *fixture {
	t.Helper()
	dir := t.TempDir()

	configFile := filepath.Join(dir, "galton.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(testConfig), 0644))

	dataDir := filepath.Join(dir, "data")
	if withMaster {
		raw := filepath.Join(dataDir, "raw")
		require.NoError(t, os.MkdirAll(raw, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(raw, config.MasterTableFile), []byte(testutil.SampleMaster), 0644))
	}

	logs := &bytes.Buffer{}
	return &fixture{
		dir: dir,
		opts: Options{
			ConfigFile: configFile,
			DataDir:    dataDir,
			LogsDir:    filepath.Join(dir, "logs"),
			LogOutput:  logs,
		},
		logs: logs,
	}
}

func TestApplication_Run(t *testing.T) {
	f := newFixture(t, true)

	a, err := NewApplication(f.opts)
	require.NoError(t, err)
	assert.NotEmpty(t, a.RunID)

	state, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, state.GetStatus())

	for _, path := range [][]string{
		a.Paths.ImputationOutputs(),
		{a.Paths.ImputedReindexedCSV},
		a.Paths.ReshapeOutputs(),
		a.Paths.AnalyticsOutputs(),
	} {
		for _, p := range path {
			assert.FileExists(t, p)
		}
	}

	manifest, err := operations.LoadManifestFromFile(filepath.Join(f.dir, "logs", config.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, a.RunID, manifest.OperationID)
	assert.Equal(t, "completed", manifest.Status)
	require.Len(t, manifest.Steps, 4)
	for _, id := range []string{operations.StepIDImpute, operations.StepIDReindex, operations.StepIDReshape, operations.StepIDDescribe} {
		assert.True(t, manifest.IsStepCompleted(id), id)
	}

	require.NoError(t, a.Stop(context.Background()))

	metrics, err := os.ReadFile(filepath.Join(f.dir, "logs", config.MetricsFile))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "galton_rows_read_total")
	assert.Contains(t, string(metrics), "galton_imputations_total")

	trace, err := os.ReadFile(filepath.Join(f.dir, "logs", config.TraceFile))
	require.NoError(t, err)
	assert.Contains(t, string(trace), "pipeline.run")

	assert.Contains(t, f.logs.String(), "Pipeline starting")
	assert.Contains(t, f.logs.String(), a.RunID)
}

func TestApplication_RunStep(t *testing.T) {
	f := newFixture(t, true)

	a, err := NewApplication(f.opts)
	require.NoError(t, err)
	defer a.Stop(context.Background())

	_, err = a.RunStep(context.Background(), operations.StepIDImpute)
	require.NoError(t, err)
	assert.FileExists(t, a.Paths.ImputedFinalCSV)
	assert.NoFileExists(t, a.Paths.ImputedReindexedCSV)

	// reshape falls back to the imputed table when reindexing was skipped
	_, err = a.RunStep(context.Background(), operations.StepIDReshape)
	require.NoError(t, err)
	assert.FileExists(t, a.Paths.ParentsSonsCSV)

	_, err = a.RunStep(context.Background(), "plot")
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeNotFound, operations.GetErrorType(err))
}

func TestApplication_MissingMaster(t *testing.T) {
	f := newFixture(t, false)

	a, err := NewApplication(f.opts)
	require.NoError(t, err)
	defer a.Stop(context.Background())

	state, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeMissingInput, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, state.GetStatus())

	manifest, err := operations.LoadManifestFromFile(filepath.Join(f.dir, "logs", config.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "failed", manifest.Status)
}

func TestApplication_Overrides(t *testing.T) {
	f := newFixture(t, true)

	target := 3
	f.opts.Anomalous = 5
	f.opts.Target = &target
	f.opts.OutputDir = filepath.Join(f.dir, "out")

	a, err := NewApplication(f.opts)
	require.NoError(t, err)
	defer a.Stop(context.Background())

	assert.Equal(t, 5, a.Config.Reindex.Anomalous)
	assert.Equal(t, 3, a.Config.Reindex.Target)
	assert.Equal(t, filepath.Join(f.dir, "out"), a.Paths.OutputDir)
	assert.DirExists(t, a.Paths.OutputDir)
}

func TestApplication_InvalidOverrides(t *testing.T) {
	negative := -1

	tests := []struct {
		name  string
		apply func(*Options)
	}{
		{name: "negative anomalous", apply: func(o *Options) { o.Anomalous = -4 }},
		{name: "negative target", apply: func(o *Options) { o.Target = &negative }},
		{name: "unknown log level", apply: func(o *Options) { o.LogLevel = "chatty" }},
		{name: "missing config file", apply: func(o *Options) { o.ConfigFile = filepath.Join(t.TempDir(), "absent.yaml") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			tt.apply(&f.opts)

			_, err := NewApplication(f.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig), err.Error())
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := config.Default()
	assert.False(t, Options{}.apply(cfg), "zero options change nothing")
	assert.Equal(t, config.Default(), cfg)

	zero := 0
	assert.True(t, Options{Target: &zero, Input: "master.csv"}.apply(cfg))
	assert.Equal(t, 0, cfg.Reindex.Target)
	assert.Equal(t, "master.csv", cfg.Paths.MasterTable)
}
