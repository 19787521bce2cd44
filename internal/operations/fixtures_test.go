package operations

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galtons-data/family-heights/internal/config"
	"github.com/galtons-data/family-heights/internal/shared/testutil"
)

func discardLogger() *slog.Logger {
	return testutil.DiscardLogger()
}

const sampleMaster = testutil.SampleMaster

type testPipeline struct {
	cfg   *config.Config
	paths *config.Paths
	opts  *StepOptions
}

func newTestPipeline(t *testing.T, master string) *testPipeline {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")

	paths, err := config.NewPaths(cfg.Paths)
	require.NoError(t, err)

	if master != "" {
		testutil.WriteFile(t, paths.MasterTable, master)
	}

	opts, err := NewStepOptions(cfg, paths, nil, discardLogger())
	require.NoError(t, err)

	return &testPipeline{cfg: cfg, paths: paths, opts: opts}
}

func (p *testPipeline) manager(t *testing.T) *Manager {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, RegisterPipeline(registry, p.opts))
	return NewManager(registry, nil, discardLogger())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func firstColumn(rows [][]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// fakeStep records its execution and returns err
type fakeStep struct {
	id      string
	inputs  []string
	outputs []string
	err     error
	block   bool
	calls   *[]string
}

func (f *fakeStep) ID() string                { return f.id }
func (f *fakeStep) Name() string              { return strings.ToUpper(f.id) }
func (f *fakeStep) RequiredInputs() []string  { return f.inputs }
func (f *fakeStep) ProducedOutputs() []string { return f.outputs }

func (f *fakeStep) Execute(ctx context.Context, state *OperationState) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.id)
	}
	state.GetStep(f.id).SetMetadata("ran", true)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}
