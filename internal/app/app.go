package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/galtons-data/family-heights/internal/config"
	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/internal/infrastructure"
	"github.com/galtons-data/family-heights/internal/operations"
	"github.com/galtons-data/family-heights/internal/validation"
	"github.com/galtons-data/family-heights/pkg/contracts"
)

// Options overrides configuration values from the command line.
// Zero values leave the loaded configuration untouched.
type Options struct {
	ConfigFile string
	DataDir    string
	OutputDir  string
	Input      string
	LogsDir    string
	LogLevel   string
	Anomalous  int

	// Target is a pointer because zero asks the reindexer to resolve it
	Target *int

	// LogOutput replaces the configured log destination and leaves the
	// global logger alone. Tests use it to run several applications.
	LogOutput io.Writer

	// RunID names the run in logs, traces and the manifest; a new one is
	// generated when empty
	RunID string
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics
	Runtime       *infrastructure.RuntimeMetrics
	Manager       *operations.Manager
	RunID         string

	ownsLogFile bool
}

// NewApplication loads configuration and wires the pipeline
func NewApplication(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load configuration", err)
	}
	if opts.apply(cfg) {
		if err := cfg.Validate(); err != nil {
			return nil, apperrors.NewConfigError("invalid command line override", err)
		}
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to resolve paths", err)
	}
	if cfg.Logging.Output != "console" && cfg.Logging.FilePath == config.Default().Logging.FilePath {
		cfg.Logging.FilePath = paths.GetLogPath(config.AppName + ".log")
	}

	if err := validation.NewFileValidator(nil).ValidateOutputDirectory(paths.OutputDir); err != nil {
		return nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, apperrors.NewStorageError("failed to ensure directories", err)
	}

	a := &Application{
		Config: cfg,
		Paths:  paths,
		RunID:  opts.RunID,
	}
	if a.RunID == "" {
		a.RunID = infrastructure.NewRunID()
	}

	if opts.LogOutput != nil {
		a.Logger = infrastructure.NewLogger(cfg.Logging, opts.LogOutput)
	} else {
		a.Logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.ownsLogFile = true
	}
	a.Logger = a.Logger.With(slog.String(infrastructure.KeyRunID, a.RunID))

	a.Logger.Debug("Paths resolved",
		slog.String("master_table", paths.MasterTable),
		slog.String("output_dir", paths.OutputDir),
		slog.String("logs_dir", paths.LogsDir))

	if err := a.initializeTelemetry(); err != nil {
		return nil, err
	}
	if err := a.initializePipeline(); err != nil {
		a.OTelProviders.Shutdown(context.Background())
		return nil, err
	}

	return a, nil
}

// apply copies the set overrides into cfg and reports whether any was set
func (o Options) apply(cfg *config.Config) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
			changed = true
		}
	}
	set(&cfg.Paths.DataDir, o.DataDir)
	set(&cfg.Paths.OutputDir, o.OutputDir)
	set(&cfg.Paths.MasterTable, o.Input)
	set(&cfg.Paths.LogsDir, o.LogsDir)
	set(&cfg.Logging.Level, o.LogLevel)

	if o.Anomalous != 0 {
		cfg.Reindex.Anomalous = o.Anomalous
		changed = true
	}
	if o.Target != nil {
		cfg.Reindex.Target = *o.Target
		changed = true
	}
	return changed
}

func (a *Application) initializeTelemetry() error {
	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.EnableTracing = a.Config.Telemetry.Tracing
	otelCfg.EnableMetrics = a.Config.Telemetry.Metrics

	if otelCfg.EnableTracing {
		otelCfg.TraceFile = a.Config.Telemetry.TraceFile
		if otelCfg.TraceFile == "" {
			otelCfg.TraceFile = a.Paths.GetLogPath(config.TraceFile)
		}
	}
	if otelCfg.EnableMetrics {
		otelCfg.MetricsFile = a.Config.Telemetry.MetricsFile
		if otelCfg.MetricsFile == "" {
			otelCfg.MetricsFile = a.Paths.GetLogPath(config.MetricsFile)
		}
	}

	providers, err := infrastructure.InitializeOTel(otelCfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers

	if a.Metrics, err = infrastructure.CreatePipelineMetrics(providers.Meter); err != nil {
		providers.Shutdown(context.Background())
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	if a.Runtime, err = infrastructure.NewRuntimeMetrics(providers.Meter); err != nil {
		providers.Shutdown(context.Background())
		return fmt.Errorf("failed to create runtime metrics: %w", err)
	}
	return nil
}

func (a *Application) initializePipeline() error {
	stepOpts, err := operations.NewStepOptions(a.Config, a.Paths, a.Metrics, infrastructure.WithComponent(a.Logger, "pipeline"))
	if err != nil {
		return apperrors.NewConfigError("invalid imputation tables", err)
	}

	registry := operations.NewRegistry()
	if err := operations.RegisterPipeline(registry, stepOpts); err != nil {
		return fmt.Errorf("failed to register pipeline steps: %w", err)
	}

	a.Manager = operations.NewManager(registry, operations.NewConfig(), infrastructure.WithComponent(a.Logger, "operations"))
	a.Manager.SetTelemetry(a.OTelProviders.Tracer, a.Metrics)
	return nil
}

// Run executes the whole pipeline
func (a *Application) Run(ctx context.Context) (*operations.OperationState, error) {
	return a.execute(ctx, "")
}

// RunStep executes a single registered step
func (a *Application) RunStep(ctx context.Context, stepID string) (*operations.OperationState, error) {
	return a.execute(ctx, stepID)
}

func (a *Application) execute(ctx context.Context, stepID string) (*operations.OperationState, error) {
	ctx = infrastructure.WithRunID(ctx, a.RunID)

	a.Logger.InfoContext(ctx, "Pipeline starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("data_format", contracts.DataFormatVersion),
		slog.String("step", stepOrAll(stepID)))

	var (
		state *operations.OperationState
		err   error
	)
	if stepID == "" {
		state, err = a.Manager.Run(ctx, a.RunID)
	} else {
		state, err = a.Manager.RunStep(ctx, a.RunID, stepID)
	}

	manifestPath := a.Paths.GetLogPath(config.ManifestFile)
	if manifest := a.Manager.Manifest(); manifest != nil {
		if saveErr := manifest.SaveToFile(manifestPath); saveErr != nil {
			a.Logger.WarnContext(ctx, "Failed to save run manifest",
				slog.String("path", manifestPath),
				slog.String("error", saveErr.Error()))
		}
	}

	if err != nil {
		return state, err
	}

	a.Logger.InfoContext(ctx, "Pipeline finished",
		slog.String("step", stepOrAll(stepID)),
		slog.Duration("duration", state.Duration()),
		slog.String("manifest", manifestPath))
	return state, nil
}

func stepOrAll(stepID string) string {
	if stepID == "" {
		return "all"
	}
	return stepID
}

// Stop samples runtime state, flushes telemetry and closes the log file
func (a *Application) Stop(ctx context.Context) error {
	ctx = infrastructure.WithRunID(ctx, a.RunID)

	if a.Runtime != nil {
		stats := a.Runtime.Collect(ctx)
		a.Logger.DebugContext(ctx, "Runtime statistics",
			slog.Int64("goroutines", stats.Goroutines),
			slog.Int64("heap_bytes", stats.HeapAllocated),
			slog.Int64("gc_cycles", stats.GCCycles),
			slog.Duration("uptime", stats.Uptime))
	}

	var errs []error
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.Logger.DebugContext(ctx, "Application shutdown complete")

	if a.ownsLogFile {
		if err := infrastructure.CloseLogFile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
