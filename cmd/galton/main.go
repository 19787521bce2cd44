package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/galtons-data/family-heights/internal/app"
	"github.com/galtons-data/family-heights/internal/config"
	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/internal/infrastructure"
	"github.com/galtons-data/family-heights/internal/operations"
	"github.com/galtons-data/family-heights/internal/validation"
	"github.com/galtons-data/family-heights/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// cliFlags holds the values of every command line flag
type cliFlags struct {
	configFile string
	dataDir    string
	input      string
	outputDir  string
	logsDir    string
	logLevel   string
	anomalous  int
	target     int
}

// newRootCmd builds the galton command tree. A nil logOutput logs to the
// configured destination; tests pass a buffer instead.
func newRootCmd(logOutput io.Writer) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Galton family heights pipeline",
		Long: `Prepares Francis Galton's family height transcription for analysis.

Stages run in order and each reads the previous stage's CSV output:
  impute    replace categorical child heights with numeric values
  reindex   move family 136A to its position in father-height order
  reshape   emit one parent/child row per son and per daughter
  describe  write summary statistics, histograms and a chart workbook

Configuration is read from galton.yaml (or --config) and GALTON_* variables.`,
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "configuration file (default galton.yaml or configs/galton.yaml)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory holding raw/ and processed/")
	pf.StringVar(&flags.input, "input", "", "master table (CSV or Excel), default <data-dir>/raw/"+config.MasterTableFile)
	pf.StringVar(&flags.outputDir, "output-dir", "", "directory for generated tables, default <data-dir>/processed")
	pf.StringVar(&flags.logsDir, "logs-dir", "", "directory for logs, manifest, traces and metrics")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	runCmd := stepCommand(flags, logOutput, "run", "", "Run every stage in order")
	reindexCmd := stepCommand(flags, logOutput, operations.StepIDReindex, operations.StepIDReindex, "Move the anomalous family to its ordered position")
	for _, cmd := range []*cobra.Command{runCmd, reindexCmd} {
		cmd.Flags().IntVar(&flags.anomalous, "anomalous", 0, "identifier of the family to move (default 205)")
		cmd.Flags().IntVar(&flags.target, "target", 0, "destination identifier; 0 resolves it from father heights")
	}

	root.AddCommand(
		runCmd,
		stepCommand(flags, logOutput, operations.StepIDImpute, operations.StepIDImpute, "Replace categorical child heights with numeric values"),
		reindexCmd,
		stepCommand(flags, logOutput, operations.StepIDReshape, operations.StepIDReshape, "Emit parent/child rows for sons and daughters"),
		stepCommand(flags, logOutput, operations.StepIDDescribe, operations.StepIDDescribe, "Write statistics, histograms and charts"),
	)
	return root
}

// stepCommand runs stepID, or the whole pipeline when stepID is empty
func stepCommand(flags *cliFlags, logOutput io.Writer, use, stepID, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, flags, logOutput, stepID)
		},
	}
}

func execute(cmd *cobra.Command, flags *cliFlags, logOutput io.Writer, stepID string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = infrastructure.EnsureRunID(ctx)

	bootstrap := bootstrapLogger(logOutput)

	if flags.input != "" {
		if err := validation.NewFileValidator(bootstrap).ValidateTableFile(flags.input); err != nil {
			logFailure(ctx, bootstrap, "Invalid input table", err)
			return err
		}
	}

	opts := app.Options{
		ConfigFile: flags.configFile,
		DataDir:    flags.dataDir,
		OutputDir:  flags.outputDir,
		Input:      flags.input,
		LogsDir:    flags.logsDir,
		LogLevel:   flags.logLevel,
		LogOutput:  logOutput,
		RunID:      infrastructure.RunIDFromContext(ctx),
	}
	if f := cmd.Flags().Lookup("anomalous"); f != nil && f.Changed {
		opts.Anomalous = flags.anomalous
		if opts.Anomalous == 0 {
			err := apperrors.NewConfigError("--anomalous must be a positive family identifier", nil)
			logFailure(ctx, bootstrap, "Invalid flags", err)
			return err
		}
	}
	if f := cmd.Flags().Lookup("target"); f != nil && f.Changed {
		target := flags.target
		opts.Target = &target
	}

	a, err := app.NewApplication(opts)
	if err != nil {
		logFailure(ctx, bootstrap, "Failed to initialize application", err)
		return err
	}

	if stepID == "" {
		_, err = a.Run(ctx)
	} else {
		_, err = a.RunStep(ctx, stepID)
	}
	if err != nil {
		logFailure(ctx, a.Logger, "Pipeline failed", err)
	}

	// telemetry is flushed even after an interrupt
	if stopErr := a.Stop(context.WithoutCancel(ctx)); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

func bootstrapLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return infrastructure.NewLogger(config.Default().Logging, w)
}

// logFailure logs err with the failed step and the AppError context, if any
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	var args []any
	if step := operations.FailedStep(err); step != "" {
		args = append(args,
			slog.String("step", step),
			slog.String("operation_error", string(operations.GetErrorType(err))))
	}
	infrastructure.WithError(logger, err).ErrorContext(ctx, msg, args...)
}
