package operations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "github.com/galtons-data/family-heights/internal/errors"
	"github.com/galtons-data/family-heights/internal/infrastructure"
	"github.com/galtons-data/family-heights/internal/validation"
)

// Manager runs registered steps in registration order
type Manager struct {
	registry  *Registry
	config    *Config
	logger    *slog.Logger
	validator *validation.FileValidator
	tracer    trace.Tracer
	metrics   *infrastructure.PipelineMetrics
	manifest  *PipelineManifest
}

// NewManager creates a new pipeline manager
func NewManager(registry *Registry, config *Config, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry:  registry,
		config:    config,
		logger:    logger,
		validator: validation.NewFileValidator(logger),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
}

// SetTelemetry attaches the tracer and instruments used for every step
func (m *Manager) SetTelemetry(tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) {
	if tracer != nil {
		m.tracer = tracer
	}
	m.metrics = metrics
}

// Manifest returns the manifest of the last run
func (m *Manager) Manifest() *PipelineManifest {
	return m.manifest
}

// Run executes every registered step in order and stops at the first failure
func (m *Manager) Run(ctx context.Context, operationID string) (*OperationState, error) {
	return m.execute(ctx, operationID, m.registry.List())
}

// RunStep executes a single registered step
func (m *Manager) RunStep(ctx context.Context, operationID, stepID string) (*OperationState, error) {
	step, err := m.registry.Get(stepID)
	if err != nil {
		m.logger.ErrorContext(ctx, "operation_error",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return m.execute(ctx, operationID, []Step{step})
}

func (m *Manager) execute(ctx context.Context, operationID string, steps []Step) (*OperationState, error) {
	state := NewOperationState(operationID)
	for _, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	m.manifest = NewPipelineManifest(operationID)

	ctx, span := m.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.steps", len(steps)),
		),
	)
	defer span.End()

	state.Start()
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", operationID),
		slog.Int("step_count", len(steps)))

	for i, step := range steps {
		var err error
		if cerr := ctx.Err(); cerr != nil {
			err = NewCancellationError(step.ID(), cerr)
			m.manifest.RecordStepStart(step.ID(), step.Name(), nil)
			m.manifest.RecordStepFailure(step.ID(), cerr)
			state.GetStep(step.ID()).Fail(err)
		} else {
			err = m.executeStep(ctx, state, step)
		}
		if err == nil {
			continue
		}

		for _, rest := range steps[i+1:] {
			state.GetStep(rest.ID()).Skip("previous step " + step.ID() + " did not complete")
		}
		if GetErrorType(err) == ErrorTypeCancellation {
			state.Cancel(err)
		} else {
			state.Fail(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.ErrorContext(ctx, "operation_failed",
			slog.String("operation_id", operationID),
			slog.String("step", step.ID()),
			slog.Duration("duration", state.Duration()),
			slog.String("error", err.Error()))
		return state, err
	}

	state.Complete()
	m.manifest.Finish()
	span.SetStatus(codes.Ok, "")
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.Duration("duration", state.Duration()))
	return state, nil
}

// executeStep checks inputs, runs the step under its own span and timeout,
// and records the outcome on the state, the manifest and the metrics
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())
	inputs := step.RequiredInputs()
	m.manifest.RecordStepStart(step.ID(), step.Name(), inputs)

	if missing := m.validator.MissingFiles(inputs...); len(missing) > 0 {
		err := NewMissingInputError(step.ID(), missing)
		stepState.Fail(err)
		m.manifest.RecordStepFailure(step.ID(), err)
		m.metrics.RecordStep(ctx, step.ID(), 0, err)
		return err
	}

	stepCtx, cancel := context.WithTimeout(ctx, m.config.GetStepTimeout(step.ID()))
	defer cancel()
	stepCtx, span := m.tracer.Start(stepCtx, "pipeline.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", state.ID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
	defer span.End()

	m.logger.InfoContext(stepCtx, "step_start",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))

	stepState.Start()
	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	m.metrics.RecordStep(ctx, step.ID(), duration, err)

	if err != nil {
		wrapped := NewExecutionError(step.ID(), err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			wrapped = NewCancellationError(step.ID(), err)
		}
		stepState.Fail(wrapped)
		m.manifest.RecordStepFailure(step.ID(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		attrs := []any{
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			attrs = append(attrs, appErr.LogAttrs()...)
		}
		m.logger.ErrorContext(stepCtx, "step_error", attrs...)
		return wrapped
	}

	stepState.Complete()
	metadata := stepState.MetadataSnapshot()
	m.manifest.RecordStepCompletion(step.ID(), step.ProducedOutputs(), metadata)
	if digests, err := DigestFiles(step.ProducedOutputs()...); err != nil {
		m.logger.WarnContext(stepCtx, "Failed to digest step outputs",
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
	} else {
		m.manifest.RecordStepDigests(step.ID(), digests)
	}
	span.SetStatus(codes.Ok, "")
	m.logger.InfoContext(stepCtx, "step_complete",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration),
		slog.Any("metadata", metadata))
	return nil
}
