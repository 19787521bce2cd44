// Package operations runs the pipeline steps.
//
// A Step reads its inputs from the files named by config.Paths and publishes
// its outputs as one exporter.Batch. The Manager executes registered steps in
// registration order: before each step it checks that the step's required
// inputs exist, then runs it under its own span and timeout, records the
// outcome in the PipelineManifest and stops at the first failure.
//
//	opts, _ := operations.NewStepOptions(cfg, paths, metrics, logger)
//	registry := operations.NewRegistry()
//	_ = operations.RegisterPipeline(registry, opts)
//	manager := operations.NewManager(registry, nil, logger)
//	state, err := manager.Run(ctx, runID)
package operations
