package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics samples Go runtime state at the end of a pipeline run
type RuntimeMetrics struct {
	goroutines    metric.Int64Gauge
	heapAllocated metric.Int64Gauge
	systemMemory  metric.Int64Gauge
	gcCycles      metric.Int64Gauge
	uptime        metric.Float64Gauge

	started time.Time
}

// RuntimeStats is one sample of the runtime state
type RuntimeStats struct {
	Goroutines    int64
	HeapAllocated int64
	SystemMemory  int64
	GCCycles      int64
	Uptime        time.Duration
}

// NewRuntimeMetrics creates the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heap, err := meter.Int64Gauge(
		"runtime_heap_allocated",
		metric.WithDescription("Heap bytes allocated and still in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	sys, err := meter.Int64Gauge(
		"runtime_system_memory",
		metric.WithDescription("Memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gc, err := meter.Int64Gauge(
		"runtime_gc_cycles",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"runtime_uptime",
		metric.WithDescription("Time since the metrics were created"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines:    goroutines,
		heapAllocated: heap,
		systemMemory:  sys,
		gcCycles:      gc,
		uptime:        uptime,
		started:       time.Now(),
	}, nil
}

// Collect samples the runtime and records the gauges
func (m *RuntimeMetrics) Collect(ctx context.Context) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines:    int64(runtime.NumGoroutine()),
		HeapAllocated: int64(mem.HeapAlloc),
		SystemMemory:  int64(mem.Sys),
		GCCycles:      int64(mem.NumGC),
		Uptime:        time.Since(m.started),
	}

	m.goroutines.Record(ctx, stats.Goroutines)
	m.heapAllocated.Record(ctx, stats.HeapAllocated)
	m.systemMemory.Record(ctx, stats.SystemMemory)
	m.gcCycles.Record(ctx, stats.GCCycles)
	m.uptime.Record(ctx, stats.Uptime.Seconds())

	return stats
}
