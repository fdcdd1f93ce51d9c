package engine

import (
	"time"

	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
// Options override the values NewEngine reads from the config.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilerInterval sets how often the profiler logs a report.
//
// Parameters:
//   - d: the report interval; non-positive values keep the profiler default
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilerInterval(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profilerInterval = d
	}
}

// WithClock replaces time.Now for frame timing and the profiler.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPipelineFactory replaces pipeline.Build for creating the scene pipeline.
func WithPipelineFactory(factory PipelineFactory) EngineBuilderOption {
	return func(e *engine) {
		if factory != nil {
			e.newPipeline = factory
		}
	}
}

// WithLogger sets the logger for engine lifecycle and frame errors.
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}
