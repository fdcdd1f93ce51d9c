package gpu

import "go.uber.org/zap"

type backendOptions struct {
	log                  *zap.Logger
	forceFallbackAdapter bool
}

// BackendOption is a functional option used to configure the wgpu Backend during construction.
type BackendOption func(*backendOptions)

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - BackendOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) BackendOption {
	return func(o *backendOptions) {
		o.forceFallbackAdapter = force
	}
}

// WithLogger sets the logger used for adapter, device and surface events.
//
// Parameters:
//   - log: the logger; nil keeps the default
//
// Returns:
//   - BackendOption: a function that sets the logger
func WithLogger(log *zap.Logger) BackendOption {
	return func(o *backendOptions) {
		if log != nil {
			o.log = log
		}
	}
}
