package renderer

import (
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// FrameDriverOption is a functional option used to configure a FrameDriver during construction.
type FrameDriverOption func(*FrameDriver)

// WithRequestRedraw sets the callback Resize uses to ask the event loop for a new frame.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - FrameDriverOption: a function that sets the redraw callback
func WithRequestRedraw(fn func()) FrameDriverOption {
	return func(d *FrameDriver) {
		d.requestRedraw = fn
	}
}

// WithClearColor sets the color the pass clears to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - FrameDriverOption: a function that sets the clear color
func WithClearColor(c wgpu.Color) FrameDriverOption {
	return func(d *FrameDriver) {
		d.clearColor = c
	}
}

// WithPresentMode sets the present mode used when the surface is configured.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - FrameDriverOption: a function that sets the present mode
func WithPresentMode(mode gpu.PresentMode) FrameDriverOption {
	return func(d *FrameDriver) {
		d.presentMode = mode
	}
}

// WithLogger sets the logger for surface and frame events.
//
// Parameters:
//   - log: the logger; nil keeps the default
//
// Returns:
//   - FrameDriverOption: a function that sets the logger
func WithLogger(log *zap.Logger) FrameDriverOption {
	return func(d *FrameDriver) {
		if log != nil {
			d.log = log
		}
	}
}
