// Package window opens the viewer window and turns its callbacks into input events.
package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native window that delivers input.Events to a single handler.
type Window interface {
	// SetEventHandler sets the function every event is delivered to. Events arrive on the
	// goroutine that calls Run.
	//
	// Parameters:
	//   - handler: the event handler
	SetEventHandler(handler func(input.Event))

	// SurfaceDescriptor returns the platform surface descriptor for creating a GPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the drawable size in pixels.
	//
	// Returns:
	//   - int, int: width and height in pixels
	FramebufferSize() (int, int)

	// Run polls events until the window is asked to close. After every poll iteration it delivers
	// EventRedrawRequested; when the loop ends it delivers EventCloseRequested once.
	Run()

	// RequestClose ends Run after the current iteration.
	RequestClose()

	// Close destroys the native window.
	//
	// Returns:
	//   - error: an error if the window was not open
	Close() error
}

type engineWindow struct {
	title string

	minWidth  int
	minHeight int

	width  int
	height int

	internalWindow any

	handler func(input.Event)
}

var _ Window = &engineWindow{}

// NewWindow creates the native window on the calling goroutine, which is locked to its OS thread.
//
// Parameters:
//   - options: a variadic list of WindowBuilderOption functions
//
// Returns:
//   - Window: the window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-view",
		minWidth:  1,
		minHeight: 1,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetEventHandler(handler func(input.Event)) {
	w.handler = handler
}

func (w *engineWindow) emit(ev input.Event) {
	if w.handler != nil {
		w.handler(ev)
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *engineWindow) Run() {
	for platformIsRunningCheck(w) {
		if !platformProcessMessages(w) {
			break
		}
		w.emit(input.Event{Kind: input.EventRedrawRequested})
	}
	w.emit(input.Event{Kind: input.EventCloseRequested})
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}
