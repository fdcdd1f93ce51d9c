package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/logger"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// FrameState is the state of a FrameDriver.
type FrameState int

const (
	StateUninitialized FrameState = iota
	StateReady
	StateAcquiring
	StateRecording
	StateSubmitted
	StateResizing
)

var frameStateNames = map[FrameState]string{
	StateUninitialized: "uninitialized",
	StateReady:         "ready",
	StateAcquiring:     "acquiring",
	StateRecording:     "recording",
	StateSubmitted:     "submitted",
	StateResizing:      "resizing",
}

func (s FrameState) String() string {
	if name, ok := frameStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

var (
	// ErrNotInitialized is returned by Resize before Init.
	ErrNotInitialized = errors.New("renderer: frame driver not initialized")

	// ErrInvalidState is returned when an operation is called from a state that does not allow it.
	ErrInvalidState = errors.New("renderer: invalid frame driver state")
)

// FrameDriver owns the surface configuration, the depth buffer and the scene uniform, and records one
// pass per Redraw. It is not safe for concurrent use; every call must come from the event loop.
type FrameDriver struct {
	backend  gpu.Backend
	registry *MeshRegistry
	pipeline pipeline.Pipeline
	uploader *TextureUploader
	log      *zap.Logger

	state  FrameState
	config gpu.SurfaceConfig
	depth  *GpuTexture

	// uniform owns the uniform buffer at binding 0 and the group 1 bind group.
	uniform bind_group_provider.BindGroupProvider

	clearColor    wgpu.Color
	presentMode   gpu.PresentMode
	requestRedraw func()

	// reconfigurePending is set when acquiring a frame or a resize failed; the next Redraw reconfigures
	// the surface and rebuilds the depth buffer first.
	reconfigurePending bool
	presented          uint64
}

// NewFrameDriver creates the uniform buffer and its bind group. The driver stays Uninitialized until Init.
//
// Parameters:
//   - backend: the backend that created the registry and pipeline
//   - registry: the scene's meshes and textures, drawn in registry order
//   - p: the scene pipeline
//   - uploader: the uploader used for depth buffers
//   - uniformLayout: the uniform bind group layout (group 1)
//   - opts: a variadic list of FrameDriverOption functions
//
// Returns:
//   - *FrameDriver: the driver
//   - error: a *gpu.DeviceError if the uniform resources could not be created
func NewFrameDriver(backend gpu.Backend, registry *MeshRegistry, p pipeline.Pipeline, uploader *TextureUploader, uniformLayout gpu.Handle, opts ...FrameDriverOption) (*FrameDriver, error) {
	d := &FrameDriver{
		backend:    backend,
		registry:   registry,
		pipeline:   p,
		uploader:   uploader,
		log:        logger.Named("frame_driver"),
		clearColor: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	for _, opt := range opts {
		opt(d)
	}

	buf, err := backend.CreateBuffer("scene uniform", wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, NewUniformState().Bytes())
	if err != nil {
		return nil, err
	}
	d.uniform = bind_group_provider.NewBindGroupProvider("scene uniform", bind_group_provider.WithBuffer(0, buf))
	bg, err := backend.CreateBindGroup("scene uniform bind group", uniformLayout, d.uniform.BindGroupEntries())
	if err != nil {
		d.uniform.Release()
		return nil, err
	}
	d.uniform.SetBindGroup(bg)
	return d, nil
}

// Init configures the surface and creates the depth buffer, moving the driver to Ready.
//
// Parameters:
//   - width: the framebuffer width in pixels
//   - height: the framebuffer height in pixels
//
// Returns:
//   - error: ErrInvalidState if already initialized, or a *gpu.DeviceError
func (d *FrameDriver) Init(width, height uint32) error {
	if d.state != StateUninitialized {
		return fmt.Errorf("%w: Init in state %s", ErrInvalidState, d.state)
	}
	cfg := gpu.SurfaceConfig{
		Width:       width,
		Height:      height,
		Format:      d.pipeline.ColorFormat(),
		PresentMode: d.presentMode,
	}.Clamped()
	if err := d.backend.ConfigureSurface(cfg); err != nil {
		return err
	}
	depth, err := d.uploader.CreateDepthBuffer(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	d.config = cfg
	d.depth = depth
	d.state = StateReady
	d.log.Debug("frame driver ready", zap.Uint32("width", cfg.Width), zap.Uint32("height", cfg.Height), zap.Stringer("present_mode", cfg.PresentMode))
	return nil
}

// Resize reconfigures the surface for a new framebuffer size and replaces the depth buffer.
// A zero dimension is clamped to 1. The redraw callback is called once the new size is in place.
//
// Parameters:
//   - width: the new framebuffer width in pixels
//   - height: the new framebuffer height in pixels
//
// Returns:
//   - error: ErrNotInitialized before Init, ErrInvalidState outside Ready, or a *gpu.DeviceError
func (d *FrameDriver) Resize(width, height uint32) error {
	switch d.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateReady:
	default:
		return fmt.Errorf("%w: Resize in state %s", ErrInvalidState, d.state)
	}

	d.state = StateResizing
	defer func() { d.state = StateReady }()

	cfg := d.config
	cfg.Width, cfg.Height = width, height
	d.config = cfg.Clamped()

	if err := d.backend.ConfigureSurface(d.config); err != nil {
		d.reconfigurePending = true
		return err
	}
	d.reconfigurePending = false

	if err := d.syncDepth(); err != nil {
		// The old depth buffer no longer matches the surface; Redraw retries the rebuild.
		d.reconfigurePending = true
		return err
	}

	d.log.Debug("surface reconfigured", zap.Uint32("width", d.config.Width), zap.Uint32("height", d.config.Height))
	if d.requestRedraw != nil {
		d.requestRedraw()
	}
	return nil
}

// syncDepth replaces the depth buffer when its size differs from the surface configuration.
// On failure the current depth buffer is kept.
func (d *FrameDriver) syncDepth() error {
	if d.depth != nil {
		if w, h := d.depth.Size(); w == d.config.Width && h == d.config.Height {
			return nil
		}
	}
	depth, err := d.uploader.CreateDepthBuffer(d.config.Width, d.config.Height)
	if err != nil {
		return err
	}
	old := d.depth
	d.depth = depth
	if old != nil {
		old.Release()
	}
	return nil
}

// Redraw uploads the uniform and records, submits and presents one frame that draws every mesh.
// A failed acquire drops the frame and marks the surface for reconfiguration on the next Redraw.
//
// Parameters:
//   - uniform: the scene uniform to upload before the pass is submitted
//
// Returns:
//   - error: ErrInvalidState outside Ready, a *gpu.SurfaceError when no frame could be acquired,
//     or a *gpu.DeviceError
func (d *FrameDriver) Redraw(uniform *UniformState) error {
	if d.state != StateReady {
		return fmt.Errorf("%w: Redraw in state %s", ErrInvalidState, d.state)
	}
	if d.reconfigurePending {
		if err := d.backend.ConfigureSurface(d.config); err != nil {
			return err
		}
		if err := d.syncDepth(); err != nil {
			return err
		}
		d.reconfigurePending = false
		d.log.Debug("surface reconfigured after lost frame")
	}

	defer func() { d.state = StateReady }()
	d.state = StateAcquiring
	frame, err := d.backend.AcquireFrame()
	if err != nil {
		d.reconfigurePending = true
		var surfaceErr *gpu.SurfaceError
		if !errors.As(err, &surfaceErr) {
			err = &gpu.SurfaceError{Err: err}
		}
		d.log.Debug("frame skipped", zap.Error(err))
		return err
	}
	defer frame.Release()

	if err := bind_group_provider.WriteBuffers(d.backend, []bind_group_provider.BufferWrite{
		{Provider: d.uniform, Binding: 0, Data: uniform.Bytes()},
	}); err != nil {
		return err
	}

	d.state = StateRecording
	pass, err := frame.BeginRenderPass(gpu.RenderPassDescriptor{
		ClearColor: d.clearColor,
		ClearDepth: 1.0,
		DepthView:  d.depth.View(),
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(d.pipeline.Handle())
	for _, mesh := range d.registry.Meshes() {
		pass.SetVertexBuffer(0, mesh.VertexBuffer())
		pass.SetIndexBuffer(mesh.IndexBuffer(), wgpu.IndexFormatUint32)
		pass.SetBindGroup(pipeline.TextureGroup, d.registry.ResolveTexture(mesh).BindGroup())
		pass.SetBindGroup(pipeline.UniformGroup, d.uniform.BindGroup())
		pass.DrawIndexed(mesh.IndexCount())
	}
	if err := pass.End(); err != nil {
		return err
	}
	if err := frame.Submit(); err != nil {
		return err
	}

	d.state = StateSubmitted
	frame.Present()
	d.presented++
	return nil
}

// Release releases the depth buffer and the uniform resources. The registry and pipeline belong to the caller.
func (d *FrameDriver) Release() {
	if d.depth != nil {
		d.depth.Release()
		d.depth = nil
	}
	if d.uniform != nil {
		d.uniform.Release()
		d.uniform = nil
	}
	d.state = StateUninitialized
}

// State returns the current state.
func (d *FrameDriver) State() FrameState {
	return d.state
}

// SurfaceConfig returns the surface configuration last applied.
func (d *FrameDriver) SurfaceConfig() gpu.SurfaceConfig {
	return d.config
}

// DepthBuffer returns the current depth buffer, or nil before Init.
func (d *FrameDriver) DepthBuffer() *GpuTexture {
	return d.depth
}

// UniformBuffer returns the uniform buffer.
func (d *FrameDriver) UniformBuffer() gpu.Handle {
	return d.uniform.Buffer(0)
}

// UniformBindGroup returns the group 1 bind group.
func (d *FrameDriver) UniformBindGroup() gpu.Handle {
	return d.uniform.BindGroup()
}

// ReconfigurePending reports whether the next Redraw reconfigures the surface before acquiring.
func (d *FrameDriver) ReconfigurePending() bool {
	return d.reconfigurePending
}

// FramesPresented returns the number of frames presented since creation.
func (d *FrameDriver) FramesPresented() uint64 {
	return d.presented
}
