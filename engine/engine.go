// Package engine runs the viewer: it owns the GPU resources of one scene and routes window events to the frame driver.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/input"
	"github.com/Carmen-Shannon/oxy-view/engine/logger"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Window is the event source the engine runs on. window.Window satisfies it.
type Window interface {
	SetEventHandler(handler func(input.Event))
	FramebufferSize() (int, int)
	Run()
	RequestClose()
}

// PipelineFactory builds the scene pipeline against the two bind group layouts.
type PipelineFactory func(backend gpu.Backend, colorFormat wgpu.TextureFormat, textureLayout, uniformLayout gpu.Handle) (pipeline.Pipeline, error)

// Engine is the main entry point for the viewer.
// It reacts to window events between frames and draws the scene on every redraw request.
type Engine interface {
	// Run configures the surface at the window's framebuffer size and pumps window events until the
	// window closes. It returns the first fatal error, or nil on a normal close.
	//
	// Returns:
	//   - error: a *gpu.DeviceError or initialization error that ended the loop
	Run() error

	// HandleEvent processes one window event. Run installs it as the window's event handler.
	//
	// Parameters:
	//   - ev: the event
	HandleEvent(ev input.Event)

	// Camera returns the scene camera.
	Camera() camera.Camera

	// Uniform returns the scene uniform uploaded on every frame.
	Uniform() *renderer.UniformState

	// Driver returns the frame driver.
	Driver() *renderer.FrameDriver

	// Err returns the error that stopped the engine, if any.
	Err() error

	// Close releases the scene resources and the backend in reverse order of creation.
	// It is called on EventCloseRequested and is safe to call more than once.
	Close()
}

// engine implements the Engine interface.
type engine struct {
	window  Window
	backend gpu.Backend
	log     *zap.Logger
	now     func() time.Time

	layouts  *renderer.Layouts
	uploader *renderer.TextureUploader
	registry *renderer.MeshRegistry
	pipeline pipeline.Pipeline
	driver   *renderer.FrameDriver

	camera  camera.Camera
	uniform *renderer.UniformState
	input   *input.State

	moveSpeed float32

	profiler         *profiler.Profiler
	profilingEnabled bool
	profilerInterval time.Duration

	newPipeline PipelineFactory

	lastFrame       time.Time
	redrawRequested bool
	err             error
	closed          bool
}

var _ Engine = &engine{}

// NewEngine uploads the asset and builds the pipeline and frame driver. On success the engine owns backend
// and releases it in Close; on failure everything created so far is released except backend.
//
// Parameters:
//   - win: the window events come from
//   - backend: the GPU backend whose surface belongs to win
//   - asset: the scene to draw
//   - cfg: the viewer configuration
//   - options: a variadic list of EngineBuilderOption functions
//
// Returns:
//   - Engine: the engine, not yet running
//   - error: an error if any GPU resource could not be created
func NewEngine(win Window, backend gpu.Backend, asset *model.SceneAsset, cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		window:           win,
		backend:          backend,
		log:              logger.Named("engine"),
		now:              time.Now,
		uniform:          renderer.NewUniformState(),
		input:            input.NewState(),
		moveSpeed:        cfg.Camera.MoveSpeed,
		profilingEnabled: cfg.Renderer.Profiler,
		profilerInterval: cfg.Renderer.ProfilerInterval,
		newPipeline:      defaultPipeline,
	}
	for _, opt := range options {
		opt(e)
	}

	if err := e.build(asset, cfg); err != nil {
		e.releaseScene()
		return nil, err
	}

	width, height := win.FramebufferSize()
	e.camera = newCamera(cfg.Camera, width, height)

	if e.profilingEnabled {
		e.profiler = profiler.NewProfiler(
			profiler.WithInterval(e.profilerInterval),
			profiler.WithClock(e.now),
		)
	}

	e.log.Info("scene ready",
		zap.String("asset", asset.Name),
		zap.Int("meshes", e.registry.Len()),
		zap.Int("textures", len(e.registry.Textures())),
	)
	return e, nil
}

func defaultPipeline(backend gpu.Backend, colorFormat wgpu.TextureFormat, textureLayout, uniformLayout gpu.Handle) (pipeline.Pipeline, error) {
	return pipeline.Build(backend, colorFormat, textureLayout, uniformLayout)
}

func (e *engine) build(asset *model.SceneAsset, cfg *config.Config) error {
	var err error
	if e.layouts, err = renderer.NewLayouts(e.backend); err != nil {
		return err
	}
	e.uploader = renderer.NewTextureUploader(e.backend)
	if e.registry, err = renderer.NewMeshRegistry(e.backend, e.uploader, asset, e.layouts.Texture); err != nil {
		return err
	}
	if e.pipeline, err = e.newPipeline(e.backend, e.backend.SurfaceFormat(), e.layouts.Texture, e.layouts.Uniform); err != nil {
		return err
	}

	cc := cfg.Renderer.ClearColor
	present := gpu.PresentModeVSync
	if cfg.Renderer.PresentMode == config.PresentModeUncapped {
		present = gpu.PresentModeUncapped
	}
	e.driver, err = renderer.NewFrameDriver(e.backend, e.registry, e.pipeline, e.uploader, e.layouts.Uniform,
		renderer.WithClearColor(wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}),
		renderer.WithPresentMode(present),
		renderer.WithRequestRedraw(func() { e.redrawRequested = true }),
	)
	return err
}

func newCamera(cfg config.CameraConfig, width, height int) camera.Camera {
	ctrl := camera.NewCameraController(
		camera.WithTarget(mgl32.Vec3(cfg.Target)),
		camera.WithEye(mgl32.Vec3(cfg.Eye)),
		camera.WithOrbitSpeed(cfg.OrbitSpeed),
	)
	cam := camera.NewCamera(
		camera.WithFovDegrees(cfg.FOV),
		camera.WithClipPlanes(cfg.Near, cfg.Far),
		camera.WithController(ctrl),
	)
	if height > 0 {
		cam.SetAspect(float32(width) / float32(height))
	}
	cam.Update()
	return cam
}

func (e *engine) Run() error {
	width, height := e.window.FramebufferSize()
	if err := e.driver.Init(uint32(max(width, 0)), uint32(max(height, 0))); err != nil {
		e.Close()
		return fmt.Errorf("failed to initialize frame driver: %w", err)
	}
	e.lastFrame = e.now()
	e.window.SetEventHandler(e.HandleEvent)
	e.window.Run()
	e.Close()
	return e.err
}

func (e *engine) HandleEvent(ev input.Event) {
	if e.closed {
		return
	}
	switch ev.Kind {
	case input.EventResized:
		e.resize(ev.Width, ev.Height)
	case input.EventRedrawRequested:
		e.redraw()
	case input.EventCloseRequested:
		e.Close()
	default:
		e.input.Apply(ev)
		if ev.Kind == input.EventKey && ev.Key == common.KeyEsc && ev.Pressed {
			e.window.RequestClose()
		}
	}
}

func (e *engine) resize(width, height int) {
	if height > 0 {
		e.camera.SetAspect(float32(width) / float32(height))
	}
	if err := e.driver.Resize(uint32(max(width, 0)), uint32(max(height, 0))); err != nil {
		var devErr *gpu.DeviceError
		if errors.As(err, &devErr) {
			e.fail(err)
			return
		}
		e.log.Warn("resize skipped", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		return
	}
	if e.redrawRequested {
		e.redraw()
	}
}

func (e *engine) redraw() {
	e.redrawRequested = false
	now := e.now()
	dt := float32(now.Sub(e.lastFrame).Seconds())
	e.lastFrame = now

	e.applyInput(dt)
	e.camera.Update()
	e.uniform.ViewProj = e.camera.ViewProjectionMatrix()

	err := e.driver.Redraw(e.uniform)
	var surfaceErr *gpu.SurfaceError
	switch {
	case err == nil:
		if e.profiler != nil {
			e.profiler.Tick()
		}
	case errors.As(err, &surfaceErr):
		// Dropped frame; the driver reconfigures before the next one.
	default:
		e.fail(err)
	}
}

// applyInput maps held keys and buttons onto the uniform and the camera for one frame of length dt seconds.
func (e *engine) applyInput(dt float32) {
	step := e.moveSpeed * dt
	if e.input.IsKeyPressed(common.KeyW) {
		e.uniform.Position[1] += step
	}
	if e.input.IsKeyPressed(common.KeyS) {
		e.uniform.Position[1] -= step
	}
	if e.input.IsKeyPressed(common.KeyA) {
		e.uniform.Position[0] -= step
	}
	if e.input.IsKeyPressed(common.KeyD) {
		e.uniform.Position[0] += step
	}

	e.uniform.Highlight = 0
	if e.input.IsMousePressed(common.MouseButtonLeft) {
		e.uniform.Highlight = 1
	}

	ctrl := e.camera.Controller()
	dx, dy := e.input.TakeCursorDelta()
	scroll := e.input.TakeScroll()
	if ctrl == nil {
		return
	}
	orbit := ctrl.OrbitSpeed() * dt
	if e.input.IsKeyPressed(common.KeyQ) {
		ctrl.Orbit(-orbit, 0)
	}
	if e.input.IsKeyPressed(common.KeyE) {
		ctrl.Orbit(orbit, 0)
	}
	if e.input.IsMousePressed(common.MouseButtonMiddle) && (dx != 0 || dy != 0) {
		ctrl.OrbitDrag(float32(dx), float32(dy))
	}
	if scroll != 0 {
		ctrl.Zoom(float32(scroll))
	}
}

func (e *engine) fail(err error) {
	if e.err == nil {
		e.err = err
		e.log.Error("frame failed", zap.Error(err))
	}
	e.window.RequestClose()
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Uniform() *renderer.UniformState {
	return e.uniform
}

func (e *engine) Driver() *renderer.FrameDriver {
	return e.driver
}

func (e *engine) Err() error {
	return e.err
}

func (e *engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.releaseScene()
	e.backend.Release()
	e.log.Info("engine closed")
}

// releaseScene releases everything build created, newest first.
func (e *engine) releaseScene() {
	if e.driver != nil {
		e.driver.Release()
		e.driver = nil
	}
	if e.pipeline != nil {
		e.pipeline.Release()
		e.pipeline = nil
	}
	if e.registry != nil {
		e.registry.Release()
		e.registry = nil
	}
	if e.layouts != nil {
		e.layouts.Release()
		e.layouts = nil
	}
}
