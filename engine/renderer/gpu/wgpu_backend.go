package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// ErrForeignHandle is returned when a Handle created by another backend is passed in.
var ErrForeignHandle = errors.New("handle was not created by this backend")

type wgpuBackend struct {
	mu     *sync.Mutex
	log    *zap.Logger
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode

	// frameHeld guards against acquiring a second surface image before the first is released.
	frameHeld bool
}

var _ Backend = &wgpuBackend{}

// NewWGPUBackend creates the instance, surface, adapter and device for a window surface.
// The calling goroutine is locked to its OS thread, which wgpu-native requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from wgpuglfw.GetSurfaceDescriptor
//   - opts: a variadic list of BackendOption functions
//
// Returns:
//   - Backend: the backend
//   - error: a *DeviceError if no adapter or device could be acquired
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...BackendOption) (Backend, error) {
	runtime.LockOSThread()

	o := backendOptions{log: logger.Named("gpu")}
	for _, opt := range opts {
		opt(&o)
	}

	b := &wgpuBackend{
		mu:       &sync.Mutex{},
		log:      o.log,
		instance: wgpu.CreateInstance(nil),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: o.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, &DeviceError{Op: "request adapter", Err: err}
	}
	b.adapter = adapter
	b.log.Info("adapter acquired", zap.Bool("fallback", o.forceFallbackAdapter))

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-view device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.Release()
		return nil, &DeviceError{Op: "request device", Err: err}
	}
	b.device = device
	b.queue = device.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		b.Release()
		return nil, &DeviceError{Op: "surface capabilities", Err: errors.New("surface reports no formats")}
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.alphaMode = wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		b.alphaMode = capabilities.AlphaModes[0]
	}
	b.log.Info("device acquired", zap.Uint32("surface_format", uint32(b.surfaceFormat)))

	return b, nil
}

func (b *wgpuBackend) SurfaceFormat() wgpu.TextureFormat {
	return b.surfaceFormat
}

func (b *wgpuBackend) ConfigureSurface(cfg SurfaceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg = cfg.Clamped()
	format := cfg.Format
	if format == wgpu.TextureFormatUndefined {
		format = b.surfaceFormat
	}
	presentMode := wgpu.PresentModeFifo
	if cfg.PresentMode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: presentMode,
		AlphaMode:   b.alphaMode,
	})
	b.log.Debug("surface configured",
		zap.Uint32("width", cfg.Width),
		zap.Uint32("height", cfg.Height),
		zap.Stringer("present_mode", cfg.PresentMode),
	)
	return nil
}

func (b *wgpuBackend) CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(contents) == 0 {
		return nil, &DeviceError{Op: "create buffer " + label, Err: errors.New("empty contents")}
	}
	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    usage,
	})
	if err != nil {
		return nil, &DeviceError{Op: "create buffer " + label, Err: err}
	}
	return buf, nil
}

func (b *wgpuBackend) WriteBuffer(buffer Handle, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := handleAs[*wgpu.Buffer](buffer, "write buffer")
	if err != nil {
		return err
	}
	return deviceErr("write buffer", b.queue.WriteBuffer(buf, offset, data))
}

func (b *wgpuBackend) CreateTexture(data common.TextureStagingData) (Handle, Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := "create texture " + data.Label
	if !data.Validate() {
		return nil, nil, &DeviceError{Op: op, Err: fmt.Errorf("%dx%d texture with %d bytes", data.Width, data.Height, len(data.Pixels))}
	}
	extent := wgpu.Extent3D{
		Width:              data.Width,
		Height:             data.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         data.Label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          extent,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, &DeviceError{Op: op, Err: err}
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&extent,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, &DeviceError{Op: op + " view", Err: err}
	}
	return tex, view, nil
}

func (b *wgpuBackend) CreateDepthTexture(label string, width, height uint32) (Handle, Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              common.AtLeast(width, 1),
			Height:             common.AtLeast(height, 1),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, &DeviceError{Op: "create depth texture", Err: err}
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, &DeviceError{Op: "create depth texture view", Err: err}
	}
	return tex, view, nil
}

func (b *wgpuBackend) CreateSampler(data common.SamplerStagingData) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         data.Label,
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, &DeviceError{Op: "create sampler " + data.Label, Err: err}
	}
	return samp, nil
}

func (b *wgpuBackend) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout, err := b.device.CreateBindGroupLayout(desc)
	if err != nil {
		return nil, &DeviceError{Op: "create bind group layout " + desc.Label, Err: err}
	}
	return layout, nil
}

func (b *wgpuBackend) CreateBindGroup(label string, layout Handle, entries []BindGroupEntry) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := "create bind group " + label
	bgl, err := handleAs[*wgpu.BindGroupLayout](layout, op)
	if err != nil {
		return nil, err
	}

	wgpuEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, entry := range entries {
		e := wgpu.BindGroupEntry{Binding: entry.Binding}
		switch {
		case entry.TextureView != nil:
			if e.TextureView, err = handleAs[*wgpu.TextureView](entry.TextureView, op); err != nil {
				return nil, err
			}
		case entry.Sampler != nil:
			if e.Sampler, err = handleAs[*wgpu.Sampler](entry.Sampler, op); err != nil {
				return nil, err
			}
		case entry.Buffer != nil:
			if e.Buffer, err = handleAs[*wgpu.Buffer](entry.Buffer, op); err != nil {
				return nil, err
			}
			e.Size = common.Coalesce(entry.Size, wgpu.WholeSize)
		default:
			return nil, &DeviceError{Op: op, Err: fmt.Errorf("binding %d has no resource", entry.Binding)}
		}
		wgpuEntries[i] = e
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  bgl,
		Entries: wgpuEntries,
	})
	if err != nil {
		return nil, &DeviceError{Op: op, Err: err}
	}
	return bindGroup, nil
}

func (b *wgpuBackend) CreateRenderPipeline(desc RenderPipelineDescriptor) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := "create render pipeline " + desc.Label
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, h := range desc.BindGroupLayouts {
		l, err := handleAs[*wgpu.BindGroupLayout](h, op)
		if err != nil {
			return nil, err
		}
		layouts[i] = l
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, &DeviceError{Op: "create shader module " + desc.Label, Err: err}
	}
	defer module.Release()

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, &DeviceError{Op: "create pipeline layout " + desc.Label, Err: err}
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.VertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    desc.ColorFormat,
				WriteMask: desc.WriteMask,
				Blend:     desc.Blend,
			}},
		},
		Primitive: desc.Primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: desc.DepthStencil,
	})
	if err != nil {
		return nil, &DeviceError{Op: op, Err: err}
	}
	return created, nil
}

func (b *wgpuBackend) AcquireFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameHeld {
		return nil, &SurfaceError{Err: errors.New("previous frame surface not yet released")}
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, &SurfaceError{Err: err}
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, &SurfaceError{Err: err}
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, &DeviceError{Op: "create command encoder", Err: err}
	}

	b.frameHeld = true
	return &wgpuFrame{
		b:              b,
		surfaceTexture: surfaceTexture,
		view:           view,
		encoder:        encoder,
	}, nil
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// wgpuFrame holds the per-frame encoder and surface image between AcquireFrame and Release.
type wgpuFrame struct {
	b              *wgpuBackend
	surfaceTexture *wgpu.Texture
	view           *wgpu.TextureView
	encoder        *wgpu.CommandEncoder
	pass           *wgpu.RenderPassEncoder
	submitted      bool
}

func (f *wgpuFrame) BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	depthView, err := handleAs[*wgpu.TextureView](desc.DepthView, "begin render pass")
	if err != nil {
		return nil, err
	}
	f.pass = f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       f.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: desc.ClearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: desc.ClearDepth,
		},
	})
	return &wgpuRenderPass{f: f}, nil
}

func (f *wgpuFrame) Submit() error {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	commandBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		return &DeviceError{Op: "finish command encoder", Err: err}
	}
	f.b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	f.submitted = true
	return nil
}

func (f *wgpuFrame) Present() {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	if !f.submitted || f.surfaceTexture == nil {
		return
	}
	f.b.surface.Present()
}

func (f *wgpuFrame) Release() {
	f.b.mu.Lock()
	defer f.b.mu.Unlock()

	if f.pass != nil {
		f.pass.Release()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.surfaceTexture != nil {
		f.surfaceTexture.Release()
		f.surfaceTexture = nil
	}
	f.b.frameHeld = false
}

// wgpuRenderPass records into the frame's pass encoder. The first foreign handle stops recording
// and is returned by End.
type wgpuRenderPass struct {
	f   *wgpuFrame
	err error
}

// record keeps the first conversion error and reports whether recording may continue.
func (p *wgpuRenderPass) record(err error) bool {
	if p.err == nil {
		p.err = err
	}
	return p.err == nil
}

func (p *wgpuRenderPass) SetPipeline(pipeline Handle) {
	rp, err := handleAs[*wgpu.RenderPipeline](pipeline, "set pipeline")
	if p.record(err) {
		p.f.pass.SetPipeline(rp)
	}
}

func (p *wgpuRenderPass) SetBindGroup(group uint32, bindGroup Handle) {
	bg, err := handleAs[*wgpu.BindGroup](bindGroup, fmt.Sprintf("set bind group %d", group))
	if p.record(err) {
		p.f.pass.SetBindGroup(group, bg, nil)
	}
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buffer Handle) {
	buf, err := handleAs[*wgpu.Buffer](buffer, fmt.Sprintf("set vertex buffer %d", slot))
	if p.record(err) {
		p.f.pass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) SetIndexBuffer(buffer Handle, format wgpu.IndexFormat) {
	buf, err := handleAs[*wgpu.Buffer](buffer, "set index buffer")
	if p.record(err) {
		p.f.pass.SetIndexBuffer(buf, format, 0, wgpu.WholeSize)
	}
}

func (p *wgpuRenderPass) DrawIndexed(indexCount uint32) {
	if p.record(nil) {
		p.f.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	}
}

// End ends the pass and releases the encoder, which must happen before the frame is submitted.
//
// Returns:
//   - error: a *DeviceError wrapping ErrForeignHandle if any recorded handle was not a wgpu object
func (p *wgpuRenderPass) End() error {
	p.f.b.mu.Lock()
	defer p.f.b.mu.Unlock()

	if p.f.pass != nil {
		p.f.pass.End()
		p.f.pass.Release()
		p.f.pass = nil
	}
	return p.err
}

// handleAs converts h to the concrete wgpu type T.
func handleAs[T Handle](h Handle, op string) (T, error) {
	v, ok := h.(T)
	if !ok {
		var zero T
		return zero, &DeviceError{Op: op, Err: fmt.Errorf("%w: %T", ErrForeignHandle, h)}
	}
	return v, nil
}
