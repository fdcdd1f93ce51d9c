// Package gpu is the seam between the renderer and the GPU device.
//
// The renderer talks only to Backend, Frame and RenderPass. Every GPU object it receives back is an opaque
// Handle that the same Backend knows how to use. NewWGPUBackend drives a real device through cogentcore/webgpu;
// the gputest package provides a recording fake for tests.
package gpu

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Handle is an opaque GPU resource owned by the caller that created it.
// Release must be called exactly once when the resource is no longer used.
type Handle interface {
	Release()
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// String returns the config name of the present mode.
func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "uncapped"
	}
	return "vsync"
}

// SurfaceConfig describes how the presentation surface is configured.
type SurfaceConfig struct {
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	PresentMode PresentMode
}

// Clamped returns a copy of c with both dimensions forced to at least 1.
// A minimised window reports 0x0, which no surface can be configured with.
//
// Returns:
//   - SurfaceConfig: the clamped config
func (c SurfaceConfig) Clamped() SurfaceConfig {
	c.Width = common.AtLeast(c.Width, 1)
	c.Height = common.AtLeast(c.Height, 1)
	return c
}

// BindGroupEntry binds one resource to a binding slot. Exactly one of Buffer, TextureView or Sampler is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Handle
	Size        uint64
	TextureView Handle
	Sampler     Handle
}

// RenderPipelineDescriptor holds everything needed to create a render pipeline.
// The backend creates the shader module and pipeline layout itself and does not keep them.
type RenderPipelineDescriptor struct {
	Label            string
	Source           string
	VertexEntry      string
	FragmentEntry    string
	VertexLayouts    []wgpu.VertexBufferLayout
	BindGroupLayouts []Handle
	ColorFormat      wgpu.TextureFormat
	WriteMask        wgpu.ColorWriteMask
	Blend            *wgpu.BlendState
	Primitive        wgpu.PrimitiveState
	DepthStencil     *wgpu.DepthStencilState
}

// RenderPassDescriptor configures the single pass of a frame.
type RenderPassDescriptor struct {
	ClearColor wgpu.Color
	ClearDepth float32
	DepthView  Handle
}

// Backend creates GPU resources and frames.
type Backend interface {
	// SurfaceFormat returns the preferred color format of the presentation surface.
	//
	// Returns:
	//   - wgpu.TextureFormat: the format every color target must use
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface (re)configures the presentation surface.
	//
	// Parameters:
	//   - cfg: the surface config; the backend clamps it before use
	//
	// Returns:
	//   - error: a *DeviceError if the surface could not be configured
	ConfigureSurface(cfg SurfaceConfig) error

	// CreateBuffer creates a buffer initialised with contents. The buffer size is len(contents).
	//
	// Parameters:
	//   - label: the debug label
	//   - usage: the buffer usage flags
	//   - contents: the initial bytes, which must not be empty
	//
	// Returns:
	//   - Handle: the buffer
	//   - error: a *DeviceError if creation failed
	CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (Handle, error)

	// WriteBuffer queues a write into a buffer created by CreateBuffer.
	// The write is visible to every command submitted after it.
	//
	// Parameters:
	//   - buffer: the target buffer
	//   - offset: the byte offset into the buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: a *DeviceError if the write was rejected
	WriteBuffer(buffer Handle, offset uint64, data []byte) error

	// CreateTexture creates a sampled RGBA8 sRGB texture, uploads the pixels and creates a view.
	//
	// Parameters:
	//   - data: the staging data holding label, size and pixels
	//
	// Returns:
	//   - Handle: the texture
	//   - Handle: the texture view
	//   - error: a *DeviceError if creation failed
	CreateTexture(data common.TextureStagingData) (Handle, Handle, error)

	// CreateDepthTexture creates a Depth24Plus render attachment and its view.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - Handle: the texture
	//   - Handle: the texture view
	//   - error: a *DeviceError if creation failed
	CreateDepthTexture(label string, width, height uint32) (Handle, Handle, error)

	// CreateSampler creates a sampler, filling unset fields with linear filtering and repeat addressing.
	//
	// Parameters:
	//   - data: the sampler staging data
	//
	// Returns:
	//   - Handle: the sampler
	//   - error: a *DeviceError if creation failed
	CreateSampler(data common.SamplerStagingData) (Handle, error)

	// CreateBindGroupLayout creates a bind group layout.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - Handle: the layout
	//   - error: a *DeviceError if creation failed
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (Handle, error)

	// CreateBindGroup creates a bind group against a layout.
	//
	// Parameters:
	//   - label: the debug label
	//   - layout: a layout created by CreateBindGroupLayout
	//   - entries: the resources to bind
	//
	// Returns:
	//   - Handle: the bind group
	//   - error: a *DeviceError if creation failed
	CreateBindGroup(label string, layout Handle, entries []BindGroupEntry) (Handle, error)

	// CreateRenderPipeline compiles the shader and creates a render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - Handle: the pipeline
	//   - error: a *DeviceError if creation failed
	CreateRenderPipeline(desc RenderPipelineDescriptor) (Handle, error)

	// AcquireFrame acquires the next surface image and a command encoder for it.
	//
	// Returns:
	//   - Frame: the frame, which must be released
	//   - error: a *SurfaceError if the image could not be acquired, or a *DeviceError
	AcquireFrame() (Frame, error)

	// Release releases the device, surface and instance.
	Release()
}

// Frame is one acquired surface image plus the commands recorded for it.
type Frame interface {
	// BeginRenderPass begins the frame's only render pass targeting the surface image.
	BeginRenderPass(desc RenderPassDescriptor) (RenderPass, error)

	// Submit finishes the command encoder and submits it to the queue.
	Submit() error

	// Present shows the surface image. It must follow Submit.
	Present()

	// Release releases the encoder and surface image. It is safe after Present and after a failure.
	Release()
}

// RenderPass records draw commands.
type RenderPass interface {
	SetPipeline(pipeline Handle)
	SetBindGroup(group uint32, bindGroup Handle)
	SetVertexBuffer(slot uint32, buffer Handle)
	SetIndexBuffer(buffer Handle, format wgpu.IndexFormat)
	DrawIndexed(indexCount uint32)
	End() error
}
