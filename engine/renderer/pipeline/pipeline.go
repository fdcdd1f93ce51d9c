// Package pipeline builds the scene's single render pipeline.
package pipeline

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// TextureGroup is the bind group index of the base color texture and sampler.
	TextureGroup uint32 = 0

	// UniformGroup is the bind group index of the scene uniform.
	UniformGroup uint32 = 1
)

var (
	// ErrVertexLayoutMismatch is returned when the shader's vertex inputs do not match model.TextureVertexLayout.
	ErrVertexLayoutMismatch = errors.New("pipeline: vertex layout mismatch")

	// ErrBindGroupMismatch is returned when the shader declares a bind group other than the texture and uniform groups.
	ErrBindGroupMismatch = errors.New("pipeline: bind group mismatch")
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	key         string
	handle      gpu.Handle
	shader      shader.Shader
	colorFormat wgpu.TextureFormat

	blendEnabled bool
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
	released     bool
}

// Pipeline is an immutable render pipeline for TextureVertex meshes, laid out as
// [texture group, uniform group].
type Pipeline interface {
	// Key returns the key of the shader the pipeline was built from.
	//
	// Returns:
	//   - string: the pipeline key
	Key() string

	// Handle returns the backend pipeline object to pass to RenderPass.SetPipeline.
	//
	// Returns:
	//   - gpu.Handle: the pipeline handle
	Handle() gpu.Handle

	// ColorFormat returns the format of the single color target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the color target format
	ColorFormat() wgpu.TextureFormat

	// Shader returns the shader the pipeline was built from.
	Shader() shader.Shader

	// BlendEnabled reports whether the color target blends.
	BlendEnabled() bool

	// WriteMask returns the color write mask of the color target.
	WriteMask() wgpu.ColorWriteMask

	// Release releases the backend pipeline. Calling it again does nothing.
	Release()
}

var _ Pipeline = &pipeline{}

// Build validates the shader and creates the render pipeline.
//
// Parameters:
//   - backend: the backend that owns the layouts
//   - colorFormat: the color target format, normally backend.SurfaceFormat()
//   - textureLayout: the layout for group 0
//   - uniformLayout: the layout for group 1
//   - opts: a variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the built pipeline
//   - error: a *gpu.DeviceError for compile or creation failures, ErrVertexLayoutMismatch, or ErrBindGroupMismatch
func Build(backend gpu.Backend, colorFormat wgpu.TextureFormat, textureLayout, uniformLayout gpu.Handle, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		colorFormat: colorFormat,
		writeMask:   wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.shader == nil {
		s, err := shader.Default()
		if err != nil {
			return nil, &gpu.DeviceError{Op: "compile shader", Err: err}
		}
		p.shader = s
	}
	if err := p.shader.Validate(); err != nil {
		return nil, &gpu.DeviceError{Op: "compile shader", Err: err}
	}

	if got, want := p.shader.VertexLayout(), model.TextureVertexLayout(); !reflect.DeepEqual(got, want) {
		return nil, fmt.Errorf("%w: shader %q reads stride %d with %d attributes, meshes provide stride %d with %d",
			ErrVertexLayoutMismatch, p.shader.Key(), got.ArrayStride, len(got.Attributes), want.ArrayStride, len(want.Attributes))
	}
	for group := range p.shader.BindGroupLayoutDescriptors() {
		if group != int(TextureGroup) && group != int(UniformGroup) {
			return nil, fmt.Errorf("%w: shader %q declares group %d", ErrBindGroupMismatch, p.shader.Key(), group)
		}
	}

	p.key = p.shader.Key()
	desc := gpu.RenderPipelineDescriptor{
		Label:            p.key,
		Source:           p.shader.Source(),
		VertexEntry:      p.shader.VertexEntryPoint(),
		FragmentEntry:    p.shader.FragmentEntryPoint(),
		VertexLayouts:    []wgpu.VertexBufferLayout{model.TextureVertexLayout()},
		BindGroupLayouts: []gpu.Handle{textureLayout, uniformLayout},
		ColorFormat:      colorFormat,
		WriteMask:        p.writeMask,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	}
	if p.blendEnabled {
		desc.Blend = p.blendState
	}

	handle, err := backend.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	p.handle = handle
	return p, nil
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Handle() gpu.Handle {
	return p.handle
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.handle != nil {
		p.handle.Release()
	}
}
