// Package renderer uploads a parsed scene to the GPU and drives its frames.
//
// TextureUploader and MeshRegistry turn a model.SceneAsset into GPU resources once; FrameDriver records
// one depth-tested pass per redraw with a single pipeline.
package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureBindGroupLayoutDescriptor describes group 0: a 2D float texture at binding 0 and a filtering
// sampler at binding 1, both visible to the fragment stage.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the texture group layout
func TextureBindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "texture bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// UniformBindGroupLayoutDescriptor describes group 1: the scene uniform buffer at binding 0, visible to
// the vertex and fragment stages.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the uniform group layout
func UniformBindGroupLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "uniform bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: UniformSize,
				},
			},
		},
	}
}

// Layouts holds the two bind group layouts shared by the pipeline, the texture bind groups and the
// uniform bind group.
type Layouts struct {
	Texture gpu.Handle
	Uniform gpu.Handle
}

// NewLayouts creates both bind group layouts on the backend.
//
// Parameters:
//   - backend: the backend to create the layouts on
//
// Returns:
//   - *Layouts: the created layouts
//   - error: a *gpu.DeviceError if either layout could not be created
func NewLayouts(backend gpu.Backend) (*Layouts, error) {
	texDesc := TextureBindGroupLayoutDescriptor()
	tex, err := backend.CreateBindGroupLayout(&texDesc)
	if err != nil {
		return nil, fmt.Errorf("texture layout: %w", err)
	}
	uniDesc := UniformBindGroupLayoutDescriptor()
	uni, err := backend.CreateBindGroupLayout(&uniDesc)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("uniform layout: %w", err)
	}
	return &Layouts{Texture: tex, Uniform: uni}, nil
}

// Release releases both layouts. Everything created against them must be released first.
func (l *Layouts) Release() {
	if l.Texture != nil {
		l.Texture.Release()
		l.Texture = nil
	}
	if l.Uniform != nil {
		l.Uniform.Release()
		l.Uniform = nil
	}
}
