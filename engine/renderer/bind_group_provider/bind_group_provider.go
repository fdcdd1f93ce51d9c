package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label, used as the prefix of every GPU resource label created for this provider.
	label string

	// The following fields are GPU allocated resources owned by this provider and released by Release.

	// bindGroup is the bind group created for this provider, or nil when it only holds mesh buffers.
	bindGroup gpu.Handle
	// buffers holds the buffers bound by this provider, keyed by binding index.
	buffers map[int]gpu.Handle
	// textures holds the textures backing textureViews, keyed by the same binding index.
	textures map[int]gpu.Handle
	// textureViews holds the texture views bound by this provider, keyed by binding index.
	textureViews map[int]gpu.Handle
	// samplers holds the samplers bound by this provider, keyed by binding index.
	samplers map[int]gpu.Handle

	// The following fields are specific to mesh providers.

	// vertexBuffer is the interleaved vertex buffer, or nil.
	vertexBuffer gpu.Handle
	// indexBuffer is the u32 index buffer, or nil.
	indexBuffer gpu.Handle
	// indexCount is the number of indices drawn with DrawIndexed.
	indexCount int
}

// BindGroupProvider owns the GPU resources behind one bind group or one mesh.
// Bind group layouts are shared between providers and are not owned here; the caller that created a layout releases it.
//
// Usage pattern:
//  1. Create a provider with a label and the resources already created on a gpu.Backend
//  2. Create the bind group from those resources and store it with SetBindGroup
//  3. Read BindGroup, VertexBuffer and IndexBuffer when recording draw calls
//  4. Call Release once when the owner is torn down
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider. Calling it again is a no-op.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the bind group, or nil if none was set.
	//
	// Returns:
	//   - gpu.Handle: the bind group or nil
	BindGroup() gpu.Handle

	// Buffer returns the buffer bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Handle: the buffer or nil
	Buffer(binding int) gpu.Handle

	// Texture returns the texture whose view is bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Handle: the texture or nil
	Texture(binding int) gpu.Handle

	// TextureView returns the texture view bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Handle: the texture view or nil
	TextureView(binding int) gpu.Handle

	// Sampler returns the sampler bound at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Handle: the sampler or nil
	Sampler(binding int) gpu.Handle

	// VertexBuffer returns the vertex buffer, or nil.
	VertexBuffer() gpu.Handle

	// IndexBuffer returns the index buffer, or nil.
	IndexBuffer() gpu.Handle

	// IndexCount returns the number of indices for draw calls.
	IndexCount() int

	// SetBindGroup stores the bind group created from this provider's resources.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg gpu.Handle)

	// SetBuffer stores a buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf gpu.Handle)

	// SetTexture stores a texture and its view for a binding.
	//
	// Parameters:
	//   - binding: the binding index of the view
	//   - tex: the texture
	//   - view: the view of tex
	SetTexture(binding int, tex, view gpu.Handle)

	// SetSampler stores a sampler for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s gpu.Handle)

	// SetVertexBuffer stores the mesh vertex buffer.
	SetVertexBuffer(buf gpu.Handle)

	// SetIndexBuffer stores the mesh index buffer.
	SetIndexBuffer(buf gpu.Handle)

	// SetIndexCount sets the number of indices for draw calls.
	SetIndexCount(count int)

	// BindGroupEntries returns the entries for creating this provider's bind group, ordered by binding index.
	//
	// Returns:
	//   - []gpu.BindGroupEntry: one entry per stored buffer, texture view and sampler
	BindGroupEntries() []gpu.BindGroupEntry
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]gpu.Handle),
		textures:     make(map[int]gpu.Handle),
		textureViews: make(map[int]gpu.Handle),
		samplers:     make(map[int]gpu.Handle),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() gpu.Handle {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) gpu.Handle {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Texture(binding int) gpu.Handle {
	return p.textures[binding]
}

func (p *bindGroupProvider) TextureView(binding int) gpu.Handle {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) gpu.Handle {
	return p.samplers[binding]
}

func (p *bindGroupProvider) VertexBuffer() gpu.Handle {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() gpu.Handle {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg gpu.Handle) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf gpu.Handle) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex, view gpu.Handle) {
	p.textures[binding] = tex
	p.textureViews[binding] = view
}

func (p *bindGroupProvider) SetSampler(binding int, s gpu.Handle) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetVertexBuffer(buf gpu.Handle) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf gpu.Handle) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) BindGroupEntries() []gpu.BindGroupEntry {
	entries := make([]gpu.BindGroupEntry, 0, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	for binding, buf := range p.buffers {
		entries = append(entries, gpu.BindGroupEntry{Binding: uint32(binding), Buffer: buf})
	}
	for binding, tv := range p.textureViews {
		entries = append(entries, gpu.BindGroupEntry{Binding: uint32(binding), TextureView: tv})
	}
	for binding, s := range p.samplers {
		entries = append(entries, gpu.BindGroupEntry{Binding: uint32(binding), Sampler: s})
	}
	sortEntries(entries)
	return entries
}

// Release releases the bind group before the resources it references.
func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	releaseAll(p.textureViews)
	releaseAll(p.textures)
	releaseAll(p.samplers)
	releaseAll(p.buffers)

	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}

func releaseAll(m map[int]gpu.Handle) {
	for i, h := range m {
		if h != nil {
			h.Release()
		}
		delete(m, i)
	}
}
