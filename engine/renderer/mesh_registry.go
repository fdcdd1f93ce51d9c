package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// GpuMesh is one mesh's vertex and index buffers on the GPU.
type GpuMesh struct {
	Name string

	// TextureIndex references MeshRegistry.Textures, or is nil.
	TextureIndex *int

	provider bind_group_provider.BindGroupProvider
}

// VertexBuffer returns the interleaved TextureVertex buffer.
func (m *GpuMesh) VertexBuffer() gpu.Handle {
	return m.provider.VertexBuffer()
}

// IndexBuffer returns the u32 index buffer.
func (m *GpuMesh) IndexBuffer() gpu.Handle {
	return m.provider.IndexBuffer()
}

// IndexCount returns the number of indices drawn for this mesh.
func (m *GpuMesh) IndexCount() uint32 {
	return uint32(m.provider.IndexCount())
}

// Release releases both buffers.
func (m *GpuMesh) Release() {
	m.provider.Release()
}

// MeshRegistry holds every GPU mesh and texture of one scene. It is immutable once built.
type MeshRegistry struct {
	assetID  string
	meshes   []*GpuMesh
	textures []*GpuTexture
}

// NewMeshRegistry uploads every image and mesh of an asset. An asset without images gets a single
// 1x1 white texture so every mesh has something to sample. If any upload fails, everything uploaded
// so far is released.
//
// Parameters:
//   - backend: the backend to create buffers on
//   - uploader: the uploader to create textures with
//   - asset: the parsed scene
//   - textureLayout: the texture bind group layout (group 0)
//
// Returns:
//   - *MeshRegistry: the registry
//   - error: ErrInvalidImage or a *gpu.DeviceError
func NewMeshRegistry(backend gpu.Backend, uploader *TextureUploader, asset *model.SceneAsset, textureLayout gpu.Handle) (*MeshRegistry, error) {
	r := &MeshRegistry{assetID: asset.ID}

	images := asset.Images
	if len(images) == 0 {
		images = []model.Image{whiteImage(asset.ID + "/fallback")}
	}
	for i, img := range images {
		if img.Name == "" {
			img.Name = fmt.Sprintf("%s/image/%d", asset.ID, i)
		}
		tex, err := uploader.Upload(img, textureLayout)
		if err != nil {
			r.Release()
			return nil, fmt.Errorf("upload image %d: %w", i, err)
		}
		r.textures = append(r.textures, tex)
	}

	for i := range asset.Meshes {
		mesh, err := r.uploadMesh(backend, &asset.Meshes[i])
		if err != nil {
			r.Release()
			return nil, fmt.Errorf("upload mesh %q: %w", asset.Meshes[i].Name, err)
		}
		r.meshes = append(r.meshes, mesh)
	}
	return r, nil
}

func (r *MeshRegistry) uploadMesh(backend gpu.Backend, mesh *model.Mesh) (*GpuMesh, error) {
	label := r.assetID + "/" + mesh.Name
	vb, err := backend.CreateBuffer(label+" vertices", wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, model.MarshalVertices(mesh.Vertices))
	if err != nil {
		return nil, err
	}
	ib, err := backend.CreateBuffer(label+" indices", wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, model.MarshalIndices(mesh.Indices))
	if err != nil {
		vb.Release()
		return nil, err
	}
	return &GpuMesh{
		Name:         mesh.Name,
		TextureIndex: mesh.TextureIndex,
		provider:     bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithMesh(vb, ib, len(mesh.Indices))),
	}, nil
}

// Meshes returns the meshes in asset order.
func (r *MeshRegistry) Meshes() []*GpuMesh {
	return r.meshes
}

// Textures returns the textures in asset image order, or the single fallback texture.
func (r *MeshRegistry) Textures() []*GpuTexture {
	return r.textures
}

// Len returns the number of meshes.
func (r *MeshRegistry) Len() int {
	return len(r.meshes)
}

// ResolveTexture returns the texture a mesh samples. A nil or out of range index resolves to texture 0.
//
// Parameters:
//   - mesh: a mesh of this registry
//
// Returns:
//   - *GpuTexture: the texture to bind at group 0
func (r *MeshRegistry) ResolveTexture(mesh *GpuMesh) *GpuTexture {
	if mesh.TextureIndex != nil {
		if i := *mesh.TextureIndex; i >= 0 && i < len(r.textures) {
			return r.textures[i]
		}
	}
	return r.textures[0]
}

// Release releases every mesh and texture. Calling it again does nothing.
func (r *MeshRegistry) Release() {
	for _, m := range r.meshes {
		m.Release()
	}
	for _, t := range r.textures {
		t.Release()
	}
	r.meshes = nil
	r.textures = nil
}
