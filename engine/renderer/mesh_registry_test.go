package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryUploadsMeshes(t *testing.T) {
	asset := testAsset(solidImage("a", 1, 1, 10), solidImage("b", 2, 1, 20))
	h := newHarness(t, asset)

	require.Equal(t, 3, h.registry.Len())
	require.Len(t, h.registry.Textures(), 2)

	for i, mesh := range h.registry.Meshes() {
		src := asset.Meshes[i]
		assert.Equal(t, src.Name, mesh.Name)
		assert.Equal(t, uint32(len(src.Indices)), mesh.IndexCount())

		vb := mesh.VertexBuffer().(*gputest.Resource)
		assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, vb.Usage)
		assert.Equal(t, model.MarshalVertices(src.Vertices), vb.Data)
		assert.Len(t, vb.Data, len(src.Vertices)*model.TextureVertexSize)

		ib := mesh.IndexBuffer().(*gputest.Resource)
		assert.Equal(t, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, ib.Usage)
		assert.Equal(t, model.MarshalIndices(src.Indices), ib.Data)
		assert.True(t, strings.HasPrefix(ib.Label, asset.ID+"/"), ib.Label)
	}
}

func TestRegistryFallbackTexture(t *testing.T) {
	h := newHarness(t, testAsset())

	require.Len(t, h.registry.Textures(), 1)
	textures := h.backend.Created(gputest.KindTexture)
	require.Len(t, textures, 1)
	assert.Equal(t, uint32(1), textures[0].Width)
	assert.Equal(t, uint32(1), textures[0].Height)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, textures[0].Data)

	for _, mesh := range h.registry.Meshes() {
		assert.Same(t, h.registry.Textures()[0], h.registry.ResolveTexture(mesh))
	}
}

func TestResolveTexture(t *testing.T) {
	h := newHarness(t, testAsset(solidImage("a", 1, 1, 0), solidImage("b", 1, 1, 0)))
	meshes, textures := h.registry.Meshes(), h.registry.Textures()

	tests := []struct {
		name string
		mesh *GpuMesh
		want *GpuTexture
	}{
		{name: "explicit index", mesh: meshes[0], want: textures[0]},
		{name: "nil index", mesh: meshes[1], want: textures[0]},
		{name: "out of range", mesh: meshes[2], want: textures[0]},
		{name: "second texture", mesh: &GpuMesh{TextureIndex: intPtr(1)}, want: textures[1]},
		{name: "negative", mesh: &GpuMesh{TextureIndex: intPtr(-1)}, want: textures[0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, h.registry.ResolveTexture(tt.mesh))
		})
	}
}

func TestRegistryReleasesPartialBuild(t *testing.T) {
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)
	cause := errors.New("out of memory")
	b.Fail = func(op, label string) error {
		if op == gputest.OpCreateBuffer && strings.Contains(label, "quad/0 indices") {
			return cause
		}
		return nil
	}

	_, err = NewMeshRegistry(b, NewTextureUploader(b), testAsset(solidImage("a", 1, 1, 0)), layouts.Texture)
	var devErr *gpu.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.ErrorIs(t, err, cause)

	live := b.Live("")
	require.Len(t, live, 2)
	for _, r := range live {
		assert.Equal(t, gputest.KindBindGroupLayout, r.Kind)
	}
	for _, r := range b.Resources {
		assert.LessOrEqual(t, r.Released, 1, r.Label)
	}
}

func TestRegistryRejectsInvalidImage(t *testing.T) {
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)

	bad := model.Image{Name: "bad", Width: 4, Height: 4, Pixels: []byte{1, 2, 3}}
	_, err = NewMeshRegistry(b, NewTextureUploader(b), testAsset(solidImage("ok", 1, 1, 0), bad), layouts.Texture)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, b.Live(gputest.KindTexture))
	assert.Empty(t, b.Created(gputest.KindBuffer))
}

func TestRegistryRelease(t *testing.T) {
	h := newHarness(t, testAsset(solidImage("a", 1, 1, 0)))
	h.registry.Release()
	h.registry.Release()

	assert.Empty(t, h.backend.Live(gputest.KindBuffer))
	assert.Empty(t, h.backend.Live(gputest.KindTexture))
	assert.Empty(t, h.backend.Live(gputest.KindBindGroup))
	assert.Zero(t, h.registry.Len())
	for _, r := range h.backend.Resources {
		assert.LessOrEqual(t, r.Released, 1, r.Label)
	}
}
