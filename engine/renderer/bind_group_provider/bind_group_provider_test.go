package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindGroupProviderKeepsLabel(t *testing.T) {
	p := NewBindGroupProvider("scene/texture 0")
	assert.Equal(t, "scene/texture 0", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.BindGroupEntries())
}

func TestBindGroupEntriesSortedByBinding(t *testing.T) {
	b := gputest.NewBackend()
	stage := common.TextureStagingData{Label: "tex", Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}
	tex, view, err := b.CreateTexture(stage)
	require.NoError(t, err)
	samp, err := b.CreateSampler(common.DefaultSamplerStagingData("samp"))
	require.NoError(t, err)

	p := NewBindGroupProvider("tex", WithSampler(1, samp), WithTexture(0, tex, view))
	entries := p.BindGroupEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, view, entries[0].TextureView)
	assert.Equal(t, uint32(1), entries[1].Binding)
	assert.Equal(t, samp, entries[1].Sampler)
	assert.Equal(t, tex, p.Texture(0))
}

func TestReleaseReleasesEverythingOnce(t *testing.T) {
	b := gputest.NewBackend()
	vb, err := b.CreateBuffer("vb", 0, make([]byte, 20))
	require.NoError(t, err)
	ib, err := b.CreateBuffer("ib", 0, make([]byte, 12))
	require.NoError(t, err)
	ub, err := b.CreateBuffer("ub", 0, make([]byte, 80))
	require.NoError(t, err)

	mesh := NewBindGroupProvider("mesh", WithMesh(vb, ib, 3))
	uniform := NewBindGroupProvider("uniform", WithBuffer(0, ub))
	assert.Equal(t, 3, mesh.IndexCount())

	mesh.Release()
	mesh.Release()
	uniform.Release()

	assert.Empty(t, b.Live(""))
	for _, r := range b.Resources {
		assert.Equal(t, 1, r.Released, r.Label)
	}
	assert.Nil(t, mesh.VertexBuffer())
	assert.Zero(t, mesh.IndexCount())
	assert.Nil(t, uniform.Buffer(0))
}

func TestWriteBuffers(t *testing.T) {
	b := gputest.NewBackend()
	ub, err := b.CreateBuffer("ub", 0, make([]byte, 8))
	require.NoError(t, err)
	p := NewBindGroupProvider("uniform", WithBuffer(0, ub))

	require.NoError(t, WriteBuffers(b, []BufferWrite{
		{Provider: p, Binding: 0, Offset: 0, Data: []byte{1, 2}},
		{Provider: p, Binding: 0, Offset: 6, Data: []byte{7, 8}},
	}))
	assert.Equal(t, []byte{1, 2, 0, 0, 0, 0, 7, 8}, ub.(*gputest.Resource).Data)

	assert.Error(t, WriteBuffers(b, []BufferWrite{{Provider: p, Binding: 3, Data: []byte{1}}}))
	assert.Error(t, WriteBuffers(b, []BufferWrite{{Provider: p, Binding: 0, Offset: 7, Data: []byte{1, 2}}}))
}
