package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadBindsViewAndSampler(t *testing.T) {
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)
	u := NewTextureUploader(b)

	tex, err := u.Upload(solidImage("albedo", 2, 2, 0x80), layouts.Texture)
	require.NoError(t, err)

	w, h := tex.Size()
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(2), h)

	bg, ok := tex.BindGroup().(*gputest.Resource)
	require.True(t, ok)
	require.Len(t, bg.Entries, 2)
	assert.Equal(t, uint32(0), bg.Entries[0].Binding)
	assert.Same(t, tex.View(), bg.Entries[0].TextureView)
	assert.Equal(t, uint32(1), bg.Entries[1].Binding)
	assert.NotNil(t, bg.Entries[1].Sampler)

	gpuTex := b.Created(gputest.KindTexture)
	require.Len(t, gpuTex, 1)
	assert.Len(t, gpuTex[0].Data, 16)

	tex.Release()
	for _, kind := range []string{gputest.KindTexture, gputest.KindTextureView, gputest.KindSampler, gputest.KindBindGroup} {
		assert.Empty(t, b.Live(kind), kind)
	}
	assert.Len(t, b.Live(gputest.KindBindGroupLayout), 2)
}

func TestUploadRejectsInvalidImage(t *testing.T) {
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)

	_, err = NewTextureUploader(b).Upload(model.Image{Name: "short", Width: 2, Height: 2, Pixels: make([]byte, 15)}, layouts.Texture)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.ErrorIs(t, err, model.ErrImageSize)
	assert.Empty(t, b.Created(gputest.KindTexture))
}

func TestUploadReleasesOnFailure(t *testing.T) {
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)
	cause := errors.New("device lost")
	b.Fail = func(op, _ string) error {
		if op == gputest.OpCreateBindGroup {
			return cause
		}
		return nil
	}

	_, err = NewTextureUploader(b).Upload(solidImage("albedo", 1, 1, 0), layouts.Texture)
	var devErr *gpu.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.ErrorIs(t, err, cause)

	for _, kind := range []string{gputest.KindTexture, gputest.KindTextureView, gputest.KindSampler} {
		assert.Empty(t, b.Live(kind), kind)
		for _, r := range b.Created(kind) {
			assert.Equal(t, 1, r.Released, r.Label)
		}
	}
}

func TestCreateDepthBufferClamps(t *testing.T) {
	b := gputest.NewBackend()
	depth, err := NewTextureUploader(b).CreateDepthBuffer(0, 0)
	require.NoError(t, err)

	w, h := depth.Size()
	assert.Equal(t, uint32(1), w)
	assert.Equal(t, uint32(1), h)
	assert.Nil(t, depth.BindGroup())
	assert.NotNil(t, depth.View())

	created := b.Created(gputest.KindDepthTexture)
	require.Len(t, created, 1)
	assert.Equal(t, uint32(1), created[0].Width)

	depth.Release()
	assert.Empty(t, b.Live(""))
}

func TestUniformBytesLayout(t *testing.T) {
	u := NewUniformState()
	u.Position = [3]float32{1, 2, 3}
	u.Highlight = 1

	buf := u.Bytes()
	require.Len(t, buf, UniformSize)
	// identity diagonal: 1.0f is 0x3F800000
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, buf[0:4])
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, buf[20:24])
	assert.Equal(t, []byte{0, 0, 0, 0}, buf[4:8])
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, buf[64:68])
	assert.Equal(t, []byte{0, 0, 0x40, 0x40}, buf[72:76])
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, buf[76:80])
}
