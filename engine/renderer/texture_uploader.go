package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
)

// ErrInvalidImage is returned by Upload when the pixel buffer does not match the image dimensions.
var ErrInvalidImage = errors.New("renderer: invalid image")

// GpuTexture is a texture on the GPU together with its view and, for sampled textures, its sampler
// and texture bind group.
type GpuTexture struct {
	provider bind_group_provider.BindGroupProvider
	width    uint32
	height   uint32
}

// Provider returns the bind group provider that owns the texture's resources.
func (t *GpuTexture) Provider() bind_group_provider.BindGroupProvider {
	return t.provider
}

// BindGroup returns the group 0 bind group, or nil for a depth buffer.
func (t *GpuTexture) BindGroup() gpu.Handle {
	return t.provider.BindGroup()
}

// View returns the texture view.
func (t *GpuTexture) View() gpu.Handle {
	return t.provider.TextureView(0)
}

// Size returns the texture dimensions in pixels.
func (t *GpuTexture) Size() (uint32, uint32) {
	return t.width, t.height
}

// Release releases the bind group, view, sampler and texture.
func (t *GpuTexture) Release() {
	t.provider.Release()
}

// TextureUploader creates textures on a backend.
type TextureUploader struct {
	backend gpu.Backend
}

// NewTextureUploader returns an uploader that creates every texture on backend.
//
// Parameters:
//   - backend: the backend to create textures on
//
// Returns:
//   - *TextureUploader: the uploader
func NewTextureUploader(backend gpu.Backend) *TextureUploader {
	return &TextureUploader{backend: backend}
}

// Upload creates a sampled texture from an image and binds it with the default sampler against layout.
// Device failures are returned as they are and not retried; whatever was created before the failure is released.
//
// Parameters:
//   - image: the decoded RGBA8 image
//   - layout: the texture bind group layout (group 0)
//
// Returns:
//   - *GpuTexture: the uploaded texture
//   - error: ErrInvalidImage, or a *gpu.DeviceError
func (u *TextureUploader) Upload(image model.Image, layout gpu.Handle) (*GpuTexture, error) {
	if err := image.Validate(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidImage, image.Name, err)
	}

	provider := bind_group_provider.NewBindGroupProvider(image.Name)
	tex, view, err := u.backend.CreateTexture(common.TextureStagingData{
		Label:  image.Name,
		Pixels: image.Pixels,
		Width:  image.Width,
		Height: image.Height,
	})
	if err != nil {
		return nil, err
	}
	provider.SetTexture(0, tex, view)

	sampler, err := u.backend.CreateSampler(common.DefaultSamplerStagingData(image.Name + " sampler"))
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetSampler(1, sampler)

	bg, err := u.backend.CreateBindGroup(image.Name+" bind group", layout, provider.BindGroupEntries())
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetBindGroup(bg)

	return &GpuTexture{provider: provider, width: image.Width, height: image.Height}, nil
}

// CreateDepthBuffer creates a Depth24Plus render attachment. It has no sampler and no bind group.
//
// Parameters:
//   - width: the width in pixels, clamped to at least 1
//   - height: the height in pixels, clamped to at least 1
//
// Returns:
//   - *GpuTexture: the depth buffer
//   - error: a *gpu.DeviceError
func (u *TextureUploader) CreateDepthBuffer(width, height uint32) (*GpuTexture, error) {
	width, height = common.AtLeast(width, 1), common.AtLeast(height, 1)
	label := fmt.Sprintf("depth %dx%d", width, height)
	tex, view, err := u.backend.CreateDepthTexture(label, width, height)
	if err != nil {
		return nil, err
	}
	provider := bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithTexture(0, tex, view))
	return &GpuTexture{provider: provider, width: width, height: height}, nil
}

// whiteImage is the 1x1 opaque white image sampled by meshes without a texture.
func whiteImage(name string) model.Image {
	return model.Image{Name: name, Width: 1, Height: 1, Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF}}
}
