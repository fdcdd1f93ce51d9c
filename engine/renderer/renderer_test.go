package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/require"
)

// stubPipeline stands in for a built pipeline so driver tests do not depend on shader compilation.
type stubPipeline struct {
	handle gpu.Handle
	format wgpu.TextureFormat
}

var _ pipeline.Pipeline = &stubPipeline{}

func (p *stubPipeline) Key() string                     { return "stub" }
func (p *stubPipeline) Handle() gpu.Handle              { return p.handle }
func (p *stubPipeline) ColorFormat() wgpu.TextureFormat { return p.format }
func (p *stubPipeline) Shader() shader.Shader           { return nil }
func (p *stubPipeline) BlendEnabled() bool              { return false }
func (p *stubPipeline) WriteMask() wgpu.ColorWriteMask  { return wgpu.ColorWriteMaskAll }
func (p *stubPipeline) Release()                        { p.handle.Release() }

func intPtr(i int) *int { return &i }

func solidImage(name string, w, h uint32, v byte) model.Image {
	px := make([]byte, w*h*4)
	for i := range px {
		px[i] = v
	}
	return model.Image{Name: name, Width: w, Height: h, Pixels: px}
}

// testAsset has a textured triangle, an untextured quad and a triangle pointing past the image list.
func testAsset(images ...model.Image) *model.SceneAsset {
	return &model.SceneAsset{
		ID:   "asset-1",
		Name: "test",
		Meshes: []model.Mesh{
			{
				Name: "tri/0",
				Vertices: []model.TextureVertex{
					{Position: [3]float32{0, 1, 0}, TexCoords: [2]float32{0.5, 0}},
					{Position: [3]float32{-1, -1, 0}, TexCoords: [2]float32{0, 1}},
					{Position: [3]float32{1, -1, 0}, TexCoords: [2]float32{1, 1}},
				},
				Indices:      []uint32{0, 1, 2},
				TextureIndex: intPtr(0),
			},
			{
				Name: "quad/0",
				Vertices: []model.TextureVertex{
					{Position: [3]float32{-1, -1, 0}},
					{Position: [3]float32{1, -1, 0}},
					{Position: [3]float32{1, 1, 0}},
					{Position: [3]float32{-1, 1, 0}},
				},
				Indices: []uint32{0, 1, 2, 0, 2, 3},
			},
			{
				Name: "tri/1",
				Vertices: []model.TextureVertex{
					{Position: [3]float32{0, 0, 0}},
					{Position: [3]float32{1, 0, 0}},
					{Position: [3]float32{0, 1, 0}},
				},
				Indices:      []uint32{2, 1, 0},
				TextureIndex: intPtr(7),
			},
		},
		Images: images,
	}
}

type harness struct {
	backend  *gputest.Backend
	layouts  *Layouts
	uploader *TextureUploader
	registry *MeshRegistry
	pipeline *stubPipeline
}

func newHarness(t *testing.T, asset *model.SceneAsset) *harness {
	t.Helper()
	b := gputest.NewBackend()
	layouts, err := NewLayouts(b)
	require.NoError(t, err)
	uploader := NewTextureUploader(b)
	registry, err := NewMeshRegistry(b, uploader, asset, layouts.Texture)
	require.NoError(t, err)
	handle, err := b.CreateRenderPipeline(gpu.RenderPipelineDescriptor{Label: "stub"})
	require.NoError(t, err)
	return &harness{
		backend:  b,
		layouts:  layouts,
		uploader: uploader,
		registry: registry,
		pipeline: &stubPipeline{handle: handle, format: b.SurfaceFormat()},
	}
}

func (h *harness) driver(t *testing.T, opts ...FrameDriverOption) *FrameDriver {
	t.Helper()
	d, err := NewFrameDriver(h.backend, h.registry, h.pipeline, h.uploader, h.layouts.Uniform, opts...)
	require.NoError(t, err)
	return d
}
