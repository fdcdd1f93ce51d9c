package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyDriver(t *testing.T, opts ...FrameDriverOption) (*harness, *FrameDriver) {
	t.Helper()
	h := newHarness(t, testAsset(solidImage("a", 1, 1, 0)))
	d := h.driver(t, opts...)
	require.NoError(t, d.Init(640, 480))
	require.Equal(t, StateReady, d.State())
	return h, d
}

func TestDriverCallsBeforeInit(t *testing.T) {
	h := newHarness(t, testAsset())
	d := h.driver(t)
	assert.Equal(t, StateUninitialized, d.State())

	assert.ErrorIs(t, d.Resize(10, 10), ErrNotInitialized)
	assert.ErrorIs(t, d.Redraw(NewUniformState()), ErrInvalidState)
	assert.Zero(t, h.backend.Acquired)
}

func TestDriverInit(t *testing.T) {
	h, d := readyDriver(t, WithPresentMode(gpu.PresentModeUncapped))

	require.Len(t, h.backend.Configured, 1)
	assert.Equal(t, gpu.SurfaceConfig{
		Width:       640,
		Height:      480,
		Format:      wgpu.TextureFormatBGRA8UnormSrgb,
		PresentMode: gpu.PresentModeUncapped,
	}, h.backend.Configured[0])
	w, ht := d.DepthBuffer().Size()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), ht)

	assert.ErrorIs(t, d.Init(1, 1), ErrInvalidState)
}

func TestResizeClampsAndRebuildsDepth(t *testing.T) {
	redraws := 0
	h, d := readyDriver(t, WithRequestRedraw(func() { redraws++ }))
	oldDepth := d.DepthBuffer()

	require.NoError(t, d.Resize(0, 0))
	assert.Equal(t, StateReady, d.State())
	assert.Equal(t, 1, redraws)

	cfg := d.SurfaceConfig()
	assert.Equal(t, uint32(1), cfg.Width)
	assert.Equal(t, uint32(1), cfg.Height)
	assert.Equal(t, cfg, h.backend.Configured[len(h.backend.Configured)-1])

	assert.NotSame(t, oldDepth, d.DepthBuffer())
	w, ht := d.DepthBuffer().Size()
	assert.Equal(t, uint32(1), w)
	assert.Equal(t, uint32(1), ht)

	depths := h.backend.Created(gputest.KindDepthTexture)
	require.Len(t, depths, 2)
	assert.Equal(t, 1, depths[0].Released)
	assert.Zero(t, depths[1].Released)

	require.NoError(t, d.Resize(800, 600))
	assert.Equal(t, 2, redraws)
	assert.Equal(t, uint32(800), d.SurfaceConfig().Width)
}

func TestResizeFailureRebuildsDepthOnNextRedraw(t *testing.T) {
	for _, op := range []string{gputest.OpConfigureSurface, gputest.OpCreateDepthTexture} {
		t.Run(op, func(t *testing.T) {
			redraws := 0
			h, d := readyDriver(t, WithRequestRedraw(func() { redraws++ }))
			cause := errors.New("out of memory")
			h.backend.Fail = func(failing, _ string) error {
				if failing == op {
					return cause
				}
				return nil
			}

			err := d.Resize(800, 600)
			var devErr *gpu.DeviceError
			require.ErrorAs(t, err, &devErr)
			assert.Equal(t, op, devErr.Op)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, StateReady, d.State())
			assert.True(t, d.ReconfigurePending())
			assert.Zero(t, redraws)
			w, ht := d.DepthBuffer().Size()
			assert.Equal(t, [2]uint32{640, 480}, [2]uint32{w, ht}, "old depth buffer is kept")

			h.backend.Fail = nil
			require.NoError(t, d.Redraw(NewUniformState()))
			assert.False(t, d.ReconfigurePending())

			cfg := d.SurfaceConfig()
			assert.Equal(t, cfg, h.backend.Configured[len(h.backend.Configured)-1])
			w, ht = d.DepthBuffer().Size()
			assert.Equal(t, [2]uint32{cfg.Width, cfg.Height}, [2]uint32{w, ht})
			assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, ht})

			sub, ok := h.backend.LastSubmission()
			require.True(t, ok)
			assert.Same(t, d.DepthBuffer().View(), sub.Pass.DepthView)
			view := sub.Pass.DepthView.(*gputest.Resource)
			assert.Equal(t, [2]uint32{800, 600}, [2]uint32{view.Width, view.Height})

			live := h.backend.Live(gputest.KindDepthTexture)
			require.Len(t, live, 1)
			assert.Equal(t, uint32(800), live[0].Width)
		})
	}
}

func TestResizeToSameSizeKeepsDepth(t *testing.T) {
	h, d := readyDriver(t)
	depth := d.DepthBuffer()

	require.NoError(t, d.Resize(640, 480))
	assert.Same(t, depth, d.DepthBuffer())
	assert.Len(t, h.backend.Created(gputest.KindDepthTexture), 1)
	assert.Len(t, h.backend.Configured, 2)
}

func TestRedrawDrawsEveryMeshInOrder(t *testing.T) {
	h, d := readyDriver(t, WithClearColor(wgpu.Color{R: 1, A: 1}))

	require.NoError(t, d.Redraw(NewUniformState()))
	assert.Equal(t, StateReady, d.State())
	assert.Equal(t, 1, h.backend.Presented)
	assert.Equal(t, uint64(1), d.FramesPresented())

	sub, ok := h.backend.LastSubmission()
	require.True(t, ok)
	assert.Equal(t, wgpu.Color{R: 1, A: 1}, sub.Pass.ClearColor)
	assert.Equal(t, float32(1), sub.Pass.ClearDepth)
	assert.Same(t, d.DepthBuffer().View(), sub.Pass.DepthView)

	want := []gputest.Command{{Op: gputest.CmdSetPipeline, Handle: h.pipeline.Handle()}}
	for _, mesh := range h.registry.Meshes() {
		want = append(want,
			gputest.Command{Op: gputest.CmdSetVertexBuffer, Handle: mesh.VertexBuffer(), Index: 0},
			gputest.Command{Op: gputest.CmdSetIndexBuffer, Handle: mesh.IndexBuffer(), Format: wgpu.IndexFormatUint32},
			gputest.Command{Op: gputest.CmdSetBindGroup, Handle: h.registry.ResolveTexture(mesh).BindGroup(), Index: 0},
			gputest.Command{Op: gputest.CmdSetBindGroup, Handle: d.UniformBindGroup(), Index: 1},
			gputest.Command{Op: gputest.CmdDrawIndexed, Count: mesh.IndexCount()},
		)
	}
	assert.Equal(t, want, sub.Commands)

	draws := sub.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, []uint32{3, 6, 3}, []uint32{draws[0].Count, draws[1].Count, draws[2].Count})
}

func TestRedrawUploadsUniformBeforeSubmit(t *testing.T) {
	h, d := readyDriver(t)
	u := NewUniformState()

	u.Position = [3]float32{1, 0, 0}
	require.NoError(t, d.Redraw(u))
	first, _ := h.backend.LastSubmission()
	assert.Equal(t, u.Bytes(), first.BufferData(d.UniformBuffer()))

	u.Position = [3]float32{2, 0, 0}
	u.Highlight = 1
	require.NoError(t, d.Redraw(u))
	second, _ := h.backend.LastSubmission()
	assert.Equal(t, u.Bytes(), second.BufferData(d.UniformBuffer()))
	assert.NotEqual(t, first.BufferData(d.UniformBuffer()), second.BufferData(d.UniformBuffer()))
}

func TestAcquireFailureReconfiguresNextRedraw(t *testing.T) {
	h, d := readyDriver(t)
	cause := errors.New("surface outdated")
	h.backend.FailNextAcquire(cause)

	err := d.Redraw(NewUniformState())
	var surfaceErr *gpu.SurfaceError
	require.ErrorAs(t, err, &surfaceErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateReady, d.State())
	assert.True(t, d.ReconfigurePending())
	assert.Zero(t, h.backend.Presented)
	require.Len(t, h.backend.Configured, 1)

	require.NoError(t, d.Redraw(NewUniformState()))
	assert.False(t, d.ReconfigurePending())
	require.Len(t, h.backend.Configured, 2)
	assert.Equal(t, h.backend.Configured[0], h.backend.Configured[1])
	assert.Equal(t, 1, h.backend.Presented)
}

func TestSubmitFailureReturnsDeviceError(t *testing.T) {
	h, d := readyDriver(t)
	cause := errors.New("device lost")
	h.backend.Fail = func(op, _ string) error {
		if op == gputest.OpSubmit {
			return cause
		}
		return nil
	}

	err := d.Redraw(NewUniformState())
	var devErr *gpu.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, gputest.OpSubmit, devErr.Op)
	assert.Equal(t, StateReady, d.State())
	assert.Zero(t, h.backend.Presented)
	assert.False(t, d.ReconfigurePending())

	h.backend.Fail = nil
	require.NoError(t, d.Redraw(NewUniformState()))
	assert.Equal(t, 1, h.backend.Presented)
}

func TestDriverRelease(t *testing.T) {
	h, d := readyDriver(t)
	uniform := d.UniformBuffer().(*gputest.Resource)
	bindGroup := d.UniformBindGroup().(*gputest.Resource)

	d.Release()
	d.Release()
	assert.Equal(t, 1, uniform.Released)
	assert.Equal(t, 1, bindGroup.Released)
	assert.Empty(t, h.backend.Live(gputest.KindDepthTexture))
	assert.Equal(t, StateUninitialized, d.State())
	assert.NotEmpty(t, h.backend.Live(gputest.KindBuffer), "registry buffers belong to the registry")
}

func TestFrameStateString(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "resizing", StateResizing.String())
	assert.Equal(t, "FrameState(42)", FrameState(42).String())
}
