package gpu

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurfaceConfigClamped(t *testing.T) {
	tests := []struct {
		name       string
		in         SurfaceConfig
		wantWidth  uint32
		wantHeight uint32
	}{
		{"minimised", SurfaceConfig{Width: 0, Height: 0}, 1, 1},
		{"zero width", SurfaceConfig{Width: 0, Height: 600}, 1, 600},
		{"unchanged", SurfaceConfig{Width: 800, Height: 600}, 800, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamped()
			assert.Equal(t, tt.wantWidth, got.Width)
			assert.Equal(t, tt.wantHeight, got.Height)
		})
	}
}

func TestClampedKeepsModeAndFormat(t *testing.T) {
	in := SurfaceConfig{PresentMode: PresentModeUncapped, Format: 23}
	got := in.Clamped()
	assert.Equal(t, PresentModeUncapped, got.PresentMode)
	assert.Equal(t, in.Format, got.Format)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("lost")

	var devErr error = &DeviceError{Op: "create buffer", Err: cause}
	assert.ErrorIs(t, devErr, cause)
	assert.Equal(t, "gpu: create buffer: lost", devErr.Error())

	var surfErr error = &SurfaceError{Err: cause}
	assert.ErrorIs(t, surfErr, cause)
	var target *SurfaceError
	assert.True(t, errors.As(surfErr, &target))

	assert.NoError(t, deviceErr("noop", nil))
}

func TestHandleAsRejectsForeignHandles(t *testing.T) {
	_, err := handleAs[*fakeHandle](otherHandle{}, "bind")
	var devErr *DeviceError
	assert.ErrorAs(t, err, &devErr)
	assert.ErrorIs(t, err, ErrForeignHandle)

	h, err := handleAs[*fakeHandle](&fakeHandle{}, "bind")
	assert.NoError(t, err)
	assert.NotNil(t, h)
}

func TestRenderPassEndReportsFirstForeignHandle(t *testing.T) {
	// No pass encoder is needed: a foreign handle stops recording before the encoder is touched.
	pass := &wgpuRenderPass{f: &wgpuFrame{b: &wgpuBackend{mu: &sync.Mutex{}}}}

	pass.SetPipeline(otherHandle{})
	pass.SetVertexBuffer(0, &fakeHandle{})
	pass.SetIndexBuffer(&fakeHandle{}, 0)
	pass.SetBindGroup(1, otherHandle{})
	pass.DrawIndexed(3)

	err := pass.End()
	var devErr *DeviceError
	assert.ErrorAs(t, err, &devErr)
	assert.ErrorIs(t, err, ErrForeignHandle)
	assert.Equal(t, "set pipeline", devErr.Op)
}

type fakeHandle struct{}

func (*fakeHandle) Release() {}

type otherHandle struct{}

func (otherHandle) Release() {}

func TestPresentModeString(t *testing.T) {
	assert.Equal(t, "vsync", PresentModeVSync.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
}
