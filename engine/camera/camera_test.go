package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3InDelta(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d", i)
	}
}

func TestControllerFromEye(t *testing.T) {
	eye := mgl32.Vec3{0, 1, 2}
	cc := NewCameraController(WithTarget(mgl32.Vec3{}), WithEye(eye))

	assertVec3InDelta(t, eye, cc.Position())
	assert.InDelta(t, math32.Sqrt(5), cc.Radius(), 1e-5)
	assert.InDelta(t, 0, cc.Azimuth(), 1e-6)
}

func TestOrbitClampsElevation(t *testing.T) {
	cc := NewCameraController(WithElevationBounds(-0.5, 0.5))
	cc.Orbit(0, 10)
	assert.InDelta(t, 0.5, cc.Elevation(), 1e-6)
	cc.Orbit(0, -10)
	assert.InDelta(t, -0.5, cc.Elevation(), 1e-6)

	before := cc.Radius()
	cc.Orbit(math32.Pi/2, 0)
	assert.InDelta(t, before, cc.Position().Sub(cc.Target()).Len(), 1e-4)
}

func TestPanMovesTargetAndPosition(t *testing.T) {
	cc := NewCameraController(WithEye(mgl32.Vec3{0, 0, 5}))
	cc.PanRight(1)
	assertVec3InDelta(t, mgl32.Vec3{1, 0, 0}, cc.Target())
	assertVec3InDelta(t, mgl32.Vec3{1, 0, 5}, cc.Position())

	cc.PanUp(2)
	assertVec3InDelta(t, mgl32.Vec3{1, 2, 0}, cc.Target())
}

func TestViewProjectionDepthRange(t *testing.T) {
	ctrl := NewCameraController(WithEye(mgl32.Vec3{0, 0, 5}))
	cam := NewCamera(WithFovDegrees(60), WithAspect(16.0/9.0), WithClipPlanes(1, 10), WithController(ctrl))
	vp := cam.ViewProjectionMatrix()

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		clip := vp.Mul4x1(p.Vec4(1))
		require.NotZero(t, clip.W())
		return clip.Vec3().Mul(1 / clip.W())
	}

	center := project(mgl32.Vec3{})
	assert.InDelta(t, 0, center.X(), 1e-5)
	assert.InDelta(t, 0, center.Y(), 1e-5)

	assert.InDelta(t, 0, project(mgl32.Vec3{0, 0, 4}).Z(), 1e-4, "near plane maps to depth 0")
	assert.InDelta(t, 1, project(mgl32.Vec3{0, 0, -5}).Z(), 1e-4, "far plane maps to depth 1")
}

func TestSetAspectIgnoresDegenerateSize(t *testing.T) {
	cam := NewCamera(WithAspect(2))
	before := cam.ProjectionMatrix()
	cam.SetAspect(0)
	assert.Equal(t, float32(2), cam.Aspect())
	assert.Equal(t, before, cam.ProjectionMatrix())

	cam.SetAspect(1)
	assert.NotEqual(t, before, cam.ProjectionMatrix())
}
