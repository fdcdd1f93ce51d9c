package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the camera's positional state. It orbits a target using spherical
// coordinates (radius, azimuth, elevation) and can pan both position and target together.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the camera around the target. Elevation is clamped to the controller's bounds.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// OrbitDrag orbits by a cursor movement in pixels scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx: horizontal cursor movement
	//   - dy: vertical cursor movement
	OrbitDrag(dx, dy float32)

	// Zoom adjusts the orbit radius. Positive delta moves closer to the target.
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// PanRight translates position and target along the local right axis.
	//
	// Parameters:
	//   - delta: pan distance
	PanRight(delta float32)

	// PanUp translates position and target along the local up axis.
	//
	// Parameters:
	//   - delta: pan distance
	PanUp(delta float32)

	// Radius returns the current orbit radius (distance from target).
	Radius() float32

	// Azimuth returns the current horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the current vertical angle from the horizontal plane in radians.
	Elevation() float32

	// OrbitSpeed returns the keyboard orbit speed in radians per second.
	OrbitSpeed() float32
}
