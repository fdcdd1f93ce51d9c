package gpu

import "fmt"

// DeviceError reports a failed device operation: adapter or device acquisition, resource creation,
// shader compilation, command encoding or submission.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("gpu: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// SurfaceError reports that no surface image could be acquired for a frame.
// The frame is dropped; the surface should be reconfigured before the next one.
type SurfaceError struct {
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("gpu: acquire surface image: %v", e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// deviceErr wraps err as a *DeviceError, or returns nil.
func deviceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Op: op, Err: err}
}
