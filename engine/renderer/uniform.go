package renderer

import (
	"encoding/binary"
	"math"
)

// UniformSize is the byte size of UniformState on the GPU.
const UniformSize = 80

// UniformState is the per-frame scene uniform: group 1, binding 0.
// The layout matches the WGSL SceneUniform struct: a column-major mat4x4 at 0, a vec3 at 64 and a
// f32 packed into the vec3's trailing slot at 76.
type UniformState struct {
	ViewProj  [16]float32
	Position  [3]float32
	Highlight float32
}

// NewUniformState returns a uniform with an identity view-projection.
func NewUniformState() *UniformState {
	u := &UniformState{}
	for i := 0; i < 4; i++ {
		u.ViewProj[i*5] = 1
	}
	return u
}

// Bytes encodes the uniform for upload.
//
// Returns:
//   - []byte: UniformSize little-endian bytes
func (u *UniformState) Bytes() []byte {
	buf := make([]byte, UniformSize)
	for i, f := range u.ViewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	for i, f := range u.Position {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(u.Highlight))
	return buf
}
