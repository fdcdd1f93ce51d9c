package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureVertexSource is the canonical WGSL definition of the VertexInput struct for the scene pipeline.
// Matches TextureVertex layout exactly (20 bytes, tightly packed).
//
//go:embed assets/texture_vertex.wgsl
var TextureVertexSource string

// TextureVertexSize is the size in bytes of one TextureVertex in a vertex buffer.
const TextureVertexSize = 20

// TextureVertex is the interleaved vertex record uploaded for every mesh.
// Matches the WGSL VertexInput struct layout exactly (see TextureVertexSource).
type TextureVertex struct {
	Position  [3]float32 // offset  0: vertex position in model space (12 bytes)
	TexCoords [2]float32 // offset 12: UV texture coordinate (8 bytes)
}

// Size returns the size of the TextureVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *TextureVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the TextureVertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (v *TextureVertex) Marshal() []byte {
	buf := make([]byte, TextureVertexSize)
	v.marshalInto(buf)
	return buf
}

func (v *TextureVertex) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.TexCoords[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.TexCoords[1]))
}

// MarshalVertices serializes a vertex slice into one contiguous byte buffer.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices)*TextureVertexSize bytes
func MarshalVertices(vertices []TextureVertex) []byte {
	buf := make([]byte, len(vertices)*TextureVertexSize)
	for i := range vertices {
		vertices[i].marshalInto(buf[i*TextureVertexSize:])
	}
	return buf
}

// MarshalIndices serializes 32-bit indices into a little-endian byte buffer.
//
// Parameters:
//   - indices: the indices to serialize
//
// Returns:
//   - []byte: len(indices)*4 bytes
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// TextureVertexLayout returns the vertex buffer layout for TextureVertex:
// position at location 0 and texture coordinates at location 1.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-vertex layout used by the scene pipeline
func TextureVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: TextureVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		},
	}
}
