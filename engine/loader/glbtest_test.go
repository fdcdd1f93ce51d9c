package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// glbBuilder assembles GLB containers for tests. Everything lands in a single BIN buffer.
type glbBuilder struct {
	t *testing.T

	bin []byte

	views     []map[string]any
	accessors []map[string]any
	meshes    []map[string]any
	materials []map[string]any
	textures  []map[string]any
	images    []map[string]any
}

func newGLBBuilder(t *testing.T) *glbBuilder {
	return &glbBuilder{t: t}
}

// addView appends data to the BIN buffer (4-byte aligned) and returns the bufferView index.
func (b *glbBuilder) addView(data []byte, stride int) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	view := map[string]any{"buffer": 0, "byteOffset": len(b.bin), "byteLength": len(data)}
	if stride > 0 {
		view["byteStride"] = stride
	}
	b.bin = append(b.bin, data...)
	b.views = append(b.views, view)
	return len(b.views) - 1
}

func (b *glbBuilder) addAccessor(view, byteOffset, componentType, count int, typ string) int {
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    view,
		"byteOffset":    byteOffset,
		"componentType": componentType,
		"count":         count,
		"type":          typ,
	})
	return len(b.accessors) - 1
}

func (b *glbBuilder) addVec3(values [][3]float32) int {
	view := b.addView(floatBytes(flatten3(values)), 0)
	return b.addAccessor(view, 0, gltfComponentTypeFloat, len(values), gltfAccessorTypeVec3)
}

func (b *glbBuilder) addVec2(values [][2]float32) int {
	view := b.addView(floatBytes(flatten2(values)), 0)
	return b.addAccessor(view, 0, gltfComponentTypeFloat, len(values), gltfAccessorTypeVec2)
}

// addIndices encodes indices with the given component type (u8, u16 or u32).
func (b *glbBuilder) addIndices(indices []uint32, componentType int) int {
	var data []byte
	for _, idx := range indices {
		switch componentType {
		case gltfComponentTypeUnsignedByte:
			data = append(data, byte(idx))
		case gltfComponentTypeUnsignedShort:
			data = binary.LittleEndian.AppendUint16(data, uint16(idx))
		default:
			data = binary.LittleEndian.AppendUint32(data, idx)
		}
	}
	view := b.addView(data, 0)
	return b.addAccessor(view, 0, componentType, len(indices), gltfAccessorTypeScalar)
}

// addMesh appends a mesh made of the given primitives and returns its index.
func (b *glbBuilder) addMesh(name string, primitives ...map[string]any) int {
	b.meshes = append(b.meshes, map[string]any{"name": name, "primitives": primitives})
	return len(b.meshes) - 1
}

// addPNG encodes a solid-color PNG into a bufferView-backed image and returns the image index.
func (b *glbBuilder) addPNG(name string, w, h int, c color.RGBA) int {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(b.t, png.Encode(&buf, img))

	view := b.addView(buf.Bytes(), 0)
	b.images = append(b.images, map[string]any{"name": name, "bufferView": view, "mimeType": mimePNG})
	return len(b.images) - 1
}

// addTexturedMaterial creates a texture and a material whose base color samples imageIndex.
func (b *glbBuilder) addTexturedMaterial(imageIndex int) int {
	b.textures = append(b.textures, map[string]any{"source": imageIndex})
	b.materials = append(b.materials, map[string]any{
		"pbrMetallicRoughness": map[string]any{
			"baseColorTexture": map[string]any{"index": len(b.textures) - 1},
		},
	})
	return len(b.materials) - 1
}

func (b *glbBuilder) document() map[string]any {
	doc := map[string]any{
		"asset":       map[string]any{"version": "2.0"},
		"buffers":     []map[string]any{{"byteLength": len(b.bin)}},
		"bufferViews": b.views,
		"accessors":   b.accessors,
		"meshes":      b.meshes,
	}
	if len(b.materials) > 0 {
		doc["materials"] = b.materials
		doc["textures"] = b.textures
	}
	if len(b.images) > 0 {
		doc["images"] = b.images
	}
	return doc
}

func (b *glbBuilder) build() []byte {
	js, err := json.Marshal(b.document())
	require.NoError(b.t, err)
	return assembleGLB(js, b.bin)
}

// primitive builds a primitive JSON object. A negative indices or material value omits the field.
func primitive(position, texCoord, indices, material int) map[string]any {
	attrs := map[string]any{}
	if position >= 0 {
		attrs[gltfAttributePosition] = position
	}
	if texCoord >= 0 {
		attrs[gltfAttributeTexCoord0] = texCoord
	}
	p := map[string]any{"attributes": attrs}
	if indices >= 0 {
		p["indices"] = indices
	}
	if material >= 0 {
		p["material"] = material
	}
	return p
}

// assembleGLB wraps a JSON chunk and an optional BIN chunk in a GLB header.
func assembleGLB(js, bin []byte) []byte {
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin = append([]byte(nil), bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := 12 + 8 + len(js)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, gltfGLBMagic)
	out = binary.LittleEndian.AppendUint32(out, gltfGLBVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(js)))
	out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkJSON)
	out = append(out, js...)
	if len(bin) > 0 {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(bin)))
		out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkBIN)
		out = append(out, bin...)
	}
	return out
}

func floatBytes(values []float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func flatten3(values [][3]float32) []float32 {
	out := make([]float32, 0, len(values)*3)
	for _, v := range values {
		out = append(out, v[:]...)
	}
	return out
}

func flatten2(values [][2]float32) []float32 {
	out := make([]float32, 0, len(values)*2)
	for _, v := range values {
		out = append(out, v[:]...)
	}
	return out
}

// quadPositions and quadTexCoords describe a unit quad plus a center vertex.
var (
	quadPositions = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 0.5, 0}}
	quadTexCoords = [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}, {0.5, 0.5}}
)
