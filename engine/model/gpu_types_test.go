package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureVertexMarshal(t *testing.T) {
	v := TextureVertex{Position: [3]float32{1, -2, 3.5}, TexCoords: [2]float32{0.25, 0.75}}
	assert.Equal(t, TextureVertexSize, v.Size())

	buf := v.Marshal()
	require.Len(t, buf, TextureVertexSize)

	want := []float32{1, -2, 3.5, 0.25, 0.75}
	for i, f := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		assert.Equal(t, f, got, "component %d", i)
	}
}

func TestMarshalVerticesIsContiguous(t *testing.T) {
	vs := []TextureVertex{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{4, 5, 6}, TexCoords: [2]float32{1, 1}},
	}
	buf := MarshalVertices(vs)
	require.Len(t, buf, 2*TextureVertexSize)
	assert.Equal(t, vs[1].Marshal(), buf[TextureVertexSize:])
}

func TestMarshalIndices(t *testing.T) {
	buf := MarshalIndices([]uint32{0, 1, 70000})
	require.Len(t, buf, 12)
	assert.Equal(t, uint32(70000), binary.LittleEndian.Uint32(buf[8:]))
}

func TestTextureVertexLayout(t *testing.T) {
	layout := TextureVertexLayout()
	assert.Equal(t, uint64(TextureVertexSize), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint32(0), layout.Attributes[0].ShaderLocation)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Contains(t, TextureVertexSource, "@location(1)")
}

func TestImageValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     Image
		wantErr bool
	}{
		{"ok", Image{Width: 2, Height: 1, Pixels: make([]byte, 8)}, false},
		{"short", Image{Width: 2, Height: 2, Pixels: make([]byte, 8)}, true},
		{"zero width", Image{Width: 0, Height: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrImageSize)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSceneAssetCounts(t *testing.T) {
	s := &SceneAsset{Meshes: []Mesh{
		{Vertices: make([]TextureVertex, 3), Indices: []uint32{0, 1, 2}},
		{Vertices: make([]TextureVertex, 4), Indices: []uint32{0, 1, 2, 2, 3, 0}},
	}}
	assert.Equal(t, 7, s.VertexCount())
	assert.Equal(t, 9, s.IndexCount())
}
