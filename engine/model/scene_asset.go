// Package model holds the CPU-side scene records produced by the loader and consumed by the renderer.
package model

import (
	"errors"
	"fmt"
)

// ErrImageSize is returned by Image.Validate when the pixel buffer does not hold Width*Height RGBA8 texels.
var ErrImageSize = errors.New("image pixel buffer does not match its dimensions")

// SceneAsset is the top-level result of parsing a scene container.
// It owns its meshes and images exclusively.
type SceneAsset struct {
	// ID uniquely identifies this asset instance and prefixes the labels of GPU resources created for it.
	ID string

	// Name is the asset name (file stem or the name supplied to the loader).
	Name string

	// Meshes holds one entry per drawable primitive, in mesh then primitive order.
	Meshes []Mesh

	// Images holds every decoded image in the container's images[] order.
	Images []Image
}

// Mesh is a single drawable primitive.
type Mesh struct {
	// Name is "<mesh name>/<primitive index>".
	Name string

	// Vertices are the interleaved position/texcoord records.
	Vertices []TextureVertex

	// Indices are triangle-list indices widened to 32 bits. Every value is < len(Vertices).
	Indices []uint32

	// TextureIndex references SceneAsset.Images, or is nil when the primitive has no base color texture.
	TextureIndex *int
}

// Image is a decoded RGBA8 pixel buffer.
type Image struct {
	Name   string
	Width  uint32
	Height uint32

	// Pixels holds Width*Height*4 bytes of row-major RGBA8 data.
	Pixels []byte
}

// Validate checks that the image has non-zero dimensions and a pixel buffer of the expected length.
//
// Returns:
//   - error: ErrImageSize wrapped with the offending sizes, or nil
func (i Image) Validate() error {
	want := uint64(i.Width) * uint64(i.Height) * 4
	if i.Width == 0 || i.Height == 0 || uint64(len(i.Pixels)) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrImageSize, i.Width, i.Height, want, len(i.Pixels))
	}
	return nil
}

// VertexCount returns the total number of vertices across all meshes.
func (s *SceneAsset) VertexCount() int {
	n := 0
	for i := range s.Meshes {
		n += len(s.Meshes[i].Vertices)
	}
	return n
}

// IndexCount returns the total number of indices across all meshes.
func (s *SceneAsset) IndexCount() int {
	n := 0
	for i := range s.Meshes {
		n += len(s.Meshes[i].Indices)
	}
	return n
}
