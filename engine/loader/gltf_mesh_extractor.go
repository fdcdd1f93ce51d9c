package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
)

// Attribute semantics read from every primitive.
const (
	gltfAttributePosition  = "POSITION"
	gltfAttributeTexCoord0 = "TEXCOORD_0"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	parser gltfParser
}

// gltfMeshExtractor defines the interface for extracting drawable primitives from a parsed glTF document.
// It converts raw accessor data into model.Mesh records.
type gltfMeshExtractor interface {
	// ExtractMesh extracts every primitive of a single mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []model.Mesh: one Mesh per primitive
	//   - error: *ParseError scoped to the failing primitive
	ExtractMesh(meshIndex int) ([]model.Mesh, error)

	// ExtractAllMeshes extracts all meshes from the document in mesh then primitive order.
	//
	// Returns:
	//   - []model.Mesh: all primitives, flattened
	//   - error: *ParseError scoped to the first failing primitive
	ExtractAllMeshes() ([]model.Mesh, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]model.Mesh, error) {
	doc := e.parser.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, containerErr(ErrMalformed, "mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	result := make([]model.Mesh, 0, len(mesh.Primitives))
	for primIdx := range mesh.Primitives {
		m, err := e.extractPrimitive(&mesh.Primitives[primIdx])
		if err != nil {
			return nil, primitiveErr(meshIndex, primIdx, err)
		}
		m.Name = fmt.Sprintf("%s/%d", name, primIdx)
		result = append(result, *m)
	}
	return result, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]model.Mesh, error) {
	doc := e.parser.Document()

	var result []model.Mesh
	for i := range doc.Meshes {
		meshes, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		result = append(result, meshes...)
	}
	return result, nil
}

// extractPrimitive reads one triangle-list primitive. Errors are container-level and
// get scoped to the primitive by the caller.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (*model.Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, containerErr(ErrMalformed, "unsupported primitive mode %d: only triangles are drawn", *prim.Mode)
	}

	posIdx, ok := prim.Attributes[gltfAttributePosition]
	if !ok {
		return nil, containerErr(ErrMissingAttribute, "no %s attribute", gltfAttributePosition)
	}
	uvIdx, ok := prim.Attributes[gltfAttributeTexCoord0]
	if !ok {
		return nil, containerErr(ErrMissingAttribute, "no %s attribute", gltfAttributeTexCoord0)
	}

	positions, err := e.parser.ReadVec3Accessor(posIdx)
	if err != nil {
		return nil, err
	}
	texCoords, err := e.parser.ReadVec2Accessor(uvIdx)
	if err != nil {
		return nil, err
	}
	if len(positions) != len(texCoords) {
		return nil, containerErr(ErrAttributeCountMismatch, "%d positions but %d texcoords", len(positions), len(texCoords))
	}

	if prim.Indices == nil {
		return nil, containerErr(ErrMissingAttribute, "no indices accessor")
	}
	indices, err := e.parser.ReadIndicesAccessor(*prim.Indices)
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, containerErr(ErrIndexOutOfRange, "index %d at position %d exceeds vertex count %d", idx, i, len(positions))
		}
	}

	textureIndex, err := e.resolveBaseColorImage(prim.Material)
	if err != nil {
		return nil, err
	}

	vertices := make([]model.TextureVertex, len(positions))
	for i := range positions {
		vertices[i] = model.TextureVertex{Position: positions[i], TexCoords: texCoords[i]}
	}

	return &model.Mesh{
		Vertices:     vertices,
		Indices:      indices,
		TextureIndex: textureIndex,
	}, nil
}

// resolveBaseColorImage follows material -> baseColorTexture -> texture.source to an image index.
// A missing link anywhere yields nil; a dangling index is ErrMalformed.
func (e *gltfMeshExtractorImpl) resolveBaseColorImage(materialIndex *int) (*int, error) {
	if materialIndex == nil {
		return nil, nil
	}
	doc := e.parser.Document()
	if *materialIndex < 0 || *materialIndex >= len(doc.Materials) {
		return nil, containerErr(ErrMalformed, "material index %d out of range", *materialIndex)
	}

	pbr := doc.Materials[*materialIndex].PbrMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil {
		return nil, nil
	}

	texIdx := pbr.BaseColorTexture.Index
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil, containerErr(ErrMalformed, "texture index %d out of range", texIdx)
	}
	source := doc.Textures[texIdx].Source
	if source == nil {
		return nil, nil
	}
	if *source < 0 || *source >= len(doc.Images) {
		return nil, containerErr(ErrMalformed, "image index %d out of range", *source)
	}

	imageIndex := *source
	return &imageIndex, nil
}
