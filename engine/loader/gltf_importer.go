package loader

import (
	"github.com/Carmen-Shannon/oxy-view/engine/model"

	"github.com/google/uuid"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	resolve uriResolver
}

// gltfImporter orchestrates a full glTF/GLB import.
// It combines the parser and the extractors to produce a complete SceneAsset.
type gltfImporter interface {
	// Import decodes a container and extracts its meshes and images.
	//
	// Parameters:
	//   - name: the name given to the resulting asset
	//   - data: GLB bytes, or glTF JSON when isGLB is false
	//   - isGLB: selects the container format
	//
	// Returns:
	//   - *model.SceneAsset: the parsed asset with a fresh ID
	//   - error: *ParseError if any stage fails
	Import(name string, data []byte, isGLB bool) (*model.SceneAsset, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - resolve: loader for external URIs, or nil for self-contained input
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(resolve uriResolver) gltfImporter {
	return &gltfImporterImpl{resolve: resolve}
}

func (imp *gltfImporterImpl) Import(name string, data []byte, isGLB bool) (*model.SceneAsset, error) {
	parser := newGLTFParser(imp.resolve)

	var err error
	if isGLB {
		err = parser.ParseGLB(data)
	} else {
		err = parser.ParseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	meshes, err := newGLTFMeshExtractor(parser).ExtractAllMeshes()
	if err != nil {
		return nil, err
	}

	images, err := newGLTFImageExtractor(parser).ExtractAllImages()
	if err != nil {
		return nil, err
	}

	return &model.SceneAsset{
		ID:     uuid.NewString(),
		Name:   name,
		Meshes: meshes,
		Images: images,
	}, nil
}
