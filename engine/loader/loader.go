// Package loader turns GLB/glTF scene containers into model.SceneAsset values.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/engine/logger"
	"github.com/Carmen-Shannon/oxy-view/engine/model"

	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned by LoadFile for extensions other than .glb and .gltf.
var ErrUnsupportedFormat = errors.New("unsupported asset format")

// Parse decodes an in-memory GLB container into a SceneAsset.
// It performs no I/O: buffers and images must be embedded in the container or be data URIs.
//
// Parameters:
//   - data: the complete GLB byte stream
//
// Returns:
//   - *model.SceneAsset: the parsed asset
//   - error: *ParseError describing the first failure
func Parse(data []byte) (*model.SceneAsset, error) {
	return newGLTFImporter(nil).Import("", data, true)
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	assetCache map[string]*model.SceneAsset

	log *zap.Logger
}

// Loader defines the public-facing interface for loading and caching scene assets.
type Loader interface {
	// LoadFile reads a .glb or .gltf file and caches the result by path.
	// External buffer and image URIs are resolved relative to the file's directory.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - *model.SceneAsset: the loaded (or cached) asset
	//   - error: ErrUnsupportedFormat, an I/O error, or *ParseError
	LoadFile(path string) (*model.SceneAsset, error)

	// LoadReader reads a self-contained container from r and caches it under name.
	//
	// Parameters:
	//   - name: the cache key and asset name
	//   - r: the reader providing the container bytes
	//   - isGLB: true for GLB, false for glTF JSON with data URIs
	//
	// Returns:
	//   - *model.SceneAsset: the loaded (or cached) asset
	//   - error: an I/O error or *ParseError
	LoadReader(name string, r io.Reader, isGLB bool) (*model.SceneAsset, error)

	// Get retrieves a cached asset by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.SceneAsset: the cached asset or nil
	Get(name string) *model.SceneAsset

	// Assets returns a copy of the asset cache.
	//
	// Returns:
	//   - map[string]*model.SceneAsset: all cached assets keyed by name
	Assets() map[string]*model.SceneAsset
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader instance
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		assetCache: make(map[string]*model.SceneAsset),
		log:        logger.Named("loader"),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadFile(path string) (*model.SceneAsset, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".glb" && ext != ".gltf" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	isGLB := ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	asset, err := newGLTFImporter(fileResolver(filepath.Dir(path))).Import(name, data, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.store(path, asset)
	return asset, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*model.SceneAsset, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	asset, err := newGLTFImporter(nil).Import(name, data, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.store(name, asset)
	return asset, nil
}

func (l *loader) Get(name string) *model.SceneAsset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.assetCache[name]
}

func (l *loader) Assets() map[string]*model.SceneAsset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*model.SceneAsset, len(l.assetCache))
	for k, v := range l.assetCache {
		result[k] = v
	}
	return result
}

func (l *loader) store(key string, asset *model.SceneAsset) {
	l.mu.Lock()
	l.assetCache[key] = asset
	l.mu.Unlock()

	l.log.Info("asset loaded",
		zap.String("key", key),
		zap.String("id", asset.ID),
		zap.Int("meshes", len(asset.Meshes)),
		zap.Int("images", len(asset.Images)),
		zap.Int("vertices", asset.VertexCount()),
		zap.Int("indices", asset.IndexCount()),
	)
}

// fileResolver resolves relative, percent-encoded URIs against baseDir.
func fileResolver(baseDir string) uriResolver {
	return func(uri string) ([]byte, error) {
		rel, err := url.PathUnescape(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid uri %q: %w", uri, err)
		}
		data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to load %q: %w", uri, err)
		}
		return data, nil
	}
}
