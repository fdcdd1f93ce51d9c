package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// uriResolver loads the bytes behind an external (non data:) URI.
// A nil resolver means external URIs cannot be loaded.
type uriResolver func(uri string) ([]byte, error)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document  *gltfDocument
	binChunks [][]byte
	resolve   uriResolver
}

// gltfParser defines the interface for decoding glTF/GLB containers and reading typed accessor data.
// All errors it returns are container-level *ParseError values.
// This is internal to the loader package.
type gltfParser interface {
	// ParseGLB decodes a GLB container: header, JSON chunk and BIN chunks.
	//
	// Parameters:
	//   - data: the complete GLB byte stream
	//
	// Returns:
	//   - error: *ParseError if the container is invalid
	ParseGLB(data []byte) error

	// ParseJSON decodes a .gltf JSON document whose buffers are data URIs or external files.
	//
	// Parameters:
	//   - data: the JSON document
	//
	// Returns:
	//   - error: *ParseError if the document is invalid
	ParseJSON(data []byte) error

	// Document returns the parsed glTF document.
	// Returns nil if parsing has not succeeded.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// ReadURI returns the bytes behind a data URI or, through the resolver, an external URI.
	//
	// Parameters:
	//   - uri: the buffer or image URI
	//
	// Returns:
	//   - []byte: the referenced bytes
	//   - string: the MIME type declared by a data URI, or ""
	//   - error: error if the URI cannot be decoded or resolved
	ReadURI(uri string) ([]byte, string, error)

	// ReadBufferView returns the bytes covered by a bufferView.
	//
	// Parameters:
	//   - viewIndex: the index of the bufferView
	//
	// Returns:
	//   - []byte: a slice into the owning buffer
	//   - error: *ParseError if the view or its range is invalid
	ReadBufferView(viewIndex int) ([]byte, error)

	// ReadAccessorData reads the raw bytes of an accessor, honouring byteStride, packed tightly.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []byte: count*elementSize bytes
	//   - error: *ParseError if the accessor chain is missing or out of bounds
	ReadAccessorData(accessorIndex int) ([]byte, error)

	// ReadVec2Accessor reads an accessor as VEC2 FLOAT data.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][2]float32: the vec2 data
	//   - error: *ParseError if reading fails
	ReadVec2Accessor(accessorIndex int) ([][2]float32, error)

	// ReadVec3Accessor reads an accessor as VEC3 FLOAT data.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: the vec3 data
	//   - error: *ParseError if reading fails
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadIndicesAccessor reads a SCALAR index accessor, widening UNSIGNED_SHORT to uint32.
	// UNSIGNED_BYTE and every other component type are rejected with ErrUnsupportedIndexType.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the index data
	//   - error: *ParseError if reading fails
	ReadIndicesAccessor(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Parameters:
//   - resolve: loader for external URIs, or nil
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser(resolve uriResolver) gltfParser {
	return &gltfParserImpl{resolve: resolve}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

// ParseGLB follows the GLB layout:
// https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) ParseGLB(data []byte) error {
	if len(data) < 12 {
		return containerErr(ErrMalformed, "GLB header needs 12 bytes, got %d", len(data))
	}

	var header gltfGLBHeader
	if err := binary.Read(bytes.NewReader(data[:12]), binary.LittleEndian, &header); err != nil {
		return containerErr(ErrMalformed, "failed to read GLB header: %v", err)
	}
	if header.Magic != gltfGLBMagic {
		return containerErr(ErrMalformed, "invalid GLB magic 0x%08X", header.Magic)
	}
	if header.Version != gltfGLBVersion {
		return containerErr(ErrMalformed, "invalid GLB version %d: must be 2", header.Version)
	}
	if uint64(header.Length) > uint64(len(data)) {
		return containerErr(ErrMalformed, "GLB declares %d bytes but only %d are present", header.Length, len(data))
	}
	data = data[:header.Length]

	var jsonData []byte
	p.binChunks = nil
	offset := 12
	for first := true; offset < len(data); first = false {
		if len(data)-offset < 8 {
			return containerErr(ErrMalformed, "truncated chunk header at offset %d", offset)
		}
		var chunk gltfGLBChunkHeader
		if err := binary.Read(bytes.NewReader(data[offset:offset+8]), binary.LittleEndian, &chunk); err != nil {
			return containerErr(ErrMalformed, "failed to read chunk header: %v", err)
		}
		offset += 8

		if uint64(chunk.ChunkLength) > uint64(len(data)-offset) {
			return containerErr(ErrMalformed, "chunk at offset %d overruns the container (%d bytes)", offset-8, chunk.ChunkLength)
		}
		body := data[offset : offset+int(chunk.ChunkLength)]
		offset += int(chunk.ChunkLength)

		if first && chunk.ChunkType != gltfGLBChunkJSON {
			return containerErr(ErrMalformed, "first chunk must be JSON, got type 0x%08X", chunk.ChunkType)
		}

		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			if jsonData == nil {
				jsonData = body
			}
		case gltfGLBChunkBIN:
			p.binChunks = append(p.binChunks, body)
		}
	}

	if jsonData == nil {
		return containerErr(ErrMalformed, "GLB contains no chunks")
	}
	return p.ParseJSON(jsonData)
}

func (p *gltfParserImpl) ParseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return containerErr(ErrMalformed, "failed to parse glTF JSON: %v", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return containerErr(ErrMalformed, "invalid glTF version %q: must be 2.x", doc.Asset.Version)
	}
	if len(doc.ExtensionsRequired) > 0 {
		return containerErr(ErrMalformed, "required extensions are not supported: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}

	if err := p.loadBuffers(&doc); err != nil {
		return err
	}

	p.document = &doc
	return nil
}

// loadBuffers fills every buffer's Data. URI-less buffers take the GLB BIN chunks in order.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	nextChunk := 0
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if nextChunk >= len(p.binChunks) {
				return containerErr(ErrMalformed, "buffer %d has no URI and no BIN chunk left", i)
			}
			buf.Data = p.binChunks[nextChunk]
			nextChunk++
		} else {
			data, _, err := p.ReadURI(buf.URI)
			if err != nil {
				return containerErr(ErrMalformed, "buffer %d: %v", i, err)
			}
			buf.Data = data
		}

		if buf.ByteLength < 0 || len(buf.Data) < buf.ByteLength {
			return containerErr(ErrMalformed, "buffer %d: declared %d bytes, have %d", i, buf.ByteLength, len(buf.Data))
		}
	}
	return nil
}

func (p *gltfParserImpl) ReadURI(uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, "data:") {
		return gltfDecodeDataURI(uri)
	}
	if p.resolve == nil {
		return nil, "", fmt.Errorf("external URI %q cannot be resolved from memory", uri)
	}
	data, err := p.resolve(uri)
	return data, "", err
}

// --- Accessor Data Reading ---

func (p *gltfParserImpl) ReadBufferView(viewIndex int) ([]byte, error) {
	doc := p.document
	if viewIndex < 0 || viewIndex >= len(doc.BufferViews) {
		return nil, containerErr(ErrMalformed, "bufferView %d out of range", viewIndex)
	}
	bv := &doc.BufferViews[viewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, containerErr(ErrMalformed, "bufferView %d references missing buffer %d", viewIndex, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data
	// Compare against the remaining length so hostile offsets cannot overflow the sum.
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset > len(data) || bv.ByteLength > len(data)-bv.ByteOffset {
		return nil, containerErr(ErrMalformed, "bufferView %d exceeds buffer bounds: offset=%d length=%d bufSize=%d",
			viewIndex, bv.ByteOffset, bv.ByteLength, len(data))
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

func (p *gltfParserImpl) ReadAccessorData(accessorIndex int) ([]byte, error) {
	doc := p.document
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, containerErr(ErrMissingAttribute, "accessor %d does not exist", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]

	if acc.Sparse != nil {
		return nil, containerErr(ErrMalformed, "accessor %d is sparse", accessorIndex)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, containerErr(ErrMissingAttribute, "accessor %d has no bufferView", accessorIndex)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, containerErr(ErrMissingAttribute, "accessor %d references missing buffer %d", accessorIndex, bv.Buffer)
	}
	view, err := p.ReadBufferView(*acc.BufferView)
	if err != nil {
		return nil, err
	}

	elementSize := gltfComponentTypeSize(acc.ComponentType) * gltfAccessorTypeComponentCount(acc.Type)
	// glTF requires count >= 1.
	if elementSize == 0 || acc.Count < 1 || acc.ByteOffset < 0 {
		return nil, containerErr(ErrMalformed, "accessor %d: invalid type %s/%d or count %d", accessorIndex, acc.Type, acc.ComponentType, acc.Count)
	}

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	// Bound offset and count before any arithmetic on them.
	if acc.ByteOffset > len(view)-elementSize || acc.Count > (len(view)-acc.ByteOffset-elementSize)/stride+1 {
		return nil, containerErr(ErrMalformed, "accessor %d: offset %d and count %d read past the end of bufferView %d (%d bytes)",
			accessorIndex, acc.ByteOffset, acc.Count, *acc.BufferView, len(view))
	}

	result := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		src := acc.ByteOffset + i*stride
		copy(result[i*elementSize:(i+1)*elementSize], view[src:src+elementSize])
	}
	return result, nil
}

// readFloatAccessor checks the accessor's shape and decodes it into the slice returned by alloc.
func (p *gltfParserImpl) readFloatAccessor(accessorIndex int, wantType string, alloc func(n int) any) (any, error) {
	doc := p.document
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, containerErr(ErrMissingAttribute, "accessor %d does not exist", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != wantType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, containerErr(ErrMalformed, "accessor %d is not %s FLOAT: type=%s, componentType=%d",
			accessorIndex, wantType, acc.Type, acc.ComponentType)
	}

	data, err := p.ReadAccessorData(accessorIndex)
	if err != nil {
		return nil, err
	}

	out := alloc(acc.Count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return nil, containerErr(ErrMalformed, "accessor %d: %v", accessorIndex, err)
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec2Accessor(accessorIndex int) ([][2]float32, error) {
	out, err := p.readFloatAccessor(accessorIndex, gltfAccessorTypeVec2, func(n int) any { return make([][2]float32, n) })
	if err != nil {
		return nil, err
	}
	return out.([][2]float32), nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	out, err := p.readFloatAccessor(accessorIndex, gltfAccessorTypeVec3, func(n int) any { return make([][3]float32, n) })
	if err != nil {
		return nil, err
	}
	return out.([][3]float32), nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, error) {
	doc := p.document
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, containerErr(ErrMissingAttribute, "indices accessor %d does not exist", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != gltfAccessorTypeScalar {
		return nil, containerErr(ErrMalformed, "index accessor is not SCALAR: type=%s", acc.Type)
	}
	if acc.ComponentType != gltfComponentTypeUnsignedShort && acc.ComponentType != gltfComponentTypeUnsignedInt {
		return nil, containerErr(ErrUnsupportedIndexType, "component type %d", acc.ComponentType)
	}

	data, err := p.ReadAccessorData(accessorIndex)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedShort:
		for i := range result {
			result[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case gltfComponentTypeUnsignedInt:
		for i := range result {
			result[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	}
	return result, nil
}

// --- Helper Functions ---

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and extracts the MIME type.
// Format: data:[<mediatype>][;base64],<data>
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	commaIdx := strings.Index(uri, ",")
	if !strings.HasPrefix(uri, "data:") || commaIdx < 0 {
		return nil, "", errors.New("malformed data URI")
	}

	header := uri[5:commaIdx]
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, strings.TrimSuffix(header, ";base64"), nil
}

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
