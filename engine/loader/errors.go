package loader

import (
	"errors"
	"fmt"
)

// Parse error kinds. Every error returned by Parse wraps exactly one of these,
// so callers can match with errors.Is.
var (
	// ErrMalformed reports a structurally invalid container, out-of-range reference, or undecodable image.
	ErrMalformed = errors.New("malformed asset")

	// ErrMissingAttribute reports a primitive without POSITION, TEXCOORD_0 or an indices accessor.
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrUnsupportedIndexType reports an index accessor whose component type is neither u16 nor u32.
	ErrUnsupportedIndexType = errors.New("unsupported index component type")

	// ErrAttributeCountMismatch reports a primitive whose position and texcoord counts differ.
	ErrAttributeCountMismatch = errors.New("attribute count mismatch")

	// ErrIndexOutOfRange reports an index that does not reference an existing vertex.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ParseError describes why an asset failed to load and where.
type ParseError struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Mesh is the mesh index the error occurred in, or -1 for container-level errors.
	Mesh int

	// Primitive is the primitive index within Mesh, or -1 for container-level errors.
	Primitive int

	// Detail is a human-readable description of the failure.
	Detail string
}

func (e *ParseError) Error() string {
	if e.Mesh < 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v: mesh %d primitive %d: %s", e.Kind, e.Mesh, e.Primitive, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// containerErr builds a container-level ParseError.
func containerErr(kind error, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Mesh: -1, Primitive: -1, Detail: fmt.Sprintf(format, args...)}
}

// primitiveErr scopes err to one primitive. A *ParseError keeps its kind and detail,
// anything else becomes ErrMalformed.
func primitiveErr(mesh, prim int, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return &ParseError{Kind: pe.Kind, Mesh: mesh, Primitive: prim, Detail: pe.Detail}
	}
	return &ParseError{Kind: ErrMalformed, Mesh: mesh, Primitive: prim, Detail: err.Error()}
}
