// Package shader holds the scene's WGSL program and the reflection the pipeline builder needs from it.
package shader

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

//go:embed assets/scene.wgsl
var sceneSource string

// DefaultKey is the key of the built-in scene shader.
const DefaultKey = "scene"

var (
	// ErrMissingEntryPoint is returned when the source has no @vertex or no @fragment function.
	ErrMissingEntryPoint = errors.New("shader: missing entry point")

	// ErrVertexInput is returned when the vertex entry point's inputs cannot be mapped to a vertex buffer layout.
	ErrVertexInput = errors.New("shader: unsupported vertex input")

	// ErrCompile is wrapped by every Validate failure.
	ErrCompile = errors.New("shader: compile failed")
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	vertexEntry                string
	fragmentEntry              string
	vertexLayout               wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
}

// Shader is a parsed WGSL render program with one vertex and one fragment entry point in the same module.
type Shader interface {
	// Key retrieves the unique identifier for this shader.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// VertexLayout returns the single vertex buffer layout reflected from the vertex entry point's inputs.
	//
	// Returns:
	//   - wgpu.VertexBufferLayout: the reflected layout
	VertexLayout() wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptors retrieves the bind group layouts the source declares, keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or "" if nothing is declared there
	BindGroupVarName(group, binding int) string

	// Validate compiles the source on the CPU with naga.
	//
	// Returns:
	//   - error: an error wrapping ErrCompile, or nil
	Validate() error
}

var _ Shader = &shader{}

// NewShader parses WGSL source into a Shader.
//
// Parameters:
//   - key: a unique identifier used as the pipeline label
//   - source: the WGSL source
//
// Returns:
//   - Shader: the parsed shader
//   - error: ErrMissingEntryPoint or ErrVertexInput
func NewShader(key, source string) (Shader, error) {
	cleaned := stripComments(source)
	entries := parseEntryPoints(cleaned)
	if len(entries["vertex"]) == 0 || len(entries["fragment"]) == 0 {
		return nil, fmt.Errorf("%w: %s needs both @vertex and @fragment", ErrMissingEntryPoint, key)
	}
	vertex := entries["vertex"][0]

	structs, ordered := parseStructBlocks(cleaned)
	layout, err := buildVertexBufferLayout(vertex, structs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVertexInput, key, err)
	}

	bindings := parseBindings(cleaned)
	varNames := make(map[int]map[int]string)
	for _, b := range bindings {
		if varNames[b.group] == nil {
			varNames[b.group] = make(map[int]string)
		}
		varNames[b.group][b.binding] = b.varName
	}

	return &shader{
		key:                        key,
		source:                     source,
		vertexEntry:                vertex.name,
		fragmentEntry:              entries["fragment"][0].name,
		vertexLayout:               layout,
		bindGroupLayoutDescriptors: buildBindGroupLayouts(bindings, entries, computeStructSizes(ordered)),
		bindingVarNames:            varNames,
	}, nil
}

// DefaultSource returns the built-in scene program: the model's VertexInput struct followed by the scene stages.
func DefaultSource() string {
	return model.TextureVertexSource + "\n" + sceneSource
}

// Default returns the built-in scene shader. It samples the base color texture at group 0 and
// reads the scene uniform at group 1.
//
// Returns:
//   - Shader: the parsed built-in shader
//   - error: a parse error, which only happens if the embedded source is broken
func Default() (Shader, error) {
	return NewShader(DefaultKey, DefaultSource())
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shader) VertexLayout() wgpu.VertexBufferLayout {
	return s.vertexLayout
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) Validate() error {
	spirv, err := naga.Compile(s.source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCompile, s.key, err)
	}
	if len(spirv) == 0 {
		return fmt.Errorf("%w: %s: empty SPIR-V output", ErrCompile, s.key)
	}
	return nil
}
