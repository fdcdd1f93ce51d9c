package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct member or parameter: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	// entryRegex matches an annotated entry point and captures the stage, the name and the parameter list
	entryRegex = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{]*?\bfn\s+(\w+)\s*\(((?:[^()]|\([^()]*\))*)\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(1) @binding(0) var<uniform> scene: SceneUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseStructBlocks finds all struct { ... } blocks in comment-free WGSL source.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - map[string]parsedStruct: the structs keyed by name
//   - []parsedStruct: the same structs in declaration order
func parseStructBlocks(source string) (map[string]parsedStruct, []parsedStruct) {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	byName := make(map[string]parsedStruct, len(matches))
	ordered := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		ps := parsedStruct{name: match[1], fields: parseFields(match[2])}
		byName[ps.name] = ps
		ordered = append(ordered, ps)
	}
	return byName, ordered
}

// parseFields parses a comma separated member or parameter list.
func parseFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if loc := locationRegex.FindStringSubmatch(part); loc != nil {
			field.location, _ = strconv.Atoi(loc[1])
		}
		fields = append(fields, field)
	}
	return fields
}

// parseEntryPoints finds every @vertex, @fragment and @compute function.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - map[string][]parsedFunction: the entry points keyed by stage name
func parseEntryPoints(source string) map[string][]parsedFunction {
	result := make(map[string][]parsedFunction)
	for _, loc := range entryRegex.FindAllStringSubmatchIndex(source, -1) {
		stage := source[loc[2]:loc[3]]
		fn := parsedFunction{
			name:   source[loc[4]:loc[5]],
			params: parseFields(source[loc[6]:loc[7]]),
			body:   functionBody(source, loc[1]),
		}
		result[stage] = append(result[stage], fn)
	}
	return result
}

// functionBody returns the brace-balanced body that starts at the first '{' at or after from.
func functionBody(source string, from int) string {
	open := strings.IndexByte(source[from:], '{')
	if open < 0 {
		return ""
	}
	start := from + open
	depth := 0
	for i := start; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return source[start+1 : i]
			}
		}
	}
	return source[start+1:]
}

// buildVertexBufferLayout flattens the @location inputs of a vertex entry point into one tightly packed,
// per-vertex buffer layout. Struct parameters contribute their members in declaration order.
//
// Parameters:
//   - fn: the vertex entry point
//   - structs: the structs declared in the source
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout
//   - error: error if an input has no vertex format
func buildVertexBufferLayout(fn parsedFunction, structs map[string]parsedStruct) (wgpu.VertexBufferLayout, error) {
	var inputs []parsedField
	for _, p := range fn.params {
		if ps, ok := structs[p.typeName]; ok {
			for _, f := range ps.fields {
				if !f.isBuiltin && f.location >= 0 {
					inputs = append(inputs, f)
				}
			}
			continue
		}
		if !p.isBuiltin && p.location >= 0 {
			inputs = append(inputs, p)
		}
	}

	attrs := make([]wgpu.VertexAttribute, 0, len(inputs))
	var offset uint64
	for _, f := range inputs {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex input %s: unsupported type %s", f.name, f.typeName)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

// parseBindings extracts every resource declaration in source order.
func parseBindings(source string) []parsedBinding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	bindings := make([]parsedBinding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		bindings = append(bindings, parsedBinding{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			varName:      m[4],
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return bindings
}

// buildBindGroupLayouts converts resource declarations into layout descriptors keyed by group index.
// A resource is visible to the stages whose entry point bodies reference it; a resource referenced by no
// entry body directly (for example only through a helper function) is visible to both render stages.
//
// Parameters:
//   - bindings: the parsed declarations
//   - entries: the parsed entry points
//   - structLayouts: the computed struct layouts used for MinBindingSize
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors with entries sorted by binding
func buildBindGroupLayouts(bindings []parsedBinding, entries map[string][]parsedFunction, structLayouts map[string]wgslTypeLayout) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		entry := classifyResource(uint32(b.binding), resourceVisibility(b.varName, entries), b.addressSpace, b.typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(b.typeName, structLayouts); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[b.group] = append(groups[b.group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, es := range groups {
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return result
}

func resourceVisibility(varName string, entries map[string][]parsedFunction) wgpu.ShaderStage {
	ref := regexp.MustCompile(`\b` + regexp.QuoteMeta(varName) + `\b`)
	var visibility wgpu.ShaderStage
	for stage, fns := range entries {
		for _, fn := range fns {
			if !ref.MatchString(fn.body) {
				continue
			}
			switch stage {
			case "vertex":
				visibility |= wgpu.ShaderStageVertex
			case "fragment":
				visibility |= wgpu.ShaderStageFragment
			case "compute":
				visibility |= wgpu.ShaderStageCompute
			}
		}
	}
	if visibility == wgpu.ShaderStageNone {
		visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	}
	return visibility
}

// classifyResource creates a layout entry from a resource declaration's address space and type.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = textureViewDimension(typeName)
	case strings.HasPrefix(typeName, "texture_"):
		base, param, _ := strings.Cut(typeName, "<")
		entry.Texture.ViewDimension = textureViewDimension(base)
		switch strings.TrimSuffix(strings.TrimSpace(param), ">") {
		case "i32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		case "u32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return entry
}

func textureViewDimension(base string) wgpu.TextureViewDimension {
	switch {
	case strings.HasSuffix(base, "cube_array"):
		return wgpu.TextureViewDimensionCubeArray
	case strings.HasSuffix(base, "cube"):
		return wgpu.TextureViewDimensionCube
	case strings.HasSuffix(base, "2d_array"):
		return wgpu.TextureViewDimension2DArray
	case strings.HasSuffix(base, "3d"):
		return wgpu.TextureViewDimension3D
	case strings.HasSuffix(base, "1d"):
		return wgpu.TextureViewDimension1D
	default:
		return wgpu.TextureViewDimension2D
	}
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets or parentheses,
// so array<T, N> and @builtin(x) survive intact.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and (nested) block comments from WGSL source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
