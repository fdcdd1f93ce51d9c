// Package gputest provides a recording gpu.Backend for tests that run without a GPU.
package gputest

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resource kinds recorded by the fake.
const (
	KindBuffer          = "buffer"
	KindTexture         = "texture"
	KindTextureView     = "texture_view"
	KindDepthTexture    = "depth_texture"
	KindSampler         = "sampler"
	KindBindGroupLayout = "bind_group_layout"
	KindBindGroup       = "bind_group"
	KindPipeline        = "pipeline"
)

// Ops passed to Backend.Fail.
const (
	OpCreateBuffer          = "create_buffer"
	OpWriteBuffer           = "write_buffer"
	OpCreateTexture         = "create_texture"
	OpCreateDepthTexture    = "create_depth_texture"
	OpCreateSampler         = "create_sampler"
	OpCreateBindGroupLayout = "create_bind_group_layout"
	OpCreateBindGroup       = "create_bind_group"
	OpCreateRenderPipeline  = "create_render_pipeline"
	OpConfigureSurface      = "configure_surface"
	OpBeginRenderPass       = "begin_render_pass"
	OpSubmit                = "submit"
)

// ErrInjected is the cause used by FailNextAcquire when no error is given.
var ErrInjected = errors.New("injected failure")

// Resource is a fake GPU object. It satisfies gpu.Handle.
type Resource struct {
	ID       int
	Kind     string
	Label    string
	Usage    wgpu.BufferUsage
	Data     []byte
	Width    uint32
	Height   uint32
	Entries  []gpu.BindGroupEntry
	Layout   *wgpu.BindGroupLayoutDescriptor
	Pipeline *gpu.RenderPipelineDescriptor

	// Released counts Release calls; anything other than 0 or 1 is a bug in the caller.
	Released int
}

// Release marks the resource released.
func (r *Resource) Release() {
	r.Released++
}

// Command is one recorded render pass call.
type Command struct {
	Op     string
	Handle gpu.Handle
	Index  uint32
	Format wgpu.IndexFormat
	Count  uint32
}

// Render pass command names.
const (
	CmdSetPipeline     = "set_pipeline"
	CmdSetBindGroup    = "set_bind_group"
	CmdSetVertexBuffer = "set_vertex_buffer"
	CmdSetIndexBuffer  = "set_index_buffer"
	CmdDrawIndexed     = "draw_indexed"
)

// Submission is what one frame submitted: its pass, its commands and a snapshot of every live
// buffer's contents at submit time.
type Submission struct {
	Pass     gpu.RenderPassDescriptor
	Commands []Command
	Buffers  map[*Resource][]byte
}

// BufferData returns the snapshot of a buffer taken at submit time.
//
// Parameters:
//   - h: a buffer created by the fake
//
// Returns:
//   - []byte: the contents, or nil if h is not a recorded buffer
func (s Submission) BufferData(h gpu.Handle) []byte {
	r, ok := h.(*Resource)
	if !ok {
		return nil
	}
	return s.Buffers[r]
}

// Draws returns the draw commands of the submission in order.
func (s Submission) Draws() []Command {
	var draws []Command
	for _, c := range s.Commands {
		if c.Op == CmdDrawIndexed {
			draws = append(draws, c)
		}
	}
	return draws
}

// Backend is a recording gpu.Backend.
type Backend struct {
	// Format is returned by SurfaceFormat.
	Format wgpu.TextureFormat

	// Fail is consulted before every operation; a non-nil result is returned as a *gpu.DeviceError.
	Fail func(op, label string) error

	Configured  []gpu.SurfaceConfig
	Resources   []*Resource
	Submissions []Submission
	Presented   int
	Acquired    int
	Released    bool

	failAcquire []error
	frameHeld   bool
}

var _ gpu.Backend = &Backend{}

// NewBackend returns an empty recording backend with a BGRA8 sRGB surface.
func NewBackend() *Backend {
	return &Backend{Format: wgpu.TextureFormatBGRA8UnormSrgb}
}

// FailNextAcquire makes the next AcquireFrame call fail with a *gpu.SurfaceError.
//
// Parameters:
//   - err: the cause; nil uses ErrInjected
func (b *Backend) FailNextAcquire(err error) {
	if err == nil {
		err = ErrInjected
	}
	b.failAcquire = append(b.failAcquire, err)
}

// Live returns the resources of a kind that have not been released.
//
// Parameters:
//   - kind: one of the Kind constants, or "" for all kinds
//
// Returns:
//   - []*Resource: the live resources in creation order
func (b *Backend) Live(kind string) []*Resource {
	var live []*Resource
	for _, r := range b.Resources {
		if r.Released == 0 && (kind == "" || r.Kind == kind) {
			live = append(live, r)
		}
	}
	return live
}

// Created returns every resource of a kind, released or not.
func (b *Backend) Created(kind string) []*Resource {
	var out []*Resource
	for _, r := range b.Resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// LastSubmission returns the most recent submission.
func (b *Backend) LastSubmission() (Submission, bool) {
	if len(b.Submissions) == 0 {
		return Submission{}, false
	}
	return b.Submissions[len(b.Submissions)-1], true
}

func (b *Backend) SurfaceFormat() wgpu.TextureFormat {
	return b.Format
}

func (b *Backend) ConfigureSurface(cfg gpu.SurfaceConfig) error {
	if err := b.check(OpConfigureSurface, ""); err != nil {
		return err
	}
	b.Configured = append(b.Configured, cfg.Clamped())
	return nil
}

func (b *Backend) CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (gpu.Handle, error) {
	if err := b.check(OpCreateBuffer, label); err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, &gpu.DeviceError{Op: OpCreateBuffer, Err: errors.New("empty contents")}
	}
	return b.add(&Resource{Kind: KindBuffer, Label: label, Usage: usage, Data: append([]byte(nil), contents...)}), nil
}

func (b *Backend) WriteBuffer(buffer gpu.Handle, offset uint64, data []byte) error {
	if err := b.check(OpWriteBuffer, ""); err != nil {
		return err
	}
	r, ok := buffer.(*Resource)
	if !ok || r.Kind != KindBuffer {
		return &gpu.DeviceError{Op: OpWriteBuffer, Err: fmt.Errorf("not a buffer: %T", buffer)}
	}
	end := offset + uint64(len(data))
	if end > uint64(len(r.Data)) {
		return &gpu.DeviceError{Op: OpWriteBuffer, Err: fmt.Errorf("write of %d bytes at %d overruns %d byte buffer %q", len(data), offset, len(r.Data), r.Label)}
	}
	copy(r.Data[offset:end], data)
	return nil
}

func (b *Backend) CreateTexture(data common.TextureStagingData) (gpu.Handle, gpu.Handle, error) {
	if err := b.check(OpCreateTexture, data.Label); err != nil {
		return nil, nil, err
	}
	if !data.Validate() {
		return nil, nil, &gpu.DeviceError{Op: OpCreateTexture, Err: errors.New("pixel length mismatch")}
	}
	tex := b.add(&Resource{Kind: KindTexture, Label: data.Label, Width: data.Width, Height: data.Height, Data: append([]byte(nil), data.Pixels...)})
	view := b.add(&Resource{Kind: KindTextureView, Label: data.Label, Width: data.Width, Height: data.Height})
	return tex, view, nil
}

func (b *Backend) CreateDepthTexture(label string, width, height uint32) (gpu.Handle, gpu.Handle, error) {
	if err := b.check(OpCreateDepthTexture, label); err != nil {
		return nil, nil, err
	}
	w, h := common.AtLeast(width, 1), common.AtLeast(height, 1)
	tex := b.add(&Resource{Kind: KindDepthTexture, Label: label, Width: w, Height: h})
	view := b.add(&Resource{Kind: KindTextureView, Label: label, Width: w, Height: h})
	return tex, view, nil
}

func (b *Backend) CreateSampler(data common.SamplerStagingData) (gpu.Handle, error) {
	if err := b.check(OpCreateSampler, data.Label); err != nil {
		return nil, err
	}
	return b.add(&Resource{Kind: KindSampler, Label: data.Label}), nil
}

func (b *Backend) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (gpu.Handle, error) {
	if err := b.check(OpCreateBindGroupLayout, desc.Label); err != nil {
		return nil, err
	}
	return b.add(&Resource{Kind: KindBindGroupLayout, Label: desc.Label, Layout: desc}), nil
}

func (b *Backend) CreateBindGroup(label string, layout gpu.Handle, entries []gpu.BindGroupEntry) (gpu.Handle, error) {
	if err := b.check(OpCreateBindGroup, label); err != nil {
		return nil, err
	}
	l, ok := layout.(*Resource)
	if !ok || l.Kind != KindBindGroupLayout {
		return nil, &gpu.DeviceError{Op: OpCreateBindGroup, Err: fmt.Errorf("not a layout: %T", layout)}
	}
	if len(l.Layout.Entries) != len(entries) {
		return nil, &gpu.DeviceError{Op: OpCreateBindGroup, Err: fmt.Errorf("layout %q has %d entries, got %d", l.Label, len(l.Layout.Entries), len(entries))}
	}
	return b.add(&Resource{Kind: KindBindGroup, Label: label, Entries: append([]gpu.BindGroupEntry(nil), entries...)}), nil
}

func (b *Backend) CreateRenderPipeline(desc gpu.RenderPipelineDescriptor) (gpu.Handle, error) {
	if err := b.check(OpCreateRenderPipeline, desc.Label); err != nil {
		return nil, err
	}
	return b.add(&Resource{Kind: KindPipeline, Label: desc.Label, Pipeline: &desc}), nil
}

func (b *Backend) AcquireFrame() (gpu.Frame, error) {
	if len(b.failAcquire) > 0 {
		err := b.failAcquire[0]
		b.failAcquire = b.failAcquire[1:]
		return nil, &gpu.SurfaceError{Err: err}
	}
	if b.frameHeld {
		return nil, &gpu.SurfaceError{Err: errors.New("previous frame not released")}
	}
	b.frameHeld = true
	b.Acquired++
	return &frame{b: b}, nil
}

func (b *Backend) Release() {
	b.Released = true
}

func (b *Backend) check(op, label string) error {
	if b.Fail == nil {
		return nil
	}
	if err := b.Fail(op, label); err != nil {
		return &gpu.DeviceError{Op: op, Err: err}
	}
	return nil
}

func (b *Backend) add(r *Resource) *Resource {
	r.ID = len(b.Resources)
	b.Resources = append(b.Resources, r)
	return r
}

type frame struct {
	b         *Backend
	pass      *renderPass
	submitted bool
	released  bool
}

func (f *frame) BeginRenderPass(desc gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if err := f.b.check(OpBeginRenderPass, ""); err != nil {
		return nil, err
	}
	f.pass = &renderPass{desc: desc}
	return f.pass, nil
}

func (f *frame) Submit() error {
	if err := f.b.check(OpSubmit, ""); err != nil {
		return err
	}
	if f.pass == nil || !f.pass.ended {
		return &gpu.DeviceError{Op: OpSubmit, Err: errors.New("render pass not ended")}
	}
	snapshot := make(map[*Resource][]byte)
	for _, r := range f.b.Resources {
		if r.Kind == KindBuffer && r.Released == 0 {
			snapshot[r] = append([]byte(nil), r.Data...)
		}
	}
	f.b.Submissions = append(f.b.Submissions, Submission{
		Pass:     f.pass.desc,
		Commands: f.pass.commands,
		Buffers:  snapshot,
	})
	f.submitted = true
	return nil
}

func (f *frame) Present() {
	if f.submitted {
		f.b.Presented++
	}
}

func (f *frame) Release() {
	if f.released {
		return
	}
	f.released = true
	f.b.frameHeld = false
}

type renderPass struct {
	desc     gpu.RenderPassDescriptor
	commands []Command
	ended    bool
}

func (p *renderPass) SetPipeline(pipeline gpu.Handle) {
	p.commands = append(p.commands, Command{Op: CmdSetPipeline, Handle: pipeline})
}

func (p *renderPass) SetBindGroup(group uint32, bindGroup gpu.Handle) {
	p.commands = append(p.commands, Command{Op: CmdSetBindGroup, Handle: bindGroup, Index: group})
}

func (p *renderPass) SetVertexBuffer(slot uint32, buffer gpu.Handle) {
	p.commands = append(p.commands, Command{Op: CmdSetVertexBuffer, Handle: buffer, Index: slot})
}

func (p *renderPass) SetIndexBuffer(buffer gpu.Handle, format wgpu.IndexFormat) {
	p.commands = append(p.commands, Command{Op: CmdSetIndexBuffer, Handle: buffer, Format: format})
}

func (p *renderPass) DrawIndexed(indexCount uint32) {
	p.commands = append(p.commands, Command{Op: CmdDrawIndexed, Count: indexCount})
}

func (p *renderPass) End() error {
	p.ended = true
	return nil
}
