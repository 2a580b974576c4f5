// Package graphicstest provides a fully in-memory graphics.Graphics
// implementation for tests. It records every texture creation, barrier,
// copy, and draw so tests can assert on ordering and state transitions
// without a GPU.
package graphicstest

import (
	"fmt"
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
)

// Texture is the in-memory texture. Released flips when the deferred
// reclaimer destroys it.
type Texture struct {
	desc     graphics.TextureDesc
	mu       sync.Mutex
	released bool
}

func (t *Texture) Name() string               { return t.desc.Name }
func (t *Texture) Desc() graphics.TextureDesc { return t.desc }
func (t *Texture) Width() uint32              { return t.desc.Width }
func (t *Texture) Height() uint32             { return t.desc.Height }

// Release implements graphics.Releaser.
func (t *Texture) Release() {
	t.mu.Lock()
	t.released = true
	t.mu.Unlock()
}

// Released reports whether the deferred reclaimer destroyed this texture.
func (t *Texture) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Framebuffer is the in-memory framebuffer.
type Framebuffer struct {
	desc graphics.FramebufferDesc
}

func (f *Framebuffer) Name() string                     { return f.desc.Name }
func (f *Framebuffer) Desc() graphics.FramebufferDesc   { return f.desc }
func (f *Framebuffer) DepthAttachment() graphics.Texture { return f.desc.Depth }

func (f *Framebuffer) ColorAttachment(i int) graphics.Texture {
	if i < 0 || i >= len(f.desc.Color) {
		return nil
	}
	return f.desc.Color[i]
}

// Op is one recorded command on a Recorder.
type Op struct {
	Kind string // "barrier", "begin_pass", "end_pass", "pipeline", "draw", "copy", "viewport", "scissor"

	Barrier graphics.Barrier

	Framebuffer graphics.Framebuffer
	Clear       bool

	Pipeline   string
	IndexCount uint32

	CopySrc    graphics.Texture
	CopyDst    graphics.Texture
	CopyWidth  uint32
	CopyHeight uint32

	Rect common.Rect
}

// Recorder is the in-memory command recorder.
type Recorder struct {
	name    string
	tracker *graphics.StateTracker
	Ops     []Op
	// FailFinish forces Finish to return an error, for partial-frame tests.
	FailFinish bool
	Finished   bool
}

func (r *Recorder) Name() string { return r.name }

func (r *Recorder) BeginTrackingWithState(t graphics.Texture, state graphics.ResourceState) {
	r.tracker.BeginTracking(t, state)
}

func (r *Recorder) RequireState(t graphics.Texture, state graphics.ResourceState) {
	r.tracker.Require(t, state)
}

func (r *Recorder) FlushBarriers() {
	for _, b := range r.tracker.Flush() {
		r.Ops = append(r.Ops, Op{Kind: "barrier", Barrier: b})
	}
}

func (r *Recorder) BeginRenderPass(fb graphics.Framebuffer, clear bool) {
	r.Ops = append(r.Ops, Op{Kind: "begin_pass", Framebuffer: fb, Clear: clear})
}

func (r *Recorder) SetPipeline(key string) {
	r.Ops = append(r.Ops, Op{Kind: "pipeline", Pipeline: key})
}

func (r *Recorder) SetViewport(rect common.Rect) {
	r.Ops = append(r.Ops, Op{Kind: "viewport", Rect: rect})
}

func (r *Recorder) SetScissor(rect common.Rect) {
	r.Ops = append(r.Ops, Op{Kind: "scissor", Rect: rect})
}

func (r *Recorder) DrawIndexed(indexCount uint32) {
	r.Ops = append(r.Ops, Op{Kind: "draw", IndexCount: indexCount})
}

func (r *Recorder) EndRenderPass() {
	r.Ops = append(r.Ops, Op{Kind: "end_pass"})
}

func (r *Recorder) CopyTextureRegion(src, dst graphics.Texture, width, height uint32) {
	r.Ops = append(r.Ops, Op{
		Kind: "copy", CopySrc: src, CopyDst: dst, CopyWidth: width, CopyHeight: height,
	})
}

func (r *Recorder) Finish() error {
	r.Finished = true
	if r.FailFinish {
		return fmt.Errorf("recorder %q: forced submit failure", r.name)
	}
	return nil
}

// OpsOfKind returns the recorded ops of one kind, in order.
func (r *Recorder) OpsOfKind(kind string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Backend implements graphics.Graphics in memory.
type Backend struct {
	mu        sync.Mutex
	reclaimer *graphics.DeferredReclaimer

	Textures     []*Texture
	Framebuffers []*Framebuffer
	Recorders    []*Recorder
	FlushCount   int

	// FailTextures makes CreateTexture fail, for resource-failure tests.
	FailTextures bool
}

var _ graphics.Graphics = (*Backend)(nil)

// New creates a test backend with the given frames-in-flight hold for its
// deferred reclaimer.
func New(framesInFlight int) *Backend {
	return &Backend{reclaimer: graphics.NewDeferredReclaimer(framesInFlight)}
}

func (b *Backend) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailTextures {
		return nil, fmt.Errorf("texture %q: forced creation failure", desc.Name)
	}
	t := &Texture{desc: desc}
	b.Textures = append(b.Textures, t)
	return t, nil
}

func (b *Backend) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := &Framebuffer{desc: desc}
	b.Framebuffers = append(b.Framebuffers, f)
	return f, nil
}

func (b *Backend) AcquireCommandRecorder(queueKey, name string) (graphics.CommandRecorder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &Recorder{name: name, tracker: graphics.NewStateTracker()}
	b.Recorders = append(b.Recorders, r)
	return r, nil
}

func (b *Backend) Flush() {
	b.mu.Lock()
	b.FlushCount++
	b.mu.Unlock()
}

func (b *Backend) RegisterDeferredRelease(r graphics.Resource) {
	b.reclaimer.Schedule(r)
}

func (b *Backend) Reclaimer() *graphics.DeferredReclaimer {
	return b.reclaimer
}

func (b *Backend) QueueKeyFor(role graphics.QueueRole) string {
	switch role {
	case graphics.QueueRoleCompute:
		return "compute"
	case graphics.QueueRoleCopy:
		return "copy"
	default:
		return "graphics"
	}
}

// LastRecorder returns the most recently acquired recorder, or nil.
func (b *Backend) LastRecorder() *Recorder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Recorders) == 0 {
		return nil
	}
	return b.Recorders[len(b.Recorders)-1]
}
