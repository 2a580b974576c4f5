// Package surface models platform rendering targets (swapchains) and the
// registry that stages their registration, destruction, and resizing across
// frame boundaries.
package surface

import (
	"fmt"
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
)

// DefaultFramesInFlight is the backbuffer count used when a surface is
// created without an explicit override.
const DefaultFramesInFlight = 3

// Surface is one platform rendering target with N backbuffers
// (N = frames-in-flight). Identity is the 16-byte key; the struct pointer is
// only valid within a frame. Resize is staged: producers mark the request
// from any thread, the engine thread applies it at the next frame start.
type Surface struct {
	mu sync.Mutex

	key  common.Key
	name string
	gfx  graphics.Graphics

	width  uint32
	height uint32

	backbuffers []graphics.Texture
	current     int

	resizeRequested bool
	pendingWidth    uint32
	pendingHeight   uint32
}

// SurfaceOption configures a Surface at construction.
type SurfaceOption func(*Surface)

// WithFramesInFlight overrides the backbuffer count.
//
// Parameters:
//   - n: the number of backbuffers (minimum 1)
//
// Returns:
//   - SurfaceOption: a function that applies the override
func WithFramesInFlight(n int) SurfaceOption {
	return func(s *Surface) {
		if n < 1 {
			n = 1
		}
		s.backbuffers = make([]graphics.Texture, n)
	}
}

// New creates a surface and its backbuffer textures.
//
// Parameters:
//   - gfx: the graphics backend (must not be nil)
//   - key: the host-assigned 16-byte identity
//   - name: debug name
//   - width, height: initial size in pixels
//   - options: construction overrides
//
// Returns:
//   - *Surface: the surface
//   - error: backbuffer creation failure
func New(gfx graphics.Graphics, key common.Key, name string, width, height uint32, options ...SurfaceOption) (*Surface, error) {
	if gfx == nil {
		panic("surface: New requires a non-nil graphics backend")
	}
	s := &Surface{
		key:         key,
		name:        name,
		gfx:         gfx,
		width:       width,
		height:      height,
		backbuffers: make([]graphics.Texture, DefaultFramesInFlight),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.createBackbuffers(); err != nil {
		return nil, err
	}
	return s, nil
}

// createBackbuffers fills the backbuffer slice for the current size. Caller
// must not hold the lock during the first call; subsequent calls come from
// Resize which holds it.
func (s *Surface) createBackbuffers() error {
	for i := range s.backbuffers {
		t, err := s.gfx.CreateTexture(graphics.TextureDesc{
			Name:         fmt.Sprintf("%s/backbuffer[%d]", s.name, i),
			Width:        s.width,
			Height:       s.height,
			Format:       graphics.FormatBGRA8Unorm,
			RenderTarget: true,
			InitialState: graphics.StatePresent,
		})
		if err != nil {
			return fmt.Errorf("surface %q: create backbuffer %d: %w", s.name, i, err)
		}
		s.backbuffers[i] = t
	}
	return nil
}

// Key returns the surface's 16-byte identity.
func (s *Surface) Key() common.Key { return s.key }

// Name returns the surface's debug name.
func (s *Surface) Name() string { return s.name }

// Width returns the current width in pixels.
func (s *Surface) Width() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Height returns the current height in pixels.
func (s *Surface) Height() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// FramesInFlight returns the backbuffer count.
func (s *Surface) FramesInFlight() int {
	return len(s.backbuffers)
}

// CurrentBackbuffer returns the backbuffer for the current frame, or nil if
// backbuffer creation previously failed.
func (s *Surface) CurrentBackbuffer() graphics.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backbuffers[s.current]
}

// Backbuffer returns the backbuffer at index i, or nil when out of range.
func (s *Surface) Backbuffer(i int) graphics.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.backbuffers) {
		return nil
	}
	return s.backbuffers[i]
}

// CurrentBackbufferIndex returns the index of the current backbuffer.
func (s *Surface) CurrentBackbufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AdvanceBackbuffer rotates to the next backbuffer. Called once per frame by
// the engine after presenting.
func (s *Surface) AdvanceBackbuffer() {
	s.mu.Lock()
	s.current = (s.current + 1) % len(s.backbuffers)
	s.mu.Unlock()
}

// MarkResizeRequested stages a resize to be applied at the next frame start.
// Safe from any thread; the last request before the frame boundary wins.
//
// Parameters:
//   - width, height: the requested size in pixels
func (s *Surface) MarkResizeRequested(width, height uint32) {
	s.mu.Lock()
	s.resizeRequested = true
	s.pendingWidth = width
	s.pendingHeight = height
	s.mu.Unlock()
}

// ResizeRequested reports whether a resize is pending.
func (s *Surface) ResizeRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizeRequested
}

// Resize applies the pending resize: old backbuffers go to deferred release
// and new ones are created at the pending size. Engine thread only; the
// caller is responsible for the flush/clear-references protocol around it.
//
// Returns:
//   - error: backbuffer recreation failure; the surface keeps its old size
func (s *Surface) Resize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resizeRequested {
		return nil
	}
	if s.pendingWidth == s.width && s.pendingHeight == s.height {
		s.resizeRequested = false
		return nil
	}

	old := make([]graphics.Texture, len(s.backbuffers))
	copy(old, s.backbuffers)

	prevW, prevH := s.width, s.height
	s.width, s.height = s.pendingWidth, s.pendingHeight
	if err := s.createBackbuffers(); err != nil {
		s.width, s.height = prevW, prevH
		copy(s.backbuffers, old)
		return err
	}
	for _, t := range old {
		s.gfx.RegisterDeferredRelease(t)
	}
	s.resizeRequested = false
	s.current = 0
	logging.L().Info("surface resized",
		"surface", s.name, "width", s.width, "height", s.height)
	return nil
}

// ReleaseBackbuffers hands every backbuffer to deferred release. Called when
// the surface itself is destroyed.
func (s *Surface) ReleaseBackbuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.backbuffers {
		s.gfx.RegisterDeferredRelease(t)
		s.backbuffers[i] = nil
	}
}
