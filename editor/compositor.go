package editor

import (
	"fmt"
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/surface"
)

// Compositor copies offscreen view color textures into surface backbuffers
// and maintains the per-surface framebuffer cache used for direct-to-surface
// rendering. Cache entries are keyed by the surface's stable 16-byte key so
// a recycled surface pointer can never inherit another surface's cache.
type Compositor struct {
	mu    sync.Mutex
	gfx   graphics.Graphics
	cache map[common.Key][]graphics.Framebuffer
}

// NewCompositor creates a compositor over the given backend. NewCompositor
// panics if gfx is nil.
func NewCompositor(gfx graphics.Graphics) *Compositor {
	if gfx == nil {
		panic("editor: NewCompositor requires a non-nil graphics backend")
	}
	return &Compositor{
		gfx:   gfx,
		cache: make(map[common.Key][]graphics.Framebuffer),
	}
}

// EnsureFramebuffersForSurface builds one framebuffer per backbuffer for the
// surface, rebuilding the whole entry when the cached dimensions no longer
// match. The entry always holds exactly frames-in-flight framebuffers, or is
// absent.
func (c *Compositor) EnsureFramebuffersForSurface(srf *surface.Surface) error {
	if srf == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := srf.Key()
	if fbs, ok := c.cache[key]; ok && len(fbs) == srf.FramesInFlight() {
		if first := fbs[0].ColorAttachment(0); first != nil &&
			first.Width() == srf.Width() && first.Height() == srf.Height() {
			return nil
		}
		c.dropLocked(key)
	}

	fbs := make([]graphics.Framebuffer, 0, srf.FramesInFlight())
	for i := 0; i < srf.FramesInFlight(); i++ {
		bb := srf.Backbuffer(i)
		if bb == nil {
			return fmt.Errorf("compositor: surface %q has no backbuffer %d", srf.Name(), i)
		}
		fb, err := c.gfx.CreateFramebuffer(graphics.FramebufferDesc{
			Name:  fmt.Sprintf("%s/composite[%d]", srf.Name(), i),
			Color: []graphics.Texture{bb},
		})
		if err != nil {
			for _, built := range fbs {
				c.gfx.RegisterDeferredRelease(built)
			}
			return fmt.Errorf("compositor: framebuffer for %q: %w", srf.Name(), err)
		}
		fbs = append(fbs, fb)
	}
	c.cache[key] = fbs
	return nil
}

// Framebuffer returns the cached framebuffer for a backbuffer index, or nil.
func (c *Compositor) Framebuffer(key common.Key, index int) graphics.Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	fbs := c.cache[key]
	if index < 0 || index >= len(fbs) {
		return nil
	}
	return fbs[index]
}

// CacheSize returns the number of cached framebuffers for a surface.
func (c *Compositor) CacheSize(key common.Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache[key])
}

// DropSurface schedules the surface's cached framebuffers for deferred
// release and removes the entry. Must run before the surface resizes or is
// destroyed.
func (c *Compositor) DropSurface(key common.Key) {
	c.mu.Lock()
	c.dropLocked(key)
	c.mu.Unlock()
}

func (c *Compositor) dropLocked(key common.Key) {
	for _, fb := range c.cache[key] {
		c.gfx.RegisterDeferredRelease(fb)
	}
	delete(c.cache, key)
}

// Composite blits every pending source into its target surface's current
// backbuffer. When there is nothing to do, no command recorder is acquired.
// Size mismatches are permitted: the copy covers the overlapping region and
// the mismatch is logged.
//
// Parameters:
//   - sources: the pending view-to-surface blits
//   - find: resolves a surface key to its live surface, or false
//
// Returns:
//   - error: recorder acquisition or submission failure
func (c *Compositor) Composite(sources []CompositeSource, find func(common.Key) (*surface.Surface, bool)) error {
	type blit struct {
		src graphics.Texture
		dst graphics.Texture
	}
	var work []blit
	for _, s := range sources {
		if s.Source == nil {
			continue
		}
		srf, ok := find(s.TargetKey)
		if !ok {
			logging.L().Debug("composite target not live", "key", s.TargetKey.String())
			continue
		}
		bb := srf.CurrentBackbuffer()
		if bb == nil {
			continue
		}
		work = append(work, blit{src: s.Source, dst: bb})
	}
	if len(work) == 0 {
		return nil
	}

	rec, err := c.gfx.AcquireCommandRecorder(
		c.gfx.QueueKeyFor(graphics.QueueRoleGraphics), "compositor")
	if err != nil {
		return fmt.Errorf("compositor: acquire recorder: %w", err)
	}

	for _, b := range work {
		srcHome := common.Coalesce(b.src.Desc().InitialState, graphics.StateCommon)
		rec.BeginTrackingWithState(b.src, srcHome)
		rec.RequireState(b.src, graphics.StateCopySource)
		rec.BeginTrackingWithState(b.dst, common.Coalesce(b.dst.Desc().InitialState, graphics.StatePresent))
		rec.RequireState(b.dst, graphics.StateCopyDest)
		rec.FlushBarriers()

		w := min(b.src.Width(), b.dst.Width())
		h := min(b.src.Height(), b.dst.Height())
		if b.src.Width() != b.dst.Width() || b.src.Height() != b.dst.Height() {
			logging.L().Debug("composite size mismatch",
				"src", b.src.Name(), "dst", b.dst.Name(), "copy_w", w, "copy_h", h)
		}
		rec.CopyTextureRegion(b.src, b.dst, w, h)

		rec.RequireState(b.src, srcHome)
		rec.RequireState(b.dst, graphics.StatePresent)
		rec.FlushBarriers()
	}

	if err := rec.Finish(); err != nil {
		return fmt.Errorf("compositor: submit: %w", err)
	}
	return nil
}
