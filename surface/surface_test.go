package surface

import (
	"testing"

	"github.com/abdes/oxygen-interop/graphics/graphicstest"
)

func TestSurfaceBackbuffers(t *testing.T) {
	gfx := graphicstest.New(3)
	s := newTestSurface(t, gfx, 1, 800, 600)

	if s.FramesInFlight() != DefaultFramesInFlight {
		t.Errorf("frames in flight = %d", s.FramesInFlight())
	}
	bb := s.CurrentBackbuffer()
	if bb == nil || bb.Width() != 800 || bb.Height() != 600 {
		t.Fatalf("backbuffer wrong: %v", bb)
	}

	seen := map[int]bool{}
	for i := 0; i < s.FramesInFlight(); i++ {
		seen[s.CurrentBackbufferIndex()] = true
		s.AdvanceBackbuffer()
	}
	if len(seen) != s.FramesInFlight() {
		t.Errorf("rotation visited %d indices", len(seen))
	}
	if s.CurrentBackbufferIndex() != 0 {
		t.Error("rotation did not wrap")
	}
}

func TestSurfaceFramesInFlightOption(t *testing.T) {
	gfx := graphicstest.New(2)
	s, err := New(gfx, testKey(2), "s", 64, 64, WithFramesInFlight(2))
	if err != nil {
		t.Fatal(err)
	}
	if s.FramesInFlight() != 2 {
		t.Errorf("frames in flight = %d, want 2", s.FramesInFlight())
	}
	if _, err := New(gfx, testKey(3), "s2", 64, 64, WithFramesInFlight(0)); err != nil {
		t.Fatal(err)
	}
}

func TestResizeFlow(t *testing.T) {
	gfx := graphicstest.New(3)
	s := newTestSurface(t, gfx, 1, 1024, 768)
	oldBuffers := make([]*graphicstest.Texture, 0)
	for i := 0; i < s.FramesInFlight(); i++ {
		oldBuffers = append(oldBuffers, s.CurrentBackbuffer().(*graphicstest.Texture))
		s.AdvanceBackbuffer()
	}

	if s.ResizeRequested() {
		t.Fatal("fresh surface has resize pending")
	}
	s.MarkResizeRequested(1280, 720)
	if !s.ResizeRequested() {
		t.Fatal("resize request lost")
	}

	if err := s.Resize(); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if s.Width() != 1280 || s.Height() != 720 {
		t.Errorf("size = %dx%d", s.Width(), s.Height())
	}
	if s.ResizeRequested() {
		t.Error("resize flag not cleared")
	}
	bb := s.CurrentBackbuffer()
	if bb.Width() != 1280 || bb.Height() != 720 {
		t.Error("backbuffers not recreated at new size")
	}

	// Old buffers went to deferred release, not synchronous destruction.
	for _, old := range oldBuffers {
		if old.Released() {
			t.Error("old backbuffer released synchronously")
		}
	}
	if gfx.Reclaimer().Pending() != len(oldBuffers) {
		t.Errorf("pending releases = %d, want %d", gfx.Reclaimer().Pending(), len(oldBuffers))
	}
}

func TestResizeNoopWhenSameSize(t *testing.T) {
	gfx := graphicstest.New(3)
	s := newTestSurface(t, gfx, 1, 640, 480)
	before := s.CurrentBackbuffer()

	s.MarkResizeRequested(640, 480)
	if err := s.Resize(); err != nil {
		t.Fatal(err)
	}
	if s.ResizeRequested() {
		t.Error("flag not cleared on same-size resize")
	}
	if s.CurrentBackbuffer() != before {
		t.Error("backbuffers recreated needlessly")
	}
}

func TestResizeFailureKeepsOldSize(t *testing.T) {
	gfx := graphicstest.New(3)
	s := newTestSurface(t, gfx, 1, 640, 480)

	gfx.FailTextures = true
	s.MarkResizeRequested(1920, 1080)
	if err := s.Resize(); err == nil {
		t.Fatal("expected resize failure")
	}
	if s.Width() != 640 || s.Height() != 480 {
		t.Error("failed resize changed the size")
	}
}

func TestReleaseBackbuffers(t *testing.T) {
	gfx := graphicstest.New(1)
	s := newTestSurface(t, gfx, 1, 320, 240)
	s.ReleaseBackbuffers()
	if gfx.Reclaimer().Pending() != s.FramesInFlight() {
		t.Errorf("pending = %d", gfx.Reclaimer().Pending())
	}
	gfx.Reclaimer().Collect()
	for _, tex := range gfx.Textures {
		if !tex.Released() {
			t.Error("backbuffer not released after collect")
		}
	}
}
