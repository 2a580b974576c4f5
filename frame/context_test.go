package frame

import (
	"testing"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/graphics/graphicstest"
	"github.com/abdes/oxygen-interop/surface"
)

func TestContextViewRegistration(t *testing.T) {
	ctx := NewEngineContext()

	a := ctx.RegisterView(ViewContext{Name: "a"})
	b := ctx.RegisterView(ViewContext{Name: "b"})
	if !a.IsValid() || !b.IsValid() {
		t.Fatal("assigned ids must be valid")
	}
	if a == b {
		t.Fatal("ids must be distinct")
	}

	ids := ctx.ViewIds()
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Fatalf("ViewIds = %v, want [%d %d]", ids, a, b)
	}

	vc, ok := ctx.View(a)
	if !ok || vc.Name != "a" {
		t.Fatalf("View(a) = %+v, %v", vc, ok)
	}

	ctx.UpdateView(a, ViewContext{Name: "a2", Viewport: common.Rect{Width: 64, Height: 64}})
	vc, _ = ctx.View(a)
	if vc.Name != "a2" || vc.Viewport.Width != 64 {
		t.Fatalf("UpdateView not applied: %+v", vc)
	}

	// Unknown ids are ignored.
	ctx.UpdateView(ViewId(999), ViewContext{Name: "ghost"})
	ctx.UnregisterView(ViewId(999))

	ctx.UnregisterView(a)
	if _, ok := ctx.View(a); ok {
		t.Fatal("view a should be gone")
	}
	ids = ctx.ViewIds()
	if len(ids) != 1 || ids[0] != b {
		t.Fatalf("ViewIds after unregister = %v", ids)
	}
}

func TestContextViewIdsNeverReused(t *testing.T) {
	ctx := NewEngineContext()
	seen := make(map[ViewId]bool)
	for i := 0; i < 8; i++ {
		id := ctx.RegisterView(ViewContext{Name: "v"})
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
		ctx.UnregisterView(id)
	}
}

func TestContextViewOutputsResetPerFrame(t *testing.T) {
	gfx := graphicstest.New(2)
	fb, err := gfx.CreateFramebuffer(graphics.FramebufferDesc{Name: "fb"})
	if err != nil {
		t.Fatal(err)
	}

	ctx := NewEngineContext()
	id := ctx.RegisterView(ViewContext{Name: "v"})

	ctx.SetViewOutput(id, fb)
	if ctx.ViewOutput(id) != fb {
		t.Fatal("output not bound")
	}

	ctx.ResetFrame()
	if ctx.ViewOutput(id) != nil {
		t.Fatal("outputs must clear at frame start")
	}
	if _, ok := ctx.View(id); !ok {
		t.Fatal("view registration must survive frames")
	}

	ctx.SetViewOutput(InvalidViewId, fb)
	if ctx.ViewOutput(InvalidViewId) != nil {
		t.Fatal("invalid id must not bind an output")
	}
}

func TestContextSurfaceList(t *testing.T) {
	gfx := graphicstest.New(2)
	ctx := NewEngineContext()

	s1, err := surface.New(gfx, common.Key{1}, "one", 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := surface.New(gfx, common.Key{2}, "two", 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	ctx.AddSurface(s1)
	ctx.AddSurface(s2)

	if got := len(ctx.Surfaces()); got != 2 {
		t.Fatalf("len(Surfaces) = %d", got)
	}

	ctx.SetSurfacePresentable(1, true)
	if ctx.IsSurfacePresentable(0) {
		t.Fatal("surface 0 should not be presentable")
	}
	if !ctx.IsSurfacePresentable(1) {
		t.Fatal("surface 1 should be presentable")
	}

	ctx.RemoveSurfaceAt(0)
	surfs := ctx.Surfaces()
	if len(surfs) != 1 || surfs[0] != s2 {
		t.Fatalf("Surfaces after removal = %v", surfs)
	}
	// Presentable flags track indices through removal.
	if !ctx.IsSurfacePresentable(0) {
		t.Fatal("presentable flag should follow the surviving surface")
	}

	ctx.RemoveSurfaceAt(7) // out of range, ignored
	if len(ctx.Surfaces()) != 1 {
		t.Fatal("out-of-range removal must be a no-op")
	}
}
