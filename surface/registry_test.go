package surface

import (
	"sync"
	"testing"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics/graphicstest"
)

func testKey(b byte) common.Key {
	var k common.Key
	for i := range k {
		k[i] = b
	}
	return k
}

func newTestSurface(t *testing.T, gfx *graphicstest.Backend, b byte, w, h uint32) *Surface {
	t.Helper()
	s, err := New(gfx, testKey(b), "test-surface", w, h)
	if err != nil {
		t.Fatalf("New surface: %v", err)
	}
	return s
}

func TestRegisterCommitFind(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()
	srf := newTestSurface(t, gfx, 1, 800, 600)

	var acked, result bool
	r.RegisterSurface(srf.Key(), srf, func(ok bool) { acked = true; result = ok })
	if acked {
		t.Fatal("callback fired before drain")
	}
	if _, ok := r.FindSurface(srf.Key()); ok {
		t.Fatal("surface live before commit")
	}

	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		cb(r.CommitRegistration(key, s))
	})
	if !acked || !result {
		t.Error("registration not acknowledged with success")
	}
	if got, ok := r.FindSurface(srf.Key()); !ok || got != srf {
		t.Error("committed surface not findable")
	}
	if r.LiveCount() != 1 {
		t.Errorf("LiveCount = %d", r.LiveCount())
	}
}

func TestDuplicateRegistrationAcksFalse(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()
	srf := newTestSurface(t, gfx, 1, 800, 600)

	r.RegisterSurface(srf.Key(), srf, nil)
	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		r.CommitRegistration(key, s)
	})

	fired := 0
	var got bool
	r.RegisterSurface(srf.Key(), srf, func(ok bool) { fired++; got = ok })
	if fired != 1 || got {
		t.Errorf("duplicate key: fired=%d ok=%v, want exactly one false", fired, got)
	}
}

func TestRemoveUnknownAcksFalse(t *testing.T) {
	r := NewRegistry()
	fired := 0
	var got bool
	r.RemoveSurface(testKey(9), func(ok bool) { fired++; got = ok })
	if fired != 1 || got {
		t.Errorf("unknown remove: fired=%d ok=%v", fired, got)
	}
}

func TestRemoveStagesDestruction(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()
	srf := newTestSurface(t, gfx, 2, 640, 480)
	r.RegisterSurface(srf.Key(), srf, nil)
	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		r.CommitRegistration(key, s)
	})

	var acked bool
	r.RemoveSurface(srf.Key(), func(ok bool) { acked = ok })
	if _, ok := r.FindSurface(srf.Key()); ok {
		t.Error("removed surface still live")
	}

	drained := 0
	r.DrainPendingDestructions(func(key common.Key, s *Surface, cb AckCallback) {
		drained++
		if s != srf {
			t.Error("wrong surface in destruction batch")
		}
		cb(true)
	})
	if drained != 1 || !acked {
		t.Errorf("drained=%d acked=%v", drained, acked)
	}

	// Key can be re-registered after the destruction was staged.
	srf2 := newTestSurface(t, gfx, 2, 640, 480)
	committed := false
	r.RegisterSurface(srf2.Key(), srf2, func(ok bool) { committed = ok })
	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		cb(r.CommitRegistration(key, s))
	})
	if !committed {
		t.Error("recycled key registration failed")
	}
}

func TestResizeCallbacksDrainOnce(t *testing.T) {
	r := NewRegistry()
	key := testKey(3)
	count := 0
	r.RegisterResizeCallback(key, func(ok bool) {
		count++
		if !ok {
			t.Error("expected success")
		}
	})
	r.RegisterResizeCallback(key, func(ok bool) { count++ })

	if n := r.DrainResizeCallbacks(key, true); n != 2 {
		t.Errorf("drained %d callbacks, want 2", n)
	}
	if count != 2 {
		t.Errorf("fired %d callbacks, want 2", count)
	}
	if n := r.DrainResizeCallbacks(key, true); n != 0 {
		t.Error("second drain must be empty")
	}
}

func TestSnapshotOrderStable(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()
	var keys []common.Key
	for b := byte(1); b <= 4; b++ {
		srf := newTestSurface(t, gfx, b, 100, 100)
		keys = append(keys, srf.Key())
		r.RegisterSurface(srf.Key(), srf, nil)
	}
	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		r.CommitRegistration(key, s)
	})

	snap := r.SnapshotSurfaces()
	if len(snap) != 4 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	for i, srf := range snap {
		if srf.Key() != keys[i] {
			t.Errorf("snapshot[%d] out of order", i)
		}
	}

	r.RemoveSurface(keys[1], nil)
	snap = r.SnapshotSurfaces()
	if len(snap) != 3 || snap[1].Key() != keys[2] {
		t.Error("order not preserved across removal")
	}
}

func TestClearAcksAllPendingWithFalse(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()
	srf := newTestSurface(t, gfx, 5, 320, 200)

	fired := 0
	r.RegisterSurface(srf.Key(), srf, func(ok bool) {
		fired++
		if ok {
			t.Error("cleared registration must ack false")
		}
	})
	r.RegisterResizeCallback(srf.Key(), func(ok bool) {
		fired++
		if ok {
			t.Error("cleared resize must ack false")
		}
	})
	r.Clear()
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
	if r.LiveCount() != 0 {
		t.Error("registry not empty after Clear")
	}
}

func TestPanickingCallbackIsContained(t *testing.T) {
	r := NewRegistry()
	// Must not panic out of the registry.
	r.RemoveSurface(testKey(7), func(bool) { panic("host bug") })
}

func TestConcurrentStaging(t *testing.T) {
	gfx := graphicstest.New(3)
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			srf, err := New(gfx, testKey(b), "s", 64, 64)
			if err != nil {
				t.Error(err)
				return
			}
			r.RegisterSurface(srf.Key(), srf, nil)
		}(byte(i + 1))
	}
	wg.Wait()

	committed := 0
	r.DrainPendingRegistrations(func(key common.Key, s *Surface, cb AckCallback) {
		if r.CommitRegistration(key, s) {
			committed++
		}
	})
	if committed != 16 {
		t.Errorf("committed %d, want 16", committed)
	}
}
