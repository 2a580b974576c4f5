package frame

import (
	"sort"
	"sync"

	"github.com/abdes/oxygen-interop/logging"
)

// Module is the contract an engine module implements to participate in the
// frame loop. Hooks run sequentially on the engine thread; a hook for a
// phase outside SupportedPhases is never invoked. Hooks must not panic; the
// engine recovers and logs as a last line of defense.
type Module interface {
	// Name returns the module's unique name.
	Name() string

	// Priority orders modules within a phase; higher runs first.
	Priority() int

	// SupportedPhases declares which phase hooks the engine should invoke.
	SupportedPhases() PhaseMask

	// OnFrameStart runs surface/bookkeeping work before any mutation.
	OnFrameStart(ctx Context)

	// OnSceneMutation is the only phase in which scene state may change.
	OnSceneMutation(ctx Context)

	// OnPreRender prepares GPU resources for the frame.
	OnPreRender(ctx Context)

	// OnRender records per-view rendering work.
	OnRender(ctx Context)

	// OnCompositing copies offscreen results into surface backbuffers.
	OnCompositing(ctx Context)
}

// Loop drives registered modules through the frame phases on the caller's
// goroutine, which becomes the engine thread. It is the minimal engine-side
// scheduler: modules are invoked in priority order within each phase, and a
// panicking hook is recovered, logged, and skipped for the rest of the
// frame.
type Loop struct {
	mu      sync.Mutex
	modules []Module
	ctx     *EngineContext
}

// NewLoop creates a frame loop around the given context.
func NewLoop(ctx *EngineContext) *Loop {
	if ctx == nil {
		panic("frame: NewLoop requires a non-nil context")
	}
	return &Loop{ctx: ctx}
}

// Register adds a module. Modules are sorted by descending priority.
func (l *Loop) Register(m Module) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules = append(l.modules, m)
	sort.SliceStable(l.modules, func(i, j int) bool {
		return l.modules[i].Priority() > l.modules[j].Priority()
	})
	logging.L().Info("module registered", "module", m.Name(), "priority", m.Priority())
}

// Context returns the loop's frame context.
func (l *Loop) Context() *EngineContext {
	return l.ctx
}

// RunFrame advances one full frame through all phases.
func (l *Loop) RunFrame() {
	l.mu.Lock()
	mods := make([]Module, len(l.modules))
	copy(mods, l.modules)
	l.mu.Unlock()

	l.ctx.ResetFrame()
	for p := Phase(0); p < PhaseCount; p++ {
		l.ctx.BeginPhase(p)
		for _, m := range mods {
			if !m.SupportedPhases().Has(p) {
				continue
			}
			l.invoke(m, p)
		}
	}
}

// invoke dispatches one hook with panic containment. Exceptions never cross
// a phase-hook boundary.
func (l *Loop) invoke(m Module, p Phase) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.L().Error("module hook panicked",
				"module", m.Name(), "phase", p.String(), "recover", rec)
		}
	}()
	switch p {
	case PhaseFrameStart:
		m.OnFrameStart(l.ctx)
	case PhaseSceneMutation:
		m.OnSceneMutation(l.ctx)
	case PhasePreRender:
		m.OnPreRender(l.ctx)
	case PhaseRender:
		m.OnRender(l.ctx)
	case PhaseCompositing:
		m.OnCompositing(l.ctx)
	}
}
