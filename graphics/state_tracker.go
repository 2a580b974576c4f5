package graphics

// Barrier is one pending state transition produced by a StateTracker.
type Barrier struct {
	Texture Texture
	From    ResourceState
	To      ResourceState
}

// StateTracker tracks the logical state of textures within one command
// recorder and accumulates the barriers needed to satisfy declared state
// requirements. Backends embed one per recorder; it is not safe for
// concurrent use, matching the single-thread recording model.
type StateTracker struct {
	states  map[Texture]ResourceState
	pending []Barrier
}

// NewStateTracker creates an empty tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{states: make(map[Texture]ResourceState)}
}

// BeginTracking establishes the assumed current state of a texture. If the
// texture is already tracked the call is a no-op, so callers may
// conservatively re-announce a baseline.
func (st *StateTracker) BeginTracking(t Texture, state ResourceState) {
	if t == nil {
		return
	}
	if _, ok := st.states[t]; ok {
		return
	}
	st.states[t] = state
}

// Require records that the texture must transition to the given state. If the
// texture is untracked, its descriptor's initial state is used as the
// baseline (falling back to Common). Redundant requirements produce no
// barrier.
func (st *StateTracker) Require(t Texture, state ResourceState) {
	if t == nil {
		return
	}
	cur, ok := st.states[t]
	if !ok {
		cur = t.Desc().InitialState
		if cur == StateUnknown {
			cur = StateCommon
		}
		st.states[t] = cur
	}
	if cur == state {
		return
	}
	st.pending = append(st.pending, Barrier{Texture: t, From: cur, To: state})
	st.states[t] = state
}

// Flush returns and clears the pending barrier list.
func (st *StateTracker) Flush() []Barrier {
	p := st.pending
	st.pending = nil
	return p
}

// Current returns the tracked state of a texture, or StateUnknown when the
// texture is untracked.
func (st *StateTracker) Current(t Texture) ResourceState {
	return st.states[t]
}
