// Package frame defines the engine-side contracts the interop module is
// built against: the frame phases, the per-frame context, the module
// registration contract, and the per-view render dispatch.
package frame

import "fmt"

// Phase names a point in the engine's frame loop at which module hooks may
// run. Phases execute in declaration order on the engine thread.
type Phase uint8

const (
	PhaseFrameStart Phase = iota
	PhaseSceneMutation
	PhasePreRender
	PhaseRender
	PhaseCompositing
	// PhaseCount is the number of phases; not a valid phase itself.
	PhaseCount
)

var phaseNames = [PhaseCount]string{
	"FrameStart", "SceneMutation", "PreRender", "Render", "Compositing",
}

// NewPhase validates a raw value into a Phase.
//
// Parameters:
//   - v: the raw value
//
// Returns:
//   - Phase: the validated phase
//   - error: when v is outside [0, PhaseCount)
func NewPhase(v uint8) (Phase, error) {
	if v >= uint8(PhaseCount) {
		return 0, fmt.Errorf("phase %d out of range [0, %d)", v, uint8(PhaseCount))
	}
	return Phase(v), nil
}

// String returns the phase name.
func (p Phase) String() string {
	if p >= PhaseCount {
		return "Invalid"
	}
	return phaseNames[p]
}

// PhaseMask is a bitset of phases a module participates in.
type PhaseMask uint8

// MaskOf builds a mask from phases.
func MaskOf(phases ...Phase) PhaseMask {
	var m PhaseMask
	for _, p := range phases {
		m |= 1 << p
	}
	return m
}

// Has reports whether the mask contains p.
func (m PhaseMask) Has(p Phase) bool {
	return m&(1<<p) != 0
}
