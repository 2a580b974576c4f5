package frame

import (
	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/scene"
)

// ViewId is the engine-assigned identity of a registered view. Ids are
// opaque; only equality and the InvalidViewId sentinel are meaningful.
type ViewId int64

// InvalidViewId is the sentinel for "no view". Every view API tolerates it
// without undefined behavior.
const InvalidViewId ViewId = 0

// IsValid reports whether the id could address a registered view.
func (id ViewId) IsValid() bool {
	return id != InvalidViewId
}

// ViewContext describes one view to the engine for a frame: its camera, the
// rectangle it renders into, and metadata for diagnostics.
type ViewContext struct {
	Name     string
	Camera   scene.NodeHandle
	Viewport common.Rect
	Scissor  common.Rect
}
