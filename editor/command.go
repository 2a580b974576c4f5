// Package editor implements the editor-to-engine interop module: a
// frame-phase participant that drains host commands at the legal phase,
// manages per-surface and per-view GPU resources, and orchestrates render
// graph execution and compositing.
package editor

import (
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/loader"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
)

// CommandContext is what a command sees while executing. Any collaborator
// may be nil; commands treat a missing collaborator as "skip and report
// failure", never as a fault.
type CommandContext struct {
	Scene  *scene.Scene
	Assets loader.AssetLoader
	Paths  loader.PathResolver
	Views  *ViewManager
	Frame  frame.Context

	// SetScene publishes a newly created scene to the owning module.
	SetScene func(*scene.Scene)
}

// EditorCommand is one atomic scene or view mutation staged by a producer
// thread and executed on the engine thread at its declared phase.
type EditorCommand interface {
	// Phase returns the frame phase the command must execute in.
	Phase() frame.Phase

	// Execute applies the command. Implementations tolerate stale handles
	// and missing collaborators as no-ops.
	Execute(ctx *CommandContext)
}

// safeCallback invokes a host callback with panic containment. Host bugs
// must not escape into the phase hook.
func safeCallback(what string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.L().Error("host callback panicked", "callback", what, "recover", rec)
		}
	}()
	fn()
}
