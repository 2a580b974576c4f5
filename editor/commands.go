package editor

import (
	"strings"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/frame"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/mesh"
	"github.com/abdes/oxygen-interop/scene"
)

// CreateScene replaces the module's scene with a fresh one. The new scene is
// published to the frame context at the next frame start.
type CreateScene struct {
	Name string
}

func (CreateScene) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c CreateScene) Execute(ctx *CommandContext) {
	if ctx.SetScene == nil {
		return
	}
	ctx.SetScene(scene.New(c.Name))
}

// CreateSceneNode creates a node, optionally under a parent, and registers
// its handle under RegKey before the callback runs so the callback can rely
// on NodeRegistry lookups.
type CreateSceneNode struct {
	Name            string
	Parent          scene.NodeHandle
	RegKey          common.Key
	InitWorldAsRoot bool
	Callback        func(scene.NodeHandle)
}

func (CreateSceneNode) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c CreateSceneNode) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		safeCallback("CreateSceneNode", func() {
			if c.Callback != nil {
				c.Callback(scene.NodeHandle{})
			}
		})
		return
	}
	var h scene.NodeHandle
	if c.Parent.IsValid() && ctx.Scene.IsAlive(c.Parent) {
		h = ctx.Scene.CreateChildNode(c.Parent, c.Name)
	} else {
		h = ctx.Scene.CreateNode(c.Name)
	}
	if c.InitWorldAsRoot {
		ctx.Scene.UpdateWorldAsRoot(h)
	}
	if !c.RegKey.IsZero() {
		scene.Nodes().Register(c.RegKey, h)
	}
	safeCallback("CreateSceneNode", func() {
		if c.Callback != nil {
			c.Callback(h)
		}
	})
}

// RemoveSceneNode destroys a node. Nodes with children lose the whole
// subtree; leaf nodes are destroyed alone. Stale handles are no-ops.
type RemoveSceneNode struct {
	Handle scene.NodeHandle
}

func (RemoveSceneNode) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c RemoveSceneNode) Execute(ctx *CommandContext) {
	if ctx.Scene == nil || !ctx.Scene.IsAlive(c.Handle) {
		return
	}
	if len(ctx.Scene.Children(c.Handle)) > 0 {
		ctx.Scene.DestroyNodeHierarchy(c.Handle)
	} else {
		ctx.Scene.DestroyNode(c.Handle)
	}
}

// RenameSceneNode renames a node. Stale handles are no-ops.
type RenameSceneNode struct {
	Handle scene.NodeHandle
	Name   string
}

func (RenameSceneNode) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c RenameSceneNode) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.Rename(c.Handle, c.Name)
}

// SetLocalTransform replaces a node's local transform.
type SetLocalTransform struct {
	Handle    scene.NodeHandle
	Transform scene.Transform
}

func (SetLocalTransform) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c SetLocalTransform) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.SetLocalTransform(c.Handle, c.Transform)
}

// SetVisibility toggles a node's render visibility.
type SetVisibility struct {
	Handle  scene.NodeHandle
	Visible bool
}

func (SetVisibility) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c SetVisibility) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.SetVisible(c.Handle, c.Visible)
}

// Reparent moves a node under a new parent. Cycles and stale handles are
// rejected by the scene itself.
type Reparent struct {
	Handle    scene.NodeHandle
	NewParent scene.NodeHandle
}

func (Reparent) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c Reparent) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.Reparent(c.Handle, c.NewParent)
}

// DetachGeometry removes a node's renderable component.
type DetachGeometry struct {
	Handle scene.NodeHandle
}

func (DetachGeometry) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c DetachGeometry) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.DetachRenderable(c.Handle)
}

// UpdateTransformsForNodes recomputes world transforms for a set of nodes.
type UpdateTransformsForNodes struct {
	Handles []scene.NodeHandle
}

func (UpdateTransformsForNodes) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c UpdateTransformsForNodes) Execute(ctx *CommandContext) {
	if ctx.Scene == nil {
		return
	}
	ctx.Scene.UpdateWorldTransforms(c.Handles...)
}

// CreateBasicMesh builds a procedural mesh of the named type and attaches it
// to the node. Unrecognized type names are silent no-ops.
type CreateBasicMesh struct {
	Handle   scene.NodeHandle
	MeshType string
}

func (CreateBasicMesh) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c CreateBasicMesh) Execute(ctx *CommandContext) {
	if ctx.Scene == nil || !ctx.Scene.IsAlive(c.Handle) {
		return
	}
	t, err := mesh.ParseMeshType(c.MeshType)
	if err != nil {
		logging.L().Debug("unrecognized basic mesh type", "type", c.MeshType)
		return
	}
	uri := mesh.GeneratedURIPrefix + t.String()
	geo := &mesh.Geometry{
		Key:  common.DeriveAssetKey(uri),
		Name: t.String(),
		Mesh: mesh.Generate(t),
	}
	ctx.Scene.SetRenderable(c.Handle, geo)
}

// assetScheme prefixes every content URI SetGeometry accepts.
const assetScheme = "asset:"

// SetGeometry attaches geometry to a node by asset URI. Generated-shape URIs
// resolve through the process-wide geometry cache; content URIs resolve
// through the path resolver and asset loader, asynchronously when the asset
// is not resident. Invalid URIs change nothing.
type SetGeometry struct {
	Handle scene.NodeHandle
	URI    string
}

func (SetGeometry) Phase() frame.Phase { return frame.PhaseSceneMutation }

func (c SetGeometry) Execute(ctx *CommandContext) {
	if ctx.Scene == nil || !ctx.Scene.IsAlive(c.Handle) {
		return
	}

	if strings.HasPrefix(c.URI, mesh.GeneratedURIPrefix) {
		geo := mesh.GeneratedGeometry(c.URI)
		if geo == nil {
			logging.L().Warn("generated geometry uri not recognized", "uri", c.URI)
			return
		}
		ctx.Scene.SetRenderable(c.Handle, geo)
		return
	}

	if !strings.HasPrefix(c.URI, assetScheme) {
		logging.L().Warn("geometry uri has no asset scheme", "uri", c.URI)
		return
	}
	if ctx.Paths == nil || ctx.Assets == nil {
		logging.L().Warn("asset services unavailable for geometry uri", "uri", c.URI)
		return
	}

	key, err := ctx.Paths.Resolve(strings.TrimPrefix(c.URI, assetScheme))
	if err != nil {
		logging.L().Warn("geometry uri did not resolve", "uri", c.URI, "error", err)
		return
	}
	if geo, ok := ctx.Assets.GetResident(key); ok {
		ctx.Scene.SetRenderable(c.Handle, geo)
		return
	}

	// The completion runs on a later mutation phase; the node may be gone by
	// then.
	scn := ctx.Scene
	handle := c.Handle
	ctx.Assets.LoadAsync(key, func(geo *mesh.Geometry, err error) {
		if err != nil || geo == nil {
			return
		}
		if !scn.IsAlive(handle) {
			logging.L().Debug("node destroyed before asset load finished", "key", key.String())
			return
		}
		scn.SetRenderable(handle, geo)
	})
}

// CreateView asks the view manager to construct a view this frame. The
// callback receives the engine-assigned view id, or the invalid id on
// failure, exactly once.
type CreateView struct {
	Config   ViewConfig
	Callback func(bool, frame.ViewId)
}

func (CreateView) Phase() frame.Phase { return frame.PhaseFrameStart }

func (c CreateView) Execute(ctx *CommandContext) {
	if ctx.Views == nil {
		safeCallback("CreateView", func() {
			if c.Callback != nil {
				c.Callback(false, frame.InvalidViewId)
			}
		})
		return
	}
	ctx.Views.CreateViewNow(c.Config, c.Callback)
}

// DestroyView releases a view's GPU resources and removes it. Unknown ids
// are no-ops.
type DestroyView struct {
	Id frame.ViewId
}

func (DestroyView) Phase() frame.Phase { return frame.PhaseFrameStart }

func (c DestroyView) Execute(ctx *CommandContext) {
	if ctx.Views == nil {
		return
	}
	ctx.Views.DestroyView(c.Id)
}

// ShowView re-includes a hidden view in per-view dispatch.
type ShowView struct {
	Id frame.ViewId
}

func (ShowView) Phase() frame.Phase { return frame.PhaseFrameStart }

func (c ShowView) Execute(ctx *CommandContext) {
	if ctx.Views == nil {
		return
	}
	ctx.Views.RegisterView(c.Id)
}

// HideView removes a view from per-view dispatch without destroying it.
type HideView struct {
	Id frame.ViewId
}

func (HideView) Phase() frame.Phase { return frame.PhaseFrameStart }

func (c HideView) Execute(ctx *CommandContext) {
	if ctx.Views == nil {
		return
	}
	ctx.Views.UnregisterView(c.Id)
}

// SetCameraViewPreset snaps a view's camera to a canonical framing. The
// orthographic presets swap the camera to orthographic projection; the
// perspective preset restores it.
type SetCameraViewPreset struct {
	Id     frame.ViewId
	Preset CameraPreset
}

func (SetCameraViewPreset) Phase() frame.Phase { return frame.PhaseFrameStart }

func (c SetCameraViewPreset) Execute(ctx *CommandContext) {
	if ctx.Views == nil || ctx.Scene == nil {
		return
	}
	ctx.Views.ApplyCameraPreset(c.Id, ctx.Scene, c.Preset)
}
