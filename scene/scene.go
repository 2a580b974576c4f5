// Package scene implements the mutable scene store the editor module
// addresses through opaque node handles. Nodes form a tree with local
// TRS transforms, lazily-updated world matrices, and optional camera and
// renderable components. Handles are generation-checked: operations on stale
// handles are silent no-ops, never faults.
package scene

import (
	"sync"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/mesh"
)

// NodeHandle identifies a node in a Scene. The zero value is invalid.
// Handles embed a generation counter so a handle to a destroyed node can
// never address its slot's next occupant.
type NodeHandle struct {
	index uint32
	gen   uint32
}

// IsValid reports whether the handle could ever address a node. It does not
// imply the node is still alive; use Scene.IsAlive for that.
func (h NodeHandle) IsValid() bool {
	return h.gen != 0
}

// Transform is a local TRS transform.
type Transform struct {
	Position common.Vec3
	Rotation common.Vec3 // Euler radians, applied Y * X * Z
	Scale    common.Vec3
}

// IdentityTransform returns a transform with unit scale and no rotation or
// translation.
func IdentityTransform() Transform {
	return Transform{Scale: common.One}
}

type node struct {
	alive      bool
	gen        uint32
	name       string
	parent     NodeHandle
	children   []NodeHandle
	local      Transform
	world      [16]float32
	worldDirty bool
	visible    bool

	camera     *Camera
	renderable *Renderable
}

// Scene is a tree of nodes stored in a slot arena. Mutation is legal only
// during the scene-mutation phase on the engine thread; the internal lock
// exists so read-mostly consumers (resolvers, passes) can snapshot safely.
type Scene struct {
	mu    sync.RWMutex
	name  string
	nodes []node
	free  []uint32
}

// New creates an empty scene.
//
// Parameters:
//   - name: the scene identifier used in logs
func New(name string) *Scene {
	return &Scene{name: name}
}

// Name returns the scene's identifier.
func (s *Scene) Name() string {
	return s.name
}

// CreateNode creates a root node.
//
// Parameters:
//   - name: node name (not required to be unique)
//
// Returns:
//   - NodeHandle: handle to the new node
func (s *Scene) CreateNode(name string) NodeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocNode(name, NodeHandle{})
}

// CreateChildNode creates a node under parent. If parent is stale or
// invalid, the node is created as a root instead; asynchronous callers race
// node destruction and must not fault on it.
//
// Parameters:
//   - parent: the intended parent
//   - name: node name
//
// Returns:
//   - NodeHandle: handle to the new node
func (s *Scene) CreateChildNode(parent NodeHandle, name string) NodeHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(parent) == nil {
		logging.L().Debug("create child with stale parent, creating root", "name", name)
		parent = NodeHandle{}
	}
	h := s.allocNode(name, parent)
	if p := s.lookup(parent); p != nil {
		p.children = append(p.children, h)
	}
	return h
}

// allocNode reuses a free slot or appends one. Caller holds the lock.
func (s *Scene) allocNode(name string, parent NodeHandle) NodeHandle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.nodes = append(s.nodes, node{})
		idx = uint32(len(s.nodes) - 1)
	}
	n := &s.nodes[idx]
	gen := n.gen + 1
	*n = node{
		alive:      true,
		gen:        gen,
		name:       name,
		parent:     parent,
		local:      IdentityTransform(),
		worldDirty: true,
		visible:    true,
	}
	common.Identity(n.world[:])
	return NodeHandle{index: idx, gen: gen}
}

// lookup returns the live node for h, or nil. Caller holds the lock.
func (s *Scene) lookup(h NodeHandle) *node {
	if !h.IsValid() || int(h.index) >= len(s.nodes) {
		return nil
	}
	n := &s.nodes[h.index]
	if !n.alive || n.gen != h.gen {
		return nil
	}
	return n
}

// IsAlive reports whether the handle addresses a live node.
func (s *Scene) IsAlive(h NodeHandle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(h) != nil
}

// NodeName returns the node's name, or "" for stale handles.
func (s *Scene) NodeName(h NodeHandle) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil {
		return n.name
	}
	return ""
}

// Rename sets the node's name. Stale handles are no-ops.
func (s *Scene) Rename(h NodeHandle, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		n.name = name
	}
}

// Parent returns the node's parent handle (invalid for roots or stale
// handles).
func (s *Scene) Parent(h NodeHandle) NodeHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil {
		return n.parent
	}
	return NodeHandle{}
}

// Children returns a copy of the node's child handles.
func (s *Scene) Children(h NodeHandle) []NodeHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.lookup(h)
	if n == nil {
		return nil
	}
	out := make([]NodeHandle, len(n.children))
	copy(out, n.children)
	return out
}

// Reparent moves the node under newParent, detaching it from its current
// parent. Stale handles on either side are no-ops. Reparenting a node under
// its own descendant is rejected to keep the tree acyclic.
func (s *Scene) Reparent(h, newParent NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(h)
	if n == nil {
		return
	}
	if s.lookup(newParent) == nil && newParent.IsValid() {
		return
	}
	// Walk up from newParent; h must not appear.
	for cur := newParent; cur.IsValid(); {
		if cur == h {
			logging.L().Debug("reparent would create cycle, ignored", "node", n.name)
			return
		}
		p := s.lookup(cur)
		if p == nil {
			break
		}
		cur = p.parent
	}

	s.detachFromParent(h, n)
	n.parent = newParent
	n.worldDirty = true
	if p := s.lookup(newParent); p != nil {
		p.children = append(p.children, h)
	}
}

// detachFromParent removes h from its parent's child list. Caller holds the
// lock.
func (s *Scene) detachFromParent(h NodeHandle, n *node) {
	p := s.lookup(n.parent)
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == h {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
}

// DestroyNode destroys a single node, reparenting its children to the
// node's parent. Stale handles are no-ops.
func (s *Scene) DestroyNode(h NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(h)
	if n == nil {
		return
	}
	for _, c := range n.children {
		if cn := s.lookup(c); cn != nil {
			cn.parent = n.parent
			cn.worldDirty = true
			if p := s.lookup(n.parent); p != nil {
				p.children = append(p.children, c)
			}
		}
	}
	s.detachFromParent(h, n)
	s.releaseSlot(h)
}

// DestroyNodeHierarchy destroys the node and its whole subtree. Stale
// handles are no-ops.
func (s *Scene) DestroyNodeHierarchy(h NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(h)
	if n == nil {
		return
	}
	s.detachFromParent(h, n)
	s.destroySubtree(h)
}

func (s *Scene) destroySubtree(h NodeHandle) {
	n := s.lookup(h)
	if n == nil {
		return
	}
	children := n.children
	for _, c := range children {
		s.destroySubtree(c)
	}
	s.releaseSlot(h)
}

// releaseSlot marks the slot dead and recycles it. Caller holds the lock.
func (s *Scene) releaseSlot(h NodeHandle) {
	n := &s.nodes[h.index]
	n.alive = false
	n.children = nil
	n.camera = nil
	n.renderable = nil
	s.free = append(s.free, h.index)
}

// SetLocalTransform replaces the node's local transform. Stale handles are
// no-ops.
func (s *Scene) SetLocalTransform(h NodeHandle, t Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		n.local = t
		n.worldDirty = true
	}
}

// LocalTransform returns the node's local transform; the zero Transform for
// stale handles.
func (s *Scene) LocalTransform(h NodeHandle) Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil {
		return n.local
	}
	return Transform{}
}

// SetVisible toggles the node's visibility flag. Stale handles are no-ops.
func (s *Scene) SetVisible(h NodeHandle, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		n.visible = visible
	}
}

// IsVisible reports the node's visibility flag; false for stale handles.
func (s *Scene) IsVisible(h NodeHandle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil {
		return n.visible
	}
	return false
}

// UpdateWorldTransforms recomputes world matrices for the given nodes and
// any of their dirty ancestors. Stale handles are skipped.
func (s *Scene) UpdateWorldTransforms(handles ...NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range handles {
		s.updateWorld(h)
	}
}

// updateWorld recomputes the node's world matrix from its chain of parents.
// Caller holds the lock.
func (s *Scene) updateWorld(h NodeHandle) {
	n := s.lookup(h)
	if n == nil {
		return
	}
	var local [16]float32
	common.ComposeTRS(local[:], n.local.Position, n.local.Rotation, n.local.Scale)

	if p := s.lookup(n.parent); p != nil {
		if p.worldDirty {
			s.updateWorld(n.parent)
		}
		common.Mul4(n.world[:], p.world[:], local[:])
	} else {
		n.world = local
	}
	n.worldDirty = false
}

// UpdateWorldAsRoot sets the node's world matrix directly from its local
// transform, ignoring any parent. Used when a node is created with
// init-world-as-root semantics.
func (s *Scene) UpdateWorldAsRoot(h NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lookup(h)
	if n == nil {
		return
	}
	common.ComposeTRS(n.world[:], n.local.Position, n.local.Rotation, n.local.Scale)
	n.worldDirty = false
}

// WorldMatrix returns a copy of the node's world matrix, recomputing it if
// dirty. Identity for stale handles.
func (s *Scene) WorldMatrix(h NodeHandle) [16]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lookup(h)
	if n == nil {
		var id [16]float32
		common.Identity(id[:])
		return id
	}
	if n.worldDirty {
		s.updateWorld(h)
	}
	return n.world
}

// SetRenderable attaches (or replaces) the node's renderable component.
// Stale handles are no-ops.
func (s *Scene) SetRenderable(h NodeHandle, geometry *mesh.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		n.renderable = &Renderable{Geometry: geometry}
	}
}

// DetachRenderable removes the node's renderable component. Stale handles
// are no-ops.
func (s *Scene) DetachRenderable(h NodeHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		n.renderable = nil
	}
}

// Renderable returns the node's renderable component, or nil.
func (s *Scene) Renderable(h NodeHandle) *Renderable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil {
		return n.renderable
	}
	return nil
}

// SetCamera attaches (or replaces) the node's camera component. Stale
// handles are no-ops.
func (s *Scene) SetCamera(h NodeHandle, cam Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.lookup(h); n != nil {
		c := cam
		n.camera = &c
	}
}

// CameraOf returns a copy of the node's camera component.
//
// Returns:
//   - Camera: the camera component (zero value when absent)
//   - bool: whether the node has a camera
func (s *Scene) CameraOf(h NodeHandle) (Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.lookup(h); n != nil && n.camera != nil {
		return *n.camera, true
	}
	return Camera{}, false
}

// VisibleRenderables walks the tree and returns every live, visible node
// carrying a renderable component, in stable index order. A node hidden by
// its own flag is excluded; visibility does not cascade (the editor toggles
// nodes individually).
func (s *Scene) VisibleRenderables() []RenderableNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RenderableNode
	for i := range s.nodes {
		n := &s.nodes[i]
		if !n.alive || !n.visible || n.renderable == nil {
			continue
		}
		out = append(out, RenderableNode{
			Handle:   NodeHandle{index: uint32(i), gen: n.gen},
			Geometry: n.renderable.Geometry,
			World:    n.world,
		})
	}
	return out
}

// NodeCount returns the number of live nodes.
func (s *Scene) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for i := range s.nodes {
		if s.nodes[i].alive {
			count++
		}
	}
	return count
}

// FindChildByName returns the first direct child of parent with the given
// name.
func (s *Scene) FindChildByName(parent NodeHandle, name string) (NodeHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.lookup(parent)
	if p == nil {
		return NodeHandle{}, false
	}
	for _, c := range p.children {
		if cn := s.lookup(c); cn != nil && cn.name == name {
			return c, true
		}
	}
	return NodeHandle{}, false
}

// RenderableNode is a snapshot row returned by VisibleRenderables.
type RenderableNode struct {
	Handle   NodeHandle
	Geometry *mesh.Geometry
	World    [16]float32
}
