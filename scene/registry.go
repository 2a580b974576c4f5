package scene

import (
	"sync"

	"github.com/abdes/oxygen-interop/common"
)

// NodeRegistry is the process-wide map from 16-byte keys to node handles,
// used for cross-boundary node identification. Hosts register a key when
// they create a node and look the handle back up on later commands.
// Safe for concurrent use from any thread.
type NodeRegistry struct {
	mu    sync.Mutex
	nodes map[common.Key]NodeHandle
}

var globalNodeRegistry = &NodeRegistry{nodes: make(map[common.Key]NodeHandle)}

// Nodes returns the process-wide node registry.
func Nodes() *NodeRegistry {
	return globalNodeRegistry
}

// NewNodeRegistry creates an isolated registry. Production code uses the
// process-wide one from Nodes; isolated registries keep tests hermetic.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[common.Key]NodeHandle)}
}

// Register associates a key with a node handle, replacing any previous
// association for that key.
func (r *NodeRegistry) Register(key common.Key, h NodeHandle) {
	r.mu.Lock()
	r.nodes[key] = h
	r.mu.Unlock()
}

// Unregister removes the association for a key.
//
// Returns:
//   - bool: whether the key was registered
func (r *NodeRegistry) Unregister(key common.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[key]; !ok {
		return false
	}
	delete(r.nodes, key)
	return true
}

// Lookup returns the handle registered under key.
//
// Returns:
//   - NodeHandle: the registered handle (zero when absent)
//   - bool: whether the key was registered
func (r *NodeRegistry) Lookup(key common.Key) (NodeHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.nodes[key]
	return h, ok
}

// ClearAll removes every association. Used on scene teardown.
func (r *NodeRegistry) ClearAll() {
	r.mu.Lock()
	r.nodes = make(map[common.Key]NodeHandle)
	r.mu.Unlock()
}

// Len returns the number of registered keys.
func (r *NodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}
