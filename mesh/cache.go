package mesh

import (
	"strings"
	"sync"
	"weak"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/logging"
)

// GeneratedURIPrefix is the URI prefix of procedurally generated basic
// shapes. The remainder of the path is the shape type name.
const GeneratedURIPrefix = "asset:///Engine/Generated/BasicShapes/"

// ShapeTypeFromURI extracts and parses the shape type from a generated-shape
// URI.
//
// Parameters:
//   - uri: the full asset URI
//
// Returns:
//   - MeshType: the parsed shape type
//   - bool: false when the URI does not carry the generated-shapes prefix or
//     names an unrecognized shape
func ShapeTypeFromURI(uri string) (MeshType, bool) {
	rest, ok := strings.CutPrefix(uri, GeneratedURIPrefix)
	if !ok {
		return 0, false
	}
	t, err := ParseMeshType(rest)
	if err != nil {
		return 0, false
	}
	return t, true
}

// geometryCache is the process-wide cache of generated geometry. Entries
// hold weak pointers: while any caller keeps a shared reference alive, the
// same *Geometry instance is returned for the same asset key; once all
// references drop, the entry rebuilds on the next miss. A single cache
// serves every lookup path.
type geometryCache struct {
	mu      sync.Mutex
	entries map[common.Key]weak.Pointer[Geometry]
}

var sharedCache = &geometryCache{entries: make(map[common.Key]weak.Pointer[Geometry])}

// GeneratedGeometry returns the shared geometry asset for a generated-shape
// URI, building it on a cache miss. The asset key is derived
// deterministically from the URI, so the same URI always resolves to the
// same key and, while referenced, to the same instance.
//
// Parameters:
//   - uri: a URI carrying GeneratedURIPrefix
//
// Returns:
//   - *Geometry: the shared geometry, or nil for unrecognized URIs
func GeneratedGeometry(uri string) *Geometry {
	t, ok := ShapeTypeFromURI(uri)
	if !ok {
		logging.L().Debug("unrecognized generated-shape uri", "uri", uri)
		return nil
	}
	key := common.DeriveAssetKey(uri)

	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()

	if wp, ok := sharedCache.entries[key]; ok {
		if g := wp.Value(); g != nil {
			return g
		}
	}

	g := &Geometry{Key: key, Name: t.String(), Mesh: Generate(t)}
	sharedCache.entries[key] = weak.Make(g)
	logging.L().Debug("generated geometry built", "uri", uri, "key", key.String())
	return g
}

// PurgeGeometryCache drops every cache entry. Live references held by
// callers stay valid; only the shared identity is forgotten. Intended for
// tests and full teardown.
func PurgeGeometryCache() {
	sharedCache.mu.Lock()
	sharedCache.entries = make(map[common.Key]weak.Pointer[Geometry])
	sharedCache.mu.Unlock()
}
