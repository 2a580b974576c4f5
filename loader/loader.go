// Package loader provides the content-asset services the editor module
// consumes: virtual-path resolution to stable content keys, synchronous
// resident lookup, and asynchronous loads running on a shared worker pool
// with completions delivered back on the engine thread.
package loader

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/mesh"
	"github.com/abdes/oxygen-interop/queue"
)

// PathResolver maps a virtual content path (the part of an "asset:" URI
// after the scheme) to a stable content key.
type PathResolver interface {
	// Resolve returns the content key for a virtual path.
	//
	// Parameters:
	//   - virtualPath: the path to resolve; leading slashes are tolerated
	//
	// Returns:
	//   - common.Key: the content key
	//   - error: when the path is empty after normalization
	Resolve(virtualPath string) (common.Key, error)
}

// contentSalt versions the content-key derivation independently from the
// generated-geometry keys.
const contentSalt = "#content_v1"

// virtualPathResolver derives content keys deterministically from the
// normalized virtual path, so the same path names the same asset across
// processes.
type virtualPathResolver struct{}

var _ PathResolver = virtualPathResolver{}

// NewPathResolver creates the default deterministic path resolver.
func NewPathResolver() PathResolver {
	return virtualPathResolver{}
}

func (virtualPathResolver) Resolve(virtualPath string) (common.Key, error) {
	p := NormalizeVirtualPath(virtualPath)
	if p == "" {
		return common.ZeroKey, fmt.Errorf("loader: empty virtual path %q", virtualPath)
	}

	var k common.Key
	h := fnv.New64a()
	_, _ = h.Write([]byte(p))
	binary.LittleEndian.PutUint64(k[0:8], h.Sum64())
	h = fnv.New64a()
	_, _ = h.Write([]byte(p))
	_, _ = h.Write([]byte(contentSalt))
	binary.LittleEndian.PutUint64(k[8:16], h.Sum64())
	return k, nil
}

// NormalizeVirtualPath strips leading slashes and collapses repeated
// separators so "asset:/a//b" and "asset:a/b" name the same content.
func NormalizeVirtualPath(virtualPath string) string {
	p := strings.TrimLeft(virtualPath, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// Source is where loaded geometry actually comes from. Tests and hosts
// provide implementations; Load runs on a worker goroutine and must be safe
// for concurrent use.
type Source interface {
	Load(key common.Key) (*mesh.Geometry, error)
}

// AssetLoader is the asset service commands consume.
type AssetLoader interface {
	// GetResident returns the geometry for key if it is already loaded.
	GetResident(key common.Key) (*mesh.Geometry, bool)

	// LoadAsync starts a background load for key. The callback runs later on
	// the engine thread, after DispatchCompletions, with either the loaded
	// geometry or the load error. Each call gets exactly one callback.
	LoadAsync(key common.Key, done func(*mesh.Geometry, error))
}

// completion is one finished load waiting for engine-thread delivery.
type completion struct {
	key common.Key
	geo *mesh.Geometry
	err error
	fn  func(*mesh.Geometry, error)
}

// Loader implements AssetLoader over a dynamic worker pool. Loads run
// concurrently; completed loads are parked in a queue and delivered in
// completion order when the engine thread calls DispatchCompletions, so
// geometry application stays on the mutation phase.
type Loader struct {
	mu       sync.Mutex
	source   Source
	resident map[common.Key]*mesh.Geometry

	pool        worker.DynamicWorkerPool
	nextTaskID  int
	completions *queue.Queue[completion]
}

var _ AssetLoader = (*Loader)(nil)

// LoaderOption configures a Loader at construction.
type LoaderOption func(*Loader)

// WithLoadWorkers overrides the worker count for background loads.
func WithLoadWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pool = worker.NewDynamicWorkerPool(n, 256, 1*time.Second)
		}
	}
}

// NewLoader creates a loader over the given source. NewLoader panics if
// source is nil.
//
// Parameters:
//   - source: the content store loads are served from (must not be nil)
//   - options: functional options to further configure the loader
//
// Returns:
//   - *Loader: the newly created loader
func NewLoader(source Source, options ...LoaderOption) *Loader {
	if source == nil {
		panic("loader: NewLoader requires a non-nil Source")
	}
	l := &Loader{
		source:      source,
		resident:    make(map[common.Key]*mesh.Geometry),
		completions: queue.New[completion](),
	}
	for _, option := range options {
		option(l)
	}
	if l.pool == nil {
		l.pool = worker.NewDynamicWorkerPool(max(runtime.NumCPU()/2, 1), 256, 1*time.Second)
	}
	return l
}

// GetResident returns the geometry for key if a previous load made it
// resident.
func (l *Loader) GetResident(key common.Key) (*mesh.Geometry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.resident[key]
	return g, ok
}

// LoadAsync submits a background load for key. Already-resident keys still
// go through the completion queue so callers observe a single delivery path.
func (l *Loader) LoadAsync(key common.Key, done func(*mesh.Geometry, error)) {
	if done == nil {
		return
	}
	l.mu.Lock()
	if g, ok := l.resident[key]; ok {
		l.mu.Unlock()
		l.completions.Enqueue(completion{key: key, geo: g, fn: done})
		return
	}
	id := l.nextTaskID
	l.nextTaskID++
	l.mu.Unlock()

	l.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			g, err := l.source.Load(key)
			if err == nil && g != nil {
				l.mu.Lock()
				l.resident[key] = g
				l.mu.Unlock()
			} else if err == nil {
				err = fmt.Errorf("loader: source returned no geometry for key %s", key)
			}
			l.completions.Enqueue(completion{key: key, geo: g, err: err, fn: done})
			return nil, nil
		},
	})
}

// DispatchCompletions delivers every parked load completion on the calling
// goroutine, which must be the engine thread. A panicking callback is
// recovered and logged; remaining completions still deliver.
//
// Returns:
//   - int: the number of completions delivered
func (l *Loader) DispatchCompletions() int {
	return l.completions.Drain(func(c completion) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.L().Error("asset completion callback panicked",
					"key", c.key.String(), "recover", rec)
			}
		}()
		if c.err != nil {
			logging.L().Warn("asset load failed", "key", c.key.String(), "error", c.err)
			c.fn(nil, c.err)
			return
		}
		c.fn(c.geo, nil)
	})
}

// PendingCompletions reports whether completions await dispatch.
func (l *Loader) PendingCompletions() bool {
	return !l.completions.IsEmpty()
}

// MakeResident inserts geometry directly, for hosts that preload content.
func (l *Loader) MakeResident(key common.Key, g *mesh.Geometry) {
	if g == nil {
		return
	}
	l.mu.Lock()
	l.resident[key] = g
	l.mu.Unlock()
}
