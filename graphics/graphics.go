// Package graphics defines the capability set the interop module consumes
// from a graphics backend: texture and framebuffer creation, command
// recording with resource-state tracking, and deferred resource release.
// Backends implement Graphics; the module never talks to a native API
// directly.
package graphics

import "github.com/abdes/oxygen-interop/common"

// Format enumerates the texture formats the module creates.
type Format int

const (
	FormatUnknown Format = iota
	// FormatRGBA8Unorm is the offscreen view color format.
	FormatRGBA8Unorm
	// FormatBGRA8Unorm is the typical surface backbuffer format.
	FormatBGRA8Unorm
	// FormatDepth32 is the 32-bit float depth format.
	FormatDepth32
)

// ResourceState is the logical GPU state of a texture, used by the command
// recorder's state tracker to arrange barriers.
type ResourceState int

const (
	StateUnknown ResourceState = iota
	StateCommon
	StateRenderTarget
	StateDepthWrite
	StateShaderResource
	StateCopySource
	StateCopyDest
	StatePresent
)

// String returns a short name for logging.
func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "Common"
	case StateRenderTarget:
		return "RenderTarget"
	case StateDepthWrite:
		return "DepthWrite"
	case StateShaderResource:
		return "ShaderResource"
	case StateCopySource:
		return "CopySource"
	case StateCopyDest:
		return "CopyDest"
	case StatePresent:
		return "Present"
	default:
		return "Unknown"
	}
}

// QueueRole selects which hardware queue a command recorder submits to.
type QueueRole int

const (
	QueueRoleGraphics QueueRole = iota
	QueueRoleCompute
	QueueRoleCopy
)

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Name           string
	Width          uint32
	Height         uint32
	Format         Format
	RenderTarget   bool
	ShaderResource bool
	// InitialState is the state the texture is created in; the recorder's
	// tracker uses it as the tracking baseline.
	InitialState ResourceState
	ClearColor   common.Color
	ClearDepth   float32
}

// Resource is anything that can be handed to the deferred reclaimer.
type Resource interface {
	// Name returns the debug name of the resource.
	Name() string
}

// Texture is an opaque GPU texture handle.
type Texture interface {
	Resource
	Desc() TextureDesc
	Width() uint32
	Height() uint32
}

// FramebufferDesc describes a framebuffer: one or more color attachments and
// an optional depth attachment.
type FramebufferDesc struct {
	Name  string
	Color []Texture
	Depth Texture
}

// Framebuffer is an opaque render-target binding of textures.
type Framebuffer interface {
	Resource
	Desc() FramebufferDesc
	// ColorAttachment returns the i-th color attachment, or nil when out of
	// range.
	ColorAttachment(i int) Texture
	// DepthAttachment returns the depth attachment, or nil when absent.
	DepthAttachment() Texture
}

// CommandRecorder records GPU work for one submission. Resource states are
// tracked per recorder: passes declare required states and FlushBarriers
// emits whatever transitions are pending.
type CommandRecorder interface {
	// Name returns the debug name given at acquisition.
	Name() string

	// BeginTrackingWithState establishes the assumed current state of a
	// texture. A second call for the same texture is ignored.
	BeginTrackingWithState(t Texture, state ResourceState)

	// RequireState records that the texture must be in the given state before
	// subsequent commands. The transition is deferred until FlushBarriers.
	RequireState(t Texture, state ResourceState)

	// FlushBarriers emits all pending state transitions.
	FlushBarriers()

	// BeginRenderPass starts recording draw commands into the framebuffer.
	// clear selects whether attachments are cleared on load using their
	// descriptors' clear values.
	BeginRenderPass(fb Framebuffer, clear bool)

	// SetPipeline selects the pipeline for subsequent draws by key.
	SetPipeline(key string)

	// SetViewport sets the viewport rectangle for subsequent draws.
	SetViewport(r common.Rect)

	// SetScissor sets the scissor rectangle for subsequent draws.
	SetScissor(r common.Rect)

	// DrawIndexed records one indexed draw.
	DrawIndexed(indexCount uint32)

	// EndRenderPass finishes the current render pass.
	EndRenderPass()

	// CopyTextureRegion copies a width x height region from src to dst
	// (single mip, single slice). Both must already be in the required copy
	// states.
	CopyTextureRegion(src, dst Texture, width, height uint32)

	// Finish submits the recorded work.
	//
	// Returns:
	//   - error: submission failure; the frame's output may be partial
	Finish() error
}

// Graphics is the backend capability set consumed by the module.
type Graphics interface {
	// CreateTexture creates a texture per the descriptor.
	CreateTexture(desc TextureDesc) (Texture, error)

	// CreateFramebuffer creates a framebuffer binding the given attachments.
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)

	// AcquireCommandRecorder returns a recorder that submits to the queue
	// identified by queueKey when finished.
	AcquireCommandRecorder(queueKey, name string) (CommandRecorder, error)

	// Flush blocks until the backend has retired all submitted work and holds
	// no transient references to external resources.
	Flush()

	// RegisterDeferredRelease schedules a resource for destruction once all
	// in-flight frames referencing it have retired. Never releases
	// synchronously.
	RegisterDeferredRelease(r Resource)

	// Reclaimer exposes the deferred-release queue for per-frame processing.
	Reclaimer() *DeferredReclaimer

	// QueueKeyFor maps a queue role to the backend's queue key.
	QueueKeyFor(role QueueRole) string
}
