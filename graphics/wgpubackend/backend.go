// Package wgpubackend implements the graphics capability set over WebGPU via
// the cogentcore/webgpu bindings. It owns the wgpu instance, adapter, device,
// and queue, and optionally a window surface for presentation.
//
// WebGPU synchronizes resource access implicitly, so the explicit barriers
// declared through the state tracker are validated and then discarded. The
// tracking still runs: a backend with explicit transitions would consume the
// same recordings unchanged.
package wgpubackend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/abdes/oxygen-interop/graphics"
)

// Backend is the WebGPU implementation of graphics.Graphics.
type Backend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// surface is non-nil only when the backend was created with a surface
	// descriptor; offscreen-only hosts run without one.
	surface       *wgpu.Surface
	surfaceFormat *wgpu.TextureFormat
	surfaceWidth  uint32
	surfaceHeight uint32

	pipelines map[string]*wgpu.RenderPipeline
	reclaimer *graphics.DeferredReclaimer
}

var _ graphics.Graphics = (*Backend)(nil)

// BackendOption is a functional option for configuring a Backend.
// Use the With* functions to create options.
type BackendOption func(*backendConfig)

type backendConfig struct {
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	framesInFlight       int
}

// WithSurfaceDescriptor attaches a window surface so the backend can present.
//
// Parameters:
//   - desc: the platform surface descriptor (from the window package)
//
// Returns:
//   - BackendOption: option function to apply
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) BackendOption {
	return func(c *backendConfig) {
		c.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests the software fallback adapter. Useful in
// CI environments without a GPU.
//
// Returns:
//   - BackendOption: option function to apply
func WithForceFallbackAdapter() BackendOption {
	return func(c *backendConfig) {
		c.forceFallbackAdapter = true
	}
}

// WithFramesInFlight sets the hold depth of the deferred reclaimer.
//
// Parameters:
//   - n: frames a released resource is held before destruction (minimum 1)
//
// Returns:
//   - BackendOption: option function to apply
func WithFramesInFlight(n int) BackendOption {
	return func(c *backendConfig) {
		c.framesInFlight = n
	}
}

// New creates the WebGPU backend: instance, adapter, device, and queue.
// The calling goroutine is locked to its OS thread because wgpu-native
// requires device creation and submission from a stable thread. New panics
// when no adapter or device can be obtained; there is no useful way to run
// without one.
//
// Parameters:
//   - options: functional options to configure the backend
//
// Returns:
//   - *Backend: the initialized backend
func New(options ...BackendOption) *Backend {
	runtime.LockOSThread()

	cfg := backendConfig{framesInFlight: 3}
	for _, opt := range options {
		opt(&cfg)
	}

	b := &Backend{
		instance:  wgpu.CreateInstance(nil),
		pipelines: make(map[string]*wgpu.RenderPipeline),
		reclaimer: graphics.NewDeferredReclaimer(cfg.framesInFlight),
	}

	if cfg.surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(cfg.surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b
}

// ConfigureSurface (re)configures the window surface swapchain for the given
// pixel size. Must be called before the first Present and after every window
// resize. No-op when the backend has no surface.
//
// Parameters:
//   - width, height: swapchain size in pixels
func (b *Backend) ConfigureSurface(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	// CopyDst lets Present blit a composited backbuffer into the swapchain
	// image without a render pass.
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      *b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceWidth = width
	b.surfaceHeight = height
}

// RegisterPipeline makes a render pipeline selectable by key from command
// recorders. Recorders silently skip SetPipeline calls for unknown keys, so
// hosts can register pipelines lazily as shaders come online.
//
// Parameters:
//   - key: the pipeline key used by SetPipeline
//   - p: the compiled render pipeline
func (b *Backend) RegisterPipeline(key string, p *wgpu.RenderPipeline) {
	b.mu.Lock()
	b.pipelines[key] = p
	b.mu.Unlock()
}

// Device exposes the wgpu device for hosts that compile pipelines.
func (b *Backend) Device() *wgpu.Device {
	return b.device
}

// SurfaceFormat returns the configured swapchain format, or nil before
// ConfigureSurface.
func (b *Backend) SurfaceFormat() *wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *Backend) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Name, err)
	}

	usage := wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	if desc.RenderTarget {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if desc.ShaderResource {
		usage |= wgpu.TextureUsageTextureBinding
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Name,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", desc.Name, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q view: %w", desc.Name, err)
	}

	return &texture{desc: desc, tex: tex, view: view}, nil
}

func (b *Backend) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	for i, c := range desc.Color {
		if _, ok := c.(*texture); !ok {
			return nil, fmt.Errorf("framebuffer %q: color attachment %d is not a wgpu texture", desc.Name, i)
		}
	}
	if desc.Depth != nil {
		if _, ok := desc.Depth.(*texture); !ok {
			return nil, fmt.Errorf("framebuffer %q: depth attachment is not a wgpu texture", desc.Name)
		}
	}
	return &framebuffer{desc: desc}, nil
}

func (b *Backend) AcquireCommandRecorder(queueKey, name string) (graphics.CommandRecorder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("recorder %q: %w", name, err)
	}
	return &recorder{
		backend: b,
		name:    name,
		encoder: encoder,
		tracker: graphics.NewStateTracker(),
	}, nil
}

// Flush blocks until the device has retired all submitted work.
func (b *Backend) Flush() {
	b.device.Poll(true, nil)
}

func (b *Backend) RegisterDeferredRelease(r graphics.Resource) {
	b.reclaimer.Schedule(r)
}

func (b *Backend) Reclaimer() *graphics.DeferredReclaimer {
	return b.reclaimer
}

// QueueKeyFor maps every role to the single wgpu queue. WebGPU exposes one
// queue; the role split exists for backends with dedicated copy or compute
// hardware queues.
func (b *Backend) QueueKeyFor(role graphics.QueueRole) string {
	return "graphics"
}

// Present copies the given texture into the current swapchain image and
// presents it. The copy region is the overlap of the source and the
// swapchain image.
//
// Parameters:
//   - src: the texture to present, typically a surface backbuffer
//
// Returns:
//   - error: swapchain acquisition or submission failure
func (b *Backend) Present(src graphics.Texture) error {
	wt, ok := src.(*texture)
	if !ok || wt == nil {
		return fmt.Errorf("present: source is not a wgpu texture")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return fmt.Errorf("present: backend has no window surface")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("present: acquire swapchain image: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("present: %w", err)
	}

	width := min(src.Width(), b.surfaceWidth)
	height := min(src.Height(), b.surfaceHeight)
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  surfaceTexture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		surfaceTexture.Release()
		return fmt.Errorf("present: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	b.surface.Present()
	surfaceTexture.Release()
	return nil
}

// Destroy flushes outstanding work, drains the reclaimer, and releases the
// device objects. The backend is unusable afterwards.
func (b *Backend) Destroy() {
	b.device.Poll(true, nil)
	b.reclaimer.Drain()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// textureFormat maps the module format enum onto wgpu formats.
func textureFormat(f graphics.Format) (wgpu.TextureFormat, error) {
	switch f {
	case graphics.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case graphics.FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case graphics.FormatDepth32:
		return wgpu.TextureFormatDepth32Float, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("unsupported format %d", f)
	}
}

// texture wraps a wgpu texture and its default view.
type texture struct {
	desc graphics.TextureDesc
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

var _ graphics.Texture = (*texture)(nil)
var _ graphics.Releaser = (*texture)(nil)

func (t *texture) Name() string               { return t.desc.Name }
func (t *texture) Desc() graphics.TextureDesc { return t.desc }
func (t *texture) Width() uint32              { return t.desc.Width }
func (t *texture) Height() uint32             { return t.desc.Height }

// Release destroys the native texture. Called by the deferred reclaimer once
// no in-flight frame references it.
func (t *texture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// framebuffer is a binding of attachment textures. It owns no native objects;
// the attachments are released through their own lifetimes.
type framebuffer struct {
	desc graphics.FramebufferDesc
}

var _ graphics.Framebuffer = (*framebuffer)(nil)

func (f *framebuffer) Name() string                   { return f.desc.Name }
func (f *framebuffer) Desc() graphics.FramebufferDesc { return f.desc }

func (f *framebuffer) ColorAttachment(i int) graphics.Texture {
	if i < 0 || i >= len(f.desc.Color) {
		return nil
	}
	return f.desc.Color[i]
}

func (f *framebuffer) DepthAttachment() graphics.Texture {
	return f.desc.Depth
}
