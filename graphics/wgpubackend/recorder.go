package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
)

// recorder records GPU work into one wgpu command encoder and submits it on
// Finish. Recording is single-threaded per recorder, matching the engine's
// per-frame command model.
type recorder struct {
	backend *Backend
	name    string
	encoder *wgpu.CommandEncoder
	tracker *graphics.StateTracker
	pass    *wgpu.RenderPassEncoder
	done    bool
}

var _ graphics.CommandRecorder = (*recorder)(nil)

func (r *recorder) Name() string { return r.name }

func (r *recorder) BeginTrackingWithState(t graphics.Texture, state graphics.ResourceState) {
	r.tracker.BeginTracking(t, state)
}

func (r *recorder) RequireState(t graphics.Texture, state graphics.ResourceState) {
	r.tracker.Require(t, state)
}

// FlushBarriers drains the pending transitions. WebGPU tracks resource usage
// internally and inserts its own barriers, so the accumulated list is only
// reported for diagnostics.
func (r *recorder) FlushBarriers() {
	barriers := r.tracker.Flush()
	if len(barriers) == 0 {
		return
	}
	log := logging.L()
	for _, b := range barriers {
		log.Debug("state transition",
			"recorder", r.name,
			"texture", b.Texture.Name(),
			"from", b.From.String(),
			"to", b.To.String())
	}
}

func (r *recorder) BeginRenderPass(fb graphics.Framebuffer, clear bool) {
	if r.pass != nil || r.encoder == nil || fb == nil {
		return
	}

	var colors []wgpu.RenderPassColorAttachment
	for i := 0; ; i++ {
		att := fb.ColorAttachment(i)
		if att == nil {
			break
		}
		wt, ok := att.(*texture)
		if !ok || wt.view == nil {
			continue
		}
		desc := att.Desc()
		loadOp := wgpu.LoadOpLoad
		if clear {
			loadOp = wgpu.LoadOpClear
		}
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:    wt.view,
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(desc.ClearColor[0]),
				G: float64(desc.ClearColor[1]),
				B: float64(desc.ClearColor[2]),
				A: float64(desc.ClearColor[3]),
			},
		})
	}

	var depth *wgpu.RenderPassDepthStencilAttachment
	if att := fb.DepthAttachment(); att != nil {
		if wt, ok := att.(*texture); ok && wt.view != nil {
			loadOp := wgpu.LoadOpLoad
			if clear {
				loadOp = wgpu.LoadOpClear
			}
			clearDepth := att.Desc().ClearDepth
			if clearDepth == 0 {
				clearDepth = 1.0
			}
			depth = &wgpu.RenderPassDepthStencilAttachment{
				View:            wt.view,
				DepthLoadOp:     loadOp,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: clearDepth,
			}
		}
	}

	if len(colors) == 0 && depth == nil {
		return
	}

	r.pass = r.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:                  r.name,
		ColorAttachments:       colors,
		DepthStencilAttachment: depth,
	})
}

// SetPipeline selects a pipeline registered with the backend. Unknown keys
// are skipped so frames keep rendering while shaders are still compiling.
func (r *recorder) SetPipeline(key string) {
	if r.pass == nil {
		return
	}
	r.backend.mu.Lock()
	p := r.backend.pipelines[key]
	r.backend.mu.Unlock()
	if p == nil {
		logging.L().Debug("pipeline not registered", "recorder", r.name, "key", key)
		return
	}
	r.pass.SetPipeline(p)
}

func (r *recorder) SetViewport(rect common.Rect) {
	if r.pass == nil {
		return
	}
	r.pass.SetViewport(
		float32(rect.X), float32(rect.Y),
		float32(rect.Width), float32(rect.Height),
		0, 1,
	)
}

func (r *recorder) SetScissor(rect common.Rect) {
	if r.pass == nil {
		return
	}
	x, y := rect.X, rect.Y
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	r.pass.SetScissorRect(uint32(x), uint32(y), rect.Width, rect.Height)
}

func (r *recorder) DrawIndexed(indexCount uint32) {
	if r.pass == nil {
		return
	}
	r.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (r *recorder) EndRenderPass() {
	if r.pass == nil {
		return
	}
	r.pass.End()
	r.pass = nil
}

func (r *recorder) CopyTextureRegion(src, dst graphics.Texture, width, height uint32) {
	if r.encoder == nil {
		return
	}
	st, ok := src.(*texture)
	if !ok || st.tex == nil {
		return
	}
	dt, ok := dst.(*texture)
	if !ok || dt.tex == nil {
		return
	}
	r.encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  st.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  dt.tex,
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
}

func (r *recorder) Finish() error {
	if r.done {
		return fmt.Errorf("recorder %q: already finished", r.name)
	}
	r.done = true

	if r.pass != nil {
		r.pass.End()
		r.pass = nil
	}
	if r.encoder == nil {
		return fmt.Errorf("recorder %q: no encoder", r.name)
	}

	commandBuffer, err := r.encoder.Finish(nil)
	if err != nil {
		r.encoder.Release()
		r.encoder = nil
		return fmt.Errorf("recorder %q: %w", r.name, err)
	}

	r.backend.mu.Lock()
	r.backend.queue.Submit(commandBuffer)
	r.backend.mu.Unlock()

	commandBuffer.Release()
	r.encoder.Release()
	r.encoder = nil
	return nil
}
