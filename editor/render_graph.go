package editor

import (
	"fmt"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/graphics"
	"github.com/abdes/oxygen-interop/logging"
	"github.com/abdes/oxygen-interop/scene"
)

// PassConfig is the per-frame wiring of one render pass: the attachments it
// draws into and the pipeline it selects. Attachment references are cleared
// before any surface resize so no pass pins a dying backbuffer.
type PassConfig struct {
	Name        string
	Color       graphics.Texture
	Depth       graphics.Texture
	ClearColor  common.Color
	ClearDepth  float32
	PipelineKey string
}

// RenderContext is the reusable per-view execution context passed through
// the passes of one graph run.
type RenderContext struct {
	Scene       *scene.Scene
	Camera      scene.NodeHandle
	Framebuffer graphics.Framebuffer
	Viewport    common.Rect
}

// RenderPass is one stage of the render graph. PrepareResources declares the
// resource states the pass needs; Execute records its draws. Errors and
// panics are contained at the pass boundary by RunPasses.
type RenderPass interface {
	Name() string
	PrepareResources(rc *RenderContext, rec graphics.CommandRecorder) error
	Execute(rc *RenderContext, rec graphics.CommandRecorder) error
}

// RenderGraph sequences the three editor passes for one view:
// DepthPrePass, then ShaderPass, then TransparentPass. Pass configs hold the
// current frame's attachments; the graph itself never emits barriers. Each
// pass declares required states and the recorder's tracker arranges them.
type RenderGraph struct {
	depthCfg       PassConfig
	shaderCfg      PassConfig
	transparentCfg PassConfig

	passes []RenderPass
	rc     RenderContext
}

// NewRenderGraph creates a graph with its three pass instances.
func NewRenderGraph() *RenderGraph {
	g := &RenderGraph{
		depthCfg:       PassConfig{Name: "DepthPrePass", ClearDepth: 1.0, PipelineKey: "depth_prepass"},
		shaderCfg:      PassConfig{Name: "ShaderPass", PipelineKey: "forward_opaque"},
		transparentCfg: PassConfig{Name: "TransparentPass", PipelineKey: "forward_transparent"},
	}
	g.passes = []RenderPass{
		&depthPrePass{cfg: &g.depthCfg},
		&shaderPass{cfg: &g.shaderCfg},
		&transparentPass{cfg: &g.transparentCfg},
	}
	return g
}

// Passes returns the pass instances in execution order.
func (g *RenderGraph) Passes() []RenderPass { return g.passes }

// PrepareForRenderFrame binds the framebuffer's attachments into the pass
// configs for this frame. Absent attachments clear the corresponding config
// slots.
func (g *RenderGraph) PrepareForRenderFrame(fb graphics.Framebuffer) {
	g.rc.Framebuffer = fb
	if fb == nil {
		g.ClearBackbufferReferences()
		return
	}
	color := fb.ColorAttachment(0)
	depth := fb.DepthAttachment()

	g.depthCfg.Depth = depth
	g.shaderCfg.Color = color
	g.transparentCfg.Color = color
	g.transparentCfg.Depth = depth
	if color != nil {
		g.shaderCfg.ClearColor = color.Desc().ClearColor
	}
}

// ClearBackbufferReferences drops every attachment reference held by the
// pass configs. Must run before a surface resize.
func (g *RenderGraph) ClearBackbufferReferences() {
	g.rc.Framebuffer = nil
	g.depthCfg.Depth = nil
	g.shaderCfg.Color = nil
	g.transparentCfg.Color = nil
	g.transparentCfg.Depth = nil
}

// RunPasses executes the passes in order. A pass that fails or panics is
// logged and skipped; later passes still run, so the frame's output may be
// partial but the hook never faults.
func (g *RenderGraph) RunPasses(rc *RenderContext, rec graphics.CommandRecorder) {
	if rc == nil || rec == nil {
		return
	}
	for _, p := range g.passes {
		g.runPass(p, rc, rec)
	}
}

func (g *RenderGraph) runPass(p RenderPass, rc *RenderContext, rec graphics.CommandRecorder) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("render pass panicked", "pass", p.Name(), "recover", r)
		}
	}()
	if err := p.PrepareResources(rc, rec); err != nil {
		logging.L().Error("render pass prepare failed", "pass", p.Name(), "error", err)
		return
	}
	if err := p.Execute(rc, rec); err != nil {
		logging.L().Error("render pass execute failed", "pass", p.Name(), "error", err)
	}
}

// drawRenderables records one indexed draw per renderable matching the
// opacity filter.
//
// Returns:
//   - int: the number of draws recorded
func drawRenderables(rc *RenderContext, rec graphics.CommandRecorder, opaque bool) int {
	if rc.Scene == nil {
		return 0
	}
	drawn := 0
	for _, r := range rc.Scene.VisibleRenderables() {
		if r.Geometry == nil || r.Geometry.Mesh == nil {
			continue
		}
		if r.Geometry.IsOpaque() != opaque {
			continue
		}
		rec.DrawIndexed(uint32(len(r.Geometry.Mesh.Indices)))
		drawn++
	}
	return drawn
}

// depthPrePass lays down depth for opaque geometry before any shading.
type depthPrePass struct {
	cfg *PassConfig
}

func (p *depthPrePass) Name() string { return p.cfg.Name }

func (p *depthPrePass) PrepareResources(rc *RenderContext, rec graphics.CommandRecorder) error {
	if p.cfg.Depth == nil {
		return fmt.Errorf("no depth attachment bound")
	}
	rec.RequireState(p.cfg.Depth, graphics.StateDepthWrite)
	rec.FlushBarriers()
	return nil
}

func (p *depthPrePass) Execute(rc *RenderContext, rec graphics.CommandRecorder) error {
	rec.BeginRenderPass(rc.Framebuffer, true)
	rec.SetPipeline(p.cfg.PipelineKey)
	rec.SetViewport(rc.Viewport)
	rec.SetScissor(rc.Viewport)
	drawRenderables(rc, rec, true)
	rec.EndRenderPass()
	return nil
}

// shaderPass shades opaque geometry against the pre-laid depth.
type shaderPass struct {
	cfg *PassConfig
}

func (p *shaderPass) Name() string { return p.cfg.Name }

func (p *shaderPass) PrepareResources(rc *RenderContext, rec graphics.CommandRecorder) error {
	if p.cfg.Color == nil {
		return fmt.Errorf("no color attachment bound")
	}
	rec.RequireState(p.cfg.Color, graphics.StateRenderTarget)
	rec.FlushBarriers()
	return nil
}

func (p *shaderPass) Execute(rc *RenderContext, rec graphics.CommandRecorder) error {
	rec.BeginRenderPass(rc.Framebuffer, true)
	rec.SetPipeline(p.cfg.PipelineKey)
	rec.SetViewport(rc.Viewport)
	rec.SetScissor(rc.Viewport)
	drawRenderables(rc, rec, true)
	rec.EndRenderPass()
	return nil
}

// transparentPass blends non-opaque geometry over the shaded result. Loads
// existing attachments; never clears.
type transparentPass struct {
	cfg *PassConfig
}

func (p *transparentPass) Name() string { return p.cfg.Name }

func (p *transparentPass) PrepareResources(rc *RenderContext, rec graphics.CommandRecorder) error {
	if p.cfg.Color == nil {
		return fmt.Errorf("no color attachment bound")
	}
	rec.RequireState(p.cfg.Color, graphics.StateRenderTarget)
	if p.cfg.Depth != nil {
		rec.RequireState(p.cfg.Depth, graphics.StateDepthWrite)
	}
	rec.FlushBarriers()
	return nil
}

func (p *transparentPass) Execute(rc *RenderContext, rec graphics.CommandRecorder) error {
	rec.BeginRenderPass(rc.Framebuffer, false)
	rec.SetPipeline(p.cfg.PipelineKey)
	rec.SetViewport(rc.Viewport)
	rec.SetScissor(rc.Viewport)
	drawRenderables(rc, rec, false)
	rec.EndRenderPass()
	return nil
}
