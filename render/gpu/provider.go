package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/framepipe/pipeline/scene"
	"github.com/gekko3d/framepipe/render/mesh"
	"github.com/gekko3d/framepipe/render/shaders"
)

const DefaultFont = "default"

var ErrForeignHandle = errors.New("gpu: handle not owned by this provider")

type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

type fontResources struct {
	atlas     *mesh.Atlas
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
	released  bool
}

func (f *fontResources) release() {
	f.released = true
	if f.bindGroup != nil {
		f.bindGroup.Release()
	}
	if f.view != nil {
		f.view.Release()
	}
	if f.texture != nil {
		f.texture.Release()
	}
}

// node is the handle type handed to the scene cache.
type node struct {
	kind    scene.Kind
	font    *fontResources
	buffer  *wgpu.Buffer
	count   uint32
	visible bool
	live    bool
}

// Provider owns one vertex buffer per scene node and draws the visible ones
// with a single alpha-blended pipeline. Geometry is baked in NDC against the
// current screen size, so a resize must be followed by a rebuild of every
// node (the viewport revision does this through the cache).
type Provider struct {
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Pipeline *wgpu.RenderPipeline
	Sampler  *wgpu.Sampler

	fonts map[string]*fontResources
	nodes []*node

	// replaced atlases still bound by some node; freed by sweepFonts
	retired []*fontResources

	screen mesh.Screen
	logger Logger
}

func NewProvider(device *wgpu.Device, format wgpu.TextureFormat, width, height int, logger Logger) (*Provider, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "PrimitiveShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.PrimitiveWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create primitive shader module: %w", err)
	}
	defer shaderModule.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "PrimitivePipeline",
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(mesh.Vertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create primitive pipeline: %w", err)
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		pipeline.Release()
		return nil, fmt.Errorf("failed to create atlas sampler: %w", err)
	}

	p := &Provider{
		Device:   device,
		Queue:    device.GetQueue(),
		Pipeline: pipeline,
		Sampler:  sampler,
		fonts:    make(map[string]*fontResources),
		screen:   mesh.Screen{Width: float32(width), Height: float32(height)},
		logger:   logger,
	}

	if err := p.AddFont(DefaultFont, mesh.DefaultAtlas()); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// AddFont uploads an atlas and makes it addressable by TextProps.Font.
// Re-adding a name replaces the old atlas; existing text keeps the old one
// until its next rebuild, and the old GPU resources are freed once no node
// uses them.
func (p *Provider) AddFont(name string, atlas *mesh.Atlas) error {
	w, h := atlas.Image.Bounds().Dx(), atlas.Image.Bounds().Dy()
	tex, err := p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "FontAtlas:" + name,
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to create atlas texture %q: %w", name, err)
	}

	err = p.Queue.WriteTexture(tex.AsImageCopy(), atlas.Image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(atlas.Image.Stride),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to upload atlas %q: %w", name, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to create atlas view %q: %w", name, err)
	}

	bg, err := p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "FontAtlasBG:" + name,
		Layout: p.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: p.Sampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("failed to create atlas bind group %q: %w", name, err)
	}

	p.replaceFont(name, &fontResources{atlas: atlas, texture: tex, view: view, bindGroup: bg})
	return nil
}

func (p *Provider) replaceFont(name string, f *fontResources) {
	if old, ok := p.fonts[name]; ok && old != f {
		p.retired = append(p.retired, old)
	}
	p.fonts[name] = f
	p.sweepFonts()
}

// sweepFonts releases retired atlases that no live node references.
func (p *Provider) sweepFonts() {
	if len(p.retired) == 0 {
		return
	}
	kept := p.retired[:0]
	for _, f := range p.retired {
		if p.fontInUse(f) {
			kept = append(kept, f)
			continue
		}
		f.release()
	}
	clear(p.retired[len(kept):])
	p.retired = kept
}

func (p *Provider) fontInUse(f *fontResources) bool {
	for _, n := range p.nodes {
		if n.live && n.font == f {
			return true
		}
	}
	return false
}

// Font returns the atlas registered under name, falling back to the default.
func (p *Provider) Font(name string) *mesh.Atlas {
	return p.font(name).atlas
}

func (p *Provider) font(name string) *fontResources {
	if f, ok := p.fonts[name]; ok {
		return f
	}
	if name != "" {
		p.logger.Warnf("unknown font %q, using %s", name, DefaultFont)
	}
	return p.fonts[DefaultFont]
}

// SetScreen records the framebuffer size used to bake new geometry.
func (p *Provider) SetScreen(width, height int) {
	p.screen = mesh.Screen{Width: float32(width), Height: float32(height)}
}

func (p *Provider) CreateRect(at scene.Placement, props scene.RectProps) (scene.Handle, error) {
	return p.create(scene.KindRect, nil, mesh.Rect(p.screen, at, props))
}

func (p *Provider) UpdateRect(h scene.Handle, at scene.Placement, props scene.RectProps) error {
	return p.update(h, scene.KindRect, nil, mesh.Rect(p.screen, at, props))
}

func (p *Provider) CreateGrid(at scene.Placement, props scene.GridProps) (scene.Handle, error) {
	return p.create(scene.KindGrid, nil, mesh.Grid(p.screen, at, props))
}

func (p *Provider) UpdateGrid(h scene.Handle, at scene.Placement, props scene.GridProps) error {
	return p.update(h, scene.KindGrid, nil, mesh.Grid(p.screen, at, props))
}

func (p *Provider) CreateText(at scene.Placement, props scene.TextProps) (scene.Handle, error) {
	f := p.font(props.Font)
	return p.create(scene.KindText, f, mesh.Text(p.screen, f.atlas, at, props))
}

func (p *Provider) UpdateText(h scene.Handle, at scene.Placement, props scene.TextProps) error {
	f := p.font(props.Font)
	return p.update(h, scene.KindText, f, mesh.Text(p.screen, f.atlas, at, props))
}

func (p *Provider) SetVisible(h scene.Handle, visible bool) {
	if n, ok := h.(*node); ok && n.live {
		n.visible = visible
	}
}

// Release frees the node's vertex buffer and drops it from the draw list.
func (p *Provider) Release(h scene.Handle) {
	n, ok := h.(*node)
	if !ok || !n.live {
		return
	}
	n.live = false
	n.visible = false
	if n.buffer != nil {
		n.buffer.Release()
		n.buffer = nil
	}
	for i, other := range p.nodes {
		if other == n {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			break
		}
	}
	p.sweepFonts()
}

func (p *Provider) create(kind scene.Kind, f *fontResources, vertices []mesh.Vertex) (scene.Handle, error) {
	n := &node{kind: kind, font: f, visible: true, live: true}
	if err := p.upload(n, vertices); err != nil {
		return nil, err
	}
	p.nodes = append(p.nodes, n)
	return n, nil
}

func (p *Provider) update(h scene.Handle, kind scene.Kind, f *fontResources, vertices []mesh.Vertex) error {
	n, ok := h.(*node)
	if !ok || !n.live {
		return ErrForeignHandle
	}
	if n.kind != kind {
		return fmt.Errorf("gpu: update %s on %s node", kind, n.kind)
	}
	prev := n.font
	n.font = f
	if prev != f {
		p.sweepFonts()
	}
	return p.upload(n, vertices)
}

// upload writes vertices into the node's buffer, growing it when needed.
func (p *Provider) upload(n *node, vertices []mesh.Vertex) error {
	n.count = uint32(len(vertices))
	if len(vertices) == 0 {
		return nil
	}

	size := uint64(len(vertices)) * uint64(unsafe.Sizeof(mesh.Vertex{}))
	if n.buffer == nil || n.buffer.GetSize() < size {
		if n.buffer != nil {
			n.buffer.Release()
		}
		buf, err := p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "PrimitiveVertexBuffer",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			n.buffer = nil
			n.count = 0
			return fmt.Errorf("failed to create vertex buffer: %w", err)
		}
		n.buffer = buf
	}

	if err := p.Queue.WriteBuffer(n.buffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)); err != nil {
		return fmt.Errorf("failed to write vertex buffer: %w", err)
	}
	return nil
}

// Draw records every visible node into pass in creation order.
func (p *Provider) Draw(pass *wgpu.RenderPassEncoder) {
	if len(p.nodes) == 0 {
		return
	}

	pass.SetPipeline(p.Pipeline)
	var bound *wgpu.BindGroup
	solid := p.fonts[DefaultFont].bindGroup

	for _, n := range p.nodes {
		if !n.visible || n.count == 0 || n.buffer == nil {
			continue
		}
		bg := solid
		if n.font != nil {
			bg = n.font.bindGroup
		}
		if bg != bound {
			pass.SetBindGroup(0, bg, nil)
			bound = bg
		}
		pass.SetVertexBuffer(0, n.buffer, 0, n.buffer.GetSize())
		pass.Draw(n.count, 1, 0, 0)
	}
}

// Nodes reports how many nodes hold GPU buffers.
func (p *Provider) Nodes() int { return len(p.nodes) }

// Close releases every GPU resource the provider owns.
func (p *Provider) Close() {
	for _, n := range p.nodes {
		if n.buffer != nil {
			n.buffer.Release()
			n.buffer = nil
		}
		n.live = false
	}
	p.nodes = nil
	for name, f := range p.fonts {
		f.release()
		delete(p.fonts, name)
	}
	for _, f := range p.retired {
		f.release()
	}
	p.retired = nil
	if p.Sampler != nil {
		p.Sampler.Release()
		p.Sampler = nil
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
}
