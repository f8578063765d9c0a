package gekkoui

import (
	"fmt"
	"time"
)

// instanceBufferSlot owns at most one live instance buffer. Replacing the
// handle disposes the previous one; a handle is disposed exactly once.
type instanceBufferSlot struct {
	handle RenderResource
	live   bool
}

func (s *instanceBufferSlot) current() (RenderResource, bool) {
	return s.handle, s.live
}

// replace takes ownership of next and disposes the buffer it supersedes.
func (s *instanceBufferSlot) replace(r Renderer, next RenderResource) (disposed bool) {
	if s.live && s.handle != next {
		r.RemoveBuffer(s.handle)
		disposed = true
	}
	s.handle, s.live = next, true
	return disposed
}

// take gives up ownership without disposing.
func (s *instanceBufferSlot) take() (RenderResource, bool) {
	h, ok := s.handle, s.live
	s.handle, s.live = RenderResource{}, false
	return h, ok
}

// UiResourceProvider keeps the UiInstances buffer in sync with the Node hierarchy.
type UiResourceProvider struct {
	quad           *Mesh
	instanceBuffer instanceBufferSlot
	encoder        InstanceEncoder
	stats          *UiSyncStats
	logger         Logger
}

func NewUiResourceProvider(encoder InstanceEncoder, logger Logger) *UiResourceProvider {
	if logger == nil {
		logger = NewNopLogger()
	}
	encoder.Logger = logger
	return &UiResourceProvider{
		encoder: encoder,
		stats:   &UiSyncStats{},
		logger:  logger,
	}
}

// Initialize loads the unit quad every rect instance is drawn with.
func (p *UiResourceProvider) Initialize(assets *AssetServer) {
	quad := assets.LoadMesh(UnitQuad())
	p.quad = &quad
}

func (p *UiResourceProvider) Quad() (Mesh, bool) {
	if p.quad == nil {
		return Mesh{}, false
	}
	return *p.quad, true
}

// InstanceBuffer is the buffer currently owned by the provider.
func (p *UiResourceProvider) InstanceBuffer() (RenderResource, bool) {
	return p.instanceBuffer.current()
}

func (p *UiResourceProvider) Stats() *UiSyncStats {
	return p.stats
}

// Update runs one synchronization pass. With no nodes in the scene nothing is
// touched, the previous buffer stays alive and published. Otherwise a new
// buffer is allocated, published under ResourceUiInstances and the previous
// buffer is disposed. On allocation failure the previous buffer is kept.
func (p *UiResourceProvider) Update(renderer Renderer, scene SceneGraph) error {
	if p.quad == nil {
		panic("UiResourceProvider.Update called before Initialize")
	}
	start := time.Now()
	defer func() { p.stats.LastPass = time.Since(start) }()
	p.stats.Passes++

	if !hasRoots(scene) {
		return nil
	}

	instances := p.encoder.Encode(scene)
	if len(instances) == 0 {
		return nil
	}

	buffer, err := renderer.CreateInstanceBufferWithData(
		*p.quad,
		EncodeRectInstances(instances),
		RectInstanceSize,
		len(instances),
		BufferUsageCopySrc|BufferUsageVertex,
	)
	if err != nil {
		p.stats.AllocationFailures++
		return fmt.Errorf("%w (%d rects): %w", ErrAllocationFailed, len(instances), err)
	}
	p.stats.Allocations++
	p.stats.Instances = len(instances)

	// Publish before disposing so the name never resolves to a released buffer.
	renderer.RenderResources().SetNamedResource(ResourceUiInstances, buffer)
	if p.instanceBuffer.replace(renderer, buffer) {
		p.stats.Disposals++
	}

	p.logger.Debugf("ui instances: uploaded %d rects into %s", len(instances), buffer)
	return nil
}

// Release unpublishes and disposes the owned buffer. A name rebound by
// someone else is left alone.
func (p *UiResourceProvider) Release(renderer Renderer) {
	buffer, ok := p.instanceBuffer.take()
	if !ok {
		return
	}
	renderer.RenderResources().RemoveNamedResourceIf(ResourceUiInstances, buffer)
	renderer.RemoveBuffer(buffer)
	p.stats.Disposals++
}

// hasRoots reports whether the scene has at least one root node.
func hasRoots(scene SceneGraph) bool {
	for range scene.Roots() {
		return true
	}
	return false
}
