// Package gpu implements the gekkoui Renderer on a WebGPU device.
package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekkoui"
)

// InstanceBuffer is a device buffer together with what the draw call needs to bind it.
type InstanceBuffer struct {
	Buffer      *wgpu.Buffer
	Mesh        gekkoui.Mesh
	RecordSize  int
	RecordCount int
}

type Renderer struct {
	device    *wgpu.Device
	resources *gekkoui.RenderResources
	logger    gekkoui.Logger

	mu      sync.Mutex
	buffers map[gekkoui.RenderResource]*InstanceBuffer
}

func NewRenderer(device *wgpu.Device, logger gekkoui.Logger) *Renderer {
	if logger == nil {
		logger = gekkoui.NewNopLogger()
	}
	return &Renderer{
		device:    device,
		resources: gekkoui.NewRenderResources(),
		logger:    logger,
		buffers:   make(map[gekkoui.RenderResource]*InstanceBuffer),
	}
}

func (r *Renderer) CreateInstanceBufferWithData(mesh gekkoui.Mesh, data []byte, recordSize int, recordCount int, usage gekkoui.BufferUsage) (gekkoui.RenderResource, error) {
	if len(data) != recordSize*recordCount {
		return gekkoui.RenderResource{}, fmt.Errorf("instance data is %d bytes, want %d records of %d bytes", len(data), recordCount, recordSize)
	}

	buf, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    gekkoui.ResourceUiInstances,
		Contents: data,
		Usage:    toWgpuUsage(usage),
	})
	if err != nil {
		return gekkoui.RenderResource{}, fmt.Errorf("create instance buffer: %w", err)
	}

	res := gekkoui.NewRenderResource()
	r.mu.Lock()
	r.buffers[res] = &InstanceBuffer{
		Buffer:      buf,
		Mesh:        mesh,
		RecordSize:  recordSize,
		RecordCount: recordCount,
	}
	r.mu.Unlock()
	return res, nil
}

func (r *Renderer) RemoveBuffer(buffer gekkoui.RenderResource) {
	r.mu.Lock()
	b, ok := r.buffers[buffer]
	delete(r.buffers, buffer)
	r.mu.Unlock()

	if !ok {
		r.logger.Warnf("gpu: remove of unknown buffer %s", buffer)
		return
	}
	b.Buffer.Release()
}

func (r *Renderer) RenderResources() *gekkoui.RenderResources {
	return r.resources
}

// InstanceBuffer resolves a handle returned by CreateInstanceBufferWithData.
func (r *Renderer) InstanceBuffer(buffer gekkoui.RenderResource) (*InstanceBuffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[buffer]
	return b, ok
}

// NamedInstanceBuffer resolves the buffer currently published under name.
func (r *Renderer) NamedInstanceBuffer(name string) (*InstanceBuffer, bool) {
	res, ok := r.resources.GetNamedResource(name)
	if !ok {
		return nil, false
	}
	return r.InstanceBuffer(res)
}

// Release frees every buffer still held.
func (r *Renderer) Release() {
	r.mu.Lock()
	buffers := r.buffers
	r.buffers = make(map[gekkoui.RenderResource]*InstanceBuffer)
	r.mu.Unlock()

	for _, b := range buffers {
		b.Buffer.Release()
	}
}

func toWgpuUsage(usage gekkoui.BufferUsage) wgpu.BufferUsage {
	mapping := []struct {
		from gekkoui.BufferUsage
		to   wgpu.BufferUsage
	}{
		{gekkoui.BufferUsageMapRead, wgpu.BufferUsageMapRead},
		{gekkoui.BufferUsageMapWrite, wgpu.BufferUsageMapWrite},
		{gekkoui.BufferUsageCopySrc, wgpu.BufferUsageCopySrc},
		{gekkoui.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
		{gekkoui.BufferUsageIndex, wgpu.BufferUsageIndex},
		{gekkoui.BufferUsageVertex, wgpu.BufferUsageVertex},
		{gekkoui.BufferUsageUniform, wgpu.BufferUsageUniform},
		{gekkoui.BufferUsageStorage, wgpu.BufferUsageStorage},
	}

	var res wgpu.BufferUsage
	for _, m := range mapping {
		if usage.Has(m.from) {
			res |= m.to
		}
	}
	return res
}

// RendererModule installs a Renderer on an existing device.
type RendererModule struct {
	Device *wgpu.Device
}

func (m RendererModule) Install(app *gekkoui.App, cmd *gekkoui.Commands) {
	r := NewRenderer(m.Device, app.Logger())
	gekkoui.InstallRenderer(app, gekkoui.RendererWGPU, r)
	app.OnShutdown(r.Release)
}
