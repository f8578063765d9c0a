package gekkoui

import (
	"fmt"
	"slices"
	"sync"
)

// HeadlessRenderer keeps buffers in host memory. It backs tests and runs
// without a GPU, and can be told to fail allocations.
type HeadlessRenderer struct {
	mu        sync.Mutex
	resources *RenderResources
	buffers   map[RenderResource]HeadlessBuffer

	allocations     int
	disposals       int
	invalidRemovals []RenderResource

	failNext        int
	allocationLimit int
}

// HeadlessBuffer is what a headless allocation recorded.
type HeadlessBuffer struct {
	Mesh        Mesh
	Data        []byte
	RecordSize  int
	RecordCount int
	Usage       BufferUsage
}

func NewHeadlessRenderer() *HeadlessRenderer {
	return &HeadlessRenderer{
		resources: NewRenderResources(),
		buffers:   make(map[RenderResource]HeadlessBuffer),
	}
}

func (r *HeadlessRenderer) CreateInstanceBufferWithData(mesh Mesh, data []byte, recordSize int, recordCount int, usage BufferUsage) (RenderResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failNext > 0 {
		r.failNext--
		return RenderResource{}, fmt.Errorf("headless: injected failure for %d records", recordCount)
	}
	if r.allocationLimit > 0 && recordCount > r.allocationLimit {
		return RenderResource{}, fmt.Errorf("headless: %d records exceed limit of %d", recordCount, r.allocationLimit)
	}
	if len(data) != recordSize*recordCount {
		return RenderResource{}, fmt.Errorf("headless: %d bytes do not hold %d records of %d bytes", len(data), recordCount, recordSize)
	}

	res := NewRenderResource()
	r.buffers[res] = HeadlessBuffer{
		Mesh:        mesh,
		Data:        slices.Clone(data),
		RecordSize:  recordSize,
		RecordCount: recordCount,
		Usage:       usage,
	}
	r.allocations++
	return res, nil
}

// RemoveBuffer records removals of unknown or already removed buffers instead of failing.
func (r *HeadlessRenderer) RemoveBuffer(buffer RenderResource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buffers[buffer]; !ok {
		r.invalidRemovals = append(r.invalidRemovals, buffer)
		return
	}
	delete(r.buffers, buffer)
	r.disposals++
}

func (r *HeadlessRenderer) RenderResources() *RenderResources {
	return r.resources
}

// FailNextAllocations makes the next n allocations fail.
func (r *HeadlessRenderer) FailNextAllocations(n int) {
	r.mu.Lock()
	r.failNext = n
	r.mu.Unlock()
}

// SetAllocationLimit makes allocations above limit records fail. Zero disables the limit.
func (r *HeadlessRenderer) SetAllocationLimit(limit int) {
	r.mu.Lock()
	r.allocationLimit = limit
	r.mu.Unlock()
}

func (r *HeadlessRenderer) Buffer(buffer RenderResource) (HeadlessBuffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[buffer]
	return b, ok
}

func (r *HeadlessRenderer) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

func (r *HeadlessRenderer) Allocations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocations
}

func (r *HeadlessRenderer) Disposals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposals
}

func (r *HeadlessRenderer) InvalidRemovals() []RenderResource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.invalidRemovals)
}

// HeadlessRendererModule installs a HeadlessRenderer as the App's renderer.
type HeadlessRendererModule struct {
	// AllocationLimit fails allocations above this many records. Zero means no limit.
	AllocationLimit int
}

func (m HeadlessRendererModule) Install(app *App, cmd *Commands) {
	r := NewHeadlessRenderer()
	r.SetAllocationLimit(m.AllocationLimit)
	InstallRenderer(app, RendererHeadless, r)
}
