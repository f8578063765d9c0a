package gekkoui

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// RenderResource identifies a device resource owned by a Renderer. The zero
// value refers to nothing.
type RenderResource struct {
	id uuid.UUID
}

func NewRenderResource() RenderResource {
	return RenderResource{id: uuid.New()}
}

func (r RenderResource) IsZero() bool   { return r.id == uuid.Nil }
func (r RenderResource) String() string { return r.id.String() }

type BufferUsage uint32

const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
)

func (u BufferUsage) Has(flags BufferUsage) bool { return u&flags == flags }

func (u BufferUsage) String() string {
	names := []string{"MapRead", "MapWrite", "CopySrc", "CopyDst", "Index", "Vertex", "Uniform", "Storage"}
	var parts []string
	for i, name := range names {
		if u&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// Well-known resource names later render stages bind by.
const (
	ResourceUiInstances = "UiInstances"
)

// RenderResources maps resource names to handles. Writers replace a binding
// in one step, readers see either the old or the new handle.
type RenderResources struct {
	mu    sync.RWMutex
	named map[string]RenderResource
}

func NewRenderResources() *RenderResources {
	return &RenderResources{named: make(map[string]RenderResource)}
}

// SetNamedResource binds name to resource, replacing any previous binding.
func (r *RenderResources) SetNamedResource(name string, resource RenderResource) {
	r.mu.Lock()
	r.named[name] = resource
	r.mu.Unlock()
}

func (r *RenderResources) GetNamedResource(name string) (RenderResource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.named[name]
	return res, ok
}

// RemoveNamedResourceIf drops the binding only while it still refers to
// resource, so a stale owner cannot unpublish a newer handle.
func (r *RenderResources) RemoveNamedResourceIf(name string, resource RenderResource) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.named[name]; ok && cur == resource {
		delete(r.named, name)
		return true
	}
	return false
}
