package gekkoui

import (
	"errors"
)

// ErrAllocationFailed is returned when the device cannot provide a buffer.
var ErrAllocationFailed = errors.New("instance buffer allocation failed")

// Renderer is the device side of the engine: it owns GPU buffers and the named
// resource table other render stages look them up in.
type Renderer interface {
	// CreateInstanceBufferWithData allocates a buffer holding recordCount
	// records of recordSize bytes for instanced drawing of mesh.
	CreateInstanceBufferWithData(mesh Mesh, data []byte, recordSize int, recordCount int, usage BufferUsage) (RenderResource, error)
	// RemoveBuffer disposes a buffer previously returned by the renderer.
	RemoveBuffer(buffer RenderResource)
	RenderResources() *RenderResources
}

// RenderContext exposes the installed Renderer to systems.
type RenderContext struct {
	Renderer Renderer
}
