package gekkoui

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type AssetId string

// Mesh is a handle to a mesh stored in the AssetServer.
type Mesh struct {
	assetId AssetId
}

func (m Mesh) AssetId() AssetId { return m.assetId }

type MeshVertex struct {
	Position mgl32.Vec3 `gekko:"layout" location:"0" format:"float3"`
	Uv       mgl32.Vec2 `gekko:"layout" location:"1" format:"float2"`
}

type MeshAsset struct {
	version  uint
	vertices []MeshVertex
	indices  []uint16
}

func (a MeshAsset) Vertices() []MeshVertex { return a.vertices }
func (a MeshAsset) Indices() []uint16      { return a.indices }

// MeshType describes geometry the AssetServer can generate.
type MeshType interface {
	build() ([]MeshVertex, []uint16)
}

// MeshTypeQuad is a two-triangle quad in the XY plane given by its corners.
type MeshTypeQuad struct {
	NorthWest mgl32.Vec2
	NorthEast mgl32.Vec2
	SouthWest mgl32.Vec2
	SouthEast mgl32.Vec2
}

// UnitQuad is centered on the origin with side length 1, the geometry every
// UI rect instance scales and translates.
func UnitQuad() MeshTypeQuad {
	return MeshTypeQuad{
		NorthWest: mgl32.Vec2{-0.5, 0.5},
		NorthEast: mgl32.Vec2{0.5, 0.5},
		SouthWest: mgl32.Vec2{-0.5, -0.5},
		SouthEast: mgl32.Vec2{0.5, -0.5},
	}
}

func (q MeshTypeQuad) build() ([]MeshVertex, []uint16) {
	vertices := []MeshVertex{
		{Position: q.SouthWest.Vec3(0), Uv: mgl32.Vec2{0, 1}},
		{Position: q.NorthWest.Vec3(0), Uv: mgl32.Vec2{0, 0}},
		{Position: q.NorthEast.Vec3(0), Uv: mgl32.Vec2{1, 0}},
		{Position: q.SouthEast.Vec3(0), Uv: mgl32.Vec2{1, 1}},
	}
	indices := []uint16{0, 2, 1, 0, 3, 2}
	return vertices, indices
}

type AssetServer struct {
	mu     sync.RWMutex
	meshes map[AssetId]MeshAsset
}

type AssetServerModule struct{}

func NewAssetServer() *AssetServer {
	return &AssetServer{meshes: make(map[AssetId]MeshAsset)}
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer())
}

// LoadMesh generates the geometry described by meshType and stores it under a new id.
func (server *AssetServer) LoadMesh(meshType MeshType) Mesh {
	vertices, indices := meshType.build()
	id := makeAssetId()

	server.mu.Lock()
	server.meshes[id] = MeshAsset{
		version:  0,
		vertices: vertices,
		indices:  indices,
	}
	server.mu.Unlock()

	return Mesh{assetId: id}
}

func (server *AssetServer) Mesh(mesh Mesh) (MeshAsset, error) {
	server.mu.RLock()
	defer server.mu.RUnlock()

	asset, ok := server.meshes[mesh.assetId]
	if !ok {
		return MeshAsset{}, fmt.Errorf("mesh %q not found", mesh.assetId)
	}
	return asset, nil
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
