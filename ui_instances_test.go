package gekkoui

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectInstanceSize(t *testing.T) {
	assert.Equal(t, 36, RectInstanceSize)
	assert.Equal(t, uintptr(RectInstanceSize), unsafe.Sizeof(RectInstance{}), "in-memory layout has no padding")
}

func TestInstanceEncoder_PaintOrderDepths(t *testing.T) {
	scene := newFakeScene().
		add(1, nil, Node{GlobalPosition: mgl32.Vec2{0, 0}, Size: mgl32.Vec2{100, 100}, Color: mgl32.Vec4{1, 0, 0, 1}}).
		add(2, ptr(1), Node{GlobalPosition: mgl32.Vec2{10, 10}, Size: mgl32.Vec2{20, 20}, Color: mgl32.Vec4{0, 1, 0, 1}}).
		add(3, ptr(1), Node{GlobalPosition: mgl32.Vec2{50, 50}, Size: mgl32.Vec2{5, 5}, Color: mgl32.Vec4{0, 0, 1, 1}}).
		add(4, ptr(2), Node{GlobalPosition: mgl32.Vec2{12, 12}, Size: mgl32.Vec2{2, 2}, Color: mgl32.Vec4{1, 1, 1, 0.5}})

	instances := NewInstanceEncoder().Encode(scene)
	require.Len(t, instances, 4)

	// Visit order A, B, D, C.
	order := []EntityId{1, 2, 4, 3}
	depths := []float32{0.9999, 0.9998, 0.9997, 0.9996}
	for i, id := range order {
		node := scene.nodes[id]
		assert.Equal(t, node.GlobalPosition, instances[i].Position)
		assert.Equal(t, node.Size, instances[i].Size)
		assert.Equal(t, node.Color, instances[i].Color)
		assert.InDelta(t, depths[i], instances[i].ZIndex, 1e-6)
	}
	for i := 0; i+1 < len(instances); i++ {
		assert.InDelta(t, 0.0001, instances[i].ZIndex-instances[i+1].ZIndex, 1e-6)
		assert.Greater(t, instances[i].ZIndex, instances[i+1].ZIndex)
	}
}

func TestInstanceEncoder_OneRecordPerNode(t *testing.T) {
	scene := newFakeScene()
	var next EntityId = 1
	for r := 0; r < 3; r++ {
		root := next
		scene.add(root, nil, Node{})
		next++
		for c := 0; c < 4; c++ {
			scene.add(next, ptr(root), Node{})
			scene.add(next+1, ptr(next), Node{})
			next += 2
		}
	}

	instances := NewInstanceEncoder().Encode(scene)
	assert.Len(t, instances, len(scene.nodes))
}

func TestInstanceEncoder_SkipsMissingNodes(t *testing.T) {
	scene := abcdScene()
	delete(scene.nodes, 2) // B vanished, D is still reachable through it

	instances := NewInstanceEncoder().Encode(scene)
	require.Len(t, instances, 3)
	assert.Equal(t, mgl32.Vec2{1, 1}, instances[0].Size)
	assert.Equal(t, mgl32.Vec2{4, 4}, instances[1].Size)
	assert.Equal(t, mgl32.Vec2{3, 3}, instances[2].Size)
	// Skipped entities do not consume a depth slot.
	assert.InDelta(t, 0.9998, instances[1].ZIndex, 1e-6)
}

func TestInstanceEncoder_EmptyScene(t *testing.T) {
	assert.Empty(t, NewInstanceEncoder().Encode(newFakeScene()))
}

func TestInstanceEncoder_DepthIsUnbounded(t *testing.T) {
	e := NewInstanceEncoder()
	assert.InDelta(t, 0.0, e.DepthAt(9999), 1e-6)
	assert.InDelta(t, -0.0001, e.DepthAt(10000), 1e-6)

	custom := InstanceEncoder{DepthStart: 0.5, DepthStep: 0.25}
	assert.Equal(t, float32(0), custom.DepthAt(2))
}

func TestEncodeRectInstances_Layout(t *testing.T) {
	inst := RectInstance{
		Position: mgl32.Vec2{1, 2},
		Size:     mgl32.Vec2{3, 4},
		Color:    mgl32.Vec4{0.1, 0.2, 0.3, 0.4},
		ZIndex:   0.9999,
	}
	data := EncodeRectInstances([]RectInstance{inst, inst})
	require.Len(t, data, 2*RectInstanceSize)

	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(2), f(4))
	assert.Equal(t, float32(3), f(8))
	assert.Equal(t, float32(4), f(12))
	assert.Equal(t, float32(0.1), f(16))
	assert.Equal(t, float32(0.4), f(28))
	assert.Equal(t, float32(0.9999), f(32))
	assert.Equal(t, float32(1), f(RectInstanceSize))

	// Matches the in-memory layout on little-endian hosts.
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&inst)), unsafe.Sizeof(inst))
	assert.Equal(t, raw, data[:RectInstanceSize])

	assert.Equal(t, []RectInstance{inst, inst}, DecodeRectInstances(data))
}

func TestEncodeRectInstances_Empty(t *testing.T) {
	assert.Empty(t, EncodeRectInstances(nil))
	assert.Empty(t, DecodeRectInstances([]byte{1, 2, 3}))
}
