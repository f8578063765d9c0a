package gekkoui

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// RectInstance is one instanced quad as the UI shader reads it. Records are
// packed back to back without padding:
//
//	offset  0  position  vec2<f32>
//	offset  8  size      vec2<f32>
//	offset 16  color     vec4<f32>
//	offset 32  z_index   f32
type RectInstance struct {
	Position mgl32.Vec2 `gekko:"layout" location:"2" format:"float2"`
	Size     mgl32.Vec2 `gekko:"layout" location:"3" format:"float2"`
	Color    mgl32.Vec4 `gekko:"layout" location:"4" format:"float4"`
	ZIndex   float32    `gekko:"layout" location:"5" format:"float"`
}

// RectInstanceSize is the byte size of one encoded RectInstance.
const RectInstanceSize = 4 * (2 + 2 + 4 + 1)

const (
	DefaultDepthStart float32 = 0.9999
	DefaultDepthStep  float32 = 0.0001
)

// InstanceEncoder turns a scene graph into rect instances. Depth is derived
// from the pre-order index of each emitted record, so earlier visited nodes
// get larger depth values. This is paint order, not real z-ordering.
type InstanceEncoder struct {
	DepthStart float32
	DepthStep  float32
	Logger     Logger
}

func NewInstanceEncoder() InstanceEncoder {
	return InstanceEncoder{
		DepthStart: DefaultDepthStart,
		DepthStep:  DefaultDepthStep,
		Logger:     NewNopLogger(),
	}
}

// DepthAt is the depth of the i-th emitted record. It is not clamped and goes
// negative past DepthStart/DepthStep records.
func (e InstanceEncoder) DepthAt(i int) float32 {
	return float32(float64(e.DepthStart) - float64(i)*float64(e.DepthStep))
}

// Encode walks every root's subtree in order and emits one record per entity
// that still has a Node. Entities without one are skipped, their children are not.
func (e InstanceEncoder) Encode(g SceneGraph) []RectInstance {
	logger := e.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	var instances []RectInstance
	skipped := 0
	for entityId := range SceneOrder(g) {
		node, ok := g.Node(entityId)
		if !ok {
			skipped++
			continue
		}
		instances = append(instances, RectInstance{
			Position: node.GlobalPosition,
			Size:     node.Size,
			Color:    node.Color,
			ZIndex:   e.DepthAt(len(instances)),
		})
	}

	if skipped > 0 {
		logger.Debugf("ui instances: skipped %d entities without a Node", skipped)
	}
	if n := len(instances); n > 0 && instances[n-1].ZIndex < 0 {
		logger.Warnf("ui instances: %d rects push depth below zero (%f)", n, instances[n-1].ZIndex)
	}
	return instances
}

// EncodeRectInstances packs instances little endian in field order.
func EncodeRectInstances(instances []RectInstance) []byte {
	buf := make([]byte, len(instances)*RectInstanceSize)

	for i, inst := range instances {
		rec := buf[i*RectInstanceSize : (i+1)*RectInstanceSize]
		off := 0
		put := func(v float32) {
			binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(v))
			off += 4
		}

		put(inst.Position.X())
		put(inst.Position.Y())
		put(inst.Size.X())
		put(inst.Size.Y())
		for _, c := range inst.Color {
			put(c)
		}
		put(inst.ZIndex)
	}
	return buf
}

// DecodeRectInstances is the inverse of EncodeRectInstances. Trailing bytes
// that do not form a whole record are ignored.
func DecodeRectInstances(data []byte) []RectInstance {
	instances := make([]RectInstance, len(data)/RectInstanceSize)

	for i := range instances {
		rec := data[i*RectInstanceSize:]
		get := func(idx int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(rec[idx*4:]))
		}
		instances[i] = RectInstance{
			Position: mgl32.Vec2{get(0), get(1)},
			Size:     mgl32.Vec2{get(2), get(3)},
			Color:    mgl32.Vec4{get(4), get(5), get(6), get(7)},
			ZIndex:   get(8),
		}
	}
	return instances
}
