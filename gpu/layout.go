package gpu

import (
	"reflect"
	"strconv"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekkoui"
)

// InstanceBufferLayout is the instance-rate layout of the UiInstances buffer.
func InstanceBufferLayout() wgpu.VertexBufferLayout {
	return createVertexBufferLayout(gekkoui.RectInstance{}, wgpu.VertexStepModeInstance)
}

// QuadBufferLayout is the per-vertex layout of the quad mesh.
func QuadBufferLayout() wgpu.VertexBufferLayout {
	return createVertexBufferLayout(gekkoui.MeshVertex{}, wgpu.VertexStepModeVertex)
}

// createVertexBufferLayout builds attributes from fields tagged
// `gekko:"layout" location:"N" format:"floatK"`. Offsets follow field order
// with no padding, which is how the records are packed.
func createVertexBufferLayout(vertexType any, stepMode wgpu.VertexStepMode) wgpu.VertexBufferLayout {
	t := reflect.TypeOf(vertexType)
	if t.Kind() != reflect.Struct {
		panic("Vertex must be a struct")
	}

	var attributes []wgpu.VertexAttribute
	var offset uint64 = 0

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Tag.Get("gekko") == "layout" {
			location, err := strconv.Atoi(field.Tag.Get("location"))
			if err != nil {
				panic(err)
			}

			attributes = append(attributes, wgpu.VertexAttribute{
				ShaderLocation: uint32(location),
				Offset:         offset,
				Format:         parseFormat(field.Tag.Get("format")),
			})
		}

		offset += uint64(field.Type.Size())
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    stepMode,
		Attributes:  attributes,
	}
}

func parseFormat(name string) wgpu.VertexFormat {
	switch name {
	case "float":
		return wgpu.VertexFormatFloat32
	case "float2":
		return wgpu.VertexFormatFloat32x2
	case "float3":
		return wgpu.VertexFormatFloat32x3
	case "float4":
		return wgpu.VertexFormatFloat32x4
	default:
		panic("unsupported vertex layout format: " + name)
	}
}
