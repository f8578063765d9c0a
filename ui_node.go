package gekkoui

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is the per-entity state of a UI rectangle. GlobalPosition is in screen
// space and is written by NodeLayoutSystem for entities carrying a LocalPosition.
type Node struct {
	GlobalPosition mgl32.Vec2
	Size           mgl32.Vec2
	Color          mgl32.Vec4
}

// LocalPosition is a node's offset from its parent's global position, or the
// screen origin for roots.
type LocalPosition struct {
	Offset mgl32.Vec2
}

var typeOfNode = reflect.TypeFor[Node]()
