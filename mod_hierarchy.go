package gekkoui

import (
	"iter"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Parent links an entity to its parent. Entities carrying a Node but no Parent are roots.
type Parent struct {
	Entity EntityId
}

// SceneGraph is the read-only view of the UI hierarchy a synchronization pass works on.
type SceneGraph interface {
	// Roots yields every Node entity without a Parent.
	Roots() iter.Seq[EntityId]
	// Children yields the direct children of the entity.
	Children(entityId EntityId) iter.Seq[EntityId]
	// Node reads the entity's Node component. A miss is not an error, the
	// entity may have lost the component or been removed.
	Node(entityId EntityId) (Node, bool)
}

// Visit results.
const (
	Continue = true
	Break    = false
)

// Visitor is called once per entity reached by WalkHierarchy. Returning Break
// skips the entity's subtree; siblings are still visited.
type Visitor interface {
	Visit(entityId EntityId) bool
}

type VisitorFunc func(entityId EntityId) bool

func (f VisitorFunc) Visit(entityId EntityId) bool { return f(entityId) }

// WalkHierarchy visits root and then its descendants depth first, parents
// before children, children in the order the graph yields them.
func WalkHierarchy(g SceneGraph, root EntityId, v Visitor) {
	walkHierarchy(g, root, func(entityId EntityId) (bool, bool) {
		return v.Visit(entityId), true
	})
}

// Descendants is the lazy form of WalkHierarchy: root and every descendant in
// visit order. The sequence can be ranged over more than once.
func Descendants(g SceneGraph, root EntityId) iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		walkHierarchy(g, root, func(entityId EntityId) (bool, bool) {
			more := yield(entityId)
			return more, more
		})
	}
}

// SceneOrder yields every entity reachable from the graph's roots, root by root.
func SceneOrder(g SceneGraph) iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for root := range g.Roots() {
			for entityId := range Descendants(g, root) {
				if !yield(entityId) {
					return
				}
			}
		}
	}
}

// walkHierarchy is an explicit-stack pre-order walk. visit reports whether to
// descend into the entity and whether to keep walking at all. Entities already
// seen are skipped so a malformed graph cannot loop forever.
func walkHierarchy(g SceneGraph, root EntityId, visit func(EntityId) (descend bool, more bool)) {
	stack := []EntityId{root}
	seen := make(set[EntityId])

	for len(stack) > 0 {
		entityId := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[entityId]; ok {
			continue
		}
		seen[entityId] = struct{}{}

		descend, more := visit(entityId)
		if !more {
			return
		}
		if !descend {
			continue
		}

		// Push in reverse so the first child is popped first.
		children := slices.Collect(g.Children(entityId))
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// SceneSnapshot indexes the world's parent links once per pass. Roots and
// children are ordered by entity id, i.e. creation order.
type SceneSnapshot struct {
	ecs      *Ecs
	roots    []EntityId
	children map[EntityId][]EntityId
}

func SnapshotScene(cmd *Commands) *SceneSnapshot {
	s := &SceneSnapshot{
		ecs:      cmd.app.ecs,
		children: make(map[EntityId][]EntityId),
	}

	MakeQuery1[Node](cmd).Without(Parent{}).Map(func(eid EntityId, _ *Node) bool {
		s.roots = append(s.roots, eid)
		return true
	})
	MakeQuery1[Parent](cmd).Map(func(eid EntityId, p *Parent) bool {
		s.children[p.Entity] = append(s.children[p.Entity], eid)
		return true
	})

	slices.Sort(s.roots)
	for _, kids := range s.children {
		slices.Sort(kids)
	}
	return s
}

func (s *SceneSnapshot) Roots() iter.Seq[EntityId] {
	return slices.Values(s.roots)
}

func (s *SceneSnapshot) Children(entityId EntityId) iter.Seq[EntityId] {
	return slices.Values(s.children[entityId])
}

func (s *SceneSnapshot) Node(entityId EntityId) (Node, bool) {
	c, ok := s.ecs.getComponent(entityId, typeOfNode)
	if !ok {
		return Node{}, false
	}
	return *c.(*Node), true
}

// RootCount is the number of root nodes found when the snapshot was taken.
func (s *SceneSnapshot) RootCount() int {
	return len(s.roots)
}

type HierarchyModule struct{}

func (HierarchyModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(NodeLayoutSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// NodeLayoutSystem resolves LocalPosition offsets into Node.GlobalPosition.
// Parents are always visited before their children, so a single pass covers
// any depth. Nodes without a LocalPosition keep their GlobalPosition and act
// as the base for their children.
func NodeLayoutSystem(cmd *Commands) {
	scene := SnapshotScene(cmd)
	globals := make(map[EntityId]mgl32.Vec2)

	for entityId := range SceneOrder(scene) {
		var base mgl32.Vec2
		if p, ok := GetComponent[Parent](cmd, entityId); ok {
			base = globals[p.Entity]
		}

		node, hasNode := GetComponent[Node](cmd, entityId)
		local, hasLocal := GetComponent[LocalPosition](cmd, entityId)

		switch {
		case hasNode && hasLocal:
			node.GlobalPosition = base.Add(local.Offset)
			globals[entityId] = node.GlobalPosition
		case hasNode:
			globals[entityId] = node.GlobalPosition
		case hasLocal:
			globals[entityId] = base.Add(local.Offset)
		default:
			globals[entityId] = base
		}
	}
}
