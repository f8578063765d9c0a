package gekkoui

import (
	"reflect"
)

// Queries iterate every entity whose archetype carries all of the query's
// component types. Map stops as soon as the callback returns false.
//
// Optional components passed to Map are delivered as nil pointers when the
// archetype lacks them. Without excludes archetypes carrying any of the given
// component types (e.g. roots are Node entities Without(Parent{})).
type Query1[A any] struct {
	ecs     *Ecs
	without []any
}

type Query2[A, B any] struct {
	ecs     *Ecs
	without []any
}

func MakeQuery1[A any](cmd *Commands) Query1[A]       { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B] { return Query2[A, B]{ecs: cmd.app.ecs} }

func (q Query1[A]) Without(components ...any) Query1[A] {
	q.without = append(append([]any(nil), q.without...), components...)
	return q
}

func (q Query2[A, B]) Without(components ...any) Query2[A, B] {
	q.without = append(append([]any(nil), q.without...), components...)
	return q
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	opt := identifyComponents(q.ecs, optionals...)
	excl := identifyComponents(q.ecs, q.without...)

	for _, arch := range q.ecs.archetypes {
		if archetypeExcluded(arch, excl) {
			continue
		}
		comps1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, rowPointer(comps1, row)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	opt := identifyComponents(q.ecs, optionals...)
	excl := identifyComponents(q.ecs, q.without...)

	for _, arch := range q.ecs.archetypes {
		if archetypeExcluded(arch, excl) {
			continue
		}
		comps1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, rowPointer(comps1, row), rowPointer(comps2, row)) {
				return
			}
		}
	}
}

// GetComponent returns a pointer to the entity's T component, or false when
// the entity is gone or does not carry T.
func GetComponent[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	c, ok := cmd.app.ecs.getComponent(entityId, reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

// column returns the archetype's typed slice for id. A nil slice with ok=true
// means the component is optional and missing.
func column[T any](arch *archetype, id componentId, optionals set[componentId]) ([]T, bool) {
	if data, ok := arch.componentData[id]; ok {
		return data.([]T), true
	}
	if _, ok := optionals[id]; ok {
		return nil, true
	}
	return nil, false
}

func rowPointer[T any](comps []T, r row) *T {
	if comps == nil {
		return nil
	}
	return &comps[r]
}

func archetypeExcluded(arch *archetype, excluded set[componentId]) bool {
	for id := range excluded {
		if arch.has(id) {
			return true
		}
	}
	return false
}

func identifyComponents(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId], len(components))
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func identifyComponent[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeFor[A]())
}
