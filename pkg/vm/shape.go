package vm

import (
	"fmt"

	"github.com/nooga/mdr/pkg/errors"
)

type transitionKey struct {
	nameID int
	attrs  PropertyAttributes
}

// Shape is one node of a family's shape tree. The chain from a shape to the
// root lists exactly the own properties of the objects using it, with slot
// indices growing by one per level. Shapes never change once created;
// transitions are memoized so every object making the same additions ends
// up on the same shape.
type Shape struct {
	id         int
	family     *ShapeFamily
	parent     *Shape
	descriptor *PropertyDescriptor
	overridden *PropertyDescriptor // inherited descriptor shadowed when this shape was created
	children   map[transitionKey]*Shape
}

func newRootShape(family *ShapeFamily) *Shape {
	pd := newPropertyDescriptor("", invalidFieldID, invalidFieldIndex, AttrUndefined|AttrNotEnumerable)
	return &Shape{id: family.rt.nextShapeID(), family: family, descriptor: pd}
}

func (s *Shape) ID() int                         { return s.id }
func (s *Shape) Family() *ShapeFamily            { return s.family }
func (s *Shape) Parent() *Shape                  { return s.parent }
func (s *Shape) Descriptor() *PropertyDescriptor { return s.descriptor }
func (s *Shape) Overridden() *PropertyDescriptor { return s.overridden }

// Len is the number of own properties described by the chain.
func (s *Shape) Len() int { return s.descriptor.index + 1 }

func (s *Shape) IsRoot() bool { return s.parent == nil }

// normalizeOwnAttrs strips inheritance bits and defaults to a data property.
func normalizeOwnAttrs(attrs PropertyAttributes) PropertyAttributes {
	attrs &^= AttrInherited | AttrUndefined
	if attrs&AttrAccessor != 0 {
		attrs &^= AttrData
	} else {
		attrs |= AttrData
	}
	return attrs
}

// AddOwnProperty returns the child shape adding (nameID, attrs). Repeated
// calls with the same arguments return the same shape.
func (s *Shape) AddOwnProperty(name string, nameID int, attrs PropertyAttributes) *Shape {
	attrs = normalizeOwnAttrs(attrs)
	key := transitionKey{nameID: nameID, attrs: attrs}
	if child, ok := s.children[key]; ok {
		return child
	}
	if s.children == nil {
		s.children = make(map[transitionKey]*Shape)
	}
	child := &Shape{
		id:         s.family.rt.nextShapeID(),
		family:     s.family,
		parent:     s,
		descriptor: newPropertyDescriptor(name, nameID, s.descriptor.index+1, attrs),
		overridden: s.family.GetInheritedPropertyDescriptorByID(nameID),
	}
	s.children[key] = child
	return child
}

// addOwnProperty moves obj onto the child shape and, when obj is a
// prototype, pushes the new descriptor to the families inheriting from it.
func (s *Shape) addOwnProperty(obj *Object, name string, nameID int, attrs PropertyAttributes) *PropertyDescriptor {
	next := s.AddOwnProperty(name, nameID, attrs)
	obj.setShape(next)
	if obj.subFamily != nil {
		obj.subFamily.PropagateAddition(obj, next.descriptor)
	}
	return next.descriptor
}

func (s *Shape) GetOwnPropertyDescriptorByID(nameID int) *PropertyDescriptor {
	for m := s; m.parent != nil; m = m.parent {
		if m.descriptor.nameID == nameID {
			return m.descriptor
		}
	}
	return nil
}

func (s *Shape) GetOwnPropertyDescriptor(name string) *PropertyDescriptor {
	for m := s; m.parent != nil; m = m.parent {
		if m.descriptor.name == name {
			return m.descriptor
		}
	}
	return nil
}

// GetPropertyDescriptorByID finds an own or inherited descriptor. A nil
// result means the prototype chain does not know the name.
func (s *Shape) GetPropertyDescriptorByID(nameID int) *PropertyDescriptor {
	rt := s.family.rt
	if rt.cachesEnabled {
		if pd := s.family.cache.Get(nameID, s); pd != nil {
			return pd
		}
	}
	pd := s.GetOwnPropertyDescriptorByID(nameID)
	if pd == nil {
		pd = s.family.GetInheritedPropertyDescriptorByID(nameID)
	}
	if pd != nil && rt.cachesEnabled {
		s.family.cache.Add(pd, s)
	}
	return pd
}

func (s *Shape) GetPropertyDescriptor(name string) *PropertyDescriptor {
	if pd := s.GetOwnPropertyDescriptor(name); pd != nil {
		return pd
	}
	return s.family.GetInheritedPropertyDescriptor(name)
}

// Descriptors lists the own descriptors in slot order.
func (s *Shape) Descriptors() []*PropertyDescriptor {
	out := make([]*PropertyDescriptor, s.Len())
	for m := s; m.parent != nil; m = m.parent {
		out[m.descriptor.index] = m.descriptor
	}
	return out
}

// findOwn returns the shape on the chain that added nameID.
func (s *Shape) findOwn(nameID int) *Shape {
	for m := s; m.parent != nil; m = m.parent {
		if m.descriptor.nameID == nameID {
			return m
		}
	}
	return nil
}

// DeleteStatus is the outcome of removing an own property.
type DeleteStatus uint8

const (
	DeleteNotFound DeleteStatus = iota
	DeleteNotDeletable
	DeleteDeleted
)

func (d DeleteStatus) String() string {
	switch d {
	case DeleteNotFound:
		return "not found"
	case DeleteNotDeletable:
		return "not deletable"
	default:
		return "deleted"
	}
}

// deleteOwnProperty removes nameID from obj, which must be on s. The
// properties added after it are replayed on the deleted node's parent,
// shifting their slots down by one, and obj's fields are compacted.
func (s *Shape) deleteOwnProperty(obj *Object, nameID int) DeleteStatus {
	target := s.findOwn(nameID)
	if target == nil {
		return DeleteNotFound
	}
	if !target.descriptor.IsConfigurable() {
		return DeleteNotDeletable
	}

	later := s.chainAbove(target)
	next := target.parent
	for i := len(later) - 1; i >= 0; i-- {
		pd := later[i].descriptor
		next = next.AddOwnProperty(pd.name, pd.nameID, pd.OwnAttributes())
	}

	deleted := target.descriptor
	top := s.descriptor.index
	copy(obj.Fields[deleted.index:top], obj.Fields[deleted.index+1:top+1])
	obj.Fields[top] = Undefined
	obj.setShape(next)
	next.checkInvariants("Shape.deleteOwnProperty")

	if obj.subFamily != nil {
		obj.subFamily.PropagateDeletion(obj, deleted)
		for m := next; m != target.parent; m = m.parent {
			obj.subFamily.PropagateAddition(obj, m.descriptor)
		}
	}
	return DeleteDeleted
}

// reconfigureOwnProperty gives pd new attributes by replaying the chain from
// pd's shape. Slots do not move.
func (s *Shape) reconfigureOwnProperty(obj *Object, pd *PropertyDescriptor, attrs PropertyAttributes) *PropertyDescriptor {
	target := s.findOwn(pd.nameID)
	if target == nil || target.descriptor != pd {
		s.fail("Shape.reconfigureOwnProperty", pd.name, "descriptor is not on the object's shape")
	}

	later := s.chainAbove(target)
	next := target.parent.AddOwnProperty(pd.name, pd.nameID, attrs)
	reconfigured := next.descriptor
	for i := len(later) - 1; i >= 0; i-- {
		d := later[i].descriptor
		next = next.AddOwnProperty(d.name, d.nameID, d.OwnAttributes())
	}
	obj.setShape(next)
	next.checkInvariants("Shape.reconfigureOwnProperty")

	if obj.subFamily != nil {
		obj.subFamily.PropagateAddition(obj, reconfigured)
	}
	return reconfigured
}

// chainAbove lists the shapes from s down to, but excluding, target.
func (s *Shape) chainAbove(target *Shape) []*Shape {
	var later []*Shape
	for m := s; m != target; m = m.parent {
		later = append(later, m)
	}
	return later
}

// checkInvariants verifies slot monotonicity and family membership of the
// whole chain. A violation is fatal.
func (s *Shape) checkInvariants(op string) {
	for m := s; m.parent != nil; m = m.parent {
		if m.descriptor.index != m.parent.descriptor.index+1 {
			m.fail(op, m.descriptor.name, fmt.Sprintf("slot %d follows slot %d", m.descriptor.index, m.parent.descriptor.index))
		}
		if m.family != s.family {
			m.fail(op, m.descriptor.name, "shape chain crosses families")
		}
		if m.descriptor.IsInherited() || m.descriptor.IsUndefined() {
			m.fail(op, m.descriptor.name, "own descriptor carries inheritance attributes")
		}
	}
	if s.root() != s.family.root {
		s.fail(op, "", "shape chain does not end at the family root")
	}
}

func (s *Shape) root() *Shape {
	m := s
	for m.parent != nil {
		m = m.parent
	}
	return m
}

func (s *Shape) fail(op, property, msg string) {
	err := errors.NewShapeInconsistency(op, property, msg)
	s.family.rt.log.Criticalf("%s", err.Error())
	panic(err)
}

func (s *Shape) String() string {
	return fmt.Sprintf("Shape#%d(%s, %d props)", s.id, s.family.Name, s.Len())
}
