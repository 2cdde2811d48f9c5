package vm

import (
	"time"
	"weak"
)

// ShapeFamily is the state shared by every object with the same prototype:
// the root of their shape tree, the descriptors they inherit, and a property
// cache. Families form a tree that mirrors the prototype chain; a family
// whose prototype lives in family F is one of F's children.
type ShapeFamily struct {
	Name string // class name reported by objects of this family

	rt        *Runtime
	prototype *Object
	level     int // 0 for the null-prototype family, prototype's level + 1 otherwise
	root      *Shape
	inherited []*PropertyDescriptor
	children  []weak.Pointer[ShapeFamily]
	cache     PropertyCache
}

func newShapeFamily(rt *Runtime, prototype *Object, name string) *ShapeFamily {
	f := &ShapeFamily{Name: name, rt: rt, prototype: prototype}
	if prototype != nil {
		f.level = prototype.shape.family.level + 1
	}
	f.cache.stats = rt.statsFor(&rt.counters.familyCache)
	f.root = newRootShape(f)
	rt.counters.familiesCreated.Add(1)
	return f
}

func (f *ShapeFamily) Prototype() *Object    { return f.prototype }
func (f *ShapeFamily) Level() int            { return f.level }
func (f *ShapeFamily) Root() *Shape          { return f.root }
func (f *ShapeFamily) Cache() *PropertyCache { return &f.cache }
func (f *ShapeFamily) Runtime() *Runtime     { return f.rt }
func (f *ShapeFamily) InheritedCount() int   { return len(f.inherited) }

// AddChild registers a family whose prototype lives in f. Children are held
// weakly.
func (f *ShapeFamily) AddChild(child *ShapeFamily) {
	f.children = append(f.children, weak.Make(child))
}

// Children returns the live child families and drops collected ones.
func (f *ShapeFamily) Children() []*ShapeFamily {
	live := make([]*ShapeFamily, 0, len(f.children))
	kept := f.children[:0]
	for _, wp := range f.children {
		if c := wp.Value(); c != nil {
			live = append(live, c)
			kept = append(kept, wp)
		}
	}
	clear(f.children[len(kept):])
	f.children = kept
	return live
}

func (f *ShapeFamily) findInherited(nameID int) *PropertyDescriptor {
	for _, pd := range f.inherited {
		if pd.nameID == nameID {
			return pd
		}
	}
	return nil
}

// GetInheritedPropertyDescriptorByID resolves nameID through the prototype.
// The first successful lookup materializes an inherited descriptor that is
// reused, and kept up to date, from then on. Returns nil when the prototype
// chain does not know the name.
func (f *ShapeFamily) GetInheritedPropertyDescriptorByID(nameID int) *PropertyDescriptor {
	if pd := f.findInherited(nameID); pd != nil {
		return pd
	}
	if f.prototype == nil {
		return nil
	}
	src := f.prototype.shape.GetPropertyDescriptorByID(nameID)
	if src == nil {
		return nil
	}
	container := f.prototype
	if src.IsInherited() {
		container = src.container
	}
	return f.addInherited(newInheritedDescriptor(src.name, src.nameID, src.index, src.attrs, container))
}

func (f *ShapeFamily) GetInheritedPropertyDescriptor(name string) *PropertyDescriptor {
	nameID, ok := f.rt.fields.Lookup(name)
	if !ok {
		return nil
	}
	return f.GetInheritedPropertyDescriptorByID(nameID)
}

// addUndefined records that nameID is unknown along the whole chain, so a
// later addition on a prototype can bind it in place.
func (f *ShapeFamily) addUndefined(name string, nameID int) *PropertyDescriptor {
	return f.addInherited(newInheritedDescriptor(name, nameID, invalidFieldIndex, AttrUndefined, nil))
}

func (f *ShapeFamily) addInherited(pd *PropertyDescriptor) *PropertyDescriptor {
	f.inherited = append(f.inherited, pd)
	f.rt.containers.Update(pd)
	return pd
}

func (f *ShapeFamily) rebind(pd *PropertyDescriptor, container *Object, index int, attrs PropertyAttributes) {
	if pd.container != container {
		f.rt.containers.invalidate(pd)
	}
	pd.bind(container, index, attrs)
}

// PropagateAddition updates the families below f after obj, f's prototype,
// gained the own descriptor added. Undefined or farther-bound descriptors for
// the same name are rebound to obj; a subtree stops at the first family
// whose descriptor is bound to a container nearer than obj.
func (f *ShapeFamily) PropagateAddition(obj *Object, added *PropertyDescriptor) {
	var start time.Time
	if f.rt.config.EnableTimers {
		start = time.Now()
	}
	f.propagateAddition(obj, obj.shape.family.level, added)
	if f.rt.config.EnableTimers {
		f.rt.counters.propagationNanos.Add(time.Since(start).Nanoseconds())
	}
}

func (f *ShapeFamily) propagateAddition(obj *Object, objLevel int, added *PropertyDescriptor) {
	f.rt.counters.propagations.Add(1)
	if pd := f.findInherited(added.nameID); pd != nil {
		switch {
		case pd.IsUndefined(), pd.container == obj:
			f.rebind(pd, obj, added.index, added.attrs)
		case pd.container.shape.family.level > objLevel:
			f.rt.log.Debugf("%s: %s stays bound to a nearer prototype", f.Name, added.name)
			return
		default:
			f.rebind(pd, obj, added.index, added.attrs)
		}
	}
	for _, child := range f.Children() {
		child.propagateAddition(obj, objLevel, added)
	}
}

// PropagateDeletion updates the families below f after obj, f's prototype,
// lost the own descriptor deleted. Descriptors bound to obj re-resolve to
// the next provider up the chain, or become undefined.
func (f *ShapeFamily) PropagateDeletion(obj *Object, deleted *PropertyDescriptor) {
	var start time.Time
	if f.rt.config.EnableTimers {
		start = time.Now()
	}
	f.propagateDeletion(obj, obj.shape.family.level, deleted)
	if f.rt.config.EnableTimers {
		f.rt.counters.propagationNanos.Add(time.Since(start).Nanoseconds())
	}
}

func (f *ShapeFamily) propagateDeletion(obj *Object, objLevel int, deleted *PropertyDescriptor) {
	f.rt.counters.propagations.Add(1)
	if pd := f.findInherited(deleted.nameID); pd != nil && !pd.IsUndefined() {
		if pd.container != obj {
			if pd.container.shape.family.level > objLevel {
				return
			}
		} else {
			upper := obj.shape.family.GetInheritedPropertyDescriptorByID(deleted.nameID)
			if upper == nil || upper.IsUndefined() {
				f.rt.containers.invalidate(pd)
				pd.unbind()
			} else {
				f.rebind(pd, upper.container, upper.index, upper.attrs)
				f.rt.containers.Update(pd)
			}
		}
	}
	for _, child := range f.Children() {
		child.propagateDeletion(obj, objLevel, deleted)
	}
}
