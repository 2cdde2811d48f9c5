package vm

import (
	"strconv"
	"strings"

	"github.com/nooga/mdr/pkg/errors"
)

// PropertyAttributes is the attribute bitset of a PropertyDescriptor.
type PropertyAttributes uint8

const (
	AttrNone            PropertyAttributes = 0
	AttrNotEnumerable   PropertyAttributes = 1 << 0
	AttrNotConfigurable PropertyAttributes = 1 << 1
	AttrNotWritable     PropertyAttributes = 1 << 2
	AttrData            PropertyAttributes = 1 << 3
	AttrAccessor        PropertyAttributes = 1 << 4
	AttrUndefined       PropertyAttributes = 1 << 5
	AttrInherited       PropertyAttributes = 1 << 6
	AttrInlined         PropertyAttributes = 1 << 7

	AttrKindMask = AttrData | AttrAccessor | AttrUndefined
	// AttrLocked is the usual attribute set for engine-provided properties.
	AttrLocked = AttrNotEnumerable | AttrNotConfigurable | AttrNotWritable
)

func (a PropertyAttributes) String() string {
	if a == AttrNone {
		return "None"
	}
	names := []string{"NotEnumerable", "NotConfigurable", "NotWritable", "Data", "Accessor", "Undefined", "Inherited", "Inlined"}
	var parts []string
	for i, n := range names {
		if a&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// AccessStrategy selects how Get and Set reach a descriptor's storage.
type AccessStrategy uint8

const (
	AccessOwnData AccessStrategy = iota
	AccessOwnAccessor
	AccessInheritedData
	AccessInheritedAccessor
	AccessUndefined
)

func (s AccessStrategy) String() string {
	switch s {
	case AccessOwnData:
		return "own-data"
	case AccessOwnAccessor:
		return "own-accessor"
	case AccessInheritedData:
		return "inherited-data"
	case AccessInheritedAccessor:
		return "inherited-accessor"
	default:
		return "undefined"
	}
}

const (
	invalidFieldID    = -1
	invalidFieldIndex = -1
	noCacheSlot       = -1
)

// PropertyDescriptor describes one property slot. Name and NameID never
// change; index, attributes and container are only rewritten by the shape
// and family code in this package, always through setAttributes.
type PropertyDescriptor struct {
	name      string
	nameID    int
	index     int
	attrs     PropertyAttributes
	strategy  AccessStrategy
	container *Object // owner of the storage when inherited
	cacheSlot int     // slot in the runtime container cache, noCacheSlot if none
}

func newPropertyDescriptor(name string, nameID, index int, attrs PropertyAttributes) *PropertyDescriptor {
	pd := &PropertyDescriptor{name: name, nameID: nameID, index: index, cacheSlot: noCacheSlot}
	pd.setAttributes(attrs)
	return pd
}

func newInheritedDescriptor(name string, nameID, index int, attrs PropertyAttributes, container *Object) *PropertyDescriptor {
	pd := &PropertyDescriptor{name: name, nameID: nameID, index: index, container: container, cacheSlot: noCacheSlot}
	pd.setAttributes(attrs | AttrInherited)
	return pd
}

// setAttributes stores attrs and recomputes the access strategy.
func (pd *PropertyDescriptor) setAttributes(attrs PropertyAttributes) {
	pd.attrs = attrs
	switch {
	case attrs&AttrUndefined != 0:
		pd.strategy = AccessUndefined
	case attrs&AttrInherited != 0:
		if attrs&AttrAccessor != 0 {
			pd.strategy = AccessInheritedAccessor
		} else {
			pd.strategy = AccessInheritedData
		}
	case attrs&AttrAccessor != 0:
		pd.strategy = AccessOwnAccessor
	default:
		pd.strategy = AccessOwnData
	}
}

// bind points an inherited descriptor at a new owner.
func (pd *PropertyDescriptor) bind(container *Object, index int, attrs PropertyAttributes) {
	pd.container = container
	pd.index = index
	pd.setAttributes(attrs | AttrInherited)
}

// unbind turns an inherited descriptor into an undefined one.
func (pd *PropertyDescriptor) unbind() {
	pd.container = nil
	pd.index = invalidFieldIndex
	pd.setAttributes(AttrUndefined | AttrInherited)
}

func (pd *PropertyDescriptor) Name() string                   { return pd.name }
func (pd *PropertyDescriptor) NameID() int                    { return pd.nameID }
func (pd *PropertyDescriptor) Index() int                     { return pd.index }
func (pd *PropertyDescriptor) Attributes() PropertyAttributes { return pd.attrs }
func (pd *PropertyDescriptor) Strategy() AccessStrategy       { return pd.strategy }
func (pd *PropertyDescriptor) Container() *Object             { return pd.container }
func (pd *PropertyDescriptor) CacheSlot() int                 { return pd.cacheSlot }

// OwnAttributes drops the bits that only describe inheritance.
func (pd *PropertyDescriptor) OwnAttributes() PropertyAttributes {
	return pd.attrs &^ (AttrInherited | AttrInlined)
}

func (pd *PropertyDescriptor) HasAttributes(mask PropertyAttributes) bool {
	return pd.attrs&mask == mask
}

func (pd *PropertyDescriptor) IsData() bool         { return pd.attrs&AttrData != 0 }
func (pd *PropertyDescriptor) IsAccessor() bool     { return pd.attrs&AttrAccessor != 0 }
func (pd *PropertyDescriptor) IsUndefined() bool    { return pd.attrs&AttrUndefined != 0 }
func (pd *PropertyDescriptor) IsInherited() bool    { return pd.attrs&AttrInherited != 0 }
func (pd *PropertyDescriptor) IsEnumerable() bool   { return pd.attrs&AttrNotEnumerable == 0 }
func (pd *PropertyDescriptor) IsConfigurable() bool { return pd.attrs&AttrNotConfigurable == 0 }
func (pd *PropertyDescriptor) IsWritable() bool     { return pd.attrs&AttrNotWritable == 0 }

// owner returns the object holding an inherited descriptor's storage,
// through the runtime's container cache when caches are on.
func (pd *PropertyDescriptor) owner(obj *Object) *Object {
	if rt := obj.Runtime(); rt.cachesEnabled {
		return rt.containers.Lookup(pd)
	}
	return pd.container
}

// Get reads the property as seen from obj.
func (pd *PropertyDescriptor) Get(obj *Object) Value {
	switch pd.strategy {
	case AccessOwnData:
		return obj.Fields[pd.index]
	case AccessOwnAccessor:
		if p := accessorAt(obj, pd.index); p != nil {
			return p.Get(obj)
		}
		return Undefined
	case AccessInheritedData:
		return pd.owner(obj).Fields[pd.index]
	case AccessInheritedAccessor:
		if p := accessorAt(pd.owner(obj), pd.index); p != nil {
			return p.Get(obj)
		}
		return Undefined
	default:
		return Undefined
	}
}

// Set writes the property as seen from obj. Not-writable descriptors ignore
// the write; undefined descriptors refuse it with an InvalidWriteError.
func (pd *PropertyDescriptor) Set(obj *Object, v Value) error {
	if pd.attrs&AttrNotWritable != 0 {
		return nil
	}
	switch pd.strategy {
	case AccessOwnData:
		obj.Fields[pd.index] = v
	case AccessOwnAccessor:
		if p := accessorAt(obj, pd.index); p != nil {
			p.Set(obj, v)
		}
	case AccessInheritedData:
		pd.owner(obj).Fields[pd.index] = v
	case AccessInheritedAccessor:
		if p := accessorAt(pd.owner(obj), pd.index); p != nil {
			p.Set(obj, v)
		}
	default:
		return errors.NewInvalidWrite("PropertyDescriptor.Set", pd.name, "property is undefined")
	}
	return nil
}

// SetTolerant is Set with writes to undefined descriptors silently dropped.
func (pd *PropertyDescriptor) SetTolerant(obj *Object, v Value) {
	if pd.strategy == AccessUndefined {
		return
	}
	_ = pd.Set(obj, v)
}

func (pd *PropertyDescriptor) String() string {
	return pd.name + "@" + strconv.Itoa(pd.index) + " " + pd.attrs.String() + " (" + pd.strategy.String() + ")"
}

func accessorAt(owner *Object, index int) *Property {
	if owner == nil || index < 0 || index >= len(owner.Fields) {
		return nil
	}
	if f := owner.Fields[index]; f.typ == TypeProperty {
		return f.AsProperty()
	}
	return nil
}
