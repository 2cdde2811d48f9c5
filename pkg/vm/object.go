package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nooga/mdr/pkg/errors"
)

// ObjectKind is the closed set of object variants.
type ObjectKind uint8

const (
	KindPlain ObjectKind = iota
	KindFunction
	KindArray
	KindString
	KindProperty
	KindBoolean
	KindNumber
	KindRegExp
	KindNull
	KindUndefined
)

func (k ObjectKind) String() string {
	switch k {
	case KindPlain:
		return "object"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindProperty:
		return "property"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindRegExp:
		return "regexp"
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("<unknown kind %d>", uint8(k))
	}
}

// fieldGrowth is how many slots ResizeFields adds beyond the requested index.
const fieldGrowth = 8

// Object is a field array laid out by its current shape. Fields is exported
// for compiled code; writes must still go through descriptors.
type Object struct {
	shape   *Shape
	shapeID int
	Fields  []Value

	kind      ObjectKind
	primitive Value        // wrapped value of Boolean, Number and String objects
	subFamily *ShapeFamily // family of the objects using this one as prototype

	fn     *Function
	array  *ArrayData
	prop   *Property
	regexp *RegExp
	units  []uint16 // UTF-16 view of a String object, filled on first use
}

func newObject(shape *Shape, kind ObjectKind, capacity int) *Object {
	o := &Object{kind: kind, Fields: make([]Value, capacity)}
	o.setShape(shape)
	return o
}

func (o *Object) setShape(s *Shape) {
	o.shape = s
	o.shapeID = s.id
	o.ResizeFields(s.descriptor.index)
}

// ResizeFields makes room for slot maxIndex, growing by a fixed increment.
func (o *Object) ResizeFields(maxIndex int) {
	if maxIndex < len(o.Fields) {
		return
	}
	grown := make([]Value, maxIndex+fieldGrowth)
	copy(grown, o.Fields)
	o.Fields = grown
}

func (o *Object) Shape() *Shape        { return o.shape }
func (o *Object) ShapeID() int         { return o.shapeID }
func (o *Object) Kind() ObjectKind     { return o.kind }
func (o *Object) Family() *ShapeFamily { return o.shape.family }
func (o *Object) Prototype() *Object   { return o.shape.family.prototype }
func (o *Object) ClassName() string    { return o.shape.family.Name }
func (o *Object) Runtime() *Runtime    { return o.shape.family.rt }

// IsPrototype reports whether some family uses o as its prototype.
func (o *Object) IsPrototype() bool { return o.subFamily != nil }

// Function returns the callable of a function object, nil otherwise.
func (o *Object) Function() *Function { return o.fn }
func (o *Object) Array() *ArrayData   { return o.array }
func (o *Object) Property() *Property { return o.prop }
func (o *Object) RegExp() *RegExp     { return o.regexp }

// PrimitiveValue is the wrapped value of Boolean, Number and String
// objects, Undefined for everything else.
func (o *Object) PrimitiveValue() Value {
	switch o.kind {
	case KindBoolean, KindNumber, KindString:
		return o.primitive
	}
	return Undefined
}

// --- Descriptor lookup ---

// GetPropertyDescriptorByID never returns nil: a name unknown to the whole
// prototype chain yields an undefined inherited descriptor.
func (o *Object) GetPropertyDescriptorByID(nameID int) *PropertyDescriptor {
	rt := o.Runtime()
	if rt.cachesEnabled {
		if pd := rt.lastAccess.Get(nameID, o.shape); pd != nil {
			return pd
		}
	}
	pd := o.shape.GetPropertyDescriptorByID(nameID)
	if pd == nil {
		pd = o.shape.family.addUndefined(rt.fields.Name(nameID), nameID)
	}
	if rt.cachesEnabled {
		rt.lastAccess.Update(nameID, o.shape, pd)
	}
	return pd
}

func (o *Object) GetPropertyDescriptor(name string) *PropertyDescriptor {
	return o.GetPropertyDescriptorByID(o.Runtime().GetFieldID(name))
}

// mustAddOwn reports whether a write must create an own property instead of
// going through pd. Inherited not-writable data properties swallow writes.
func mustAddOwn(pd *PropertyDescriptor) bool {
	if pd == nil || pd.IsUndefined() {
		return true
	}
	return pd.IsInherited() && pd.IsData() && pd.IsWritable()
}

// AddPropertyDescriptorByID returns the descriptor a write to nameID goes
// through, adding an own data property when needed.
func (o *Object) AddPropertyDescriptorByID(nameID int) *PropertyDescriptor {
	rt := o.Runtime()
	var pd *PropertyDescriptor
	if rt.cachesEnabled {
		var next *Shape
		pd, next = rt.lastAccess.GetForWrite(nameID, o.shape)
		if next != nil {
			if current := o.shape.family.GetInheritedPropertyDescriptorByID(nameID); !mustAddOwn(current) {
				return current
			}
			o.setShape(next)
			if o.subFamily != nil {
				o.subFamily.PropagateAddition(o, next.descriptor)
			}
			return next.descriptor
		}
	}
	if pd == nil {
		pd = o.shape.GetPropertyDescriptorByID(nameID)
	}
	if mustAddOwn(pd) {
		pd = o.shape.addOwnProperty(o, rt.fields.Name(nameID), nameID, AttrData)
	}
	if rt.cachesEnabled {
		rt.lastAccess.Update(nameID, o.shape, pd)
	}
	return pd
}

func (o *Object) AddPropertyDescriptor(name string) *PropertyDescriptor {
	return o.AddPropertyDescriptorByID(o.Runtime().GetFieldID(name))
}

// --- Field access ---

func (o *Object) GetFieldByID(nameID int) Value {
	return o.GetPropertyDescriptorByID(nameID).Get(o)
}

func (o *Object) GetField(name string) Value {
	return o.GetPropertyDescriptor(name).Get(o)
}

// GetFieldByValue converts key to a property name; integral keys on arrays
// and strings address their items.
func (o *Object) GetFieldByValue(key Value) Value {
	if i, ok := itemIndex(key); ok && o.hasItems() {
		return o.Runtime().ItemAt(o, i)
	}
	return o.GetField(propertyKey(key))
}

func (o *Object) SetFieldByID(nameID int, v Value) error {
	return o.AddPropertyDescriptorByID(nameID).Set(o, v)
}

func (o *Object) SetField(name string, v Value) error {
	return o.AddPropertyDescriptor(name).Set(o, v)
}

func (o *Object) SetFieldByValue(key, v Value) error {
	if i, ok := itemIndex(key); ok && o.hasItems() {
		return o.Runtime().SetItemAt(o, i, v)
	}
	return o.SetField(propertyKey(key), v)
}

// SetFieldStrict is SetField that refuses writes to not-writable properties
// instead of ignoring them.
func (o *Object) SetFieldStrict(name string, v Value) error {
	pd := o.AddPropertyDescriptor(name)
	if !pd.IsWritable() {
		return errors.NewInvalidWrite("Object.SetFieldStrict", name, "property is not writable")
	}
	return pd.Set(o, v)
}

// --- Own property definition ---

// AddOwnPropertyDescriptorByID returns the own descriptor for nameID with
// attrs, adding or reconfiguring it as needed.
func (o *Object) AddOwnPropertyDescriptorByID(nameID int, attrs PropertyAttributes) (*PropertyDescriptor, error) {
	attrs = normalizeOwnAttrs(attrs)
	pd := o.shape.GetOwnPropertyDescriptorByID(nameID)
	switch {
	case pd == nil:
		return o.shape.addOwnProperty(o, o.Runtime().fields.Name(nameID), nameID, attrs), nil
	case pd.attrs == attrs:
		return pd, nil
	case !pd.IsConfigurable():
		return nil, errors.NewInvalidWrite("Object.DefineOwnProperty", pd.name, "property is not configurable")
	default:
		return o.shape.reconfigureOwnProperty(o, pd, attrs), nil
	}
}

func (o *Object) DefineOwnPropertyByID(nameID int, v Value, attrs PropertyAttributes) error {
	pd, err := o.AddOwnPropertyDescriptorByID(nameID, attrs&^AttrAccessor)
	if err != nil {
		return err
	}
	o.Fields[pd.index] = v
	return nil
}

// DefineOwnProperty stores v in an own data property with attrs, bypassing
// writability.
func (o *Object) DefineOwnProperty(name string, v Value, attrs PropertyAttributes) error {
	return o.DefineOwnPropertyByID(o.Runtime().GetFieldID(name), v, attrs)
}

// DefineAccessor installs p as an own accessor property.
func (o *Object) DefineAccessor(name string, p *Property, attrs PropertyAttributes) error {
	rt := o.Runtime()
	pd, err := o.AddOwnPropertyDescriptorByID(rt.GetFieldID(name), attrs|AttrAccessor)
	if err != nil {
		return err
	}
	o.Fields[pd.index] = ObjectValue(rt.NewPropertyObject(p))
	return nil
}

// --- Deletion and queries ---

func (o *Object) DeletePropertyByID(nameID int) DeleteStatus {
	return o.shape.deleteOwnProperty(o, nameID)
}

func (o *Object) DeleteProperty(name string) DeleteStatus {
	nameID, ok := o.Runtime().fields.Lookup(name)
	if !ok {
		return DeleteNotFound
	}
	return o.DeletePropertyByID(nameID)
}

func (o *Object) HasPropertyByID(nameID int) bool {
	return !o.GetPropertyDescriptorByID(nameID).IsUndefined()
}

func (o *Object) HasProperty(name string) bool {
	return !o.GetPropertyDescriptor(name).IsUndefined()
}

func (o *Object) HasOwnPropertyByID(nameID int) bool {
	pd := o.GetPropertyDescriptorByID(nameID)
	return !pd.IsUndefined() && !pd.IsInherited()
}

func (o *Object) HasOwnProperty(name string) bool {
	return o.HasOwnPropertyByID(o.Runtime().GetFieldID(name))
}

// OwnKeys lists own property names in slot order.
func (o *Object) OwnKeys(enumerableOnly bool) []string {
	var keys []string
	for _, pd := range o.shape.Descriptors() {
		if enumerableOnly && !pd.IsEnumerable() {
			continue
		}
		keys = append(keys, pd.name)
	}
	return keys
}

// --- Conversions ---

func (o *Object) String() string {
	switch o.kind {
	case KindBoolean, KindNumber, KindString:
		return o.primitive.ToString()
	case KindArray:
		parts := make([]string, o.array.Len())
		for i := range parts {
			if item := o.array.Item(i); !item.IsNullish() {
				parts[i] = item.ToString()
			}
		}
		return strings.Join(parts, ",")
	case KindFunction:
		return o.fn.String()
	case KindRegExp:
		return o.regexp.String()
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	}
	return "[object " + o.ClassName() + "]"
}

// ToStringProperty calls the object's toString method when it has one.
func (o *Object) ToStringProperty() string {
	rt := o.Runtime()
	pd := o.GetPropertyDescriptorByID(rt.ToStringFieldID)
	if pd.IsUndefined() {
		return o.String()
	}
	if fn := pd.Get(o); fn.IsFunction() {
		return fn.AsFunction().Call(ObjectValue(o)).ToString()
	}
	return o.String()
}

func propertyKey(key Value) string {
	if key.IsObject() {
		return key.AsObject().String()
	}
	return key.ToString()
}

func itemIndex(key Value) (int, bool) {
	switch {
	case key.Type().IsInteger():
		i := int(int64(key.payload))
		if key.Type() == TypeUInt64 && key.payload > 1<<53 {
			return 0, false
		}
		return i, i >= 0
	case key.Type() == TypeDouble, key.Type() == TypeFloat:
		f := key.ToDouble()
		if f >= 0 && f == float64(int(f)) {
			return int(f), true
		}
	case key.Type() == TypeString:
		if i, err := strconv.Atoi(key.AsString()); err == nil && i >= 0 && strconv.Itoa(i) == key.AsString() {
			return i, true
		}
	}
	return 0, false
}

func (o *Object) hasItems() bool {
	return o.kind == KindArray || o.kind == KindString
}
