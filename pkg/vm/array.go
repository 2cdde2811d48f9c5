package vm

import (
	"fmt"

	"github.com/nooga/mdr/pkg/errors"
)

const (
	initialArrayCapacity = 10
	maxArrayCapacity     = 20_000_000
)

// ArrayData holds the items of an array object. len(Items) is the array
// length; growth doubles the capacity up to maxArrayCapacity.
type ArrayData struct {
	Items []Value
}

func newArrayData(items []Value) *ArrayData {
	a := &ArrayData{Items: make([]Value, len(items), max(len(items), initialArrayCapacity))}
	copy(a.Items, items)
	return a
}

func (a *ArrayData) Len() int { return len(a.Items) }

// Item returns item i, Undefined outside the array.
func (a *ArrayData) Item(i int) Value {
	if i < 0 || i >= len(a.Items) {
		return Undefined
	}
	return a.Items[i]
}

// SetItem stores v at i, extending the array with Undefined as needed.
func (a *ArrayData) SetItem(i int, v Value) error {
	if i < 0 {
		return errors.NewInvalidWrite("ArrayData.SetItem", fmt.Sprint(i), "negative index")
	}
	if i >= len(a.Items) {
		if err := a.SetLength(i + 1); err != nil {
			return err
		}
	}
	a.Items[i] = v
	return nil
}

func (a *ArrayData) Push(v Value) error {
	return a.SetItem(len(a.Items), v)
}

// SetLength truncates or extends the array.
func (a *ArrayData) SetLength(n int) error {
	switch {
	case n < 0, n > maxArrayCapacity:
		return errors.NewInvalidWrite("ArrayData.SetLength", "length", fmt.Sprintf("invalid array length %d", n))
	case n <= len(a.Items):
		clear(a.Items[n:])
		a.Items = a.Items[:n]
	case n <= cap(a.Items):
		a.Items = a.Items[:n]
	default:
		grown := make([]Value, n, min(max(n, 2*cap(a.Items)), maxArrayCapacity))
		copy(grown, a.Items)
		a.Items = grown
	}
	return nil
}

// NewArray creates an array object holding a copy of items.
func (rt *Runtime) NewArray(items ...Value) *Object {
	o := newObject(rt.ArrayFamily.root, KindArray, 0)
	o.array = newArrayData(items)
	return o
}

// ItemAccessor is the indexed access of an array-like object kind.
type ItemAccessor interface {
	ItemAt(o *Object, i int) Value
	SetItemAt(o *Object, i int, v Value) error
	Length(o *Object) int
}

type arrayItems struct{}

func (arrayItems) ItemAt(o *Object, i int) Value            { return o.array.Item(i) }
func (arrayItems) SetItemAt(o *Object, i int, v Value) error { return o.array.SetItem(i, v) }
func (arrayItems) Length(o *Object) int                     { return o.array.Len() }

type stringItems struct{}

func (stringItems) ItemAt(o *Object, i int) Value {
	units := o.utf16()
	if i < 0 || i >= len(units) {
		return Undefined
	}
	return CharValue(units[i])
}

func (stringItems) SetItemAt(o *Object, i int, _ Value) error {
	return errors.NewInvalidWrite("String.SetItemAt", fmt.Sprint(i), "strings are immutable")
}

func (stringItems) Length(o *Object) int { return len(o.utf16()) }

// ItemAccessorOf returns the indexed access of o's kind, or nil.
func ItemAccessorOf(o *Object) ItemAccessor {
	switch o.kind {
	case KindArray:
		return arrayItems{}
	case KindString:
		return stringItems{}
	}
	return nil
}

// ItemAt reads item i of an array or string object; other kinds read the
// property named by i.
func (rt *Runtime) ItemAt(o *Object, i int) Value {
	if acc := ItemAccessorOf(o); acc != nil {
		return acc.ItemAt(o, i)
	}
	return o.GetField(fmt.Sprint(i))
}

func (rt *Runtime) SetItemAt(o *Object, i int, v Value) error {
	if acc := ItemAccessorOf(o); acc != nil {
		return acc.SetItemAt(o, i, v)
	}
	return o.SetField(fmt.Sprint(i), v)
}
