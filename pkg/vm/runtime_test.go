package vm

import (
	"testing"

	"github.com/nooga/mdr/pkg/config"
)

func TestNewRuntimeDefaults(t *testing.T) {
	rt := NewRuntime(nil)
	if rt.Config().HotCallThreshold != config.Default().HotCallThreshold || !rt.CachesEnabled() {
		t.Errorf("nil config should use the defaults")
	}
	if rt.FamilyOfPrototype(nil) != rt.RootFamily {
		t.Errorf("a nil prototype selects the root family")
	}
	if rt.ObjectPrototype.Prototype() != nil {
		t.Errorf("Object.prototype should have no prototype")
	}

	protos := []struct {
		name   string
		proto  *Object
		family *ShapeFamily
	}{
		{"Object", rt.ObjectPrototype, rt.ObjectFamily},
		{"Function", rt.FunctionPrototype, rt.FunctionFamily},
		{"Array", rt.ArrayPrototype, rt.ArrayFamily},
		{"String", rt.StringPrototype, rt.StringFamily},
		{"Boolean", rt.BooleanPrototype, rt.BooleanFamily},
		{"Number", rt.NumberPrototype, rt.NumberFamily},
		{"RegExp", rt.RegExpPrototype, rt.RegExpFamily},
	}
	for _, p := range protos {
		if p.family.Prototype() != p.proto || p.family.Name != p.name {
			t.Errorf("%s family: prototype %p name %s", p.name, p.family.Prototype(), p.family.Name)
		}
		if rt.FamilyOfPrototype(p.proto) != p.family {
			t.Errorf("%s prototype should map back to its family", p.name)
		}
	}
	if rt.FunctionPrototype.Prototype() != rt.ObjectPrototype {
		t.Errorf("built-in prototypes inherit from Object.prototype")
	}
}

func TestTwoRuntimesAreIndependent(t *testing.T) {
	a, b := NewRuntime(nil), NewRuntime(nil)
	if a.ID == b.ID {
		t.Errorf("runtimes should get distinct ids")
	}
	_ = a.ObjectPrototype.SetField("shared", Int32Value(1))
	if !b.NewObject().GetField("shared").IsUndefined() {
		t.Errorf("prototype changes must not leak between runtimes")
	}
}

func TestNullPrototypeObject(t *testing.T) {
	rt := NewRuntime(nil)
	o := rt.NewObjectWithPrototype(nil)
	if o.Prototype() != nil || o.Family() != rt.RootFamily {
		t.Errorf("object without prototype should live in the root family")
	}
	if !o.GetField("toString").IsUndefined() {
		t.Errorf("nothing is inherited without a prototype")
	}
	if o.String() != "[object Object]" {
		t.Errorf("String() = %q", o.String())
	}
}

func TestSetCachesEnabled(t *testing.T) {
	rt := NewRuntime(nil)
	proto := rt.NewObject()
	child := rt.NewObjectWithPrototype(proto)
	_ = proto.SetField("x", Int32Value(1))
	if child.GetField("x").AsInt32() != 1 {
		t.Fatalf("inherited read failed")
	}

	rt.SetCachesEnabled(false)
	if rt.CachesEnabled() {
		t.Fatalf("caches should be off")
	}
	_ = proto.SetField("x", Int32Value(2))
	if child.GetField("x").AsInt32() != 2 {
		t.Errorf("uncached read = %v", child.GetField("x"))
	}

	rt.SetCachesEnabled(true)
	_ = proto.SetField("x", Int32Value(3))
	if child.GetField("x").AsInt32() != 3 {
		t.Errorf("read after re-enabling caches = %v", child.GetField("x"))
	}
}

func TestDefaultPrototypeMethods(t *testing.T) {
	rt := NewRuntime(nil)
	o := rt.NewObject()
	_ = o.SetField("own", True)

	hasOwn := o.GetField("hasOwnProperty").AsFunction()
	if !hasOwn.Call(ObjectValue(o), StringValue("own")).AsBoolean() {
		t.Errorf("hasOwnProperty(own) should be true")
	}
	if hasOwn.Call(ObjectValue(o), StringValue("toString")).AsBoolean() {
		t.Errorf("inherited methods are not own properties")
	}
	if got := o.ToStringProperty(); got != "[object Object]" {
		t.Errorf("toString() = %q", got)
	}
	for _, k := range rt.ObjectPrototype.OwnKeys(true) {
		t.Errorf("built-in methods should not be enumerable, found %s", k)
	}

	tests := []struct {
		obj  *Object
		want Value
	}{
		{rt.NewBoolean(true), True},
		{rt.NewNumber(2.5), DoubleValue(2.5)},
		{rt.NewString("s"), StringValue("s")},
	}
	for _, tt := range tests {
		valueOf := tt.obj.GetField("valueOf").AsFunction()
		if got := valueOf.Call(ObjectValue(tt.obj)); !got.Equal(tt.want) {
			t.Errorf("%s valueOf = %v, want %v", tt.obj.ClassName(), got, tt.want)
		}
		if got := tt.obj.ToStringProperty(); got != tt.want.ToString() {
			t.Errorf("%s toString = %q", tt.obj.ClassName(), got)
		}
	}
}
