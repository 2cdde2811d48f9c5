package vm

import (
	"fmt"
	"testing"

	"github.com/nooga/mdr/pkg/config"
)

func newTestRuntime(threshold int) *Runtime {
	cfg := config.Default()
	cfg.HotCallThreshold = threshold
	return NewRuntime(cfg)
}

func addBody(frame *CallFrame) {
	frame.Return = DoubleValue(frame.Arg0.ToDouble() + frame.Arg1.ToDouble())
}

func TestExecuteGenericWithoutSpecializer(t *testing.T) {
	rt := newTestRuntime(2)
	fn := rt.NewNativeFunction("add", 2, addBody).Function()
	for range 10 {
		if got := fn.Call(Undefined, Int32Value(1), Int32Value(2)); got.ToDouble() != 3 {
			t.Fatalf("add(1, 2) = %v", got)
		}
	}
	if fn.Metadata.Cache.Len() != 0 {
		t.Errorf("no specializer, no profiling entries; Len() = %d", fn.Metadata.Cache.Len())
	}
	if fn.Metadata.Calls() != 10 {
		t.Errorf("Calls() = %d", fn.Metadata.Calls())
	}
}

func TestExecuteSpecializesHotSignature(t *testing.T) {
	rt := newTestRuntime(3)
	fn := rt.NewNativeFunction("add", 2, addBody).Function()
	var offered []Signature
	fn.Metadata.Specializer = func(m *FunctionMetadata, sig Signature) (*FunctionCode, error) {
		offered = append(offered, sig)
		return NewFunctionCode(sig, func(frame *CallFrame) {
			frame.Return = StringValue("fast")
		}), nil
	}

	for i := 1; i <= 3; i++ {
		if got := fn.Call(Undefined, Int32Value(1), Int32Value(2)); got.ToDouble() != 3 {
			t.Fatalf("call %d should run the generic body, got %v", i, got)
		}
	}
	if len(offered) != 0 {
		t.Fatalf("specialized before the threshold was passed")
	}
	if got := fn.Call(Undefined, Int32Value(1), Int32Value(2)); got.ToString() != "fast" {
		t.Errorf("hot call should run the specialized body, got %v", got)
	}
	if len(offered) != 1 || offered[0] != SignatureOf(TypeInt32, TypeInt32) {
		t.Errorf("offered = %v", offered)
	}
	if got := fn.Call(Undefined, DoubleValue(1), Int32Value(2)); got.ToDouble() != 3 {
		t.Errorf("other signatures keep the generic body, got %v", got)
	}
	if got := fn.Call(Undefined, Int32Value(5), Int32Value(6), StringValue("ignored")); got.ToString() != "fast" {
		t.Errorf("extra arguments are outside the signature, got %v", got)
	}
	if st := rt.Stats(); st.Specializations != 1 {
		t.Errorf("Specializations = %d", st.Specializations)
	}
}

func TestSpecializerErrorBlacklists(t *testing.T) {
	rt := newTestRuntime(0)
	fn := rt.NewNativeFunction("f", 1, addBody).Function()
	calls := 0
	fn.Metadata.Specializer = func(*FunctionMetadata, Signature) (*FunctionCode, error) {
		calls++
		return nil, fmt.Errorf("cannot specialize")
	}
	fn.Call(Undefined, Int32Value(1))
	fn.Call(Undefined, DoubleValue(1))
	if !fn.Metadata.IsBlackListed || calls != 1 {
		t.Errorf("blacklisted=%v after %d specializer calls", fn.Metadata.IsBlackListed, calls)
	}
	if st := rt.Stats(); st.Blacklisted != 1 {
		t.Errorf("Blacklisted = %d", st.Blacklisted)
	}
}

func TestSpecializerMayReturnWiderCode(t *testing.T) {
	rt := newTestRuntime(0)
	fn := rt.NewNativeFunction("f", 2, addBody).Function()
	fn.Metadata.Specializer = func(m *FunctionMetadata, sig Signature) (*FunctionCode, error) {
		return NewFunctionCode(SignatureOf(sig.ArgType(0)), func(frame *CallFrame) {
			frame.Return = StringValue("first-arg")
		}), nil
	}
	fn.Call(Undefined, Int32Value(1), Int32Value(1))
	if got := fn.Call(Undefined, Int32Value(1), StringValue("x")); got.ToString() != "first-arg" {
		t.Errorf("code keyed on the first argument only should match, got %v", got)
	}
}

func TestNarrowerCodeFillsProfilingEntry(t *testing.T) {
	rt := newTestRuntime(2)
	fn := rt.NewNativeFunction("f", 2, addBody).Function()
	fn.Metadata.Specializer = func(m *FunctionMetadata, sig Signature) (*FunctionCode, error) {
		return NewFunctionCode(SignatureOf(sig.ArgType(0)), func(frame *CallFrame) {
			frame.Return = StringValue("first-arg")
		}), nil
	}
	// leaves a profiling entry keyed on the first argument alone
	fn.Call(Undefined, Int32Value(1))

	special := 0
	for range 10 {
		if fn.Call(Undefined, Int32Value(1), StringValue("x")).ToString() == "first-arg" {
			special++
		}
	}
	if special != 8 {
		t.Errorf("specialized body ran %d times, want 8", special)
	}
	if st := rt.Stats(); st.Specializations != 1 {
		t.Errorf("Specializations = %d", st.Specializations)
	}
	if got := fn.Call(Undefined, Int32Value(3)); got.ToString() != "first-arg" {
		t.Errorf("one-argument calls should use the installed body, got %v", got)
	}
}

func TestIsFullMatch(t *testing.T) {
	rt := newTestRuntime(0)
	meta := rt.NewFunctionMetadata("f", 2, addBody)
	sig := SignatureOf(TypeInt32, TypeDouble, TypeString)
	if !meta.IsFullMatch(NewFunctionCode(SignatureOf(TypeInt32, TypeDouble), nil), sig) {
		t.Errorf("code for both declared parameters should be a full match")
	}
	if meta.IsFullMatch(NewFunctionCode(SignatureOf(TypeInt32), nil), sig) {
		t.Errorf("code for one parameter is not a full match")
	}
	if meta.IsFullMatch(nil, sig) {
		t.Errorf("nil code is never a full match")
	}
}

func TestConstruct(t *testing.T) {
	rt := NewRuntime(nil)
	x, y := rt.GetFieldID("x"), rt.GetFieldID("y")
	point := rt.NewNativeFunction("Point", 2, func(frame *CallFrame) {
		this := frame.ThisObject()
		_ = this.SetFieldByID(x, frame.Arg0)
		_ = this.SetFieldByID(y, frame.Arg1)
	})
	fn := point.Function()

	p := fn.Construct(Int32Value(1), Int32Value(2))
	proto := point.GetFieldByID(rt.PrototypeFieldID).AsObject()
	if p.Prototype() != proto {
		t.Errorf("constructed object should inherit from Point.prototype")
	}
	if c := proto.GetFieldByID(rt.ConstructorFieldID); c.AsObject() != point {
		t.Errorf("prototype.constructor = %v", c)
	}
	if p.GetField("x").AsInt32() != 1 || p.GetField("y").AsInt32() != 2 {
		t.Errorf("fields x=%v y=%v", p.GetField("x"), p.GetField("y"))
	}
	if fn.Metadata.TypicalConstructedFieldsLength != 2 {
		t.Errorf("TypicalConstructedFieldsLength = %d", fn.Metadata.TypicalConstructedFieldsLength)
	}

	q := fn.Construct(Int32Value(3), Int32Value(4))
	if q.Shape() != p.Shape() {
		t.Errorf("objects built by the same constructor should share a shape")
	}
	if len(p.Fields) != fieldGrowth || len(q.Fields) != 2 {
		t.Errorf("first object grows by %d, second starts with the typical capacity; got %d and %d", fieldGrowth, len(p.Fields), len(q.Fields))
	}

	_ = proto.SetField("kind", StringValue("point"))
	if p.GetField("kind").ToString() != "point" {
		t.Errorf("methods added to the prototype later should be visible")
	}
}

func TestConstructUsesReturnedObject(t *testing.T) {
	rt := NewRuntime(nil)
	other := rt.NewObject()
	fn := rt.NewNativeFunction("F", 0, func(frame *CallFrame) {
		frame.Return = ObjectValue(other)
	}).Function()
	if got := fn.Construct(); got != other {
		t.Errorf("an object returned by the constructor replaces the new object")
	}

	prim := rt.NewNativeFunction("G", 0, func(frame *CallFrame) {
		frame.Return = Int32Value(1)
	}).Function()
	if got := prim.Construct(); got == nil || got.Kind() != KindPlain {
		t.Errorf("a primitive return is ignored")
	}
}

func TestConstructWithNonObjectPrototype(t *testing.T) {
	rt := NewRuntime(nil)
	f := rt.NewNativeFunction("F", 0, noopBody)
	_ = f.SetFieldByID(rt.PrototypeFieldID, Int32Value(5))
	if got := f.Function().Construct(); got.Prototype() != rt.ObjectPrototype {
		t.Errorf("a non-object prototype falls back to Object.prototype")
	}
}

func TestFunctionPrototypeMethods(t *testing.T) {
	rt := NewRuntime(nil)
	f := rt.NewNativeFunction("f", 3, func(frame *CallFrame) {
		frame.Return = frame.This
	})
	if got := f.GetField("length"); got.AsInt32() != 3 {
		t.Errorf("length = %v", got)
	}
	call := f.GetField("call").AsFunction()
	if got := call.Call(ObjectValue(f), StringValue("this")); got.AsString() != "this" {
		t.Errorf("call should forward the receiver, got %v", got)
	}
}
