package vm

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	mdrerrors "github.com/nooga/mdr/pkg/errors"
)

// Helper function to check for panics using standard library
func expectPanic(t *testing.T, fn func(), containsMsg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected a panic, but function did not panic")
			return
		}
		if containsMsg != "" {
			var panicMsg string
			switch v := r.(type) {
			case string:
				panicMsg = v
			case error:
				panicMsg = v.Error()
			default:
				panicMsg = fmt.Sprintf("%v", r)
			}
			if !strings.Contains(panicMsg, containsMsg) {
				t.Errorf("Panic message mismatch.\nExpected to contain: %q\nActual: %q", containsMsg, panicMsg)
			}
		}
	}()
	fn()
}

// expectTypeMismatch checks that fn panics with a TypeMismatchError.
func expectTypeMismatch(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		var tm *mdrerrors.TypeMismatchError
		if !ok || !errors.As(err, &tm) {
			t.Errorf("Expected a TypeMismatchError panic, got %v", r)
		}
	}()
	fn()
}

func floatsEqual(t *testing.T, expected, actual float64, msgAndArgs ...interface{}) {
	t.Helper()
	if math.IsNaN(expected) {
		if !math.IsNaN(actual) {
			t.Errorf("Expected NaN, got %v. %s", actual, fmt.Sprint(msgAndArgs...))
		}
		return
	}
	if math.Abs(expected-actual) > 1e-9 {
		t.Errorf("Float mismatch. Expected %v, got %v. %s", expected, actual, fmt.Sprint(msgAndArgs...))
	}
}

func TestValueTypeClassification(t *testing.T) {
	tests := []struct {
		typ       ValueType
		isNumber  bool
		isInteger bool
		isObject  bool
	}{
		{TypeUndefined, false, false, false},
		{TypeInt8, true, true, false},
		{TypeChar, true, false, false},
		{TypeObject, false, false, true},
		{TypeBoolean, false, false, false},
		{TypeInt16, true, true, false},
		{TypeFloat, true, false, false},
		{TypeInt32, true, true, false},
		{TypeFunction, false, false, true},
		{TypeString, false, false, false},
		{TypeInt64, true, true, false},
		{TypeDouble, true, false, false},
		{TypeUInt8, true, true, false},
		{TypeArray, false, false, true},
		{TypeUInt16, true, true, false},
		{TypeNull, false, false, false},
		{TypeUInt32, true, true, false},
		{TypeProperty, false, false, true},
		{TypeUInt64, true, true, false},
		{TypeAny, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if tt.typ > TypeMask {
				t.Fatalf("tag 0x%X does not fit in %d bits", uint8(tt.typ), TypeBits)
			}
			if got := tt.typ.IsNumber(); got != tt.isNumber {
				t.Errorf("IsNumber() = %v, want %v", got, tt.isNumber)
			}
			if got := tt.typ.IsInteger(); got != tt.isInteger {
				t.Errorf("IsInteger() = %v, want %v", got, tt.isInteger)
			}
			if got := tt.typ.IsObject(); got != tt.isObject {
				t.Errorf("IsObject() = %v, want %v", got, tt.isObject)
			}
			if !tt.typ.IsValid() {
				t.Errorf("IsValid() = false")
			}
		})
	}
	if ValueType(0x07).IsValid() {
		t.Errorf("0x07 should not be a valid tag")
	}
}

func TestZeroValueIsUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() || v.Type() != TypeUndefined {
		t.Errorf("zero Value should be Undefined, got %v", v.Type())
	}
	if v.ToString() != "undefined" {
		t.Errorf("ToString() = %q", v.ToString())
	}
}

func TestNumericAccessors(t *testing.T) {
	if got := Int8Value(-5).AsInt8(); got != -5 {
		t.Errorf("AsInt8 = %d", got)
	}
	if got := Int16Value(-300).AsInt16(); got != -300 {
		t.Errorf("AsInt16 = %d", got)
	}
	if got := Int32Value(-70000).AsInt32(); got != -70000 {
		t.Errorf("AsInt32 = %d", got)
	}
	if got := Int64Value(math.MinInt64).AsInt64(); got != math.MinInt64 {
		t.Errorf("AsInt64 = %d", got)
	}
	if got := UInt8Value(200).AsUInt8(); got != 200 {
		t.Errorf("AsUInt8 = %d", got)
	}
	if got := UInt16Value(65000).AsUInt16(); got != 65000 {
		t.Errorf("AsUInt16 = %d", got)
	}
	if got := UInt32Value(4_000_000_000).AsUInt32(); got != 4_000_000_000 {
		t.Errorf("AsUInt32 = %d", got)
	}
	if got := UInt64Value(math.MaxUint64).AsUInt64(); got != math.MaxUint64 {
		t.Errorf("AsUInt64 = %d", got)
	}
	if got := FloatValue(1.5).AsFloat(); got != 1.5 {
		t.Errorf("AsFloat = %v", got)
	}
	if got := DoubleValue(2.25).AsDouble(); got != 2.25 {
		t.Errorf("AsDouble = %v", got)
	}
	if got := CharValue('A').AsChar(); got != 'A' {
		t.Errorf("AsChar = %d", got)
	}
}

func TestAccessorTypeMismatchPanics(t *testing.T) {
	expectTypeMismatch(t, func() { Int32Value(1).AsDouble() })
	expectTypeMismatch(t, func() { DoubleValue(1).AsInt32() })
	expectTypeMismatch(t, func() { StringValue("x").AsBoolean() })
	expectTypeMismatch(t, func() { Undefined.AsObject() })
	expectTypeMismatch(t, func() { Null.AsString() })
	expectPanic(t, func() { True.AsInt64() }, "expected Int64, got Boolean")
}

func TestStringValue(t *testing.T) {
	s := StringValue("hello")
	if !s.IsString() || s.AsString() != "hello" {
		t.Errorf("AsString = %q", s.AsString())
	}
	if !s.Equal(StringValue("hel" + "lo")) {
		t.Errorf("strings with equal content should be equal")
	}
	if s.Equal(StringValue("world")) {
		t.Errorf("different strings should not be equal")
	}
	if StringValue("").ToBoolean() {
		t.Errorf("empty string should be falsy")
	}
	if got := s.String(); got != `"hello"` {
		t.Errorf("String() = %s", got)
	}
}

func TestToDouble(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want float64
	}{
		{"undefined", Undefined, math.NaN()},
		{"null", Null, 0},
		{"true", True, 1},
		{"false", False, 0},
		{"int8", Int8Value(-3), -3},
		{"uint64", UInt64Value(7), 7},
		{"float", FloatValue(0.5), 0.5},
		{"decimal string", StringValue(" 42.5 "), 42.5},
		{"hex string", StringValue("0x1F"), 31},
		{"empty string", StringValue(""), 0},
		{"garbage", StringValue("12abc"), math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floatsEqual(t, tt.want, tt.v.ToDouble())
		})
	}
}

func TestToInt32Wraps(t *testing.T) {
	tests := []struct {
		v    Value
		want int32
	}{
		{DoubleValue(4294967297), 1},
		{DoubleValue(-1.9), -1},
		{DoubleValue(math.NaN()), 0},
		{DoubleValue(math.Inf(1)), 0},
		{StringValue("12"), 12},
		{Int64Value(1 << 32), 0},
	}
	for _, tt := range tests {
		if got := tt.v.ToInt32(); got != tt.want {
			t.Errorf("ToInt32(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestToStringConversion(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{True, "true"},
		{Int32Value(-12), "-12"},
		{UInt32Value(12), "12"},
		{DoubleValue(1.5), "1.5"},
		{DoubleValue(100), "100"},
		{DoubleValue(math.Inf(-1)), "-Infinity"},
		{NaN, "NaN"},
		{CharValue('z'), "z"},
	}
	for _, tt := range tests {
		if got := tt.v.ToString(); got != tt.want {
			t.Errorf("ToString() = %q, want %q", got, tt.want)
		}
	}
}

func TestObjectValueTagging(t *testing.T) {
	rt := NewRuntime(nil)
	tests := []struct {
		name string
		obj  *Object
		want ValueType
	}{
		{"plain", rt.NewObject(), TypeObject},
		{"array", rt.NewArray(), TypeArray},
		{"function", rt.NewNativeFunction("f", 0, func(*CallFrame) {}), TypeFunction},
		{"property", rt.NewPropertyObject(NewProperty(nil, nil)), TypeProperty},
		{"string", rt.NewString("s"), TypeObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ObjectValue(tt.obj)
			if v.Type() != tt.want {
				t.Errorf("Type() = %v, want %v", v.Type(), tt.want)
			}
			if v.AsObject() != tt.obj {
				t.Errorf("AsObject() did not return the wrapped object")
			}
			if !v.ToBoolean() {
				t.Errorf("objects should be truthy")
			}
		})
	}
	if !ObjectValue(nil).IsNull() {
		t.Errorf("ObjectValue(nil) should be Null")
	}
}

func TestWrapperObjectConversions(t *testing.T) {
	rt := NewRuntime(nil)
	n := ObjectValue(rt.NewNumber(2.5))
	floatsEqual(t, 2.5, n.ToDouble())
	if n.ToString() != "2.5" {
		t.Errorf("number wrapper ToString = %q", n.ToString())
	}
	if got := ObjectValue(rt.NewBoolean(true)).ToString(); got != "true" {
		t.Errorf("boolean wrapper ToString = %q", got)
	}
	if got := ObjectValue(rt.NewString("abc")).ToString(); got != "abc" {
		t.Errorf("string wrapper ToString = %q", got)
	}
	floatsEqual(t, math.NaN(), ObjectValue(rt.NewObject()).ToDouble())
}

func TestToObject(t *testing.T) {
	rt := NewRuntime(nil)
	obj := rt.NewObject()
	tests := []struct {
		name      string
		value     Value
		kind      ObjectKind
		primitive Value
	}{
		{"boolean", True, KindBoolean, True},
		{"int32", Int32Value(7), KindNumber, DoubleValue(7)},
		{"double", DoubleValue(2.5), KindNumber, DoubleValue(2.5)},
		{"string", StringValue("abc"), KindString, StringValue("abc")},
		{"undefined", Undefined, KindUndefined, Undefined},
		{"null", Null, KindNull, Undefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := rt.ToObject(tt.value)
			if o.Kind() != tt.kind {
				t.Fatalf("kind = %v, want %v", o.Kind(), tt.kind)
			}
			if tt.kind == KindUndefined || tt.kind == KindNull {
				return
			}
			if got := o.PrimitiveValue(); got.Type() != tt.primitive.Type() || got.ToString() != tt.primitive.ToString() {
				t.Errorf("primitive = %v, want %v", got, tt.primitive)
			}
		})
	}
	if rt.ToObject(ObjectValue(obj)) != obj {
		t.Errorf("objects should come back unchanged")
	}
	if rt.ToObject(Undefined) != rt.UndefinedObject || rt.ToObject(Null) != rt.NullObject {
		t.Errorf("nullish values should map to the runtime singletons")
	}
	if p := rt.ToObject(StringValue("x")).Prototype(); p != rt.StringPrototype {
		t.Errorf("string wrapper prototype = %v", p)
	}
}
