package vm

import (
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/nooga/mdr/pkg/errors"
)

// Value is the fixed-size tagged value used for arguments, returns and
// object fields. Primitive payloads live in payload; strings keep their data
// pointer in obj and their length in payload; objects keep their *Object in obj.
type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
	NaN       = Value{typ: TypeDouble, payload: math.Float64bits(math.NaN())}
)

func BooleanValue(value bool) Value {
	if value {
		return True
	}
	return False
}

func CharValue(value uint16) Value { return Value{typ: TypeChar, payload: uint64(value)} }

func FloatValue(value float32) Value {
	return Value{typ: TypeFloat, payload: uint64(math.Float32bits(value))}
}

func DoubleValue(value float64) Value {
	return Value{typ: TypeDouble, payload: math.Float64bits(value)}
}

func Int8Value(value int8) Value     { return Value{typ: TypeInt8, payload: uint64(int64(value))} }
func Int16Value(value int16) Value   { return Value{typ: TypeInt16, payload: uint64(int64(value))} }
func Int32Value(value int32) Value   { return Value{typ: TypeInt32, payload: uint64(int64(value))} }
func Int64Value(value int64) Value   { return Value{typ: TypeInt64, payload: uint64(value)} }
func UInt8Value(value uint8) Value   { return Value{typ: TypeUInt8, payload: uint64(value)} }
func UInt16Value(value uint16) Value { return Value{typ: TypeUInt16, payload: uint64(value)} }
func UInt32Value(value uint32) Value { return Value{typ: TypeUInt32, payload: uint64(value)} }
func UInt64Value(value uint64) Value { return Value{typ: TypeUInt64, payload: value} }

func StringValue(value string) Value {
	return Value{typ: TypeString, payload: uint64(len(value)), obj: unsafe.Pointer(unsafe.StringData(value))}
}

// ObjectValue tags o by its kind: functions, arrays and property accessors
// get their own discriminants, everything else is TypeObject. A nil object
// is Null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null
	}
	typ := TypeObject
	switch o.kind {
	case KindFunction:
		typ = TypeFunction
	case KindArray:
		typ = TypeArray
	case KindProperty:
		typ = TypeProperty
	}
	return Value{typ: typ, obj: unsafe.Pointer(o)}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsString() bool    { return v.typ == TypeString }
func (v Value) IsNumber() bool    { return v.typ.IsNumber() }
func (v Value) IsObject() bool    { return v.typ.IsObject() && v.obj != nil }
func (v Value) IsFunction() bool  { return v.typ == TypeFunction }

// IsNullish reports whether v is undefined or null.
func (v Value) IsNullish() bool { return v.typ == TypeUndefined || v.typ == TypeNull }

func (v Value) mustBe(t ValueType, op string) {
	if v.typ != t {
		panic(errors.NewTypeMismatch(op, t.String(), v.typ.String()))
	}
}

// --- Accessors: each requires the matching discriminant ---

func (v Value) AsBoolean() bool {
	v.mustBe(TypeBoolean, "Value.AsBoolean")
	return v.payload != 0
}

func (v Value) AsChar() uint16 {
	v.mustBe(TypeChar, "Value.AsChar")
	return uint16(v.payload)
}

func (v Value) AsFloat() float32 {
	v.mustBe(TypeFloat, "Value.AsFloat")
	return math.Float32frombits(uint32(v.payload))
}

func (v Value) AsDouble() float64 {
	v.mustBe(TypeDouble, "Value.AsDouble")
	return math.Float64frombits(v.payload)
}

func (v Value) AsInt8() int8 {
	v.mustBe(TypeInt8, "Value.AsInt8")
	return int8(v.payload)
}

func (v Value) AsInt16() int16 {
	v.mustBe(TypeInt16, "Value.AsInt16")
	return int16(v.payload)
}

func (v Value) AsInt32() int32 {
	v.mustBe(TypeInt32, "Value.AsInt32")
	return int32(v.payload)
}

func (v Value) AsInt64() int64 {
	v.mustBe(TypeInt64, "Value.AsInt64")
	return int64(v.payload)
}

func (v Value) AsUInt8() uint8 {
	v.mustBe(TypeUInt8, "Value.AsUInt8")
	return uint8(v.payload)
}

func (v Value) AsUInt16() uint16 {
	v.mustBe(TypeUInt16, "Value.AsUInt16")
	return uint16(v.payload)
}

func (v Value) AsUInt32() uint32 {
	v.mustBe(TypeUInt32, "Value.AsUInt32")
	return uint32(v.payload)
}

func (v Value) AsUInt64() uint64 {
	v.mustBe(TypeUInt64, "Value.AsUInt64")
	return v.payload
}

func (v Value) AsString() string {
	v.mustBe(TypeString, "Value.AsString")
	return unsafe.String((*byte)(v.obj), int(v.payload))
}

// AsObject accepts every object-like discriminant.
func (v Value) AsObject() *Object {
	if !v.typ.IsObject() || v.obj == nil {
		panic(errors.NewTypeMismatch("Value.AsObject", "Object", v.typ.String()))
	}
	return (*Object)(v.obj)
}

func (v Value) AsFunction() *Function {
	v.mustBe(TypeFunction, "Value.AsFunction")
	return (*Object)(v.obj).fn
}

func (v Value) AsArray() *ArrayData {
	v.mustBe(TypeArray, "Value.AsArray")
	return (*Object)(v.obj).array
}

func (v Value) AsProperty() *Property {
	v.mustBe(TypeProperty, "Value.AsProperty")
	return (*Object)(v.obj).prop
}

// --- Conversions ---

// ToDouble widens numerics, parses strings (failing to NaN) and unwraps
// primitive wrapper objects. Undefined and non-wrapper objects become NaN.
func (v Value) ToDouble() float64 {
	switch v.typ {
	case TypeUndefined:
		return math.NaN()
	case TypeNull:
		return 0
	case TypeBoolean:
		if v.payload != 0 {
			return 1
		}
		return 0
	case TypeChar, TypeUInt8, TypeUInt16, TypeUInt32:
		return float64(v.payload)
	case TypeUInt64:
		return float64(v.payload)
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return float64(int64(v.payload))
	case TypeFloat:
		return float64(v.AsFloat())
	case TypeDouble:
		return v.AsDouble()
	case TypeString:
		return parseStringToNumber(v.AsString())
	default:
		if v.IsObject() {
			if prim := v.AsObject().PrimitiveValue(); !prim.IsUndefined() {
				return prim.ToDouble()
			}
		}
		return math.NaN()
	}
}

// ToBoolean: objects are always true; numbers are true unless zero or NaN;
// strings unless empty.
func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.payload != 0
	case TypeString:
		return v.payload != 0
	case TypeFloat, TypeDouble:
		f := v.ToDouble()
		return f != 0 && !math.IsNaN(f)
	default:
		if v.typ.IsNumber() {
			return v.payload != 0
		}
		return v.typ.IsObject()
	}
}

// ToInt32 converts through ToDouble with modulo-2^32 wrapping; NaN and
// infinities become 0.
func (v Value) ToInt32() int32 {
	switch v.typ {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64, TypeChar:
		return int32(v.payload)
	case TypeBoolean:
		return int32(v.payload)
	}
	f := v.ToDouble()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Mod(math.Trunc(f), 1<<32))))
}

func (v Value) ToString() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.payload != 0 {
			return "true"
		}
		return "false"
	case TypeString:
		return v.AsString()
	case TypeChar:
		return string(rune(v.payload))
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(int64(v.payload), 10)
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return strconv.FormatUint(v.payload, 10)
	case TypeFloat, TypeDouble:
		return formatDouble(v.ToDouble())
	default:
		if v.IsObject() {
			return v.AsObject().String()
		}
		return "<" + v.typ.String() + ">"
	}
}

// Equal compares discriminant and payload; strings compare by content and
// objects by identity.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch {
	case v.typ == TypeString:
		return v.AsString() == other.AsString()
	case v.typ.IsObject():
		return v.obj == other.obj
	default:
		return v.payload == other.payload
	}
}

// String implements fmt.Stringer for debugging output.
func (v Value) String() string {
	if v.typ == TypeString {
		return strconv.Quote(v.AsString())
	}
	return v.ToString()
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseStringToNumber converts a string to a number; anything unparsable is NaN.
// Handles hex (0x), octal (0o), binary (0b), and decimal (including scientific notation)
func parseStringToNumber(s string) float64 {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0
	}

	if len(str) >= 2 && str[0] == '0' {
		base := 0
		switch str[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if i, err := strconv.ParseInt(str[2:], base, 64); err == nil {
				return float64(i)
			}
			return math.NaN()
		}
	}

	// "Infinity" is case-sensitive, unlike ParseFloat
	switch str {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.Contains(strings.ToLower(str), "inf") || strings.Contains(strings.ToLower(str), "nan") {
		return math.NaN()
	}

	if f, err := strconv.ParseFloat(str, 64); err == nil {
		return f
	}
	return math.NaN()
}
