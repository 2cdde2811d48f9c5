package vm

import "fmt"

// ValueType is the 5-bit tag of a Value. The low two bits classify the tag:
// 01 integer, 10 other numeric (char, float, double), 11 object-like,
// 00 everything else.
type ValueType uint8

const (
	TypeUndefined ValueType = 0x00
	TypeInt8      ValueType = 0x01
	TypeChar      ValueType = 0x02
	TypeObject    ValueType = 0x03
	TypeBoolean   ValueType = 0x04
	TypeInt16     ValueType = 0x05
	TypeFloat     ValueType = 0x06
	TypeInt32     ValueType = 0x09
	TypeFunction  ValueType = 0x0B
	TypeString    ValueType = 0x0C
	TypeInt64     ValueType = 0x0D
	TypeDouble    ValueType = 0x0E
	TypeUInt8     ValueType = 0x11
	TypeArray     ValueType = 0x13
	TypeUInt16    ValueType = 0x15
	TypeNull      ValueType = 0x18
	TypeUInt32    ValueType = 0x19
	TypeProperty  ValueType = 0x1B
	TypeUInt64    ValueType = 0x1D
	TypeAny       ValueType = 0x1F
)

const (
	TypeBits = 5
	TypeMask = 1<<TypeBits - 1
)

func (t ValueType) IsNumber() bool {
	low := t & 3
	return low == 1 || low == 2
}

func (t ValueType) IsInteger() bool { return t&3 == 1 }

func (t ValueType) IsObject() bool { return t&3 == 3 }

// IsValid reports whether t is one of the defined tags.
func (t ValueType) IsValid() bool {
	_, ok := valueTypeNames[t]
	return ok
}

var valueTypeNames = map[ValueType]string{
	TypeUndefined: "Undefined",
	TypeInt8:      "Int8",
	TypeChar:      "Char",
	TypeObject:    "Object",
	TypeBoolean:   "Boolean",
	TypeInt16:     "Int16",
	TypeFloat:     "Float",
	TypeInt32:     "Int32",
	TypeFunction:  "Function",
	TypeString:    "String",
	TypeInt64:     "Int64",
	TypeDouble:    "Double",
	TypeUInt8:     "UInt8",
	TypeArray:     "Array",
	TypeUInt16:    "UInt16",
	TypeNull:      "Null",
	TypeUInt32:    "UInt32",
	TypeProperty:  "Property",
	TypeUInt64:    "UInt64",
	TypeAny:       "Any",
}

// String returns the tag name, e.g. "Double".
func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("<unknown type 0x%02X>", uint8(t))
}
