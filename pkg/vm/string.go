package vm

import (
	"encoding/binary"
	"unicode/utf16"

	xunicode "golang.org/x/text/encoding/unicode"
)

var utf16LE = xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)

// NewString creates a String wrapper object. Its items are UTF-16 code
// units, computed on first indexed access.
func (rt *Runtime) NewString(s string) *Object {
	o := newObject(rt.StringFamily.root, KindString, 0)
	o.primitive = StringValue(s)
	return o
}

// utf16 returns the code units of a String object.
func (o *Object) utf16() []uint16 {
	if o.units == nil {
		o.units = EncodeUTF16(o.primitive.AsString())
	}
	return o.units
}

// EncodeUTF16 converts s to UTF-16 code units. Invalid UTF-8 becomes U+FFFD.
func EncodeUTF16(s string) []uint16 {
	b, err := utf16LE.NewEncoder().String(s)
	if err != nil {
		return utf16.Encode([]rune(s))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16([]byte(b[2*i : 2*i+2]))
	}
	return units
}

// DecodeUTF16 converts code units back to a string. Unpaired surrogates
// become U+FFFD.
func DecodeUTF16(units []uint16) string {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	s, err := utf16LE.NewDecoder().String(string(b))
	if err != nil {
		return string(utf16.Decode(units))
	}
	return s
}
