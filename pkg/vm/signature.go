package vm

import (
	"fmt"
	"strings"
)

// Signature packs the type tags of up to TypesPerElement arguments into one
// word, TypeBits bits per argument, argument 0 in the lowest bits. A zero
// slot means the argument type is unknown.
type Signature uint64

const TypesPerElement = 64 / TypeBits

// EmptySignature knows nothing about any argument.
const EmptySignature Signature = 0

// NewSignature builds a signature from the first maxArgs arguments. If more
// than TypesPerElement arguments remain, the result is EmptySignature.
func NewSignature(args []Value, maxArgs int) Signature {
	count := len(args)
	if count > maxArgs {
		count = maxArgs
	}
	if count <= 0 || count > TypesPerElement {
		return EmptySignature
	}
	var sig Signature
	for i := count - 1; i >= 0; i-- {
		sig = sig.WithArgType(i, args[i].Type())
	}
	return sig
}

// SignatureOf builds a signature from explicit tags.
func SignatureOf(types ...ValueType) Signature {
	if len(types) > TypesPerElement {
		return EmptySignature
	}
	var sig Signature
	for i, t := range types {
		sig = sig.WithArgType(i, t)
	}
	return sig
}

// WithArgType returns sig with slot i set to t. Out-of-range slots and tags
// wider than TypeBits leave sig unchanged.
func (sig Signature) WithArgType(i int, t ValueType) Signature {
	if i < 0 || i >= TypesPerElement || t > TypeMask {
		return sig
	}
	shift := uint(i * TypeBits)
	cleared := uint64(sig) &^ (uint64(TypeMask) << shift)
	return Signature(cleared | uint64(t)<<shift)
}

func (sig Signature) ArgType(i int) ValueType {
	if i < 0 || i >= TypesPerElement {
		return TypeUndefined
	}
	return ValueType(uint64(sig) >> uint(i*TypeBits) & TypeMask)
}

func (sig Signature) IsEmpty() bool { return sig == EmptySignature }

// GetMask returns the mask covering the first n argument slots, or 0 when n
// exceeds TypesPerElement.
func GetMask(n int) uint64 {
	if n <= 0 || n > TypesPerElement {
		return 0
	}
	return ^(^uint64(0) << uint(n*TypeBits))
}

// Mask has every bit of each known slot set.
func (sig Signature) Mask() uint64 {
	var mask uint64
	value := uint64(sig)
	for offset := uint(0); value != 0; offset += TypeBits {
		if value&TypeMask != 0 {
			mask |= uint64(TypeMask) << offset
		}
		value >>= TypeBits
	}
	return mask
}

func (sig Signature) KnownArgTypesCount() int {
	count := 0
	for value := uint64(sig); value != 0; value >>= TypeBits {
		if value&TypeMask != 0 {
			count++
		}
	}
	return count
}

// LastKnownArgTypeIndex is the highest slot with a known type, or -1.
func (sig Signature) LastKnownArgTypeIndex() int {
	index := -1
	for value := uint64(sig); value != 0; value >>= TypeBits {
		index++
	}
	return index
}

// Types lists the slots up to the last known one.
func (sig Signature) Types() []ValueType {
	var types []ValueType
	for value := uint64(sig); value != 0; value >>= TypeBits {
		types = append(types, ValueType(value&TypeMask))
	}
	return types
}

// Compatible reports whether the slots known on both sides agree.
func (sig Signature) Compatible(other Signature) bool {
	mask := sig.Mask() & other.Mask()
	return uint64(sig)&mask == uint64(other)&mask
}

func (sig Signature) String() string {
	types := sig.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return fmt.Sprintf("0x%X-->%s", uint64(sig), strings.Join(names, ","))
}
