package vm

// InlineArgsCount is the number of arguments a CallFrame keeps without
// allocating; the rest live in Arguments.
const InlineArgsCount = 4

// CallFrame carries one call: callee, caller, receiver, arguments, return
// slot and the signature of the passed argument types. A frame belongs to a
// single call and is never reused.
type CallFrame struct {
	Function       *Function
	CallerFunction *Function
	CallerContext  *Object
	This           Value
	Return         Value
	Signature      Signature

	PassedArgsCount   int
	ExpectedArgsCount int

	Arg0, Arg1, Arg2, Arg3 Value
	Arguments              []Value // Arg(InlineArgsCount) and up
}

// NewCallFrame stores args and computes the signature from their types.
func NewCallFrame(fn *Function, this Value, args ...Value) *CallFrame {
	frame := &CallFrame{Function: fn, This: this}
	frame.SetArgs(args)
	return frame
}

// SetArgs replaces the passed arguments and recomputes the signature.
func (f *CallFrame) SetArgs(args []Value) {
	f.PassedArgsCount = len(args)
	if f.ExpectedArgsCount < len(args) {
		f.ExpectedArgsCount = len(args)
	}
	f.Arg0, f.Arg1, f.Arg2, f.Arg3 = Undefined, Undefined, Undefined, Undefined
	f.Arguments = nil
	if extra := len(args) - InlineArgsCount; extra > 0 {
		f.Arguments = make([]Value, extra)
	}
	for i, a := range args {
		f.storeArg(i, a)
	}
	f.ComputeSignature()
}

// ComputeSignature packs the passed argument types, limited to the
// callee's declared parameters when it has metadata.
func (f *CallFrame) ComputeSignature() Signature {
	maxArgs := f.PassedArgsCount
	if f.Function != nil && f.Function.Metadata != nil && f.Function.Metadata.ParametersCount < maxArgs {
		maxArgs = f.Function.Metadata.ParametersCount
	}
	f.Signature = NewSignature(f.ArgsSlice(), maxArgs)
	return f.Signature
}

// Arg returns argument i, Undefined when it was not passed.
func (f *CallFrame) Arg(i int) Value {
	switch i {
	case 0:
		return f.Arg0
	case 1:
		return f.Arg1
	case 2:
		return f.Arg2
	case 3:
		return f.Arg3
	}
	if j := i - InlineArgsCount; j >= 0 && j < len(f.Arguments) {
		return f.Arguments[j]
	}
	return Undefined
}

// SetArg stores argument i and refreshes the signature.
func (f *CallFrame) SetArg(i int, v Value) {
	if i < 0 {
		return
	}
	if i-InlineArgsCount >= len(f.Arguments) {
		f.SetExpectedArgsCount(i + 1)
	}
	f.storeArg(i, v)
	if i >= f.PassedArgsCount {
		f.PassedArgsCount = i + 1
	}
	f.ComputeSignature()
}

func (f *CallFrame) storeArg(i int, v Value) {
	switch i {
	case 0:
		f.Arg0 = v
	case 1:
		f.Arg1 = v
	case 2:
		f.Arg2 = v
	case 3:
		f.Arg3 = v
	default:
		f.Arguments[i-InlineArgsCount] = v
	}
}

// SetExpectedArgsCount makes room for n arguments; the overflow array only
// grows when n exceeds both the passed count and the inline slots.
func (f *CallFrame) SetExpectedArgsCount(n int) {
	if n > f.PassedArgsCount && n > InlineArgsCount && n-InlineArgsCount > len(f.Arguments) {
		grown := make([]Value, n-InlineArgsCount)
		copy(grown, f.Arguments)
		f.Arguments = grown
	}
	f.ExpectedArgsCount = n
}

// ArgsSlice copies the passed arguments into a fresh slice.
func (f *CallFrame) ArgsSlice() []Value {
	args := make([]Value, f.PassedArgsCount)
	for i := range args {
		args[i] = f.Arg(i)
	}
	return args
}

// ThisObject returns the receiver as an object, or nil for primitives.
func (f *CallFrame) ThisObject() *Object {
	if f.This.IsObject() {
		return f.This.AsObject()
	}
	return nil
}
