package main

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/nooga/mdr/pkg/vm"
)

type workload struct {
	name string
	run  func(rt *vm.Runtime, iterations int) string
}

var workloads = []workload{
	{"objects", objectsWorkload},
	{"prototypes", prototypesWorkload},
	{"calls", callsWorkload},
	{"json", jsonWorkload},
	{"regexp", regexpWorkload},
}

func selectWorkloads(name string) ([]workload, bool) {
	if name == "all" {
		return workloads, true
	}
	for _, w := range workloads {
		if w.name == name {
			return []workload{w}, true
		}
	}
	return nil, false
}

func elapsed(start time.Time, iterations int) string {
	d := time.Since(start)
	return fmt.Sprintf("%d iterations in %s (%.1f ns/op)", iterations, d, float64(d.Nanoseconds())/float64(max(iterations, 1)))
}

// objectsWorkload adds and reads properties on objects that all end up on
// the same shape.
func objectsWorkload(rt *vm.Runtime, iterations int) string {
	x, y, z := rt.GetFieldID("x"), rt.GetFieldID("y"), rt.GetFieldID("z")
	start := time.Now()
	var sum float64
	for i := range iterations {
		o := rt.NewObject()
		_ = o.SetFieldByID(x, vm.Int32Value(int32(i)))
		_ = o.SetFieldByID(y, vm.DoubleValue(0.5))
		if i%2 == 0 {
			_ = o.SetFieldByID(z, vm.True)
		}
		sum += o.GetFieldByID(x).ToDouble() + o.GetFieldByID(y).ToDouble()
	}
	return fmt.Sprintf("sum=%s, %s", vm.DoubleValue(sum), elapsed(start, iterations))
}

// prototypesWorkload constructs points through a constructor whose
// prototype gains a method halfway through the run.
func prototypesWorkload(rt *vm.Runtime, iterations int) string {
	x, y := rt.GetFieldID("x"), rt.GetFieldID("y")
	norm := rt.GetFieldID("norm")

	point := rt.NewNativeFunction("Point", 2, func(frame *vm.CallFrame) {
		this := frame.ThisObject()
		_ = this.SetFieldByID(x, frame.Arg0)
		_ = this.SetFieldByID(y, frame.Arg1)
	})
	proto := point.GetFieldByID(rt.PrototypeFieldID).AsObject()
	normFn := rt.NewNativeFunction("norm", 0, func(frame *vm.CallFrame) {
		this := frame.ThisObject()
		dx, dy := this.GetFieldByID(x).ToDouble(), this.GetFieldByID(y).ToDouble()
		frame.Return = vm.DoubleValue(math.Hypot(dx, dy))
	})

	start := time.Now()
	var total float64
	for i := range iterations {
		if i == iterations/2 {
			_ = proto.SetFieldByID(norm, vm.ObjectValue(normFn))
		}
		p := point.Function().Construct(vm.Int32Value(int32(i%100)), vm.Int32Value(1))
		if m := p.GetFieldByID(norm); m.IsFunction() {
			total += m.AsFunction().Call(vm.ObjectValue(p)).ToDouble()
		}
	}
	return fmt.Sprintf("total=%s, %s", vm.DoubleValue(total), elapsed(start, iterations))
}

// callsWorkload calls a two-parameter function with alternating argument
// types; the int32 signature gets a specialized body once it is hot.
func callsWorkload(rt *vm.Runtime, iterations int) string {
	generic := func(frame *vm.CallFrame) {
		frame.Return = vm.DoubleValue(frame.Arg0.ToDouble() + frame.Arg1.ToDouble())
	}
	add := rt.NewNativeFunction("add", 2, generic)
	meta := add.Function().Metadata
	meta.Specializer = func(m *vm.FunctionMetadata, sig vm.Signature) (*vm.FunctionCode, error) {
		if sig != vm.SignatureOf(vm.TypeInt32, vm.TypeInt32) {
			return nil, nil
		}
		return vm.NewFunctionCode(sig, func(frame *vm.CallFrame) {
			frame.Return = vm.Int64Value(int64(frame.Arg0.AsInt32()) + int64(frame.Arg1.AsInt32()))
		}), nil
	}

	start := time.Now()
	var sum float64
	for i := range iterations {
		var r vm.Value
		if i%4 == 0 {
			r = add.Function().Call(vm.Undefined, vm.DoubleValue(float64(i)), vm.DoubleValue(1))
		} else {
			r = add.Function().Call(vm.Undefined, vm.Int32Value(int32(i)), vm.Int32Value(1))
		}
		sum += r.ToDouble()
	}
	return fmt.Sprintf("sum=%s, cached bodies=%d, %s", vm.DoubleValue(sum), meta.Cache.Len(), elapsed(start, iterations))
}

const jsonDocument = `{"id":7,"name":"point","tags":["a","b"],"pos":{"x":1.5,"y":-2}}`

// jsonWorkload parses a small document into objects and encodes it back.
func jsonWorkload(rt *vm.Runtime, iterations int) string {
	start := time.Now()
	size := 0
	for range iterations {
		v, err := rt.ParseJSON([]byte(jsonDocument))
		if err != nil {
			return "error: " + err.Error()
		}
		out, err := json.Marshal(v)
		if err != nil {
			return "error: " + err.Error()
		}
		size += len(out)
	}
	return fmt.Sprintf("bytes=%d, %s", size, elapsed(start, iterations))
}

// regexpWorkload walks a global regexp over an input through lastIndex.
func regexpWorkload(rt *vm.Runtime, iterations int) string {
	re, err := rt.NewRegExp(`\d+`, "g")
	if err != nil {
		return "error: " + err.Error()
	}
	input := "a1 b22 c333 d4444"
	start := time.Now()
	matches := 0
	for range iterations {
		for {
			ok, err := rt.Test(re, input)
			if err != nil {
				return "error: " + err.Error()
			}
			if !ok {
				break
			}
			matches++
		}
	}
	return fmt.Sprintf("matches=%d, %s", matches, elapsed(start, iterations))
}
