package vm

// initPrototypes installs the methods and accessors of the default
// prototypes.
func (rt *Runtime) initPrototypes() {
	rt.defineMethod(rt.ObjectPrototype, "toString", 0, func(frame *CallFrame) {
		if o := frame.ThisObject(); o != nil {
			frame.Return = StringValue("[object " + o.ClassName() + "]")
			return
		}
		frame.Return = StringValue(frame.This.ToString())
	})
	rt.defineMethod(rt.ObjectPrototype, "valueOf", 0, func(frame *CallFrame) {
		frame.Return = frame.This
	})
	rt.defineMethod(rt.ObjectPrototype, "hasOwnProperty", 1, func(frame *CallFrame) {
		o := frame.ThisObject()
		frame.Return = BooleanValue(o != nil && o.HasOwnProperty(propertyKey(frame.Arg0)))
	})

	for _, proto := range []*Object{rt.FunctionPrototype, rt.ArrayPrototype, rt.StringPrototype, rt.BooleanPrototype, rt.NumberPrototype, rt.RegExpPrototype} {
		rt.defineMethod(proto, "toString", 0, stringOfThis)
	}
	for _, proto := range []*Object{rt.StringPrototype, rt.BooleanPrototype, rt.NumberPrototype} {
		rt.defineMethod(proto, "valueOf", 0, func(frame *CallFrame) {
			if o := frame.ThisObject(); o != nil {
				frame.Return = o.PrimitiveValue()
				return
			}
			frame.Return = frame.This
		})
	}

	rt.initFunctionPrototype()
	rt.initArrayPrototype()
	rt.initStringPrototype()
	rt.initRegExpPrototype()
}

func stringOfThis(frame *CallFrame) {
	frame.Return = StringValue(frame.This.ToString())
}

func (rt *Runtime) defineMethod(proto *Object, name string, params int, body Body) {
	fn := rt.NewNativeFunction(name, params, body)
	if err := proto.DefineOwnProperty(name, ObjectValue(fn), AttrNotEnumerable); err != nil {
		rt.log.Errorf("defining %s.%s: %s", proto.ClassName(), name, err.Error())
	}
}

func (rt *Runtime) defineAccessor(proto *Object, name string, p *Property) {
	if err := proto.DefineAccessor(name, p, AttrNotEnumerable|AttrNotConfigurable); err != nil {
		rt.log.Errorf("defining %s.%s: %s", proto.ClassName(), name, err.Error())
	}
}

// initFunctionPrototype installs the lazy prototype accessor: the first
// read on a function creates its prototype object and stores it as an own
// property, shadowing the accessor from then on.
func (rt *Runtime) initFunctionPrototype() {
	rt.defineAccessor(rt.FunctionPrototype, "prototype", NewProperty(
		func(this *Object) Value {
			if this.kind != KindFunction {
				return Undefined
			}
			proto := rt.NewObject()
			_ = proto.DefineOwnPropertyByID(rt.ConstructorFieldID, ObjectValue(this), AttrNotEnumerable)
			_ = this.DefineOwnPropertyByID(rt.PrototypeFieldID, ObjectValue(proto), AttrNotEnumerable|AttrNotConfigurable)
			return ObjectValue(proto)
		},
		func(this *Object, v Value) {
			if this == rt.FunctionPrototype {
				return
			}
			_ = this.DefineOwnPropertyByID(rt.PrototypeFieldID, v, AttrNotEnumerable|AttrNotConfigurable)
		},
	))
	rt.defineAccessor(rt.FunctionPrototype, "length", NewProperty(func(this *Object) Value {
		if this.fn == nil || this.fn.Metadata == nil {
			return Int32Value(0)
		}
		return Int32Value(int32(this.fn.Metadata.ParametersCount))
	}, nil))
	rt.defineMethod(rt.FunctionPrototype, "call", 1, func(frame *CallFrame) {
		o := frame.ThisObject()
		if o == nil || o.fn == nil {
			frame.Return = Undefined
			return
		}
		args := frame.ArgsSlice()
		if len(args) == 0 {
			frame.Return = o.fn.Call(Undefined)
			return
		}
		frame.Return = o.fn.Call(args[0], args[1:]...)
	})
}

func (rt *Runtime) initArrayPrototype() {
	rt.defineAccessor(rt.ArrayPrototype, "length", NewProperty(
		func(this *Object) Value {
			if this.array == nil {
				return Int32Value(0)
			}
			return Int32Value(int32(this.array.Len()))
		},
		func(this *Object, v Value) {
			if this.array == nil {
				return
			}
			if err := this.array.SetLength(int(v.ToInt32())); err != nil {
				rt.log.Warningf("%s", err.Error())
			}
		},
	))
	rt.defineMethod(rt.ArrayPrototype, "push", 1, func(frame *CallFrame) {
		o := frame.ThisObject()
		if o == nil || o.array == nil {
			frame.Return = Undefined
			return
		}
		for _, v := range frame.ArgsSlice() {
			if err := o.array.Push(v); err != nil {
				rt.log.Warningf("%s", err.Error())
				break
			}
		}
		frame.Return = Int32Value(int32(o.array.Len()))
	})
}

func (rt *Runtime) initStringPrototype() {
	rt.defineAccessor(rt.StringPrototype, "length", NewProperty(func(this *Object) Value {
		if this.kind != KindString {
			return Int32Value(0)
		}
		return Int32Value(int32(len(this.utf16())))
	}, nil))
	rt.defineMethod(rt.StringPrototype, "charCodeAt", 1, func(frame *CallFrame) {
		frame.Return = NaN
		if o := frame.ThisObject(); o != nil && o.kind == KindString {
			if c := (stringItems{}).ItemAt(o, int(frame.Arg0.ToInt32())); !c.IsUndefined() {
				frame.Return = Int32Value(int32(c.AsChar()))
			}
		}
	})
	rt.defineMethod(rt.StringPrototype, "charAt", 1, func(frame *CallFrame) {
		frame.Return = StringValue("")
		if o := frame.ThisObject(); o != nil && o.kind == KindString {
			if c := (stringItems{}).ItemAt(o, int(frame.Arg0.ToInt32())); !c.IsUndefined() {
				frame.Return = StringValue(DecodeUTF16([]uint16{c.AsChar()}))
			}
		}
	})
}

func (rt *Runtime) initRegExpPrototype() {
	rt.defineMethod(rt.RegExpPrototype, "exec", 1, func(frame *CallFrame) {
		frame.Return = Null
		o := frame.ThisObject()
		if o == nil || o.regexp == nil {
			return
		}
		v, err := rt.Exec(o, frame.Arg0.ToString())
		if err != nil {
			rt.log.Warningf("%s.exec: %s", o.regexp, err.Error())
			return
		}
		frame.Return = v
	})
	rt.defineMethod(rt.RegExpPrototype, "test", 1, func(frame *CallFrame) {
		frame.Return = False
		o := frame.ThisObject()
		if o == nil || o.regexp == nil {
			return
		}
		ok, err := rt.Test(o, frame.Arg0.ToString())
		if err != nil {
			rt.log.Warningf("%s.test: %s", o.regexp, err.Error())
		}
		frame.Return = BooleanValue(ok)
	})
}
