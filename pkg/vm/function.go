package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

// Body is one executable form of a function. It reads its arguments from
// the frame and stores its result in frame.Return.
type Body func(frame *CallFrame)

// Specializer produces a body for the calls matching sig. The returned
// entry is added to the function's code cache; a nil entry declines, and
// an error blacklists the function from further specialization. Each
// signature is offered once.
type Specializer func(meta *FunctionMetadata, sig Signature) (*FunctionCode, error)

// FunctionMetadata is what all closures of one function share: the generic
// body, the per-signature code cache and the bookkeeping that drives
// specialization.
type FunctionMetadata struct {
	FullName        string
	ParametersCount int
	SignatureMask   uint64 // selects the declared parameters
	Generic         Body
	Cache           CodeCache

	// Field capacity given to objects this function constructs.
	TypicalConstructedFieldsLength int

	Specializer      Specializer
	HotCallThreshold uint64
	IsBlackListed    bool

	rt    *Runtime
	log   commonlog.Logger
	calls uint64
}

// NewFunctionMetadata describes a function with params declared parameters
// and generic body.
func (rt *Runtime) NewFunctionMetadata(name string, params int, body Body) *FunctionMetadata {
	m := &FunctionMetadata{
		FullName:         name,
		ParametersCount:  params,
		SignatureMask:    GetMask(params),
		Generic:          body,
		HotCallThreshold: uint64(max(rt.config.HotCallThreshold, 0)),
		rt:               rt,
		log:              commonlog.GetLogger("mdr.vm.function"),
	}
	m.Cache.owner = name
	return m
}

func (m *FunctionMetadata) Calls() uint64 { return m.calls }

// IsFullMatch reports whether code was made for exactly the declared
// parameter types of sig.
func (m *FunctionMetadata) IsFullMatch(code *FunctionCode, sig Signature) bool {
	full := Signature(uint64(sig) & m.SignatureMask)
	return code != nil && code.Signature == full && code.Mask == full.Mask()
}

// Execute runs the most specific compiled body for frame's signature, or
// the generic body when none matches.
func (m *FunctionMetadata) Execute(frame *CallFrame) {
	m.calls++
	m.rt.counters.calls.Add(1)
	sig := frame.Signature
	if m.Specializer != nil && !m.IsBlackListed {
		m.profile(sig)
	}
	if code := m.Cache.GetCompiled(sig); code != nil {
		code.Body(frame)
		return
	}
	m.Generic(frame)
}

// profile counts a call against the entry for sig's declared parameter
// types, creating it on first sight, and specializes once the entry is hot.
func (m *FunctionMetadata) profile(sig Signature) {
	code := m.Cache.Get(sig)
	if !m.IsFullMatch(code, sig) {
		entry := NewFunctionCode(Signature(uint64(sig)&m.SignatureMask), nil)
		if err := m.Cache.Add(entry); err != nil {
			m.log.Warningf("%s: %s", m.FullName, err.Error())
		} else {
			code = entry
		}
	}
	if code == nil {
		return
	}
	if code.hits.Add(1) > m.HotCallThreshold && code.Body == nil && !code.offered {
		code.offered = true
		m.specialize(code)
	}
}

func (m *FunctionMetadata) specialize(entry *FunctionCode) {
	var start time.Time
	if m.rt.config.EnableTimers {
		start = time.Now()
	}
	code, err := m.Specializer(m, entry.Signature)
	if m.rt.config.EnableTimers {
		m.rt.counters.specializeNanos.Add(time.Since(start).Nanoseconds())
	}
	if err != nil {
		m.IsBlackListed = true
		m.rt.counters.blacklisted.Add(1)
		m.log.Infof("%s blacklisted: %s", m.FullName, err.Error())
		return
	}
	if code == nil || code.Body == nil {
		return
	}
	if code.Signature == entry.Signature && code.Mask == entry.Mask {
		entry.Body = code.Body
		m.rt.counters.specializations.Add(1)
		m.log.Debugf("%s specialized for %s", m.FullName, entry.Signature)
		return
	}
	if err := m.Cache.Add(code); err != nil {
		m.log.Warningf("%s: %s", m.FullName, err.Error())
		return
	}
	m.rt.counters.specializations.Add(1)
	m.log.Debugf("%s specialized for %s", m.FullName, code.Signature)
}

// Function is the payload of function objects.
type Function struct {
	Metadata *FunctionMetadata
	object   *Object
}

// NewFunction creates a function object for meta.
func (rt *Runtime) NewFunction(meta *FunctionMetadata) *Object {
	o := newObject(rt.FunctionFamily.root, KindFunction, 0)
	o.fn = &Function{Metadata: meta, object: o}
	return o
}

// NewNativeFunction is NewFunction for a Go body.
func (rt *Runtime) NewNativeFunction(name string, params int, body Body) *Object {
	return rt.NewFunction(rt.NewFunctionMetadata(name, params, body))
}

func (fn *Function) Object() *Object { return fn.object }

func (fn *Function) Name() string {
	if fn.Metadata == nil {
		return ""
	}
	return fn.Metadata.FullName
}

// Invoke runs fn on a prepared frame.
func (fn *Function) Invoke(frame *CallFrame) {
	frame.Function = fn
	if fn.Metadata != nil {
		fn.Metadata.Execute(frame)
	}
}

// Call invokes fn with this and args and returns its result.
func (fn *Function) Call(this Value, args ...Value) Value {
	frame := NewCallFrame(fn, this, args...)
	fn.Invoke(frame)
	return frame.Return
}

// Construct creates an object inheriting from fn's prototype property,
// runs fn on it and returns it, unless fn returned an object of its own.
func (fn *Function) Construct(args ...Value) *Object {
	rt := fn.object.Runtime()
	proto := rt.ObjectPrototype
	if p := fn.object.GetFieldByID(rt.PrototypeFieldID); p.IsObject() {
		proto = p.AsObject()
	}
	family := rt.FamilyOfPrototype(proto)

	capacity := 0
	if fn.Metadata != nil {
		capacity = fn.Metadata.TypicalConstructedFieldsLength
	}
	obj := newObject(family.root, KindPlain, capacity)
	frame := NewCallFrame(fn, ObjectValue(obj), args...)
	fn.Invoke(frame)

	if fn.Metadata != nil && obj.shape.Len() > fn.Metadata.TypicalConstructedFieldsLength {
		fn.Metadata.TypicalConstructedFieldsLength = obj.shape.Len()
	}
	if frame.Return.IsObject() {
		return frame.Return.AsObject()
	}
	return obj
}

func (fn *Function) String() string {
	return "function " + fn.Name() + "() { [native code] }"
}
