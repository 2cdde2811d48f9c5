package vm

// Property is the payload of accessor fields. Go callbacks take precedence
// over getter and setter functions.
type Property struct {
	OnGet func(this *Object) Value
	OnSet func(this *Object, v Value)

	Getter *Function
	Setter *Function
}

// NewProperty builds an accessor backed by Go callbacks. Either may be nil.
func NewProperty(get func(this *Object) Value, set func(this *Object, v Value)) *Property {
	return &Property{OnGet: get, OnSet: set}
}

// NewAccessorProperty builds an accessor that calls engine functions.
func NewAccessorProperty(getter, setter *Function) *Property {
	return &Property{Getter: getter, Setter: setter}
}

func (p *Property) Get(this *Object) Value {
	switch {
	case p.OnGet != nil:
		return p.OnGet(this)
	case p.Getter != nil:
		return p.Getter.Call(ObjectValue(this))
	}
	return Undefined
}

// Set is a no-op for read-only accessors.
func (p *Property) Set(this *Object, v Value) {
	switch {
	case p.OnSet != nil:
		p.OnSet(this, v)
	case p.Setter != nil:
		p.Setter.Call(ObjectValue(this), v)
	}
}

func (p *Property) IsReadOnly() bool { return p.OnSet == nil && p.Setter == nil }
