package errors

import "strings"

// Site identifies where an object-model error was raised: the operation,
// and the property or function it concerned when known.
type Site struct {
	Op       string // e.g. "Object.SetField", "Value.AsDouble"
	Property string // property name, empty when not applicable
	Function string // function full name, empty when not applicable
}

func (s Site) IsZero() bool {
	return s.Op == "" && s.Property == "" && s.Function == ""
}

// String renders the site as " [op property=... function=...]", or "" for the zero site.
func (s Site) String() string {
	if s.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(" [")
	b.WriteString(s.Op)
	if s.Property != "" {
		b.WriteString(" property=")
		b.WriteString(s.Property)
	}
	if s.Function != "" {
		b.WriteString(" function=")
		b.WriteString(s.Function)
	}
	b.WriteString("]")
	return b.String()
}
