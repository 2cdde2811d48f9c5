package vm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// RegExp is the payload of RegExp objects, compiled in ECMAScript mode.
// Match positions, lastIndex included, count runes.
type RegExp struct {
	re     *regexp2.Regexp
	source string
	flags  string

	global     bool
	ignoreCase bool
	multiline  bool
	dotAll     bool
	sticky     bool
}

// CompileRegExp parses pattern with the flags g, i, m, s, u and y.
func CompileRegExp(pattern, flags string) (*RegExp, error) {
	r := &RegExp{source: pattern, flags: flags}
	for _, f := range flags {
		switch f {
		case 'g':
			r.global = true
		case 'i':
			r.ignoreCase = true
		case 'm':
			r.multiline = true
		case 's':
			r.dotAll = true
		case 'y':
			r.sticky = true
		case 'u':
		default:
			return nil, fmt.Errorf("invalid regular expression flag %q", f)
		}
	}
	if utf8.RuneCountInString(flags) != len(uniqueRunes(flags)) {
		return nil, fmt.Errorf("duplicate regular expression flags %q", flags)
	}

	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if r.dotAll {
		opts |= regexp2.Singleline
	}
	if strings.ContainsRune(flags, 'u') {
		opts |= regexp2.Unicode
	}
	if r.ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	if r.multiline {
		opts |= regexp2.Multiline
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	r.re = re
	return r, nil
}

// runeOffset converts a rune position in s to a byte offset.
func runeOffset(s string, runes int) int {
	for i := range s {
		if runes == 0 {
			return i
		}
		runes--
	}
	return len(s)
}

func uniqueRunes(s string) map[rune]struct{} {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return seen
}

func (r *RegExp) Source() string { return r.source }
func (r *RegExp) Flags() string  { return r.flags }
func (r *RegExp) Global() bool   { return r.global }
func (r *RegExp) Sticky() bool   { return r.sticky }

func (r *RegExp) String() string { return "/" + r.source + "/" + r.flags }

// NewRegExp creates a RegExp object with its lastIndex, source, flags and
// global properties.
func (rt *Runtime) NewRegExp(pattern, flags string) (*Object, error) {
	r, err := CompileRegExp(pattern, flags)
	if err != nil {
		return nil, err
	}
	o := newObject(rt.RegExpFamily.root, KindRegExp, 4)
	o.regexp = r
	if err := o.DefineOwnPropertyByID(rt.LastIndexFieldID, Int32Value(0), AttrNotEnumerable|AttrNotConfigurable); err != nil {
		return nil, err
	}
	for _, p := range []struct {
		name  string
		value Value
	}{
		{"source", StringValue(pattern)},
		{"flags", StringValue(flags)},
		{"global", BooleanValue(r.global)},
	} {
		if err := o.DefineOwnProperty(p.name, p.value, AttrLocked); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Exec matches s from lastIndex (global and sticky) or from the start, and
// returns an array of the captures with index and input properties, or
// Null on failure.
func (rt *Runtime) Exec(o *Object, s string) (Value, error) {
	r := o.regexp
	start := 0
	stateful := r.global || r.sticky
	if stateful {
		start = int(o.GetFieldByID(rt.LastIndexFieldID).ToInt32())
		if start < 0 || start > utf8.RuneCountInString(s) {
			return Null, o.SetFieldByID(rt.LastIndexFieldID, Int32Value(0))
		}
	}

	m, err := r.re.FindStringMatchStartingAt(s, runeOffset(s, start))
	if err != nil {
		return Null, err
	}
	if m == nil || (r.sticky && m.Index != start) {
		if stateful {
			return Null, o.SetFieldByID(rt.LastIndexFieldID, Int32Value(0))
		}
		return Null, nil
	}
	if stateful {
		if err := o.SetFieldByID(rt.LastIndexFieldID, Int32Value(int32(m.Index+m.Length))); err != nil {
			return Null, err
		}
	}

	groups := m.Groups()
	captures := make([]Value, len(groups))
	for i, g := range groups {
		if len(g.Captures) == 0 {
			captures[i] = Undefined
			continue
		}
		captures[i] = StringValue(g.String())
	}
	result := rt.NewArray(captures...)
	if err := result.SetField("index", Int32Value(int32(m.Index))); err != nil {
		return Null, err
	}
	if err := result.SetField("input", StringValue(s)); err != nil {
		return Null, err
	}
	return ObjectValue(result), nil
}

// Test reports whether Exec would match, updating lastIndex the same way.
func (rt *Runtime) Test(o *Object, s string) (bool, error) {
	v, err := rt.Exec(o, s)
	return err == nil && !v.IsNull(), err
}
