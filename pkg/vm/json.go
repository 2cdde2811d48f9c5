package vm

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// MarshalJSON implements json.Marshaler. Objects emit their enumerable own
// properties in slot order, reading accessors through their getters;
// function and undefined members are skipped, and become null inside
// arrays. Wrapper objects encode as their primitive.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	e := jsonEncoder{b: &b, seen: map[*Object]bool{}}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

type jsonEncoder struct {
	b    *strings.Builder
	seen map[*Object]bool
}

func (e *jsonEncoder) value(v Value) error {
	switch {
	case v.IsNullish(), v.IsFunction():
		e.b.WriteString("null")
	case v.IsBoolean():
		e.b.WriteString(strconv.FormatBool(v.AsBoolean()))
	case v.IsNumber():
		f := v.ToDouble()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			e.b.WriteString("null")
			return nil
		}
		e.b.WriteString(formatDouble(f))
	case v.IsString():
		return e.str(v.ToString())
	case v.IsObject():
		return e.object(v.AsObject())
	default:
		e.b.WriteString("null")
	}
	return nil
}

func (e *jsonEncoder) str(s string) error {
	quoted, err := json.Marshal(s)
	if err != nil {
		return err
	}
	e.b.Write(quoted)
	return nil
}

func (e *jsonEncoder) object(o *Object) error {
	switch o.kind {
	case KindBoolean, KindNumber, KindString:
		return e.value(o.primitive)
	case KindFunction, KindUndefined, KindNull, KindProperty:
		e.b.WriteString("null")
		return nil
	}
	if e.seen[o] {
		return fmt.Errorf("converting circular structure to JSON (%s)", o.ClassName())
	}
	e.seen[o] = true
	defer delete(e.seen, o)

	if o.kind == KindArray {
		e.b.WriteByte('[')
		for i, item := range o.array.Items {
			if i > 0 {
				e.b.WriteByte(',')
			}
			if err := e.value(item); err != nil {
				return err
			}
		}
		e.b.WriteByte(']')
		return nil
	}

	e.b.WriteByte('{')
	first := true
	for _, pd := range o.shape.Descriptors() {
		if !pd.IsEnumerable() {
			continue
		}
		member := pd.Get(o)
		if member.IsUndefined() || member.IsFunction() {
			continue
		}
		if !first {
			e.b.WriteByte(',')
		}
		first = false
		if err := e.str(pd.name); err != nil {
			return err
		}
		e.b.WriteByte(':')
		if err := e.value(member); err != nil {
			return err
		}
	}
	e.b.WriteByte('}')
	return nil
}

// ParseJSON builds values from JSON text. Integral numbers that fit become
// Int32, others Double; object members are added in source order, so
// documents with the same member order share a shape.
func (rt *Runtime) ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return rt.parseJSON(dec)
}

func (rt *Runtime) parseJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Undefined, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return jsonScalar(tok)
	}
	switch delim {
	case '[':
		var items []Value
		for dec.More() {
			item, err := rt.parseJSON(dec)
			if err != nil {
				return Undefined, err
			}
			items = append(items, item)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return Undefined, err
		}
		return ObjectValue(rt.NewArray(items...)), nil
	case '{':
		o := rt.NewObject()
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return Undefined, err
			}
			key, ok := tok.(string)
			if !ok {
				return Undefined, fmt.Errorf("unexpected JSON object key %v", tok)
			}
			member, err := rt.parseJSON(dec)
			if err != nil {
				return Undefined, err
			}
			if err := o.DefineOwnProperty(key, member, AttrNone); err != nil {
				return Undefined, err
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return Undefined, err
		}
		return ObjectValue(o), nil
	}
	return Undefined, fmt.Errorf("unexpected JSON delimiter %v", delim)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %v in JSON, got %v", want, tok)
	}
	return nil
}

func jsonScalar(tok json.Token) (Value, error) {
	switch v := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return BooleanValue(v), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(v), 10, 32); err == nil {
			return Int32Value(int32(i)), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Undefined, err
		}
		return DoubleValue(f), nil
	case float64:
		return DoubleValue(v), nil
	case string:
		return StringValue(v), nil
	}
	return Undefined, fmt.Errorf("unsupported JSON value %T", tok)
}
