package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// enum restricts any field to an ordered set of allowed values.
type enum struct {
	Field
	choices []any
}

// Enum wraps f so that every present, non-null value must be one of choices.
// choices must be a slice or an array; anything else panics with a
// *MisuseError.
func Enum(f Field, choices any) Field {
	return must(newEnum(f, choices))
}

// StringEnum is a String restricted to choices.
func StringEnum(choices []string, opts ...Option) Field {
	return Enum(String(opts...), choices)
}

// IntegerEnum is an Integer restricted to choices.
func IntegerEnum(choices []int, opts ...Option) Field {
	return Enum(Integer(opts...), choices)
}

// FloatEnum is a Float restricted to choices.
func FloatEnum(choices []float64, opts ...Option) Field {
	return Enum(Float(opts...), choices)
}

// NumberEnum is a Number restricted to choices.
func NumberEnum(choices []any, opts ...Option) Field {
	return Enum(Number(opts...), choices)
}

func newEnum(f Field, choices any) (Field, error) {
	if f == nil {
		return nil, misusef("enum requires a field to restrict")
	}
	rv := reflect.ValueOf(choices)
	if choices == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, misusef("enum choices must be a sequence, got %T", choices)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return &enum{Field: f, choices: out}, nil
}

// Choices returns the allowed values in declaration order.
func (e *enum) Choices() []any { return e.choices }

func (e *enum) Kind() string { return "enum(" + e.Field.Kind() + ")" }

func (e *enum) member(v Value, name string) error {
	if !v.IsPresent() {
		return nil
	}
	for _, c := range e.choices {
		if sameChoice(c, v.v) {
			return nil
		}
	}
	parts := make([]string, len(e.choices))
	for i, c := range e.choices {
		parts[i] = fmt.Sprint(c)
	}
	return violationf(name, "the %s field value must be one of '%s'", name, strings.Join(parts, "', '"))
}

func (e *enum) validateModel(v Value, name string) error {
	if err := e.Field.validateModel(v, name); err != nil {
		return err
	}
	return e.member(v, name)
}

func (e *enum) validateBuiltin(v Value, name string) error {
	if err := e.Field.validateBuiltin(v, name); err != nil {
		return err
	}
	return e.member(v, name)
}

func (e *enum) toModel(v Value, name string) (Value, error) {
	out, err := e.Field.toModel(v, name)
	if err != nil {
		return out, err
	}
	return out, e.member(out, name)
}

func (e *enum) toBuiltin(v Value, name string) (Value, error) {
	out, err := e.Field.toBuiltin(v, name)
	if err != nil {
		return out, err
	}
	return out, e.member(out, name)
}

func sameChoice(choice, v any) bool {
	if a, ok := numeric(choice); ok {
		b, ok := numeric(v)
		return ok && a == b
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	return reflect.DeepEqual(choice, v)
}

func numeric(x any) (float64, bool) {
	switch n := x.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool, string, []byte:
		return 0, false
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
