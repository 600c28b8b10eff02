package model

import (
	"encoding/json"
	"strings"
)

// scalar is a field whose model and builtin representations coincide.
type scalar struct {
	base
	kind     string
	expected []string
	// accept reports whether x is of an acceptable type and returns the
	// normalized value.
	accept func(x any) (any, bool)
}

// Boolean returns a field holding a bool.
func Boolean(opts ...Option) Field {
	return &scalar{base: base{opts: buildOptions(opts)}, kind: "boolean", expected: []string{"bool"}, accept: acceptBool}
}

// Integer returns a field holding any Go integer.
func Integer(opts ...Option) Field {
	return &scalar{base: base{opts: buildOptions(opts)}, kind: "integer", expected: []string{"int"}, accept: acceptInt}
}

// Float returns a field holding a float32 or float64.
func Float(opts ...Option) Field {
	return &scalar{base: base{opts: buildOptions(opts)}, kind: "float", expected: []string{"float64"}, accept: acceptFloat}
}

// Number returns a field holding either an integer or a float.
func Number(opts ...Option) Field {
	return &scalar{base: base{opts: buildOptions(opts)}, kind: "number", expected: []string{"int", "float64"}, accept: acceptNumber}
}

// String returns a field holding a string or a byte slice.
func String(opts ...Option) Field {
	return &scalar{base: base{opts: buildOptions(opts)}, kind: "string", expected: []string{"string", "[]byte"}, accept: acceptString}
}

func (s *scalar) Kind() string { return s.kind }

func (s *scalar) check(v Value, name string) (Value, error) {
	if !v.IsPresent() {
		return v, nil
	}
	out, ok := s.accept(v.v)
	if !ok {
		return v, violationf(name, "field %s is of type %s, expected: %s", name, typeName(v), strings.Join(s.expected, ", "))
	}
	return Value{state: statePresent, v: out}, nil
}

func (s *scalar) validateModel(v Value, name string) error {
	if err := s.base.validateModel(v, name); err != nil {
		return err
	}
	_, err := s.check(v, name)
	return err
}

func (s *scalar) validateBuiltin(v Value, name string) error {
	if err := s.base.validateBuiltin(v, name); err != nil {
		return err
	}
	_, err := s.check(v, name)
	return err
}

func (s *scalar) toModel(v Value, name string) (Value, error) {
	if err := s.base.validateBuiltin(v, name); err != nil {
		return v, err
	}
	return s.check(v, name)
}

func (s *scalar) toBuiltin(v Value, name string) (Value, error) {
	if err := s.base.validateModel(v, name); err != nil {
		return v, err
	}
	out, err := s.check(v, name)
	if err != nil {
		return out, err
	}
	// encoding/json writes []byte as base64; the builtin form is text.
	if b, ok := out.v.([]byte); ok {
		out.v = string(b)
	}
	return out, nil
}

func acceptBool(x any) (any, bool) {
	b, ok := x.(bool)
	return b, ok
}

func acceptInt(x any) (any, bool) {
	switch n := x.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, false
		}
		return i, true
	}
	return nil, false
}

func acceptFloat(x any) (any, bool) {
	switch n := x.(type) {
	case float32, float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

func acceptNumber(x any) (any, bool) {
	if n, ok := x.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		return acceptFloat(n)
	}
	if i, ok := acceptInt(x); ok {
		return i, true
	}
	return acceptFloat(x)
}

func acceptString(x any) (any, bool) {
	switch s := x.(type) {
	case string, []byte:
		return s, true
	}
	return nil, false
}
