// Package model implements the schema layer for the structured messages
// exchanged between actors: typed fields, schema containers and the
// conversions between the model representation (native Go values such as
// time.Time or *Instance) and the builtin representation (JSON-compatible
// primitives, slices and maps).
package model

import "fmt"

type valueState uint8

const (
	stateMissing valueState = iota
	stateNull
	statePresent
)

// Value holds a single field value in one of three states: missing (no value
// was supplied), null, or present. The zero Value is Missing.
type Value struct {
	state valueState
	v     any
}

var (
	// Missing is the value of an attribute that was not supplied at all.
	Missing = Value{}
	// Null is an explicit null.
	Null = Value{state: stateNull}
)

// Of wraps x as a Value. A nil x becomes Null and an existing Value is
// returned unchanged.
func Of(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null
	case Value:
		return x
	}
	return Value{state: statePresent, v: x}
}

// IsMissing reports whether no value was supplied.
func (v Value) IsMissing() bool { return v.state == stateMissing }

// IsNull reports whether the value is an explicit null.
func (v Value) IsNull() bool { return v.state == stateNull }

// IsPresent reports whether the value is neither missing nor null.
func (v Value) IsPresent() bool { return v.state == statePresent }

// Interface returns the wrapped value, or nil when missing or null.
func (v Value) Interface() any { return v.v }

func (v Value) String() string {
	switch v.state {
	case stateMissing:
		return "<missing>"
	case stateNull:
		return "<null>"
	}
	return fmt.Sprintf("%v", v.v)
}

// typeName renders the dynamic type of v for violation messages.
func typeName(v Value) string {
	switch v.state {
	case stateMissing:
		return "missing"
	case stateNull:
		return "null"
	}
	return fmt.Sprintf("%T", v.v)
}
