package model

import (
	"fmt"
	"reflect"
)

type list struct {
	base
	elem Field
}

// List returns a field holding a sequence of elem values. Use MinItems and
// MaxItems to bound the element count. A nil elem panics with a *MisuseError.
func List(elem Field, opts ...Option) Field {
	return must(newList(elem, opts...))
}

func newList(elem Field, opts ...Option) (Field, error) {
	if elem == nil {
		return nil, misusef("list elements must be described by a field")
	}
	return &list{base: base{opts: buildOptions(opts)}, elem: elem}, nil
}

func (l *list) Kind() string { return "list" }

// Elem returns the element field.
func (l *list) Elem() Field { return l.elem }

func elemName(name string, idx int) string {
	return fmt.Sprintf("%s[%d]", name, idx)
}

// items returns the elements of a present value, or a violation when the
// value is not a slice or array.
func (l *list) items(v Value, name string) ([]any, error) {
	rv := reflect.ValueOf(v.v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, violationf(name, "field %s is of type %s, expected: list", name, typeName(v))
	}
	if _, ok := v.v.([]byte); ok {
		return nil, violationf(name, "field %s is of type %s, expected: list", name, typeName(v))
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func (l *list) checkCount(n int, name string) error {
	upper, bound := l.opts.MaxItems, fmt.Sprint(l.opts.MaxItems)
	if upper == 0 {
		upper, bound = n, "unbounded"
	}
	if n < l.opts.MinItems || n > upper {
		return violationf(name, "element count error for field %s expected between %d and %s elements got %d",
			name, l.opts.MinItems, bound, n)
	}
	return nil
}

func (l *list) validate(v Value, name string, baseCheck, elemCheck func(Value, string) error) error {
	if err := baseCheck(v, name); err != nil {
		return err
	}
	if !v.IsPresent() {
		return nil
	}
	items, err := l.items(v, name)
	if err != nil {
		return err
	}
	if err := l.checkCount(len(items), name); err != nil {
		return err
	}
	for i, it := range items {
		if err := elemCheck(Of(it), elemName(name, i)); err != nil {
			return err
		}
	}
	return nil
}

func (l *list) validateModel(v Value, name string) error {
	return l.validate(v, name, l.base.validateModel, l.elem.validateModel)
}

func (l *list) validateBuiltin(v Value, name string) error {
	return l.validate(v, name, l.base.validateBuiltin, l.elem.validateBuiltin)
}

func (l *list) convert(v Value, name string, baseCheck func(Value, string) error, conv func(Value, string) (Value, error)) (Value, error) {
	if err := baseCheck(v, name); err != nil {
		return v, err
	}
	if !v.IsPresent() {
		return v, nil
	}
	items, err := l.items(v, name)
	if err != nil {
		return v, err
	}
	if err := l.checkCount(len(items), name); err != nil {
		return v, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		c, err := conv(Of(it), elemName(name, i))
		if err != nil {
			return v, err
		}
		out[i] = c.Interface()
	}
	return Of(out), nil
}

func (l *list) toModel(v Value, name string) (Value, error) {
	return l.convert(v, name, l.base.validateBuiltin, l.elem.toModel)
}

func (l *list) toBuiltin(v Value, name string) (Value, error) {
	return l.convert(v, name, l.base.validateModel, l.elem.toBuiltin)
}
