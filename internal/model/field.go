package model

import (
	"fmt"
	"reflect"
)

// Field is a single typed, validated and convertible attribute of a Schema.
//
// The set of field kinds is closed: use the constructors in this package
// (Boolean, Integer, Float, Number, String, DateTime, Enum, List, Model).
type Field interface {
	// Kind names the field kind, e.g. "string" or "list".
	Kind() string
	// Options returns the common attributes of the field.
	Options() Options

	validateModel(v Value, name string) error
	validateBuiltin(v Value, name string) error
	toModel(v Value, name string) (Value, error)
	toBuiltin(v Value, name string) (Value, error)
}

// Options are the attributes shared by every field kind.
type Options struct {
	Default   Value
	Required  bool
	AllowNull bool
	Help      string

	// MinItems and MaxItems bound the element count of a List.
	// MaxItems == 0 means unbounded.
	MinItems int
	MaxItems int
}

// Option configures a field at construction.
type Option func(*Options)

// Default sets the value used when the attribute is not supplied.
func Default(v any) Option {
	return func(o *Options) { o.Default = Of(v) }
}

// Required marks the attribute as mandatory.
func Required() Option {
	return func(o *Options) { o.Required = true }
}

// AllowNull permits an explicit null.
func AllowNull() Option {
	return func(o *Options) { o.AllowNull = true }
}

// Help documents the attribute.
func Help(s string) Option {
	return func(o *Options) { o.Help = s }
}

// MinItems sets the minimal element count of a List.
func MinItems(n int) Option {
	return func(o *Options) { o.MinItems = n }
}

// MaxItems sets the maximal element count of a List.
func MaxItems(n int) Option {
	return func(o *Options) { o.MaxItems = n }
}

// HelpOf returns the documentation of f.
func HelpOf(f Field) string {
	if h := f.Options().Help; h != "" {
		return h
	}
	return fmt.Sprintf("No documentation provided for this field `%s`", f.Kind())
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// base carries the options and the validation common to all kinds. It does
// not implement Field on its own.
type base struct {
	opts Options
}

func (b *base) Options() Options { return b.opts }

func (b *base) validateModel(v Value, name string) error {
	if v.IsNull() && !b.opts.AllowNull {
		return violationf(name, "the %s attribute is null, but this is not allowed", name)
	}
	if v.IsMissing() && b.opts.Required {
		return violationf(name, "the %s attribute is not set, but it is required", name)
	}
	return nil
}

func (b *base) validateBuiltin(v Value, name string) error {
	if v.IsNull() && !b.opts.AllowNull {
		return violationf(name, "the %s field is null, but this is not allowed", name)
	}
	if v.IsMissing() && b.opts.Required {
		return violationf(name, "the %s field is not set, but it is required", name)
	}
	return nil
}

// defaultValue returns the declared default. Slice defaults are copied so
// that instances never share backing arrays.
func (b *base) defaultValue() Value {
	d := b.opts.Default
	if !d.IsPresent() {
		return d
	}
	rv := reflect.ValueOf(d.v)
	if rv.Kind() == reflect.Slice {
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return Value{state: statePresent, v: cp.Interface()}
	}
	return d
}

func lookup(f Field, source map[string]any, name string) Value {
	if raw, ok := source[name]; ok {
		return Of(raw)
	}
	if d, ok := f.(interface{ defaultValue() Value }); ok {
		return d.defaultValue()
	}
	return f.Options().Default
}

// FromInitialization reads source[name] (or the default), validates it as a
// model value and assigns it to target.
func FromInitialization(f Field, source map[string]any, name string, target *Instance) error {
	v := lookup(f, source, name)
	if err := f.validateModel(v, name); err != nil {
		return err
	}
	target.values[name] = v
	return nil
}

// ToModel reads source[name] (or the default), converts it from the builtin
// to the model representation and assigns it to target. An optional
// attribute that is missing stays missing.
func ToModel(f Field, source map[string]any, name string, target *Instance) error {
	v := lookup(f, source, name)
	if v.IsMissing() && !f.Options().Required {
		target.values[name] = Missing
		return nil
	}
	out, err := f.toModel(v, name)
	if err != nil {
		return err
	}
	target.values[name] = out
	return nil
}

// ToBuiltin converts the model value of source's attribute to the builtin
// representation and stores it in target unless the result is missing.
func ToBuiltin(f Field, source *Instance, name string, target map[string]any) error {
	out, err := f.toBuiltin(source.Get(name), name)
	if err != nil {
		return err
	}
	if !out.IsMissing() {
		target[name] = out.Interface()
	}
	return nil
}
