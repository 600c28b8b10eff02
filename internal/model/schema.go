package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attr is a named field declaration of a Schema.
type Attr struct {
	Name  string
	Field Field
}

// Declare names a field for NewSchema.
func Declare(name string, f Field) Attr {
	return Attr{Name: name, Field: f}
}

// Schema is an ordered collection of named fields describing one message
// shape.
type Schema struct {
	name  string
	topic string
	attrs []Attr
	index map[string]int
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithTopic sets the topic messages of the schema are published under.
func WithTopic(topic string) SchemaOption {
	return func(s *Schema) { s.topic = topic }
}

// NewSchema builds a schema from its attribute declarations. Options may be
// passed through NewSchemaWith.
func NewSchema(name string, attrs ...Attr) (*Schema, error) {
	return NewSchemaWith(name, nil, attrs...)
}

// NewSchemaWith is NewSchema with schema options.
func NewSchemaWith(name string, opts []SchemaOption, attrs ...Attr) (*Schema, error) {
	if name == "" {
		return nil, misusef("schema name is required")
	}
	s := &Schema{name: name, index: make(map[string]int, len(attrs))}
	for _, o := range opts {
		o(s)
	}
	for _, a := range attrs {
		if a.Name == "" {
			return nil, misusef("schema %s: attribute name is required", name)
		}
		if a.Field == nil {
			return nil, misusef("schema %s: attribute %s has no field", name, a.Name)
		}
		if _, dup := s.index[a.Name]; dup {
			return nil, misusef("schema %s: duplicate attribute %s", name, a.Name)
		}
		s.index[a.Name] = len(s.attrs)
		s.attrs = append(s.attrs, a)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on misuse.
func MustSchema(name string, attrs ...Attr) *Schema {
	return must(NewSchema(name, attrs...))
}

// MustSchemaWith is NewSchemaWith that panics on misuse.
func MustSchemaWith(name string, opts []SchemaOption, attrs ...Attr) *Schema {
	return must(NewSchemaWith(name, opts, attrs...))
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Topic returns the schema topic, if any.
func (s *Schema) Topic() string { return s.topic }

// Attrs returns the attribute declarations in order.
func (s *Schema) Attrs() []Attr {
	out := make([]Attr, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Field returns the field declared under name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.attrs[i].Field, true
}

// New creates an instance from model values, validating each attribute.
func (s *Schema) New(values map[string]any) (*Instance, error) {
	inst := s.empty()
	for _, a := range s.attrs {
		if err := FromInitialization(a.Field, values, a.Name, inst); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return inst, nil
}

// FromBuiltin creates an instance from its builtin representation.
func (s *Schema) FromBuiltin(data map[string]any) (*Instance, error) {
	inst := s.empty()
	for _, a := range s.attrs {
		if err := ToModel(a.Field, data, a.Name, inst); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return inst, nil
}

// Decode creates an instance from a JSON object.
func (s *Schema) Decode(data []byte) (*Instance, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return s.FromBuiltin(m)
}

func (s *Schema) empty() *Instance {
	return &Instance{schema: s, values: make(map[string]Value, len(s.attrs))}
}

// Instance holds one value per attribute of its Schema.
type Instance struct {
	schema *Schema
	values map[string]Value
}

// Schema returns the schema of the instance.
func (i *Instance) Schema() *Schema { return i.schema }

// Get returns the model value of an attribute.
func (i *Instance) Get(name string) Value { return i.values[name] }

// Set validates v as the model value of an attribute and stores it.
func (i *Instance) Set(name string, v any) error {
	f, ok := i.schema.Field(name)
	if !ok {
		return fmt.Errorf("%s has no attribute %s", i.schema.name, name)
	}
	val := Of(v)
	if err := f.validateModel(val, name); err != nil {
		return err
	}
	i.values[name] = val
	return nil
}

// Dump returns the builtin representation of the instance.
func (i *Instance) Dump() (map[string]any, error) {
	out := make(map[string]any, len(i.schema.attrs))
	for _, a := range i.schema.attrs {
		if err := ToBuiltin(a.Field, i, a.Name, out); err != nil {
			return nil, fmt.Errorf("%s: %w", i.schema.name, err)
		}
	}
	return out, nil
}

// MarshalJSON encodes the builtin representation.
func (i *Instance) MarshalJSON() ([]byte, error) {
	m, err := i.Dump()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
