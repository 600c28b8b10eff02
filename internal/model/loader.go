package model

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Models []schemaSpec `yaml:"models"`
}

type schemaSpec struct {
	Name   string      `yaml:"name"`
	Topic  string      `yaml:"topic"`
	Fields []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name      string     `yaml:"name"`
	Type      string     `yaml:"type"`
	Default   *yaml.Node `yaml:"default"`
	Required  bool       `yaml:"required"`
	AllowNull bool       `yaml:"allow_null"`
	Help      string     `yaml:"help"`
	Choices   *yaml.Node `yaml:"choices"`
	Elem      *fieldSpec `yaml:"elem"`
	Model     string     `yaml:"model"`
	Minimum   int        `yaml:"minimum"`
	Maximum   int        `yaml:"maximum"`
}

// LoadSchemas parses declarative schema definitions:
//
//	models:
//	  - name: UnitTestConfig
//	    topic: ConfigTopic
//	    fields:
//	      - {name: value, type: string, default: unit-test}
//
// Model references may name a schema declared earlier in the same document
// or one already registered. Definition errors are returned as *MisuseError.
// The schemas are not registered.
func LoadSchemas(r io.Reader) ([]*Schema, error) {
	var doc schemaFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse schemas: %w", err)
	}
	local := make(map[string]*Schema, len(doc.Models))
	out := make([]*Schema, 0, len(doc.Models))
	for _, m := range doc.Models {
		attrs := make([]Attr, 0, len(m.Fields))
		for _, fs := range m.Fields {
			f, err := buildField(fs, local)
			if err != nil {
				return nil, fmt.Errorf("schema %s field %s: %w", m.Name, fs.Name, err)
			}
			attrs = append(attrs, Declare(fs.Name, f))
		}
		var opts []SchemaOption
		if m.Topic != "" {
			opts = append(opts, WithTopic(m.Topic))
		}
		s, err := NewSchemaWith(m.Name, opts, attrs...)
		if err != nil {
			return nil, err
		}
		local[s.name] = s
		out = append(out, s)
	}
	return out, nil
}

func buildField(fs fieldSpec, local map[string]*Schema) (Field, error) {
	opts, err := fieldOptions(fs)
	if err != nil {
		return nil, err
	}
	var f Field
	switch fs.Type {
	case "field":
		return nil, misusef("do not use this type directly")
	case "boolean":
		f = Boolean(opts...)
	case "integer":
		f = Integer(opts...)
	case "float":
		f = Float(opts...)
	case "number":
		f = Number(opts...)
	case "string":
		f = String(opts...)
	case "datetime":
		f = DateTime(opts...)
	case "list":
		if fs.Elem == nil {
			return nil, misusef("list requires an elem field")
		}
		elem, err := buildField(*fs.Elem, local)
		if err != nil {
			return nil, err
		}
		if f, err = newList(elem, opts...); err != nil {
			return nil, err
		}
	case "model":
		s, ok := local[fs.Model]
		if !ok {
			s, ok = Lookup(fs.Model)
		}
		if !ok {
			return nil, misusef("unknown model %q", fs.Model)
		}
		if f, err = newModelRef(s, opts...); err != nil {
			return nil, err
		}
	default:
		return nil, misusef("unknown field type %q", fs.Type)
	}
	if fs.Choices == nil {
		return f, nil
	}
	if fs.Choices.Kind != yaml.SequenceNode {
		return nil, misusef("enum choices must be a sequence")
	}
	var choices []any
	if err := fs.Choices.Decode(&choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return newEnum(f, choices)
}

func fieldOptions(fs fieldSpec) ([]Option, error) {
	var opts []Option
	if fs.Required {
		opts = append(opts, Required())
	}
	if fs.AllowNull {
		opts = append(opts, AllowNull())
	}
	if fs.Help != "" {
		opts = append(opts, Help(fs.Help))
	}
	if fs.Minimum != 0 {
		opts = append(opts, MinItems(fs.Minimum))
	}
	if fs.Maximum != 0 {
		opts = append(opts, MaxItems(fs.Maximum))
	}
	if fs.Default != nil {
		var d any
		if err := fs.Default.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode default: %w", err)
		}
		d, err := coerceDefault(fs.Type, d)
		if err != nil {
			return nil, err
		}
		opts = append(opts, Default(d))
	}
	return opts, nil
}

// coerceDefault turns YAML scalars into the model representation of typ.
func coerceDefault(typ string, d any) (any, error) {
	switch typ {
	case "float":
		if i, ok := d.(int); ok {
			return float64(i), nil
		}
	case "datetime":
		if s, ok := d.(string); ok {
			t, err := parseDateTime(s)
			if err != nil {
				return nil, misusef("invalid datetime default %q", s)
			}
			return t, nil
		}
	}
	return d, nil
}
