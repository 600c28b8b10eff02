package model

type modelRef struct {
	base
	schema *Schema
}

// Model returns a field holding a nested *Instance of schema. Its builtin
// representation is a map[string]any. A nil schema panics with a
// *MisuseError.
func Model(schema *Schema, opts ...Option) Field {
	return must(newModelRef(schema, opts...))
}

func newModelRef(schema *Schema, opts ...Option) (Field, error) {
	if schema == nil {
		return nil, misusef("model reference requires a schema")
	}
	return &modelRef{base: base{opts: buildOptions(opts)}, schema: schema}, nil
}

func (m *modelRef) Kind() string { return "model" }

// Schema returns the referenced schema.
func (m *modelRef) Schema() *Schema { return m.schema }

func (m *modelRef) validateModel(v Value, name string) error {
	if err := m.base.validateModel(v, name); err != nil {
		return err
	}
	if !v.IsPresent() {
		return nil
	}
	inst, ok := v.v.(*Instance)
	if !ok || inst == nil || inst.schema != m.schema {
		return violationf(name, "field %s is of type %s, expected: %s", name, typeName(v), m.schema.Name())
	}
	return nil
}

func (m *modelRef) validateBuiltin(v Value, name string) error {
	if err := m.base.validateBuiltin(v, name); err != nil {
		return err
	}
	if !v.IsPresent() {
		return nil
	}
	if _, ok := v.v.(map[string]any); !ok {
		return violationf(name, "field %s is of type %s, expected: map[string]any", name, typeName(v))
	}
	return nil
}

func (m *modelRef) toModel(v Value, name string) (Value, error) {
	if err := m.validateBuiltin(v, name); err != nil {
		return v, err
	}
	if !v.IsPresent() {
		return v, nil
	}
	inst, err := m.schema.FromBuiltin(v.v.(map[string]any))
	if err != nil {
		return v, err
	}
	return Of(inst), nil
}

func (m *modelRef) toBuiltin(v Value, name string) (Value, error) {
	if err := m.validateModel(v, name); err != nil {
		return v, err
	}
	if !v.IsPresent() {
		return v, nil
	}
	out, err := v.v.(*Instance).Dump()
	if err != nil {
		return v, err
	}
	return Of(out), nil
}
