package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, f Field, v any) Value {
	t.Helper()
	s := MustSchema("RoundTrip", Declare("v", f))
	inst, err := s.New(map[string]any{"v": v})
	require.NoError(t, err)
	data, err := inst.Dump()
	require.NoError(t, err)
	back, err := s.FromBuiltin(data)
	require.NoError(t, err)
	return back.Get("v")
}

func TestRoundTrip(t *testing.T) {
	inner := MustSchema("Inner", Declare("n", Integer()), Declare("s", String(AllowNull())))
	innerInst, err := inner.New(map[string]any{"n": 3, "s": nil})
	require.NoError(t, err)

	tests := []struct {
		name  string
		field Field
		value any
	}{
		{"boolean", Boolean(), true},
		{"integer", Integer(), 42},
		{"float", Float(), 1.5},
		{"number int", Number(), 7},
		{"number float", Number(), 7.25},
		{"string", String(), "hello"},
		{"string enum", StringEnum([]string{"a", "b"}), "b"},
		{"integer enum", IntegerEnum([]int{1, 2, 3}), 2},
		{"list", List(Integer()), []any{1, 2, 3}},
		{"list of strings", List(String(), MinItems(1), MaxItems(2)), []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, roundTrip(t, tt.field, tt.value).Interface())
		})
	}

	t.Run("datetime", func(t *testing.T) {
		want := time.Date(2020, 1, 1, 10, 0, 0, 500000000, time.UTC)
		got := roundTrip(t, DateTime(), want).Interface().(time.Time)
		assert.True(t, want.Equal(got), "got %v", got)
	})

	t.Run("model", func(t *testing.T) {
		got := roundTrip(t, Model(inner), innerInst).Interface().(*Instance)
		want, err := innerInst.Dump()
		require.NoError(t, err)
		data, err := got.Dump()
		require.NoError(t, err)
		assert.Equal(t, want, data)
	})
}

func TestRequiredWithoutValue(t *testing.T) {
	s := MustSchema("Req", Declare("v", String(Required())))

	_, err := s.New(map[string]any{})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "v", v.Field)

	_, err = s.FromBuiltin(map[string]any{})
	require.ErrorAs(t, err, &v)
}

func TestRequiredWithDefault(t *testing.T) {
	s := MustSchema("ReqDefault", Declare("v", String(Required(), Default("unit-test"))))
	inst, err := s.FromBuiltin(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "unit-test", inst.Get("v").Interface())
}

func TestNullNotAllowed(t *testing.T) {
	s := MustSchema("Nulls", Declare("v", Integer()))

	_, err := s.New(map[string]any{"v": nil})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Message, "null")

	_, err = s.FromBuiltin(map[string]any{"v": nil})
	require.ErrorAs(t, err, &v)

	inst, err := s.New(map[string]any{"v": 1})
	require.NoError(t, err)
	inst.values["v"] = Null
	_, err = inst.Dump()
	require.ErrorAs(t, err, &v)
}

func TestNullAllowed(t *testing.T) {
	s := MustSchema("NullOK", Declare("v", Integer(AllowNull())))
	inst, err := s.FromBuiltin(map[string]any{"v": nil})
	require.NoError(t, err)
	assert.True(t, inst.Get("v").IsNull())

	data, err := inst.Dump()
	require.NoError(t, err)
	assert.Contains(t, data, "v")
	assert.Nil(t, data["v"])
}

func TestMissingOptionalStaysMissing(t *testing.T) {
	s := MustSchema("Opt", Declare("v", DateTime()))
	inst, err := s.FromBuiltin(map[string]any{})
	require.NoError(t, err)
	assert.True(t, inst.Get("v").IsMissing())

	data, err := inst.Dump()
	require.NoError(t, err)
	assert.NotContains(t, data, "v")
}

func TestTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value any
		want  string
	}{
		{"boolean", Boolean(), "yes", "expected: bool"},
		{"integer", Integer(), 1.5, "expected: int"},
		{"float", Float(), "1.5", "expected: float64"},
		{"number", Number(), "1", "expected: int, float64"},
		{"string", String(), 1, "expected: string, []byte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromInitialization(tt.field, map[string]any{"x": tt.value}, "x", &Instance{values: map[string]Value{}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "field x is of type")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStringAcceptsBytes(t *testing.T) {
	s := MustSchema("Bytes", Declare("v", String()))
	_, err := s.New(map[string]any{"v": []byte("raw")})
	assert.NoError(t, err)
}

func TestStringBytesCrossJSONAsText(t *testing.T) {
	s := MustSchema("BytesWire",
		Declare("v", String()),
		Declare("l", List(String())),
	)
	inst, err := s.New(map[string]any{"v": []byte("hello"), "l": []any{[]byte("x")}})
	require.NoError(t, err)

	raw, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": "hello", "l": ["x"]}`, string(raw))

	back, err := s.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello", back.Get("v").Interface())
	assert.Equal(t, []any{"x"}, back.Get("l").Interface())
}

func TestJSONNumbers(t *testing.T) {
	s := MustSchema("Numbers",
		Declare("i", Integer()),
		Declare("f", Float()),
		Declare("n", Number()),
	)
	inst, err := s.Decode([]byte(`{"i": 3, "f": 2, "n": 1.25}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), inst.Get("i").Interface())
	assert.Equal(t, float64(2), inst.Get("f").Interface())
	assert.Equal(t, 1.25, inst.Get("n").Interface())

	_, err = s.Decode([]byte(`{"i": 3.5}`))
	assert.Error(t, err)
}

func TestListCount(t *testing.T) {
	s := MustSchema("Counts", Declare("v", List(Integer(), MinItems(1), MaxItems(3))))

	_, err := s.FromBuiltin(map[string]any{"v": []any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 1 and 3")
	assert.Contains(t, err.Error(), "got 0")

	_, err = s.FromBuiltin(map[string]any{"v": []any{1, 2, 3, 4}})
	assert.Error(t, err)

	_, err = s.FromBuiltin(map[string]any{"v": []any{1, 2, 3}})
	assert.NoError(t, err)
}

func TestListUnbounded(t *testing.T) {
	s := MustSchema("Unbounded", Declare("v", List(Integer())))
	big := make([]any, 100)
	for i := range big {
		big[i] = i
	}
	_, err := s.FromBuiltin(map[string]any{"v": big})
	assert.NoError(t, err)
}

func TestListElementNames(t *testing.T) {
	s := MustSchema("Elems", Declare("v", List(Integer())))
	_, err := s.FromBuiltin(map[string]any{"v": []any{1, "two"}})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "v[1]", v.Field)
}

func TestListRejectsScalar(t *testing.T) {
	s := MustSchema("NotList", Declare("v", List(String())))
	_, err := s.New(map[string]any{"v": "abc"})
	assert.Error(t, err)
	_, err = s.FromBuiltin(map[string]any{"v": map[string]any{}})
	assert.Error(t, err)
}

func TestListDefaultIsCopied(t *testing.T) {
	s := MustSchema("Defaults", Declare("v", List(Integer(), Default([]any{1, 2}))))
	a, err := s.New(nil)
	require.NoError(t, err)
	b, err := s.New(nil)
	require.NoError(t, err)

	a.Get("v").Interface().([]any)[0] = 99
	assert.Equal(t, []any{1, 2}, b.Get("v").Interface())
}

func TestEnumMembership(t *testing.T) {
	s := MustSchema("Enums", Declare("v", StringEnum([]string{"fatal", "error", "warning"})))
	_, err := s.FromBuiltin(map[string]any{"v": "info"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of 'fatal', 'error', 'warning'")

	_, err = s.New(map[string]any{"v": "info"})
	assert.Error(t, err)
}

func TestEnumNumericChoices(t *testing.T) {
	s := MustSchema("NumEnum", Declare("v", IntegerEnum([]int{1, 2})))
	inst, err := s.Decode([]byte(`{"v": 2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), inst.Get("v").Interface())

	_, err = s.Decode([]byte(`{"v": 5}`))
	assert.Error(t, err)
}

func TestEnumNullAndMissing(t *testing.T) {
	s := MustSchema("EnumNull", Declare("v", StringEnum([]string{"a"}, AllowNull())))
	_, err := s.FromBuiltin(map[string]any{"v": nil})
	assert.NoError(t, err)
	_, err = s.FromBuiltin(map[string]any{})
	assert.NoError(t, err)
}

func TestModelReferenceRejectsNonMapping(t *testing.T) {
	inner := MustSchema("Child", Declare("n", Integer()))
	s := MustSchema("Parent", Declare("child", Model(inner)))

	_, err := s.FromBuiltin(map[string]any{"child": "nope"})
	var v *ViolationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "child", v.Field)

	other := MustSchema("Other", Declare("n", Integer()))
	wrong, err := other.New(map[string]any{"n": 1})
	require.NoError(t, err)
	_, err = s.New(map[string]any{"child": wrong})
	assert.Error(t, err)
}

func TestDateTimeParsing(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2020-01-01T10:00:00.500Z", time.Date(2020, 1, 1, 10, 0, 0, 500000000, time.UTC)},
		{"2020-01-01T10:00:00Z", time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2020-01-01T10:00:00", time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2020-01-01T10:00:00UTC", time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2020-01-01T10:00:00.123456ZZ", time.Date(2020, 1, 1, 10, 0, 0, 123456000, time.UTC)},
	}
	f := DateTime()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := f.toModel(Of(tt.in), "when")
			require.NoError(t, err)
			tm := got.Interface().(time.Time)
			assert.True(t, tt.want.Equal(tm), "got %v", tm)
		})
	}

	got, err := f.toModel(Of("2020-01-01T10:00:00.500Z"), "when")
	require.NoError(t, err)
	assert.Equal(t, 500000, got.Interface().(time.Time).Nanosecond()/1000)

	_, err = f.toModel(Of("not-a-date"), "when")
	var v *ViolationError
	assert.ErrorAs(t, err, &v)
}

func TestDateTimeFormatting(t *testing.T) {
	f := DateTime()
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC), "2020-01-01T10:00:00Z"},
		{time.Date(2020, 1, 1, 10, 0, 0, 500000000, time.UTC), "2020-01-01T10:00:00.500000Z"},
		{time.Date(2020, 1, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600)), "2020-01-01T10:00:00Z"},
	}
	for _, tt := range tests {
		got, err := f.toBuiltin(Of(tt.in), "when")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Interface())
	}
}

func TestMisuse(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"enum choices not a sequence", func() { Enum(String(), "abc") }},
		{"enum nil choices", func() { Enum(String(), nil) }},
		{"list without element", func() { List(nil) }},
		{"model without schema", func() { Model(nil) }},
		{"duplicate attribute", func() { MustSchema("Dup", Declare("a", String()), Declare("a", String())) }},
		{"nil field", func() { MustSchema("Nil", Declare("a", nil)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				err, ok := r.(error)
				require.True(t, ok)
				var m *MisuseError
				assert.True(t, errors.As(err, &m))
			}()
			tt.fn()
		})
	}
}

func TestHelpOf(t *testing.T) {
	assert.Equal(t, "the answer", HelpOf(Integer(Help("the answer"))))
	assert.Equal(t, "No documentation provided for this field `integer`", HelpOf(Integer()))
}

func TestInstanceJSON(t *testing.T) {
	s := MustSchema("Ping",
		Declare("when", DateTime()),
		Declare("tags", List(String())),
	)
	inst, err := s.New(map[string]any{
		"when": time.Date(2021, 5, 4, 3, 2, 1, 0, time.UTC),
		"tags": []string{"a", "b"},
	})
	require.NoError(t, err)
	raw, err := json.Marshal(inst)
	require.NoError(t, err)
	assert.JSONEq(t, `{"when": "2021-05-04T03:02:01Z", "tags": ["a", "b"]}`, string(raw))
}
