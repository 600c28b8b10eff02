package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateTimeLayout         = "2006-01-02T15:04:05"
	dateTimeFractionLayout = "2006-01-02T15:04:05.999999999"
)

type dateTime struct {
	base
}

// DateTime returns a field whose model representation is a time.Time and
// whose builtin representation is an ISO-8601 string suffixed with "Z".
func DateTime(opts ...Option) Field {
	return &dateTime{base: base{opts: buildOptions(opts)}}
}

func (d *dateTime) Kind() string { return "datetime" }

func (d *dateTime) validateModel(v Value, name string) error {
	if err := d.base.validateModel(v, name); err != nil {
		return err
	}
	if v.IsPresent() {
		if _, ok := v.v.(time.Time); !ok {
			return violationf(name, "field %s is of type %s, expected: time.Time", name, typeName(v))
		}
	}
	return nil
}

func (d *dateTime) validateBuiltin(v Value, name string) error {
	if err := d.base.validateBuiltin(v, name); err != nil {
		return err
	}
	if v.IsPresent() {
		if _, ok := v.v.(string); !ok {
			return violationf(name, "field %s is of type %s, expected: string", name, typeName(v))
		}
	}
	return nil
}

func (d *dateTime) toModel(v Value, name string) (Value, error) {
	if err := d.validateBuiltin(v, name); err != nil {
		return v, err
	}
	if !v.IsPresent() {
		return v, nil
	}
	t, err := parseDateTime(v.v.(string))
	if err != nil {
		return v, violationf(name, "invalid datetime value %q for field %s", v.v, name)
	}
	return Of(t), nil
}

func (d *dateTime) toBuiltin(v Value, name string) (Value, error) {
	if err := d.validateModel(v, name); err != nil {
		return v, err
	}
	if !v.IsPresent() {
		return v, nil
	}
	return Of(formatDateTime(v.v.(time.Time))), nil
}

// parseDateTime accepts "YYYY-MM-DDTHH:MM:SS[.ffffff][ZONE]" with any number
// of trailing "Z" characters. The result carries no zone information.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimRight(s, "Z")
	layout := dateTimeLayout
	if strings.Contains(s, ".") {
		layout = dateTimeFractionLayout
	}
	t, err := time.Parse(layout+"MST", s)
	if err != nil {
		t, err = time.Parse(layout, s)
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000*1000, time.UTC), nil
}

// formatDateTime renders t in UTC with microsecond precision. Values that
// carry a non-zero offset are converted to UTC first.
func formatDateTime(t time.Time) string {
	t = t.UTC()
	s := t.Format(dateTimeLayout)
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "Z"
}
