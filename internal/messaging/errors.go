package messaging

import (
	"errors"

	"github.com/alfredjeanlab/troupe/internal/model"
)

// Severity of a reported error.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityFatal, SeverityError, SeverityWarning:
		return true
	}
	return false
}

// ErrorModel is the schema of reported errors.
var ErrorModel = model.Register(model.MustSchemaWith("ErrorModel", []model.SchemaOption{model.WithTopic("ErrorTopic")},
	model.Declare("message", model.String(model.Required())),
	model.Declare("actor", model.String(model.Required())),
	model.Declare("severity", model.StringEnum(
		[]string{string(SeverityFatal), string(SeverityError), string(SeverityWarning)},
		model.Default(string(SeverityError)))),
	model.Declare("details", model.String(model.AllowNull())),
	model.Declare("time", model.DateTime(model.Required())),
))

// ErrCannotConsumeErrors is returned when a consumer asks for ErrorModel
// messages; errors are only available through Errors.
var ErrCannotConsumeErrors = errors.New("error messages cannot be consumed")
