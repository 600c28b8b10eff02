package actor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alfredjeanlab/troupe/internal/messaging"
)

// ErrStopExecution ends an actor's processing without reporting anything.
var ErrStopExecution = errors.New("stop actor execution")

// StopExecutionError ends an actor's processing and reports an error.
type StopExecutionError struct {
	Message  string
	Severity messaging.Severity
	Details  map[string]any
}

func (e *StopExecutionError) Error() string {
	return e.Message
}

// StopWithError returns a *StopExecutionError of error severity.
func StopWithError(format string, args ...any) *StopExecutionError {
	return &StopExecutionError{Message: fmt.Sprintf(format, args...), Severity: messaging.SeverityError}
}

// Run invokes a's Process with TROUPE_CURRENT_ACTOR set for the duration.
// Stop requests are not errors: a *StopExecutionError is reported through
// the messaging first.
func Run(ctx context.Context, a Actor, c *Context) error {
	prev, had := os.LookupEnv(CurrentActorEnv)
	os.Setenv(CurrentActorEnv, c.Name())
	defer func() {
		if had {
			os.Setenv(CurrentActorEnv, prev)
		} else {
			os.Unsetenv(CurrentActorEnv)
		}
	}()

	err := a.Process(ctx, c)
	var stop *StopExecutionError
	switch {
	case err == nil, errors.Is(err, ErrStopExecution):
		return nil
	case errors.As(err, &stop):
		return c.ReportError(ctx, stop.Message, stop.Severity, stop.Details)
	}
	return err
}
