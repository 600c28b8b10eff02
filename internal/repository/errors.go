package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDefinitionKind is returned when a resource kind is added
	// to an actor that actors cannot carry.
	ErrUnsupportedDefinitionKind = errors.New("unsupported definition kind")

	// ErrInjectionActive is returned when an injected execution context is
	// entered while another one is active in the process.
	ErrInjectionActive = errors.New("an injected execution context is already active")
)

// InspectionFailedError reports a failed discovery of the actor in Directory.
type InspectionFailedError struct {
	Directory string
	// NoResults is set when the inspection exited cleanly without finding
	// an actor.
	NoResults bool
	ExitCode  int
	Err       error
}

func (e *InspectionFailedError) Error() string {
	if e.NoResults {
		return fmt.Sprintf("inspection of actor in %s produced no results", e.Directory)
	}
	if e.Err != nil {
		return fmt.Sprintf("inspection of actor in %s failed: %v", e.Directory, e.Err)
	}
	return fmt.Sprintf("inspection of actor in %s failed with exit code %d", e.Directory, e.ExitCode)
}

func (e *InspectionFailedError) Unwrap() error { return e.Err }

// MultipleActorsError reports more than one actor declared in Directory.
type MultipleActorsError struct {
	Directory string
}

func (e *MultipleActorsError) Error() string {
	return fmt.Sprintf("multiple actors found in %s", e.Directory)
}

// RuntimeError reports an actor execution process that did not complete.
type RuntimeError struct {
	Actor    string
	ExitCode int
	Err      error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("actor %s failed: %v", e.Actor, e.Err)
	case e.ExitCode == 0:
		return fmt.Sprintf("actor %s terminated without reporting an outcome", e.Actor)
	}
	return fmt.Sprintf("actor %s unexpectedly terminated with exit code: %d", e.Actor, e.ExitCode)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
