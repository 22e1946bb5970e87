// Package errkind classifies errors the way the pipeline's failure
// policy (spec §7) needs: every error raised by the translator or
// applier carries a Kind so the connector loop can decide whether to
// skip, retry, or stop.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the eight error classes spec §7 names.
type Kind string

const (
	Config   Kind = "config"
	Producer Kind = "producer"
	Parse    Kind = "parse"
	Mapping  Kind = "mapping"
	Decode   Kind = "decode"
	Catalog  Kind = "catalog"
	Apply    Kind = "apply"
	Internal Kind = "internal"
)

// Fatal reports whether an error of this kind must stop the connector
// outright rather than being handled per the configured error strategy.
func (k Kind) Fatal() bool {
	switch k {
	case Config, Catalog, Producer, Internal:
		return true
	}
	return false
}

// SynchError wraps an underlying error with the connector, operation,
// and classification needed to drive the event-loop failure policy.
type SynchError struct {
	Kind      Kind
	Connector string
	Operation string
	Cause     error
	Context   map[string]interface{}
}

func (e *SynchError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s/%s] %s: %v (context: %v)", e.Connector, e.Kind, e.Operation, e.Cause, e.Context)
	}
	return fmt.Sprintf("[%s/%s] %s: %v", e.Connector, e.Kind, e.Operation, e.Cause)
}

func (e *SynchError) Unwrap() error { return e.Cause }

func (e *SynchError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// New creates a SynchError with no wrapped cause other than a plain
// message.
func New(kind Kind, connector, operation, msg string) *SynchError {
	return &SynchError{Kind: kind, Connector: connector, Operation: operation, Cause: errors.New(msg)}
}

// Wrap attaches classification to an existing error. If err is already
// a *SynchError it is returned unchanged (no double-wrapping).
func Wrap(kind Kind, connector, operation string, err error) error {
	if err == nil {
		return nil
	}
	var se *SynchError
	if errors.As(err, &se) {
		return err
	}
	return &SynchError{Kind: kind, Connector: connector, Operation: operation, Cause: err}
}

// WithContext attaches a key/value pair for debugging and returns the
// receiver for chaining.
func (e *SynchError) WithContext(key string, value interface{}) *SynchError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the Kind of err, defaulting to Internal if err is not
// a *SynchError.
func KindOf(err error) Kind {
	var se *SynchError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Internal
}
