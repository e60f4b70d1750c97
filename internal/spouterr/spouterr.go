// Package spouterr defines the sentinel error kinds shared across the
// Virtual Consumer, Coordinator and Persistence Contract (spec §7).
package spouterr

import "errors"

// IllegalState marks a lifecycle violation: re-open, use of the persistence
// manager before open, a partition missing from a configured ending-offsets
// map, or a missing required config key.
var IllegalState = errors.New("illegal state")

// InvalidArgument marks a non-MessageIdentifier value passed where an
// identifier was required.
var InvalidArgument = errors.New("invalid argument")

// BrokerError marks an opaque, possibly-transient failure surfaced by the
// Broker Consumer collaborator.
var BrokerError = errors.New("broker error")

// PersistenceError marks a failed persist/retrieve against the
// PersistenceManager collaborator.
var PersistenceError = errors.New("persistence error")

// NewIllegalState wraps msg as an IllegalState error.
func NewIllegalState(msg string) error {
	return &kindError{kind: IllegalState, msg: msg}
}

// NewInvalidArgument wraps msg as an InvalidArgument error.
func NewInvalidArgument(msg string) error {
	return &kindError{kind: InvalidArgument, msg: msg}
}

// WrapBroker wraps cause as a BrokerError.
func WrapBroker(msg string, cause error) error {
	return &kindError{kind: BrokerError, msg: msg, cause: cause}
}

// WrapPersistence wraps cause as a PersistenceError.
func WrapPersistence(msg string, cause error) error {
	return &kindError{kind: PersistenceError, msg: msg, cause: cause}
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.kind.Error() + ": " + e.msg + ": " + e.cause.Error()
	}
	return e.kind.Error() + ": " + e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}
