package types

import "errors"

// Action errors.
var (
	// ErrValidationFailed is returned before any network call when a record's
	// validation hook rejects the verb.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvariant marks a reducer invoked with an action the collection
	// cannot honor, such as a record that is not in the collection.
	ErrInvariant = errors.New("invariant violation")

	// ErrUnknownStatus marks an asynchronous verb reduced with a status other
	// than START, SUCCESS, or ERROR.
	ErrUnknownStatus = errors.New("unknown lifecycle status")

	ErrNoRecord    = errors.New("action carries no record")
	ErrWrongKind   = errors.New("record belongs to a different kind")
	ErrNoExecutor  = errors.New("service has no executor for network verbs")
	ErrUnknownVerb = errors.New("verb is not a network verb")
)

// Lookup errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidID         = errors.New("invalid record ID")
	ErrUnknownCollection = errors.New("unknown collection")
)
