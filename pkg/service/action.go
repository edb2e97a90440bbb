package service

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Action is an immutable message describing either a synchronous UI workflow
// step or one lifecycle event of a network call.
type Action struct {
	Type    types.ActionType
	Verb    types.Verb
	Status  types.Status // empty for synchronous actions
	Service string       // name of the service the action is scoped to

	// Record is the record the action refers to. Search actions carry a
	// SearchTag (the query) instead.
	Record    *record.Record
	SearchTag string

	// Received is the parsed response body of a SUCCESS event.
	Received any

	// Err is the failure of an ERROR event.
	Err error

	// NextRoute is carried through unchanged for the caller's router.
	NextRoute string

	// CallID correlates the START with its SUCCESS or ERROR.
	CallID string

	// FieldPath and FieldValue describe an EDIT.
	FieldPath  []string
	FieldValue any
}

// IsSearch reports whether the action targets the search slot.
func (a Action) IsSearch() bool {
	return a.Record == nil && a.SearchTag != ""
}

func (a Action) String() string {
	target := a.SearchTag
	if a.Record != nil {
		target = a.Record.String()
	}
	if a.Status == types.StatusNone {
		return fmt.Sprintf("%s %s [%s]", a.Verb, target, a.Service)
	}
	return fmt.Sprintf("%s/%s %s [%s]", a.Verb, a.Status, target, a.Service)
}

// Request asks an Executor to perform the network call for one verb.
type Request struct {
	Verb      types.Verb
	Method    string
	Record    *record.Record
	SearchTag string
	NextRoute string
}

// Executor performs network calls for a service and reports their lifecycle
// by dispatching actions. rest.Client is the standard implementation.
type Executor interface {
	Execute(ctx context.Context, svc *Service, req Request) error
}

// Dispatcher delivers an action to every interested reducer.
type Dispatcher interface {
	Dispatch(a Action) error
}

// TransitionError reports a reducer that could not honor an action: an
// invariant violation or an unknown lifecycle status.
type TransitionError struct {
	Service string
	Verb    types.Verb
	Status  types.Status
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("service %s: %s/%s: %v", e.Service, e.Verb, e.Status, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// responseError marks a SUCCESS whose payload the reducer could not use.
// Unlike other rejections, the state it comes with is adopted: the record
// is no longer fetching and the error slot holds the failure.
type responseError struct {
	err error
}

func (e *responseError) Error() string { return e.err.Error() }

func (e *responseError) Unwrap() error { return e.err }

// invariantf builds an error wrapping types.ErrInvariant.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrInvariant, fmt.Sprintf(format, args...))
}
