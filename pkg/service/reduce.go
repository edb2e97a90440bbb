package service

import (
	"errors"

	"github.com/mesh-intelligence/rim/pkg/types"
)

// Reducer computes the next State for one verb. It must not modify its
// inputs; returning an error rejects the transition and keeps state.
type Reducer func(state State, svc *Service, a Action) (State, error)

// Reduce is the single entry point for dispatched actions. It decides
// whether the action concerns this service and, if so, runs the reducer
// registered for its verb. Reduce does not adopt the result; see Apply.
//
// A rejected transition is returned as a *TransitionError when the service
// is strict. Otherwise it is logged. Either way the input state is returned,
// except for a SUCCESS with an unusable payload, which settles the call as
// failed.
func (s *Service) Reduce(state State, a Action) (State, error) {
	if !s.accepts(a) {
		return state, nil
	}
	fn, ok := s.reducers[a.Verb]
	if !ok {
		return state, nil
	}
	next, err := fn(state, s, a)
	if err == nil {
		return next, nil
	}
	var rerr *responseError
	if !errors.As(err, &rerr) {
		next = state
	}
	terr := &TransitionError{Service: s.name, Verb: a.Verb, Status: a.Status, Err: err}
	if s.strict {
		return next, terr
	}
	s.log.Warnw("Ignoring rejected transition", "action", a.String(), "error", err)
	return next, nil
}

// Apply reduces a against the current State and adopts the result.
func (s *Service) Apply(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.Reduce(s.state, a)
	s.state = next
	return err
}

func (s *Service) accepts(a Action) bool {
	crossCutting := a.Verb.IsCrossCutting()
	if a.Service != s.name {
		if a.Type == types.ActionSync {
			return false
		}
		if !crossCutting || a.Status != types.StatusSuccess {
			return false
		}
	}
	if a.Record != nil && !a.Record.Is(s.kind) {
		return a.Status == types.StatusSuccess || crossCutting
	}
	return true
}
