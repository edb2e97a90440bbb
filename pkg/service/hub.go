package service

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Hub delivers every action to every registered service, one action at a
// time. It plays the role of the host store: reducers never run
// concurrently, while network calls proceed outside the lock.
type Hub struct {
	mu          sync.Mutex
	services    []*Service
	subscribers []func(Action)
	log         *zap.SugaredLogger
}

// NewHub creates an empty Hub. A nil logger disables logging.
func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{log: log}
}

// Register adds services to the hub and routes their synchronous actions
// through it.
func (h *Hub) Register(svcs ...*Service) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range svcs {
		s.attach(h)
		h.services = append(h.services, s)
	}
}

// Service returns the registered service with the given name.
func (h *Hub) Service(name string) (*Service, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.services {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Subscribe registers fn to observe every action after it has been reduced.
// fn runs with the hub locked and must not dispatch.
func (h *Hub) Subscribe(fn func(Action)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, fn)
}

// Dispatch reduces a in every registered service. Rejected transitions are
// joined into the returned error; the other services still see the action.
func (h *Hub) Dispatch(a Action) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Debugw("Dispatching action", "action", a.String(), "call_id", a.CallID)
	var errs []error
	for _, s := range h.services {
		if err := s.Apply(a); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range h.subscribers {
		fn(a)
	}
	return errors.Join(errs...)
}
