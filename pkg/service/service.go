package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Service is the collection store for one Kind. It owns the current State,
// adopts every State its reducers produce, and offers action methods that
// start network calls (through an Executor) or dispatch synchronous workflow
// actions (through a Dispatcher).
//
// A Service is safe for concurrent use. Register it with a Hub to order
// actions across several services.
type Service struct {
	mu    sync.RWMutex
	state State

	name        string
	kind        *record.Kind
	reducers    map[types.Verb]Reducer
	executor    Executor
	dispatcher  Dispatcher
	initial     func() State
	afterLogout func(State) State
	strict      bool
	log         *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

// WithName scopes the service's actions to name instead of the kind name.
func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

// WithExecutor sets the Executor used by the network action methods.
func WithExecutor(e Executor) Option {
	return func(s *Service) { s.executor = e }
}

// WithReducer registers (or replaces) the reducer for verb.
func WithReducer(verb types.Verb, r Reducer) Option {
	return func(s *Service) { s.reducers[verb] = r }
}

// WithInitialState overrides the State used at construction, by EmptyState,
// and as the base of a logout.
func WithInitialState(fn func() State) Option {
	return func(s *Service) { s.initial = fn }
}

// WithAfterLogout post-processes the state a successful LOGOUT resets to,
// e.g. to seed guest content.
func WithAfterLogout(fn func(State) State) Option {
	return func(s *Service) { s.afterLogout = fn }
}

// WithStrict selects how reducer invariant violations surface. Strict (the
// default) returns them to the dispatcher; non-strict logs and keeps state.
func WithStrict(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithDispatcher routes the synchronous action methods through d instead of
// reducing them locally. Hub.Register sets this.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// New creates a Service managing records of kind.
func New(kind *record.Kind, opts ...Option) *Service {
	s := &Service{
		name:     kind.Name,
		kind:     kind,
		reducers: DefaultReducers(),
		initial:  NewState,
		strict:   true,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("service", s.name)
	s.state = s.initial()
	return s
}

// Name returns the name actions are scoped to.
func (s *Service) Name() string { return s.name }

// Kind returns the kind of the managed records.
func (s *Service) Kind() *record.Kind { return s.kind }

// Strict reports whether invariant violations are returned as errors.
func (s *Service) Strict() bool { return s.strict }

// Logger returns the service's logger.
func (s *Service) Logger() *zap.SugaredLogger { return s.log }

// InitialState returns a fresh initial State.
func (s *Service) InitialState() State { return s.initial() }

// State returns the current State.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState adopts state as current and returns it.
func (s *Service) SetState(state State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return state
}

// update adopts fn's result atomically.
func (s *Service) update(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// EmptyState resets the service to its initial State.
func (s *Service) EmptyState() State {
	return s.SetState(s.initial())
}

// GetByID returns the record with the given identity.
func (s *Service) GetByID(id string) (*record.Record, bool) {
	return s.State().Get(id)
}

// GetByIDs returns a relationship record by its two halves, in either order.
func (s *Service) GetByIDs(a, b string) (*record.Record, bool) {
	return s.State().GetByIDs(a, b)
}

// SetByID inserts or replaces r under its identity.
func (s *Service) SetByID(r *record.Record) State {
	return s.update(func(st State) State { return st.Set(r) })
}

// Delete removes r.
func (s *Service) Delete(r *record.Record) State {
	return s.DeleteID(r.Identity())
}

// DeleteID removes the record with the given identity and clears every
// pointer that referenced it.
func (s *Service) DeleteID(id string) State {
	return s.update(func(st State) State { return st.Delete(id) })
}

// Objects returns every record ordered by identity.
func (s *Service) Objects() []*record.Record {
	return s.State().Records()
}

// ObjectsFor returns the relationship records whose left half is id, or,
// when none, those whose right half is id.
func (s *Service) ObjectsFor(id string) []*record.Record {
	if rs := s.State().Side(id, true); len(rs) > 0 {
		return rs
	}
	return s.State().Side(id, false)
}

// SetCurrent upserts r and makes it current.
func (s *Service) SetCurrent(r *record.Record) State {
	return s.update(func(st State) State { return st.Set(r).WithCurrent(r.Identity()) })
}

// SetCurrentID sets the current pointer without touching records.
func (s *Service) SetCurrentID(id string) State {
	return s.update(func(st State) State { return st.WithCurrent(id) })
}

// GetCurrent returns the current record.
func (s *Service) GetCurrent() (*record.Record, bool) {
	st := s.State()
	return pointed(st, st.CurrentID())
}

// SetEditing upserts r and marks it as being edited. Nil clears the pointer.
func (s *Service) SetEditing(r *record.Record) State {
	if r == nil {
		return s.update(func(st State) State { return st.WithEditing("") })
	}
	return s.update(func(st State) State { return st.Set(r).WithEditing(r.Identity()) })
}

// GetEditing returns the record being edited.
func (s *Service) GetEditing() (*record.Record, bool) {
	st := s.State()
	return pointed(st, st.EditingID())
}

// SetDeleting upserts r and marks it as pending deletion. Nil clears the
// pointer.
func (s *Service) SetDeleting(r *record.Record) State {
	if r == nil {
		return s.update(func(st State) State { return st.WithDeleting("") })
	}
	return s.update(func(st State) State { return st.Set(r).WithDeleting(r.Identity()) })
}

// GetDeleting returns the record pending deletion.
func (s *Service) GetDeleting() (*record.Record, bool) {
	st := s.State()
	return pointed(st, st.DeletingID())
}

// IsDeleting reports whether a two-phase delete is pending.
func (s *Service) IsDeleting() bool {
	return s.State().DeletingID() != ""
}

// SetSelected upserts r and adds it to the selection.
func (s *Service) SetSelected(r *record.Record) State {
	return s.update(func(st State) State { return st.Set(r).WithSelected(r.Identity(), true) })
}

// ClearSelected removes r from the selection. Nil clears the whole selection.
func (s *Service) ClearSelected(r *record.Record) State {
	if r == nil {
		return s.update(func(st State) State { return st.ClearSelection() })
	}
	return s.update(func(st State) State { return st.WithSelected(r.Identity(), false) })
}

// IsSelected reports whether r is selected.
func (s *Service) IsSelected(r *record.Record) bool {
	return s.State().IsSelected(r.Identity())
}

// Selected returns the selected records ordered by identity.
func (s *Service) Selected() []*record.Record {
	st := s.State()
	ids := st.Selected()
	out := make([]*record.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := st.Get(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// IsFetching reports whether a call is in flight for r: either r itself or
// the stored record with r's identity is flagged fetching.
func (s *Service) IsFetching(r *record.Record) bool {
	if r == nil {
		return false
	}
	if r.IsFetching() {
		return true
	}
	stored, ok := s.State().Get(r.Identity())
	return ok && stored.IsFetching()
}

// IsSearching reports whether a search call is in flight.
func (s *Service) IsSearching() bool {
	return s.State().Searching()
}

// IsCreating reports whether an unsaved draft is present.
func (s *Service) IsCreating() bool {
	_, ok := s.GetCreating()
	return ok
}

// GetCreating returns the unsaved draft: the placeholder record, or the new
// record being edited once its identity fields are set.
func (s *Service) GetCreating() (*record.Record, bool) {
	st := s.State()
	if r, ok := st.Get(s.kind.Placeholder()); ok {
		return r, true
	}
	if r, ok := st.Get(st.EditingID()); ok && r.IsNew() {
		return r, true
	}
	return nil, false
}

// SearchResults returns the documents found by the last search.
func (s *Service) SearchResults() []types.Document {
	return s.State().SearchResults()
}

// Error returns the error recorded by the last failed call.
func (s *Service) Error() error {
	return s.State().Err()
}

// SetError records err in the error slot.
func (s *Service) SetError(err error) State {
	return s.update(func(st State) State { return st.WithErr(err) })
}

// ClearError empties the error slot.
func (s *Service) ClearError() State {
	return s.update(func(st State) State { return st.WithErr(nil) })
}

func pointed(st State, id string) (*record.Record, bool) {
	if id == "" {
		return nil, false
	}
	return st.Get(id)
}
