package service

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// DefaultMethod returns the HTTP method used for a networked verb.
func DefaultMethod(v types.Verb) string {
	switch v {
	case types.VerbSaveNew, types.VerbLogin, types.VerbLogout:
		return http.MethodPost
	case types.VerbSaveUpdate:
		return http.MethodPut
	case types.VerbDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// Dispatch delivers a through the service's dispatcher, or reduces it
// locally when the service is not registered with one.
func (s *Service) Dispatch(a Action) error {
	s.mu.RLock()
	d := s.dispatcher
	s.mu.RUnlock()
	if d != nil {
		return d.Dispatch(a)
	}
	return s.Apply(a)
}

func (s *Service) attach(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Execute hands req to the executor. A record of this kind that is not yet
// in the collection is inserted first so its lifecycle events have a target.
func (s *Service) Execute(ctx context.Context, req Request) error {
	if s.executor == nil {
		return types.ErrNoExecutor
	}
	if slices.Contains(types.StandardVerbs, req.Verb) && !req.Verb.IsAsync() {
		return fmt.Errorf("%w: %s", types.ErrUnknownVerb, req.Verb)
	}
	if req.Method == "" {
		req.Method = DefaultMethod(req.Verb)
	}
	if r := req.Record; r != nil && r.Is(s.kind) {
		s.update(func(st State) State {
			if st.Has(r.Identity()) {
				return st
			}
			return st.Set(r)
		})
	}
	return s.executor.Execute(ctx, s, req)
}

func (s *Service) call(ctx context.Context, verb types.Verb, r *record.Record) error {
	if r == nil {
		return types.ErrNoRecord
	}
	if !r.Is(s.kind) && !verb.IsCrossCutting() {
		return fmt.Errorf("%w: %s is not %s", types.ErrWrongKind, r, s.kind.Name)
	}
	return s.Execute(ctx, Request{Verb: verb, Record: r})
}

// Read fetches r from the server.
func (s *Service) Read(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbRead, r)
}

// SaveNew creates r on the server. On success r is stored under the
// server-assigned identity.
func (s *Service) SaveNew(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbSaveNew, r)
}

// SaveUpdate writes r's changes to the server.
func (s *Service) SaveUpdate(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbSaveUpdate, r)
}

// CommitDelete deletes r on the server, completing a StartDelete.
func (s *Service) CommitDelete(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbDelete, r)
}

// Search runs a server-side search for query.
func (s *Service) Search(ctx context.Context, query string) error {
	return s.Execute(ctx, Request{Verb: types.VerbSearch, SearchTag: query})
}

// Login posts the credentials held by r. Every registered service loads its
// collection from the response.
func (s *Service) Login(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbLogin, r)
}

// Logout ends the session. Every registered service resets on success.
func (s *Service) Logout(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbLogout, r)
}

// Hydrate loads the session payload. Every registered service replaces its
// collection when the payload carries its key.
func (s *Service) Hydrate(ctx context.Context, r *record.Record) error {
	return s.call(ctx, types.VerbHydrate, r)
}

func (s *Service) sync(verb types.Verb, r *record.Record) Action {
	return Action{Type: types.ActionSync, Verb: verb, Service: s.name, Record: r}
}

// CreateNew starts editing a new placeholder record seeded from doc.
func (s *Service) CreateNew(doc types.Document) error {
	return s.Dispatch(s.sync(types.VerbCreateNew, s.kind.NewDraft(doc)))
}

// CancelNew drops the placeholder record.
func (s *Service) CancelNew() error {
	return s.Dispatch(s.sync(types.VerbCancelNew, nil))
}

// StartEdit snapshots r so CancelEdit can restore it.
func (s *Service) StartEdit(r *record.Record) error {
	return s.Dispatch(s.sync(types.VerbStartEdit, r))
}

// CancelEdit restores the record snapshotted by StartEdit.
func (s *Service) CancelEdit() error {
	return s.Dispatch(s.sync(types.VerbCancelEdit, nil))
}

// Edit sets key on the stored copy of r and marks it dirty.
func (s *Service) Edit(r *record.Record, key string, value any) error {
	return s.EditIn(r, []string{key}, value)
}

// EditIn sets the nested field at path on the stored copy of r.
func (s *Service) EditIn(r *record.Record, path []string, value any) error {
	a := s.sync(types.VerbEdit, r)
	a.FieldPath = path
	a.FieldValue = value
	return s.Dispatch(a)
}

// StartDelete marks r as pending deletion.
func (s *Service) StartDelete(r *record.Record) error {
	return s.Dispatch(s.sync(types.VerbStartDelete, r))
}

// CancelDelete clears the pending deletion.
func (s *Service) CancelDelete() error {
	return s.Dispatch(s.sync(types.VerbCancelDelete, nil))
}

// ToggleSelected adds r to the selection, or removes it if already selected.
func (s *Service) ToggleSelected(r *record.Record) error {
	return s.Dispatch(s.sync(types.VerbToggleSelected, r))
}
