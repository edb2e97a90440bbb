package service

import (
	"fmt"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// DefaultReducers returns the standard dispatch table, one reducer per verb.
// Callers may replace entries with WithReducer.
func DefaultReducers() map[types.Verb]Reducer {
	return map[types.Verb]Reducer{
		types.VerbHydrate:    lifecycle(hydrateSuccess),
		types.VerbLogin:      lifecycle(hydrateSuccess),
		types.VerbLogout:     lifecycle(logoutSuccess),
		types.VerbRead:       lifecycle(readSuccess),
		types.VerbSaveNew:    lifecycle(saveNewSuccess),
		types.VerbSaveUpdate: lifecycle(saveUpdateSuccess),
		types.VerbDelete:     lifecycle(deleteSuccess),
		types.VerbSearch:     search,

		types.VerbCreateNew:      createNew,
		types.VerbCancelNew:      cancelNew,
		types.VerbStartEdit:      startEdit,
		types.VerbCancelEdit:     cancelEdit,
		types.VerbEdit:           edit,
		types.VerbToggleSelected: toggleSelected,
		types.VerbStartDelete:    startDelete,
		types.VerbCancelDelete:   cancelDelete,
	}
}

// lifecycle builds a reducer for a networked verb: START and ERROR share the
// standard handling, SUCCESS is verb specific.
func lifecycle(success Reducer) Reducer {
	return func(state State, svc *Service, a Action) (State, error) {
		switch a.Status {
		case types.StatusStart:
			return sharedStart(state, svc, a)
		case types.StatusError:
			return sharedError(state, svc, a)
		case types.StatusSuccess:
			next, err := success(state, svc, a)
			if err != nil {
				return rejectResponse(state, svc, a, err)
			}
			return next, nil
		default:
			return state, fmt.Errorf("%w: %q", types.ErrUnknownStatus, a.Status)
		}
	}
}

func owns(svc *Service, a Action) bool {
	return a.Record != nil && a.Record.Is(svc.kind)
}

func sharedStart(state State, svc *Service, a Action) (State, error) {
	if a.Record == nil {
		if a.Verb.IsCrossCutting() {
			return state.WithErr(nil), nil
		}
		return state, invariantf("%s started without a record", a.Verb)
	}
	if !owns(svc, a) {
		if a.Verb.IsCrossCutting() {
			return state.WithErr(nil), nil
		}
		return state, nil
	}
	stored, ok := state.Get(a.Record.Identity())
	if !ok {
		return state, invariantf("%s is not in the collection", a.Record)
	}
	return state.WithErr(nil).Set(stored.SetFetching(true)), nil
}

// sharedError records the failure. A record removed while its call was in
// flight is not an error; only the error slot changes.
func sharedError(state State, svc *Service, a Action) (State, error) {
	if a.Record != nil && !owns(svc, a) {
		return state, nil
	}
	state = state.WithErr(a.Err)
	if a.Record == nil {
		return state, nil
	}
	if stored, ok := state.Get(a.Record.Identity()); ok {
		state = state.Set(stored.SetFetching(false))
	}
	return state, nil
}

// rejectResponse settles a call whose response could not be reduced as if
// it had failed with err.
func rejectResponse(state State, svc *Service, a Action, err error) (State, error) {
	return settle(state, svc, a).WithErr(err), &responseError{err: err}
}

// settle clears the fetching flag of the stored copy of the action's record.
func settle(state State, svc *Service, a Action) State {
	if !owns(svc, a) {
		return state
	}
	if stored, ok := state.Get(a.Record.Identity()); ok {
		return state.Set(stored.SetFetching(false))
	}
	return state
}

// hydrateSuccess bulk-loads the collection from the session payload, but
// only when the payload carries this kind's key.
func hydrateSuccess(state State, svc *Service, a Action) (State, error) {
	state = settle(state, svc, a)
	doc, ok := asDocument(a.Received)
	if !ok {
		return state, nil
	}
	raw, ok := doc[svc.kind.HydratePath()]
	if !ok {
		return state, nil
	}
	docs, ok := asDocuments(raw)
	if !ok {
		return state, invariantf("%s payload key %q is not a list", a.Verb, svc.kind.HydratePath())
	}
	rs := make([]*record.Record, 0, len(docs))
	for _, d := range docs {
		rs = append(rs, svc.kind.New(d))
	}
	return state.replaceRecords(rs), nil
}

func logoutSuccess(_ State, svc *Service, _ Action) (State, error) {
	state := svc.InitialState()
	if svc.afterLogout != nil {
		state = svc.afterLogout(state)
	}
	return state, nil
}

func readSuccess(state State, svc *Service, a Action) (State, error) {
	if a.Record != nil && !owns(svc, a) {
		return state, nil
	}
	doc, ok := asDocument(a.Received)
	if !ok {
		return state, invariantf("read payload is %T, not a document", a.Received)
	}
	return state.Set(svc.kind.New(doc)), nil
}

func saveNewSuccess(state State, svc *Service, a Action) (State, error) {
	if !owns(svc, a) {
		return state, nil
	}
	r := a.Record
	oldID := r.Identity()
	if key := svc.kind.IDKey(); key != "" {
		doc, ok := asDocument(a.Received)
		if !ok {
			return state, invariantf("save payload is %T, not a document", a.Received)
		}
		id, ok := doc[key]
		if !ok {
			return state, invariantf("save payload has no %q", key)
		}
		r = r.UpdateFieldIn([]string{key}, id, false)
	}
	r = r.SetDirty(false).SetFetching(false).SetNew(false).AfterCreateSuccess(a.Received)
	wasCurrent := state.CurrentID() == oldID
	state = state.Delete(oldID).WithEditing("").WithRevertTo(nil).Set(r)
	if wasCurrent {
		state = state.WithCurrent(r.Identity())
	}
	return state, nil
}

func saveUpdateSuccess(state State, svc *Service, a Action) (State, error) {
	if !owns(svc, a) {
		return state, nil
	}
	r := a.Record.SetDirty(false).SetFetching(false).AfterUpdateSuccess(a.Received)
	state = state.Set(r).WithEditing("").WithRevertTo(nil)
	if i := state.searchIndex(svc.kind.IDKey(), r.Identity()); i >= 0 {
		state = state.patchSearchResult(i, r)
	}
	return state, nil
}

func deleteSuccess(state State, svc *Service, a Action) (State, error) {
	if !owns(svc, a) {
		return state, nil
	}
	id := a.Record.Identity()
	if !svc.kind.CanDeleteFromData() {
		state = settle(state, svc, a)
	} else {
		state = state.Delete(id)
		if i := state.searchIndex(svc.kind.IDKey(), id); i >= 0 {
			state = state.removeSearchResult(i)
		}
	}
	if state.DeletingID() == id {
		state = state.WithDeleting("")
	}
	return state, nil
}

// search owns the search slot. A failed search keeps the previous results
// and records the error after the in-flight flag is cleared.
func search(state State, svc *Service, a Action) (State, error) {
	switch a.Status {
	case types.StatusStart:
		return state.WithErr(nil).WithSearchResults(nil).WithSearch(true, a.SearchTag), nil
	case types.StatusError:
		return state.WithSearch(false, state.SearchQuery()).WithErr(a.Err), nil
	case types.StatusSuccess:
		docs, ok := asDocuments(a.Received)
		if !ok {
			doc, isDoc := asDocument(a.Received)
			if isDoc {
				docs, ok = asDocuments(doc[svc.kind.HydratePath()])
			}
		}
		if !ok {
			err := invariantf("search payload is %T, not a list", a.Received)
			return state.WithSearch(false, state.SearchQuery()).WithErr(err), &responseError{err: err}
		}
		return state.WithSearchResults(docs).WithSearch(false, state.SearchQuery()), nil
	default:
		return state, fmt.Errorf("%w: %q", types.ErrUnknownStatus, a.Status)
	}
}

func createNew(state State, svc *Service, a Action) (State, error) {
	r := a.Record
	if r == nil {
		r = svc.kind.NewDraft(nil)
	}
	if svc.kind.AfterNew != nil {
		r = svc.kind.AfterNew(r)
	}
	r = r.SetNew(true)
	return state.Set(r).WithEditing(r.Identity()).WithRevertTo(nil), nil
}

func cancelNew(state State, svc *Service, a Action) (State, error) {
	id := svc.kind.Placeholder()
	if a.Record != nil {
		id = a.Record.Identity()
	} else if draft, ok := state.Get(state.EditingID()); ok && draft.IsNew() {
		id = draft.Identity()
	}
	return state.Delete(id).WithEditing("").WithRevertTo(nil), nil
}

func startEdit(state State, svc *Service, a Action) (State, error) {
	if a.Record == nil {
		return state, invariantf("start edit without a record")
	}
	r := a.Record
	if stored, ok := state.Get(r.Identity()); ok {
		r = stored
	}
	return state.Set(r).WithEditing(r.Identity()).WithRevertTo(r), nil
}

func cancelEdit(state State, svc *Service, a Action) (State, error) {
	if rev := state.RevertTo(); rev != nil {
		if id := state.EditingID(); id != "" && id != rev.Identity() {
			state = rekey(state, id, rev)
		}
		state = state.Set(rev)
	}
	return state.WithEditing("").WithRevertTo(nil), nil
}

func edit(state State, svc *Service, a Action) (State, error) {
	if a.Record == nil {
		return state, invariantf("edit without a record")
	}
	stored, ok := state.Get(a.Record.Identity())
	if !ok && a.Record.IsNew() {
		// The draft may have moved after an earlier edit of its identity.
		if draft, found := state.Get(state.EditingID()); found && draft.IsNew() {
			stored, ok = draft, true
		}
	}
	if !ok {
		return state, invariantf("%s is not in the collection", a.Record)
	}
	updated := stored.UpdateFieldIn(a.FieldPath, a.FieldValue, true)
	if updated.Identity() == stored.Identity() {
		return state.Set(updated), nil
	}
	return rekey(state, stored.Identity(), updated), nil
}

// rekey moves the entry stored under oldID to r's identity. The current,
// editing, deleting and selection pointers follow it.
func rekey(state State, oldID string, r *record.Record) State {
	newID := r.Identity()
	current := state.CurrentID() == oldID
	editing := state.EditingID() == oldID
	deleting := state.DeletingID() == oldID
	selected := state.IsSelected(oldID)
	revertTo := state.RevertTo()

	state = state.Delete(oldID).Set(r)
	if current {
		state = state.WithCurrent(newID)
	}
	if editing {
		state = state.WithEditing(newID).WithRevertTo(revertTo)
	}
	if deleting {
		state = state.WithDeleting(newID)
	}
	if selected {
		state = state.WithSelected(newID, true)
	}
	return state
}

func toggleSelected(state State, svc *Service, a Action) (State, error) {
	if a.Record == nil {
		return state, invariantf("toggle selection without a record")
	}
	id := a.Record.Identity()
	if state.IsSelected(id) {
		return state.WithSelected(id, false), nil
	}
	if !state.Has(id) {
		state = state.Set(a.Record)
	}
	return state.WithSelected(id, true), nil
}

func startDelete(state State, svc *Service, a Action) (State, error) {
	if a.Record == nil {
		return state, invariantf("start delete without a record")
	}
	r := a.Record
	if stored, ok := state.Get(r.Identity()); ok {
		r = stored
	}
	return state.Set(r).WithDeleting(r.Identity()), nil
}

func cancelDelete(state State, _ *Service, _ Action) (State, error) {
	return state.WithDeleting(""), nil
}

func asDocument(v any) (types.Document, bool) {
	doc, ok := v.(map[string]any)
	return doc, ok
}

func asDocuments(v any) ([]types.Document, bool) {
	switch list := v.(type) {
	case []types.Document:
		return list, true
	case []any:
		out := make([]types.Document, 0, len(list))
		for _, item := range list {
			doc, ok := asDocument(item)
			if !ok {
				return nil, false
			}
			out = append(out, doc)
		}
		return out, true
	default:
		return nil, false
	}
}
