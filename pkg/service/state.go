package service

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

type recordMap = immutable.Map[string, *record.Record]

// State is an immutable snapshot of one collection. Every method returns a
// new State; the receiver is never modified. The zero State is empty and
// ready to use.
type State struct {
	objects  *recordMap
	left     *immutable.Map[string, *recordMap] // left id -> right id -> record
	right    *immutable.Map[string, *recordMap] // right id -> left id -> record
	selected *immutable.Map[string, struct{}]

	currentID  string
	editingID  string
	deletingID string
	revertTo   *record.Record

	searching     bool
	searchQuery   string
	searchResults *immutable.List[types.Document]

	err error
}

// NewState returns an empty State.
func NewState() State {
	return State{}
}

func emptyRecords() *recordMap {
	return immutable.NewMap[string, *record.Record](nil)
}

func (s State) objs() *recordMap {
	if s.objects == nil {
		return emptyRecords()
	}
	return s.objects
}

func (s State) sides(left bool) *immutable.Map[string, *recordMap] {
	m := s.right
	if left {
		m = s.left
	}
	if m == nil {
		return immutable.NewMap[string, *recordMap](nil)
	}
	return m
}

func (s State) sel() *immutable.Map[string, struct{}] {
	if s.selected == nil {
		return immutable.NewMap[string, struct{}](nil)
	}
	return s.selected
}

func (s State) results() *immutable.List[types.Document] {
	if s.searchResults == nil {
		return immutable.NewList[types.Document]()
	}
	return s.searchResults
}

// Len returns the number of records.
func (s State) Len() int {
	return s.objs().Len()
}

// Get returns the record with the given identity.
func (s State) Get(id string) (*record.Record, bool) {
	return s.objs().Get(id)
}

// Has reports whether a record with the given identity exists.
func (s State) Has(id string) bool {
	_, ok := s.objs().Get(id)
	return ok
}

// GetByIDs looks up a relationship record by its two halves in either order:
// first as (left, right), then as (right, left).
func (s State) GetByIDs(a, b string) (*record.Record, bool) {
	if inner, ok := s.sides(true).Get(a); ok {
		if r, ok := inner.Get(b); ok {
			return r, true
		}
	}
	if inner, ok := s.sides(false).Get(a); ok {
		if r, ok := inner.Get(b); ok {
			return r, true
		}
	}
	return nil, false
}

// Side returns every relationship record whose left (or right) half is id,
// ordered by the other half.
func (s State) Side(id string, left bool) []*record.Record {
	inner, ok := s.sides(left).Get(id)
	if !ok {
		return nil
	}
	return sortedRecords(inner)
}

// Records returns every record ordered by identity.
func (s State) Records() []*record.Record {
	return sortedRecords(s.objs())
}

func sortedRecords(m *recordMap) []*record.Record {
	out := make([]*record.Record, 0, m.Len())
	keys := make([]string, 0, m.Len())
	itr := m.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r, _ := m.Get(k)
		out = append(out, r)
	}
	return out
}

// Set inserts or replaces r under its identity. Relationship records are also
// indexed in both the left-keyed and right-keyed sub-maps.
func (s State) Set(r *record.Record) State {
	s.objects = s.objs().Set(r.Identity(), r)
	if r.Kind().Composite() {
		l, rt := r.LeftID(), r.RightID()
		s.left = setSide(s.sides(true), l, rt, r)
		s.right = setSide(s.sides(false), rt, l, r)
	}
	return s
}

func setSide(m *immutable.Map[string, *recordMap], outer, inner string, r *record.Record) *immutable.Map[string, *recordMap] {
	sub, ok := m.Get(outer)
	if !ok {
		sub = emptyRecords()
	}
	return m.Set(outer, sub.Set(inner, r))
}

func deleteSide(m *immutable.Map[string, *recordMap], outer, inner string) *immutable.Map[string, *recordMap] {
	sub, ok := m.Get(outer)
	if !ok {
		return m
	}
	sub = sub.Delete(inner)
	if sub.Len() == 0 {
		return m.Delete(outer)
	}
	return m.Set(outer, sub)
}

// Delete removes the record with the given identity, together with its
// relationship sub-map entries, its selection, and every pointer that
// references it.
func (s State) Delete(id string) State {
	r, ok := s.objs().Get(id)
	if ok && r.Kind().Composite() {
		l, rt := r.LeftID(), r.RightID()
		s.left = deleteSide(s.sides(true), l, rt)
		s.right = deleteSide(s.sides(false), rt, l)
	}
	s.objects = s.objs().Delete(id)
	s.selected = s.sel().Delete(id)
	if s.currentID == id {
		s.currentID = ""
	}
	if s.editingID == id {
		s.editingID = ""
		s.revertTo = nil
	}
	if s.deletingID == id {
		s.deletingID = ""
	}
	return s
}

// CurrentID returns the current record's identity, or "".
func (s State) CurrentID() string { return s.currentID }

// EditingID returns the identity of the record being edited, or "".
func (s State) EditingID() string { return s.editingID }

// DeletingID returns the identity of the record pending deletion, or "".
func (s State) DeletingID() string { return s.deletingID }

// RevertTo returns the record as it was when editing started.
func (s State) RevertTo() *record.Record { return s.revertTo }

// WithCurrent sets the current pointer. An empty id clears it.
func (s State) WithCurrent(id string) State {
	s.currentID = id
	return s
}

// WithEditing sets the editing pointer. An empty id clears it.
func (s State) WithEditing(id string) State {
	s.editingID = id
	return s
}

// WithDeleting sets the deleting pointer. An empty id clears it.
func (s State) WithDeleting(id string) State {
	s.deletingID = id
	return s
}

// WithRevertTo remembers r for CANCEL_EDIT. Nil clears it.
func (s State) WithRevertTo(r *record.Record) State {
	s.revertTo = r
	return s
}

// IsSelected reports whether id is in the selection set.
func (s State) IsSelected(id string) bool {
	_, ok := s.sel().Get(id)
	return ok
}

// Selected returns the selected identities in order.
func (s State) Selected() []string {
	out := make([]string, 0, s.sel().Len())
	itr := s.sel().Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WithSelected adds or removes id from the selection set.
func (s State) WithSelected(id string, on bool) State {
	if on {
		s.selected = s.sel().Set(id, struct{}{})
	} else {
		s.selected = s.sel().Delete(id)
	}
	return s
}

// ClearSelection empties the selection set.
func (s State) ClearSelection() State {
	s.selected = nil
	return s
}

// Err returns the last error recorded by an ERROR event, or nil.
func (s State) Err() error { return s.err }

// WithErr records err in the error slot. Nil clears it.
func (s State) WithErr(err error) State {
	s.err = err
	return s
}

// Searching reports whether a search call is in flight.
func (s State) Searching() bool { return s.searching }

// SearchQuery returns the query of the last search started.
func (s State) SearchQuery() string { return s.searchQuery }

// SearchResults returns the documents found by the last search.
func (s State) SearchResults() []types.Document {
	l := s.results()
	out := make([]types.Document, 0, l.Len())
	itr := l.Iterator()
	for !itr.Done() {
		_, d := itr.Next()
		out = append(out, d)
	}
	return out
}

// WithSearch sets the search slot: the in-flight flag and the query.
func (s State) WithSearch(searching bool, query string) State {
	s.searching = searching
	s.searchQuery = query
	return s
}

// WithSearchResults replaces the search results.
func (s State) WithSearchResults(docs []types.Document) State {
	s.searchResults = immutable.NewList(docs...)
	return s
}

// searchIndex returns the position of the result whose idKey equals id.
func (s State) searchIndex(idKey, id string) int {
	if idKey == "" {
		return -1
	}
	l := s.results()
	for i := 0; i < l.Len(); i++ {
		if record.FormatID(l.Get(i)[idKey]) == id {
			return i
		}
	}
	return -1
}

// patchSearchResult copies the fields the result shares with r into the
// result at index i. Fields only present in r are not added.
func (s State) patchSearchResult(i int, r *record.Record) State {
	l := s.results()
	old := l.Get(i)
	patched := make(types.Document, len(old))
	for k, v := range old {
		if r.Has(k) {
			patched[k] = r.Get(k)
		} else {
			patched[k] = v
		}
	}
	s.searchResults = l.Set(i, patched)
	return s
}

// removeSearchResult drops the result at index i.
func (s State) removeSearchResult(i int) State {
	l := s.results()
	next := l.Slice(0, i)
	for j := i + 1; j < l.Len(); j++ {
		next = next.Append(l.Get(j))
	}
	s.searchResults = next
	return s
}

// replaceRecords swaps the whole collection for rs. Selections and pointers
// whose records are gone are dropped.
func (s State) replaceRecords(rs []*record.Record) State {
	next := s
	next.objects, next.left, next.right, next.selected = nil, nil, nil, nil
	for _, r := range rs {
		next = next.Set(r)
	}
	for _, id := range s.Selected() {
		if next.Has(id) {
			next = next.WithSelected(id, true)
		}
	}
	if !next.Has(next.currentID) {
		next.currentID = ""
	}
	if !next.Has(next.editingID) {
		next.editingID = ""
		next.revertTo = nil
	}
	if !next.Has(next.deletingID) {
		next.deletingID = ""
	}
	return next
}
