package record

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/google/go-cmp/cmp"

	"github.com/mesh-intelligence/rim/pkg/types"
)

// valueEquality compares document values, including opaque values such as
// *big.Int whose structs have unexported fields.
var valueEquality = cmp.Exporter(func(reflect.Type) bool { return true })

// Record is an immutable document of a Kind plus three transient flags:
// dirty (local edits not yet persisted), fetching (a call is in flight), and
// new (not yet assigned a server identity).
//
// Values returned by Get and GetIn are shared with the record and must not be
// modified; use Data for a private copy.
type Record struct {
	kind     *Kind
	data     types.Document
	dirty    bool
	fetching bool
	isNew    bool
}

// Kind returns the record's kind.
func (r *Record) Kind() *Kind { return r.kind }

// Is reports whether the record belongs to kind k.
func (r *Record) Is(k *Kind) bool {
	return r != nil && r.kind == k
}

// Identity returns the computed identity.
func (r *Record) Identity() string {
	return r.kind.IdentityStrategy().ID(r.data)
}

// IsPlaceholder reports whether the record still has its unsaved identity.
func (r *Record) IsPlaceholder() bool {
	return r.Identity() == r.kind.Placeholder()
}

// LeftID returns the left half of a composite identity, or "".
func (r *Record) LeftID() string {
	if c, ok := r.kind.IdentityStrategy().(CompositeKey); ok {
		return c.Left(r.data)
	}
	return ""
}

// RightID returns the right half of a composite identity, or "".
func (r *Record) RightID() string {
	if c, ok := r.kind.IdentityStrategy().(CompositeKey); ok {
		return c.Right(r.data)
	}
	return ""
}

// Created returns the creation timestamp field, or nil.
func (r *Record) Created() any {
	if r.kind.createdKey() == "-" {
		return nil
	}
	return r.data[r.kind.createdKey()]
}

// Updated returns the last-update timestamp field, or nil.
func (r *Record) Updated() any {
	if r.kind.updatedKey() == "-" {
		return nil
	}
	return r.data[r.kind.updatedKey()]
}

// IsDirty reports whether the record has local edits not yet persisted.
func (r *Record) IsDirty() bool { return r.dirty }

// IsFetching reports whether a call is in flight for the record.
func (r *Record) IsFetching() bool { return r.fetching }

// IsNew reports whether the record has not been saved yet.
func (r *Record) IsNew() bool { return r.isNew }

// SetDirty returns the record with dirty set to v. The receiver is returned
// when the flag already has that value.
func (r *Record) SetDirty(v bool) *Record {
	if r.dirty == v {
		return r
	}
	c := *r
	c.dirty = v
	return &c
}

// SetFetching returns the record with fetching set to v.
func (r *Record) SetFetching(v bool) *Record {
	if r.fetching == v {
		return r
	}
	c := *r
	c.fetching = v
	return &c
}

// SetNew returns the record with new set to v.
func (r *Record) SetNew(v bool) *Record {
	if r.isNew == v {
		return r
	}
	c := *r
	c.isNew = v
	return &c
}

// Get returns the value at key.
func (r *Record) Get(key string) any {
	return r.data[key]
}

// Has reports whether the document has key.
func (r *Record) Has(key string) bool {
	_, ok := r.data[key]
	return ok
}

// GetString returns the value at key when it is a string.
func (r *Record) GetString(key string) string {
	s, _ := r.data[key].(string)
	return s
}

// GetIn returns the value at a nested path, or nil when any step is missing.
func (r *Record) GetIn(path []string) any {
	var cur any = r.data
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// Data returns a deep copy of the record's document.
func (r *Record) Data() types.Document {
	return copyDocument(r.data)
}

// UpdateField sets key to value and marks the record dirty.
func (r *Record) UpdateField(key string, value any) *Record {
	return r.UpdateFieldIn([]string{key}, value, true)
}

// UpdateFieldIn sets the value at path. The receiver is returned when the
// current value is structurally equal to value. Otherwise the new record has
// dirty set to markDirty and keeps the other flags.
func (r *Record) UpdateFieldIn(path []string, value any, markDirty bool) *Record {
	if len(path) == 0 {
		return r
	}
	if cmp.Equal(r.GetIn(path), value, valueEquality) {
		return r
	}
	c := *r
	c.data = setIn(r.data, path, value)
	c.dirty = markDirty
	return &c
}

// setIn copies the maps along path and sets the leaf; untouched branches are
// shared with src.
func setIn(src types.Document, path []string, value any) types.Document {
	root := maps.Clone(src)
	if root == nil {
		root = types.Document{}
	}
	cur := root
	for _, p := range path[:len(path)-1] {
		child, _ := cur[p].(map[string]any)
		next := maps.Clone(child)
		if next == nil {
			next = map[string]any{}
		}
		cur[p] = next
		cur = next
	}
	cur[path[len(path)-1]] = value
	return root
}

// FetchPayload returns the request body to send with verb, or nil for none.
func (r *Record) FetchPayload(verb types.Verb) types.Document {
	if r.kind.FetchPayload != nil {
		return r.kind.FetchPayload(r, verb)
	}
	switch verb {
	case types.VerbRead, types.VerbDelete, types.VerbSearch:
		return nil
	default:
		return r.Data()
	}
}

// AfterCreateSuccess applies the kind's post-create hook.
func (r *Record) AfterCreateSuccess(received any) *Record {
	if r.kind.AfterCreateSuccess == nil {
		return r
	}
	return r.kind.AfterCreateSuccess(r, received)
}

// AfterUpdateSuccess applies the kind's post-update hook.
func (r *Record) AfterUpdateSuccess(received any) *Record {
	if r.kind.AfterUpdateSuccess == nil {
		return r
	}
	return r.kind.AfterUpdateSuccess(r, received)
}

// Equal reports whether two records have the same kind, flags, and
// structurally equal documents.
func (r *Record) Equal(o *Record) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	return r.kind == o.kind &&
		r.dirty == o.dirty &&
		r.fetching == o.fetching &&
		r.isNew == o.isNew &&
		cmp.Equal(r.data, o.data, valueEquality)
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%s)", r.kind.Name, r.Identity())
}
