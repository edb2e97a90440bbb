package record

import (
	"maps"
	"strings"

	"github.com/tiendc/go-deepcopy"

	"github.com/mesh-intelligence/rim/pkg/types"
)

// Default timestamp keys.
const (
	DefaultCreatedKey = "record_created"
	DefaultUpdatedKey = "record_updated"
)

// Kind describes one entity type: how its records are identified, where its
// collection lives on the server, and the hooks that customize its records.
// All hooks are optional. A Kind must not be modified once records exist.
type Kind struct {
	// Name is the entity type name, e.g. "User".
	Name string

	// Identity selects the identity strategy. Nil means SingleKey{}.
	Identity IdentityStrategy

	// CreatedKey and UpdatedKey name the timestamp fields. Empty means the
	// defaults; "-" disables the field.
	CreatedKey string
	UpdatedKey string

	// CollectionPath is the top-level key holding this kind's documents in
	// hydrate and login responses. Empty means Name + "s".
	CollectionPath string

	// APIPath is the base URL path of the collection. Empty means
	// "/" + lower(Name) + "s".
	APIPath string

	// SoftDelete keeps records in the collection after a successful DELETE
	// (the server marks rather than removes them).
	SoftDelete bool

	// Rules are per-verb declarative validation rules, keyed by document
	// field, in go-playground/validator tag syntax.
	Rules map[types.Verb]map[string]any

	// FetchPayload produces the request body for a verb. Nil means the whole
	// document for writes and no body for READ, DELETE, and SEARCH.
	FetchPayload func(r *Record, verb types.Verb) types.Document

	// AfterCreateSuccess and AfterUpdateSuccess post-process a record right
	// after the server confirms persistence.
	AfterCreateSuccess func(r *Record, received any) *Record
	AfterUpdateSuccess func(r *Record, received any) *Record

	// AfterNew initializes records created by CREATE_NEW.
	AfterNew func(r *Record) *Record

	// ValidateAction gates whether a verb may proceed for a record.
	ValidateAction func(r *Record, verb types.Verb) bool
}

// IdentityStrategy returns the kind's identity strategy.
func (k *Kind) IdentityStrategy() IdentityStrategy {
	if k.Identity == nil {
		return SingleKey{}
	}
	return k.Identity
}

// Composite reports whether records of this kind use a two-field identity.
func (k *Kind) Composite() bool {
	_, ok := k.IdentityStrategy().(CompositeKey)
	return ok
}

// IDKey returns the identity field for single-key kinds, or "".
func (k *Kind) IDKey() string {
	if s, ok := k.IdentityStrategy().(SingleKey); ok {
		return s.key()
	}
	return ""
}

// Placeholder returns the identity of an unsaved record of this kind.
func (k *Kind) Placeholder() string {
	return k.IdentityStrategy().Placeholder()
}

// HydratePath returns the payload key holding this kind's documents.
func (k *Kind) HydratePath() string {
	if k.CollectionPath != "" {
		return k.CollectionPath
	}
	return k.Name + "s"
}

// BasePath returns the collection's base URL path.
func (k *Kind) BasePath() string {
	if k.APIPath != "" {
		return k.APIPath
	}
	return "/" + strings.ToLower(k.Name) + "s"
}

// CanDeleteFromData reports whether a successful DELETE removes the record.
func (k *Kind) CanDeleteFromData() bool {
	return !k.SoftDelete
}

func (k *Kind) createdKey() string {
	if k.CreatedKey == "" {
		return DefaultCreatedKey
	}
	return k.CreatedKey
}

func (k *Kind) updatedKey() string {
	if k.UpdatedKey == "" {
		return DefaultUpdatedKey
	}
	return k.UpdatedKey
}

// New creates a clean record from doc. The document is deep-copied, so later
// changes to doc do not leak into the record.
func (k *Kind) New(doc types.Document) *Record {
	return k.NewWithFlags(doc, false, false, false)
}

// NewDraft creates a record marked new, as CREATE_NEW does.
func (k *Kind) NewDraft(doc types.Document) *Record {
	return k.NewWithFlags(doc, false, false, true)
}

// NewWithFlags creates a record from doc with the given flags.
func (k *Kind) NewWithFlags(doc types.Document, dirty, fetching, isNew bool) *Record {
	data := copyDocument(doc)
	k.IdentityStrategy().seed(data)
	return &Record{
		kind:     k,
		data:     data,
		dirty:    dirty,
		fetching: fetching,
		isNew:    isNew,
	}
}

// copyDocument returns a deep copy of doc, never nil.
func copyDocument(doc types.Document) types.Document {
	if doc == nil {
		return types.Document{}
	}
	var out types.Document
	if err := deepcopy.Copy(&out, doc); err != nil || out == nil {
		// Values deepcopy cannot handle are shared; documents are JSON-shaped
		// so this only happens for caller-supplied exotic values.
		out = maps.Clone(doc)
	}
	return out
}

// KindFor builds a Kind from a collection's configuration. A collection with
// neither id_key nor left/right keys uses the default single key.
func KindFor(c types.CollectionConfig) *Kind {
	k := &Kind{Name: c.Name, APIPath: c.APIPath, SoftDelete: c.SoftDelete}
	if c.Composite() {
		k.Identity = CompositeKey{LeftKey: c.LeftKey, RightKey: c.RightKey}
	} else {
		k.Identity = SingleKey{Key: c.IDKey}
	}
	return k
}
