package record

import (
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/rim/pkg/types"
)

// Default identity keys and placeholders.
const (
	DefaultIDKey       = "ID"
	DefaultNewID       = "newRIMObject"
	DefaultLeftKey     = "left_id"
	DefaultRightKey    = "right_id"
	DefaultNewLeftID   = "new_left_id"
	DefaultNewRightID  = "new_right_id"
	compositeSeparator = "/"
)

// IdentityStrategy computes a record's identity from its document. The set
// of strategies is closed: SingleKey, CompositeKey, and NoIdentity.
type IdentityStrategy interface {
	// ID returns the identity of doc, or "" when identity is disabled.
	ID(doc types.Document) string

	// Placeholder returns the identity a record has before the server
	// assigns one.
	Placeholder() string

	// Keys returns the document keys the identity is derived from.
	Keys() []string

	// seed fills missing identity fields with placeholders. doc is a fresh
	// copy owned by the caller.
	seed(doc types.Document)
}

// SingleKey derives identity from one document field.
type SingleKey struct {
	Key   string // Defaults to DefaultIDKey.
	NewID string // Defaults to DefaultNewID.
}

func (s SingleKey) key() string {
	if s.Key == "" {
		return DefaultIDKey
	}
	return s.Key
}

// ID returns the value of the identity field.
func (s SingleKey) ID(doc types.Document) string {
	return FormatID(doc[s.key()])
}

// Placeholder returns the identity of a record not yet saved.
func (s SingleKey) Placeholder() string {
	if s.NewID == "" {
		return DefaultNewID
	}
	return s.NewID
}

// Keys returns the single identity key.
func (s SingleKey) Keys() []string {
	return []string{s.key()}
}

func (s SingleKey) seed(doc types.Document) {
	if v, ok := doc[s.key()]; !ok || v == nil {
		doc[s.key()] = s.Placeholder()
	}
}

// CompositeKey derives identity from two fields, for association records
// linking two other records. The identity is left + "/" + right.
type CompositeKey struct {
	LeftKey    string // Defaults to DefaultLeftKey.
	RightKey   string // Defaults to DefaultRightKey.
	NewLeftID  string // Defaults to DefaultNewLeftID.
	NewRightID string // Defaults to DefaultNewRightID.
}

func (c CompositeKey) leftKey() string {
	if c.LeftKey == "" {
		return DefaultLeftKey
	}
	return c.LeftKey
}

func (c CompositeKey) rightKey() string {
	if c.RightKey == "" {
		return DefaultRightKey
	}
	return c.RightKey
}

func (c CompositeKey) newLeft() string {
	if c.NewLeftID == "" {
		return DefaultNewLeftID
	}
	return c.NewLeftID
}

func (c CompositeKey) newRight() string {
	if c.NewRightID == "" {
		return DefaultNewRightID
	}
	return c.NewRightID
}

// ID returns left + "/" + right.
func (c CompositeKey) ID(doc types.Document) string {
	return JoinID(c.Left(doc), c.Right(doc))
}

// Left returns the left half of the identity.
func (c CompositeKey) Left(doc types.Document) string {
	return FormatID(doc[c.leftKey()])
}

// Right returns the right half of the identity.
func (c CompositeKey) Right(doc types.Document) string {
	return FormatID(doc[c.rightKey()])
}

// Placeholder returns the identity of a relationship not yet saved.
func (c CompositeKey) Placeholder() string {
	return JoinID(c.newLeft(), c.newRight())
}

// Keys returns the left and right keys.
func (c CompositeKey) Keys() []string {
	return []string{c.leftKey(), c.rightKey()}
}

func (c CompositeKey) seed(doc types.Document) {
	if v, ok := doc[c.leftKey()]; !ok || v == nil {
		doc[c.leftKey()] = c.newLeft()
	}
	if v, ok := doc[c.rightKey()]; !ok || v == nil {
		doc[c.rightKey()] = c.newRight()
	}
}

// NoIdentity disables identity. Records of such a kind cannot be stored in a
// collection by key.
type NoIdentity struct{}

// ID always returns "".
func (NoIdentity) ID(types.Document) string { return "" }

// Placeholder always returns "".
func (NoIdentity) Placeholder() string { return "" }

// Keys returns no keys.
func (NoIdentity) Keys() []string { return nil }

func (NoIdentity) seed(types.Document) {}

// JoinID builds a composite identity.
func JoinID(left, right string) string {
	return left + compositeSeparator + right
}

// FormatID renders an identity value as a string. JSON numbers decode as
// float64 and are rendered without a fractional part when integral;
// json.Number values use their Stringer.
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
