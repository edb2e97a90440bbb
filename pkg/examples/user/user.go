// Package user is a worked example of a Kind: a user account whose records
// validate themselves before each network verb and never keep the password
// once the server has accepted it.
package user

import (
	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Document keys.
const (
	KeyID        = "ID"
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
	KeyEmail     = "email"
	KeyPassword  = "password"
	KeyRole      = "role"
)

// Roles a user may hold.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var writeRules = map[string]any{
	KeyFirstName: "required,min=2,max=64",
	KeyLastName:  "omitempty,max=64",
	KeyEmail:     "required,email",
	KeyRole:      "omitempty,oneof=member admin",
}

// Kind is the User kind. Services for users are built with
// service.New(user.Kind).
var Kind = &record.Kind{
	Name: "User",
	Rules: map[types.Verb]map[string]any{
		types.VerbSaveNew:    withPassword(writeRules),
		types.VerbSaveUpdate: writeRules,
	},
	FetchPayload:       payload,
	AfterNew:           afterNew,
	AfterCreateSuccess: forgetPassword,
	ValidateAction:     allowed,
}

func withPassword(rules map[string]any) map[string]any {
	out := make(map[string]any, len(rules)+1)
	for k, v := range rules {
		out[k] = v
	}
	out[KeyPassword] = "required,min=8"
	return out
}

// New returns a user record from doc.
func New(doc types.Document) *record.Record {
	return Kind.New(doc)
}

// payload sends the password only when creating the account.
func payload(r *record.Record, verb types.Verb) types.Document {
	switch verb {
	case types.VerbRead, types.VerbDelete, types.VerbSearch:
		return nil
	case types.VerbSaveNew:
		return r.Data()
	default:
		doc := r.Data()
		delete(doc, KeyPassword)
		return doc
	}
}

func afterNew(r *record.Record) *record.Record {
	if r.Has(KeyRole) {
		return r
	}
	return r.UpdateFieldIn([]string{KeyRole}, RoleMember, false)
}

func forgetPassword(r *record.Record, _ any) *record.Record {
	if !r.Has(KeyPassword) {
		return r
	}
	doc := r.Data()
	delete(doc, KeyPassword)
	return r.Kind().NewWithFlags(doc, r.IsDirty(), r.IsFetching(), r.IsNew())
}

// allowed refuses to delete administrators.
func allowed(r *record.Record, verb types.Verb) bool {
	if verb == types.VerbDelete {
		return r.GetString(KeyRole) != RoleAdmin
	}
	return true
}

// FullName joins the first and last name.
func FullName(r *record.Record) string {
	first, last := r.GetString(KeyFirstName), r.GetString(KeyLastName)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	default:
		return first + " " + last
	}
}
