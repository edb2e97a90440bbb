package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

func valid() types.Document {
	return types.Document{
		KeyID:        "u1",
		KeyFirstName: "Ada",
		KeyLastName:  "Lovelace",
		KeyEmail:     "ada@example.com",
		KeyPassword:  "analytical",
	}
}

func TestValidateAction(t *testing.T) {
	tests := []struct {
		name    string
		verb    types.Verb
		change  func(types.Document)
		wantErr bool
	}{
		{name: "valid create", verb: types.VerbSaveNew, change: func(types.Document) {}},
		{name: "short password", verb: types.VerbSaveNew, change: func(d types.Document) { d[KeyPassword] = "short" }, wantErr: true},
		{name: "missing password on create", verb: types.VerbSaveNew, change: func(d types.Document) { delete(d, KeyPassword) }, wantErr: true},
		{name: "missing password on update", verb: types.VerbSaveUpdate, change: func(d types.Document) { delete(d, KeyPassword) }},
		{name: "bad email", verb: types.VerbSaveUpdate, change: func(d types.Document) { d[KeyEmail] = "not-an-email" }, wantErr: true},
		{name: "first name too short", verb: types.VerbSaveUpdate, change: func(d types.Document) { d[KeyFirstName] = "A" }, wantErr: true},
		{name: "unknown role", verb: types.VerbSaveUpdate, change: func(d types.Document) { d[KeyRole] = "owner" }, wantErr: true},
		{name: "read ignores rules", verb: types.VerbRead, change: func(d types.Document) { delete(d, KeyEmail) }},
		{name: "delete member", verb: types.VerbDelete, change: func(d types.Document) { d[KeyRole] = RoleMember }},
		{name: "delete admin", verb: types.VerbDelete, change: func(d types.Document) { d[KeyRole] = RoleAdmin }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.change(doc)
			err := New(doc).ValidateAction(tt.verb)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrValidationFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchPayload(t *testing.T) {
	r := New(valid())

	assert.Equal(t, "analytical", r.FetchPayload(types.VerbSaveNew)[KeyPassword])
	update := r.FetchPayload(types.VerbSaveUpdate)
	assert.NotContains(t, update, KeyPassword)
	assert.Equal(t, "Ada", update[KeyFirstName])
	assert.Nil(t, r.FetchPayload(types.VerbRead))
	assert.Nil(t, r.FetchPayload(types.VerbDelete))
	assert.True(t, r.Has(KeyPassword), "payload must not modify the record")
}

func TestSaveNewForgetsPassword(t *testing.T) {
	svc := service.New(Kind)
	require.NoError(t, svc.CreateNew(nil))
	draft, ok := svc.GetEditing()
	require.True(t, ok)
	assert.Equal(t, RoleMember, draft.Get(KeyRole))

	for k, v := range valid() {
		if k == KeyID {
			continue
		}
		require.NoError(t, svc.Edit(draft, k, v))
		draft, _ = svc.GetEditing()
	}
	require.NoError(t, draft.ValidateAction(types.VerbSaveNew))

	require.NoError(t, svc.Apply(service.Action{
		Type: types.ActionAsync, Verb: types.VerbSaveNew, Status: types.StatusSuccess,
		Service: svc.Name(), Record: draft, Received: types.Document{KeyID: "u9"},
	}))

	saved, ok := svc.GetByID("u9")
	require.True(t, ok)
	assert.False(t, saved.Has(KeyPassword))
	assert.Equal(t, "ada@example.com", saved.Get(KeyEmail))
	assert.False(t, saved.IsNew())
}

func TestServiceRefusesInvalidSave(t *testing.T) {
	exec := &countingExecutor{}
	svc := service.New(Kind, service.WithExecutor(exec))
	r := New(types.Document{KeyID: "u1", KeyFirstName: "Ada"})

	err := svc.SaveUpdate(context.Background(), r)

	assert.ErrorIs(t, err, types.ErrValidationFailed)
	assert.Zero(t, exec.calls)
}

// countingExecutor validates the way rest.Client does before counting the
// call.
type countingExecutor struct {
	calls int
}

func (e *countingExecutor) Execute(_ context.Context, _ *service.Service, req service.Request) error {
	if err := req.Record.ValidateAction(req.Verb); err != nil {
		return err
	}
	e.calls++
	return nil
}

func TestFullName(t *testing.T) {
	tests := []struct {
		doc  types.Document
		want string
	}{
		{types.Document{KeyFirstName: "Ada", KeyLastName: "Lovelace"}, "Ada Lovelace"},
		{types.Document{KeyFirstName: "Ada"}, "Ada"},
		{types.Document{KeyLastName: "Lovelace"}, "Lovelace"},
		{types.Document{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FullName(New(tt.doc)))
	}
}
