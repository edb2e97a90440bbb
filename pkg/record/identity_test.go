package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/rim/pkg/types"
)

var relKind = &Kind{Name: "RelationshipRIMObject", Identity: CompositeKey{}}

func TestCompositeIdentity(t *testing.T) {
	r := relKind.New(types.Document{"left_id": "L1", "right_id": "R1"})
	assert.Equal(t, "L1/R1", r.Identity())
	assert.Equal(t, "L1", r.LeftID())
	assert.Equal(t, "R1", r.RightID())
	assert.True(t, relKind.Composite())
	assert.Equal(t, "", relKind.IDKey())
}

func TestCompositePlaceholders(t *testing.T) {
	r := relKind.New(types.Document{"left_id": "L1"})
	assert.Equal(t, "L1/new_right_id", r.Identity())

	empty := relKind.New(nil)
	assert.Equal(t, "new_left_id/new_right_id", empty.Identity())
	assert.True(t, empty.IsPlaceholder())
}

func TestCustomCompositeKeys(t *testing.T) {
	k := &Kind{Name: "Membership", Identity: CompositeKey{LeftKey: "user_id", RightKey: "group_id", NewLeftID: "u?", NewRightID: "g?"}}
	r := k.New(types.Document{"user_id": 7.0})
	assert.Equal(t, "7/g?", r.Identity())
	assert.Equal(t, []string{"user_id", "group_id"}, k.IdentityStrategy().Keys())
}

func TestNoIdentity(t *testing.T) {
	k := &Kind{Name: "Event", Identity: NoIdentity{}}
	r := k.New(types.Document{"ID": "ignored"})
	assert.Equal(t, "", r.Identity())
	assert.Nil(t, k.IdentityStrategy().Keys())
	assert.Equal(t, "", r.LeftID())
}

func TestSingleKeyIdentity(t *testing.T) {
	k := &Kind{Name: "User", Identity: SingleKey{Key: "user_id", NewID: "pending"}}
	assert.Equal(t, "pending", k.New(nil).Identity())
	assert.Equal(t, "u1", k.New(types.Document{"user_id": "u1"}).Identity())
	assert.Equal(t, "user_id", k.IDKey())
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "ID123", "ID123"},
		{"integral float", 42.0, "42"},
		{"fractional float", 4.5, "4.5"},
		{"int", 42, "42"},
		{"int64", int64(9007199254740993), "9007199254740993"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatID(tt.in))
		})
	}
}

func TestKindFor(t *testing.T) {
	single := KindFor(types.CollectionConfig{Name: "Team", IDKey: "team_id", SoftDelete: true})
	assert.Equal(t, "team_id", single.IDKey())
	assert.Equal(t, "/teams", single.BasePath())
	assert.False(t, single.CanDeleteFromData())

	link := KindFor(types.CollectionConfig{Name: "Membership", LeftKey: "user_id", RightKey: "team_id", APIPath: "/members"})
	assert.True(t, link.Composite())
	assert.Equal(t, "/members", link.BasePath())
	r := link.New(types.Document{"user_id": "u1", "team_id": "t1"})
	assert.Equal(t, "u1/t1", r.Identity())
}
