package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/types"
)

func TestZeroStateIsEmpty(t *testing.T) {
	var s State
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("x"))
	assert.Empty(t, s.Records())
	assert.Empty(t, s.Selected())
	assert.Empty(t, s.SearchResults())
	assert.Nil(t, s.Err())
}

func TestSetDoesNotModifyReceiver(t *testing.T) {
	before := NewState()
	after := before.Set(user("1", "Ann"))

	assert.Equal(t, 0, before.Len())
	assert.Equal(t, 1, after.Len())
}

func TestCompositeBidirectionalLookup(t *testing.T) {
	m := membership("L1", "R1")
	s := NewState().Set(m)

	got, ok := s.GetByIDs("L1", "R1")
	require.True(t, ok)
	assert.Same(t, m, got)

	got, ok = s.GetByIDs("R1", "L1")
	require.True(t, ok)
	assert.Same(t, m, got)

	_, ok = s.GetByIDs("L1", "R2")
	assert.False(t, ok)

	byID, ok := s.Get("L1/R1")
	require.True(t, ok)
	assert.Same(t, m, byID)
}

func TestCompositeDeleteRemovesBothSides(t *testing.T) {
	s := NewState().Set(membership("L1", "R1")).Set(membership("L1", "R2"))
	s = s.Delete("L1/R1")

	_, ok := s.GetByIDs("R1", "L1")
	assert.False(t, ok)
	assert.Len(t, s.Side("L1", true), 1)
	assert.Empty(t, s.Side("R1", false))
}

func TestDeleteClearsPointers(t *testing.T) {
	tests := []struct {
		name        string
		deleteID    string
		wantCurrent string
	}{
		{"deleting current clears it", "1", ""},
		{"deleting another record keeps it", "2", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState().Set(user("1", "Ann")).Set(user("2", "Bo")).WithCurrent("1")
			s = s.Delete(tt.deleteID)
			assert.Equal(t, tt.wantCurrent, s.CurrentID())
		})
	}
}

func TestDeleteClearsEditingDeletingAndSelection(t *testing.T) {
	r := user("1", "Ann")
	s := NewState().Set(r).WithEditing("1").WithRevertTo(r).WithDeleting("1").WithSelected("1", true)
	s = s.Delete("1")

	assert.Empty(t, s.EditingID())
	assert.Nil(t, s.RevertTo())
	assert.Empty(t, s.DeletingID())
	assert.False(t, s.IsSelected("1"))
}

func TestSelection(t *testing.T) {
	s := NewState().WithSelected("b", true).WithSelected("a", true)
	assert.Equal(t, []string{"a", "b"}, s.Selected())

	s = s.WithSelected("a", false)
	assert.Equal(t, []string{"b"}, s.Selected())

	assert.Empty(t, s.ClearSelection().Selected())
}

func TestSearchResultPatchAndRemove(t *testing.T) {
	s := NewState().WithSearchResults([]types.Document{
		{"ID": "1", "name": "Ann"},
		{"ID": "2", "name": "Bo"},
		{"ID": "3", "name": "Cy"},
	})

	i := s.searchIndex("ID", "2")
	require.Equal(t, 1, i)

	patched := s.patchSearchResult(i, userKind.New(types.Document{"ID": "2", "name": "Bob", "email": "b@x"}))
	got := patched.SearchResults()[1]
	assert.Equal(t, "Bob", got["name"])
	assert.NotContains(t, got, "email")
	assert.Equal(t, "Bo", s.SearchResults()[1]["name"])

	removed := s.removeSearchResult(i)
	require.Len(t, removed.SearchResults(), 2)
	assert.Equal(t, "3", removed.SearchResults()[1]["ID"])

	assert.Equal(t, -1, s.searchIndex("ID", "9"))
	assert.Equal(t, -1, s.searchIndex("", "1"))
}

func TestReplaceRecordsDropsStalePointers(t *testing.T) {
	s := NewState().Set(user("1", "Ann")).Set(user("2", "Bo")).
		WithCurrent("1").WithEditing("2").WithSelected("1", true).WithSelected("2", true).
		replaceRecords([]*record.Record{user("2", "Bob")})

	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.CurrentID())
	assert.Equal(t, "2", s.EditingID())
	assert.Equal(t, []string{"2"}, s.Selected())
}
