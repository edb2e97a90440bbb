package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbClassification(t *testing.T) {
	tests := []struct {
		verb         Verb
		wantAsync    bool
		wantCrossCut bool
	}{
		{VerbRead, true, false},
		{VerbSaveNew, true, false},
		{VerbSaveUpdate, true, false},
		{VerbDelete, true, false},
		{VerbSearch, true, false},
		{VerbLogin, true, true},
		{VerbLogout, true, true},
		{VerbHydrate, true, true},
		{VerbEdit, false, false},
		{VerbStartEdit, false, false},
		{VerbCancelEdit, false, false},
		{VerbCreateNew, false, false},
		{VerbCancelNew, false, false},
		{VerbStartDelete, false, false},
		{VerbCancelDelete, false, false},
		{VerbToggleSelected, false, false},
		{Verb("JUNK"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.verb.String(), func(t *testing.T) {
			assert.Equal(t, tt.wantAsync, tt.verb.IsAsync())
			assert.Equal(t, tt.wantCrossCut, tt.verb.IsCrossCutting())
		})
	}
}

func TestStandardVerbsComplete(t *testing.T) {
	assert.Len(t, StandardVerbs, 16)
	seen := map[Verb]bool{}
	for _, v := range StandardVerbs {
		assert.False(t, seen[v], "duplicate verb %s", v)
		seen[v] = true
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusStart.Valid())
	assert.True(t, StatusSuccess.Valid())
	assert.True(t, StatusError.Valid())
	assert.False(t, StatusNone.Valid())
	assert.False(t, Status("Junk").Valid())
}
