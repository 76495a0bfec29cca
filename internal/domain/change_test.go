package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingChangeCarriesPayload(t *testing.T) {
	record := Cattle{ID: "tmp-abc", Breed: "Jersey", Age: 2}
	change := NewPendingChange(ChangeCreate, CollectionCattle, record.ID, record)

	assert.NotEmpty(t, change.ID)
	assert.Equal(t, ChangeCreate, change.Kind)
	assert.NotZero(t, change.QueuedAt)
	assert.True(t, change.ReferencesTempID("tmp-abc"))
	assert.False(t, change.ReferencesTempID("tmp-other"))
}

func TestRewriteTempIDRewritesTargetAndPayload(t *testing.T) {
	record := Cattle{ID: "tmp-abc", Breed: "Jersey"}
	change := NewPendingChange(ChangeUpdate, CollectionCattle, "tmp-abc", record)

	rewritten := change.RewriteTempID("tmp-abc", "42")

	assert.Equal(t, "42", rewritten.TargetID)
	assert.True(t, rewritten.ReferencesTempID("42"))
	assert.False(t, rewritten.ReferencesTempID("tmp-abc"))
	// The original change is untouched.
	assert.Equal(t, "tmp-abc", change.TargetID)
}

func TestRewriteTempIDIgnoresUnrelatedChanges(t *testing.T) {
	change := NewPendingChange(ChangeDelete, CollectionCattle, "7", nil)
	rewritten := change.RewriteTempID("tmp-abc", "42")
	assert.Equal(t, "7", rewritten.TargetID)
}

func TestTempIDs(t *testing.T) {
	id := NewTempID()
	require.True(t, IsTempID(id))
	assert.False(t, IsTempID("42"))

	other := NewTempID()
	assert.NotEqual(t, id, other)
}
