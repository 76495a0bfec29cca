package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/internal/domain"
	"github.com/corralhq/corral/internal/logging"
)

func openTestQueue(t *testing.T, dir string) *Queue {
	t.Helper()
	q, err := Open(dir, logging.Null())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestFIFOOrder(t *testing.T) {
	q := openTestQueue(t, t.TempDir())

	changes := []domain.PendingChange{
		domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, "tmp-1", domain.Cattle{ID: "tmp-1"}),
		domain.NewPendingChange(domain.ChangeUpdate, domain.CollectionCattle, "tmp-1", domain.Cattle{ID: "tmp-1", Age: 3}),
		domain.NewPendingChange(domain.ChangeDelete, domain.CollectionCattle, "x", nil),
	}
	for _, c := range changes {
		require.NoError(t, q.Enqueue(c))
	}

	got := q.Snapshot()
	require.Len(t, got, 3)
	for i := range changes {
		assert.Equal(t, changes[i].ID, got[i].ID)
	}
	assert.Equal(t, 3, q.Len())
}

func TestRemoveDeletesOnlyThatChange(t *testing.T) {
	q := openTestQueue(t, t.TempDir())

	a := domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, "", domain.Cattle{})
	b := domain.NewPendingChange(domain.ChangeDelete, domain.CollectionCattle, "1", nil)
	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))

	require.NoError(t, q.Remove(a.ID))

	got := q.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	// Removing an unknown id is a no-op.
	require.NoError(t, q.Remove("ghost"))
	assert.Equal(t, 1, q.Len())
}

func TestRewriteTempID(t *testing.T) {
	q := openTestQueue(t, t.TempDir())

	tempID := domain.NewTempID()
	create := domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, tempID, domain.Cattle{ID: tempID, Breed: "Jersey"})
	update := domain.NewPendingChange(domain.ChangeUpdate, domain.CollectionCattle, tempID, domain.Cattle{ID: tempID, Breed: "Jersey", Age: 3})
	unrelated := domain.NewPendingChange(domain.ChangeDelete, domain.CollectionCattle, "other", nil)
	require.NoError(t, q.Enqueue(create))
	require.NoError(t, q.Enqueue(update))
	require.NoError(t, q.Enqueue(unrelated))

	require.NoError(t, q.RewriteTempID(tempID, "42"))

	got := q.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, "42", got[0].TargetID)
	assert.Equal(t, "42", got[1].TargetID)
	assert.Contains(t, string(got[1].Payload), `"42"`)
	assert.False(t, got[1].ReferencesTempID(tempID))
	assert.Equal(t, "other", got[2].TargetID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, logging.Null())
	require.NoError(t, err)
	change := domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, "", domain.Cattle{Breed: "Angus"})
	require.NoError(t, q.Enqueue(change))
	require.NoError(t, q.Close())

	q2 := openTestQueue(t, dir)
	got := q2.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, change.ID, got[0].ID)
}

func TestMemoryOnlyMode(t *testing.T) {
	q := openTestQueue(t, "")

	a := domain.NewPendingChange(domain.ChangeCreate, domain.CollectionCattle, "", domain.Cattle{})
	require.NoError(t, q.Enqueue(a))
	assert.Equal(t, 1, q.Len())
	require.NoError(t, q.Remove(a.ID))
	assert.Equal(t, 0, q.Len())
}
