package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corralhq/corral/internal/domain"
)

func openTestCache(t *testing.T, dir string) *Cache {
	t.Helper()
	c, err := Open(dir, Options{TTL: 5 * time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetRespectsTTL(t *testing.T) {
	c := openTestCache(t, t.TempDir())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetClock(func() time.Time { return now })

	records := []domain.Cattle{{ID: "1", Breed: "Angus", Age: 3}}
	c.Set("cattle", records)

	var got []domain.Cattle
	require.True(t, c.Get("cattle", &got))
	require.Equal(t, records, got)

	// One tick short of the TTL is still fresh.
	now = base.Add(5*time.Minute - time.Millisecond)
	got = nil
	require.True(t, c.Get("cattle", &got))
	require.Equal(t, records, got)

	// At exactly the TTL the entry is treated as absent.
	now = base.Add(5 * time.Minute)
	got = nil
	require.False(t, c.Get("cattle", &got))

	// But the stale read still serves it for offline fallback.
	got = nil
	require.True(t, c.GetStale("cattle", &got))
	require.Equal(t, records, got)
}

func TestSetOverwritesAndRestamps(t *testing.T) {
	c := openTestCache(t, t.TempDir())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetClock(func() time.Time { return now })

	c.Set("cattle", []domain.Cattle{{ID: "1"}})

	// Rewriting at +4m resets the clock; at +8m the entry is 4m old.
	now = base.Add(4 * time.Minute)
	c.Set("cattle", []domain.Cattle{{ID: "2"}})

	now = base.Add(8 * time.Minute)
	var got []domain.Cattle
	require.True(t, c.Get("cattle", &got))
	require.Equal(t, "2", got[0].ID)
}

func TestMissingKey(t *testing.T) {
	c := openTestCache(t, t.TempDir())

	var got []domain.Cattle
	require.False(t, c.Get("cattle", &got))
	require.False(t, c.GetStale("cattle", &got))
}

func TestInvalidate(t *testing.T) {
	c := openTestCache(t, t.TempDir())

	c.Set("cattle", []domain.Cattle{{ID: "1"}})
	c.Invalidate("cattle")

	var got []domain.Cattle
	require.False(t, c.GetStale("cattle", &got))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir, Options{})
	require.NoError(t, err)
	c.Set("cattle", []domain.Cattle{{ID: "1", Breed: "Jersey"}})
	require.NoError(t, c.Close())

	c2 := openTestCache(t, dir)
	var got []domain.Cattle
	require.True(t, c2.Get("cattle", &got))
	require.Equal(t, "Jersey", got[0].Breed)
}

func TestMemoryOnlyMode(t *testing.T) {
	c := openTestCache(t, "")

	c.Set("stats", domain.HerdStats{TotalHead: 12})
	var got domain.HerdStats
	require.True(t, c.Get("stats", &got))
	require.Equal(t, 12, got.TotalHead)
}
