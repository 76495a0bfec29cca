// Package state holds the in-memory view of all entity collections.
// A single-writer reducer serializes every mutation: callers dispatch
// actions, never touch the snapshot directly, which removes the need
// for any further locking across concurrent call sites.
package state

import (
	"sync"

	"github.com/corralhq/corral/internal/domain"
)

// Snapshot is an immutable view of the store. Dispatch returns a fresh
// snapshot; held copies never change underneath the holder.
type Snapshot struct {
	Cattle        []domain.Cattle
	Notifications []domain.Notification
	Stats         *domain.HerdStats
	SelectedID    string
	Loading       map[string]bool
	Errors        map[string]string
}

// Selected resolves the current selection against the collection, so a
// selection always reflects the latest record value and vanishes with
// a deleted record.
func (s Snapshot) Selected() (domain.Cattle, bool) {
	if s.SelectedID == "" {
		return domain.Cattle{}, false
	}
	for i := range s.Cattle {
		if s.Cattle[i].ID == s.SelectedID {
			return s.Cattle[i], true
		}
	}
	return domain.Cattle{}, false
}

// CattleByID looks up a record in the snapshot.
func (s Snapshot) CattleByID(id string) (domain.Cattle, bool) {
	for i := range s.Cattle {
		if s.Cattle[i].ID == id {
			return s.Cattle[i], true
		}
	}
	return domain.Cattle{}, false
}

// IsLoading reports the loading flag for an operation key.
func (s Snapshot) IsLoading(key string) bool { return s.Loading[key] }

// Error returns the error message recorded for an operation key.
func (s Snapshot) Error(key string) string { return s.Errors[key] }

// Store coordinates dispatches and snapshot reads.
type Store struct {
	mu      sync.Mutex
	current Snapshot
	subs    []func(Snapshot)
}

// NewStore creates a store with empty collections.
func NewStore() *Store {
	return &Store{
		current: Snapshot{
			Loading: make(map[string]bool),
			Errors:  make(map[string]string),
		},
	}
}

// Dispatch applies one action and returns the resulting snapshot.
// Actions are applied strictly in dispatch order.
func (st *Store) Dispatch(a Action) Snapshot {
	st.mu.Lock()
	next := cloneSnapshot(st.current)
	a.apply(&next)
	st.current = next
	subs := append([]func(Snapshot){}, st.subs...)
	st.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Snapshot returns the current state.
func (st *Store) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneSnapshot(st.current)
}

// Subscribe registers a listener invoked after every dispatch with the
// resulting snapshot. The render layer hangs off this hook.
func (st *Store) Subscribe(fn func(Snapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, fn)
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		Cattle:        append([]domain.Cattle(nil), s.Cattle...),
		Notifications: append([]domain.Notification(nil), s.Notifications...),
		SelectedID:    s.SelectedID,
		Loading:       make(map[string]bool, len(s.Loading)),
		Errors:        make(map[string]string, len(s.Errors)),
	}
	if s.Stats != nil {
		stats := *s.Stats
		out.Stats = &stats
	}
	for k, v := range s.Loading {
		out.Loading[k] = v
	}
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}
