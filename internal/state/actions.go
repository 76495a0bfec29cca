package state

import "github.com/corralhq/corral/internal/domain"

// Action is one externally visible state transition. Every mutation of
// the store is its own action so intermediate states are inspectable
// and replayable.
type Action interface {
	apply(s *Snapshot)
}

// SetCattle replaces the cattle collection wholesale (list result).
type SetCattle struct {
	Records []domain.Cattle
}

func (a SetCattle) apply(s *Snapshot) {
	s.Cattle = append([]domain.Cattle(nil), a.Records...)
	if s.SelectedID != "" && !hasCattle(s.Cattle, s.SelectedID) {
		s.SelectedID = ""
	}
}

// AddCattle appends one record.
type AddCattle struct {
	Record domain.Cattle
}

func (a AddCattle) apply(s *Snapshot) {
	s.Cattle = append(s.Cattle, a.Record)
}

// UpdateCattle replaces the record matching Record.ID. Missing ids are
// a no-op on the collection.
type UpdateCattle struct {
	Record domain.Cattle
}

func (a UpdateCattle) apply(s *Snapshot) {
	for i := range s.Cattle {
		if s.Cattle[i].ID == a.Record.ID {
			s.Cattle[i] = a.Record
			return
		}
	}
}

// RemoveCattle deletes the record with ID. Missing ids are a no-op.
// A selection pointing at the removed record becomes absent.
type RemoveCattle struct {
	ID string
}

func (a RemoveCattle) apply(s *Snapshot) {
	for i := range s.Cattle {
		if s.Cattle[i].ID == a.ID {
			s.Cattle = append(s.Cattle[:i:i], s.Cattle[i+1:]...)
			break
		}
	}
	if s.SelectedID == a.ID {
		s.SelectedID = ""
	}
}

// ReplaceCattleID swaps an optimistic record (temp id) for the
// authoritative server record, preserving position and selection.
type ReplaceCattleID struct {
	TempID string
	Record domain.Cattle
}

func (a ReplaceCattleID) apply(s *Snapshot) {
	for i := range s.Cattle {
		if s.Cattle[i].ID == a.TempID {
			s.Cattle[i] = a.Record
			break
		}
	}
	if s.SelectedID == a.TempID {
		s.SelectedID = a.Record.ID
	}
}

// SelectCattle sets the selection; an empty id clears it.
type SelectCattle struct {
	ID string
}

func (a SelectCattle) apply(s *Snapshot) {
	if a.ID == "" || hasCattle(s.Cattle, a.ID) {
		s.SelectedID = a.ID
	}
}

// SetNotifications replaces the notification collection.
type SetNotifications struct {
	Records []domain.Notification
}

func (a SetNotifications) apply(s *Snapshot) {
	s.Notifications = append([]domain.Notification(nil), a.Records...)
}

// MarkNotificationRead flips the read flag. Missing ids are a no-op.
type MarkNotificationRead struct {
	ID string
}

func (a MarkNotificationRead) apply(s *Snapshot) {
	for i := range s.Notifications {
		if s.Notifications[i].ID == a.ID {
			s.Notifications[i].Read = true
			return
		}
	}
}

// RemoveNotification deletes a notification. Missing ids are a no-op.
type RemoveNotification struct {
	ID string
}

func (a RemoveNotification) apply(s *Snapshot) {
	for i := range s.Notifications {
		if s.Notifications[i].ID == a.ID {
			s.Notifications = append(s.Notifications[:i:i], s.Notifications[i+1:]...)
			return
		}
	}
}

// SetStats replaces the aggregate dashboard payload.
type SetStats struct {
	Stats domain.HerdStats
}

func (a SetStats) apply(s *Snapshot) {
	stats := a.Stats
	s.Stats = &stats
}

// SetLoading toggles the per-operation loading flag. Keys are
// namespaced per operation ("cattle", "addCattle", "sync", ...) so a
// slow write never visually blocks an unrelated read.
type SetLoading struct {
	Key     string
	Loading bool
}

func (a SetLoading) apply(s *Snapshot) {
	if a.Loading {
		s.Loading[a.Key] = true
		return
	}
	delete(s.Loading, a.Key)
}

// SetError records an error message under an operation key.
type SetError struct {
	Key     string
	Message string
}

func (a SetError) apply(s *Snapshot) {
	s.Errors[a.Key] = a.Message
}

// ClearError removes the error under an operation key.
type ClearError struct {
	Key string
}

func (a ClearError) apply(s *Snapshot) {
	delete(s.Errors, a.Key)
}

func hasCattle(records []domain.Cattle, id string) bool {
	for i := range records {
		if records[i].ID == id {
			return true
		}
	}
	return false
}
