package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ChangeKind identifies the mutation a pending change replays.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// PendingChange is one queued mutation awaiting replay against the
// server. Changes are appended while offline and replayed strictly in
// enqueue order: a later update may target an id minted by an earlier
// queued create.
type PendingChange struct {
	ID         string          `json:"id"`
	Kind       ChangeKind      `json:"kind"`
	Collection string          `json:"collection"`
	TargetID   string          `json:"targetId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	QueuedAt   int64           `json:"queuedAt"`
}

// NewPendingChange builds a change with a client-generated id and the
// payload marshalled in place. Marshal failures are impossible for the
// domain types this engine queues, so the payload is best-effort.
func NewPendingChange(kind ChangeKind, collection, targetID string, payload any) PendingChange {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	return PendingChange{
		ID:         uuid.NewString(),
		Kind:       kind,
		Collection: collection,
		TargetID:   targetID,
		Payload:    raw,
		QueuedAt:   Now(),
	}
}

// ReferencesTempID reports whether this change targets or carries a
// locally generated id.
func (pc PendingChange) ReferencesTempID(tempID string) bool {
	if pc.TargetID == tempID {
		return true
	}
	if len(pc.Payload) == 0 {
		return false
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(pc.Payload, &probe); err != nil {
		return false
	}
	return probe.ID == tempID
}

// RewriteTempID returns a copy of the change with every reference to
// tempID replaced by realID, in both the target and the payload.
func (pc PendingChange) RewriteTempID(tempID, realID string) PendingChange {
	out := pc
	if out.TargetID == tempID {
		out.TargetID = realID
	}
	if len(out.Payload) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(out.Payload, &fields); err == nil {
			var id string
			if raw, ok := fields["id"]; ok && json.Unmarshal(raw, &id) == nil && id == tempID {
				quoted, _ := json.Marshal(realID)
				fields["id"] = quoted
				if rewritten, err := json.Marshal(fields); err == nil {
					out.Payload = rewritten
				}
			}
		}
	}
	return out
}
