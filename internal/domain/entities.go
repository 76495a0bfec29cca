package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection names used as cache keys, queue targets, and loading/error keys.
const (
	CollectionCattle        = "cattle"
	CollectionNotifications = "notifications"
	CollectionStats         = "stats"
)

// TempIDPrefix marks locally generated ids for records created while
// offline. They are replaced by server-assigned ids during sync.
const TempIDPrefix = "tmp-"

// CattleStatus describes the lifecycle state of an animal record.
type CattleStatus string

const (
	StatusActive CattleStatus = "active"
	StatusSold   CattleStatus = "sold"
	StatusDead   CattleStatus = "deceased"
)

// Cattle is a single animal record.
type Cattle struct {
	ID        string       `json:"id"`
	TagNumber string       `json:"tagNumber"`
	Breed     string       `json:"breed"`
	Age       int          `json:"age"`
	WeightKg  float64      `json:"weightKg,omitempty"`
	Status    CattleStatus `json:"status,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	AddedAt   int64        `json:"addedAt,omitempty"`
	UpdatedAt int64        `json:"updatedAt,omitempty"`
}

// DisplayName returns the label used in lists: tag number, falling back
// to breed when the animal has not been tagged yet.
func (c Cattle) DisplayName() string {
	if c.TagNumber != "" {
		return c.TagNumber
	}
	return c.Breed
}

// Notification is a server-generated alert (vaccination due, weight
// anomaly, etc.).
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt"`
}

// HerdStats is the aggregate dashboard payload computed server-side.
type HerdStats struct {
	TotalHead           int            `json:"totalHead"`
	ByBreed             map[string]int `json:"byBreed,omitempty"`
	AvgAge              float64        `json:"avgAge"`
	AvgWeightKg         float64        `json:"avgWeightKg"`
	UnreadNotifications int            `json:"unreadNotifications"`
}

// NewTempID generates a placeholder id for a record created offline.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated locally and still awaits a
// server-assigned replacement.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Now returns epoch millis; collection timestamps use this resolution
// on the wire.
func Now() int64 {
	return time.Now().UnixMilli()
}
