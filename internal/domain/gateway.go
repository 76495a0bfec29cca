package domain

import "context"

// Gateway is the remote herd server contract. All calls are
// network-bound and honor context cancellation. Implementations map
// transport failures to ErrServerUnreachable so callers can distinguish
// connectivity loss from server-side rejections.
type Gateway interface {
	// === Cattle ===
	ListCattle(ctx context.Context) ([]Cattle, error)
	CreateCattle(ctx context.Context, payload Cattle) (Cattle, error)
	UpdateCattle(ctx context.Context, id string, patch Cattle) (Cattle, error)
	DeleteCattle(ctx context.Context, id string) error

	// === Notifications ===
	ListNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (Notification, error)
	DeleteNotification(ctx context.Context, id string) error

	// === Aggregates ===
	GetHerdStats(ctx context.Context) (HerdStats, error)

	// Ping performs a cheap reachability check.
	Ping(ctx context.Context) error
}
