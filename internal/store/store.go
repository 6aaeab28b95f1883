// Package store persists the notification history. Callers depend on the
// Store interface; PostgresStore is the only implementation.
package store

import (
	"context"
	"time"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// NotificationQuery defines optional filters for history queries.
type NotificationQuery struct {
	Target *string
	Vendor *string
	Kind   *string
	Since  *time.Time
	Limit  int // default 50
	Offset int
}

// Store defines the history operations.
type Store interface {
	RecordNotification(ctx context.Context, r *domain.NotificationRecord) error
	ListNotifications(ctx context.Context, q *NotificationQuery) ([]domain.NotificationRecord, int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
