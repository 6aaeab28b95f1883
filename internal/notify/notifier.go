// Package notify defines the notification capability and its transports.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotify is wrapped by every error a Notifier returns.
var ErrNotify = errors.New("notification failed")

// Notifier delivers a plain-text message. Implementations must be safe for
// concurrent use by several pollers.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

func notifyErr(transport string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNotify, transport, err)
}
