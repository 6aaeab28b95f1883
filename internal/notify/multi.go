package notify

import (
	"context"
	"errors"
	"fmt"
)

// MultiNotifier fans a message out to several notifiers. Every notifier is
// attempted; the failures are joined.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a MultiNotifier. Nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of wrapped notifiers.
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// PartialError is returned by MultiNotifier when some notifiers delivered
// the message and others failed.
type PartialError struct {
	Delivered int
	Failed    int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("delivered to %d of %d notifiers: %v", e.Delivered, e.Delivered+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Send delivers the message through every notifier. When every notifier
// fails the joined errors are returned; when only some fail the result is a
// *PartialError.
func (m *MultiNotifier) Send(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	if delivered := len(m.notifiers) - len(errs); delivered > 0 {
		return &PartialError{Delivered: delivered, Failed: len(errs), Err: joined}
	}
	return joined
}
