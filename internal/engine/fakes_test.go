package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockNotifier is a testify mock of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

// MockReserver is a testify mock of vendor.Reserver.
type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) TryReserve(ctx context.Context, target *domain.TargetCriteria, f *domain.Finding) error {
	args := m.Called(ctx, target, f)
	return args.Error(0)
}

// MockHistory is a testify mock of HistoryRecorder.
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) RecordNotification(ctx context.Context, rec *domain.NotificationRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// sentMessage is one message captured by captureNotifier.
type sentMessage struct {
	Subject string
	Body    string
}

// captureNotifier records messages and is safe for concurrent use.
type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (c *captureNotifier) Send(_ context.Context, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{Subject: subject, Body: body})
	return nil
}

func (c *captureNotifier) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *captureNotifier) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}
