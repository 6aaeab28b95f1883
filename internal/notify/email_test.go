package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func testEmailConfig() EmailConfig {
	return EmailConfig{
		Server:     "smtp.example.com",
		Sender:     "monitor@example.com",
		Password:   "secret",
		Recipients: []string{"a@example.com", "b@example.com"},
	}
}

func TestNewEmailNotifier_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     EmailConfig
		wantErr []string
	}{
		{
			name: "valid config",
			cfg:  testEmailConfig(),
		},
		{
			name:    "missing everything",
			cfg:     EmailConfig{},
			wantErr: []string{"server is required", "sender is required", "recipient"},
		},
		{
			name: "missing recipients",
			cfg: EmailConfig{
				Server: "smtp.example.com",
				Sender: "monitor@example.com",
			},
			wantErr: []string{"recipient"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, err := NewEmailNotifier(tt.cfg)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				for _, msg := range tt.wantErr {
					assert.Contains(t, err.Error(), msg)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, mail.DefaultPortTLS, n.cfg.Port)
			assert.Equal(t, "monitor@example.com", n.cfg.Username)
		})
	}
}

func TestEmailNotifier_Send(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		sent []*mail.Msg
	)
	n, err := NewEmailNotifier(testEmailConfig(), WithDialer(func(_ context.Context, msg *mail.Msg) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, msg)
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), "Tickets available: Spring Tour", "VIP 1280"))
	require.Len(t, sent, 1)

	rcpts, err := sent[0].GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Tickets available: Spring Tour")
	assert.Contains(t, raw, "monitor@example.com")
	assert.Contains(t, raw, "text/plain")
}

func TestEmailNotifier_Send_Failure(t *testing.T) {
	t.Parallel()

	n, err := NewEmailNotifier(testEmailConfig(), WithDialer(func(context.Context, *mail.Msg) error {
		return errors.New("535 authentication failed")
	}))
	require.NoError(t, err)

	err = n.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotify)
	assert.Contains(t, err.Error(), "535 authentication failed")
}

func TestEmailNotifier_Send_InvalidSender(t *testing.T) {
	t.Parallel()

	cfg := testEmailConfig()
	cfg.Sender = "not an address"
	n, err := NewEmailNotifier(cfg, WithDialer(func(context.Context, *mail.Msg) error {
		t.Fatal("dial must not be reached")
		return nil
	}))
	require.NoError(t, err)

	err = n.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotify)
}

func TestEmailNotifier_Send_Unreachable(t *testing.T) {
	t.Parallel()

	cfg := testEmailConfig()
	cfg.Server = "127.0.0.1"
	cfg.Port = 1
	n, err := NewEmailNotifier(cfg)
	require.NoError(t, err)

	err = n.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotify)
}
