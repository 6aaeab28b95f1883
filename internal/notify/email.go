package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 15 * time.Second

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Server     string
	Port       int
	Username   string
	Password   string
	Sender     string
	Recipients []string
}

// EmailNotifier implements Notifier over SMTP with mandatory STARTTLS.
// Every Send dials its own connection, so concurrent sends share no
// transport state.
type EmailNotifier struct {
	cfg     EmailConfig
	timeout time.Duration
	dial    func(ctx context.Context, msg *mail.Msg) error
}

// EmailOption configures an EmailNotifier.
type EmailOption func(*EmailNotifier)

// WithSMTPTimeout sets the connection timeout.
func WithSMTPTimeout(d time.Duration) EmailOption {
	return func(e *EmailNotifier) {
		e.timeout = d
	}
}

// WithDialer replaces SMTP delivery, mainly for tests.
func WithDialer(f func(ctx context.Context, msg *mail.Msg) error) EmailOption {
	return func(e *EmailNotifier) {
		e.dial = f
	}
}

// NewEmailNotifier validates cfg and creates an EmailNotifier. The username
// defaults to the sender address.
func NewEmailNotifier(cfg EmailConfig, opts ...EmailOption) (*EmailNotifier, error) {
	var errs []error
	if cfg.Server == "" {
		errs = append(errs, errors.New("server is required"))
	}
	if cfg.Sender == "" {
		errs = append(errs, errors.New("sender is required"))
	}
	if len(cfg.Recipients) == 0 {
		errs = append(errs, errors.New("at least one recipient is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("email notifier: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = mail.DefaultPortTLS
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Sender
	}

	e := &EmailNotifier{cfg: cfg, timeout: defaultSMTPTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.dial == nil {
		e.dial = e.dialAndSend
	}
	return e, nil
}

// Send delivers a plain-text UTF-8 message to every recipient.
func (e *EmailNotifier) Send(ctx context.Context, subject, body string) error {
	msg, err := e.message(subject, body)
	if err != nil {
		return notifyErr("email", err)
	}
	if err := e.dial(ctx, msg); err != nil {
		return notifyErr("email", err)
	}
	return nil
}

func (e *EmailNotifier) message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.Sender); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(e.cfg.Recipients...); err != nil {
		return nil, fmt.Errorf("setting recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (e *EmailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(e.cfg.Server,
		mail.WithPort(e.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.cfg.Username),
		mail.WithPassword(e.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(e.timeout),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending via %s:%d: %w", e.cfg.Server, e.cfg.Port, err)
	}
	return nil
}
