package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ErrNotConfigured is returned when no credentials for the email provider are present.
var ErrNotConfigured = errors.New("email provider is not configured")

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Sender interface {
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

func NewSender(cfg *MailConfig, awsCfg aws.Config) (Sender, error) {
	switch cfg.Provider {
	case ProviderSES:
		if cfg.From == "" {
			return nil, fmt.Errorf("%w: MAIL_FROM is required", ErrNotConfigured)
		}
		return NewSESSender(cfg, awsCfg), nil
	case ProviderSMTP, "":
		if cfg.APIKey == "" || cfg.SMTPHost == "" || cfg.From == "" {
			return nil, fmt.Errorf("%w: MAIL_API_KEY, MAIL_HOST and MAIL_FROM are required", ErrNotConfigured)
		}
		return NewSMTPSender(cfg), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
}

// SendWithTimeout races the send against timeout. The sender may keep running after a timeout,
// the caller only sees the timeout error.
func SendWithTimeout(ctx context.Context, sender Sender, msg Message, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := sender.Send(ctx, msg)
		done <- result{id: id, err: err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("email send timed out after %s: %w", timeout, ctx.Err())
	}
}
