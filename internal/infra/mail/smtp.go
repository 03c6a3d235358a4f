package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	gomail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
)

type SMTPSender struct {
	cfg    *MailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg *MailConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.APIKey)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	d.Timeout = cfg.SendTimeout
	return &SMTPSender{cfg: cfg, dialer: d}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(s.cfg.From))

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send mail: %w", err)
	}
	return messageID, nil
}

func senderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return "localhost"
}
