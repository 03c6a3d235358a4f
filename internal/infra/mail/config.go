package mail

import (
	"time"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
)

type Provider string

const (
	ProviderSMTP Provider = "smtp"
	ProviderSES  Provider = "ses"
)

type MailConfig struct {
	Provider    Provider
	SMTPHost    string
	SMTPPort    int
	Username    string
	APIKey      string
	From        string
	FromName    string
	SESRegion   string
	SendTimeout time.Duration
}

func NewMailConfig() *MailConfig {
	apiKey := env.GetEnv("MAIL_API_KEY", "")
	if apiKey == "" {
		apiKey = env.GetEnv("MAIL_PASSWORD", "")
	}
	return &MailConfig{
		Provider:    Provider(env.GetEnv("MAIL_PROVIDER", string(ProviderSMTP))),
		SMTPHost:    env.GetEnv("MAIL_HOST", ""),
		SMTPPort:    env.GetEnvInt("MAIL_PORT", 587),
		Username:    env.GetEnv("MAIL_USERNAME", ""),
		APIKey:      apiKey,
		From:        env.GetEnv("MAIL_FROM", ""),
		FromName:    env.GetEnv("MAIL_FROM_NAME", "Certify"),
		SESRegion:   env.GetEnv("MAIL_SES_REGION", ""),
		SendTimeout: env.GetEnvDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
	}
}

// Branding is interpolated into every email.
type Branding struct {
	AppName      string
	AppURL       string
	SupportEmail string
}

func NewBranding() Branding {
	return Branding{
		AppName:      env.GetEnv("APP_NAME", "Certify"),
		AppURL:       env.GetEnv("APP_URL", "https://app.certify.example"),
		SupportEmail: env.GetEnv("SUPPORT_EMAIL", ""),
	}
}
