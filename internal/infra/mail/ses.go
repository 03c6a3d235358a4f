package mail

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type SESSender struct {
	cfg    *MailConfig
	client *sesv2.Client
}

func NewSESSender(cfg *MailConfig, awsCfg aws.Config) *SESSender {
	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.SESRegion != "" {
			o.Region = cfg.SESRegion
		}
	})
	return &SESSender{cfg: cfg, client: client}
}

func (s *SESSender) Send(ctx context.Context, msg Message) (string, error) {
	from := (&mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}).String()
	to := (&mail.Address{Name: msg.ToName, Address: msg.To}).String()

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send mail via ses: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
