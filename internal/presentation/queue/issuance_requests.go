package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/commands"
	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/pkg/env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

type Issuer interface {
	Execute(ctx context.Context, requestID uuid.UUID, issuerID string) (*dto.IssuedCertificate, error)
}

type IssuanceRequestsConfig struct {
	Enabled   bool
	SqsURL    string
	SqsRegion string
}

func NewIssuanceRequestsConfig() IssuanceRequestsConfig {
	return IssuanceRequestsConfig{
		Enabled:   os.Getenv("ISSUANCE_SQS_ENABLED") == "true",
		SqsURL:    os.Getenv("ISSUANCE_SQS_URL"),
		SqsRegion: env.GetEnv("ISSUANCE_SQS_REGION", "us-east-1"),
	}
}

const IssuanceRequestedType = "IssuanceRequested"

// IssuanceRequested is the message body, the same pair the generate-certificate endpoint takes.
type IssuanceRequested struct {
	Type      string `json:"type,omitempty"`
	RequestID string `json:"requestId" validate:"required,uuid"`
	IssuerID  string `json:"issuerId" validate:"required,max=128"`
}

// IssuanceRequestsPoller issues certificates for requests published to SQS. Messages that failed
// for a transient reason, or whose request is being issued elsewhere, stay on the queue and come
// back after the visibility timeout.
type IssuanceRequestsPoller struct {
	client  SQSAPI
	cfg     IssuanceRequestsConfig
	handler Issuer
	stop    chan struct{}
}

func NewIssuanceRequestsPoller(client SQSAPI, cfg IssuanceRequestsConfig, handler Issuer) *IssuanceRequestsPoller {
	return &IssuanceRequestsPoller{client: client, cfg: cfg, stop: make(chan struct{}), handler: handler}
}

func (p *IssuanceRequestsPoller) Start() {
	slog.Info("Starting poll of IssuanceRequestsPoller...")
	ctx := context.Background()

	for {
		select {
		case <-p.stop:
			slog.Info("Stopping IssuanceRequestsPoller loop")
			return
		default:
			if err := p.poll(ctx); err != nil {
				slog.Info("err receiving from queue", "err", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (p *IssuanceRequestsPoller) poll(ctx context.Context) error {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.cfg.SqsURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   120,
	})
	if err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return nil
	}

	processed := make([]types.DeleteMessageBatchRequestEntry, 0, len(out.Messages))
	for _, m := range out.Messages {
		err = p.handle(ctx, m)
		var retryable errs.RetryableError
		if errors.As(err, &retryable) {
			slog.Warn("leaving message for redelivery", "id", aws.ToString(m.MessageId), "err", err)
			continue
		}
		if err != nil {
			slog.Error("err issuing certificate from queue", "id", aws.ToString(m.MessageId), "err", err)
		}
		processed = append(processed, types.DeleteMessageBatchRequestEntry{
			Id:            m.MessageId,
			ReceiptHandle: m.ReceiptHandle,
		})
	}

	if len(processed) == 0 {
		return nil
	}
	_, err = p.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(p.cfg.SqsURL),
		Entries:  processed,
	})
	if err != nil {
		slog.Error("err deleting message", "err", err)
	}
	return nil
}

func (p *IssuanceRequestsPoller) handle(ctx context.Context, m types.Message) error {
	slog.Debug("msg received from queue", "msg", aws.ToString(m.Body))

	var event IssuanceRequested
	if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &event); err != nil {
		return fmt.Errorf("err unmarshalling msg, %w", err)
	}
	if event.Type != "" && event.Type != IssuanceRequestedType {
		return fmt.Errorf("unexpected event type %s", event.Type)
	}
	if err := dto.Validate(dto.GenerateCertificateRequest{RequestID: event.RequestID, IssuerID: event.IssuerID}); err != nil {
		return err
	}

	issued, err := p.handler.Execute(ctx, uuid.MustParse(event.RequestID), event.IssuerID)
	if err != nil {
		if redeliver(err) {
			return errs.RetryableError{Err: err}
		}
		return err
	}
	slog.Info("issued certificate from queue", "requestID", event.RequestID, "certificateID", issued.ID)
	return nil
}

// redeliver tells whether another delivery of the message can succeed. Failed steps leave the
// request as ISSUANCE_FAILED, which the next delivery claims again.
func redeliver(err error) bool {
	var (
		notFound   errs.NotFoundError
		validation errs.ValidationError
		conflict   errs.ConflictError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &validation), errors.Is(err, errs.ErrNoTemplate):
		return false
	case errors.As(err, &conflict):
		return errors.Is(err, commands.ErrRequestInProgress)
	}
	return true
}

func (p *IssuanceRequestsPoller) Stop() {
	p.stop <- struct{}{}
}
