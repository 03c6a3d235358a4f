package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/config"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/mail"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

const (
	ReasonDisabledByPreference = "Email notifications disabled by user preference"
	ReasonNoRecipientEmail     = "no recipient email"
)

type ProcessNotifications struct {
	cfg        *config.DispatchConfig
	uowFactory *dbs.UOWFactory
	sender     mail.Sender
	brand      mail.Branding
	now        func() time.Time
}

func NewProcessNotifications(cfg *config.DispatchConfig, factory *dbs.UOWFactory, sender mail.Sender, brand mail.Branding) *ProcessNotifications {
	return &ProcessNotifications{cfg: cfg, uowFactory: factory, sender: sender, brand: brand, now: time.Now}
}

func (c *ProcessNotifications) Execute(ctx context.Context, req dto.ProcessNotificationsRequest) (*dto.ProcessNotificationsResponse, error) {
	if c.sender == nil {
		return nil, mail.ErrNotConfigured
	}

	results := make([]dto.ProcessResult, 0)
	if req.ShouldProcessQueue() {
		processed, err := c.processQueue(ctx)
		if err != nil {
			return nil, err
		}
		results = append(results, processed...)
	}

	if req.Notification != nil {
		results = append(results, c.enqueue(ctx, *req.Notification))
	}

	return &dto.ProcessNotificationsResponse{
		Success:   true,
		Processed: len(results),
		Results:   results,
	}, nil
}

func (c *ProcessNotifications) processQueue(ctx context.Context) ([]dto.ProcessResult, error) {
	token := uuid.New()
	items, err := repo.NewNotificationRepo(c.uowFactory.Pool).ClaimQueueItems(ctx, token, c.cfg.QueueLimit, c.now(), c.cfg.QueueLease)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		slog.Debug("no queued notifications")
		return nil, nil
	}
	slog.Info("claimed queued notifications", "count", len(items), "token", token)

	results := make([]dto.ProcessResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item db.QueueItem) {
			defer wg.Done()
			results[i] = c.handleItem(ctx, token, item)
		}(i, item)
	}
	wg.Wait()

	return results, nil
}

type outcome struct {
	status    consts.QueueStatus
	reason    string
	messageID string
}

func (c *ProcessNotifications) handleItem(ctx context.Context, token uuid.UUID, item db.QueueItem) dto.ProcessResult {
	out := c.deliver(ctx, item)

	var reason, messageID *string
	if out.reason != "" {
		reason = &out.reason
	}
	if out.messageID != "" {
		messageID = &out.messageID
	}

	result := dto.ProcessResult{
		ID:             item.ID.String(),
		NotificationID: item.NotificationID.String(),
		Success:        out.status != consts.QueueStatusFailed,
		Skipped:        out.status == consts.QueueStatusSkipped,
		MessageID:      out.messageID,
		Error:          out.reason,
	}

	completed, err := repo.NewNotificationRepo(c.uowFactory.Pool).CompleteQueueItem(
		context.WithoutCancel(ctx), item.ID, token, out.status, reason, messageID, c.now())
	if err != nil {
		slog.Error("failed to record queue outcome", "id", item.ID, "status", out.status, "err", err)
		result.Success = false
		result.Error = err.Error()
		return result
	}
	if !completed {
		slog.Warn("queue item claim lost before completion", "id", item.ID, "status", out.status)
	}

	slog.Info("processed queued notification", "id", item.ID, "status", out.status)
	return result
}

func (c *ProcessNotifications) deliver(ctx context.Context, item db.QueueItem) outcome {
	notifications := repo.NewNotificationRepo(c.uowFactory.Pool)

	notification, err := notifications.GetNotification(ctx, item.NotificationID)
	if err != nil {
		slog.Error("failed to load notification", "id", item.ID, "notificationID", item.NotificationID, "err", err)
		return outcome{status: consts.QueueStatusFailed, reason: err.Error()}
	}

	recipient, err := repo.NewUserRepo(c.uowFactory.Pool).GetRecipient(ctx, notification.UserID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return outcome{status: consts.QueueStatusFailed, reason: err.Error()}
	}
	if recipient == nil || recipient.Email == "" {
		return outcome{status: consts.QueueStatusFailed, reason: ReasonNoRecipientEmail}
	}

	category := item.Category
	if category == "" {
		category = notification.Category
	}
	enabled, err := notifications.EmailEnabled(ctx, notification.UserID, category)
	if err != nil {
		return outcome{status: consts.QueueStatusFailed, reason: err.Error()}
	}
	if !enabled {
		return outcome{status: consts.QueueStatusSkipped, reason: ReasonDisabledByPreference}
	}

	email := mail.NotificationEmail{
		RecipientName: recipient.DisplayName,
		Title:         notification.Title,
		Message:       notification.Message,
	}
	if notification.ActionURL != nil {
		email.ActionURL = *notification.ActionURL
	}
	subject, html, err := mail.RenderNotification(c.brand, email)
	if err != nil {
		return outcome{status: consts.QueueStatusFailed, reason: err.Error()}
	}

	messageID, err := mail.SendWithTimeout(ctx, c.sender, mail.Message{
		To:      recipient.Email,
		ToName:  recipient.DisplayName,
		Subject: subject,
		HTML:    html,
	}, c.cfg.SendTimeout)
	if err != nil {
		slog.Error("failed to send notification email", "id", item.ID, "err", err)
		return outcome{status: consts.QueueStatusFailed, reason: err.Error()}
	}
	return outcome{status: consts.QueueStatusSent, messageID: messageID}
}

// enqueue stores an inline notification. Delivery happens on a later queue run.
func (c *ProcessNotifications) enqueue(ctx context.Context, payload dto.NotificationPayload) (result dto.ProcessResult) {
	payload.Normalize()
	notification := db.Notification{
		ID:        uuid.New(),
		Title:     payload.Title,
		Message:   payload.Message,
		Type:      consts.NotificationType(payload.Type),
		Priority:  consts.NotificationPriority(payload.Priority),
		Category:  payload.Category,
		CreatedAt: c.now(),
	}
	result.NotificationID = notification.ID.String()

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		result.Error = fmt.Sprintf("invalid userId: %v", err)
		return result
	}
	notification.UserID = userID
	if payload.ActionURL != "" {
		notification.ActionURL = &payload.ActionURL
	}

	queueID, err := c.store(ctx, notification, payload.SendEmail)
	if err != nil {
		slog.Error("failed to store notification", "userID", userID, "err", err)
		result.Error = err.Error()
		return result
	}
	if queueID != nil {
		result.ID = queueID.String()
		result.Queued = true
	}

	result.Success = true
	slog.Info("stored notification", "notificationID", notification.ID, "queued", result.Queued)
	return result
}

// store inserts the notification and, when asked, its PENDING queue row in one transaction.
func (c *ProcessNotifications) store(ctx context.Context, notification db.Notification, sendEmail bool) (queueID *uuid.UUID, err error) {
	uow := c.uowFactory.GetUoW()
	if _, err = uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Finalize(ctx, &err)

	notifications := repo.NewNotificationRepo(uow.GetTx())
	if err = notifications.InsertNotification(ctx, notification); err != nil {
		return nil, err
	}
	if !sendEmail {
		return nil, nil
	}

	item := db.QueueItem{
		ID:             uuid.New(),
		NotificationID: notification.ID,
		Status:         consts.QueueStatusPending,
		Priority:       notification.Priority.Rank(),
		Category:       notification.Category,
		CreatedAt:      notification.CreatedAt,
	}
	if err = notifications.InsertQueueItem(ctx, item); err != nil {
		return nil, err
	}
	return &item.ID, nil
}
