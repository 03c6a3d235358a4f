package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/config"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/mail"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

type ProcessDigests struct {
	cfg        *config.DispatchConfig
	uowFactory *dbs.UOWFactory
	sender     mail.Sender
	brand      mail.Branding
	now        func() time.Time
}

func NewProcessDigests(cfg *config.DispatchConfig, factory *dbs.UOWFactory, sender mail.Sender, brand mail.Branding) *ProcessDigests {
	return &ProcessDigests{cfg: cfg, uowFactory: factory, sender: sender, brand: brand, now: time.Now}
}

func (c *ProcessDigests) Execute(ctx context.Context, req dto.ProcessDigestsRequest) (*dto.ProcessDigestsResponse, error) {
	if c.sender == nil {
		return nil, mail.ErrNotConfigured
	}

	digestType := req.Type()
	if digestType.Interval() == 0 {
		return nil, errs.ValidationError{Err: fmt.Errorf("unknown digest type %q", digestType)}
	}

	now := c.now()
	filter := repo.DigestFilter{Type: digestType}
	if !req.ForceProcess {
		filter.DueBefore = &now
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, errs.ValidationError{Err: fmt.Errorf("invalid userId: %w", err)}
		}
		filter.UserID = &userID
	}

	digests, err := repo.NewDigestRepo(c.uowFactory.Pool).ListDigests(ctx, filter)
	if err != nil {
		return nil, err
	}
	slog.Info("processing digests", "type", digestType, "count", len(digests), "force", req.ForceProcess)

	resp := &dto.ProcessDigestsResponse{Success: true}
	for _, digest := range digests {
		resp.Processed++
		if err = c.handleDigest(ctx, digest, now); err != nil {
			slog.Error("failed to process digest", "digestID", digest.ID, "userID", digest.UserID, "err", err)
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("user %s: %v", digest.UserID, err))
			continue
		}
		resp.Successful++
	}

	slog.Info("processed digests", "type", digestType, "successful", resp.Successful, "failed", resp.Failed)
	return resp, nil
}

var errNoRecipientEmail = errors.New(ReasonNoRecipientEmail)

// handleDigest leaves the schedule untouched on error so the digest is picked up again by the next run.
func (c *ProcessDigests) handleDigest(ctx context.Context, digest db.NotificationDigest, now time.Time) error {
	next := now.AddDate(0, 0, digest.DigestType.Interval())
	digests := repo.NewDigestRepo(c.uowFactory.Pool)

	unread, err := repo.NewNotificationRepo(c.uowFactory.Pool).ListUnread(ctx, digest.UserID)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		slog.Debug("empty inbox, advancing digest", "digestID", digest.ID, "next", next)
		return digests.Reschedule(ctx, digest.ID, next, nil)
	}

	recipient, err := repo.NewUserRepo(c.uowFactory.Pool).GetRecipient(ctx, digest.UserID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if recipient == nil || recipient.Email == "" {
		return errNoRecipientEmail
	}

	items := make([]mail.DigestItem, 0, len(unread))
	for _, n := range unread {
		item := mail.DigestItem{
			Category:  n.Category,
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		}
		if n.ActionURL != nil {
			item.ActionURL = *n.ActionURL
		}
		items = append(items, item)
	}

	subject, html, err := mail.RenderDigest(c.brand, mail.DigestEmail{
		RecipientName: recipient.DisplayName,
		DigestType:    string(digest.DigestType),
		Sections:      mail.BuildDigestSections(items),
	})
	if err != nil {
		return err
	}

	messageID, err := mail.SendWithTimeout(ctx, c.sender, mail.Message{
		To:      recipient.Email,
		ToName:  recipient.DisplayName,
		Subject: subject,
		HTML:    html,
	}, c.cfg.SendTimeout)
	if err != nil {
		return err
	}

	slog.Info("sent digest", "digestID", digest.ID, "messageID", messageID, "notifications", len(unread))
	return digests.Reschedule(context.WithoutCancel(ctx), digest.ID, next, &now)
}
