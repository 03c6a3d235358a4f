package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

const notificationColumns = "id, user_id, title, message, type, priority, category, action_url, read, is_dismissed, created_at"

const queueColumns = "id, notification_id, status, priority, category, created_at, processed_at, error, message_id, claim_token, claim_expires_at"

type NotificationRepo struct {
	q dbs.Querier
}

func NewNotificationRepo(q dbs.Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

func (r *NotificationRepo) GetNotification(ctx context.Context, id uuid.UUID) (*db.Notification, error) {
	var n db.Notification
	err := r.q.QueryRow(ctx, "SELECT "+notificationColumns+" FROM certify.notifications WHERE id = $1", id).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Category, &n.ActionURL, &n.Read, &n.IsDismissed, &n.CreatedAt)
	if err != nil {
		return nil, wrapNotFound(err, "notification")
	}
	return &n, nil
}

func (r *NotificationRepo) InsertNotification(ctx context.Context, n db.Notification) error {
	_, err := r.q.Exec(ctx, `INSERT INTO certify.notifications(`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority, n.Category, n.ActionURL, n.Read, n.IsDismissed, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("err inserting notification, %w", err)
	}
	return nil
}

// ListUnread returns the user's unread, non-dismissed notifications, newest first.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID uuid.UUID) ([]db.Notification, error) {
	rows, err := r.q.Query(ctx, "SELECT "+notificationColumns+` FROM certify.notifications
		WHERE user_id = $1 AND read = false AND is_dismissed = false
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("err listing unread notifications, %w", err)
	}
	defer rows.Close()

	var result []db.Notification
	for rows.Next() {
		var n db.Notification
		if err = rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Category, &n.ActionURL,
			&n.Read, &n.IsDismissed, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("err scanning notification, %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *NotificationRepo) InsertQueueItem(ctx context.Context, item db.QueueItem) error {
	_, err := r.q.Exec(ctx, `INSERT INTO certify.notification_queue(id, notification_id, status, priority, category, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.NotificationID, item.Status, item.Priority, item.Category, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("err inserting queue item, %w", err)
	}
	return nil
}

// ClaimQueueItems atomically leases up to limit PENDING rows (or PROCESSING rows whose lease ran out)
// to the given token, highest priority first and oldest first within a priority.
func (r *NotificationRepo) ClaimQueueItems(ctx context.Context, token uuid.UUID, limit int, now time.Time, lease time.Duration) ([]db.QueueItem, error) {
	rows, err := r.q.Query(ctx, `UPDATE certify.notification_queue q
		SET status = $2, claim_token = $3, claim_expires_at = $4
		WHERE q.id IN (
			SELECT id FROM certify.notification_queue
			WHERE status = $1 OR (status = $2 AND claim_expires_at < $5)
			ORDER BY priority DESC, created_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+queueColumns,
		consts.QueueStatusPending, consts.QueueStatusProcessing, token, now.Add(lease), now, limit)
	if err != nil {
		return nil, fmt.Errorf("err claiming queue items, %w", err)
	}
	defer rows.Close()

	var items []db.QueueItem
	for rows.Next() {
		var it db.QueueItem
		if err = rows.Scan(&it.ID, &it.NotificationID, &it.Status, &it.Priority, &it.Category, &it.CreatedAt,
			&it.ProcessedAt, &it.Error, &it.MessageID, &it.ClaimToken, &it.ClaimExpiresAt); err != nil {
			return nil, fmt.Errorf("err scanning queue item, %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING does not keep the subquery order
	sortQueueItems(items)
	return items, nil
}

// CompleteQueueItem writes a terminal status. Only the holder of the claim can complete a row,
// so a terminal row is never overwritten.
func (r *NotificationRepo) CompleteQueueItem(ctx context.Context, id, token uuid.UUID, status consts.QueueStatus, reason, messageID *string, at time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %s is not terminal", status)
	}
	tag, err := r.q.Exec(ctx, `UPDATE certify.notification_queue
		SET status = $3, error = $4, message_id = $5, processed_at = $6, claim_expires_at = NULL
		WHERE id = $1 AND claim_token = $2 AND status = $7`,
		id, token, status, reason, messageID, at, consts.QueueStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("err completing queue item, %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepo) GetQueueItem(ctx context.Context, id uuid.UUID) (*db.QueueItem, error) {
	var it db.QueueItem
	err := r.q.QueryRow(ctx, "SELECT "+queueColumns+" FROM certify.notification_queue WHERE id = $1", id).Scan(
		&it.ID, &it.NotificationID, &it.Status, &it.Priority, &it.Category, &it.CreatedAt,
		&it.ProcessedAt, &it.Error, &it.MessageID, &it.ClaimToken, &it.ClaimExpiresAt)
	if err != nil {
		return nil, wrapNotFound(err, "queue item")
	}
	return &it, nil
}

// EmailEnabled reports the user's preference for the category. A missing row means enabled.
func (r *NotificationRepo) EmailEnabled(ctx context.Context, userID uuid.UUID, category string) (bool, error) {
	var enabled bool
	err := r.q.QueryRow(ctx, "SELECT email_enabled FROM certify.notification_preferences WHERE user_id = $1 AND category = $2",
		userID, category).Scan(&enabled)
	if err != nil {
		err = wrapNotFound(err, "notification preference")
		if isNotFound(err) {
			return true, nil
		}
		return true, err
	}
	return enabled, nil
}
