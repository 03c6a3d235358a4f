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

type DigestFilter struct {
	Type consts.DigestType
	// DueBefore is ignored when nil, which is how forced runs pick up every enabled digest.
	DueBefore *time.Time
	UserID    *uuid.UUID
}

type DigestRepo struct {
	q dbs.Querier
}

func NewDigestRepo(q dbs.Querier) *DigestRepo {
	return &DigestRepo{q: q}
}

func (r *DigestRepo) ListDigests(ctx context.Context, filter DigestFilter) ([]db.NotificationDigest, error) {
	query := `SELECT id, user_id, digest_type, is_enabled, next_scheduled_at, last_sent_at
		FROM certify.notification_digests
		WHERE digest_type = $1 AND is_enabled = true`
	args := []any{filter.Type}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		query += fmt.Sprintf(" AND next_scheduled_at <= $%d", len(args))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	query += " ORDER BY next_scheduled_at"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("err listing digests, %w", err)
	}
	defer rows.Close()

	var digests []db.NotificationDigest
	for rows.Next() {
		var d db.NotificationDigest
		if err = rows.Scan(&d.ID, &d.UserID, &d.DigestType, &d.IsEnabled, &d.NextScheduledAt, &d.LastSentAt); err != nil {
			return nil, fmt.Errorf("err scanning digest, %w", err)
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}

// Reschedule sets the next run; lastSentAt is left unchanged when nil.
func (r *DigestRepo) Reschedule(ctx context.Context, id uuid.UUID, next time.Time, lastSentAt *time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE certify.notification_digests
		SET next_scheduled_at = $2, last_sent_at = COALESCE($3, last_sent_at)
		WHERE id = $1`, id, next, lastSentAt)
	if err != nil {
		return fmt.Errorf("err rescheduling digest, %w", err)
	}
	return nil
}
