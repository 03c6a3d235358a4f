package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("not found")

const requestColumns = `id, recipient_name, course_name, issue_date, expiry_date, location_id, user_id, status,
	issuing_started_at, failure_reason, created_at, updated_at`

const certificateColumns = `id, recipient_name, course_name, issue_date, expiry_date, verification_code, issued_by,
	certificate_request_id, location_id, status, user_id, certificate_url, created_at, updated_at`

type CertificateRepo struct {
	q dbs.Querier
}

func NewCertificateRepo(q dbs.Querier) *CertificateRepo {
	return &CertificateRepo{q: q}
}

func (r *CertificateRepo) GetRequestByID(ctx context.Context, id uuid.UUID) (*db.CertificateRequest, error) {
	var req db.CertificateRequest
	err := r.q.QueryRow(ctx, "SELECT "+requestColumns+" FROM certify.certificate_requests WHERE id = $1", id).Scan(
		&req.ID, &req.RecipientName, &req.CourseName, &req.IssueDate, &req.ExpiryDate, &req.LocationID, &req.UserID,
		&req.Status, &req.IssuingStartedAt, &req.FailureReason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err, "certificate request")
	}
	return &req, nil
}

// ClaimRequest moves a request into ISSUING. It succeeds for PENDING and ISSUANCE_FAILED requests,
// and for ISSUING requests whose claim started before staleBefore.
func (r *CertificateRepo) ClaimRequest(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `UPDATE certify.certificate_requests
		SET status = $2, issuing_started_at = $3, failure_reason = NULL, updated_at = $3
		WHERE id = $1 AND (status = ANY($4) OR (status = $2 AND issuing_started_at < $5))`,
		id, consts.RequestStatusIssuing, now,
		[]string{string(consts.RequestStatusPending), string(consts.RequestStatusIssuanceFailed)}, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("err claiming certificate request, %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CertificateRepo) SetRequestStatus(ctx context.Context, id uuid.UUID, status consts.RequestStatus, reason *string) error {
	_, err := r.q.Exec(ctx, `UPDATE certify.certificate_requests SET status = $2, failure_reason = $3, updated_at = $4 WHERE id = $1`,
		id, status, reason, time.Now())
	if err != nil {
		return fmt.Errorf("err updating certificate request status, %w", err)
	}
	return nil
}

func (r *CertificateRepo) GetCertificateByRequestID(ctx context.Context, requestID uuid.UUID) (*db.Certificate, error) {
	row := r.q.QueryRow(ctx, "SELECT "+certificateColumns+" FROM certify.certificates WHERE certificate_request_id = $1", requestID)
	return scanCertificate(row)
}

func (r *CertificateRepo) GetCertificateByCode(ctx context.Context, code string) (*db.Certificate, error) {
	row := r.q.QueryRow(ctx, "SELECT "+certificateColumns+" FROM certify.certificates WHERE verification_code = $1", code)
	return scanCertificate(row)
}

// InsertCertificate returns false without error when the verification code is already taken.
func (r *CertificateRepo) InsertCertificate(ctx context.Context, cert db.Certificate) (bool, error) {
	var id uuid.UUID
	err := r.q.QueryRow(ctx, `INSERT INTO certify.certificates(id, recipient_name, course_name, issue_date, expiry_date,
			verification_code, issued_by, certificate_request_id, location_id, status, user_id, certificate_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (verification_code) DO NOTHING
		RETURNING id`,
		cert.ID, cert.RecipientName, cert.CourseName, cert.IssueDate, cert.ExpiryDate, cert.VerificationCode, cert.IssuedBy,
		cert.CertificateRequestID, cert.LocationID, cert.Status, cert.UserID, cert.CertificateURL, cert.CreatedAt, cert.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("err inserting certificate, %w", err)
	}
	return true, nil
}

func (r *CertificateRepo) UpdateCertificateURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.q.Exec(ctx, "UPDATE certify.certificates SET certificate_url = $2, updated_at = $3 WHERE id = $1", id, url, time.Now())
	if err != nil {
		return fmt.Errorf("err updating certificate url, %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *CertificateRepo) InsertAuditLog(ctx context.Context, entry db.CertificateAuditLog) error {
	_, err := r.q.Exec(ctx, "INSERT INTO certify.certificate_audit_logs(certificate_id, action, performed_by, created_at) VALUES ($1,$2,$3,$4)",
		entry.CertificateID, entry.Action, entry.PerformedBy, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("err inserting audit log, %w", err)
	}
	return nil
}

func scanCertificate(row pgx.Row) (*db.Certificate, error) {
	var c db.Certificate
	err := row.Scan(&c.ID, &c.RecipientName, &c.CourseName, &c.IssueDate, &c.ExpiryDate, &c.VerificationCode, &c.IssuedBy,
		&c.CertificateRequestID, &c.LocationID, &c.Status, &c.UserID, &c.CertificateURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrapNotFound(err, "certificate")
	}
	return &c, nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("err querying %s, %w", what, err)
}
