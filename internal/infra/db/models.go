package db

import (
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/google/uuid"
)

type CertificateRequest struct {
	ID               uuid.UUID            `db:"id"`
	RecipientName    string               `db:"recipient_name"`
	CourseName       string               `db:"course_name"`
	IssueDate        string               `db:"issue_date"`
	ExpiryDate       string               `db:"expiry_date"`
	LocationID       *uuid.UUID           `db:"location_id"`
	UserID           uuid.UUID            `db:"user_id"`
	Status           consts.RequestStatus `db:"status"`
	IssuingStartedAt *time.Time           `db:"issuing_started_at"`
	FailureReason    *string              `db:"failure_reason"`
	CreatedAt        time.Time            `db:"created_at"`
	UpdatedAt        time.Time            `db:"updated_at"`
}

type Certificate struct {
	ID                   uuid.UUID                `db:"id"`
	RecipientName        string                   `db:"recipient_name"`
	CourseName           string                   `db:"course_name"`
	IssueDate            string                   `db:"issue_date"`
	ExpiryDate           string                   `db:"expiry_date"`
	VerificationCode     string                   `db:"verification_code"`
	IssuedBy             string                   `db:"issued_by"`
	CertificateRequestID uuid.UUID                `db:"certificate_request_id"`
	LocationID           *uuid.UUID               `db:"location_id"`
	Status               consts.CertificateStatus `db:"status"`
	UserID               uuid.UUID                `db:"user_id"`
	CertificateURL       *string                  `db:"certificate_url"`
	CreatedAt            time.Time                `db:"created_at"`
	UpdatedAt            time.Time                `db:"updated_at"`
}

type CertificateAuditLog struct {
	ID            int64     `db:"id"`
	CertificateID uuid.UUID `db:"certificate_id"`
	Action        string    `db:"action"`
	PerformedBy   string    `db:"performed_by"`
	CreatedAt     time.Time `db:"created_at"`
}

type CertificateTemplate struct {
	ID        uuid.UUID `db:"id"`
	URL       *string   `db:"url"`
	IsDefault bool      `db:"is_default"`
	CreatedAt time.Time `db:"created_at"`
}

type Notification struct {
	ID          uuid.UUID                   `db:"id"`
	UserID      uuid.UUID                   `db:"user_id"`
	Title       string                      `db:"title"`
	Message     string                      `db:"message"`
	Type        consts.NotificationType     `db:"type"`
	Priority    consts.NotificationPriority `db:"priority"`
	Category    string                      `db:"category"`
	ActionURL   *string                     `db:"action_url"`
	Read        bool                        `db:"read"`
	IsDismissed bool                        `db:"is_dismissed"`
	CreatedAt   time.Time                   `db:"created_at"`
}

type QueueItem struct {
	ID             uuid.UUID          `db:"id"`
	NotificationID uuid.UUID          `db:"notification_id"`
	Status         consts.QueueStatus `db:"status"`
	Priority       int                `db:"priority"`
	Category       string             `db:"category"`
	CreatedAt      time.Time          `db:"created_at"`
	ProcessedAt    *time.Time         `db:"processed_at"`
	Error          *string            `db:"error"`
	MessageID      *string            `db:"message_id"`
	ClaimToken     *uuid.UUID         `db:"claim_token"`
	ClaimExpiresAt *time.Time         `db:"claim_expires_at"`
}

type NotificationDigest struct {
	ID              uuid.UUID         `db:"id"`
	UserID          uuid.UUID         `db:"user_id"`
	DigestType      consts.DigestType `db:"digest_type"`
	IsEnabled       bool              `db:"is_enabled"`
	NextScheduledAt time.Time         `db:"next_scheduled_at"`
	LastSentAt      *time.Time        `db:"last_sent_at"`
}

// Recipient joins the auth identity with the profile.
type Recipient struct {
	UserID      uuid.UUID `db:"user_id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
}
