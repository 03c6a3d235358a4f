package consts

type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "PENDING"
	RequestStatusIssuing        RequestStatus = "ISSUING"
	RequestStatusArchived       RequestStatus = "ARCHIVED"
	RequestStatusIssuanceFailed RequestStatus = "ISSUANCE_FAILED"
)

type CertificateStatus string

const (
	CertificateStatusActive  CertificateStatus = "ACTIVE"
	CertificateStatusRevoked CertificateStatus = "REVOKED"
)

const AuditActionCreated = "CREATED"

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "PENDING"
	QueueStatusProcessing QueueStatus = "PROCESSING"
	QueueStatusSent       QueueStatus = "SENT"
	QueueStatusFailed     QueueStatus = "FAILED"
	QueueStatusSkipped    QueueStatus = "SKIPPED"
)

func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusSent || s == QueueStatusFailed || s == QueueStatusSkipped
}

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "INFO"
	NotificationTypeSuccess NotificationType = "SUCCESS"
	NotificationTypeWarning NotificationType = "WARNING"
	NotificationTypeError   NotificationType = "ERROR"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityNormal NotificationPriority = "NORMAL"
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityUrgent NotificationPriority = "URGENT"
)

// Rank is the value stored on queue rows, higher is served first.
func (p NotificationPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	default:
		return 2
	}
}

const DefaultCategory = "GENERAL"

type DigestType string

const (
	DigestDaily  DigestType = "daily"
	DigestWeekly DigestType = "weekly"
)

// Interval returns 0 for unknown digest types.
func (d DigestType) Interval() (days int) {
	switch d {
	case DigestDaily:
		return 1
	case DigestWeekly:
		return 7
	}
	return 0
}
