package dto

import (
	"strings"

	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type GenerateCertificateRequest struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
	IssuerID  string `json:"issuerId" validate:"required,max=128"`
}

type IssuedCertificate struct {
	ID               string `json:"id"`
	RecipientName    string `json:"recipientName"`
	CourseName       string `json:"courseName"`
	VerificationCode string `json:"verificationCode"`
	PDFURL           string `json:"pdfUrl"`
}

type GenerateCertificateResponse struct {
	Success     bool              `json:"success"`
	Certificate IssuedCertificate `json:"certificate"`
}

type NotificationPayload struct {
	UserID    string `json:"userId" validate:"required,uuid"`
	Title     string `json:"title" validate:"required,max=255"`
	Message   string `json:"message" validate:"required"`
	Type      string `json:"type" validate:"omitempty,oneof=INFO SUCCESS WARNING ERROR"`
	Priority  string `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Category  string `json:"category" validate:"omitempty,max=64"`
	ActionURL string `json:"actionUrl" validate:"omitempty,url"`
	SendEmail bool   `json:"sendEmail"`
}

// Normalize upper-cases enum fields and fills in defaults.
func (p *NotificationPayload) Normalize() {
	p.Type = strings.ToUpper(strings.TrimSpace(p.Type))
	if p.Type == "" {
		p.Type = string(consts.NotificationTypeInfo)
	}
	p.Priority = strings.ToUpper(strings.TrimSpace(p.Priority))
	if p.Priority == "" {
		p.Priority = string(consts.PriorityNormal)
	}
	p.Category = strings.ToUpper(strings.TrimSpace(p.Category))
	if p.Category == "" {
		p.Category = consts.DefaultCategory
	}
}

type ProcessNotificationsRequest struct {
	ProcessQueue *bool               `json:"processQueue"`
	Notification *NotificationPayload `json:"notification"`
}

func (r ProcessNotificationsRequest) ShouldProcessQueue() bool {
	return r.ProcessQueue == nil || *r.ProcessQueue
}

type ProcessResult struct {
	ID             string `json:"id"`
	NotificationID string `json:"notificationId"`
	Success        bool   `json:"success"`
	Skipped        bool   `json:"skipped,omitempty"`
	Queued         bool   `json:"queued,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Error          string `json:"error,omitempty"`
}

type ProcessNotificationsResponse struct {
	Success   bool            `json:"success"`
	Processed int             `json:"processed"`
	Results   []ProcessResult `json:"results"`
}

type ProcessDigestsRequest struct {
	DigestType   string `json:"digestType" validate:"omitempty,oneof=daily weekly"`
	UserID       string `json:"userId" validate:"omitempty,uuid"`
	ForceProcess bool   `json:"forceProcess"`
}

func (r ProcessDigestsRequest) Type() consts.DigestType {
	if r.DigestType == "" {
		return consts.DigestDaily
	}
	return consts.DigestType(r.DigestType)
}

type ProcessDigestsResponse struct {
	Success    bool     `json:"success"`
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

type VerifiedCertificate struct {
	ID               string `json:"id"`
	RecipientName    string `json:"recipientName"`
	CourseName       string `json:"courseName"`
	IssueDate        string `json:"issueDate"`
	ExpiryDate       string `json:"expiryDate"`
	VerificationCode string `json:"verificationCode"`
	Status           string `json:"status"`
	PDFURL           string `json:"pdfUrl,omitempty"`
}

type VerifyCertificateResponse struct {
	Valid       bool                `json:"valid"`
	Certificate VerifiedCertificate `json:"certificate"`
}
