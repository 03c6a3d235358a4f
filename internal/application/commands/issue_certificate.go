package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application/dto"
	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/application/interfaces"
	"github.com/Builder-Lawyers/certify-backend/internal/application/query"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/certificate"
	"github.com/Builder-Lawyers/certify-backend/internal/domain/consts"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/config"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/pdf"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

const (
	StepCreateRecord = "create_record"
	StepTemplate     = "template"
	StepFonts        = "fonts"
	StepRender       = "render"
	StepUpload       = "upload"
	StepUpdateURL    = "update_url"
)

// form field names of the certificate template
const (
	FieldName   = "NAME"
	FieldCourse = "COURSE"
	FieldIssue  = "ISSUE"
	FieldExpiry = "EXPIRY"
)

var ErrRequestInProgress = errors.New("certificate request is already being issued")

type IssueCertificate struct {
	cfg          *config.IssuanceConfig
	uowFactory   *dbs.UOWFactory
	templates    *query.ResolveTemplate
	fonts        interfaces.FileStorage
	certificates interfaces.FileStorage
	fetcher      interfaces.TemplateFetcher
	renderer     interfaces.PDFRenderer
	cache        interfaces.CacheInvalidator
	now          func() time.Time
}

func NewIssueCertificate(
	cfg *config.IssuanceConfig, factory *dbs.UOWFactory, templates *query.ResolveTemplate,
	fonts, certificates interfaces.FileStorage, fetcher interfaces.TemplateFetcher, renderer interfaces.PDFRenderer,
	cache interfaces.CacheInvalidator,
) *IssueCertificate {
	return &IssueCertificate{
		cfg:          cfg,
		uowFactory:   factory,
		templates:    templates,
		fonts:        fonts,
		certificates: certificates,
		fetcher:      fetcher,
		renderer:     renderer,
		cache:        cache,
		now:          time.Now,
	}
}

// Execute issues the certificate for a request. Re-running it for a request that failed halfway
// picks up the certificate created by the earlier run, an archived request returns its certificate.
func (c *IssueCertificate) Execute(ctx context.Context, requestID uuid.UUID, issuerID string) (*dto.IssuedCertificate, error) {
	certificates := repo.NewCertificateRepo(c.uowFactory.Pool)

	request, err := certificates.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errs.NotFoundError{What: "Certificate request", Err: err}
		}
		return nil, err
	}
	slog.Info("loaded certificate request", "requestID", requestID, "status", request.Status)

	if request.Status == consts.RequestStatusArchived {
		existing, err := certificates.GetCertificateByRequestID(ctx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, errs.ConflictError{Err: fmt.Errorf("request %s is archived without a certificate", requestID)}
			}
			return nil, err
		}
		slog.Info("certificate request already issued", "requestID", requestID, "certificateID", existing.ID)
		return issued(existing), nil
	}

	if !claimable(request.Status) {
		return nil, errs.ConflictError{Err: fmt.Errorf("certificate request %s has status %s and cannot be issued", requestID, request.Status)}
	}

	now := c.now()
	claimed, err := certificates.ClaimRequest(ctx, requestID, now, now.Add(-c.cfg.ClaimStaleAge))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, c.claimConflict(ctx, certificates, requestID)
	}

	cert, err := c.createRecord(ctx, certificates, request, issuerID)
	if err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepCreateRecord, "Failed to create certificate record", err)
	}

	templateURL, err := c.templates.Query(ctx, request.LocationID)
	if err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepTemplate, "Failed to get certificate template", err)
	}

	fonts, err := c.downloadFonts(ctx)
	if err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepFonts, "Failed to download fonts", err)
	}

	rendered, err := c.render(ctx, templateURL, fonts, cert)
	if err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepRender, "Failed to generate PDF", err)
	}
	slog.Info("generated certificate pdf", "certificateID", cert.ID, "bytes", len(rendered))

	key := c.cfg.PDFKeyPrefix + cert.ID.String() + ".pdf"
	contentType := "application/pdf"
	if err = c.certificates.UploadFile(ctx, key, &contentType, bytes.NewReader(rendered)); err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepUpload, "Failed to upload PDF", err)
	}
	// a published pdf was replaced
	if cert.CertificateURL != nil && c.cache != nil {
		if err = c.cache.Invalidate(ctx, key); err != nil {
			slog.Warn("failed to invalidate cached certificate", "certificateID", cert.ID, "err", err)
		}
	}

	pdfURL, err := c.certificates.PublicURL(key)
	if err != nil {
		slog.Warn("can't resolve public url, storing object key", "certificateID", cert.ID, "key", key, "err", err)
		pdfURL = key
	}

	if err = certificates.UpdateCertificateURL(ctx, cert.ID, pdfURL); err != nil {
		return nil, c.fail(ctx, certificates, requestID, StepUpdateURL, "Failed to update certificate URL", err)
	}
	cert.CertificateURL = &pdfURL

	if err = certificates.SetRequestStatus(ctx, requestID, consts.RequestStatusArchived, nil); err != nil {
		slog.Error("failed to archive certificate request", "requestID", requestID, "err", err)
	}

	slog.Info("issued certificate", "certificateID", cert.ID, "requestID", requestID, "url", pdfURL)
	return issued(cert), nil
}

// createRecord inserts the certificate, or returns the one an earlier attempt already created.
func (c *IssueCertificate) createRecord(ctx context.Context, certificates *repo.CertificateRepo, request *db.CertificateRequest, issuerID string) (*db.Certificate, error) {
	existing, err := certificates.GetCertificateByRequestID(ctx, request.ID)
	if err == nil {
		slog.Info("resuming issuance with existing certificate", "requestID", request.ID, "certificateID", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	now := c.now()
	cert := db.Certificate{
		ID:                   uuid.New(),
		RecipientName:        request.RecipientName,
		CourseName:           request.CourseName,
		IssueDate:            certificate.NormalizeDate(request.IssueDate),
		ExpiryDate:           certificate.NormalizeDate(request.ExpiryDate),
		IssuedBy:             issuerID,
		CertificateRequestID: request.ID,
		LocationID:           request.LocationID,
		Status:               consts.CertificateStatusActive,
		UserID:               request.UserID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	attempts := max(c.cfg.CodeAttempts, 1)
	inserted := false
	for i := 0; i < attempts && !inserted; i++ {
		cert.VerificationCode = certificate.GenerateCode()
		inserted, err = certificates.InsertCertificate(ctx, cert)
		if err != nil {
			return nil, err
		}
		if !inserted {
			slog.Warn("verification code collision, regenerating", "attempt", i+1)
		}
	}
	if !inserted {
		return nil, fmt.Errorf("no unique verification code after %d attempts", attempts)
	}

	err = certificates.InsertAuditLog(ctx, db.CertificateAuditLog{
		CertificateID: cert.ID,
		Action:        consts.AuditActionCreated,
		PerformedBy:   issuerID,
		CreatedAt:     now,
	})
	if err != nil {
		slog.Error("failed to write audit log", "certificateID", cert.ID, "err", err)
	}

	slog.Info("created certificate record", "certificateID", cert.ID, "code", cert.VerificationCode)
	return &cert, nil
}

func (c *IssueCertificate) downloadFonts(ctx context.Context) ([]pdf.FontAsset, error) {
	fonts := make([]pdf.FontAsset, 0, len(c.cfg.Fonts))
	for _, name := range c.cfg.Fonts {
		data, err := c.fonts.GetFile(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("font %s is empty", name)
		}
		fonts = append(fonts, pdf.FontAsset{Name: name, Data: data})
	}
	return fonts, nil
}

func (c *IssueCertificate) render(ctx context.Context, templateURL string, fonts []pdf.FontAsset, cert *db.Certificate) ([]byte, error) {
	template, err := c.fetcher.FetchTemplate(ctx, templateURL)
	if err != nil {
		return nil, err
	}
	return c.renderer.Render(ctx, pdf.Document{
		Template: template,
		Fonts:    fonts,
		Fields: []pdf.Field{
			{Name: FieldName, Value: cert.RecipientName, Font: c.cfg.NameStyle.Font, Size: c.cfg.NameStyle.Size},
			{Name: FieldCourse, Value: strings.ToUpper(cert.CourseName), Font: c.cfg.CourseStyle.Font, Size: c.cfg.CourseStyle.Size},
			{Name: FieldIssue, Value: cert.IssueDate, Font: c.cfg.DateStyle.Font, Size: c.cfg.DateStyle.Size},
			{Name: FieldExpiry, Value: cert.ExpiryDate, Font: c.cfg.DateStyle.Font, Size: c.cfg.DateStyle.Size},
		},
	})
}

// fail releases the claim as ISSUANCE_FAILED so the request can be retried.
func (c *IssueCertificate) fail(ctx context.Context, certificates *repo.CertificateRepo, requestID uuid.UUID, step, message string, cause error) error {
	slog.Error(message, "requestID", requestID, "step", step, "err", cause)
	reason := fmt.Sprintf("%s: %v", message, cause)
	if err := certificates.SetRequestStatus(context.WithoutCancel(ctx), requestID, consts.RequestStatusIssuanceFailed, &reason); err != nil {
		slog.Error("failed to mark certificate request as failed", "requestID", requestID, "err", err)
	}
	return errs.StepError{Step: step, Message: message, Err: cause}
}

func issued(cert *db.Certificate) *dto.IssuedCertificate {
	res := &dto.IssuedCertificate{
		ID:               cert.ID.String(),
		RecipientName:    cert.RecipientName,
		CourseName:       cert.CourseName,
		VerificationCode: cert.VerificationCode,
	}
	if cert.CertificateURL != nil {
		res.PDFURL = *cert.CertificateURL
	}
	return res
}

func claimable(status consts.RequestStatus) bool {
	switch status {
	case consts.RequestStatusPending, consts.RequestStatusIssuing, consts.RequestStatusIssuanceFailed:
		return true
	}
	return false
}

// claimConflict reports why a claim did not take, the request may have moved on since it was loaded.
func (c *IssueCertificate) claimConflict(ctx context.Context, certificates *repo.CertificateRepo, requestID uuid.UUID) error {
	request, err := certificates.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status == consts.RequestStatusIssuing {
		return errs.ConflictError{Err: ErrRequestInProgress}
	}
	return errs.ConflictError{Err: fmt.Errorf("certificate request %s has status %s and cannot be issued", requestID, request.Status)}
}
